package usecase

import (
	"errors"
	"fmt"
)

// StageError marca em qual estágio do pipeline a falha aconteceu.
type StageError struct {
	Stage State
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// FailedStage devolve o estágio de um StageError na cadeia, se houver.
func FailedStage(err error) (State, bool) {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Stage, true
	}
	return "", false
}
