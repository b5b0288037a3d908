package usecase

import (
	"context"

	"github.com/xavierca1/zoho-lead-sync/internal/entity"
)

type runIDKey struct{}

// WithRunID anexa o id do run ao contexto; os registros de estágio o carregam.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

func RunIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

// journal monta e grava os registros de estágio.
type journal struct {
	logger RunLogger
	now    Clock
}

func (j journal) write(ctx context.Context, stage string, status entity.LogStatus, message, errMsg string, record any) error {
	entry, err := entity.NewLogEntry(j.now(), stage, status, message)
	if err != nil {
		return err
	}

	entry = entry.
		WithErrorMessage(errMsg).
		WithRecord(record).
		WithRunID(RunIDFromContext(ctx))

	return j.logger.Log(ctx, entry)
}
