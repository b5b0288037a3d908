package entity

import (
	"errors"
	"strings"
	"time"
)

type LogStatus string

const (
	StatusInProgress LogStatus = "IN_PROGRESS"
	StatusSuccess    LogStatus = "SUCCESS"
	StatusError      LogStatus = "ERROR"
)

func (s LogStatus) Valid() bool {
	switch s {
	case StatusInProgress, StatusSuccess, StatusError:
		return true
	}
	return false
}

// TimestampLayout reproduz o formato do str(datetime) usado nos logs antigos.
const TimestampLayout = "2006-01-02 15:04:05.000000"

const slugLength = 20

// LogEntry é um registro de log de estágio. Cada chamada grava um objeto novo; nada é relido.
type LogEntry struct {
	Timestamp    string    `json:"timestamp"`
	Status       LogStatus `json:"status"`
	Stage        string    `json:"stage"`
	Message      string    `json:"message"`
	ErrorMessage string    `json:"error_message"`
	Record       any       `json:"record"`
	RunID        string    `json:"run_id,omitempty"`

	at time.Time
}

func NewLogEntry(at time.Time, stage string, status LogStatus, message string) (LogEntry, error) {
	if !status.Valid() {
		return LogEntry{}, errors.New("invalid log status: " + string(status))
	}
	if strings.TrimSpace(stage) == "" {
		return LogEntry{}, errors.New("stage is required")
	}

	return LogEntry{
		Timestamp: at.Format(TimestampLayout),
		Status:    status,
		Stage:     stage,
		Message:   message,
		at:        at,
	}, nil
}

func (e LogEntry) WithErrorMessage(msg string) LogEntry {
	e.ErrorMessage = msg
	return e
}

func (e LogEntry) WithRecord(record any) LogEntry {
	e.Record = record
	return e
}

func (e LogEntry) WithRunID(id string) LogEntry {
	e.RunID = id
	return e
}

func (e LogEntry) At() time.Time {
	return e.at
}

func (e LogEntry) IsError() bool {
	return e.Status == StatusError
}

// Slug monta o trecho do nome do arquivo: mensagem (ou erro, se status ERROR),
// com espaços e barras trocados por "_", cortada em 20 caracteres.
// Um ERROR sem error_message usa a mensagem, para não sobrescrever error_error.json.
func (e LogEntry) Slug() string {
	text, fallback := e.Message, "log"
	if e.IsError() {
		text, fallback = e.ErrorMessage, "error"
		if text == "" {
			text = e.Message
		}
	}
	if text == "" {
		text = fallback
	}

	text = strings.NewReplacer(" ", "_", "/", "_").Replace(text)

	runes := []rune(text)
	if len(runes) > slugLength {
		runes = runes[:slugLength]
	}
	return string(runes)
}
