// Package runlog grava os registros de estágio do job: uma linha no zap e um objeto JSON
// em logs/<data>/ no object storage.
package runlog

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/xavierca1/zoho-lead-sync/internal/entity"
	"github.com/xavierca1/zoho-lead-sync/internal/infra/storage"
)

type Logger struct {
	store  storage.ObjectStore
	logger *zap.Logger
}

func New(store storage.ObjectStore, logger *zap.Logger) *Logger {
	return &Logger{store: store, logger: logger}
}

// Log escreve o registro. Sem credenciais de storage o registro fica só no zap;
// qualquer outra falha de escrita é devolvida.
func (l *Logger) Log(ctx context.Context, entry entity.LogEntry) error {
	body, err := json.Marshal(entry)
	if err != nil {
		return eris.Wrapf(err, "failed to encode log entry for stage %s", entry.Stage)
	}

	fields := []zap.Field{
		zap.String("stage", entry.Stage),
		zap.String("status", string(entry.Status)),
		zap.ByteString("entry", body),
	}
	if entry.RunID != "" {
		fields = append(fields, zap.String("run_id", entry.RunID))
	}

	if entry.IsError() {
		l.logger.Error(entry.Message, fields...)
	} else {
		l.logger.Info(entry.Message, fields...)
	}

	key := storage.LogKey(entry.At(), entry.IsError(), entry.Slug())
	if err := l.store.Put(ctx, key, body, "application/json"); err != nil {
		if errors.Is(err, storage.ErrMissingCredentials) {
			l.logger.Warn("storage credentials not available, log entry not persisted", zap.String("key", key))
			return nil
		}
		return eris.Wrapf(err, "failed to persist log entry %s", key)
	}
	return nil
}
