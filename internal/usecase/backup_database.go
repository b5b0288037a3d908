package usecase

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/xavierca1/zoho-lead-sync/internal/entity"
	"github.com/xavierca1/zoho-lead-sync/internal/infra/storage"
)

const StageBackup = "Backup"

type BackupDatabaseUseCase struct {
	Repo    entity.LeadRepositoryInterface
	Store   storage.ObjectStore
	Metrics MetricsRecorder

	journal journal
	logger  *zap.Logger
}

func NewBackupDatabaseUseCase(
	repo entity.LeadRepositoryInterface,
	store storage.ObjectStore,
	runLog RunLogger,
	metrics MetricsRecorder,
	now Clock,
	logger *zap.Logger,
) *BackupDatabaseUseCase {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &BackupDatabaseUseCase{
		Repo:    repo,
		Store:   store,
		Metrics: metrics,
		journal: journal{logger: runLog, now: now},
		logger:  logger,
	}
}

// Execute copia a coleção inteira (sem _id) para key e devolve o número de registros.
// Falhas são registradas como ERROR e devolvidas.
func (uc *BackupDatabaseUseCase) Execute(ctx context.Context, key string) (int, error) {
	count, err := uc.backup(ctx, key)
	if err != nil {
		uc.logger.Error("lead store backup failed", zap.String("key", key), zap.Error(err))
		if logErr := uc.journal.write(ctx, StageBackup, entity.StatusError,
			"MongoDB backup to S3 failed", err.Error(), nil); logErr != nil {
			return 0, errors.Join(err, logErr)
		}
		return 0, err
	}

	uc.Metrics.SetBackupRecords(count)
	uc.logger.Info("lead store backup saved", zap.String("key", key), zap.Int("record_count", count))

	return count, uc.journal.write(ctx, StageBackup, entity.StatusSuccess,
		"MongoDB backup to S3 completed successfully", "",
		map[string]any{"s3_key": key, "record_count": count})
}

func (uc *BackupDatabaseUseCase) backup(ctx context.Context, key string) (int, error) {
	leads, err := uc.Repo.FindAll(ctx)
	if err != nil {
		return 0, err
	}
	if leads == nil {
		leads = []entity.Lead{}
	}

	if err := storage.PutJSON(ctx, uc.Store, key, leads); err != nil {
		return 0, err
	}
	return len(leads), nil
}
