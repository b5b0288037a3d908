package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xavierca1/zoho-lead-sync/internal/entity"
	"github.com/xavierca1/zoho-lead-sync/internal/infra/storage"
)

func TestBackupDatabaseWritesWholeCollection(t *testing.T) {
	f := newFixture()
	repo := &memoryRepo{leads: []entity.Lead{{"Email": "a@x.com"}, {"Email": "b@x.com", "Phone": "123"}}}
	uc := NewBackupDatabaseUseCase(repo, f.store, f.runLog, nil, fixedClock, zap.NewNop())

	count, err := uc.Execute(context.Background(), f.keys.DatabaseBackup)

	require.NoError(t, err)
	assert.Equal(t, 2, count)

	var saved []entity.Lead
	require.NoError(t, storage.GetJSON(context.Background(), f.store, "mongo-backup/mongo-leads-backup-07-03-2024.json", &saved))
	assert.Equal(t, repo.leads, saved)
	assert.Equal(t, "application/json", f.store.ContentType(f.keys.DatabaseBackup))

	entry := f.logEntry(t, "success_MongoDB_backup_to_S3.json")
	assert.Equal(t, "SUCCESS", entry["status"])
	record := entry["record"].(map[string]any)
	assert.Equal(t, f.keys.DatabaseBackup, record["s3_key"])
	assert.Equal(t, float64(2), record["record_count"])
}

func TestBackupDatabaseEmptyCollection(t *testing.T) {
	f := newFixture()
	uc := NewBackupDatabaseUseCase(&memoryRepo{}, f.store, f.runLog, nil, fixedClock, zap.NewNop())

	count, err := uc.Execute(context.Background(), f.keys.DatabaseBackup)

	require.NoError(t, err)
	assert.Equal(t, 0, count)
	body, err := f.store.Get(context.Background(), f.keys.DatabaseBackup)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(body))
}

func TestBackupDatabaseLogsAndReturnsFailure(t *testing.T) {
	f := newFixture()
	boom := errors.New("cursor killed")
	uc := NewBackupDatabaseUseCase(&memoryRepo{findErr: boom}, f.store, f.runLog, nil, fixedClock, zap.NewNop())

	_, err := uc.Execute(context.Background(), f.keys.DatabaseBackup)

	assert.True(t, errors.Is(err, boom))

	entry := f.logEntry(t, "error_cursor_killed.json")
	assert.Equal(t, "ERROR", entry["status"])
	assert.Equal(t, StageBackup, entry["stage"])
	assert.Equal(t, "MongoDB backup to S3 failed", entry["message"])
	assert.Equal(t, "cursor killed", entry["error_message"])

	_, err = f.store.Get(context.Background(), f.keys.DatabaseBackup)
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}
