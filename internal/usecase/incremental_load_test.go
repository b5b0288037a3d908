package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xavierca1/zoho-lead-sync/internal/entity"
)

func TestIncrementalLoadInsertsOnlyUnseenLeads(t *testing.T) {
	f := newFixture()
	repo := &memoryRepo{leads: []entity.Lead{{"Email": "old@x.com"}}}
	uc := NewIncrementalLoadUseCase(repo, f.runLog, nil, fixedClock, zap.NewNop())

	inserted, err := uc.Execute(context.Background(), []entity.Lead{
		{"Email": "old@x.com", "First_Name": "Old"},
		{"Email": "new@x.com", "First_Name": "New"},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, inserted)
	assert.Len(t, repo.leads, 2)
	assert.Equal(t, "new@x.com", repo.leads[1].Email())

	entry := f.logEntry(t, "success_Inserted_1_new_leads.json")
	assert.Equal(t, "Inserted 1 new leads into DocumentDB", entry["message"])
	assert.Equal(t, float64(1), entry["record"].(map[string]any)["inserted_leads_count"])
}

func TestIncrementalLoadIsIdempotent(t *testing.T) {
	f := newFixture()
	repo := &memoryRepo{}
	uc := NewIncrementalLoadUseCase(repo, f.runLog, nil, fixedClock, zap.NewNop())
	leads := []entity.Lead{{"Email": "a@x.com"}, {"Email": "b@x.com"}, {"First_Name": "No email"}}

	first, err := uc.Execute(context.Background(), leads)
	require.NoError(t, err)
	second, err := uc.Execute(context.Background(), leads)
	require.NoError(t, err)

	assert.Equal(t, 3, first)
	assert.Equal(t, 0, second)
	assert.Equal(t, 1, repo.inserts)

	entry := f.logEntry(t, "success_No_new_leads_to_inse.json")
	assert.Equal(t, float64(0), entry["record"].(map[string]any)["new_leads_count"])
}

// A detecção de duplicados usa o Email normalizado, igual à reconciliação.
// Com comparação exata "Old@X.com " seria inserido de novo.
func TestIncrementalLoadNormalizesEmail(t *testing.T) {
	f := newFixture()
	repo := &memoryRepo{leads: []entity.Lead{{"Email": "old@x.com"}}}
	uc := NewIncrementalLoadUseCase(repo, f.runLog, nil, fixedClock, zap.NewNop())

	inserted, err := uc.Execute(context.Background(), []entity.Lead{{"Email": "Old@X.com "}})

	require.NoError(t, err)
	assert.Equal(t, 0, inserted)
}

func TestIncrementalLoadNothingToInsertSkipsWrite(t *testing.T) {
	f := newFixture()
	repo := &memoryRepo{insertErr: errors.New("must not be called")}
	uc := NewIncrementalLoadUseCase(repo, f.runLog, nil, fixedClock, zap.NewNop())

	inserted, err := uc.Execute(context.Background(), nil)

	require.NoError(t, err)
	assert.Equal(t, 0, inserted)
}

func TestIncrementalLoadPropagatesInsertError(t *testing.T) {
	f := newFixture()
	boom := errors.New("E11000 duplicate key")
	repo := &memoryRepo{insertErr: boom}
	uc := NewIncrementalLoadUseCase(repo, f.runLog, nil, fixedClock, zap.NewNop())

	_, err := uc.Execute(context.Background(), []entity.Lead{{"Email": "a@x.com"}})

	assert.True(t, errors.Is(err, boom))
	assert.Empty(t, f.logKeys())
}

func TestIncrementalLoadPropagatesReadError(t *testing.T) {
	f := newFixture()
	boom := errors.New("no reachable servers")
	uc := NewIncrementalLoadUseCase(&memoryRepo{findErr: boom}, f.runLog, nil, fixedClock, zap.NewNop())

	_, err := uc.Execute(context.Background(), []entity.Lead{{"Email": "a@x.com"}})

	assert.True(t, errors.Is(err, boom))
}
