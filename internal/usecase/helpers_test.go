package usecase

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xavierca1/zoho-lead-sync/internal/entity"
	"github.com/xavierca1/zoho-lead-sync/internal/infra/runlog"
	"github.com/xavierca1/zoho-lead-sync/internal/infra/storage"
)

// ============ MOCKS ============

type MockLeadSource struct {
	mock.Mock
}

func (m *MockLeadSource) FetchLeads(ctx context.Context, maxRecords int) ([]entity.Lead, error) {
	args := m.Called(ctx, maxRecords)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Lead), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, report entity.RunReport) error {
	return m.Called(ctx, report).Error(0)
}

// memoryRepo guarda os leads numa slice, na ordem de inserção.
type memoryRepo struct {
	leads     []entity.Lead
	findErr   error
	findErrAt int // 0: toda leitura falha; n: só a n-ésima
	insertErr error
	inserts   int
	finds     int
}

func (r *memoryRepo) FindAll(context.Context) ([]entity.Lead, error) {
	r.finds++
	if r.findErr != nil && (r.findErrAt == 0 || r.findErrAt == r.finds) {
		return nil, r.findErr
	}
	out := make([]entity.Lead, len(r.leads))
	copy(out, r.leads)
	return out, nil
}

func (r *memoryRepo) InsertMany(_ context.Context, leads []entity.Lead) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.inserts++
	r.leads = append(r.leads, leads...)
	return nil
}

// ============ HELPERS ============

var testNow = time.Date(2024, 3, 7, 10, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

type fixture struct {
	store  *storage.MemoryStore
	runLog *runlog.Logger
	keys   storage.Keys
}

func newFixture() *fixture {
	store := storage.NewMemoryStore()
	return &fixture{
		store:  store,
		runLog: runlog.New(store, zap.NewNop()),
		keys:   storage.KeysFor(testNow),
	}
}

// logKeys devolve as chaves de log gravadas, sem o prefixo logs/<data>/.
func (f *fixture) logKeys() []string {
	var out []string
	for _, k := range f.store.Keys() {
		if strings.HasPrefix(k, "logs/") {
			out = append(out, strings.TrimPrefix(k, "logs/07-03-2024/"))
		}
	}
	sort.Strings(out)
	return out
}

func (f *fixture) logEntry(t *testing.T, name string) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, storage.GetJSON(context.Background(), f.store, "logs/07-03-2024/"+name, &entry))
	return entry
}

func (f *fixture) putSnapshot(t *testing.T, key string, leads []entity.Lead) {
	t.Helper()
	require.NoError(t, storage.PutJSON(context.Background(), f.store, key, leads))
}

// roundTrip passa os leads por JSON, como acontece ao ler um snapshot do storage.
func roundTrip(t *testing.T, leads []entity.Lead) []entity.Lead {
	t.Helper()
	body, err := json.Marshal(leads)
	require.NoError(t, err)
	var out []entity.Lead
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}
