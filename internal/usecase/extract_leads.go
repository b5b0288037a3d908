package usecase

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/xavierca1/zoho-lead-sync/internal/entity"
	"github.com/xavierca1/zoho-lead-sync/internal/infra/storage"
)

const StageExtraction = "Extraction"

type ExtractLeadsUseCase struct {
	Source     LeadSource
	Store      storage.ObjectStore
	Metrics    MetricsRecorder
	MaxRecords int

	journal journal
	logger  *zap.Logger
}

func NewExtractLeadsUseCase(
	source LeadSource,
	store storage.ObjectStore,
	runLog RunLogger,
	metrics MetricsRecorder,
	now Clock,
	maxRecords int,
	logger *zap.Logger,
) *ExtractLeadsUseCase {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &ExtractLeadsUseCase{
		Source:     source,
		Store:      store,
		Metrics:    metrics,
		MaxRecords: maxRecords,
		journal:    journal{logger: runLog, now: now},
		logger:     logger,
	}
}

// Execute busca até MaxRecords leads no CRM e grava o snapshot bruto em key.
func (uc *ExtractLeadsUseCase) Execute(ctx context.Context, key string) ([]entity.Lead, error) {
	uc.logger.Info("fetching leads from zoho crm", zap.Int("max_records", uc.MaxRecords))

	leads, err := uc.Source.FetchLeads(ctx, uc.MaxRecords)
	if err != nil {
		return nil, eris.Wrap(err, "failed to fetch leads")
	}
	if leads == nil {
		leads = []entity.Lead{}
	}

	if err := storage.PutJSON(ctx, uc.Store, key, leads); err != nil {
		return nil, eris.Wrap(err, "failed to save crm snapshot")
	}

	uc.Metrics.AddFetched(len(leads))
	uc.logger.Info("leads fetched", zap.Int("count", len(leads)), zap.String("key", key))

	if err := uc.journal.write(ctx, StageExtraction, entity.StatusSuccess, "Data fetched", "",
		map[string]any{"record_count": len(leads), "s3_key": key},
	); err != nil {
		return nil, err
	}

	return leads, nil
}
