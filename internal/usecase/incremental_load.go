package usecase

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/xavierca1/zoho-lead-sync/internal/entity"
)

const StageIncrementalLoad = "Incremental Load"

type IncrementalLoadUseCase struct {
	Repo    entity.LeadRepositoryInterface
	Metrics MetricsRecorder

	journal journal
	logger  *zap.Logger
}

func NewIncrementalLoadUseCase(
	repo entity.LeadRepositoryInterface,
	runLog RunLogger,
	metrics MetricsRecorder,
	now Clock,
	logger *zap.Logger,
) *IncrementalLoadUseCase {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &IncrementalLoadUseCase{
		Repo:    repo,
		Metrics: metrics,
		journal: journal{logger: runLog, now: now},
		logger:  logger,
	}
}

// Execute insere só os leads cujo Email ainda não existe no banco e devolve quantos entraram.
//
// A chave de duplicidade é o Email normalizado (trim + lower-case), a mesma da
// reconciliação. Leads sem Email caem todos na chave "": depois do primeiro run
// que os insere, não entram de novo.
func (uc *IncrementalLoadUseCase) Execute(ctx context.Context, leads []entity.Lead) (int, error) {
	existing, err := uc.Repo.FindAll(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "failed to read existing leads")
	}

	seen := make(map[string]struct{}, len(existing))
	for _, lead := range existing {
		seen[lead.NormalizedEmail()] = struct{}{}
	}

	newLeads := make([]entity.Lead, 0, len(leads))
	for _, lead := range leads {
		if _, dup := seen[lead.NormalizedEmail()]; !dup {
			newLeads = append(newLeads, lead)
		}
	}

	if len(newLeads) == 0 {
		uc.logger.Info("no new leads to insert", zap.Int("existing", len(existing)))
		return 0, uc.journal.write(ctx, StageIncrementalLoad, entity.StatusSuccess,
			"No new leads to insert", "", map[string]any{"new_leads_count": 0})
	}

	if err := uc.Repo.InsertMany(ctx, newLeads); err != nil {
		return 0, eris.Wrapf(err, "failed to insert %d new leads", len(newLeads))
	}

	uc.Metrics.AddInserted(len(newLeads))
	uc.logger.Info("new leads inserted", zap.Int("inserted", len(newLeads)), zap.Int("existing", len(existing)))

	return len(newLeads), uc.journal.write(ctx, StageIncrementalLoad, entity.StatusSuccess,
		fmt.Sprintf("Inserted %d new leads into DocumentDB", len(newLeads)), "",
		map[string]any{"inserted_leads_count": len(newLeads)})
}
