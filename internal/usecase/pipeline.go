package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xavierca1/zoho-lead-sync/internal/entity"
	"github.com/xavierca1/zoho-lead-sync/internal/infra/storage"
)

type State string

const (
	StateIdle     State = "IDLE"
	StateStart    State = "START"
	StateExtract  State = "EXTRACT"
	StateLoad     State = "LOAD"
	StateBackup   State = "BACKUP"
	StateValidate State = "VALIDATE"
	StateSuccess  State = "SUCCESS"
	StateFailure  State = "FAILURE"
)

// Running indica se o pipeline está no meio de um run.
func (s State) Running() bool {
	switch s {
	case StateIdle, StateSuccess, StateFailure:
		return false
	}
	return true
}

// RunStatus é a foto do run atual, lida pelo endpoint de status.
type RunStatus struct {
	RunID      string    `json:"run_id,omitempty"`
	State      State     `json:"state"`
	StartedAt  time.Time `json:"started_at,omitzero"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
	Error      string    `json:"error,omitempty"`
}

// Stage é um passo do pipeline, executado em ordem.
type Stage struct {
	State State
	Fn    func(context.Context) error
}

type Pipeline struct {
	Extract  *ExtractLeadsUseCase
	Load     *IncrementalLoadUseCase
	Backup   *BackupDatabaseUseCase
	Validate *ValidateUseCase
	Notifier Notifier
	Metrics  MetricsRecorder

	setup    func(context.Context) error
	journal  journal
	logger   *zap.Logger
	now      Clock
	newRunID func() string

	mu     sync.RWMutex
	status RunStatus
}

type PipelineOption func(*Pipeline)

// WithRunIDGenerator fixa o gerador de run_id (uuid por padrão).
func WithRunIDGenerator(fn func() string) PipelineOption {
	return func(p *Pipeline) { p.newRunID = fn }
}

// WithSetup roda fn no estágio START, depois do registro de início. Conexões abertas
// ali (banco de leads, broker) falham como qualquer outro estágio: FAILURE, métrica e aviso.
func WithSetup(fn func(context.Context) error) PipelineOption {
	return func(p *Pipeline) { p.setup = fn }
}

func WithNotifier(n Notifier) PipelineOption {
	return func(p *Pipeline) { p.Notifier = n }
}

func WithMetrics(m MetricsRecorder) PipelineOption {
	return func(p *Pipeline) {
		if m != nil {
			p.Metrics = m
		}
	}
}

func NewPipeline(
	extract *ExtractLeadsUseCase,
	load *IncrementalLoadUseCase,
	backup *BackupDatabaseUseCase,
	validate *ValidateUseCase,
	runLog RunLogger,
	now Clock,
	logger *zap.Logger,
	opts ...PipelineOption,
) *Pipeline {
	p := &Pipeline{
		Extract:  extract,
		Load:     load,
		Backup:   backup,
		Validate: validate,
		Metrics:  noopMetrics{},
		journal:  journal{logger: runLog, now: now},
		logger:   logger,
		now:      now,
		newRunID: uuid.NewString,
		status:   RunStatus{State: StateIdle},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) Status() RunStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

func (p *Pipeline) setState(s State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status.State = s
}

// Run executa START → EXTRACT → LOAD → BACKUP → VALIDATE → SUCCESS.
// Qualquer falha vai para FAILURE, que registra o erro e o devolve como *StageError.
func (p *Pipeline) Run(ctx context.Context) error {
	startedAt := p.now()
	runID := p.newRunID()
	keys := storage.KeysFor(startedAt)
	ctx = WithRunID(ctx, runID)

	p.mu.Lock()
	p.status = RunStatus{RunID: runID, State: StateStart, StartedAt: startedAt}
	p.mu.Unlock()

	log := p.logger.With(zap.String("run_id", runID))
	log.Info("etl process started", zap.String("date", keys.Date))

	report := entity.RunReport{RunID: runID, StartedAt: startedAt}

	if err := p.journal.write(ctx, "ETL Start", entity.StatusInProgress, "Starting ETL process", "", nil); err != nil {
		return p.fail(ctx, log, StateStart, err, &report)
	}

	var leads []entity.Lead
	var stages []Stage
	if p.setup != nil {
		stages = append(stages, Stage{StateStart, p.setup})
	}
	stages = append(stages,
		Stage{StateExtract, func(ctx context.Context) (err error) {
			leads, err = p.Extract.Execute(ctx, keys.CRMBackup)
			report.Fetched = len(leads)
			return err
		}},
		Stage{StateLoad, func(ctx context.Context) (err error) {
			report.Inserted, err = p.Load.Execute(ctx, leads)
			return err
		}},
		Stage{StateBackup, func(ctx context.Context) (err error) {
			report.BackupRecords, err = p.Backup.Execute(ctx, keys.DatabaseBackup)
			return err
		}},
		Stage{StateValidate, func(ctx context.Context) error {
			res, err := p.Validate.Validate(ctx, keys)
			report.Discrepancies = len(res.Discrepancies)
			return err
		}},
	)

	for _, stage := range stages {
		p.setState(stage.State)
		log.Info("stage started", zap.String("stage", string(stage.State)))

		t0 := time.Now()
		err := stage.Fn(ctx)
		p.Metrics.ObserveStage(string(stage.State), err != nil, time.Since(t0))

		if err != nil {
			return p.fail(ctx, log, stage.State, err, &report)
		}
	}

	if err := p.journal.write(ctx, "ETL Success", entity.StatusSuccess, "ETL process completed successfully", "", nil); err != nil {
		return p.fail(ctx, log, StateSuccess, err, &report)
	}

	finishedAt := p.now()
	p.mu.Lock()
	p.status.State = StateSuccess
	p.status.FinishedAt = finishedAt
	p.mu.Unlock()

	p.Metrics.RecordRun(false, finishedAt)
	log.Info("etl process completed successfully",
		zap.Int("fetched", report.Fetched),
		zap.Int("inserted", report.Inserted),
		zap.Int("backup_records", report.BackupRecords),
		zap.Int("discrepancies", report.Discrepancies),
	)

	report.Outcome = entity.OutcomeSuccess
	report.Message = "ETL process completed successfully"
	report.FinishedAt = finishedAt
	p.notify(ctx, log, report)

	return nil
}

// finalizeTimeout limita a gravação do FAILURE e o envio das notificações.
const finalizeTimeout = 30 * time.Second

// detach mantém os valores de ctx (run_id) mas ignora o cancelamento do run.
func detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
}

// fail registra o ETL Failure. Se o próprio registro falhar, os dois erros voltam
// juntos, com a falha do estágio primeiro.
func (p *Pipeline) fail(ctx context.Context, log *zap.Logger, state State, cause error, report *entity.RunReport) error {
	ctx, cancel := detach(ctx)
	defer cancel()

	err := error(&StageError{Stage: state, Err: cause})
	finishedAt := p.now()

	p.mu.Lock()
	p.status.State = StateFailure
	p.status.FinishedAt = finishedAt
	p.status.Error = cause.Error()
	p.mu.Unlock()

	log.Error("etl process failed", zap.String("stage", string(state)), zap.Error(cause))

	if logErr := p.journal.write(ctx, "ETL Failure", entity.StatusError, "ETL process failed", cause.Error(), nil); logErr != nil {
		err = errors.Join(err, logErr)
	}

	p.Metrics.RecordRun(true, finishedAt)

	report.Outcome = entity.OutcomeFailure
	report.Message = "ETL process failed"
	report.Error = cause.Error()
	report.FailedStage = string(state)
	report.FinishedAt = finishedAt
	p.notify(ctx, log, *report)

	return err
}

// notify nunca muda o resultado do run: falhas só vão para o log.
func (p *Pipeline) notify(ctx context.Context, log *zap.Logger, report entity.RunReport) {
	if p.Notifier == nil {
		return
	}

	ctx, cancel := detach(ctx)
	defer cancel()

	if err := p.Notifier.Notify(ctx, report); err != nil {
		log.Error("failed to send notification", zap.Error(err))
		return
	}
	log.Info("notification sent", zap.String("outcome", string(report.Outcome)))
}
