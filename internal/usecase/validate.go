package usecase

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"reflect"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/xavierca1/zoho-lead-sync/internal/entity"
	"github.com/xavierca1/zoho-lead-sync/internal/infra/storage"
)

const StageValidation = "Validation"

// ValidationResult é o que a reconciliação encontrou. Divergências de contagem e de
// checksum não interrompem a comparação campo a campo.
type ValidationResult struct {
	CountA        int
	CountB        int
	ChecksumA     string
	ChecksumB     string
	Discrepancies []entity.Discrepancy
}

func (r ValidationResult) CountMatch() bool {
	return r.CountA == r.CountB
}

func (r ValidationResult) ChecksumMatch() bool {
	return r.ChecksumA == r.ChecksumB
}

type ValidateUseCase struct {
	Store   storage.ObjectStore
	Target  entity.Source
	Metrics MetricsRecorder

	journal journal
	logger  *zap.Logger
}

// NewValidateUseCase compara o snapshot do CRM com o backup de target (Mongo ou Postgres).
func NewValidateUseCase(
	store storage.ObjectStore,
	target entity.Source,
	runLog RunLogger,
	metrics MetricsRecorder,
	now Clock,
	logger *zap.Logger,
) *ValidateUseCase {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &ValidateUseCase{
		Store:   store,
		Target:  target,
		Metrics: metrics,
		journal: journal{logger: runLog, now: now},
		logger:  logger,
	}
}

// Validate reconcilia os dois snapshots do run. Erros inesperados são registrados e devolvidos.
func (uc *ValidateUseCase) Validate(ctx context.Context, keys storage.Keys) (ValidationResult, error) {
	res, err := uc.CompareBackups(ctx, keys)
	if err != nil {
		return res, uc.fail(ctx, "Exception during validation", err)
	}
	return res, nil
}

// CompareBackups lê os snapshots de keys.CRMBackup e keys.DatabaseBackup e os compara.
func (uc *ValidateUseCase) CompareBackups(ctx context.Context, keys storage.Keys) (ValidationResult, error) {
	a, err := uc.loadSnapshot(ctx, entity.SourceCRM, keys.CRMBackup)
	if err != nil {
		return ValidationResult{}, uc.fail(ctx, "Exception during backup comparison", err)
	}
	b, err := uc.loadSnapshot(ctx, uc.Target, keys.DatabaseBackup)
	if err != nil {
		return ValidationResult{}, uc.fail(ctx, "Exception during backup comparison", err)
	}

	res, err := uc.CompareSnapshots(ctx, a, b, keys)
	if err != nil {
		return res, uc.fail(ctx, "Exception during backup comparison", err)
	}
	return res, nil
}

// CompareSnapshots faz as três checagens (contagem, checksum, campos) dirigidas por a.
func (uc *ValidateUseCase) CompareSnapshots(ctx context.Context, a, b entity.Snapshot, keys storage.Keys) (ValidationResult, error) {
	res := ValidationResult{CountA: a.Count(), CountB: b.Count()}
	countKeyA, countKeyB := a.Source.Name+"_count", b.Source.Name+"_count"
	md5KeyA, md5KeyB := a.Source.Name+"_md5", b.Source.Name+"_md5"

	uc.logger.Info("comparing snapshots",
		zap.String("source", a.Source.Name), zap.Int("source_count", res.CountA),
		zap.String("target", b.Source.Name), zap.Int("target_count", res.CountB),
	)

	// 1. contagem
	if !res.CountMatch() {
		counts := map[string]any{countKeyA: res.CountA, countKeyB: res.CountB}
		uc.Metrics.AddDiscrepancies("count", 1)

		if err := storage.PutJSON(ctx, uc.Store, keys.CountDiscrepancies, counts); err != nil {
			return res, eris.Wrap(err, "failed to save count discrepancies")
		}
		if err := uc.journal.write(ctx, StageValidation, entity.StatusError, "Record count mismatch", "", counts); err != nil {
			return res, err
		}
	}

	// 2. checksum
	var err error
	if res.ChecksumA, err = Checksum(a.Leads); err != nil {
		return res, err
	}
	if res.ChecksumB, err = Checksum(b.Leads); err != nil {
		return res, err
	}

	sums := map[string]any{md5KeyA: res.ChecksumA, md5KeyB: res.ChecksumB}
	if res.ChecksumMatch() {
		err = uc.journal.write(ctx, StageValidation, entity.StatusSuccess, "Data integrity match", "", sums)
	} else {
		uc.Metrics.AddDiscrepancies("checksum", 1)
		err = uc.journal.write(ctx, StageValidation, entity.StatusError, "Data integrity mismatch", "", sums)
	}
	if err != nil {
		return res, err
	}

	// 3. campo a campo
	if res.Discrepancies, err = DiffSnapshots(a, b); err != nil {
		return res, err
	}

	if len(res.Discrepancies) == 0 {
		uc.logger.Info("snapshots match", zap.Int("records", res.CountA))
		return res, uc.journal.write(ctx, StageValidation, entity.StatusSuccess, "Backup data match", "", nil)
	}

	for _, d := range res.Discrepancies {
		uc.Metrics.AddDiscrepancies(string(d.Kind), 1)
	}
	uc.logger.Warn("discrepancies found", zap.Int("count", len(res.Discrepancies)), zap.String("key", keys.DataDiscrepancies))

	if err := storage.PutJSON(ctx, uc.Store, keys.DataDiscrepancies, res.Discrepancies); err != nil {
		return res, eris.Wrap(err, "failed to save data discrepancies")
	}
	return res, uc.journal.write(ctx, StageValidation, entity.StatusError, "Data mismatch found", "",
		map[string]any{"discrepancies": res.Discrepancies})
}

func (uc *ValidateUseCase) loadSnapshot(ctx context.Context, source entity.Source, key string) (entity.Snapshot, error) {
	var leads []entity.Lead
	if err := storage.GetJSON(ctx, uc.Store, key, &leads); err != nil {
		return entity.Snapshot{}, eris.Wrapf(err, "failed to load %s snapshot", source.Title)
	}
	return entity.Snapshot{Source: source, Key: key, Leads: leads}, nil
}

func (uc *ValidateUseCase) fail(ctx context.Context, message string, err error) error {
	uc.logger.Error(message, zap.Error(err))
	if logErr := uc.journal.write(ctx, StageValidation, entity.StatusError, message, err.Error(), nil); logErr != nil {
		return errors.Join(err, logErr)
	}
	return err
}

// Checksum é o MD5 do array serializado com as chaves dos mapas em ordem.
// A ordem dos registros conta: o mesmo conjunto em outra ordem gera outro digest.
func Checksum(leads []entity.Lead) (string, error) {
	if leads == nil {
		leads = []entity.Lead{}
	}
	body, err := json.Marshal(leads)
	if err != nil {
		return "", eris.Wrap(err, "failed to encode snapshot for checksum")
	}
	sum := md5.Sum(body)
	return hex.EncodeToString(sum[:]), nil
}

// DiffSnapshots compara cada registro de a com o registro de mesmo Email normalizado em b.
// Registros que só existem em b não são inspecionados.
func DiffSnapshots(a, b entity.Snapshot) ([]entity.Discrepancy, error) {
	indexB := make(map[string]entity.Lead, len(b.Leads))
	for _, lead := range b.Leads {
		indexB[lead.NormalizedEmail()] = lead
	}

	// e-mails repetidos em a: vale o último registro, na posição do primeiro
	var order []string
	indexA := make(map[string]entity.Lead, len(a.Leads))
	for _, lead := range a.Leads {
		email := lead.NormalizedEmail()
		if _, ok := indexA[email]; !ok {
			order = append(order, email)
		}
		indexA[email] = lead
	}

	discrepancies := make([]entity.Discrepancy, 0)
	for _, email := range order {
		recordA := indexA[email]

		recordB, ok := indexB[email]
		if !ok {
			d, err := entity.NewMissingDiscrepancy(email, a.Source, b.Source, recordA)
			if err != nil {
				return nil, err
			}
			discrepancies = append(discrepancies, d)
			continue
		}

		for _, field := range entity.RequiredFields {
			valueA, valueB := recordA.Field(field), recordB.Field(field)
			if reflect.DeepEqual(valueA, valueB) {
				continue
			}
			d, err := entity.NewFieldDiscrepancy(email, field, a.Source, b.Source, valueA, valueB)
			if err != nil {
				return nil, err
			}
			discrepancies = append(discrepancies, d)
		}
	}
	return discrepancies, nil
}
