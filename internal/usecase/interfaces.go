package usecase

import (
	"context"
	"time"

	"github.com/xavierca1/zoho-lead-sync/internal/entity"
)

// LeadSource é a origem dos leads (o client do Zoho CRM).
type LeadSource interface {
	FetchLeads(ctx context.Context, maxRecords int) ([]entity.Lead, error)
}

// RunLogger grava um registro de estágio (runlog.Logger).
type RunLogger interface {
	Log(ctx context.Context, entry entity.LogEntry) error
}

// Notifier recebe o resultado do run depois que ele termina.
type Notifier interface {
	Notify(ctx context.Context, report entity.RunReport) error
}

type MetricsRecorder interface {
	AddFetched(n int)
	AddInserted(n int)
	SetBackupRecords(n int)
	AddDiscrepancies(kind string, n int)
	ObserveStage(stage string, failed bool, d time.Duration)
	RecordRun(failed bool, at time.Time)
}

// Clock existe para fixar o horário nos testes.
type Clock func() time.Time

type noopMetrics struct{}

func (noopMetrics) AddFetched(int)                           {}
func (noopMetrics) AddInserted(int)                          {}
func (noopMetrics) SetBackupRecords(int)                     {}
func (noopMetrics) AddDiscrepancies(string, int)             {}
func (noopMetrics) ObserveStage(string, bool, time.Duration) {}
func (noopMetrics) RecordRun(bool, time.Time)                {}
