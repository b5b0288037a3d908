package entity

import (
	"fmt"
	"strings"
	"time"
)

// NotificationSubject é o assunto fixo das notificações de fim de run.
const NotificationSubject = "ETL Process Completed"

type RunOutcome string

const (
	OutcomeSuccess RunOutcome = "SUCCESS"
	OutcomeFailure RunOutcome = "FAILURE"
)

// RunReport resume um run para os notificadores.
type RunReport struct {
	RunID         string     `json:"run_id"`
	Outcome       RunOutcome `json:"outcome"`
	Message       string     `json:"message"`
	Error         string     `json:"error,omitempty"`
	FailedStage   string     `json:"failed_stage,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    time.Time  `json:"finished_at"`
	Fetched       int        `json:"fetched"`
	Inserted      int        `json:"inserted"`
	BackupRecords int        `json:"backup_records"`
	Discrepancies int        `json:"discrepancies"`
}

func (r RunReport) Failed() bool {
	return r.Outcome == OutcomeFailure
}

// Text é o corpo em texto puro usado no SNS e no e-mail.
func (r RunReport) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", r.Message)
	fmt.Fprintf(&b, "run_id: %s\n", r.RunID)
	fmt.Fprintf(&b, "outcome: %s\n", r.Outcome)
	if r.FailedStage != "" {
		fmt.Fprintf(&b, "failed_stage: %s\n", r.FailedStage)
	}
	if r.Error != "" {
		fmt.Fprintf(&b, "error: %s\n", r.Error)
	}
	fmt.Fprintf(&b, "fetched: %d\ninserted: %d\nbackup_records: %d\ndiscrepancies: %d\n",
		r.Fetched, r.Inserted, r.BackupRecords, r.Discrepancies)
	fmt.Fprintf(&b, "duration: %s\n", r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	return b.String()
}
