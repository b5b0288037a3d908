package storage

import (
	"fmt"
	"time"
)

// DateLayout é o %d-%m-%Y das chaves.
const DateLayout = "02-01-2006"

// Keys são as chaves de um run, calculadas uma única vez no início.
type Keys struct {
	Date               string
	CountDiscrepancies string
	DataDiscrepancies  string
	CRMBackup          string
	DatabaseBackup     string
}

func KeysFor(t time.Time) Keys {
	date := t.Format(DateLayout)
	return Keys{
		Date:               date,
		CountDiscrepancies: fmt.Sprintf("count/count-discrepancies-%s.json", date),
		DataDiscrepancies:  fmt.Sprintf("data_discrepancies/discrepancies-%s.json", date),
		CRMBackup:          fmt.Sprintf("zoho-backup/leads-%s.json", date),
		DatabaseBackup:     fmt.Sprintf("mongo-backup/mongo-leads-backup-%s.json", date),
	}
}

// LogKey monta logs/<data>/{success|error}_<slug>.json.
func LogKey(t time.Time, isError bool, slug string) string {
	prefix := "success"
	if isError {
		prefix = "error"
	}
	return fmt.Sprintf("logs/%s/%s_%s.json", t.Format(DateLayout), prefix, slug)
}
