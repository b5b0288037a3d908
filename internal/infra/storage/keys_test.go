package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeysFor(t *testing.T) {
	keys := KeysFor(time.Date(2024, time.March, 7, 23, 59, 0, 0, time.UTC))

	assert.Equal(t, "07-03-2024", keys.Date)
	assert.Equal(t, "count/count-discrepancies-07-03-2024.json", keys.CountDiscrepancies)
	assert.Equal(t, "data_discrepancies/discrepancies-07-03-2024.json", keys.DataDiscrepancies)
	assert.Equal(t, "zoho-backup/leads-07-03-2024.json", keys.CRMBackup)
	assert.Equal(t, "mongo-backup/mongo-leads-backup-07-03-2024.json", keys.DatabaseBackup)
}

func TestLogKey(t *testing.T) {
	at := time.Date(2024, time.December, 25, 8, 0, 0, 0, time.UTC)

	assert.Equal(t, "logs/25-12-2024/success_Starting_ETL_process.json", LogKey(at, false, "Starting_ETL_process"))
	assert.Equal(t, "logs/25-12-2024/error_boom.json", LogKey(at, true, "boom"))
}
