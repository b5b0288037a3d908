package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"
	"github.com/rotisserie/eris"

	"github.com/xavierca1/zoho-lead-sync/internal/entity"
)

// PostgresLeadRepository guarda cada lead como um documento JSONB.
// Serve de alternativa ao DocumentDB; a ordem de leitura é a de inserção.
type PostgresLeadRepository struct {
	DB    *sql.DB
	table string
}

func NewPostgresLeadRepository(ctx context.Context, db *sql.DB, table string) (*PostgresLeadRepository, error) {
	r := &PostgresLeadRepository{DB: db, table: table}

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id         BIGSERIAL PRIMARY KEY,
			document   JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, pq.QuoteIdentifier(table))

	if _, err := db.ExecContext(ctx, query); err != nil {
		return nil, eris.Wrapf(err, "failed to create table %s", table)
	}
	return r, nil
}

func (r *PostgresLeadRepository) FindAll(ctx context.Context) ([]entity.Lead, error) {
	query := fmt.Sprintf(`SELECT document FROM %s ORDER BY id`, pq.QuoteIdentifier(r.table))

	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "failed to query leads")
	}
	defer rows.Close()

	leads := make([]entity.Lead, 0)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, eris.Wrap(err, "failed to scan lead")
		}

		var lead entity.Lead
		if err := json.Unmarshal(raw, &lead); err != nil {
			return nil, eris.Wrap(err, "failed to decode lead document")
		}
		leads = append(leads, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "failed to iterate leads")
	}
	return leads, nil
}

// InsertMany usa COPY numa transação: ou entram todos, ou nenhum.
func (r *PostgresLeadRepository) InsertMany(ctx context.Context, leads []entity.Lead) (err error) {
	if len(leads) == 0 {
		return nil
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(r.table, "document"))
	if err != nil {
		return eris.Wrap(err, "failed to prepare copy")
	}

	for _, lead := range leads {
		doc, mErr := json.Marshal(lead)
		if mErr != nil {
			stmt.Close()
			return eris.Wrap(mErr, "failed to encode lead")
		}
		if _, err = stmt.ExecContext(ctx, string(doc)); err != nil {
			stmt.Close()
			return eris.Wrap(err, "failed to copy lead")
		}
	}

	if _, err = stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return eris.Wrap(err, "failed to flush copy")
	}
	if err = stmt.Close(); err != nil {
		return eris.Wrap(err, "failed to close copy")
	}

	if err = tx.Commit(); err != nil {
		return eris.Wrap(err, "failed to commit leads")
	}
	return nil
}

var _ entity.LeadRepositoryInterface = (*PostgresLeadRepository)(nil)
