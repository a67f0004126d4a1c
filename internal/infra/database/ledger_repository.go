package database

import (
	"context"
	"database/sql"
	"log"
)

// LedgerRepository persists the deletion ledger in Postgres. The table is
// insert-only; nothing in the codebase deletes from it.
type LedgerRepository struct {
	DB *sql.DB
}

func NewLedgerRepository(db *sql.DB) *LedgerRepository {
	return &LedgerRepository{DB: db}
}

func (r *LedgerRepository) Append(ctx context.Context, id string) error {
	query := `
		INSERT INTO deleted_leads (lead_id, deleted_at)
		VALUES ($1, NOW())
		ON CONFLICT (lead_id) DO NOTHING
	`

	if _, err := r.DB.ExecContext(ctx, query, id); err != nil {
		log.Printf("ledger: append of %s failed: %v", id, err)
		return err
	}
	return nil
}

func (r *LedgerRepository) List(ctx context.Context) ([]string, error) {
	query := `SELECT lead_id FROM deleted_leads ORDER BY deleted_at, lead_id`

	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
