package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/harborpoint/leadsync/internal/entity"
)

// ArchiveRepository reads the archived-leads table kept for exclusion-index
// rebuilds. Rows mirror what the remote store held at archive time.
type ArchiveRepository struct {
	DB *sql.DB
}

func NewArchiveRepository(db *sql.DB) *ArchiveRepository {
	return &ArchiveRepository{DB: db}
}

func (r *ArchiveRepository) ListArchived(ctx context.Context) ([]*entity.Lead, error) {
	query := `
		SELECT lead_id, name, phone, email, stage, stage_timestamps, archived_at
		FROM archived_leads
		ORDER BY archived_at, lead_id
	`

	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var leads []*entity.Lead
	for rows.Next() {
		var (
			lead       entity.Lead
			name       sql.NullString
			phone      sql.NullString
			email      sql.NullString
			stage      sql.NullString
			stampsJSON []byte
			archivedAt time.Time
		)
		if err := rows.Scan(&lead.ID, &name, &phone, &email, &stage, &stampsJSON, &archivedAt); err != nil {
			return nil, err
		}
		lead.Name = name.String
		lead.Phone = phone.String
		lead.Email = email.String
		lead.Stage = entity.Stage(stage.String)
		lead.Archived = true
		lead.UpdatedAt = archivedAt
		if len(stampsJSON) > 0 {
			if err := json.Unmarshal(stampsJSON, &lead.StageTimestamps); err != nil {
				// A corrupt stamp map does not invalidate the identity row.
				lead.StageTimestamps = nil
			}
		}
		leads = append(leads, &lead)
	}
	return leads, rows.Err()
}

// RecordArchive mirrors an archive mutation into the table so rebuilds keep
// excluding the identity even after the cache snapshot is lost.
func (r *ArchiveRepository) RecordArchive(ctx context.Context, lead *entity.Lead) error {
	stamps, err := json.Marshal(lead.StageTimestamps)
	if err != nil {
		stamps = nil
	}

	query := `
		INSERT INTO archived_leads (lead_id, name, phone, email, stage, stage_timestamps, archived_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (lead_id) DO UPDATE SET
			name = EXCLUDED.name,
			phone = EXCLUDED.phone,
			email = EXCLUDED.email,
			stage = EXCLUDED.stage,
			stage_timestamps = EXCLUDED.stage_timestamps,
			archived_at = NOW()
	`

	_, err = r.DB.ExecContext(ctx, query,
		lead.ID,
		nullString(lead.Name),
		nullString(lead.Phone),
		nullString(lead.Email),
		nullString(string(lead.Stage)),
		stamps,
	)
	return err
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
