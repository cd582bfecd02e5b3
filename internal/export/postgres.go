// internal/export/postgres.go
package export

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"niche-finder/internal/common/errors"
	"niche-finder/internal/models"
)

// PostgresSink inserts every record of a run inside one transaction.
// Rows are not deduplicated; each run appends its own rows.
type PostgresSink struct {
	db    *sql.DB
	table string
	now   func() time.Time
}

func NewPostgresSink(db *sql.DB, table string) *PostgresSink {
	return &PostgresSink{db: db, table: table, now: time.Now}
}

func (s *PostgresSink) Name() string { return "postgres" }

// EnsureSchema creates the target table when missing.
func (s *PostgresSink) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id BIGSERIAL PRIMARY KEY,
	run_id UUID NOT NULL,
	place_id TEXT NOT NULL,
	name TEXT NOT NULL,
	phone TEXT,
	website TEXT,
	address TEXT,
	industry_tags TEXT[] NOT NULL DEFAULT '{}',
	business_status TEXT,
	discovered_at TIMESTAMPTZ NOT NULL
)`, pq.QuoteIdentifier(s.table)))
	if err != nil {
		return errors.NewSinkWriteFailedError(s.Name(), fmt.Errorf("ensure schema: %w", err))
	}
	return nil
}

func (s *PostgresSink) Write(ctx context.Context, runID string, records []models.BusinessRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewSinkWriteFailedError(s.Name(), fmt.Errorf("begin: %w", err))
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %s
	(run_id, place_id, name, phone, website, address, industry_tags, business_status, discovered_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`, pq.QuoteIdentifier(s.table)))
	if err != nil {
		return errors.NewSinkWriteFailedError(s.Name(), fmt.Errorf("prepare: %w", err))
	}
	defer stmt.Close()

	discoveredAt := s.now().UTC()
	for _, r := range records {
		if _, err := stmt.ExecContext(ctx,
			runID, r.PlaceID, r.Name, r.Phone, r.Website, r.Address,
			pq.Array(r.IndustryTags), r.BusinessStatus, discoveredAt,
		); err != nil {
			return errors.NewSinkWriteFailedError(s.Name(), fmt.Errorf("insert %s: %w", r.PlaceID, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewSinkWriteFailedError(s.Name(), fmt.Errorf("commit: %w", err))
	}
	return nil
}
