package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ratewatch/rated-history-go/internal/db"
)

// QuotaRepository tracks daily API quota unit usage.
type QuotaRepository interface {
	// Increment adds cost units to today's usage, creating the row on
	// first use of the day.
	Increment(ctx context.Context, cost int, operation string) error

	// UsedToday returns the units consumed today, zero when no row exists.
	UsedToday(ctx context.Context) (int, error)
}

type quotaRepository struct {
	db db.DBTX
}

// NewQuotaRepository creates a QuotaRepository backed by Postgres.
func NewQuotaRepository(dbtx db.DBTX) QuotaRepository {
	return &quotaRepository{db: dbtx}
}

func (r *quotaRepository) Increment(ctx context.Context, cost int, operation string) error {
	query := `
		INSERT INTO api_quota_usage (usage_date, units_used, last_operation, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (usage_date) DO UPDATE
		SET units_used = api_quota_usage.units_used + EXCLUDED.units_used,
		    last_operation = EXCLUDED.last_operation,
		    updated_at = now()
	`

	if _, err := r.db.Exec(ctx, query, today(), cost, operation); err != nil {
		return db.WrapError(err, "increment quota")
	}

	return nil
}

func (r *quotaRepository) UsedToday(ctx context.Context) (int, error) {
	query := `SELECT units_used FROM api_quota_usage WHERE usage_date = $1`

	var used int
	err := r.db.QueryRow(ctx, query, today()).Scan(&used)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, db.WrapError(err, "get quota usage")
	}

	return used, nil
}

func today() time.Time {
	return time.Now().UTC().Truncate(24 * time.Hour)
}
