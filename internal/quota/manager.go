// Package quota tracks daily API quota unit consumption. The remote
// service budgets requests in units per day; the manager records what
// each listing call cost and warns when usage approaches the limit.
// It is advisory only and never blocks a user-initiated fetch.
package quota

import (
	"context"

	"go.uber.org/zap"

	"github.com/ratewatch/rated-history-go/internal/db/repository"
	"github.com/ratewatch/rated-history-go/internal/metrics"
	"github.com/ratewatch/rated-history-go/pkg/logger"
)

// Unit costs per operation. Listing calls cost one unit each.
const (
	CostListRated         = 1
	CostListPlaylistItems = 1
	CostVideosByIDs       = 1
)

// Manager records quota usage against a daily limit.
type Manager struct {
	repo       repository.QuotaRepository
	dailyLimit int
	warnPct    int
	log        *zap.Logger
}

// NewManager creates a Manager. Non-positive or out-of-range arguments
// fall back to the service defaults (10000 units, warn at 90%).
func NewManager(repo repository.QuotaRepository, dailyLimit, warnPct int) *Manager {
	if dailyLimit <= 0 {
		dailyLimit = 10000
	}
	if warnPct <= 0 || warnPct > 100 {
		warnPct = 90
	}

	return &Manager{
		repo:       repo,
		dailyLimit: dailyLimit,
		warnPct:    warnPct,
		log:        logger.Named("quota"),
	}
}

// Record books the cost of one remote call. Accounting failures are
// logged, never propagated: a fetch must not fail because bookkeeping
// did.
func (m *Manager) Record(ctx context.Context, cost int, operation string) {
	metrics.QuotaUnitsUsed.Add(float64(cost))

	if err := m.repo.Increment(ctx, cost, operation); err != nil {
		m.log.Warn("failed to record quota usage", zap.Error(err), zap.String("operation", operation))
		return
	}

	used, err := m.repo.UsedToday(ctx)
	if err != nil {
		return
	}

	threshold := (m.dailyLimit * m.warnPct) / 100
	if used >= threshold {
		m.log.Warn("approaching daily quota limit",
			zap.Int("used", used),
			zap.Int("daily_limit", m.dailyLimit),
		)
	}
}

// UsedToday returns today's recorded unit usage.
func (m *Manager) UsedToday(ctx context.Context) (int, error) {
	return m.repo.UsedToday(ctx)
}
