// Package fetch orchestrates paginated listing of the user's rated
// videos. It unifies two structurally different remote listing
// mechanisms behind one page-oriented operation: the direct rating
// listing, which returns full records, and the playlist indirection,
// which returns ids that a second call resolves to metadata.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ratewatch/rated-history-go/internal/metrics"
	"github.com/ratewatch/rated-history-go/internal/models"
	"github.com/ratewatch/rated-history-go/internal/quota"
	"github.com/ratewatch/rated-history-go/internal/token"
	ytclient "github.com/ratewatch/rated-history-go/internal/youtube"
	"github.com/ratewatch/rated-history-go/pkg/logger"
)

// ErrSessionExpired signals that the remote service rejected the
// credential. The orchestrator has already invalidated the token store
// by the time this is returned; the session must drop to
// unauthenticated.
var ErrSessionExpired = errors.New("fetch: session expired")

// Lister is the remote listing surface the orchestrator consumes.
// *youtube.Client implements it.
type Lister interface {
	ListRated(ctx context.Context, rating, cursor string) (*models.Page, error)
	ListPlaylistItems(ctx context.Context, playlistID, cursor string) (*models.IDPage, error)
	VideosByIDs(ctx context.Context, ids []string) ([]*models.VideoRecord, error)
}

// TokenInvalidator is the slice of the token store the orchestrator
// needs: dropping a credential the service no longer accepts.
type TokenInvalidator interface {
	Clear(ctx context.Context) error
}

// Orchestrator issues paginated listing requests under the strategy the
// active mode selects, with a fixed per-request timeout.
type Orchestrator struct {
	lister          Lister
	tokens          TokenInvalidator
	quota           *quota.Manager
	timeout         time.Duration
	likesPlaylistID string
	log             *zap.Logger
}

// NewOrchestrator creates an Orchestrator. The quota manager may be nil.
func NewOrchestrator(lister Lister, tokens TokenInvalidator, qm *quota.Manager, timeout time.Duration, likesPlaylistID string) *Orchestrator {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if likesPlaylistID == "" {
		likesPlaylistID = "LL"
	}

	return &Orchestrator{
		lister:          lister,
		tokens:          tokens,
		quota:           qm,
		timeout:         timeout,
		likesPlaylistID: likesPlaylistID,
		log:             logger.Named("fetch"),
	}
}

// FetchPage fetches one listing page for the mode, starting from cursor
// (empty for the first page). On an unauthorized response the stored
// credential is invalidated and ErrSessionExpired returned; any other
// failure, timeout included, is reported without touching any state.
func (o *Orchestrator) FetchPage(ctx context.Context, mode models.RatingMode, cursor string) (*models.Page, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()

	var (
		page *models.Page
		err  error
	)
	switch mode {
	case models.ModeLikes:
		page, err = o.fetchIndirect(ctx, cursor)
	default:
		page, err = o.fetchDirect(ctx, cursor)
	}

	metrics.FetchDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		return nil, o.mapError(ctx, mode, cursor, err)
	}

	metrics.PagesFetched.WithLabelValues(string(mode), strategyName(mode)).Inc()
	o.log.Debug("page fetched",
		zap.String("mode", string(mode)),
		zap.Int("items", len(page.Items)),
		zap.Bool("has_more", page.NextCursor != ""),
	)

	return page, nil
}

// fetchDirect runs the direct strategy: one call, full records.
func (o *Orchestrator) fetchDirect(ctx context.Context, cursor string) (*models.Page, error) {
	page, err := o.lister.ListRated(ctx, ytclient.RatingDislike, cursor)
	if err != nil {
		return nil, err
	}
	o.recordQuota(ctx, quota.CostListRated, "videos.list")

	return page, nil
}

// fetchIndirect runs the indirection strategy: resolve ids from the
// liked-videos playlist, then resolve metadata, then re-project the
// metadata back into the ids' playlist order. The metadata response is
// unordered and omits videos the service can no longer describe; those
// ids become bare records the classifier will report as unavailable.
func (o *Orchestrator) fetchIndirect(ctx context.Context, cursor string) (*models.Page, error) {
	idPage, err := o.lister.ListPlaylistItems(ctx, o.likesPlaylistID, cursor)
	if err != nil {
		return nil, err
	}
	o.recordQuota(ctx, quota.CostListPlaylistItems, "playlistItems.list")

	page := &models.Page{
		NextCursor:  idPage.NextCursor,
		TotalApprox: idPage.TotalApprox,
	}
	if len(idPage.IDs) == 0 {
		return page, nil
	}

	records, err := o.lister.VideosByIDs(ctx, idPage.IDs)
	if err != nil {
		return nil, err
	}
	o.recordQuota(ctx, quota.CostVideosByIDs, "videos.list")

	byID := make(map[string]*models.VideoRecord, len(records))
	for _, rec := range records {
		byID[rec.ID] = rec
	}

	page.Items = make([]*models.VideoRecord, 0, len(idPage.IDs))
	for _, id := range idPage.IDs {
		if rec, ok := byID[id]; ok {
			page.Items = append(page.Items, rec)
			continue
		}
		page.Items = append(page.Items, &models.VideoRecord{ID: id})
	}

	return page, nil
}

func (o *Orchestrator) mapError(ctx context.Context, mode models.RatingMode, cursor string, err error) error {
	switch {
	case ytclient.IsUnauthorized(err) || errors.Is(err, token.ErrNoCredential):
		metrics.FetchErrors.WithLabelValues("unauthorized").Inc()
		o.log.Warn("credential rejected, invalidating token store", zap.Error(err))
		if clearErr := o.tokens.Clear(context.WithoutCancel(ctx)); clearErr != nil {
			o.log.Error("failed to clear rejected credential", zap.Error(clearErr))
		}
		return fmt.Errorf("%w: %v", ErrSessionExpired, err)

	case errors.Is(err, context.DeadlineExceeded):
		metrics.FetchErrors.WithLabelValues("timeout").Inc()
		return fmt.Errorf("request timed out after %s: %w", o.timeout, err)

	default:
		metrics.FetchErrors.WithLabelValues("remote").Inc()
		return fmt.Errorf("fetch page (mode=%s, cursor=%q): %w", mode, cursor, err)
	}
}

func (o *Orchestrator) recordQuota(ctx context.Context, cost int, operation string) {
	if o.quota != nil {
		o.quota.Record(ctx, cost, operation)
	}
}

func strategyName(mode models.RatingMode) string {
	if mode == models.ModeLikes {
		return "indirect"
	}
	return "direct"
}

// MergeByID appends to existing only those incoming records whose id is
// not already present, preserving arrival order. Re-delivery of a page
// therefore cannot duplicate the collection.
func MergeByID(existing, incoming []*models.VideoRecord) []*models.VideoRecord {
	seen := make(map[string]struct{}, len(existing))
	for _, rec := range existing {
		seen[rec.ID] = struct{}{}
	}

	merged := existing
	for _, rec := range incoming {
		if _, ok := seen[rec.ID]; ok {
			continue
		}
		seen[rec.ID] = struct{}{}
		merged = append(merged, rec)
	}

	return merged
}
