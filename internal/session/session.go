// Package session is the top-level controller of the rated-history
// core. It owns the collection, routes user actions to the fetch
// orchestrator, token store and authorization provider, and rebuilds
// the view state after every change.
//
// Concurrency model: one mutex guards all session state. Network calls
// never run under the lock; their results are revalidated against an
// epoch counter that every collection reset increments, so a response
// arriving after a mode switch or sign-out is discarded instead of
// appended.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ratewatch/rated-history-go/internal/analytics"
	"github.com/ratewatch/rated-history-go/internal/authprov"
	"github.com/ratewatch/rated-history-go/internal/fetch"
	"github.com/ratewatch/rated-history-go/internal/metrics"
	"github.com/ratewatch/rated-history-go/internal/models"
	"github.com/ratewatch/rated-history-go/internal/notify"
	"github.com/ratewatch/rated-history-go/internal/view"
	"github.com/ratewatch/rated-history-go/pkg/logger"
)

// Phase is the session's lifecycle state.
type Phase string

// Session phases. Ready means initialized but unauthenticated; the
// authenticated substates track what kind of fetch is in flight.
const (
	PhaseUninitialized Phase = "uninitialized"
	PhaseReady         Phase = "ready"
	PhaseLoading       Phase = "loading"
	PhaseIdle          Phase = "idle"
	PhaseLoadingMore   Phase = "loading_more"
	PhaseFetchingAll   Phase = "fetching_all"
)

// Sentinel errors returned to callers of session operations.
var (
	ErrNotInitialized   = errors.New("session: not initialized")
	ErrNotAuthenticated = errors.New("session: not authenticated")
	ErrBusy             = errors.New("session: another fetch is in flight")
)

// Error kinds surfaced in the view-state error slot.
const (
	KindInitialization = "initialization_failure"
	KindAuthorization  = "authorization_failure"
	KindSessionExpired = "session_expired"
	KindFetch          = "fetch_failure"
	KindExport         = "clipboard_failure"
)

// DefaultSearchDebounce is how long a search-term edit rests before the
// filter re-runs.
const DefaultSearchDebounce = 300 * time.Millisecond

// PageFetcher is the orchestrator surface the session drives.
type PageFetcher interface {
	FetchPage(ctx context.Context, mode models.RatingMode, cursor string) (*models.Page, error)
}

// CredentialStore is the token-store surface the session drives.
type CredentialStore interface {
	Save(ctx context.Context, accessToken string, lifetime time.Duration) (*models.Credential, error)
	Load(ctx context.Context) (*models.Credential, error)
	Clear(ctx context.Context) error
}

// Session holds all mutable state of one logical rated-history session.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Session struct {
	id        uuid.UUID
	fetcher   PageFetcher
	tokens    CredentialStore
	auth      authprov.Authorizer
	publisher notify.Publisher
	debounce  time.Duration
	log       *zap.Logger

	mu            sync.Mutex
	phase         Phase
	mode          models.RatingMode
	sortKey       models.SortKey
	epoch         uint64
	collection    []*models.VideoRecord
	index         map[string]*models.VideoRecord
	cursor        string
	totalApprox   int64
	searchTerm    string
	activeTerm    string
	termGen       uint64
	debounceTimer *time.Timer
	showInsights  bool
	lastErr       *models.UserError
	projected     []*models.VideoRecord
	credential    *models.Credential
}

// New creates a Session in the uninitialized phase. The fetcher may be
// nil when the remote client failed to build; Initialize then surfaces
// an initialization failure instead of a working session.
func New(fetcher PageFetcher, tokens CredentialStore, auth authprov.Authorizer, publisher notify.Publisher, debounce time.Duration) *Session {
	if publisher == nil {
		publisher = notify.NoopPublisher{}
	}
	if debounce <= 0 {
		debounce = DefaultSearchDebounce
	}

	return &Session{
		id:        uuid.New(),
		fetcher:   fetcher,
		tokens:    tokens,
		auth:      auth,
		publisher: publisher,
		debounce:  debounce,
		log:       logger.Named("session"),
		phase:     PhaseUninitialized,
		mode:      models.ModeDislikes,
		sortKey:   models.SortRecency,
		index:     make(map[string]*models.VideoRecord),
	}
}

// Initialize moves the session to Ready. A persisted, still-fresh
// credential authenticates it immediately and loads the first page.
func (s *Session) Initialize(ctx context.Context) error {
	s.mu.Lock()
	if s.fetcher == nil || s.tokens == nil || s.auth == nil {
		s.setErrorLocked(KindInitialization, "A required subsystem failed to initialize.")
		s.mu.Unlock()
		return ErrNotInitialized
	}
	s.phase = PhaseReady
	s.mu.Unlock()

	cred, err := s.tokens.Load(ctx)
	if err != nil || cred == nil {
		return nil
	}

	s.mu.Lock()
	s.credential = cred
	s.phase = PhaseLoading
	epoch, mode := s.epoch, s.mode
	s.mu.Unlock()

	s.log.Info("restored persisted credential", zap.Time("expires_at", cred.ExpiresAt))
	return s.fetchInto(ctx, epoch, mode, "", PhaseLoading)
}

// SignIn starts a device authorization and completes it in the
// background: once the user approves, the credential is persisted, the
// collection reset and the first page loaded.
func (s *Session) SignIn(ctx context.Context) (*authprov.DeviceGrant, error) {
	s.mu.Lock()
	if s.phase == PhaseUninitialized {
		s.mu.Unlock()
		return nil, ErrNotInitialized
	}
	s.mu.Unlock()

	grant, err := s.auth.Begin(ctx)
	if err != nil {
		s.mu.Lock()
		s.setErrorLocked(KindAuthorization, "Authorization failed: "+err.Error())
		s.mu.Unlock()
		return nil, fmt.Errorf("%s: %w", KindAuthorization, err)
	}

	go s.completeSignIn(context.WithoutCancel(ctx), grant)

	return grant, nil
}

func (s *Session) completeSignIn(ctx context.Context, grant *authprov.DeviceGrant) {
	cred, err := s.auth.Wait(ctx, grant)
	if err != nil {
		s.mu.Lock()
		s.setErrorLocked(KindAuthorization, "Authorization failed: "+err.Error())
		s.mu.Unlock()
		return
	}

	if _, err := s.tokens.Save(ctx, cred.AccessToken, time.Until(cred.ExpiresAt)); err != nil {
		s.log.Error("failed to persist credential", zap.Error(err))
	}

	s.mu.Lock()
	s.credential = cred
	s.lastErr = nil
	s.resetLocked()
	s.phase = PhaseLoading
	epoch, mode := s.epoch, s.mode
	s.mu.Unlock()

	s.publish(notify.TypeSignedIn)
	_ = s.fetchInto(ctx, epoch, mode, "", PhaseLoading)
}

// SignOut clears the credential, the collection, the cursor and the
// search term, returning the session to Ready. The persisted credential
// is removed and revoked at the provider (best effort).
func (s *Session) SignOut(ctx context.Context) error {
	s.mu.Lock()
	if s.phase == PhaseUninitialized {
		s.mu.Unlock()
		return ErrNotInitialized
	}
	cred := s.credential
	s.credential = nil
	s.resetLocked()
	s.searchTerm = ""
	s.activeTerm = ""
	s.termGen++
	if s.debounceTimer != nil {
		s.debounceTimer.Stop()
		s.debounceTimer = nil
	}
	s.lastErr = nil
	s.phase = PhaseReady
	s.mu.Unlock()

	if err := s.tokens.Clear(ctx); err != nil {
		s.log.Warn("failed to clear persisted credential", zap.Error(err))
	}
	if cred != nil {
		if err := s.auth.Revoke(ctx, cred.AccessToken); err != nil {
			s.log.Warn("failed to revoke credential", zap.Error(err))
		}
	}

	s.publish(notify.TypeSignedOut)
	return nil
}

// SetMode switches the active listing mode. For an authenticated
// session the collection, cursor and totals are reset and the first
// page of the new mode fetched; any in-flight fetch-all loop observes
// the epoch bump and stops silently.
func (s *Session) SetMode(ctx context.Context, mode models.RatingMode) error {
	if !mode.Valid() {
		return fmt.Errorf("invalid mode %q", mode)
	}

	s.mu.Lock()
	if mode == s.mode {
		s.mu.Unlock()
		return nil
	}
	s.mode = mode
	if s.credential == nil {
		s.mu.Unlock()
		return nil
	}
	s.resetLocked()
	s.lastErr = nil
	s.phase = PhaseLoading
	epoch := s.epoch
	s.mu.Unlock()

	s.publish(notify.TypeCollectionReset)
	return s.fetchInto(ctx, epoch, mode, "", PhaseLoading)
}

// LoadMore fetches the next page. Suppressed without error when no
// cursor remains or a search term is active (infinite scroll is
// disabled while filtering).
func (s *Session) LoadMore(ctx context.Context) error {
	s.mu.Lock()
	if s.credential == nil {
		s.mu.Unlock()
		return ErrNotAuthenticated
	}
	if s.phase != PhaseIdle {
		s.mu.Unlock()
		return ErrBusy
	}
	if s.cursor == "" || s.activeTerm != "" {
		s.mu.Unlock()
		return nil
	}
	s.lastErr = nil
	s.phase = PhaseLoadingMore
	epoch, mode, cursor := s.epoch, s.mode, s.cursor
	s.mu.Unlock()

	return s.fetchInto(ctx, epoch, mode, cursor, PhaseLoadingMore)
}

// LoadAll repeatedly fetches pages until the cursor chain is exhausted
// or an error occurs. The loop checks the epoch before every
// continuation and stops silently once a mode switch or sign-out has
// invalidated it. Completion fires the fetch-all-completed event
// exactly once.
func (s *Session) LoadAll(ctx context.Context) error {
	s.mu.Lock()
	if s.credential == nil {
		s.mu.Unlock()
		return ErrNotAuthenticated
	}
	if s.phase != PhaseIdle {
		s.mu.Unlock()
		return ErrBusy
	}
	if s.cursor == "" {
		s.mu.Unlock()
		return nil
	}
	s.lastErr = nil
	s.phase = PhaseFetchingAll
	epoch, mode, cursor := s.epoch, s.mode, s.cursor
	s.mu.Unlock()

	for {
		if err := s.fetchInto(ctx, epoch, mode, cursor, PhaseFetchingAll); err != nil {
			return err
		}

		s.mu.Lock()
		if s.epoch != epoch {
			// A reset happened mid-loop; its page was discarded and
			// this loop is over.
			s.mu.Unlock()
			return nil
		}
		cursor = s.cursor
		done := cursor == ""
		if done {
			s.phase = PhaseIdle
		} else {
			s.phase = PhaseFetchingAll
		}
		s.mu.Unlock()

		if done {
			s.publish(notify.TypeFetchAllCompleted)
			return nil
		}
	}
}

// fetchInto fetches one page and merges it if the epoch is still
// current, restoring the session to Idle from the given in-flight
// phase. Failures map per the error taxonomy: an expired session drops
// to Ready, anything else leaves collection and cursor untouched.
func (s *Session) fetchInto(ctx context.Context, epoch uint64, mode models.RatingMode, cursor string, from Phase) error {
	page, err := s.fetcher.FetchPage(ctx, mode, cursor)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.epoch != epoch {
		// Stale response after a reset: discard, whatever it was.
		return nil
	}

	if err != nil {
		if errors.Is(err, fetch.ErrSessionExpired) {
			s.credential = nil
			s.resetLocked()
			s.phase = PhaseReady
			s.setErrorLocked(KindSessionExpired, "Your session has expired. Please sign in again.")
		} else {
			s.setErrorLocked(KindFetch, "Failed to fetch videos: "+err.Error())
			if s.phase == from {
				s.phase = PhaseIdle
			}
		}
		return err
	}

	s.collection = fetch.MergeByID(s.collection, page.Items)
	for _, rec := range page.Items {
		if _, ok := s.index[rec.ID]; !ok {
			s.index[rec.ID] = rec
		}
	}
	s.cursor = page.NextCursor
	s.totalApprox = page.TotalApprox
	if s.phase == from && from != PhaseFetchingAll {
		s.phase = PhaseIdle
	}
	s.recomputeLocked()
	metrics.CollectionSize.Set(float64(len(s.collection)))

	go s.publish(notify.TypePageAppended)
	return nil
}

// SetSearchTerm records the term immediately and applies it to the
// filter after the debounce delay. A newer edit supersedes a pending
// one.
func (s *Session) SetSearchTerm(term string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.searchTerm = term
	s.termGen++
	gen := s.termGen

	if s.debounceTimer != nil {
		s.debounceTimer.Stop()
	}
	s.debounceTimer = time.AfterFunc(s.debounce, func() {
		s.applyTerm(gen, term)
	})
}

func (s *Session) applyTerm(gen uint64, term string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.termGen != gen {
		return
	}
	s.activeTerm = term
	s.recomputeLocked()
}

// SetSortKey switches the comparator and re-sorts synchronously.
func (s *Session) SetSortKey(key models.SortKey) error {
	if !key.Valid() {
		return fmt.Errorf("invalid sort key %q", key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sortKey = key
	s.recomputeLocked()
	return nil
}

// SetShowInsights toggles the analytics panel flag.
func (s *Session) SetShowInsights(show bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.showInsights = show
}

// MarkUnavailable is the rendering layer's feedback that a record's
// thumbnail is unreachable. The flag is monotonic; classification and
// the projection pick it up immediately. Returns false for an unknown
// id.
func (s *Session) MarkUnavailable(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.index[id]
	if !ok {
		return false
	}
	if !rec.KnownUnavailable {
		rec.KnownUnavailable = true
		s.recomputeLocked()
	}
	return true
}

// View returns a snapshot of the current view state. Records are copied
// by value so later mutations never race with a caller.
func (s *Session) View() models.ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()

	videos := make([]models.VideoRecord, 0, len(s.projected))
	for _, rec := range s.projected {
		videos = append(videos, *rec)
	}

	return models.ViewState{
		Phase:          string(s.phase),
		Authenticated:  s.credential != nil,
		Mode:           s.mode,
		SearchTerm:     s.searchTerm,
		ActiveTerm:     s.activeTerm,
		SortKey:        s.sortKey,
		Loading:        s.phase == PhaseLoading,
		LoadingMore:    s.phase == PhaseLoadingMore,
		FetchingAll:    s.phase == PhaseFetchingAll,
		ShowInsights:   s.showInsights,
		Videos:         videos,
		ResultCount:    len(videos),
		CollectionSize: len(s.collection),
		HasMore:        s.cursor != "",
		TotalApprox:    s.totalApprox,
		Error:          s.lastErr,
	}
}

// Analytics recomputes the analytics snapshot from the raw collection.
func (s *Session) Analytics() *models.AnalyticsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return analytics.Aggregate(s.collection)
}

// ExportText renders the current projection as plain text, one line per
// video, for the rendering layer's copy-to-clipboard action.
func (s *Session) ExportText() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.credential == nil {
		return "", ErrNotAuthenticated
	}

	var b strings.Builder
	for _, rec := range s.projected {
		title := rec.Title
		if title == "" {
			title = "(unavailable)"
		}
		fmt.Fprintf(&b, "%s — %s — %s\n", title, rec.ChannelTitle, rec.WatchURL())
	}

	return b.String(), nil
}

// ID returns the session identifier used in published events.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// resetLocked clears the collection, cursor and totals and bumps the
// epoch so in-flight responses and loops invalidate themselves.
func (s *Session) resetLocked() {
	s.epoch++
	s.collection = nil
	s.index = make(map[string]*models.VideoRecord)
	s.cursor = ""
	s.totalApprox = 0
	s.projected = nil
	metrics.CollectionSize.Set(0)
}

func (s *Session) recomputeLocked() {
	s.projected = view.Project(s.collection, s.activeTerm, s.sortKey)
}

func (s *Session) setErrorLocked(kind, message string) {
	s.lastErr = &models.UserError{Kind: kind, Message: message}
	s.log.Warn("session error", zap.String("kind", kind), zap.String("message", message))
}

func (s *Session) publish(eventType string) {
	s.mu.Lock()
	event := notify.NewEvent(eventType, s.id, s.mode, len(s.collection))
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.Warn("failed to publish session event", zap.String("type", eventType), zap.Error(err))
	}
}
