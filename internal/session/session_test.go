package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ratewatch/rated-history-go/internal/authprov"
	"github.com/ratewatch/rated-history-go/internal/fetch"
	"github.com/ratewatch/rated-history-go/internal/models"
	"github.com/ratewatch/rated-history-go/internal/notify"
)

type fakeFetcher struct {
	mu      sync.Mutex
	pages   map[string]*models.Page
	err     error
	calls   []string
	onFetch func(mode models.RatingMode, cursor string)
}

func pageKey(mode models.RatingMode, cursor string) string {
	return string(mode) + "|" + cursor
}

func (f *fakeFetcher) FetchPage(_ context.Context, mode models.RatingMode, cursor string) (*models.Page, error) {
	f.mu.Lock()
	f.calls = append(f.calls, pageKey(mode, cursor))
	hook := f.onFetch
	f.onFetch = nil
	err := f.err
	page := f.pages[pageKey(mode, cursor)]
	f.mu.Unlock()

	if hook != nil {
		hook(mode, cursor)
	}
	if err != nil {
		return nil, err
	}
	if page == nil {
		return &models.Page{}, nil
	}
	return page, nil
}

func (f *fakeFetcher) callCount(mode models.RatingMode, cursor string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == pageKey(mode, cursor) {
			n++
		}
	}
	return n
}

type fakeTokenStore struct {
	mu     sync.Mutex
	cred   *models.Credential
	clears int
}

func (f *fakeTokenStore) Save(_ context.Context, accessToken string, lifetime time.Duration) (*models.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cred = &models.Credential{AccessToken: accessToken, ExpiresAt: time.Now().Add(lifetime)}
	return f.cred, nil
}

func (f *fakeTokenStore) Load(context.Context) (*models.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cred, nil
}

func (f *fakeTokenStore) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cred = nil
	f.clears++
	return nil
}

type fakeAuthorizer struct {
	mu       sync.Mutex
	beginErr error
	waitErr  error
	revokes  []string
}

func (f *fakeAuthorizer) Begin(context.Context) (*authprov.DeviceGrant, error) {
	if f.beginErr != nil {
		return nil, f.beginErr
	}
	return &authprov.DeviceGrant{
		VerificationURL: "https://example.com/activate",
		UserCode:        "ABCD-EFGH",
		ExpiresAt:       time.Now().Add(10 * time.Minute),
	}, nil
}

func (f *fakeAuthorizer) Wait(context.Context, *authprov.DeviceGrant) (*models.Credential, error) {
	if f.waitErr != nil {
		return nil, f.waitErr
	}
	return &models.Credential{AccessToken: "tok-fresh", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (f *fakeAuthorizer) Revoke(_ context.Context, accessToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revokes = append(f.revokes, accessToken)
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []string
}

func (f *fakePublisher) Publish(_ context.Context, event *notify.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event.Type)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

func (f *fakePublisher) count(eventType string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if e == eventType {
			n++
		}
	}
	return n
}

func record(id string) *models.VideoRecord {
	return &models.VideoRecord{
		ID:             id,
		Title:          "Video " + id,
		ChannelTitle:   "Channel",
		HasSnippet:     true,
		HasStatistics:  true,
		ThumbnailCount: 3,
	}
}

func freshCredential() *models.Credential {
	return &models.Credential{AccessToken: "tok", ExpiresAt: time.Now().Add(time.Hour)}
}

// waitFor polls until cond holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition never held: %s", msg)
}

func videoIDs(view models.ViewState) []string {
	out := make([]string, 0, len(view.Videos))
	for _, v := range view.Videos {
		out = append(out, v.ID)
	}
	return out
}

func assertIDs(t *testing.T, view models.ViewState, want ...string) {
	t.Helper()
	got := videoIDs(view)
	if len(got) != len(want) {
		t.Fatalf("videos = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("videos = %v, want %v", got, want)
		}
	}
}

func TestInitializeWithoutCredential(t *testing.T) {
	fetcher := &fakeFetcher{}
	sess := New(fetcher, &fakeTokenStore{}, &fakeAuthorizer{}, nil, time.Millisecond)

	if err := sess.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	view := sess.View()
	if view.Phase != string(PhaseReady) || view.Authenticated {
		t.Errorf("view = %s/auth=%v, want ready/unauthenticated", view.Phase, view.Authenticated)
	}
	if len(fetcher.calls) != 0 {
		t.Errorf("fetch issued without a credential: %v", fetcher.calls)
	}
}

func TestInitializeRestoresPersistedCredential(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]*models.Page{
		pageKey(models.ModeDislikes, ""): {
			Items:       []*models.VideoRecord{record("a"), record("b")},
			NextCursor:  "p2",
			TotalApprox: 40,
		},
	}}
	tokens := &fakeTokenStore{cred: freshCredential()}
	sess := New(fetcher, tokens, &fakeAuthorizer{}, nil, time.Millisecond)

	if err := sess.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	view := sess.View()
	if !view.Authenticated || view.Phase != string(PhaseIdle) {
		t.Fatalf("view = %s/auth=%v, want idle/authenticated", view.Phase, view.Authenticated)
	}
	assertIDs(t, view, "a", "b")
	if !view.HasMore || view.TotalApprox != 40 {
		t.Errorf("HasMore=%v TotalApprox=%d, want true/40", view.HasMore, view.TotalApprox)
	}
}

func TestInitializeWithoutFetcherDegrades(t *testing.T) {
	sess := New(nil, &fakeTokenStore{}, &fakeAuthorizer{}, nil, time.Millisecond)

	if err := sess.Initialize(context.Background()); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("Initialize() error = %v, want ErrNotInitialized", err)
	}

	view := sess.View()
	if view.Error == nil || view.Error.Kind != KindInitialization {
		t.Errorf("view error = %+v, want %s", view.Error, KindInitialization)
	}
}

func TestSignInFlow(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]*models.Page{
		pageKey(models.ModeDislikes, ""): {Items: []*models.VideoRecord{record("a")}},
	}}
	tokens := &fakeTokenStore{}
	publisher := &fakePublisher{}
	sess := New(fetcher, tokens, &fakeAuthorizer{}, publisher, time.Millisecond)

	if err := sess.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	grant, err := sess.SignIn(context.Background())
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if grant.UserCode == "" || grant.VerificationURL == "" {
		t.Errorf("grant = %+v, want populated verification details", grant)
	}

	waitFor(t, func() bool {
		view := sess.View()
		return view.Authenticated && view.Phase == string(PhaseIdle)
	}, "sign-in to complete")

	assertIDs(t, sess.View(), "a")
	if cred, _ := tokens.Load(context.Background()); cred == nil || cred.AccessToken != "tok-fresh" {
		t.Errorf("credential not persisted: %+v", cred)
	}
	if publisher.count(notify.TypeSignedIn) != 1 {
		t.Errorf("signed_in published %d times, want 1", publisher.count(notify.TypeSignedIn))
	}
}

func TestSignInDeniedSurfacesAuthorizationError(t *testing.T) {
	sess := New(&fakeFetcher{}, &fakeTokenStore{}, &fakeAuthorizer{waitErr: errors.New("access_denied")}, nil, time.Millisecond)
	if err := sess.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	if _, err := sess.SignIn(context.Background()); err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}

	waitFor(t, func() bool {
		view := sess.View()
		return view.Error != nil && view.Error.Kind == KindAuthorization
	}, "authorization failure to surface")

	if sess.View().Authenticated {
		t.Error("denied grant still authenticated the session")
	}
}

func TestSignOutClearsEverything(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]*models.Page{
		pageKey(models.ModeDislikes, ""): {Items: []*models.VideoRecord{record("a")}, NextCursor: "p2"},
	}}
	tokens := &fakeTokenStore{cred: freshCredential()}
	auth := &fakeAuthorizer{}
	publisher := &fakePublisher{}
	sess := New(fetcher, tokens, auth, publisher, time.Millisecond)

	if err := sess.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	sess.SetSearchTerm("cats")

	if err := sess.SignOut(context.Background()); err != nil {
		t.Fatalf("SignOut() error = %v", err)
	}

	view := sess.View()
	if view.Authenticated || view.Phase != string(PhaseReady) {
		t.Errorf("view = %s/auth=%v, want ready/unauthenticated", view.Phase, view.Authenticated)
	}
	if len(view.Videos) != 0 || view.HasMore || view.SearchTerm != "" {
		t.Errorf("state survived sign-out: %+v", view)
	}
	if tokens.clears != 1 {
		t.Errorf("persisted credential cleared %d times, want 1", tokens.clears)
	}
	auth.mu.Lock()
	revokes := len(auth.revokes)
	auth.mu.Unlock()
	if revokes != 1 {
		t.Errorf("credential revoked %d times, want 1", revokes)
	}
	if publisher.count(notify.TypeSignedOut) != 1 {
		t.Errorf("signed_out published %d times, want 1", publisher.count(notify.TypeSignedOut))
	}
}

func TestLoadMoreAppendsWithoutDuplicates(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]*models.Page{
		pageKey(models.ModeDislikes, ""): {Items: []*models.VideoRecord{record("a"), record("b")}, NextCursor: "p2"},
		pageKey(models.ModeDislikes, "p2"): {
			// Overlapping delivery: "b" arrives again.
			Items: []*models.VideoRecord{record("b"), record("c")},
		},
	}}
	sess := New(fetcher, &fakeTokenStore{cred: freshCredential()}, &fakeAuthorizer{}, nil, time.Millisecond)

	if err := sess.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if err := sess.LoadMore(context.Background()); err != nil {
		t.Fatalf("LoadMore() error = %v", err)
	}

	view := sess.View()
	assertIDs(t, view, "a", "b", "c")
	if view.HasMore {
		t.Error("HasMore = true after the final page")
	}
}

func TestLoadMoreSuppressedWhileFiltering(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]*models.Page{
		pageKey(models.ModeDislikes, ""): {Items: []*models.VideoRecord{record("a")}, NextCursor: "p2"},
	}}
	sess := New(fetcher, &fakeTokenStore{cred: freshCredential()}, &fakeAuthorizer{}, nil, time.Millisecond)

	if err := sess.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	sess.SetSearchTerm("video")
	waitFor(t, func() bool { return sess.View().ActiveTerm == "video" }, "debounced term to apply")

	before := fetcher.callCount(models.ModeDislikes, "p2")
	if err := sess.LoadMore(context.Background()); err != nil {
		t.Fatalf("LoadMore() error = %v", err)
	}
	if after := fetcher.callCount(models.ModeDislikes, "p2"); after != before {
		t.Errorf("LoadMore fetched while a search term was active")
	}
}

func TestLoadMoreRequiresAuthentication(t *testing.T) {
	sess := New(&fakeFetcher{}, &fakeTokenStore{}, &fakeAuthorizer{}, nil, time.Millisecond)
	if err := sess.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	if err := sess.LoadMore(context.Background()); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("LoadMore() error = %v, want ErrNotAuthenticated", err)
	}
	if err := sess.LoadAll(context.Background()); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("LoadAll() error = %v, want ErrNotAuthenticated", err)
	}
}

func TestLoadAllDrainsCursorChain(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]*models.Page{
		pageKey(models.ModeDislikes, ""):   {Items: []*models.VideoRecord{record("a"), record("b")}, NextCursor: "p2"},
		pageKey(models.ModeDislikes, "p2"): {Items: []*models.VideoRecord{record("c")}, NextCursor: "p3"},
		pageKey(models.ModeDislikes, "p3"): {Items: []*models.VideoRecord{record("d")}},
	}}
	publisher := &fakePublisher{}
	sess := New(fetcher, &fakeTokenStore{cred: freshCredential()}, &fakeAuthorizer{}, publisher, time.Millisecond)

	if err := sess.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if err := sess.LoadAll(context.Background()); err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}

	view := sess.View()
	assertIDs(t, view, "a", "b", "c", "d")
	if view.HasMore || view.Phase != string(PhaseIdle) {
		t.Errorf("HasMore=%v phase=%s after drain, want false/idle", view.HasMore, view.Phase)
	}
	if publisher.count(notify.TypeFetchAllCompleted) != 1 {
		t.Errorf("fetch_all_completed published %d times, want exactly 1", publisher.count(notify.TypeFetchAllCompleted))
	}
}

func TestModeSwitchMidLoadAllDiscardsStalePage(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]*models.Page{
		pageKey(models.ModeDislikes, ""):   {Items: []*models.VideoRecord{record("a"), record("b")}, NextCursor: "p2"},
		pageKey(models.ModeDislikes, "p2"): {Items: []*models.VideoRecord{record("c"), record("d")}},
		pageKey(models.ModeLikes, ""):      {Items: []*models.VideoRecord{record("l1")}},
	}}
	publisher := &fakePublisher{}
	sess := New(fetcher, &fakeTokenStore{cred: freshCredential()}, &fakeAuthorizer{}, publisher, time.Millisecond)

	if err := sess.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	// Switch modes while the continuation page is in flight. Its
	// response belongs to the old epoch and must be discarded.
	fetcher.mu.Lock()
	fetcher.onFetch = func(mode models.RatingMode, cursor string) {
		if mode == models.ModeDislikes && cursor == "p2" {
			if err := sess.SetMode(context.Background(), models.ModeLikes); err != nil {
				t.Errorf("SetMode() error = %v", err)
			}
		}
	}
	fetcher.mu.Unlock()

	if err := sess.LoadAll(context.Background()); err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}

	view := sess.View()
	assertIDs(t, view, "l1")
	if view.Mode != models.ModeLikes || view.Phase != string(PhaseIdle) {
		t.Errorf("view = %s/%s, want likes/idle", view.Mode, view.Phase)
	}
	if n := fetcher.callCount(models.ModeLikes, ""); n != 1 {
		t.Errorf("likes first page fetched %d times, want exactly 1", n)
	}
	if publisher.count(notify.TypeFetchAllCompleted) != 0 {
		t.Error("aborted fetch-all still published its completion event")
	}
}

func TestSessionExpiryDropsToReady(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]*models.Page{
		pageKey(models.ModeDislikes, ""): {Items: []*models.VideoRecord{record("a")}, NextCursor: "p2"},
	}}
	sess := New(fetcher, &fakeTokenStore{cred: freshCredential()}, &fakeAuthorizer{}, nil, time.Millisecond)

	if err := sess.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	fetcher.mu.Lock()
	fetcher.err = fmt.Errorf("%w: 401", fetch.ErrSessionExpired)
	fetcher.mu.Unlock()

	if err := sess.LoadMore(context.Background()); !errors.Is(err, fetch.ErrSessionExpired) {
		t.Fatalf("LoadMore() error = %v, want ErrSessionExpired", err)
	}

	view := sess.View()
	if view.Authenticated || view.Phase != string(PhaseReady) {
		t.Errorf("view = %s/auth=%v, want ready/unauthenticated", view.Phase, view.Authenticated)
	}
	if len(view.Videos) != 0 {
		t.Errorf("collection survived session expiry: %v", videoIDs(view))
	}
	if view.Error == nil || view.Error.Kind != KindSessionExpired {
		t.Errorf("view error = %+v, want %s", view.Error, KindSessionExpired)
	}
}

func TestFetchFailureKeepsCollection(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]*models.Page{
		pageKey(models.ModeDislikes, ""): {Items: []*models.VideoRecord{record("a")}, NextCursor: "p2"},
	}}
	sess := New(fetcher, &fakeTokenStore{cred: freshCredential()}, &fakeAuthorizer{}, nil, time.Millisecond)

	if err := sess.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	fetcher.mu.Lock()
	fetcher.err = errors.New("backend unavailable")
	fetcher.mu.Unlock()

	if err := sess.LoadMore(context.Background()); err == nil {
		t.Fatal("LoadMore() error = nil, want fetch failure")
	}

	view := sess.View()
	assertIDs(t, view, "a")
	if !view.HasMore {
		t.Error("cursor lost on a transient fetch failure")
	}
	if view.Phase != string(PhaseIdle) {
		t.Errorf("phase = %s, want idle so the user can retry", view.Phase)
	}
	if view.Error == nil || view.Error.Kind != KindFetch {
		t.Errorf("view error = %+v, want %s", view.Error, KindFetch)
	}
}

func TestSearchDebounceCoalescesEdits(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]*models.Page{
		pageKey(models.ModeDislikes, ""): {Items: []*models.VideoRecord{record("a")}},
	}}
	sess := New(fetcher, &fakeTokenStore{cred: freshCredential()}, &fakeAuthorizer{}, nil, 20*time.Millisecond)

	if err := sess.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	sess.SetSearchTerm("c")
	sess.SetSearchTerm("ca")
	sess.SetSearchTerm("cat")

	if view := sess.View(); view.SearchTerm != "cat" {
		t.Errorf("SearchTerm = %q immediately, want cat", view.SearchTerm)
	}
	if view := sess.View(); view.ActiveTerm != "" {
		t.Errorf("ActiveTerm = %q before debounce, want empty", view.ActiveTerm)
	}

	waitFor(t, func() bool { return sess.View().ActiveTerm == "cat" }, "final term to apply")
}

func TestSetSortKeyReorders(t *testing.T) {
	a := record("a")
	a.ViewCount = 10
	b := record("b")
	b.ViewCount = 500
	fetcher := &fakeFetcher{pages: map[string]*models.Page{
		pageKey(models.ModeDislikes, ""): {Items: []*models.VideoRecord{a, b}},
	}}
	sess := New(fetcher, &fakeTokenStore{cred: freshCredential()}, &fakeAuthorizer{}, nil, time.Millisecond)

	if err := sess.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	if err := sess.SetSortKey(models.SortViewsDesc); err != nil {
		t.Fatalf("SetSortKey() error = %v", err)
	}
	assertIDs(t, sess.View(), "b", "a")

	if err := sess.SetSortKey("bogus"); err == nil {
		t.Error("SetSortKey(bogus) error = nil, want validation failure")
	}
}

func TestMarkUnavailable(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]*models.Page{
		pageKey(models.ModeDislikes, ""): {Items: []*models.VideoRecord{record("a"), record("b")}},
	}}
	sess := New(fetcher, &fakeTokenStore{cred: freshCredential()}, &fakeAuthorizer{}, nil, time.Millisecond)

	if err := sess.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	if !sess.MarkUnavailable("a") {
		t.Fatal("MarkUnavailable(a) = false for a known id")
	}
	if sess.MarkUnavailable("nope") {
		t.Error("MarkUnavailable(nope) = true for an unknown id")
	}

	// Marking is monotonic and idempotent.
	if !sess.MarkUnavailable("a") {
		t.Error("second MarkUnavailable(a) = false")
	}

	for _, v := range sess.View().Videos {
		if v.ID == "a" && !v.KnownUnavailable {
			t.Error("record a not flagged unavailable in the view")
		}
		if v.ID == "b" && v.KnownUnavailable {
			t.Error("record b flagged unavailable without feedback")
		}
	}
}

func TestExportText(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]*models.Page{
		pageKey(models.ModeDislikes, ""): {Items: []*models.VideoRecord{record("a")}},
	}}
	sess := New(fetcher, &fakeTokenStore{cred: freshCredential()}, &fakeAuthorizer{}, nil, time.Millisecond)

	if err := sess.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	text, err := sess.ExportText()
	if err != nil {
		t.Fatalf("ExportText() error = %v", err)
	}
	if text == "" {
		t.Error("ExportText() returned nothing for a non-empty projection")
	}

	unauth := New(&fakeFetcher{}, &fakeTokenStore{}, &fakeAuthorizer{}, nil, time.Millisecond)
	if err := unauth.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if _, err := unauth.ExportText(); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("ExportText() error = %v, want ErrNotAuthenticated", err)
	}
}

func TestViewSnapshotIsolation(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]*models.Page{
		pageKey(models.ModeDislikes, ""): {Items: []*models.VideoRecord{record("a")}},
	}}
	sess := New(fetcher, &fakeTokenStore{cred: freshCredential()}, &fakeAuthorizer{}, nil, time.Millisecond)

	if err := sess.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	view := sess.View()
	view.Videos[0].Title = "mutated"

	if sess.View().Videos[0].Title == "mutated" {
		t.Error("view snapshot shares record memory with the session")
	}
}

func TestSetModeUnauthenticatedJustRecordsIt(t *testing.T) {
	fetcher := &fakeFetcher{}
	sess := New(fetcher, &fakeTokenStore{}, &fakeAuthorizer{}, nil, time.Millisecond)

	if err := sess.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if err := sess.SetMode(context.Background(), models.ModeLikes); err != nil {
		t.Fatalf("SetMode() error = %v", err)
	}

	if got := sess.View().Mode; got != models.ModeLikes {
		t.Errorf("Mode = %s, want likes", got)
	}
	if len(fetcher.calls) != 0 {
		t.Errorf("unauthenticated mode switch fetched: %v", fetcher.calls)
	}
}

func TestSessionIDStable(t *testing.T) {
	sess := New(&fakeFetcher{}, &fakeTokenStore{}, &fakeAuthorizer{}, nil, time.Millisecond)
	if sess.ID() == uuid.Nil {
		t.Error("session id is nil")
	}
	if sess.ID() != sess.ID() {
		t.Error("session id changed between calls")
	}
}
