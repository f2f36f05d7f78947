package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ratewatch/rated-history-go/internal/authprov"
	"github.com/ratewatch/rated-history-go/internal/models"
	"github.com/ratewatch/rated-history-go/internal/session"
)

type stubFetcher struct {
	pages map[string]*models.Page
}

func (s *stubFetcher) FetchPage(_ context.Context, mode models.RatingMode, cursor string) (*models.Page, error) {
	if page, ok := s.pages[string(mode)+"|"+cursor]; ok {
		return page, nil
	}
	return &models.Page{}, nil
}

type stubTokens struct {
	cred *models.Credential
}

func (s *stubTokens) Save(_ context.Context, accessToken string, lifetime time.Duration) (*models.Credential, error) {
	s.cred = &models.Credential{AccessToken: accessToken, ExpiresAt: time.Now().Add(lifetime)}
	return s.cred, nil
}

func (s *stubTokens) Load(context.Context) (*models.Credential, error) { return s.cred, nil }

func (s *stubTokens) Clear(context.Context) error {
	s.cred = nil
	return nil
}

type stubAuthorizer struct{}

func (stubAuthorizer) Begin(context.Context) (*authprov.DeviceGrant, error) {
	return &authprov.DeviceGrant{
		VerificationURL: "https://example.com/activate",
		UserCode:        "ABCD-EFGH",
		ExpiresAt:       time.Now().Add(10 * time.Minute),
	}, nil
}

func (stubAuthorizer) Wait(context.Context, *authprov.DeviceGrant) (*models.Credential, error) {
	return &models.Credential{AccessToken: "tok", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (stubAuthorizer) Revoke(context.Context, string) error { return nil }

func testRecord(id string) *models.VideoRecord {
	return &models.VideoRecord{
		ID:             id,
		Title:          "Video " + id,
		HasSnippet:     true,
		HasStatistics:  true,
		ThumbnailCount: 3,
	}
}

func setupRouter(t *testing.T, authenticated bool) (*gin.Engine, *session.Session) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens := &stubTokens{}
	if authenticated {
		tokens.cred = &models.Credential{AccessToken: "tok", ExpiresAt: time.Now().Add(time.Hour)}
	}
	fetcher := &stubFetcher{pages: map[string]*models.Page{
		string(models.ModeDislikes) + "|": {
			Items:      []*models.VideoRecord{testRecord("a"), testRecord("b")},
			NextCursor: "p2",
		},
		string(models.ModeDislikes) + "|p2": {
			Items: []*models.VideoRecord{testRecord("c")},
		},
	}}

	sess := session.New(fetcher, tokens, stubAuthorizer{}, nil, time.Millisecond)
	if err := sess.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	h := NewSessionHandler(sess)
	router := gin.New()
	router.GET("/session", h.View)
	router.POST("/session/sign-in", h.SignIn)
	router.POST("/session/sign-out", h.SignOut)
	router.POST("/session/load-more", h.LoadMore)
	router.POST("/session/load-all", h.LoadAll)
	router.PUT("/session/mode", h.SetMode)
	router.PUT("/session/search", h.SetSearch)
	router.PUT("/session/sort", h.SetSort)
	router.PUT("/session/insights", h.SetInsights)
	router.GET("/session/analytics", h.Analytics)
	router.GET("/session/export", h.Export)
	router.POST("/videos/:id/unavailable", h.MarkUnavailable)

	return router, sess
}

func doJSON(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeView(t *testing.T, w *httptest.ResponseRecorder) models.ViewState {
	t.Helper()
	var view models.ViewState
	if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
		t.Fatalf("failed to decode view state: %v (body %s)", err, w.Body.String())
	}
	return view
}

func TestViewEndpoint(t *testing.T) {
	router, _ := setupRouter(t, true)

	w := doJSON(router, http.MethodGet, "/session", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /session = %d, want 200", w.Code)
	}

	view := decodeView(t, w)
	if !view.Authenticated || len(view.Videos) != 2 {
		t.Errorf("view = auth=%v videos=%d, want authenticated with 2 videos", view.Authenticated, len(view.Videos))
	}
}

func TestSignInEndpoint(t *testing.T) {
	router, _ := setupRouter(t, false)

	w := doJSON(router, http.MethodPost, "/session/sign-in", nil)
	if w.Code != http.StatusAccepted {
		t.Fatalf("POST /session/sign-in = %d, want 202 (body %s)", w.Code, w.Body.String())
	}

	var grant authprov.DeviceGrant
	if err := json.Unmarshal(w.Body.Bytes(), &grant); err != nil {
		t.Fatalf("failed to decode grant: %v", err)
	}
	if grant.UserCode != "ABCD-EFGH" {
		t.Errorf("UserCode = %q, want ABCD-EFGH", grant.UserCode)
	}
}

func TestSignOutEndpoint(t *testing.T) {
	router, _ := setupRouter(t, true)

	w := doJSON(router, http.MethodPost, "/session/sign-out", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("POST /session/sign-out = %d, want 200", w.Code)
	}
	if view := decodeView(t, w); view.Authenticated {
		t.Error("still authenticated after sign-out")
	}
}

func TestLoadMoreEndpoint(t *testing.T) {
	router, _ := setupRouter(t, true)

	w := doJSON(router, http.MethodPost, "/session/load-more", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("POST /session/load-more = %d, want 200", w.Code)
	}
	if view := decodeView(t, w); len(view.Videos) != 3 {
		t.Errorf("videos = %d after load-more, want 3", len(view.Videos))
	}
}

func TestLoadMoreUnauthenticated(t *testing.T) {
	router, _ := setupRouter(t, false)

	w := doJSON(router, http.MethodPost, "/session/load-more", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("POST /session/load-more = %d, want 401", w.Code)
	}
}

func TestSetModeEndpoint(t *testing.T) {
	router, _ := setupRouter(t, true)

	w := doJSON(router, http.MethodPut, "/session/mode", gin.H{"mode": "likes"})
	if w.Code != http.StatusOK {
		t.Fatalf("PUT /session/mode = %d, want 200 (body %s)", w.Code, w.Body.String())
	}
	if view := decodeView(t, w); view.Mode != models.ModeLikes {
		t.Errorf("Mode = %s, want likes", view.Mode)
	}

	w = doJSON(router, http.MethodPut, "/session/mode", gin.H{"mode": "bogus"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("PUT /session/mode bogus = %d, want 400", w.Code)
	}

	w = doJSON(router, http.MethodPut, "/session/mode", gin.H{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("PUT /session/mode empty = %d, want 400", w.Code)
	}
}

func TestSetSortEndpoint(t *testing.T) {
	router, _ := setupRouter(t, true)

	w := doJSON(router, http.MethodPut, "/session/sort", gin.H{"key": "views-desc"})
	if w.Code != http.StatusOK {
		t.Fatalf("PUT /session/sort = %d, want 200 (body %s)", w.Code, w.Body.String())
	}
	if view := decodeView(t, w); view.SortKey != models.SortViewsDesc {
		t.Errorf("SortKey = %s, want views-desc", view.SortKey)
	}

	w = doJSON(router, http.MethodPut, "/session/sort", gin.H{"key": "bogus"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("PUT /session/sort bogus = %d, want 400", w.Code)
	}
}

func TestSetSearchEndpoint(t *testing.T) {
	router, sess := setupRouter(t, true)

	w := doJSON(router, http.MethodPut, "/session/search", gin.H{"term": "cats"})
	if w.Code != http.StatusOK {
		t.Fatalf("PUT /session/search = %d, want 200", w.Code)
	}
	if view := decodeView(t, w); view.SearchTerm != "cats" {
		t.Errorf("SearchTerm = %q, want cats", view.SearchTerm)
	}

	// The term applies after the (short test) debounce.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if sess.View().ActiveTerm == "cats" {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error("debounced term never applied")
}

func TestMarkUnavailableEndpoint(t *testing.T) {
	router, _ := setupRouter(t, true)

	w := doJSON(router, http.MethodPost, "/videos/a/unavailable", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("POST /videos/a/unavailable = %d, want 200", w.Code)
	}

	w = doJSON(router, http.MethodPost, "/videos/zzz/unavailable", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("POST /videos/zzz/unavailable = %d, want 404", w.Code)
	}
}

func TestAnalyticsEndpoint(t *testing.T) {
	router, _ := setupRouter(t, true)

	w := doJSON(router, http.MethodGet, "/session/analytics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /session/analytics = %d, want 200", w.Code)
	}

	var snap models.AnalyticsSnapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("failed to decode snapshot: %v", err)
	}
	if snap.TotalSize != 2 {
		t.Errorf("TotalSize = %d, want 2", snap.TotalSize)
	}
}

func TestExportEndpoint(t *testing.T) {
	router, _ := setupRouter(t, true)

	w := doJSON(router, http.MethodGet, "/session/export", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /session/export = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/plain; charset=utf-8" {
		t.Errorf("Content-Type = %q, want text/plain", ct)
	}
	if w.Body.Len() == 0 {
		t.Error("export body empty for a non-empty projection")
	}
}

func TestExportUnauthenticated(t *testing.T) {
	router, _ := setupRouter(t, false)

	w := doJSON(router, http.MethodGet, "/session/export", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("GET /session/export = %d, want 401", w.Code)
	}
}
