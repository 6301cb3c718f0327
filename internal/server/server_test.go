package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/negraodenio/roast/internal/domain"
	"github.com/negraodenio/roast/internal/service/audit"
	"github.com/negraodenio/roast/internal/service/roast"
	apperrors "github.com/negraodenio/roast/pkg/errors"
)

const testSecret = "test-secret"

type fakeAPI struct {
	mu        sync.Mutex
	requests  []roast.Request
	outcome   *roast.Outcome
	roastErr  error
	events    []domain.CategoryEvent
	view      *domain.RoastView
	viewErr   error
	viewers   []string
	wall      []domain.WallEntry
	dashboard []*domain.RoastRecord
	dashUsers []string
}

func (f *fakeAPI) Roast(_ context.Context, req roast.Request, observer audit.Observer) (*roast.Outcome, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if observer != nil {
		for _, e := range f.events {
			observer.CategorySettled(e)
		}
	}
	if f.roastErr != nil {
		return nil, f.roastErr
	}
	return f.outcome, nil
}

func (f *fakeAPI) View(_ context.Context, _ string, viewerID string) (*domain.RoastView, error) {
	f.viewers = append(f.viewers, viewerID)
	return f.view, f.viewErr
}

func (f *fakeAPI) Wall(context.Context) ([]domain.WallEntry, error) {
	return f.wall, nil
}

func (f *fakeAPI) Dashboard(_ context.Context, userID string) ([]*domain.RoastRecord, error) {
	f.dashUsers = append(f.dashUsers, userID)
	return f.dashboard, nil
}

type fakeHealth struct{ err error }

func (f fakeHealth) Ping(context.Context) error { return f.err }

func newTestServer(api *fakeAPI) *Server {
	return New(api, fakeHealth{}, Options{Mode: "test", JWTSecret: testSecret}, zap.NewNop())
}

func signToken(t *testing.T, secret, subject, email string) string {
	t.Helper()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwtlib.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func doJSON(s *Server, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestNormalizeToken(t *testing.T) {
	assert.Equal(t, "abc", NormalizeToken("Bearer abc"))
	assert.Equal(t, "abc", NormalizeToken("  bearer   abc "))
	assert.Equal(t, "abc", NormalizeToken("abc"))
	assert.Equal(t, "", NormalizeToken("  "))
}

func TestParseToken(t *testing.T) {
	user := uuid.NewString()
	claims, err := ParseToken([]byte(testSecret), signToken(t, testSecret, user, "a@example.com"))
	require.NoError(t, err)
	assert.Equal(t, user, claims.Subject)
	assert.Equal(t, "a@example.com", claims.Email)

	_, err = ParseToken([]byte(testSecret), signToken(t, "other", user, ""))
	assert.Error(t, err)

	_, err = ParseToken(nil, signToken(t, testSecret, user, ""))
	assert.Error(t, err)

	_, err = ParseToken([]byte(testSecret), signToken(t, testSecret, "", ""))
	assert.Error(t, err)
}

func TestCreateRoastAnonymous(t *testing.T) {
	id := uuid.New()
	api := &fakeAPI{outcome: &roast.Outcome{RoastID: id, Score: 41}}
	s := newTestServer(api)

	rec := doJSON(s, http.MethodPost, "/api/roast", `{"url":"example.com","isPublic":false}`, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, id.String(), body["roastId"])
	assert.Equal(t, float64(41), body["score"])

	require.Len(t, api.requests, 1)
	req := api.requests[0]
	assert.Equal(t, "example.com", req.URL)
	require.NotNil(t, req.IsPublic)
	assert.False(t, *req.IsPublic)
	assert.Empty(t, req.UserID)
	assert.NotEmpty(t, req.ClientIP)
}

func TestCreateRoastSignedIn(t *testing.T) {
	api := &fakeAPI{outcome: &roast.Outcome{RoastID: uuid.New(), Score: 50}}
	s := newTestServer(api)
	user := uuid.NewString()

	rec := doJSON(s, http.MethodPost, "/api/roast", `{"url":"example.com"}`, signToken(t, testSecret, user, "me@example.com"))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, api.requests, 1)
	assert.Equal(t, user, api.requests[0].UserID)
	assert.Equal(t, "me@example.com", api.requests[0].Email)
	assert.Nil(t, api.requests[0].IsPublic)
}

func TestCreateRoastRejectsBadInput(t *testing.T) {
	api := &fakeAPI{}
	s := newTestServer(api)

	for _, body := range []string{`{}`, `not json`, `{"url":"   "}`} {
		rec := doJSON(s, http.MethodPost, "/api/roast", body, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.JSONEq(t, `{"error":"Invalid URL"}`, rec.Body.String())
	}
	assert.Empty(t, api.requests)
}

func TestCreateRoastInvalidToken(t *testing.T) {
	api := &fakeAPI{}
	s := newTestServer(api)

	rec := doJSON(s, http.MethodPost, "/api/roast", `{"url":"example.com"}`, "garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, api.requests)
}

func TestCreateRoastErrorMapping(t *testing.T) {
	cases := []struct {
		err     error
		status  int
		message string
	}{
		{apperrors.NewNoCreditsError("u"), http.StatusForbidden, "No credits left. Please upgrade."},
		{apperrors.NewSiteUnreachableError("https://x/", 0, "dial", nil), http.StatusBadRequest, apperrors.UnreachableMessage},
		{apperrors.NewRateLimitedError("k"), http.StatusTooManyRequests, "Daily free roast limit reached. Sign in to keep roasting."},
		{apperrors.NewProviderError("siliconflow", 500, nil), http.StatusBadGateway, "Something went wrong while roasting. Please try again."},
		{apperrors.NewStoreError("failed to save roast result", "create_roast", nil), http.StatusInternalServerError, "Something went wrong while roasting. Please try again."},
	}
	for _, tc := range cases {
		api := &fakeAPI{roastErr: tc.err}
		rec := doJSON(newTestServer(api), http.MethodPost, "/api/roast", `{"url":"example.com"}`, "")
		assert.Equal(t, tc.status, rec.Code)
		var body errorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, tc.message, body.Error)
	}
}

func TestGetRoastPassesViewer(t *testing.T) {
	record := domain.RoastRecord{ID: uuid.New(), URL: "https://shop.test/", Score: 20, IsPublic: true}
	api := &fakeAPI{view: &domain.RoastView{RoastRecord: record, IsLocked: true, RoastHTML: "<p>hi</p>\n"}}
	s := newTestServer(api)
	user := uuid.NewString()

	rec := doJSON(s, http.MethodGet, "/api/roast/"+record.ID.String(), "", signToken(t, testSecret, user, ""))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{user}, api.viewers)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["isLocked"])
	assert.Equal(t, "<p>hi</p>\n", body["roastHtml"])
	assert.Nil(t, body["ux_audit"])
}

func TestGetRoastNotFoundAndForbidden(t *testing.T) {
	api := &fakeAPI{viewErr: apperrors.NewNotFoundError("Roast not found", nil)}
	rec := doJSON(newTestServer(api), http.MethodGet, "/api/roast/"+uuid.NewString(), "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Roast not found"}`, rec.Body.String())

	api = &fakeAPI{viewErr: apperrors.NewForbiddenError("This roast is private", nil)}
	rec = doJSON(newTestServer(api), http.MethodGet, "/api/roast/"+uuid.NewString(), "", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"This roast is private"}`, rec.Body.String())
}

func TestWall(t *testing.T) {
	api := &fakeAPI{wall: []domain.WallEntry{{ID: uuid.New(), URL: "https://a.test/", Score: 10, Headline: "Oof"}}}
	rec := doJSON(newTestServer(api), http.MethodGet, "/api/wall", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Roasts []domain.WallEntry `json:"roasts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Roasts, 1)
	assert.Equal(t, "Oof", body.Roasts[0].Headline)
}

func TestDashboardRequiresAuth(t *testing.T) {
	api := &fakeAPI{dashboard: []*domain.RoastRecord{}}
	s := newTestServer(api)

	rec := doJSON(s, http.MethodGet, "/api/dashboard/roasts", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, api.dashUsers)

	user := uuid.NewString()
	rec = doJSON(s, http.MethodGet, "/api/dashboard/roasts", "", signToken(t, testSecret, user, ""))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{user}, api.dashUsers)
}

func TestHealth(t *testing.T) {
	rec := doJSON(newTestServer(&fakeAPI{}), http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	s := New(&fakeAPI{}, fakeHealth{err: assert.AnError}, Options{Mode: "test"}, zap.NewNop())
	rec = doJSON(s, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestOriginMatcher(t *testing.T) {
	open := originMatcher(nil)
	assert.True(t, open("https://whatever.test"))

	match := originMatcher([]string{"https://app.test", "admin.test"})
	assert.True(t, match("https://app.test"))
	assert.True(t, match("https://admin.test"))
	assert.False(t, match("https://evil.test"))
}

func dialStream(t *testing.T, s *Server) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/roast/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvents(t *testing.T, conn *websocket.Conn) []StreamEvent {
	t.Helper()
	var events []StreamEvent
	for {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		var event StreamEvent
		if err := conn.ReadJSON(&event); err != nil {
			return events
		}
		events = append(events, event)
		if event.Type == StreamEventDone || event.Type == StreamEventError {
			return events
		}
	}
}

func TestRoastStreamEmitsCategoriesThenDone(t *testing.T) {
	id := uuid.New()
	api := &fakeAPI{
		outcome: &roast.Outcome{RoastID: id, Score: 64},
		events: []domain.CategoryEvent{
			{Category: domain.CategoryRoast},
			{Category: domain.CategorySEO, Defaulted: true},
		},
	}
	conn := dialStream(t, newTestServer(api))

	require.NoError(t, conn.WriteJSON(map[string]any{"url": "example.com", "isPublic": true}))
	events := readEvents(t, conn)

	require.Len(t, events, 3)
	assert.Equal(t, StreamEvent{Type: StreamEventCategory, Category: domain.CategoryRoast}, events[0])
	assert.Equal(t, StreamEvent{Type: StreamEventCategory, Category: domain.CategorySEO, Defaulted: true}, events[1])
	assert.Equal(t, StreamEvent{Type: StreamEventDone, RoastID: id.String(), Score: 64}, events[2])
}

func TestRoastStreamReportsError(t *testing.T) {
	api := &fakeAPI{roastErr: apperrors.NewSiteUnreachableError("https://x/", 503, "status", nil)}
	conn := dialStream(t, newTestServer(api))

	require.NoError(t, conn.WriteJSON(map[string]any{"url": "x"}))
	events := readEvents(t, conn)

	require.Len(t, events, 1)
	assert.Equal(t, StreamEventError, events[0].Type)
	assert.Equal(t, apperrors.UnreachableMessage, events[0].Error)
}

func TestRoastStreamRejectsEmptyURL(t *testing.T) {
	api := &fakeAPI{}
	conn := dialStream(t, newTestServer(api))

	require.NoError(t, conn.WriteJSON(map[string]any{"url": ""}))
	events := readEvents(t, conn)

	require.Len(t, events, 1)
	assert.Equal(t, "Invalid URL", events[0].Error)
	assert.Empty(t, api.requests)
}

func TestRequestLoggerUsesRouteTemplate(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	id := uuid.New()
	api := &fakeAPI{view: &domain.RoastView{}}
	s := New(api, fakeHealth{}, Options{Mode: "test", JWTSecret: testSecret}, zap.New(core))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/roast/"+id.String(), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	entries := logs.All()
	require.Len(t, entries, 3)

	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "/api/roast/:id", entries[0].ContextMap()["route"])
	assert.NotContains(t, entries[0].ContextMap(), "path")

	assert.Equal(t, zapcore.DebugLevel, entries[1].Level)
	assert.Equal(t, "/healthz", entries[1].ContextMap()["route"])

	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Equal(t, "unmatched", entries[2].ContextMap()["route"])
	assert.Equal(t, "/nope", entries[2].ContextMap()["path"])
}
