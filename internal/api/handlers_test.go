package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/howjmay/publicator/internal/db"
	"github.com/howjmay/publicator/internal/db/interfaces"
	"github.com/howjmay/publicator/internal/medias"
	"github.com/howjmay/publicator/internal/posts"
	"github.com/howjmay/publicator/internal/publications"
	"github.com/howjmay/publicator/internal/ratelimit"
)

// Mock metrics for testing
type MockMetrics struct {
	mu             sync.Mutex
	resourceErrors map[string]int
	rateLimited    int
	routes         []string
}

func (m *MockMetrics) RecordHTTPRequest(ctx context.Context, method, path string, status int, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes = append(m.routes, method+" "+path)
}

func (m *MockMetrics) RecordResourceError(ctx context.Context, resource, kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.resourceErrors == nil {
		m.resourceErrors = make(map[string]int)
	}
	m.resourceErrors[resource+"/"+kind]++
}

func (m *MockMetrics) RecordRateLimited(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rateLimited++
}

func (m *MockMetrics) IncrementInFlight(ctx context.Context) {}

func (m *MockMetrics) DecrementInFlight(ctx context.Context) {}

// Mock limiter for testing
type MockLimiter struct {
	mock.Mock
}

func (m *MockLimiter) Allow(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockLimiter) Backend() string {
	return m.Called().String(0)
}

func (m *MockLimiter) Close() error {
	return nil
}

var _ ratelimit.Limiter = (*MockLimiter)(nil)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testServer struct {
	router  http.Handler
	db      interfaces.Database
	clock   *fakeClock
	metrics *MockMetrics
}

func newTestServer(t *testing.T, limiter ratelimit.Limiter) *testServer {
	t.Helper()

	logger := zap.NewNop().Sugar()
	ctx := context.Background()

	database := db.NewInMemoryDatabase(logger)
	require.NoError(t, db.ConnectAndMigrate(ctx, database, db.AllSchemas()))
	t.Cleanup(func() { database.Disconnect(ctx) })

	clock := &fakeClock{now: time.Now().UTC().Truncate(time.Second)}

	pubRepo := publications.NewRepository(database)
	mediaSvc := medias.NewService(database, pubRepo, logger)
	postSvc := posts.NewService(database, pubRepo, logger)
	pubSvc := publications.NewService(database, pubRepo, mediaSvc, postSvc, logger, publications.WithClock(clock.Now))

	metrics := &MockMetrics{}
	if limiter == nil {
		limiter = ratelimit.NewLocal(1_000_000)
	}

	handler := NewHandler(mediaSvc, postSvc, pubSvc, database, logger, metrics)
	middleware := NewMiddleware(logger, metrics, limiter)

	return &testServer{
		router:  handler.Routes(middleware, nil, []string{"http://localhost:3000"}),
		db:      database,
		clock:   clock,
		metrics: metrics,
	}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// create posts body to path, requires 201 and returns the new id
func (s *testServer) create(t *testing.T, path, body string) int64 {
	t.Helper()

	w := s.do(t, http.MethodPost, path, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.Positive(t, created.ID)
	return created.ID
}

func (s *testServer) date(d time.Duration) string {
	return s.clock.Now().Add(d).Format(time.RFC3339)
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		path string
		want string
	}{
		{"/health", "App online!"},
		{"/medias/health", "Medias online!"},
		{"/posts/health", "Posts online!"},
		{"/publications/health", "Publications online!"},
		{"/healthz", "OK"},
		{"/readyz", "READY"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := s.do(t, http.MethodGet, tt.path, "")
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.want, w.Body.String())
		})
	}

	w := s.do(t, http.MethodGet, "/ping", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReadyzReportsUnavailableDatabase(t *testing.T) {
	s := newTestServer(t, nil)
	require.NoError(t, s.db.Disconnect(context.Background()))

	w := s.do(t, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRequestIDHeader(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodGet, "/health", "")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "6f1d1f5e-6a3a-4f0e-9b8e-0c3c6c1c2d11")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, "6f1d1f5e-6a3a-4f0e-9b8e-0c3c6c1c2d11", rec.Header().Get("X-Request-ID"))
}

func TestMediaCRUD(t *testing.T) {
	s := newTestServer(t, nil)

	id := s.create(t, "/medias", `{"title":"instagram","username":"@pigs"}`)

	w := s.do(t, http.MethodGet, fmt.Sprintf("/medias/%d", id), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"id":%d,"title":"instagram","username":"@pigs"}`, id), w.Body.String())

	w = s.do(t, http.MethodPatch, fmt.Sprintf("/medias/%d", id), `{"title":"instagram","username":"@guineapigs"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"id":%d,"title":"instagram","username":"@guineapigs"}`, id), w.Body.String())

	// Re-saving the same pair is not a conflict with itself
	w = s.do(t, http.MethodPatch, fmt.Sprintf("/medias/%d", id), `{"title":"instagram","username":"@guineapigs"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/medias", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, fmt.Sprintf(`[{"id":%d,"title":"instagram","username":"@guineapigs"}]`, id), w.Body.String())

	w = s.do(t, http.MethodDelete, fmt.Sprintf("/medias/%d", id), "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())

	w = s.do(t, http.MethodGet, fmt.Sprintf("/medias/%d", id), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMediaDuplicatePair(t *testing.T) {
	s := newTestServer(t, nil)

	s.create(t, "/medias", `{"title":"A","username":"b"}`)

	w := s.do(t, http.MethodPost, "/medias", `{"title":"A","username":"b"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CONFLICT", decodeError(t, w).Code)

	// Case-sensitive
	s.create(t, "/medias", `{"title":"a","username":"b"}`)

	other := s.create(t, "/medias", `{"title":"C","username":"d"}`)
	w = s.do(t, http.MethodPatch, fmt.Sprintf("/medias/%d", other), `{"title":"A","username":"b"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	s.metrics.mu.Lock()
	defer s.metrics.mu.Unlock()
	assert.Equal(t, 2, s.metrics.resourceErrors["medias/CONFLICT"])
}

func TestMediaBodyValidation(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name   string
		body   string
		fields []string
	}{
		{"extra key", `{"title":"x","username":"y","extra":"z"}`, []string{"extra"}},
		{"every extra key", `{"title":"x","username":"y","b":1,"a":2}`, []string{"a", "b"}},
		{"missing username", `{"title":"x"}`, []string{"username"}},
		{"empty title", `{"title":"","username":"y"}`, []string{"title"}},
		{"number title", `{"title":5,"username":"y"}`, []string{"title"}},
		{"boolean username", `{"title":"x","username":true}`, []string{"username"}},
		{"array title", `{"title":["x"],"username":"y"}`, []string{"title"}},
		{"object title", `{"title":{"a":1},"username":"y"}`, []string{"title"}},
		{"null title", `{"title":null,"username":"y"}`, []string{"title"}},
		{"array body", `[]`, nil},
		{"not json", `title=x`, nil},
		{"empty body", ``, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/medias", tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code)

			resp := decodeError(t, w)
			assert.Equal(t, "VALIDATION_ERROR", resp.Code)

			var fields []string
			for _, d := range resp.Details {
				fields = append(fields, d.Field)
			}
			assert.Equal(t, tt.fields, fields)
		})
	}

	w := s.do(t, http.MethodGet, "/medias", "")
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestPostImageHandling(t *testing.T) {
	s := newTestServer(t, nil)

	plain := s.create(t, "/posts", `{"title":"t","text":"x"}`)
	nullImage := s.create(t, "/posts", `{"title":"t","text":"x","image":null}`)
	withImage := s.create(t, "/posts", `{"title":"t","text":"x","image":"https://picsum.photos/200"}`)

	for _, id := range []int64{plain, nullImage} {
		w := s.do(t, http.MethodGet, fmt.Sprintf("/posts/%d", id), "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, fmt.Sprintf(`{"id":%d,"title":"t","text":"x"}`, id), w.Body.String())
	}

	w := s.do(t, http.MethodGet, fmt.Sprintf("/posts/%d", withImage), "")
	assert.JSONEq(t, fmt.Sprintf(`{"id":%d,"title":"t","text":"x","image":"https://picsum.photos/200"}`, withImage), w.Body.String())

	// Clearing the image on update
	w = s.do(t, http.MethodPatch, fmt.Sprintf("/posts/%d", withImage), `{"title":"t2","text":"x2"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"id":%d,"title":"t2","text":"x2"}`, withImage), w.Body.String())

	w = s.do(t, http.MethodGet, "/posts", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "image")

	w = s.do(t, http.MethodPost, "/posts", `{"title":"t","text":"x","image":"not a url"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "image", decodeError(t, w).Details[0].Field)

	// A client-supplied id is ignored
	id := s.create(t, "/posts", `{"id":999,"title":"t","text":"x"}`)
	assert.NotEqual(t, int64(999), id)
}

func TestUnknownIDs(t *testing.T) {
	s := newTestServer(t, nil)

	mediaID := s.create(t, "/medias", `{"title":"A","username":"b"}`)
	postID := s.create(t, "/posts", `{"title":"t","text":"x"}`)

	bodies := map[string]string{
		"medias":       `{"title":"A2","username":"b2"}`,
		"posts":        `{"title":"t","text":"x"}`,
		"publications": fmt.Sprintf(`{"mediaId":%d,"postId":%d,"date":"3000-01-01"}`, mediaID, postID),
	}

	for resource, body := range bodies {
		path := "/" + resource + "/424242"
		t.Run(resource, func(t *testing.T) {
			assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, path, "").Code)
			assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPatch, path, body).Code)
			assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, path, "").Code)

			w := s.do(t, http.MethodGet, "/"+resource+"/abc", "")
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "id", decodeError(t, w).Details[0].Field)
		})
	}
}

func TestReferencedDeleteScenario(t *testing.T) {
	s := newTestServer(t, nil)

	mediaID := s.create(t, "/medias", `{"title":"A","username":"b"}`)
	postID := s.create(t, "/posts", `{"title":"t","text":"x"}`)
	pubID := s.create(t, "/publications", fmt.Sprintf(`{"mediaId":%d,"postId":%d,"date":"3000-01-01"}`, mediaID, postID))

	w := s.do(t, http.MethodDelete, fmt.Sprintf("/medias/%d", mediaID), "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", decodeError(t, w).Code)

	w = s.do(t, http.MethodDelete, fmt.Sprintf("/posts/%d", postID), "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodDelete, fmt.Sprintf("/publications/%d", pubID), "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodDelete, fmt.Sprintf("/medias/%d", mediaID), "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodDelete, fmt.Sprintf("/posts/%d", postID), "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreatePublication(t *testing.T) {
	s := newTestServer(t, nil)

	mediaID := s.create(t, "/medias", `{"title":"A","username":"b"}`)
	postID := s.create(t, "/posts", `{"title":"t","text":"x"}`)

	date := s.date(time.Hour)
	id := s.create(t, "/publications", fmt.Sprintf(`{"mediaId":%d,"postId":%d,"date":%q}`, mediaID, postID, date))

	w := s.do(t, http.MethodGet, fmt.Sprintf("/publications/%d", id), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"id":%d,"mediaId":%d,"postId":%d,"date":%q}`, id, mediaID, postID, date), w.Body.String())

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"date in the past", fmt.Sprintf(`{"mediaId":%d,"postId":%d,"date":"1500-01-01"}`, mediaID, postID), http.StatusForbidden},
		{"unknown media", fmt.Sprintf(`{"mediaId":999,"postId":%d,"date":"3000-01-01"}`, postID), http.StatusNotFound},
		{"unknown post", fmt.Sprintf(`{"mediaId":%d,"postId":999,"date":"3000-01-01"}`, mediaID), http.StatusNotFound},
		{"zero media id", fmt.Sprintf(`{"mediaId":0,"postId":%d,"date":"3000-01-01"}`, postID), http.StatusBadRequest},
		{"negative post id", fmt.Sprintf(`{"mediaId":%d,"postId":-3,"date":"3000-01-01"}`, mediaID), http.StatusBadRequest},
		{"fractional media id", fmt.Sprintf(`{"mediaId":1.5,"postId":%d,"date":"3000-01-01"}`, postID), http.StatusBadRequest},
		{"string media id", fmt.Sprintf(`{"mediaId":"1","postId":%d,"date":"3000-01-01"}`, postID), http.StatusBadRequest},
		{"unparseable date", fmt.Sprintf(`{"mediaId":%d,"postId":%d,"date":"someday"}`, mediaID, postID), http.StatusBadRequest},
		{"empty date", fmt.Sprintf(`{"mediaId":%d,"postId":%d,"date":""}`, mediaID, postID), http.StatusBadRequest},
		{"numeric date", fmt.Sprintf(`{"mediaId":%d,"postId":%d,"date":3000}`, mediaID, postID), http.StatusBadRequest},
		{"extra key", fmt.Sprintf(`{"mediaId":%d,"postId":%d,"date":"3000-01-01","status":"x"}`, mediaID, postID), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/publications", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestUpdatePublication(t *testing.T) {
	s := newTestServer(t, nil)

	mediaID := s.create(t, "/medias", `{"title":"A","username":"b"}`)
	postID := s.create(t, "/posts", `{"title":"t","text":"x"}`)
	otherPost := s.create(t, "/posts", `{"title":"t2","text":"x2"}`)
	id := s.create(t, "/publications", fmt.Sprintf(`{"mediaId":%d,"postId":%d,"date":%q}`, mediaID, postID, s.date(time.Hour)))
	path := fmt.Sprintf("/publications/%d", id)

	newDate := s.date(2 * time.Hour)
	w := s.do(t, http.MethodPatch, path, fmt.Sprintf(`{"mediaId":%d,"postId":%d,"date":%q}`, mediaID, otherPost, newDate))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, fmt.Sprintf(`{"id":%d,"mediaId":%d,"postId":%d,"date":%q}`, id, mediaID, otherPost, newDate), w.Body.String())

	w = s.do(t, http.MethodPatch, path, fmt.Sprintf(`{"mediaId":%d,"postId":%d,"date":"1500-01-01"}`, mediaID, postID))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPatch, path, fmt.Sprintf(`{"mediaId":999,"postId":%d,"date":"3000-01-01"}`, postID))
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Once its date passes the publication is frozen
	s.clock.Advance(3 * time.Hour)
	w = s.do(t, http.MethodPatch, path, fmt.Sprintf(`{"mediaId":%d,"postId":%d,"date":"3000-01-01"}`, mediaID, postID))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, decodeError(t, w).Message, "already published")

	// but can still be deleted
	w = s.do(t, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListPublicationsFilters(t *testing.T) {
	s := newTestServer(t, nil)

	mediaID := s.create(t, "/medias", `{"title":"A","username":"b"}`)
	postID := s.create(t, "/posts", `{"title":"t","text":"x"}`)

	var ids []int64
	for _, d := range []time.Duration{time.Hour, 2 * time.Hour, 3 * time.Hour} {
		body := fmt.Sprintf(`{"mediaId":%d,"postId":%d,"date":%q}`, mediaID, postID, s.date(d))
		ids = append(ids, s.create(t, "/publications", body))
	}
	start := s.clock.Now()

	// The first two are now published, the second exactly on the boundary
	s.clock.Advance(2 * time.Hour)
	after := start.Add(90 * time.Minute).Format(time.RFC3339)

	tests := []struct {
		name  string
		query string
		want  []int64
	}{
		{"no filter", "", ids},
		{"published", "?published=true", ids[:2]},
		{"scheduled", "?published=false", ids[2:]},
		{"after", "?after=" + after, ids[1:]},
		{"published after", "?published=true&after=" + after, ids[1:2]},
		{"scheduled after", "?published=false&after=" + after, ids[2:]},
		{"after in the future", "?published=false&after=3000-01-01", []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodGet, "/publications"+tt.query, "")
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			var list []PublicationDTO
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))

			got := make([]int64, 0, len(list))
			for _, p := range list {
				got = append(got, p.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}

	for _, query := range []string{"?published=yes", "?published=", "?published=TRUE", "?after=soon", "?after="} {
		t.Run("invalid "+query, func(t *testing.T) {
			w := s.do(t, http.MethodGet, "/publications"+query, "")
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "VALIDATION_ERROR", decodeError(t, w).Code)
		})
	}
}

func TestRateLimit(t *testing.T) {
	limiter := &MockLimiter{}
	limiter.On("Allow", mock.Anything, "192.0.2.1").Return(false, nil)

	s := newTestServer(t, limiter)

	w := s.do(t, http.MethodGet, "/medias", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "RATE_LIMITED", decodeError(t, w).Code)
	assert.Equal(t, 1, s.metrics.rateLimited)
	limiter.AssertExpectations(t)
}

func TestRateLimitFailsOpen(t *testing.T) {
	limiter := &MockLimiter{}
	limiter.On("Allow", mock.Anything, mock.Anything).Return(false, errors.New("connection refused"))
	limiter.On("Backend").Return("redis")

	s := newTestServer(t, limiter)

	w := s.do(t, http.MethodGet, "/medias", "")
	assert.Equal(t, http.StatusOK, w.Code)
	limiter.AssertExpectations(t)
}

func TestCORSMirrorsUnlistedOrigin(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/medias", nil)
	req.Header.Set("Origin", "http://192.168.1.20:3000")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://192.168.1.20:3000", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsUseRoutePattern(t *testing.T) {
	s := newTestServer(t, nil)
	id := s.create(t, "/medias", `{"title": "instagram", "username": "alice"}`)

	s.do(t, http.MethodGet, fmt.Sprintf("/medias/%d", id), "")
	s.do(t, http.MethodGet, "/nowhere", "")

	s.metrics.mu.Lock()
	defer s.metrics.mu.Unlock()
	require.Len(t, s.metrics.routes, 3)
	assert.True(t, strings.HasPrefix(s.metrics.routes[0], "POST /medias"), s.metrics.routes[0])
	assert.Equal(t, "GET /medias/{id}", s.metrics.routes[1])
	assert.Equal(t, "GET unmatched", s.metrics.routes[2])
}

func TestSecurityHeaders(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodGet, "/medias", "")
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.NotEmpty(t, w.Header().Get("Content-Security-Policy"))
}

func TestRecovererAnswersJSON(t *testing.T) {
	m := NewMiddleware(zap.NewNop().Sugar(), &MockMetrics{}, ratelimit.NewLocal(60))
	handler := m.Recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/medias", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_ERROR", decodeError(t, w).Code)
}
