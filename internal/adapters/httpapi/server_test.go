package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Guilhem-Bonnet/daylive/internal/adapters/memorybus"
	"github.com/Guilhem-Bonnet/daylive/internal/adapters/sqlite"
	"github.com/Guilhem-Bonnet/daylive/internal/app"
	"github.com/Guilhem-Bonnet/daylive/internal/clocktest"
	"github.com/Guilhem-Bonnet/daylive/internal/domain"
	"github.com/rs/zerolog"
)

const testPlayerOrigin = "https://player.example.com"

type testEnv struct {
	router   http.Handler
	clock    *clocktest.Clock
	sessions *app.SessionManager
	limiter  *app.SessionLimiter
}

func newTestEnv(t *testing.T, now time.Time) *testEnv {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	logger := zerolog.Nop()
	clock := clocktest.New(now)
	bus := memorybus.New()
	t.Cleanup(bus.Close)

	defaults := domain.DefaultSettings()
	defaults.Timezone = "UTC"
	defaults.PlayerOrigins = []string{testPlayerOrigin}

	subs := sqlite.NewSubscriptionsRepository(db.SQL)
	content := sqlite.NewContentRepository(db.SQL)
	progress := sqlite.NewProgressRepository(db.SQL)
	settings := app.NewSettingsService(sqlite.NewSettingsRepository(db.SQL, defaults), bus)
	durations := app.NewDurationResolver(logger, nil, content, 1)
	agg := app.NewCompletionAggregator(logger, progress, bus, clock)

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	seedSubs := []domain.Subscription{
		{ID: "sub-1", PlanType: "21-days", StartDate: start, IsActive: true},
		{ID: "sub-bad", PlanType: "21-days", StartDate: start, EndDate: start.AddDate(0, 0, -1), IsActive: true},
	}
	for _, s := range seedSubs {
		if _, err := subs.Upsert(ctx, s); err != nil {
			t.Fatalf("seed subscription: %v", err)
		}
	}
	seedUnits := []domain.ContentUnit{
		{ID: "d1", PlanType: "21-days", DayIndex: 1, Title: "Day 1", Duration: 30 * time.Minute},
		{ID: "d2", PlanType: "21-days", DayIndex: 2, Title: "Day 2"},
	}
	for _, u := range seedUnits {
		if _, err := content.Upsert(ctx, u); err != nil {
			t.Fatalf("seed content: %v", err)
		}
	}

	limiter := app.NewSessionLimiter(defaults.MaxSessions)
	sessions := app.NewSessionManager(logger, app.SessionDeps{
		Logger:        logger,
		Clock:         clock,
		Subscriptions: subs,
		Content:       content,
		Progress:      progress,
		Durations:     durations,
		Aggregator:    agg,
		Bus:           bus,
	}, settings, limiter)
	sessions.AcquireTimeout = 10 * time.Millisecond
	t.Cleanup(sessions.CloseAll)

	srv := NewServer(ServerDeps{
		Logger:            logger,
		Clock:             clock,
		Sessions:          sessions,
		Plans:             app.NewPlanService(subs, content, progress, durations, settings),
		Progress:          progress,
		Settings:          settings,
		Bus:               bus,
		OnSettingsUpdated: sessions.ApplySettings,
	})
	return &testEnv{router: srv.Router(), clock: clock, sessions: sessions, limiter: limiter}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, time.Now())
	rr := env.do(t, http.MethodGet, "/api/v1/health", nil, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: want 200, got %d", rr.Code)
	}
}

func TestOpenAPIListsSessionRoutes(t *testing.T) {
	env := newTestEnv(t, time.Now())
	rr := env.do(t, http.MethodGet, "/api/v1/openapi.json", nil, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: want 200, got %d", rr.Code)
	}
	doc := decode[map[string]any](t, rr)
	paths, _ := doc["paths"].(map[string]any)
	if _, ok := paths["/api/v1/sessions/{id}/player-events"]; !ok {
		t.Fatalf("missing player-events path")
	}
}
