package httpapi

import (
	"net/http"
	"testing"
	"time"

	"github.com/Guilhem-Bonnet/daylive/internal/domain"
)

func TestSettingsHandler_PutUpdatesSessionLimit(t *testing.T) {
	env := newTestEnv(t, time.Now())

	rr := env.do(t, http.MethodPut, "/api/v1/settings", `{"maxSessions":2,"unlockHour":7}`, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: want %d, got %d", http.StatusOK, rr.Code)
	}
	if env.limiter.Limit() != 2 {
		t.Fatalf("limiter limit: want %d, got %d", 2, env.limiter.Limit())
	}

	got := decode[domain.Settings](t, rr)
	if got.UnlockHour != 7 {
		t.Fatalf("UnlockHour: want 7, got %d", got.UnlockHour)
	}
	// PUT partiel: le reste est conservé.
	if got.Timezone != "UTC" || len(got.PlayerOrigins) != 1 {
		t.Fatalf("partial PUT reset other fields: %+v", got)
	}
}

func TestSettingsHandler_RejectsInvalidInput(t *testing.T) {
	env := newTestEnv(t, time.Now())
	cases := map[string]string{
		"malformed":     `{`,
		"unknown field": `{"unlockAt":"21:00"}`,
		"hour":          `{"unlockHour":25}`,
		"timezone":      `{"timezone":"Mars/Olympus"}`,
		"origin":        `{"playerOrigins":["not an origin"]}`,
	}
	for name, body := range cases {
		rr := env.do(t, http.MethodPut, "/api/v1/settings", body, nil)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: status want 400, got %d", name, rr.Code)
		}
	}

	rr := env.do(t, http.MethodGet, "/api/v1/settings", "", nil)
	if got := decode[domain.Settings](t, rr); got.UnlockHour != 21 || got.Timezone != "UTC" {
		t.Fatalf("rejected PUT must not change settings: %+v", got)
	}
}
