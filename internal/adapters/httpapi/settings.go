package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/Guilhem-Bonnet/daylive/internal/app"
	"github.com/Guilhem-Bonnet/daylive/internal/domain"
	"github.com/Guilhem-Bonnet/daylive/internal/httpjson"
	"github.com/go-chi/chi/v5"
)

type SettingsHandler struct {
	settings *app.SettingsService
	onPut    func(domain.Settings)
}

func NewSettingsHandler(settings *app.SettingsService, onPut func(domain.Settings)) *SettingsHandler {
	return &SettingsHandler{settings: settings, onPut: onPut}
}

func (h *SettingsHandler) Routes(r chi.Router) {
	r.Get("/settings", h.get)
	r.Put("/settings", h.put)
	// Variante avec slash final (utile selon reverse-proxy / clients).
	r.Get("/settings/", h.get)
	r.Put("/settings/", h.put)
}

func (h *SettingsHandler) get(w http.ResponseWriter, r *http.Request) {
	s, err := h.settings.Get(r.Context())
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, s)
}

func (h *SettingsHandler) put(w http.ResponseWriter, r *http.Request) {
	// Partir des réglages courants: un PUT partiel ne remet pas le reste aux défauts.
	s, err := h.settings.Get(r.Context())
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		httpjson.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := checkSettings(s); err != nil {
		writeAppError(w, r, &app.CodedError{Code: app.CodeInvalidParams, Message: err.Error()})
		return
	}
	updated, err := h.settings.Put(r.Context(), s)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if h.onPut != nil {
		h.onPut(updated)
	}
	httpjson.Write(w, http.StatusOK, updated)
}

// checkSettings refuse ce que Normalize corrigerait en silence.
func checkSettings(s domain.Settings) error {
	if s.UnlockHour < 0 || s.UnlockHour > 23 {
		return fmt.Errorf("unlockHour out of range: %d", s.UnlockHour)
	}
	if s.UnlockMinute < 0 || s.UnlockMinute > 59 {
		return fmt.Errorf("unlockMinute out of range: %d", s.UnlockMinute)
	}
	if _, err := time.LoadLocation(s.Timezone); err != nil {
		return fmt.Errorf("unknown timezone %q", s.Timezone)
	}
	for _, o := range s.PlayerOrigins {
		u, err := url.Parse(o)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid player origin %q", o)
		}
	}
	return nil
}
