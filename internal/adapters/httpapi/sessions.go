package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/Guilhem-Bonnet/daylive/internal/app"
	"github.com/Guilhem-Bonnet/daylive/internal/domain"
	"github.com/Guilhem-Bonnet/daylive/internal/httpjson"
	"github.com/Guilhem-Bonnet/daylive/internal/ports"
	"github.com/go-chi/chi/v5"
)

const maxPlayerMessageBytes = 64 << 10

type SessionsHandler struct {
	sessions *app.SessionManager
	clock    ports.Clock
}

func NewSessionsHandler(sessions *app.SessionManager, clock ports.Clock) *SessionsHandler {
	return &SessionsHandler{sessions: sessions, clock: clock}
}

func (h *SessionsHandler) Routes(r chi.Router) {
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.create)
		r.Get("/{id}", h.get)
		r.Delete("/{id}", h.delete)
		r.Put("/{id}/unit", h.activate)
		r.Get("/{id}/countdown", h.countdown)
		r.Post("/{id}/complete", h.complete)
		r.Post("/{id}/player-events", h.playerEvent)
	})
}

type createSessionRequest struct {
	SubscriptionID string `json:"subscriptionId"`
	ContentUnitID  string `json:"contentUnitId"`
}

func (h *SessionsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpjson.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}
	sess, err := h.sessions.Open(r.Context(), req.SubscriptionID, req.ContentUnitID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, sess.Snapshot(r.Context()))
}

func (h *SessionsHandler) session(w http.ResponseWriter, r *http.Request) (*app.Session, bool) {
	sess, err := h.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, r, err)
		return nil, false
	}
	return sess, true
}

// get réévalue l'état: c'est aussi le "heartbeat" du client.
func (h *SessionsHandler) get(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	httpjson.Write(w, http.StatusOK, sess.Refresh(r.Context()))
}

func (h *SessionsHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Close(chi.URLParam(r, "id")); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type activateRequest struct {
	ContentUnitID string `json:"contentUnitId"`
}

func (h *SessionsHandler) activate(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req activateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpjson.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := sess.Activate(r.Context(), req.ContentUnitID); err != nil {
		writeAppError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, sess.Snapshot(r.Context()))
}

type countdownResponse struct {
	State     domain.DerivedState `json:"state"`
	UnlockAt  time.Time           `json:"unlockAt"`
	Remaining domain.Remaining    `json:"remaining"`
	Display   string              `json:"display"`
}

func (h *SessionsHandler) countdown(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	sess.Touch()
	now := h.clock.Now()
	snap := sess.Snapshot(r.Context())
	rem := sess.RemainingUntilUnlock(now)
	httpjson.Write(w, http.StatusOK, countdownResponse{
		State:     snap.State,
		UnlockAt:  snap.UnlockAt,
		Remaining: rem,
		Display:   rem.String(),
	})
}

type completeResponse struct {
	ContentUnitID string    `json:"contentUnitId"`
	Completed     bool      `json:"completed"`
	CompletedAt   time.Time `json:"completedAt"`
	Source        string    `json:"source"`
}

func (h *SessionsHandler) complete(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	rec, err := sess.MarkCompleted(r.Context())
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, completeResponse{
		ContentUnitID: rec.ContentUnitID,
		Completed:     rec.Completed,
		CompletedAt:   rec.CompletedAt,
		Source:        string(rec.Source),
	})
}

// playerEvent relaie un message brut du player. Un message ignoré (origine
// inconnue, format invalide) n'est pas une erreur: 202 avec accepted=false.
func (h *SessionsHandler) playerEvent(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPlayerMessageBytes))
	if err != nil {
		httpjson.WriteError(w, http.StatusRequestEntityTooLarge, "message too large")
		return
	}
	sess.Touch()
	accepted := sess.Player().Dispatch(r.Header.Get("Origin"), raw)
	httpjson.Write(w, http.StatusAccepted, map[string]bool{"accepted": accepted})
}
