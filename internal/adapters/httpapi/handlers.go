package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/Guilhem-Bonnet/daylive/internal/app"
	"github.com/Guilhem-Bonnet/daylive/internal/buildinfo"
	"github.com/Guilhem-Bonnet/daylive/internal/httpjson"
	"github.com/rs/zerolog/hlog"
)

const defaultRequestTimeout = 30 * time.Second

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httpjson.Write(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	httpjson.Write(w, http.StatusOK, buildinfo.Current())
}

func accessLogFn(r *http.Request, status, size int, duration time.Duration) {
	logger := hlog.FromRequest(r)
	logger.Info().
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg("http")
}

// writeAppError traduit les erreurs du moteur en réponses HTTP.
// Un planning invalide n'expose jamais le détail: "content unavailable".
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	code := app.ErrorCode(err)
	switch {
	case code == app.CodeInvalidSchedule:
		hlog.FromRequest(r).Warn().Err(err).Msg("invalid schedule")
		httpjson.WriteCodedError(w, http.StatusUnprocessableEntity, code, "content unavailable")
	case code == app.CodeNotFound:
		httpjson.WriteCodedError(w, http.StatusNotFound, code, "not found")
	case code == app.CodeInvalidParams:
		httpjson.WriteCodedError(w, http.StatusBadRequest, code, err.Error())
	case code == app.CodeSessionClosed:
		httpjson.WriteCodedError(w, http.StatusGone, code, "session closed")
	case errors.Is(err, app.ErrTooManySessions):
		httpjson.WriteError(w, http.StatusServiceUnavailable, err.Error())
	default:
		hlog.FromRequest(r).Error().Err(err).Msg("request failed")
		httpjson.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}
