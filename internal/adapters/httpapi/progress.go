package httpapi

import (
	"net/http"

	"github.com/Guilhem-Bonnet/daylive/internal/httpjson"
	"github.com/Guilhem-Bonnet/daylive/internal/ports"
	"github.com/go-chi/chi/v5"
)

type ProgressHandler struct {
	store ports.ProgressStore
}

func NewProgressHandler(store ports.ProgressStore) *ProgressHandler {
	return &ProgressHandler{store: store}
}

func (h *ProgressHandler) Routes(r chi.Router) {
	r.Get("/progress", h.list)
}

type progressDTO struct {
	Completed   bool   `json:"completed"`
	CompletedAt int64  `json:"completedAt"`
	Source      string `json:"source,omitempty"`
}

// list renvoie le même format que le fichier de progression: { "<unitId>": {completed, completedAt(ms)} }.
func (h *ProgressHandler) list(w http.ResponseWriter, r *http.Request) {
	recs, err := h.store.List(r.Context())
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	out := make(map[string]progressDTO, len(recs))
	for _, rec := range recs {
		dto := progressDTO{Completed: rec.Completed, Source: string(rec.Source)}
		if !rec.CompletedAt.IsZero() {
			dto.CompletedAt = rec.CompletedAt.UnixMilli()
		}
		out[rec.ContentUnitID] = dto
	}
	httpjson.Write(w, http.StatusOK, out)
}
