package httpapi

import (
	"net/http"

	"github.com/Guilhem-Bonnet/daylive/internal/app"
	"github.com/Guilhem-Bonnet/daylive/internal/httpjson"
	"github.com/Guilhem-Bonnet/daylive/internal/ports"
	"github.com/go-chi/chi/v5"
)

type PlanHandler struct {
	plans *app.PlanService
	clock ports.Clock
}

func NewPlanHandler(plans *app.PlanService, clock ports.Clock) *PlanHandler {
	return &PlanHandler{plans: plans, clock: clock}
}

func (h *PlanHandler) Routes(r chi.Router) {
	r.Get("/subscriptions/{id}/plan", h.get)
}

func (h *PlanHandler) get(w http.ResponseWriter, r *http.Request) {
	overview, err := h.plans.Overview(r.Context(), chi.URLParam(r, "id"), h.clock.Now())
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, overview)
}
