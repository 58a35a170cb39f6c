package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/Guilhem-Bonnet/daylive/internal/app"
	"github.com/Guilhem-Bonnet/daylive/internal/domain"
	"github.com/Guilhem-Bonnet/daylive/internal/ports"
)

type Server struct {
	logger   zerolog.Logger
	clock    ports.Clock
	sessions *app.SessionManager
	plans    *app.PlanService
	progress ports.ProgressStore
	settings *app.SettingsService
	bus      ports.EventBus
	// onSettingsUpdated est optionnel (ex: ajuster maxSessions).
	onSettingsUpdated func(domain.Settings)
}

type ServerDeps struct {
	Logger            zerolog.Logger
	Clock             ports.Clock
	Sessions          *app.SessionManager
	Plans             *app.PlanService
	Progress          ports.ProgressStore
	Settings          *app.SettingsService
	Bus               ports.EventBus
	OnSettingsUpdated func(domain.Settings)
}

func NewServer(deps ServerDeps) *Server {
	return &Server{
		logger:            deps.Logger,
		clock:             deps.Clock,
		sessions:          deps.Sessions,
		plans:             deps.Plans,
		progress:          deps.Progress,
		settings:          deps.Settings,
		bus:               deps.Bus,
		onSettingsUpdated: deps.OnSettingsUpdated,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(hlog.NewHandler(s.logger))
	r.Use(hlog.RequestIDHandler("request_id", "Request-Id"))
	r.Use(hlog.RemoteAddrHandler("remote_ip"))
	r.Use(hlog.UserAgentHandler("user_agent"))
	r.Use(hlog.AccessHandler(accessLogFn))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/version", s.handleVersion)
		r.Get("/openapi.json", s.handleOpenAPI)
		// Pas de timeout sur le flux SSE.
		r.Get("/events", s.handleEvents)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(defaultRequestTimeout))

			if s.settings != nil {
				NewSettingsHandler(s.settings, s.onSettingsUpdated).Routes(r)
			}
			if s.plans != nil {
				NewPlanHandler(s.plans, s.clock).Routes(r)
			}
			if s.sessions != nil {
				NewSessionsHandler(s.sessions, s.clock).Routes(r)
			}
			if s.progress != nil {
				NewProgressHandler(s.progress).Routes(r)
			}
		})
	})

	return r
}
