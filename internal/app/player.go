package app

import (
	"encoding/json"
	"net/url"
	"strings"
	"sync"

	"github.com/Guilhem-Bonnet/daylive/internal/ports"
	"github.com/rs/zerolog"
)

// PlayerRelay reçoit les messages bruts du player embarqué (relayés par la page),
// filtre par origine et ne diffuse que des PlayerEvent valides.
// Les messages illisibles ou d'origine inconnue sont ignorés sans erreur.
type PlayerRelay struct {
	logger zerolog.Logger

	mu        sync.Mutex
	origins   map[string]struct{}
	listeners map[int]func(ports.PlayerEvent)
	next      int
}

func NewPlayerRelay(logger zerolog.Logger, origins []string) *PlayerRelay {
	r := &PlayerRelay{logger: logger, listeners: map[int]func(ports.PlayerEvent){}}
	r.SetOrigins(origins)
	return r
}

func (r *PlayerRelay) SetOrigins(origins []string) {
	set := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		if n := normalizeOrigin(o); n != "" {
			set[n] = struct{}{}
		}
	}
	r.mu.Lock()
	r.origins = set
	r.mu.Unlock()
}

func (r *PlayerRelay) OnPlayerStateChange(fn func(ports.PlayerEvent)) func() {
	r.mu.Lock()
	r.next++
	id := r.next
	r.listeners[id] = fn
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.listeners, id)
			r.mu.Unlock()
		})
	}
}

// Listeners sert surtout aux tests: nombre de listeners attachés.
func (r *PlayerRelay) Listeners() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.listeners)
}

// Dispatch renvoie false si le message a été ignoré.
// transportOrigin (l'en-tête Origin posé par le navigateur) fait foi: il doit
// être autorisé. Une origine déclarée dans le corps doit l'être aussi, sans
// jamais remplacer celle du transport.
func (r *PlayerRelay) Dispatch(transportOrigin string, raw []byte) bool {
	evt, ok := ParsePlayerMessage(raw)
	if !ok {
		r.logger.Debug().Int("size", len(raw)).Msg("malformed player message dropped")
		return false
	}
	origin := normalizeOrigin(transportOrigin)

	r.mu.Lock()
	_, allowed := r.origins[origin]
	if allowed && evt.Origin != "" {
		_, allowed = r.origins[normalizeOrigin(evt.Origin)]
	}
	if !allowed {
		r.mu.Unlock()
		r.logger.Debug().Str("origin", transportOrigin).Str("declared_origin", evt.Origin).Msg("player message from unknown origin dropped")
		return false
	}
	evt.Origin = origin
	fns := make([]func(ports.PlayerEvent), 0, len(r.listeners))
	for _, fn := range r.listeners {
		fns = append(fns, fn)
	}
	r.mu.Unlock()

	for _, fn := range fns {
		fn(evt)
	}
	return true
}

type playerMessage struct {
	Origin        string   `json:"origin"`
	State         string   `json:"state"`
	CurrentTime   *float64 `json:"currentTime"`
	TotalDuration *float64 `json:"totalDuration"`

	// Format "infoDelivery" des players iframe (playerState: 0=ended, 1=playing, 2=paused).
	Event string `json:"event"`
	Info  *struct {
		PlayerState *int     `json:"playerState"`
		CurrentTime *float64 `json:"currentTime"`
		Duration    *float64 `json:"duration"`
	} `json:"info"`
}

// ParsePlayerMessage accepte {state,currentTime,totalDuration} ou le format infoDelivery.
func ParsePlayerMessage(raw []byte) (ports.PlayerEvent, bool) {
	var msg playerMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return ports.PlayerEvent{}, false
	}
	evt := ports.PlayerEvent{Origin: strings.TrimSpace(msg.Origin)}

	switch {
	case msg.State != "":
		switch ports.PlayerState(strings.ToLower(strings.TrimSpace(msg.State))) {
		case ports.PlayerPlaying:
			evt.State = ports.PlayerPlaying
		case ports.PlayerPaused:
			evt.State = ports.PlayerPaused
		case ports.PlayerEnded:
			evt.State = ports.PlayerEnded
		default:
			return ports.PlayerEvent{}, false
		}
		if msg.CurrentTime != nil {
			evt.CurrentTime = *msg.CurrentTime
		}
		if msg.TotalDuration != nil {
			evt.TotalDuration = *msg.TotalDuration
		}
	case msg.Event == "infoDelivery" && msg.Info != nil:
		if msg.Info.PlayerState == nil {
			// Mise à jour de position sans état: on la traite comme "playing".
			evt.State = ports.PlayerPlaying
		} else {
			switch *msg.Info.PlayerState {
			case 0:
				evt.State = ports.PlayerEnded
			case 1:
				evt.State = ports.PlayerPlaying
			case 2:
				evt.State = ports.PlayerPaused
			default:
				return ports.PlayerEvent{}, false
			}
		}
		if msg.Info.CurrentTime != nil {
			evt.CurrentTime = *msg.Info.CurrentTime
		}
		if msg.Info.Duration != nil {
			evt.TotalDuration = *msg.Info.Duration
		}
	default:
		return ports.PlayerEvent{}, false
	}

	if evt.CurrentTime < 0 || evt.TotalDuration < 0 {
		return ports.PlayerEvent{}, false
	}
	return evt, true
}

func normalizeOrigin(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host)
}
