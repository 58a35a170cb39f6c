package app

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/Guilhem-Bonnet/daylive/internal/domain"
	"github.com/Guilhem-Bonnet/daylive/internal/ports"
	"github.com/rs/zerolog"
)

// CompletionRequest décrit un signal de fin. Seul ContentUnitID sert de clé;
// SubscriptionID et DayIndex ne servent qu'à l'événement publié.
type CompletionRequest struct {
	ContentUnitID  string
	SubscriptionID string
	DayIndex       int
	Source         domain.CompletionSource
}

type CompletionEvent struct {
	ContentUnitID  string                  `json:"contentUnitId"`
	SubscriptionID string                  `json:"subscriptionId,omitempty"`
	DayIndex       int                     `json:"dayIndex,omitempty"`
	Source         domain.CompletionSource `json:"source"`
	CompletedAt    time.Time               `json:"completedAt"`
}

// CompletionAggregator est l'unique point d'écriture du ProgressStore.
// Les trois signaux (player, poll, fallback) et le bouton "terminer" passent tous
// par MarkCompleted: le premier appel gagne, les suivants ne changent rien.
// Aucun état par contenu n'est gardé ici hors des hooks: le store fait foi.
type CompletionAggregator struct {
	logger zerolog.Logger
	store  ports.ProgressStore
	bus    ports.EventBus
	clock  ports.Clock

	mu       sync.Mutex
	hooks    map[string]map[int]func(domain.ProgressRecord)
	nextHook int
}

func NewCompletionAggregator(logger zerolog.Logger, store ports.ProgressStore, bus ports.EventBus, clock ports.Clock) *CompletionAggregator {
	return &CompletionAggregator{
		logger: logger,
		store:  store,
		bus:    bus,
		clock:  clock,
		hooks:  map[string]map[int]func(domain.ProgressRecord){},
	}
}

// OnCompleted enregistre fn, appelée une fois le contenu marqué terminé
// (typiquement pour couper ses timers). cancel retire le hook.
func (a *CompletionAggregator) OnCompleted(contentUnitID string, fn func(domain.ProgressRecord)) (cancel func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nextHook++
	id := a.nextHook
	if a.hooks[contentUnitID] == nil {
		a.hooks[contentUnitID] = map[int]func(domain.ProgressRecord){}
	}
	a.hooks[contentUnitID][id] = fn
	return func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		delete(a.hooks[contentUnitID], id)
		if len(a.hooks[contentUnitID]) == 0 {
			delete(a.hooks, contentUnitID)
		}
	}
}

// MarkCompleted renvoie created=true uniquement pour l'appel qui a écrit le record.
func (a *CompletionAggregator) MarkCompleted(ctx context.Context, req CompletionRequest) (domain.ProgressRecord, bool, error) {
	id := strings.TrimSpace(req.ContentUnitID)
	if id == "" {
		return domain.ProgressRecord{}, false, &CodedError{Code: CodeInvalidParams, Message: "missing content unit id"}
	}
	if req.Source == "" {
		req.Source = domain.SourceManual
	}

	a.mu.Lock()
	// Lecture puis écriture sous le verrou: deux signaux concurrents ne peuvent
	// pas produire deux records différents, même si le store n'est pas conditionnel.
	// Une erreur de lecture laisse l'écriture trancher.
	rec, err := a.store.Get(ctx, id)
	created := false
	if err != nil || !rec.Completed {
		rec, created, err = a.store.MarkCompleted(ctx, id, a.clock.Now(), req.Source)
		if err != nil {
			a.mu.Unlock()
			return domain.ProgressRecord{}, false, err
		}
	}
	hooks := make([]func(domain.ProgressRecord), 0, len(a.hooks[id]))
	for _, fn := range a.hooks[id] {
		hooks = append(hooks, fn)
	}
	a.mu.Unlock()

	if created {
		a.logger.Info().
			Str("content_unit_id", id).
			Str("source", string(req.Source)).
			Time("completed_at", rec.CompletedAt).
			Msg("content unit completed")
		a.publish(CompletionEvent{
			ContentUnitID:  id,
			SubscriptionID: req.SubscriptionID,
			DayIndex:       req.DayIndex,
			Source:         rec.Source,
			CompletedAt:    rec.CompletedAt,
		})
	}
	for _, fn := range hooks {
		fn(rec)
	}
	return rec, created, nil
}

func (a *CompletionAggregator) publish(evt CompletionEvent) {
	if a.bus == nil {
		return
	}
	b, err := json.Marshal(evt)
	if err != nil {
		return
	}
	a.bus.Publish(ports.TopicProgressCompleted, b)
}
