package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/Guilhem-Bonnet/daylive/internal/domain"
	"github.com/Guilhem-Bonnet/daylive/internal/ports"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

// DurationResolver récupère la durée d'un média à la demande et la garde en cache
// une fois connue. Une durée absente n'est pas une erreur: l'appelant applique la
// durée de repli.
type DurationResolver struct {
	logger  zerolog.Logger
	source  ports.DurationSource
	content ports.ContentRepository

	// Timeout par requête vers la source.
	Timeout time.Duration

	group singleflight.Group
	sem   *semaphore.Weighted

	mu    sync.RWMutex
	cache map[string]time.Duration
}

func NewDurationResolver(logger zerolog.Logger, source ports.DurationSource, content ports.ContentRepository, maxConcurrent int) *DurationResolver {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &DurationResolver{
		logger:  logger,
		source:  source,
		content: content,
		Timeout: 5 * time.Second,
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
		cache:   map[string]time.Duration{},
	}
}

func cacheKey(unit domain.ContentUnit) string {
	if ref := strings.TrimSpace(unit.MediaRef); ref != "" {
		return ref
	}
	return "unit:" + unit.ID
}

func (r *DurationResolver) Cached(unit domain.ContentUnit) (time.Duration, bool) {
	if d, ok := unit.KnownDuration(); ok {
		return d, true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.cache[cacheKey(unit)]
	return d, ok
}

// Resolve renvoie (0, false) quand la durée reste inconnue.
func (r *DurationResolver) Resolve(ctx context.Context, unit domain.ContentUnit) (time.Duration, bool) {
	if d, ok := r.Cached(unit); ok {
		return d, true
	}
	if r.source == nil || strings.TrimSpace(unit.MediaRef) == "" {
		return 0, false
	}

	key := cacheKey(unit)
	v, err, _ := r.group.Do(key, func() (any, error) {
		if err := r.sem.Acquire(ctx, 1); err != nil {
			return time.Duration(0), err
		}
		defer r.sem.Release(1)

		fetchCtx := ctx
		if r.Timeout > 0 {
			var cancel context.CancelFunc
			fetchCtx, cancel = context.WithTimeout(ctx, r.Timeout)
			defer cancel()
		}
		d, err := r.source.Duration(fetchCtx, unit.MediaRef)
		if err != nil {
			return time.Duration(0), err
		}
		return d, nil
	})
	if err != nil {
		if errors.Is(err, ports.ErrDurationUnavailable) {
			r.logger.Debug().Str("media_ref", unit.MediaRef).Msg("duration unavailable, using fallback")
		} else {
			r.logger.Warn().Err(err).Str("media_ref", unit.MediaRef).Msg("duration lookup failed, using fallback")
		}
		return 0, false
	}
	d, _ := v.(time.Duration)
	if d <= 0 {
		return 0, false
	}
	r.Remember(ctx, unit, d)
	return d, true
}

// Remember enregistre une durée apprise ailleurs (ex: le player annonce la durée totale).
func (r *DurationResolver) Remember(ctx context.Context, unit domain.ContentUnit, d time.Duration) {
	if d <= 0 {
		return
	}
	key := cacheKey(unit)
	r.mu.Lock()
	_, known := r.cache[key]
	r.cache[key] = d
	r.mu.Unlock()
	if known || r.content == nil || unit.ID == "" {
		return
	}
	// Best-effort: la durée reste en cache mémoire même si l'écriture échoue.
	if err := r.content.SetDuration(ctx, unit.ID, d); err != nil {
		r.logger.Warn().Err(err).Str("content_unit_id", unit.ID).Msg("failed to persist duration")
	}
}
