package mediahttp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Guilhem-Bonnet/daylive/internal/ports"
	"golang.org/x/time/rate"
)

var ErrNotConfigured = errors.New("media host not configured")

// DurationSource interroge l'hébergeur vidéo: GET {base}/media/{ref}/meta -> {"durationSeconds": n}.
type DurationSource struct {
	baseURL string
	client  *http.Client

	// RateLimiter borne le débit vers l'hébergeur (nil = illimité).
	RateLimiter *rate.Limiter
}

// NewDurationSource limite à perSecond requêtes par seconde (<= 0: pas de limite).
func NewDurationSource(baseURL string, perSecond float64) *DurationSource {
	s := &DurationSource{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	if perSecond > 0 {
		s.RateLimiter = rate.NewLimiter(rate.Limit(perSecond), max(1, int(perSecond)))
	}
	return s
}

func (s *DurationSource) WithClient(c *http.Client) *DurationSource {
	if c != nil {
		s.client = c
	}
	return s
}

type mediaMeta struct {
	DurationSeconds *float64 `json:"durationSeconds"`
}

func (s *DurationSource) Duration(ctx context.Context, mediaRef string) (time.Duration, error) {
	if s.baseURL == "" {
		return 0, fmt.Errorf("%w: %w", ports.ErrDurationUnavailable, ErrNotConfigured)
	}
	mediaRef = strings.TrimSpace(mediaRef)
	if mediaRef == "" {
		return 0, fmt.Errorf("%w: empty media ref", ports.ErrDurationUnavailable)
	}

	if s.RateLimiter != nil {
		if err := s.RateLimiter.Wait(ctx); err != nil {
			return 0, fmt.Errorf("%w: rate limit: %v", ports.ErrDurationUnavailable, err)
		}
	}

	endpoint := s.baseURL + "/media/" + url.PathEscape(mediaRef) + "/meta"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "daylive-server")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return 0, fmt.Errorf("%w: media %q not found", ports.ErrDurationUnavailable, mediaRef)
	}
	if resp.StatusCode >= 400 {
		return 0, errors.New("media host http error: " + resp.Status)
	}

	var meta mediaMeta
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&meta); err != nil {
		return 0, fmt.Errorf("%w: decode meta: %v", ports.ErrDurationUnavailable, err)
	}
	if meta.DurationSeconds == nil || *meta.DurationSeconds <= 0 || math.IsNaN(*meta.DurationSeconds) || math.IsInf(*meta.DurationSeconds, 0) {
		return 0, fmt.Errorf("%w: media %q has no duration", ports.ErrDurationUnavailable, mediaRef)
	}
	return time.Duration(*meta.DurationSeconds * float64(time.Second)), nil
}
