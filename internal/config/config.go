package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/Guilhem-Bonnet/daylive/internal/domain"
)

const (
	StoreSQLite = "sqlite"
	StoreJSON   = "json"
	StoreMemory = "memory"
)

// Config est lue depuis l'environnement (DAYLIVE_*). Les flags de cmd/daylive-server
// peuvent ensuite surcharger Addr et DBPath.
type Config struct {
	Addr     string `env:"DAYLIVE_ADDR" envDefault:"127.0.0.1:8080"`
	DBPath   string `env:"DAYLIVE_DB_PATH" envDefault:"daylive.db"`
	LogLevel string `env:"DAYLIVE_LOG_LEVEL" envDefault:"info"`

	// Store choisit où vit la progression: sqlite, json ou memory.
	Store        string `env:"DAYLIVE_STORE" envDefault:"sqlite"`
	ProgressFile string `env:"DAYLIVE_PROGRESS_FILE" envDefault:"progress.json"`

	// MediaBaseURL vide = durées jamais récupérées (repli systématique).
	MediaBaseURL      string  `env:"DAYLIVE_MEDIA_BASE_URL"`
	MaxDurationProbes int     `env:"DAYLIVE_MAX_DURATION_PROBES" envDefault:"4"`
	MediaRatePerSec   float64 `env:"DAYLIVE_MEDIA_RATE" envDefault:"5"`

	// Valeurs par défaut des réglages tant que rien n'a été enregistré via l'API.
	UnlockTime       string        `env:"DAYLIVE_UNLOCK_TIME" envDefault:"21:00"`
	Timezone         string        `env:"DAYLIVE_TIMEZONE" envDefault:"Local"`
	FallbackDuration time.Duration `env:"DAYLIVE_FALLBACK_DURATION" envDefault:"2h"`
	MaxLiveWindow    time.Duration `env:"DAYLIVE_MAX_LIVE_WINDOW" envDefault:"24h"`
	PlayerOrigins    []string      `env:"DAYLIVE_PLAYER_ORIGINS" envSeparator:","`
	MaxSessions      int           `env:"DAYLIVE_MAX_SESSIONS" envDefault:"1000"`

	SessionIdleTimeout time.Duration `env:"DAYLIVE_SESSION_IDLE_TIMEOUT" envDefault:"2h"`
}

// Default renvoie la configuration sans tenir compte de l'environnement.
func Default() Config {
	var cfg Config
	_ = env.ParseWithOptions(&cfg, env.Options{Environment: map[string]string{}})
	return cfg
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Store {
	case StoreSQLite, StoreJSON, StoreMemory:
	default:
		return fmt.Errorf("invalid DAYLIVE_STORE %q (sqlite|json|memory)", c.Store)
	}
	if c.Store == StoreJSON && strings.TrimSpace(c.ProgressFile) == "" {
		return errors.New("DAYLIVE_PROGRESS_FILE is required with DAYLIVE_STORE=json")
	}
	if _, _, err := parseClock(c.UnlockTime); err != nil {
		return fmt.Errorf("invalid DAYLIVE_UNLOCK_TIME: %w", err)
	}
	if c.FallbackDuration <= 0 || c.MaxLiveWindow <= 0 {
		return errors.New("DAYLIVE_FALLBACK_DURATION and DAYLIVE_MAX_LIVE_WINDOW must be positive")
	}
	return nil
}

// Settings convertit la config en réglages moteur par défaut.
func (c Config) Settings() domain.Settings {
	s := domain.DefaultSettings()
	if h, m, err := parseClock(c.UnlockTime); err == nil {
		s.UnlockHour = h
		s.UnlockMinute = m
	}
	if c.Timezone != "" {
		s.Timezone = c.Timezone
	}
	if c.FallbackDuration > 0 {
		s.FallbackDurationSeconds = int(c.FallbackDuration / time.Second)
	}
	if c.MaxLiveWindow > 0 {
		s.MaxLiveWindowSeconds = int(c.MaxLiveWindow / time.Second)
	}
	if len(c.PlayerOrigins) > 0 {
		s.PlayerOrigins = append([]string(nil), c.PlayerOrigins...)
	}
	if c.MaxSessions > 0 {
		s.MaxSessions = c.MaxSessions
	}
	return s.Normalize()
}

// parseClock lit "HH:MM".
func parseClock(v string) (int, int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(v), ":")
	if !ok {
		return 0, 0, fmt.Errorf("%q: expected HH:MM", v)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("%q: invalid hour", v)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("%q: invalid minute", v)
	}
	return h, m, nil
}
