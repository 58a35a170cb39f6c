package domain

import "time"

// Settings regroupe les paramètres moteur modifiables à chaud.
// Les durées sont sérialisées en secondes pour rester lisibles dans la table settings.
type Settings struct {
	// Heure locale de déblocage quotidienne.
	UnlockHour   int    `json:"unlockHour"`
	UnlockMinute int    `json:"unlockMinute"`
	Timezone     string `json:"timezone"`

	// Fenêtre live.
	FallbackDurationSeconds int `json:"fallbackDurationSeconds"`
	MaxLiveWindowSeconds    int `json:"maxLiveWindowSeconds"`

	// Signaux de fin.
	PollIntervalSeconds    int `json:"pollIntervalSeconds"`
	FallbackTimeoutSeconds int `json:"fallbackTimeoutSeconds"`
	EndedToleranceSeconds  int `json:"endedToleranceSeconds"`

	// Origines acceptées pour les notifications du player. Vide = tout refuser.
	PlayerOrigins []string `json:"playerOrigins"`

	// Plafond de sessions ouvertes simultanément, ajustable à chaud.
	MaxSessions int `json:"maxSessions"`
}

func DefaultSettings() Settings {
	return Settings{
		UnlockHour:              21,
		UnlockMinute:            0,
		Timezone:                "Local",
		FallbackDurationSeconds: 2 * 60 * 60,
		MaxLiveWindowSeconds:    24 * 60 * 60,
		PollIntervalSeconds:     5,
		FallbackTimeoutSeconds:  30 * 60,
		EndedToleranceSeconds:   3,
		PlayerOrigins:           []string{},
		MaxSessions:             1000,
	}
}

// Normalize remplace les valeurs absentes ou invalides par les défauts.
func (s Settings) Normalize() Settings {
	def := DefaultSettings()
	if s.UnlockHour < 0 || s.UnlockHour > 23 {
		s.UnlockHour = def.UnlockHour
	}
	if s.UnlockMinute < 0 || s.UnlockMinute > 59 {
		s.UnlockMinute = def.UnlockMinute
	}
	if s.Timezone == "" {
		s.Timezone = def.Timezone
	}
	if _, err := time.LoadLocation(s.Timezone); err != nil {
		s.Timezone = def.Timezone
	}
	if s.FallbackDurationSeconds <= 0 {
		s.FallbackDurationSeconds = def.FallbackDurationSeconds
	}
	if s.MaxLiveWindowSeconds <= 0 {
		s.MaxLiveWindowSeconds = def.MaxLiveWindowSeconds
	}
	if s.PollIntervalSeconds <= 0 {
		s.PollIntervalSeconds = def.PollIntervalSeconds
	}
	if s.FallbackTimeoutSeconds <= 0 {
		s.FallbackTimeoutSeconds = def.FallbackTimeoutSeconds
	}
	if s.EndedToleranceSeconds < 0 {
		s.EndedToleranceSeconds = def.EndedToleranceSeconds
	}
	if s.MaxSessions <= 0 {
		s.MaxSessions = def.MaxSessions
	}
	if s.PlayerOrigins == nil {
		s.PlayerOrigins = []string{}
	}
	return s
}

func (s Settings) Schedule() Schedule {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil || s.Timezone == "" {
		loc = time.Local
	}
	return Schedule{UnlockHour: s.UnlockHour, UnlockMinute: s.UnlockMinute, Location: loc}
}

func (s Settings) LivePolicy() LivePolicy {
	return LivePolicy{
		FallbackDuration: time.Duration(s.FallbackDurationSeconds) * time.Second,
		MaxLiveWindow:    time.Duration(s.MaxLiveWindowSeconds) * time.Second,
	}
}

func (s Settings) PollInterval() time.Duration {
	return time.Duration(s.PollIntervalSeconds) * time.Second
}

func (s Settings) FallbackTimeout() time.Duration {
	return time.Duration(s.FallbackTimeoutSeconds) * time.Second
}

func (s Settings) EndedTolerance() time.Duration {
	return time.Duration(s.EndedToleranceSeconds) * time.Second
}
