package ports

type PlayerState string

const (
	PlayerPlaying PlayerState = "playing"
	PlayerPaused  PlayerState = "paused"
	PlayerEnded   PlayerState = "ended"
)

// PlayerEvent est une notification du player embarqué.
// CurrentTime et TotalDuration sont en secondes.
type PlayerEvent struct {
	Origin        string      `json:"origin"`
	State         PlayerState `json:"state"`
	CurrentTime   float64     `json:"currentTime"`
	TotalDuration float64     `json:"totalDuration"`
}

// PlayerEvents est une source de notifications déjà filtrée par origine.
type PlayerEvents interface {
	OnPlayerStateChange(fn func(PlayerEvent)) (detach func())
}
