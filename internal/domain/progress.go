package domain

import "time"

type CompletionSource string

const (
	SourcePlayer   CompletionSource = "player"
	SourcePoll     CompletionSource = "poll"
	SourceFallback CompletionSource = "fallback"
	SourceManual   CompletionSource = "manual"
)

// ProgressRecord est absent tant qu'aucun signal de fin n'a été reçu.
// Une fois Completed=true, il ne repasse jamais à false.
type ProgressRecord struct {
	ContentUnitID string
	Completed     bool
	CompletedAt   time.Time
	Source        CompletionSource
}
