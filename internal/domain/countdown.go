package domain

import (
	"fmt"
	"time"
)

type Remaining struct {
	Days    int `json:"days"`
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

// RemainingUntil découpe le temps restant avant unlock, borné à zéro.
// Les secondes partielles sont arrondies à la seconde supérieure pour que
// le compteur n'affiche 0 qu'une fois l'instant atteint.
func RemainingUntil(unlock time.Time, now time.Time) Remaining {
	d := unlock.Sub(now)
	if d <= 0 {
		return Remaining{}
	}
	total := int64((d + time.Second - 1) / time.Second)
	return Remaining{
		Days:    int(total / 86400),
		Hours:   int(total % 86400 / 3600),
		Minutes: int(total % 3600 / 60),
		Seconds: int(total % 60),
	}
}

func (r Remaining) IsZero() bool {
	return r == Remaining{}
}

func (r Remaining) Duration() time.Duration {
	return time.Duration(r.Days)*24*time.Hour +
		time.Duration(r.Hours)*time.Hour +
		time.Duration(r.Minutes)*time.Minute +
		time.Duration(r.Seconds)*time.Second
}

func (r Remaining) String() string {
	if r.Days > 0 {
		return fmt.Sprintf("%dd %02d:%02d:%02d", r.Days, r.Hours, r.Minutes, r.Seconds)
	}
	return fmt.Sprintf("%02d:%02d:%02d", r.Hours, r.Minutes, r.Seconds)
}
