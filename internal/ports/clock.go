package ports

import "time"

type Timer interface {
	// Stop renvoie false si le timer avait déjà été arrêté ou s'il a expiré.
	Stop() bool
}

// Clock abstrait l'horloge murale et les timers pour pouvoir piloter le temps en test.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Timer
	// Every appelle fn toutes les d jusqu'à Stop.
	Every(d time.Duration, fn func()) Timer
}
