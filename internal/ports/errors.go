package ports

import "errors"

var ErrNotFound = errors.New("not found")

var ErrConflict = errors.New("conflict")

// ErrPersistenceUnavailable: le stockage durable ne répond pas (lecture ou écriture).
var ErrPersistenceUnavailable = errors.New("persistence unavailable")

// ErrDurationUnavailable n'est pas une erreur fatale: la durée de repli s'applique.
var ErrDurationUnavailable = errors.New("duration unavailable")
