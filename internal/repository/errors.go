package repository

import "errors"

// ErrDuplicateKey signals a uniqueness-constraint violation. Both backends
// return it from Create so the service layer can re-label a lost
// check-then-insert race as a duplicate enrollment.
var ErrDuplicateKey = errors.New("duplicate key")
