package crowd

import "errors"

var (
	// ErrRateLimited means the fingerprint exceeded its report ceiling.
	// Callers should ask the client to retry after the limiter window.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrMalformedConfiguration means the configuration is empty after
	// normalization.
	ErrMalformedConfiguration = errors.New("configuration is empty after normalization")

	// ErrPersistence matches every *PersistenceError.
	ErrPersistence = errors.New("persistence failure")
)

// PersistenceError wraps a store failure.  Nothing was committed; the
// caller may retry the whole operation.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrPersistence) true.
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

func persistence(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}
