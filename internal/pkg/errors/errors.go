package errors

import "errors"

// Sentinel errors shared across repo/service/handler layers. Provider
// failures map onto the three build-fate classes: bad credential and
// rejected requests abort the run, throttled requests are retried.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalid      = errors.New("invalid")
	ErrConflict     = errors.New("conflict")
	ErrTooMany      = errors.New("too many requests")
	ErrInternal     = errors.New("internal")
	ErrBuildRunning = errors.New("build already running")

	ErrBadCredential     = errors.New("invalid provider credential")
	ErrProviderThrottled = errors.New("provider throttled")
	ErrProviderRejected  = errors.New("provider rejected request")
	ErrGraphWrite        = errors.New("graph write failed")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsTransient reports whether the failure is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrProviderThrottled)
}

// IsFatalBuild reports whether the failure must abort the rest of a build run.
func IsFatalBuild(err error) bool {
	return errors.Is(err, ErrBadCredential) ||
		errors.Is(err, ErrProviderRejected) ||
		errors.Is(err, ErrGraphWrite)
}
