package spots

import "errors"

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrInvalidCoordinate   = errors.New("invalid coordinate")
	ErrNotFound            = errors.New("not found")
	ErrRateLimitExceeded   = errors.New("rate limit exceeded")
	ErrOutOfRange          = errors.New("out of range")
	ErrDuplicateSubmission = errors.New("duplicate submission")
	ErrChallengeInactive   = errors.New("challenge inactive")
	ErrUserExists          = errors.New("user already registered")

	// ErrAlreadyProcessed reports a lost conditional write on a submission
	// that is no longer pending.
	ErrAlreadyProcessed = errors.New("submission already processed")

	ErrStorageTimeout  = errors.New("storage timeout")
	ErrStorageConflict = errors.New("storage conflict")
)

const (
	ReasonRateLimit  = "rate_limit_exceeded"
	ReasonOutOfRange = "out_of_range"
	ReasonDuplicate  = "duplicate_submission"
	ReasonInactive   = "challenge_inactive"
	ReasonVelocity   = "implausible_velocity"
)

// ReasonFor maps a rejection error to its stored reason code.
func ReasonFor(err error) string {
	switch {
	case errors.Is(err, ErrRateLimitExceeded):
		return ReasonRateLimit
	case errors.Is(err, ErrOutOfRange):
		return ReasonOutOfRange
	case errors.Is(err, ErrDuplicateSubmission):
		return ReasonDuplicate
	case errors.Is(err, ErrChallengeInactive):
		return ReasonInactive
	}
	return ""
}

// Retryable reports whether err is an infrastructure failure that is safe
// to retry.
func Retryable(err error) bool {
	return errors.Is(err, ErrStorageTimeout) || errors.Is(err, ErrStorageConflict)
}
