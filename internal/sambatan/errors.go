package sambatan

import "errors"

var (
	ErrPoolNotFound        = errors.New("pool not found")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrProductNotFound     = errors.New("product not found")

	ErrInvalidTarget          = errors.New("target quantity must be at least 2")
	ErrInvalidMaxParticipants = errors.New("max participants must be >= target quantity")
	ErrInvalidQuantity        = errors.New("invalid quantity")
	ErrInvalidProofRef        = errors.New("proof ref required")

	ErrPoolNotOpen             = errors.New("pool is not open")
	ErrPoolExpired             = errors.New("pool has expired")
	ErrQuotaExceeded           = errors.New("quota exceeded")
	ErrParticipantLimitReached = errors.New("participant limit reached")
	ErrAlreadyJoined           = errors.New("participant already joined")
	ErrInvalidTransition       = errors.New("invalid status transition")

	ErrNotAuthorized = errors.New("actor is not the initiator or an admin")

	ErrRetryExhausted = errors.New("retries exhausted under contention")

	// errSerialization menandai konflik transaksi yg boleh di-retry oleh service.
	errSerialization = errors.New("serialization conflict")
)

// Retryable reports whether the repository hit a transient transaction
// conflict that the caller may retry.
func Retryable(err error) bool {
	return errors.Is(err, errSerialization)
}
