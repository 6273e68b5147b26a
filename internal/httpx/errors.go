package httpx

import (
	"errors"
	"net/http"

	"github.com/ariefcatur/go-sambatan-pool.git/internal/sambatan"
)

func statusFromErr(err error) int {
	switch {
	case errors.Is(err, sambatan.ErrPoolNotFound),
		errors.Is(err, sambatan.ErrParticipantNotFound),
		errors.Is(err, sambatan.ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, sambatan.ErrInvalidTarget),
		errors.Is(err, sambatan.ErrInvalidMaxParticipants),
		errors.Is(err, sambatan.ErrInvalidQuantity),
		errors.Is(err, sambatan.ErrInvalidProofRef):
		return http.StatusBadRequest
	case errors.Is(err, sambatan.ErrPoolNotOpen),
		errors.Is(err, sambatan.ErrPoolExpired),
		errors.Is(err, sambatan.ErrQuotaExceeded),
		errors.Is(err, sambatan.ErrParticipantLimitReached),
		errors.Is(err, sambatan.ErrAlreadyJoined),
		errors.Is(err, sambatan.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, sambatan.ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, sambatan.ErrRetryExhausted):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// outcome collapses an error into a short metrics label.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, sambatan.ErrQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(err, sambatan.ErrAlreadyJoined):
		return "already_joined"
	case errors.Is(err, sambatan.ErrPoolExpired):
		return "expired"
	case errors.Is(err, sambatan.ErrPoolNotOpen):
		return "not_open"
	case errors.Is(err, sambatan.ErrParticipantLimitReached):
		return "participant_limit"
	case errors.Is(err, sambatan.ErrRetryExhausted):
		return "retry_exhausted"
	}
	return "error"
}
