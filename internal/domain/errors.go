package domain

import "errors"

// Domain errors
var (
	ErrNotFound            = errors.New("not found")
	ErrInsufficientPlayers = errors.New("not enough players to form a match")
	ErrBusyCourts          = errors.New("all courts are busy")
	ErrAlreadyScored       = errors.New("match already has a recorded result")
	ErrDuplicatePlayer     = errors.New("player is already in this match")
	ErrInvalidScore        = errors.New("invalid score value")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrInvalidStatus       = errors.New("invalid tournament status")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInternalError       = errors.New("internal server error")
)

// Not-found errors for specific entities. All of them match ErrNotFound.
var (
	ErrPlayerNotFound     = notFound("player not found")
	ErrTournamentNotFound = notFound("tournament not found")
	ErrMatchNotFound      = notFound("match not found")
	ErrEnrollmentNotFound = notFound("player is not enrolled in tournament")
)

type notFoundError struct{ msg string }

func notFound(msg string) error { return &notFoundError{msg: msg} }

func (e *notFoundError) Error() string { return e.msg }

func (e *notFoundError) Is(target error) bool { return target == ErrNotFound }

// IsNotFoundError checks if an error is a not-found type error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflictError reports errors caused by the current state of a match or
// court rather than by the request itself.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrBusyCourts) ||
		errors.Is(err, ErrAlreadyScored) ||
		errors.Is(err, ErrDuplicatePlayer)
}

// IsUserError reports errors the caller can fix by changing the request.
func IsUserError(err error) bool {
	return errors.Is(err, ErrInvalidScore) ||
		errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrInsufficientPlayers)
}
