package services

import "errors"

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("already exists")
	ErrGamesLocked         = errors.New("games are locked")
	ErrNoPlaysLeft         = errors.New("no free plays left today")
	ErrInsufficientTokens  = errors.New("insufficient tokens")
	ErrAlreadyUnlocked     = errors.New("games already unlocked")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrAlreadySettled      = errors.New("already settled")
	ErrRateLimited         = errors.New("rate limit exceeded")
	ErrAlreadyMember       = errors.New("already a member")

	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// InputError marks a request that failed validation. Its message is safe to
// show to the caller.
type InputError struct {
	Err error
}

func (e *InputError) Error() string { return e.Err.Error() }

func (e *InputError) Unwrap() error { return e.Err }

func invalidInput(err error) error {
	return &InputError{Err: err}
}
