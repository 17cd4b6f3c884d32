package registry

import "errors"

var (
	// ErrNotAuthorized marks mutations attempted without the required owner or
	// verifier role.
	ErrNotAuthorized = errors.New("registry: not authorized")
	// ErrAlreadyRegistered marks repeated registration attempts for the same
	// account.
	ErrAlreadyRegistered = errors.New("registry: farmer already registered")
	// ErrNotRegistered marks operations requiring a farmer record that does
	// not exist.
	ErrNotRegistered = errors.New("registry: farmer not registered")
	// ErrInvalidPractice marks verifications referencing an unknown or
	// inactive practice.
	ErrInvalidPractice = errors.New("registry: invalid practice")
	// ErrCooldownActive marks claims attempted before the cooldown window has
	// elapsed.
	ErrCooldownActive = errors.New("registry: cooldown active")
	// ErrPracticeLogFull marks verifications against a farmer whose practice
	// log already holds MaxPractices entries.
	ErrPracticeLogFull = errors.New("registry: practice log full")
)
