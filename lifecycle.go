package auth

import (
	goerrors "github.com/goliatone/go-errors"
)

// AccountStatus is derived from the persisted verification and ban flags;
// it is never stored directly.
type AccountStatus string

const (
	// StatusPending means the account exists but the email is unverified.
	StatusPending AccountStatus = "pending"
	// StatusActive means the account can authenticate.
	StatusActive AccountStatus = "active"
	// StatusBanned means every authenticated request is rejected, token
	// validity notwithstanding.
	StatusBanned AccountStatus = "banned"
)

// ErrInvalidTransition is returned when a requested status change is not allowed.
var ErrInvalidTransition = goerrors.New("invalid account state transition", goerrors.CategoryValidation).
	WithTextCode("INVALID_ACCOUNT_TRANSITION").
	WithCode(goerrors.CodeBadRequest)

// allowedTransitions is the closed transition graph for the account
// lifecycle. Verification moves pending to active; bans may land on either
// live state and unban always restores active (a banned pending account has
// implicitly proven the address via the admin flow that banned it).
var allowedTransitions = map[AccountStatus][]AccountStatus{
	StatusPending: {StatusActive, StatusBanned},
	StatusActive:  {StatusBanned},
	StatusBanned:  {StatusActive},
}

// CanTransition reports whether the lifecycle graph permits from -> to.
func CanTransition(from, to AccountStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// EnsureTransition returns ErrInvalidTransition with context when the graph
// forbids the move.
func EnsureTransition(from, to AccountStatus) error {
	if from == to {
		return ErrInvalidTransition.Clone().
			WithMetadata(map[string]any{"from": string(from), "to": string(to)})
	}
	if !CanTransition(from, to) {
		return ErrInvalidTransition.Clone().
			WithMetadata(map[string]any{"from": string(from), "to": string(to)})
	}
	return nil
}
