package auth_test

import (
	"testing"

	"github.com/labeldesk/go-auth"
	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from auth.AccountStatus
		to   auth.AccountStatus
		want bool
	}{
		{auth.StatusPending, auth.StatusActive, true},
		{auth.StatusPending, auth.StatusBanned, true},
		{auth.StatusActive, auth.StatusBanned, true},
		{auth.StatusBanned, auth.StatusActive, true},
		{auth.StatusActive, auth.StatusPending, false},
		{auth.StatusBanned, auth.StatusPending, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, auth.CanTransition(tt.from, tt.to))
		})
	}
}

func TestEnsureTransition(t *testing.T) {
	t.Run("allows a legal move", func(t *testing.T) {
		assert.NoError(t, auth.EnsureTransition(auth.StatusPending, auth.StatusActive))
	})

	t.Run("rejects a same-state move", func(t *testing.T) {
		err := auth.EnsureTransition(auth.StatusActive, auth.StatusActive)
		assert.ErrorIs(t, err, auth.ErrInvalidTransition)
	})

	t.Run("rejects an illegal move", func(t *testing.T) {
		err := auth.EnsureTransition(auth.StatusActive, auth.StatusPending)
		assert.ErrorIs(t, err, auth.ErrInvalidTransition)
	})
}
