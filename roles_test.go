package auth_test

import (
	"testing"

	"github.com/labeldesk/go-auth"
	"github.com/stretchr/testify/assert"
)

func TestUserRole_IsValid(t *testing.T) {
	assert.True(t, auth.RoleUser.IsValid())
	assert.True(t, auth.RoleAdmin.IsValid())
	assert.False(t, auth.UserRole("superuser").IsValid())
	assert.False(t, auth.UserRole("").IsValid())
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want auth.UserRole
		ok   bool
	}{
		{"user", auth.RoleUser, true},
		{"admin", auth.RoleAdmin, true},
		{"Admin", "", false},
		{"owner", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			role, ok := auth.ParseRole(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, role)
			}
		})
	}
}

func TestGetAllRoles(t *testing.T) {
	roles := auth.GetAllRoles()
	assert.ElementsMatch(t, []auth.UserRole{auth.RoleUser, auth.RoleAdmin}, roles)
}
