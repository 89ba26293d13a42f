package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleGateCaseInsensitive(t *testing.T) {
	gate := NewRoleGate("admin@example.com")

	assert.Equal(t, RoleAdmin, gate.Resolve(&Identity{Email: "ADMIN@EXAMPLE.COM"}))
	assert.Equal(t, RoleAdmin, gate.Resolve(&Identity{Email: "Admin@Example.com"}))
	assert.Equal(t, RoleUser, gate.Resolve(&Identity{Email: "someone@example.com"}))
	assert.Equal(t, RoleUser, gate.Resolve(&Identity{}))
	assert.Equal(t, RoleUser, gate.Resolve(nil))
}

func TestRoleGateWithoutAdminConfigured(t *testing.T) {
	gate := NewRoleGate("")
	assert.Equal(t, RoleUser, gate.Resolve(&Identity{Email: ""}))
	assert.Equal(t, RoleUser, gate.Resolve(&Identity{Email: "admin@example.com"}))
}

func TestSessionContextTracksIdentity(t *testing.T) {
	var seen []SessionState
	session := NewSessionContext(NewRoleGate("admin@example.com"), func(s SessionState) {
		seen = append(seen, s)
	})
	assert.Equal(t, RoleUser, session.Role())
	assert.Nil(t, session.Identity())

	state := session.OnIdentityChange(&Identity{UserID: 1, Email: "ADMIN@example.com", Name: "Root"})
	assert.Equal(t, RoleAdmin, state.Role)
	assert.Equal(t, []string{ControlReset, ControlEdit}, state.Controls)
	assert.True(t, session.IsAdmin())

	state = session.OnIdentityChange(&Identity{UserID: 2, Email: "user@example.com"})
	assert.Equal(t, RoleUser, state.Role)
	assert.Empty(t, state.Controls)
	assert.False(t, session.IsAdmin())

	state = session.OnIdentityChange(nil)
	assert.Equal(t, RoleUser, state.Role)
	assert.Nil(t, state.Identity)
	assert.Nil(t, session.Identity())

	require.Len(t, seen, 3)
	assert.Equal(t, RoleAdmin, seen[0].Role)
	assert.Equal(t, RoleUser, seen[2].Role)
}

func TestSessionContextCopiesIdentity(t *testing.T) {
	session := NewSessionContext(NewRoleGate("admin@example.com"), nil)
	identity := &Identity{Email: "admin@example.com"}
	session.OnIdentityChange(identity)

	identity.Email = "other@example.com"
	assert.True(t, session.IsAdmin())
	assert.Equal(t, "admin@example.com", session.Identity().Email)
}

func TestInputGateRejectsWhileBusy(t *testing.T) {
	var states []ControlState
	gate := NewInputGate(func(id string, s ControlState) {
		assert.Equal(t, "input", id)
		states = append(states, s)
	})

	release, ok := gate.Acquire("input")
	require.True(t, ok)
	assert.True(t, gate.Busy("input"))

	_, ok = gate.Acquire("input")
	assert.False(t, ok)

	release()
	release()
	assert.False(t, gate.Busy("input"))
	assert.Equal(t, []ControlState{{Disabled: true}, {Focused: true}}, states)

	release, ok = gate.Acquire("input")
	require.True(t, ok)
	release()
}
