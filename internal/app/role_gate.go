package app

import (
	"strconv"
	"strings"
	"sync"
)

// Identity is what the identity provider tells us about the signed-in user.
type Identity struct {
	UserID uint   `json:"userId"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

func (i *Identity) userIDString() *string {
	if i == nil || i.UserID == 0 {
		return nil
	}
	id := strconv.FormatUint(uint64(i.UserID), 10)
	return &id
}

func (i *Identity) displayName() *string {
	if i == nil || strings.TrimSpace(i.Name) == "" {
		return nil
	}
	name := i.Name
	return &name
}

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Privileged controls exposed to admins.
const (
	ControlReset = "reset"
	ControlEdit  = "edit"
)

// RoleGate decides admin vs user by a case-insensitive match on one configured email.
type RoleGate struct {
	adminEmail string
}

func NewRoleGate(adminEmail string) *RoleGate {
	return &RoleGate{adminEmail: adminEmail}
}

func (g *RoleGate) Resolve(identity *Identity) Role {
	if g == nil || identity == nil || g.adminEmail == "" || identity.Email == "" {
		return RoleUser
	}
	if strings.EqualFold(identity.Email, g.adminEmail) {
		return RoleAdmin
	}
	return RoleUser
}

func controlsFor(role Role) []string {
	if role == RoleAdmin {
		return []string{ControlReset, ControlEdit}
	}
	return []string{}
}

type SessionState struct {
	Identity *Identity `json:"identity"`
	Role     Role      `json:"role"`
	Controls []string  `json:"controls"`
}

// SessionContext holds the current identity and its role for one client.
// OnIdentityChange is the only way either changes.
type SessionContext struct {
	gate     *RoleGate
	onChange func(SessionState)

	mu       sync.RWMutex
	identity *Identity
	role     Role
}

func NewSessionContext(gate *RoleGate, onChange func(SessionState)) *SessionContext {
	return &SessionContext{gate: gate, onChange: onChange, role: RoleUser}
}

// OnIdentityChange records a sign-in (non-nil) or sign-out (nil) and recomputes the role.
func (s *SessionContext) OnIdentityChange(identity *Identity) SessionState {
	var copied *Identity
	if identity != nil {
		c := *identity
		copied = &c
	}
	role := s.gate.Resolve(copied)

	s.mu.Lock()
	s.identity = copied
	s.role = role
	state := s.stateLocked()
	s.mu.Unlock()

	if s.onChange != nil {
		s.onChange(state)
	}
	return state
}

func (s *SessionContext) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked()
}

func (s *SessionContext) Identity() *Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return nil
	}
	c := *s.identity
	return &c
}

func (s *SessionContext) Role() Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.role
}

func (s *SessionContext) IsAdmin() bool {
	return s.Role() == RoleAdmin
}

func (s *SessionContext) stateLocked() SessionState {
	var identity *Identity
	if s.identity != nil {
		c := *s.identity
		identity = &c
	}
	return SessionState{Identity: identity, Role: s.role, Controls: controlsFor(s.role)}
}
