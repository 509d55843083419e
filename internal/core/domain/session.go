// Package domain defines the core domain models for the RegDesk client.
package domain

import (
	"strings"
	"time"
)

// Roles issued by the backend.
const (
	RoleAdmin     = "admin"
	RoleRegistrar = "registrar"
	RoleStudent   = "student"
)

// Subject identifies who a session token was issued for.
type Subject struct {
	// ID is the backend's internal user identifier.
	ID string `json:"id" yaml:"id"`

	// Role is the account role (admin, registrar, student).
	Role string `json:"role" yaml:"role"`

	// IDNumber is the school-issued identifier (student/employee number).
	IDNumber string `json:"id_number" yaml:"id_number"`
}

// IsZero reports whether the subject carries no identity.
func (s Subject) IsZero() bool {
	return s.ID == "" && s.Role == "" && s.IDNumber == ""
}

// IsStaff reports whether the subject may use administration screens.
func (s Subject) IsStaff() bool {
	switch strings.ToLower(s.Role) {
	case RoleAdmin, RoleRegistrar:
		return true
	default:
		return false
	}
}

// Session is the client's view of an authenticated session.
//
// The token is opaque; expiry is decided by the backend and is never
// inspected locally.
type Session struct {
	Token     string    `json:"token" yaml:"-"`
	Subject   Subject   `json:"user" yaml:"user"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// HasToken reports whether the session carries a token.
func (s Session) HasToken() bool {
	return s.Token != ""
}

// Redacted returns a copy that is safe to print.
func (s Session) Redacted() Session {
	out := s
	out.Token = MaskToken(s.Token)
	return out
}

// MaskToken keeps the first and last three characters of a token.
func MaskToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 8 {
		return "***"
	}
	return token[:3] + "..." + token[len(token)-3:]
}
