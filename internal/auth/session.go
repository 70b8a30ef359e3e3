package auth

import (
	"realtyhub/backend/internal/models"
)

// PublicActorID identifies anonymous submissions in audit entries.
const PublicActorID = "system:public"

// Session is the verified identity of the caller. It is built once per request
// from a validated token and passed explicitly to every service call.
type Session struct {
	UserID      string
	Email       string
	Name        string
	Role        string
	Permissions map[Permission]bool
}

// NewSession builds a session from verified claims and the role's resolved permissions.
func NewSession(claims *Claims, role string, perms []string) *Session {
	s := &Session{
		UserID:      claims.UserID,
		Email:       claims.Email,
		Name:        claims.Name,
		Role:        role,
		Permissions: make(map[Permission]bool, len(perms)),
	}
	for _, p := range perms {
		s.Permissions[Permission(p)] = true
	}
	return s
}

// PublicSession is the actor used for unauthenticated form submissions.
func PublicSession() *Session {
	return &Session{UserID: PublicActorID, Name: "Public form", Role: "public"}
}

// Authenticated reports whether the session belongs to a signed-in user.
func (s *Session) Authenticated() bool {
	return s != nil && s.UserID != "" && s.UserID != PublicActorID
}

// Can reports whether the session holds every permission in perms.
func (s *Session) Can(perms ...Permission) bool {
	if s == nil {
		return false
	}
	for _, p := range perms {
		if !s.Permissions[p] {
			return false
		}
	}
	return true
}

// PermissionList returns the held permissions as sorted strings.
func (s *Session) PermissionList() []string {
	var perms []Permission
	for p, ok := range s.Permissions {
		if ok {
			perms = append(perms, p)
		}
	}
	return Strings(perms)
}

// Actor returns the denormalized snapshot written into audit entries and records.
func (s *Session) Actor() models.Assignee {
	if s == nil {
		return models.Assignee{UID: PublicActorID}
	}
	return models.Assignee{UID: s.UserID, Name: s.Name, Role: s.Role, Email: s.Email}
}
