package models

import "time"

// User is a dashboard account: admin, reviewer, broker or agent.
type User struct {
	Base         `bson:",inline"`
	Name         string    `bson:"name" json:"name"`
	Email        string    `bson:"email" json:"email"`
	PasswordHash string    `bson:"password" json:"-"`
	Role         string    `bson:"role" json:"role"`
	Disabled     bool      `bson:"disabled" json:"disabled"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updated_at"`
}

// Snapshot returns the denormalized copy stored on records.
func (u *User) Snapshot() Assignee {
	return Assignee{UID: u.ID, Name: u.Name, Role: u.Role, Email: u.Email}
}

// Role is a named permission set editable from the dashboard.
type Role struct {
	Name        string    `bson:"_id" json:"name"`
	Permissions []string  `bson:"permissions" json:"permissions"`
	BuiltIn     bool      `bson:"built_in" json:"built_in"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updated_at"`
}
