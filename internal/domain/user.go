package domain

import (
	"context"
	"slices"
	"time"
)

// RoleAdmin is the role code that unlocks moderation endpoints.
const RoleAdmin = "admin"

// User is the read-only view of a registered user. User management lives elsewhere;
// this service only needs the contact address for notifications.
// swagger:model User
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	LastName string `json:"last_name"`
}

// FullName returns "Name LastName", or the email when both are empty.
func (u *User) FullName() string {
	switch {
	case u.Name != "" && u.LastName != "":
		return u.Name + " " + u.LastName
	case u.Name != "":
		return u.Name
	case u.LastName != "":
		return u.LastName
	}
	return u.Email
}

// Claims is the authenticated identity carried by a bearer token.
type Claims struct {
	UserID string
	Roles  []string
}

// HasRole reports whether the claims include role.
func (c *Claims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

// TokenIssuer issues tokens (e.g. JWT) for a user.
type TokenIssuer interface {
	Issue(userID, email string, roles []string, expiry time.Duration) (string, error)
}

// TokenVerifier verifies a token and returns the authenticated identity.
type TokenVerifier interface {
	Verify(token string) (*Claims, error)
}

// UserRepository reads users owned by the user-management service.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*User, error)
}
