// Package auth turns bearer credentials into the identity attached to
// requests and realtime connections.
package auth

import (
	"errors"
	"strings"
)

// ErrUnauthorized is returned for any missing or unusable credential.
var ErrUnauthorized = errors.New("unauthorized")

// DefaultFullName is used when a token carries no display name.
const DefaultFullName = "Unknown User"

// Identity is the decoded principal behind a verified token.
type Identity struct {
	ID       string `json:"id"`
	Role     string `json:"role"`
	FullName string `json:"fullName"`
}

// Verifier checks a bearer token and returns the identity it carries.
type Verifier interface {
	Verify(token string) (Identity, error)
}

// BearerToken picks the token from an explicit auth field or, failing that,
// from an Authorization header of the form "Bearer <token>".
func BearerToken(authField, header string) string {
	if token := strings.TrimSpace(authField); token != "" {
		return token
	}

	header = strings.TrimSpace(header)
	const bearer = "bearer "
	if len(header) <= len(bearer) || !strings.EqualFold(header[:len(bearer)], bearer) {
		return ""
	}
	return strings.TrimSpace(header[len(bearer):])
}
