package auth

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// JWTVerifier validates HMAC-signed JWTs.
type JWTVerifier struct {
	secret []byte
}

// NewJWTVerifier builds a verifier for the shared HMAC secret.
func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

// Verify parses the token and extracts the identity claims.
func (v *JWTVerifier) Verify(tokenString string) (Identity, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" || len(v.secret) == 0 {
		return Identity{}, ErrUnauthorized
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, ErrUnauthorized
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, ErrUnauthorized
	}

	return IdentityFromClaims(claims)
}

// IdentityFromClaims maps decoded claims onto an Identity.
func IdentityFromClaims(claims jwt.MapClaims) (Identity, error) {
	id := extractUserID(claims)
	if id == "" {
		return Identity{}, ErrUnauthorized
	}

	name := extractString(claims, "fullName", "full_name", "name")
	if name == "" {
		name = DefaultFullName
	}

	return Identity{
		ID:       id,
		Role:     extractRole(claims),
		FullName: name,
	}, nil
}

func extractUserID(claims jwt.MapClaims) string {
	for _, key := range []string{"id", "sub", "user_id"} {
		if value, ok := claims[key]; ok {
			if normalized := normalizeUserID(value); normalized != "" {
				return normalized
			}
		}
	}
	return ""
}

// userIDPattern bounds the identities the gateway can route. The inbound
// frame schema accepts the same alphabet and length.
var userIDPattern = regexp.MustCompile(`^[A-Za-z0-9._@+-]{1,128}$`)

func normalizeUserID(value interface{}) string {
	switch v := value.(type) {
	case float64:
		if v < 0 || v != float64(int64(v)) {
			return ""
		}
		return strconv.FormatInt(int64(v), 10)
	case int:
		if v < 0 {
			return ""
		}
		return strconv.Itoa(v)
	case int64:
		if v < 0 {
			return ""
		}
		return strconv.FormatInt(v, 10)
	case string:
		id := strings.TrimSpace(v)
		if !userIDPattern.MatchString(id) {
			return ""
		}
		return id
	default:
		return ""
	}
}

func extractRole(claims jwt.MapClaims) string {
	for _, key := range []string{"role", "roles"} {
		if value, ok := claims[key]; ok {
			if role := normalizeRole(value); role != "" {
				return role
			}
		}
	}
	return ""
}

func normalizeRole(value interface{}) string {
	switch v := value.(type) {
	case string:
		return strings.ToLower(strings.TrimSpace(v))
	case []interface{}:
		for _, item := range v {
			if str, ok := item.(string); ok {
				if role := strings.ToLower(strings.TrimSpace(str)); role != "" {
					return role
				}
			}
		}
	}
	return ""
}

func extractString(claims jwt.MapClaims, keys ...string) string {
	for _, key := range keys {
		if value, ok := claims[key].(string); ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}
