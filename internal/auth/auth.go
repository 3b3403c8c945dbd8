package auth

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
)

// Authorizer answers "may this principal connect" for the presence
// channel. The identity provider itself is external; the service only
// consumes the boolean decision and the stable user identifier.
type Authorizer interface {
	Authorize(ctx context.Context, token string) (userID string, ok bool)
}

// JWT validates HS256 access tokens issued by the platform's auth
// service and takes the user identifier from the subject claim.
type JWT struct {
	secret []byte
}

func NewJWT(secret string) *JWT {
	return &JWT{secret: []byte(secret)}
}

func (a *JWT) Authorize(_ context.Context, token string) (string, bool) {
	if token == "" {
		return "", false
	}

	tok, err := jwt.Parse(token,
		func(t *jwt.Token) (interface{}, error) { return a.secret, nil },
		jwt.WithValidMethods([]string{"HS256"}),
	)
	if err != nil || !tok.Valid {
		return "", false
	}

	sub, err := tok.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", false
	}
	return sub, true
}
