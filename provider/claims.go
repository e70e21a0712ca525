package provider

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	autherrors "github.com/jrsteele09/go-auth-session/internal/errors"
)

type accessClaims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// decodeAccessToken reads the claims of an access token without verifying its
// signature. Only the provider can verify it; the client needs the expiry and subject.
func decodeAccessToken(raw string) (*accessClaims, error) {
	token, _, err := jwt.NewParser().ParseUnverified(raw, &accessClaims{})
	if err != nil {
		return nil, autherrors.Wrapf(autherrors.ErrInvalidToken, "parsing access token: %v", err)
	}
	claims, ok := token.Claims.(*accessClaims)
	if !ok || claims.ExpiresAt == nil {
		return nil, autherrors.Wrapf(autherrors.ErrInvalidToken, "access token has no expiry")
	}
	return claims, nil
}

func (c *accessClaims) expiresAt() time.Time {
	return c.ExpiresAt.Time
}
