package claims

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt"
)

const (
	AppStoreConnectAudience = "appstoreconnect-v1"
	TokenLifetime           = 5 * time.Minute
)

// AuthClaims is the payload of the bearer token presented to the App Store Server API.
type AuthClaims struct {
	Issuer    string   `json:"iss"`
	IssuedAt  int64    `json:"iat"`
	ExpiresAt int64    `json:"exp"`
	Audience  []string `json:"aud"`
	BundleID  string   `json:"bid"`
}

func NewAuthClaims(issuerID, bundleID string, issuedAt time.Time) *AuthClaims {
	return &AuthClaims{
		Issuer:    issuerID,
		IssuedAt:  issuedAt.Unix(),
		ExpiresAt: issuedAt.Add(TokenLifetime).Unix(),
		Audience:  []string{AppStoreConnectAudience},
		BundleID:  bundleID,
	}
}

func (c *AuthClaims) Valid() error {
	now := jwt.TimeFunc().Unix()

	if c.ExpiresAt <= now {
		return errors.New("token is expired")
	}

	if c.IssuedAt > now {
		return errors.New("token used before issued")
	}

	for _, aud := range c.Audience {
		if aud == AppStoreConnectAudience {
			return nil
		}
	}

	return errors.New("invalid audience")
}
