package tokenissuer

import (
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/jwk"
	"github.com/tokenetes/storekit-lookup/claims"
	"github.com/tokenetes/storekit-lookup/credentials"
	"github.com/tokenetes/storekit-lookup/storekiterrors"
	"go.uber.org/zap"
)

// Issuer signs App Store Server API bearer tokens. A token is valid for
// claims.TokenLifetime from the moment it is issued and must not be reused
// afterwards.
type Issuer struct {
	signingKeys *SigningKeys
	now         func() time.Time
	logger      *zap.Logger
}

type Option func(*Issuer)

// WithClock replaces the time source used for the iat and exp claims.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) {
		i.now = now
	}
}

func NewIssuer(logger *zap.Logger, opts ...Option) *Issuer {
	if logger == nil {
		logger = zap.NewNop()
	}

	issuer := &Issuer{
		signingKeys: NewSigningKeys(),
		now:         time.Now,
		logger:      logger,
	}

	for _, opt := range opts {
		opt(issuer)
	}

	return issuer
}

// IssueToken returns a compact ES256 token for creds. Failures wrap
// storekiterrors.ErrInvalidKeyMaterial or storekiterrors.ErrSigningFailure.
func (i *Issuer) IssueToken(creds credentials.DeveloperCredentials) (string, error) {
	privateKey, err := i.signingKeys.Get(creds.APIKeyID, creds.PrivateKey)
	if err != nil {
		i.logger.Error("Failed to load signing key", zap.String("keyID", creds.APIKeyID), zap.Error(err))

		return "", err
	}

	authClaims := claims.NewAuthClaims(creds.IssuerID, creds.BundleID, i.now())

	token, err := claims.Sign(authClaims, privateKey, creds.APIKeyID)
	if err != nil {
		i.logger.Error("Failed to sign token", zap.String("keyID", creds.APIKeyID), zap.Error(err))

		return "", fmt.Errorf("%w: %w", storekiterrors.ErrSigningFailure, err)
	}

	i.logger.Debug("Issued app store token",
		zap.String("keyID", creds.APIKeyID),
		zap.String("bundleID", creds.BundleID),
		zap.Time("expiresAt", time.Unix(authClaims.ExpiresAt, 0)))

	return token, nil
}

func (i *Issuer) PublicKey(keyID string) (jwk.Key, error) {
	return i.signingKeys.PublicKey(keyID)
}

func (i *Issuer) PublicKeySet() jwk.Set {
	return i.signingKeys.PublicKeySet()
}
