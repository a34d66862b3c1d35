package tokenissuer

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/sha256"
	"errors"
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/golang-jwt/jwt"
	"github.com/lestrrat-go/jwx/jwa"
	"github.com/lestrrat-go/jwx/jwk"
	"github.com/tokenetes/storekit-lookup/storekiterrors"
)

type signingKey struct {
	fingerprint [sha256.Size]byte
	privateKey  *ecdsa.PrivateKey
}

// SigningKeys caches parsed private keys by key id and publishes their
// public halves as a JWK set.
type SigningKeys struct {
	keys       map[string]signingKey
	publicKeys jwk.Set
	mu         sync.RWMutex
}

func NewSigningKeys() *SigningKeys {
	return &SigningKeys{
		keys:       make(map[string]signingKey),
		publicKeys: jwk.NewSet(),
	}
}

// Get returns the parsed key for keyID, parsing pemBytes when the key id is
// new or its key material changed.
func (sk *SigningKeys) Get(keyID string, pemBytes []byte) (*ecdsa.PrivateKey, error) {
	fingerprint := sha256.Sum256(pemBytes)

	sk.mu.RLock()
	cached, found := sk.keys[keyID]
	sk.mu.RUnlock()

	if found && cached.fingerprint == fingerprint {
		return cached.privateKey, nil
	}

	sk.mu.Lock()
	defer sk.mu.Unlock()

	if cached, found := sk.keys[keyID]; found && cached.fingerprint == fingerprint {
		return cached.privateKey, nil
	}

	privateKey, err := parsePrivateKey(pemBytes)
	if err != nil {
		return nil, err
	}

	publicKey, err := publicJWK(keyID, privateKey)
	if err != nil {
		return nil, err
	}

	if old, found := sk.publicKeys.LookupKeyID(keyID); found {
		sk.publicKeys.Remove(old)
	}

	sk.publicKeys.Add(publicKey)
	sk.keys[keyID] = signingKey{fingerprint: fingerprint, privateKey: privateKey}

	return privateKey, nil
}

func (sk *SigningKeys) PublicKey(keyID string) (jwk.Key, error) {
	sk.mu.RLock()
	defer sk.mu.RUnlock()

	if key, found := sk.publicKeys.LookupKeyID(keyID); found {
		return key, nil
	}

	return nil, fmt.Errorf("jwk %s: %w", keyID, storekiterrors.ErrUnknownKeyID)
}

// PublicKeySet returns a snapshot of the public keys seen so far.
func (sk *SigningKeys) PublicKeySet() jwk.Set {
	sk.mu.RLock()
	defer sk.mu.RUnlock()

	set := jwk.NewSet()

	for i := 0; i < sk.publicKeys.Len(); i++ {
		if key, ok := sk.publicKeys.Get(i); ok {
			set.Add(key)
		}
	}

	return set
}

func parsePrivateKey(pemBytes []byte) (*ecdsa.PrivateKey, error) {
	if len(bytes.TrimSpace(pemBytes)) == 0 {
		return nil, fmt.Errorf("%w: empty key material", storekiterrors.ErrInvalidKeyMaterial)
	}

	if !utf8.Valid(pemBytes) {
		return nil, fmt.Errorf("%w: key material is not valid utf-8", storekiterrors.ErrInvalidKeyMaterial)
	}

	privateKey, err := jwt.ParseECPrivateKeyFromPEM(pemBytes)
	if err != nil {
		if errors.Is(err, jwt.ErrKeyMustBePEMEncoded) {
			return nil, fmt.Errorf("%w: %w", storekiterrors.ErrInvalidKeyMaterial, err)
		}

		return nil, fmt.Errorf("%w: %w", storekiterrors.ErrSigningFailure, err)
	}

	if name := privateKey.Curve.Params().Name; name != "P-256" {
		return nil, fmt.Errorf("%w: ES256 requires a P-256 key, got %s", storekiterrors.ErrSigningFailure, name)
	}

	return privateKey, nil
}

func publicJWK(keyID string, privateKey *ecdsa.PrivateKey) (jwk.Key, error) {
	key, err := jwk.New(&privateKey.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to build public jwk: %w", err)
	}

	if err := key.Set(jwk.KeyIDKey, keyID); err != nil {
		return nil, fmt.Errorf("failed to set jwk key id: %w", err)
	}

	if err := key.Set(jwk.AlgorithmKey, jwa.ES256.String()); err != nil {
		return nil, fmt.Errorf("failed to set jwk algorithm: %w", err)
	}

	if err := key.Set(jwk.KeyUsageKey, "sig"); err != nil {
		return nil, fmt.Errorf("failed to set jwk usage: %w", err)
	}

	return key, nil
}
