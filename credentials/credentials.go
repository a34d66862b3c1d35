package credentials

import (
	"fmt"
	"os"
)

// DeveloperCredentials identifies an App Store Connect API key.
// PrivateKey holds the PEM contents of the .p8 file issued with the key.
type DeveloperCredentials struct {
	BundleID   string
	IssuerID   string
	APIKeyID   string
	PrivateKey []byte
}

func New(bundleID, issuerID, apiKeyID string, privateKey []byte) DeveloperCredentials {
	return DeveloperCredentials{
		BundleID:   bundleID,
		IssuerID:   issuerID,
		APIKeyID:   apiKeyID,
		PrivateKey: privateKey,
	}
}

func ReadPrivateKeyFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file %s: %w", path, err)
	}

	return data, nil
}
