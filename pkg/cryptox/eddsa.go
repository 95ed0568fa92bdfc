package cryptox

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
)

// GenerateEd25519Key generates an Ed25519 private key as PKCS8 PEM.
func GenerateEd25519Key() ([]byte, error) {
	_, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("cryptox: failed to generate Ed25519 key: %w", err)
	}

	der, err := x509.MarshalPKCS8PrivateKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("cryptox: failed to marshal PKCS8 key: %w", err)
	}

	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}

// LoadOrCreateEd25519Key returns the PEM key stored at path, generating and
// persisting a new one on first start.
func LoadOrCreateEd25519Key(path string) ([]byte, error) {
	data, err := loadOrCreateSecretFile(path, GenerateEd25519Key)
	if err != nil {
		return nil, fmt.Errorf("cryptox: load signing key: %w", err)
	}

	if block, _ := pem.Decode(data); block == nil || block.Type != "PRIVATE KEY" {
		return nil, errors.New("cryptox: signing key file is not a PKCS8 PEM block")
	}
	return data, nil
}
