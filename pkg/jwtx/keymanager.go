package jwtx

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/progressiq/pkg/cryptox"
)

// AlgorithmEdDSA is the only signing algorithm issued.
const AlgorithmEdDSA = "EdDSA"

// KeyManager ties together the signing key, the verifier and the published
// key set for one service instance.
type KeyManager struct {
	signer   Signer
	verifier *EdDSAVerifier
	keys     *KeySet
}

// KeyManagerOptions configures NewKeyManager.
type KeyManagerOptions struct {
	// Issuer is required and checked on every verification.
	Issuer string

	// Audience values required on verification; empty skips the check.
	Audience []string

	// PrivateKeyPEM is a PKCS8 Ed25519 key. When nil an ephemeral key is
	// generated and tokens stop verifying after a restart.
	PrivateKeyPEM []byte
}

// NewKeyManager builds a KeyManager. The kid is derived from the public key,
// so a persisted key keeps the same kid across restarts.
func NewKeyManager(opts KeyManagerOptions) (*KeyManager, error) {
	if opts.Issuer == "" {
		return nil, errors.New("jwtx: Issuer is required")
	}

	pemKey := opts.PrivateKeyPEM
	if pemKey == nil {
		var err error
		if pemKey, err = cryptox.GenerateEd25519Key(); err != nil {
			return nil, err
		}
	}

	priv, err := parseEd25519PEM(pemKey)
	if err != nil {
		return nil, err
	}
	kid := KeyIDFor(priv.Public().(ed25519.PublicKey))

	signer, err := NewSignerEdDSA(kid, pemKey)
	if err != nil {
		return nil, err
	}
	if err := signer.Validate(); err != nil {
		return nil, err
	}

	keys := NewKeySet()
	if err := keys.AddSigner(signer); err != nil {
		return nil, fmt.Errorf("jwtx: register signer: %w", err)
	}

	return &KeyManager{
		signer:   signer,
		verifier: NewVerifierEdDSA(keys, opts.Issuer, opts.Audience),
		keys:     keys,
	}, nil
}

// KeyIDFor returns "piq-" plus a short fingerprint of the public key.
func KeyIDFor(pub ed25519.PublicKey) string {
	return "piq-" + cryptox.FingerprintToken(string(pub))[:16]
}

func (km *KeyManager) Signer() Signer     { return km.signer }
func (km *KeyManager) Verifier() Verifier { return km.verifier }
func (km *KeyManager) KeySet() *KeySet    { return km.keys }
func (km *KeyManager) IsReady() bool      { return km.keys.IsReady() }
