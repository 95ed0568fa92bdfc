package app

import (
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/progressiq/pkg/cryptox"
	"github.com/aussiebroadwan/progressiq/pkg/jwtx"
)

// InitKeys loads the password pepper and the token signing key.
//
// With SigningKeyFile set the key is read from disk, or generated and saved
// on first start, so tokens survive restarts. Without it an ephemeral key is
// generated and every restart logs everyone out.
func InitKeys(cfg Config, logger *slog.Logger) (*jwtx.KeyManager, error) {
	if err := cryptox.LoadPepper(cfg.PepperFile); err != nil {
		return nil, err
	}

	var pemKey []byte
	if cfg.SigningKeyFile != "" {
		var err error
		if pemKey, err = cryptox.LoadOrCreateEd25519Key(cfg.SigningKeyFile); err != nil {
			return nil, err
		}
		logger.Info("signing key loaded", slog.String("path", cfg.SigningKeyFile))
	} else {
		logger.Warn("no signing key file configured; tokens will not survive a restart")
	}

	km, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{
		Issuer:        cfg.Issuer,
		PrivateKeyPEM: pemKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create key manager: %w", err)
	}

	logger.Info("token signer ready", slog.String("kid", km.Signer().KID()))
	return km, nil
}
