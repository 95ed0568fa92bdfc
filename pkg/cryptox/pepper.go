package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var (
	pepperMu sync.Mutex
	pepper   string
)

// LoadPepper reads the password pepper from path, creating the file with a
// fresh random value when it does not exist yet.
func LoadPepper(path string) error {
	value, err := loadOrCreateSecretFile(path, func() ([]byte, error) {
		buf := make([]byte, keyLength)
		if _, err := rand.Read(buf); err != nil {
			return nil, err
		}
		return []byte(base64.RawURLEncoding.EncodeToString(buf)), nil
	})
	if err != nil {
		return fmt.Errorf("cryptox: load pepper: %w", err)
	}

	pepperMu.Lock()
	pepper = strings.TrimSpace(string(value))
	pepperMu.Unlock()
	return nil
}

// SetPepper installs a pepper directly. Tests use it to avoid touching disk.
func SetPepper(p string) {
	pepperMu.Lock()
	pepper = p
	pepperMu.Unlock()
}

// GetPepper returns the active pepper. If none was loaded a random one is
// generated for the lifetime of the process, so hashes will not survive a
// restart.
func GetPepper() string {
	pepperMu.Lock()
	defer pepperMu.Unlock()

	if pepper == "" {
		pepper = MustGenerateToken(keyLength)
	}
	return pepper
}

// loadOrCreateSecretFile returns the contents of path, or writes the output
// of generate to it (mode 0600) when the file is missing.
func loadOrCreateSecretFile(path string, generate func() ([]byte, error)) ([]byte, error) {
	path = filepath.Clean(path)

	data, err := os.ReadFile(path)
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, err
	}

	data, err = generate()
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return nil, err
	}
	return data, nil
}
