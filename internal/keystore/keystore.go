// Package keystore keeps the AI provider credential on disk, sealed with a
// locally generated key.
package keystore

import (
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrNoSecret is returned by Retrieve when nothing is stored.
var ErrNoSecret = errors.New("no API key stored")

const (
	keyFile    = "apikey.key"
	sealedFile = "apikey.sealed"
	minLength  = 20
)

var additionalData = []byte("facultypulse/openai-api-key")

// Where Retrieve found the secret.
const (
	SourceNone = ""
	SourceEnv  = "environment"
	SourceFile = "file"
)

// Validate checks that secret looks like an OpenAI key.
func Validate(secret string) error {
	secret = strings.TrimSpace(secret)
	switch {
	case secret == "":
		return errors.New("la API key no puede estar vacía")
	case !strings.HasPrefix(secret, "sk-"):
		return errors.New(`la API key debe comenzar con "sk-"`)
	case len(secret) < minLength:
		return errors.New("la API key parece ser demasiado corta")
	}
	return nil
}

// Store reads and writes the sealed credential in a directory. An
// environment variable, when set, takes precedence over the stored value.
type Store struct {
	dir    string
	envVar string
}

// New creates a store in dir; envVar may be empty.
func New(dir, envVar string) *Store {
	return &Store{dir: dir, envVar: envVar}
}

// Store validates and seals secret, replacing any stored value.
func (s *Store) Store(secret string) error {
	secret = strings.TrimSpace(secret)
	if err := Validate(secret); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("creating key directory: %w", err)
	}

	key, err := s.loadOrCreateKey()
	if err != nil {
		return err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(secret)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("generating nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, []byte(secret), additionalData)

	if err := os.WriteFile(filepath.Join(s.dir, sealedFile), sealed, 0o600); err != nil {
		return fmt.Errorf("writing sealed key: %w", err)
	}
	return nil
}

// Retrieve returns the credential and where it came from.
func (s *Store) Retrieve() (string, string, error) {
	if s.envVar != "" {
		if v := strings.TrimSpace(os.Getenv(s.envVar)); v != "" {
			return v, SourceEnv, nil
		}
	}

	sealed, err := os.ReadFile(filepath.Join(s.dir, sealedFile))
	if errors.Is(err, os.ErrNotExist) {
		return "", SourceNone, ErrNoSecret
	}
	if err != nil {
		return "", SourceNone, fmt.Errorf("reading sealed key: %w", err)
	}
	key, err := os.ReadFile(filepath.Join(s.dir, keyFile))
	if err != nil {
		return "", SourceNone, fmt.Errorf("reading key file: %w", err)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return "", SourceNone, fmt.Errorf("bad key file: %w", err)
	}
	if len(sealed) < aead.NonceSize() {
		return "", SourceNone, errors.New("sealed key is truncated")
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ciphertext, additionalData)
	if err != nil {
		return "", SourceNone, fmt.Errorf("opening sealed key: %w", err)
	}
	return string(plain), SourceFile, nil
}

// Clear removes the stored credential and its key. The environment
// variable, if any, is untouched.
func (s *Store) Clear() error {
	for _, name := range []string{sealedFile, keyFile} {
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

// Mask shows only the prefix and last four characters of a secret.
func Mask(secret string) string {
	if len(secret) <= 8 {
		return strings.Repeat("*", len(secret))
	}
	return secret[:3] + strings.Repeat("*", len(secret)-7) + secret[len(secret)-4:]
}

func (s *Store) loadOrCreateKey() ([]byte, error) {
	path := filepath.Join(s.dir, keyFile)
	key, err := os.ReadFile(path)
	if err == nil && len(key) == chacha20poly1305.KeySize {
		return key, nil
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading key file: %w", err)
	}

	key = make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generating key: %w", err)
	}
	if err := os.WriteFile(path, key, 0o600); err != nil {
		return nil, fmt.Errorf("writing key file: %w", err)
	}
	return key, nil
}
