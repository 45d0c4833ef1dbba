package config

import (
	"errors"
	"os"
	"strings"
	"sync"
)

// ErrIncompleteCredentials is returned when either half of the pair is empty.
var ErrIncompleteCredentials = errors.New("config: email and password are both required")

// Credentials is the login pair. Values are opaque to the bot.
type Credentials struct {
	Email    string
	Password string
}

// Complete reports whether both fields are present.
func (c Credentials) Complete() bool {
	return strings.TrimSpace(c.Email) != "" && c.Password != ""
}

// CredentialsFromEnv reads ROLLERCOIN_EMAIL and ROLLERCOIN_PASSWORD. Unset
// variables yield empty strings.
func CredentialsFromEnv() Credentials {
	return Credentials{
		Email:    os.Getenv(envEmail),
		Password: os.Getenv(envPassword),
	}
}

// CredentialStore serves the environment credentials unless an operator has
// replaced them at runtime. Overrides live in memory only.
type CredentialStore struct {
	mu       sync.RWMutex
	override *Credentials
	source   func() Credentials
}

// NewCredentialStore returns a store backed by source, or by the
// environment when source is nil.
func NewCredentialStore(source func() Credentials) *CredentialStore {
	if source == nil {
		source = CredentialsFromEnv
	}
	return &CredentialStore{source: source}
}

// Credentials returns the effective pair.
func (s *CredentialStore) Credentials() Credentials {
	s.mu.RLock()
	override := s.override
	s.mu.RUnlock()
	if override != nil {
		return *override
	}
	return s.source()
}

// Set replaces the effective pair for the lifetime of the process.
func (s *CredentialStore) Set(email, password string) error {
	creds := Credentials{Email: strings.TrimSpace(email), Password: password}
	if !creds.Complete() {
		return ErrIncompleteCredentials
	}
	s.mu.Lock()
	s.override = &creds
	s.mu.Unlock()
	return nil
}
