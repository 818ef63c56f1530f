package config

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

// clientIDKey is the settings key for the per-installation client identity.
const clientIDKey = "cloud/client_id"

// Settings is a flat key-value store shared by all process instances of
// the installation. Writes hold an exclusive cross-process lock so
// set-if-absent is race-free between siblings.
type Settings struct {
	path string
}

// NewSettings creates a settings store backed by the given file.
func NewSettings(path string) *Settings {
	return &Settings{path: path}
}

const settingsLockTimeout = 5 * time.Second

func (s *Settings) withLock(fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return err
	}

	fl := flock.New(s.path + ".lock")
	ctx, cancel := context.WithTimeout(context.Background(), settingsLockTimeout)
	defer cancel()

	locked, err := fl.TryLockContext(ctx, 10*time.Millisecond)
	if err != nil {
		return err
	}
	if locked {
		defer func() { _ = fl.Unlock() }()
	}

	return fn()
}

func (s *Settings) load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}

	var values map[string]string
	if err := json.Unmarshal(data, &values); err != nil {
		// Corrupted settings are recoverable; start fresh.
		return make(map[string]string), nil
	}
	return values, nil
}

func (s *Settings) save(values map[string]string) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "settings-*.json.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// Get returns the value for key, or "" when absent.
func (s *Settings) Get(key string) (string, error) {
	var value string
	err := s.withLock(func() error {
		values, err := s.load()
		if err != nil {
			return err
		}
		value = values[key]
		return nil
	})
	return value, err
}

// SetIfAbsent stores value under key unless the key already holds one,
// and returns the value that ends up stored.
func (s *Settings) SetIfAbsent(key, value string) (string, error) {
	var stored string
	err := s.withLock(func() error {
		values, err := s.load()
		if err != nil {
			return err
		}
		if existing, ok := values[key]; ok && existing != "" {
			stored = existing
			return nil
		}
		values[key] = value
		stored = value
		return s.save(values)
	})
	return stored, err
}

// EnsureClientID returns the stable per-installation client identity,
// generating and persisting it on first use. Subsequent calls return the
// same identifier.
func (s *Settings) EnsureClientID() (string, error) {
	return s.SetIfAbsent(clientIDKey, generateClientID())
}

// generateClientID prefers a machine fingerprint, falling back to a
// securely-random 64-bit value encoded as hex.
func generateClientID() string {
	if id := machineID(); id != "" {
		return id
	}

	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return hex.EncodeToString(b)
}

func machineID() string {
	for _, path := range []string{"/etc/machine-id", "/var/lib/dbus/machine-id"} {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if id := strings.TrimSpace(string(data)); id != "" {
			return id
		}
	}
	return ""
}
