// Package credstore persists the OAuth token pair to a file shared by all
// process instances of the installation, serializing access through a named
// cross-process lock.
package credstore

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// ResourceName keys the cross-process lock guarding the credential file.
// Sibling processes of the same installation take identical locks.
const ResourceName = "CLOUD_ACCESS_TOKEN"

// TokenPair holds the access/refresh token pair. Empty strings mean
// "absent"; an empty AccessToken means unauthenticated. Both fields are
// always written together when sourced from a server response.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// LockTimeout is the maximum time to wait for the cross-process lock.
const LockTimeout = 5 * time.Second

// Store is a stateless codec and lock coordinator for the credential file.
type Store struct {
	path   string
	logger *slog.Logger
}

// New creates a store for the credential file at path.
func New(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{path: path, logger: logger}
}

// Path returns the credential file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) lockPath() string {
	return filepath.Join(filepath.Dir(s.path), "."+ResourceName+".lock")
}

// withLock runs fn while holding the named lock. Readers take a shared
// lock and may run concurrently; writers take an exclusive lock.
func (s *Store) withLock(exclusive bool, fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return err
	}

	fl := flock.New(s.lockPath())
	ctx, cancel := context.WithTimeout(context.Background(), LockTimeout)
	defer cancel()

	var locked bool
	var err error
	if exclusive {
		locked, err = fl.TryLockContext(ctx, 10*time.Millisecond)
	} else {
		locked, err = fl.TryRLockContext(ctx, 10*time.Millisecond)
	}
	if err != nil {
		return err
	}
	if locked {
		defer func() { _ = fl.Unlock() }()
	} else {
		// Timed out waiting on a sibling process. Proceed unlocked rather
		// than hang; the write path is atomic via rename.
		s.logger.Warn("credential lock timeout, proceeding without lock", "path", s.lockPath())
	}

	return fn()
}

// Read loads the token pair under a shared lock. A missing file or an
// undecodable one yields (nil, nil): both mean unauthenticated.
func (s *Store) Read() (*TokenPair, error) {
	var pair *TokenPair
	err := s.withLock(false, func() error {
		data, err := os.ReadFile(s.path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}

		var p TokenPair
		if err := json.Unmarshal(data, &p); err != nil {
			s.logger.Error("invalid credential file", "path", s.path, "error", err)
			return nil
		}
		pair = &p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// Write persists the token pair under an exclusive lock. The file is
// replaced atomically so readers never observe a partial write.
func (s *Store) Write(pair TokenPair) error {
	return s.withLock(true, func() error {
		data, err := json.Marshal(pair)
		if err != nil {
			return err
		}

		tmp, err := os.CreateTemp(filepath.Dir(s.path), "cred-*.json.tmp")
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
	})
}

// Clear deletes the credential file under an exclusive lock. A missing
// file is success.
func (s *Store) Clear() error {
	return s.withLock(true, func() error {
		err := os.Remove(s.path)
		if os.IsNotExist(err) {
			return nil
		}
		return err
	})
}

// Exists reports whether a credential file is present.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}
