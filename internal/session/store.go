// Package session owns the client's session state: the durable
// credential slot, the server-side validation of that credential, and
// the access gate that decides whether protected surfaces may render.
package session

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	// storeDirPerm is the permission mode for the state directory.
	storeDirPerm = fs.FileMode(0o700)

	// storeFilePerm is the permission mode for the state database file.
	// It holds a live bearer credential.
	storeFilePerm = fs.FileMode(0o600)

	// storeOpenTimeout is the maximum time to wait for the bolt database lock.
	storeOpenTimeout = 5 * time.Second
)

var (
	authBucket    = []byte("auth")
	credentialKey = []byte("credential")
)

// Store is the single durable slot for the current session credential.
// Empty at cold start, set on successful authentication, cleared on
// logout or validation failure. It outlives the process, so a restart
// does not force re-login.
//
// Only authentication flows write the slot and only the validator and
// logout clear it; everything else reads.
type Store struct {
	db *bolt.DB
}

// Open opens the credential store at the given path, creating the file
// and its directory if needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), storeDirPerm); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	db, err := bolt.Open(path, storeFilePerm, &bolt.Options{Timeout: storeOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("opening state db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(authBucket)

		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing state db: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Credential returns the stored session credential, or empty string.
func (s *Store) Credential() string {
	var credential string

	_ = s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(authBucket).Get(credentialKey)
		if v != nil {
			credential = string(v)
		}

		return nil
	})

	return credential
}

// SetCredential persists a new session credential, replacing any
// previous one.
func (s *Store) SetCredential(credential string) error {
	if credential == "" {
		return fmt.Errorf("refusing to store an empty credential")
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(authBucket).Put(credentialKey, []byte(credential))
	})
}

// ClearCredential empties the slot. Clearing an already-empty slot is
// a no-op.
func (s *Store) ClearCredential() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(authBucket).Delete(credentialKey)
	})
}
