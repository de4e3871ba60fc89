// Package store persists rendered preseed documents under short, random,
// unique identifiers.
//
// Backends implement the Store interface. The helpers in this package build
// the retry loop that picks an unused identifier on top of it, so every
// backend gets the same semantics.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/osbuild/preseed-composer/internal/common"
)

const (
	// IdentifierLength is the number of characters in a public identifier.
	IdentifierLength = 12

	// DefaultMaxAttempts bounds the number of identifiers tried by Save
	// before giving up.
	DefaultMaxAttempts = 10
)

var (
	ErrNotFound            = errors.New("preseed not found")
	ErrIdentifierTaken     = errors.New("identifier already in use")
	ErrIdentifierExhausted = errors.New("could not find an unused identifier")
)

// Preseed is a stored document.
type Preseed struct {
	ID        uuid.UUID `json:"id"`
	HashID    string    `json:"hash_id"`
	Name      string    `json:"name"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is implemented by persistence backends. Implementations must be
// safe for concurrent use.
type Store interface {
	// Exists reports whether hashID is already assigned.
	Exists(ctx context.Context, hashID string) (bool, error)

	// Insert stores p. It returns ErrIdentifierTaken if p.HashID is
	// already assigned; the existing document is left untouched.
	Insert(ctx context.Context, p *Preseed) error

	// Get returns the document stored under hashID, or ErrNotFound.
	Get(ctx context.Context, hashID string) (*Preseed, error)
}

// SimpleLogger provides structured logging methods for the store backends.
type SimpleLogger interface {
	// Info creates an info-level message and arbitrary amount of key-value string pairs which
	// can be optionally mapped to fields by underlying implementations.
	Info(msg string, args ...string)

	// Error creates an error-level message and arbitrary amount of key-value string pairs which
	// can be optionally mapped to fields by underlying implementations. The first error argument
	// can be set to nil when no context error is available.
	Error(err error, msg string, args ...string)
}

// ValidIdentifier reports whether s has the shape of an identifier issued
// by NewIdentifier.
func ValidIdentifier(s string) bool {
	if len(s) != IdentifierLength {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune(common.AlphanumericChars, r) {
			return false
		}
	}
	return true
}

// NewIdentifier returns a random alphanumeric identifier. It does not check
// whether the identifier is in use.
func NewIdentifier() (string, error) {
	return common.RandomString(IdentifierLength, common.AlphanumericChars)
}

// GenerateUniqueIdentifier draws identifiers until it finds one the store
// does not know about, trying at most maxAttempts times.
//
// The result is only unique at the time of the call. Use Save to reserve it
// atomically.
func GenerateUniqueIdentifier(ctx context.Context, s Store, maxAttempts int) (string, error) {
	for i := 0; i < maxAttempts; i++ {
		id, err := NewIdentifier()
		if err != nil {
			return "", err
		}
		exists, err := s.Exists(ctx, id)
		if err != nil {
			return "", fmt.Errorf("error checking identifier: %w", err)
		}
		if !exists {
			return id, nil
		}
	}
	return "", ErrIdentifierExhausted
}

// Save stores content under a fresh identifier and returns the new
// document. An identifier claimed concurrently by another writer between
// the existence check and the insert is retried like a collision.
func Save(ctx context.Context, s Store, name, content string, maxAttempts int) (*Preseed, error) {
	for i := 0; i < maxAttempts; i++ {
		hashID, err := GenerateUniqueIdentifier(ctx, s, maxAttempts-i)
		if err != nil {
			return nil, err
		}

		now := time.Now().UTC()
		p := &Preseed{
			ID:        uuid.New(),
			HashID:    hashID,
			Name:      name,
			Content:   content,
			CreatedAt: now,
			UpdatedAt: now,
		}

		err = s.Insert(ctx, p)
		if errors.Is(err, ErrIdentifierTaken) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("error storing preseed: %w", err)
		}
		return p, nil
	}
	return nil, ErrIdentifierExhausted
}
