// Package token issues the URL-safe result tokens used for unauthenticated
// result lookups.
package token

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	apperrors "github.com/azatarm-prog/telegive-giveaway/internal/common/errors"
)

const (
	DefaultLength      = 32
	DefaultMaxAttempts = 10
)

// ExistsFunc reports whether a candidate token is already taken.
type ExistsFunc func(ctx context.Context, token string) (bool, error)

// Issuer generates fixed-length URL-safe random tokens. The alphabet
// (A-Za-z0-9_-) must stay in sync with validation.ValidateResultToken.
type Issuer struct {
	length      int
	maxAttempts int
}

func NewIssuer(length, maxAttempts int) *Issuer {
	if length <= 0 {
		length = DefaultLength
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Issuer{length: length, maxAttempts: maxAttempts}
}

// Generate returns a single random token of the configured length.
func (i *Issuer) Generate() (string, error) {
	// base64url encodes 3 bytes into 4 chars; over-read and truncate to the
	// exact requested length.
	buf := make([]byte, i.length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(buf)
	return token[:i.length], nil
}

// IssueUnique generates a token and verifies global uniqueness through
// existsFn, retrying on collision. Exhausting all attempts is fatal for the
// caller: repeated collisions indicate a broken random source, not bad luck.
func (i *Issuer) IssueUnique(ctx context.Context, existsFn ExistsFunc) (string, error) {
	for attempt := 0; attempt < i.maxAttempts; attempt++ {
		candidate, err := i.Generate()
		if err != nil {
			return "", apperrors.Wrap(err, apperrors.ErrCodeTokenGeneration, "Failed to generate result token")
		}

		exists, err := existsFn(ctx, candidate)
		if err != nil {
			return "", apperrors.Wrap(err, apperrors.ErrCodeDatabase, "Result token uniqueness check failed")
		}
		if !exists {
			return candidate, nil
		}
	}

	return "", apperrors.Newf(apperrors.ErrCodeTokenGeneration,
		"Unable to generate unique token after %d attempts", i.maxAttempts)
}

// Length returns the configured token length.
func (i *Issuer) Length() int {
	return i.length
}
