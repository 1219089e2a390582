// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enrich

import (
	"errors"
	"fmt"
)

// Sentinel errors classifying enrichment client failures. The pipeline
// retries transient failures with backoff and records permanent ones
// without retrying.
var (
	// ErrTransient marks failures worth retrying: network errors,
	// timeouts, rate limiting, and server-side 5xx responses.
	ErrTransient = errors.New("transient enrichment failure")

	// ErrPermanent marks failures that will not succeed on retry: bad
	// input, rejected requests, and malformed API responses.
	ErrPermanent = errors.New("permanent enrichment failure")
)

// Transient wraps err as a transient enrichment failure.
func Transient(err error) error {
	return fmt.Errorf("%w: %w", ErrTransient, err)
}

// Permanent wraps err as a permanent enrichment failure.
func Permanent(err error) error {
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// IsTransient reports whether err is classified as transient.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// IsPermanent reports whether err is classified as permanent.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanent)
}
