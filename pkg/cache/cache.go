// Package cache provides profile caching keyed by input fingerprints.
//
// A fingerprint is a SHA-256 over the canonical encoding of everything that
// determines a run's output: boundary constraints, the layer stack, the EOS
// source version, and the solver and assembly options. Identical inputs
// always produce
// the identical key, so a second run of the same model is a cache hit and
// performs no integration and no EOS lookups at all.
//
// Backends:
//   - FileCache: directory of entry files for CLI usage
//   - MemoryCache: in-process map for tests and short-lived servers
//   - RedisCache: shared cache for multi-instance deployments
//   - MongoCache: document store for durable result archives
//   - NullCache: caching disabled
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/soletide/hydrostat/pkg/body"
)

// Cache is the interface all backends implement.
type Cache interface {
	// Get retrieves a value. The second return is false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A non-positive ttl means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// profilePrefix namespaces profile entries within a shared backend.
const profilePrefix = "profile"

// FingerprintInput is everything that determines a run's output. Assembly
// belongs here too: the seismic and conductivity toggles change which fields
// of the stored profile are populated, so runs differing only in those
// toggles must not share an entry.
type FingerprintInput struct {
	Constraints body.BoundaryConstraints `json:"constraints"`
	Layers      []body.LayerSpec         `json:"layers"`
	EOSVersion  string                   `json:"eos_version"`
	Solver      any                      `json:"solver,omitempty"`
	Assembly    any                      `json:"assembly,omitempty"`
}

// Fingerprint computes the canonical input hash. Struct encoding fixes the
// field order, so equal inputs hash equally.
func Fingerprint(in FingerprintInput) (string, error) {
	data, err := json.Marshal(in)
	if err != nil {
		return "", fmt.Errorf("encode fingerprint input: %w", err)
	}
	return Hash(data), nil
}

// ProfileKey returns the cache key for a fingerprint.
func ProfileKey(fingerprint string) string {
	return profilePrefix + ":" + fingerprint
}

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
