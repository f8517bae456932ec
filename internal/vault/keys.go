package vault

import (
	"crypto/rand"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zeromicro/go-zero/core/logx"
)

// DefaultOverlapWindow is the period after rotation during which a retired
// key still verifies signatures.
const DefaultOverlapWindow = 24 * time.Hour

// SigningKey holds rotated symmetric key material. State machine: Created ->
// Current (one at a time) -> Retired (still verifies) -> Purged.
//
// Key material must be zeroed on release. Go has no destructors, so Wipe is
// called explicitly by the ring at the moment a key is purged, under the
// ring's write lock, rather than left to the garbage collector.
type SigningKey struct {
	ID        string
	Algorithm string
	CreatedAt time.Time
	ExpiresAt time.Time // zero means "no expiry yet" (still current or freshly retired)
	secret    []byte
}

// Wipe overwrites the key's secret material in place. If it panics, the
// process is aborted rather than continued with potentially-leaked
// material; see KeyRing.purgeLocked.
func (k *SigningKey) Wipe() {
	for i := range k.secret {
		k.secret[i] = 0
	}
	k.secret = nil
}

func newSigningKey(algorithm string, keyBytes int) (*SigningKey, error) {
	secret := make([]byte, keyBytes)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate signing key: %w", err)
	}
	return &SigningKey{
		ID:        uuid.NewString(),
		Algorithm: algorithm,
		CreatedAt: time.Now(),
		secret:    secret,
	}, nil
}

// KeyRing is the read-mostly signing-key table: concurrent readers verify
// signatures against any non-purged key; writes happen only at rotation.
type KeyRing struct {
	mu           sync.RWMutex
	keys         map[string]*SigningKey
	currentID    string
	overlap      time.Duration
	defaultAlgo  string
	keyBytes     int
}

func NewKeyRing(defaultAlgorithm string, keyBytes int, overlap time.Duration) (*KeyRing, error) {
	if overlap <= 0 {
		overlap = DefaultOverlapWindow
	}
	r := &KeyRing{
		keys:        make(map[string]*SigningKey),
		overlap:     overlap,
		defaultAlgo: defaultAlgorithm,
		keyBytes:    keyBytes,
	}
	if _, err := r.rotate(defaultAlgorithm); err != nil {
		return nil, err
	}
	return r, nil
}

// Current returns the key presently used to sign new tokens.
func (r *KeyRing) Current() *SigningKey {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.keys[r.currentID]
}

// Lookup returns a key by id for verification, whether current or retired,
// as long as it has not been purged.
func (r *KeyRing) Lookup(keyID string) (*SigningKey, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.keys[keyID]
	return k, ok
}

// Rotate generates a fresh signing key, sets every previously-unexpired
// key's expiry to now + overlap window, flips the current pointer, and
// garbage-collects keys whose expiry has already passed.
func (r *KeyRing) Rotate(algorithm string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rotate(algorithm)
}

func (r *KeyRing) rotate(algorithm string) (string, error) {
	if algorithm == "" {
		algorithm = r.defaultAlgo
	}
	fresh, err := newSigningKey(algorithm, r.keyBytes)
	if err != nil {
		return "", err
	}
	now := time.Now()
	for id, k := range r.keys {
		if k.ExpiresAt.IsZero() || k.ExpiresAt.After(now) {
			k.ExpiresAt = now.Add(r.overlap)
		}
		if !k.ExpiresAt.IsZero() && k.ExpiresAt.Before(now) {
			r.purgeLocked(id)
		}
	}
	r.keys[fresh.ID] = fresh
	r.currentID = fresh.ID
	return fresh.ID, nil
}

// purgeLocked wipes and drops a key. Must be called with mu held for
// writing. Wipe failure (a panic inside it) is fail-closed: the recover
// aborts the process rather than letting a partially-wiped key linger.
func (r *KeyRing) purgeLocked(id string) {
	k, ok := r.keys[id]
	if !ok {
		return
	}
	func() {
		defer func() {
			if p := recover(); p != nil {
				logx.Errorf("signing key wipe panicked for %s, aborting process: %v", id, p)
				os.Exit(1)
			}
		}()
		k.Wipe()
	}()
	delete(r.keys, id)
}

// Valid reports whether keyID exists and has not expired, per the "every
// valid token carries the id of an existing, non-expired signing key"
// invariant.
func (r *KeyRing) Valid(keyID string) bool {
	k, ok := r.Lookup(keyID)
	if !ok {
		return false
	}
	return k.ExpiresAt.IsZero() || k.ExpiresAt.After(time.Now())
}
