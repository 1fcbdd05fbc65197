// Package hashsum provides the streaming SHA-256 hash and the secure random
// byte source shared by the archive and crypto envelope packages.
package hashsum

import (
	"crypto/rand"
	"crypto/sha256"
	"hash"

	"github.com/Euclidae/khrowno-sub000/internal/errors"
)

// Size is the length in bytes of a finalized digest.
const Size = sha256.Size

// Hash wraps a running SHA-256 state. It is not safe for concurrent use by
// multiple goroutines, matching the single-threaded-cooperative model the
// archive writer and reader run under.
type Hash struct {
	h hash.Hash
}

// New starts a fresh running hash.
func New() *Hash {
	return &Hash{h: sha256.New()}
}

// Write feeds bytes into the running hash. It never returns an error; the
// signature matches io.Writer so a Hash can be used as a tee target.
func (h *Hash) Write(p []byte) (int, error) {
	return h.h.Write(p)
}

// Finalize returns the 32-byte digest of everything written so far.
func (h *Hash) Finalize() [Size]byte {
	var out [Size]byte
	copy(out[:], h.h.Sum(nil))
	return out
}

// Sum256 hashes a single byte slice in one call.
func Sum256(p []byte) [Size]byte {
	return sha256.Sum256(p)
}

// RandomBytes returns n cryptographically secure random bytes, read from
// crypto/rand (the OS CSPRNG — /dev/urandom on Linux). A run of all-zero
// output is treated as a CSPRNG failure, not accepted silently.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, errors.NewCryptoError("rand", err)
	}
	allZero := true
	for _, v := range b {
		if v != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return nil, errors.NewCryptoError("rand", errors.ErrRandFailure)
	}
	return b, nil
}
