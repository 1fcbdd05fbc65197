// Package crypto implements the archive's crypto envelope (spec §4.C): a
// password-derived key via Argon2id and authenticated encryption of a
// single in-memory byte blob. This is AUDIT-CRITICAL code — changes here
// directly affect whether existing archives can still be decrypted.
package crypto

import (
	"github.com/Euclidae/khrowno-sub000/internal/errors"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters. ops=3 (time cost) and mem≈64 MiB, matching spec §4.C's
// documented "ops=3, memory≈64 MiB equivalent".
//
// CRITICAL: these MUST NOT change, or existing archives cannot be decrypted.
const (
	KDFTime    = 3
	KDFMemory  = 64 * 1024 // KiB: 64 MiB
	KDFThreads = 4
	KDFKeySize = 32 // chacha20poly1305.KeySize
)

// SaltSize is the length of the Argon2id salt stored in the archive header.
const SaltSize = 32

// NonceSize is the length of the AEAD nonce stored in the archive header.
const NonceSize = 12

// DeriveKey derives a 32-byte symmetric key from a password and salt using
// Argon2id with the fixed parameters above.
func DeriveKey(password, salt []byte) ([]byte, error) {
	return DeriveKeyWithParams(password, salt, KDFTime, KDFMemory, KDFThreads)
}

// DeriveKeyWithParams is DeriveKey with the Argon2id time cost and memory
// cost taken from the caller instead of the fixed defaults. timeCost and
// memoryKiB are exactly the values recorded in the archive header's
// EncryptionDescriptor.Ops/Mem (spec §4.C), so a container written with a
// non-default cost still decrypts correctly. threads is NOT stored in the
// header — it has no on-disk field — so it MUST stay KDFThreads for every
// archive ever written, or existing containers stop decrypting.
func DeriveKeyWithParams(password, salt []byte, timeCost, memoryKiB uint32, threads uint8) ([]byte, error) {
	if len(salt) != SaltSize {
		return nil, errors.NewCryptoError("argon2", errors.NewValidationError("salt", "must be 32 bytes"))
	}
	key := argon2.IDKey(password, salt, timeCost, memoryKiB, threads, KDFKeySize)
	allZero := true
	for _, b := range key {
		if b != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return nil, errors.NewCryptoError("argon2", errors.ErrRandFailure)
	}
	return key, nil
}
