package crypto

import (
	"github.com/Euclidae/khrowno-sub000/internal/errors"
	"github.com/Euclidae/khrowno-sub000/internal/hashsum"

	"golang.org/x/crypto/chacha20poly1305"
)

// Envelope is the serialisable result of Encrypt: a freshly drawn salt and
// nonce plus the authenticated ciphertext. Only salt, nonce, and the KDF
// parameters are ever stored in the outer archive header (spec §4.C); the
// ciphertext itself is the archive payload.
type Envelope struct {
	Salt       [SaltSize]byte
	Nonce      [NonceSize]byte
	Ciphertext []byte
}

// Encrypt derives a key from password via Argon2id with a freshly drawn
// salt and nonce, then seals plaintext with ChaCha20-Poly1305 AEAD. The
// returned Envelope's Ciphertext includes the authentication tag.
func Encrypt(plaintext, password []byte) (*Envelope, error) {
	return EncryptWithParams(plaintext, password, KDFTime, KDFMemory)
}

// EncryptWithParams is Encrypt with the Argon2id time/memory cost taken
// from the caller (e.g. a loaded internal/config.Config) instead of the
// fixed defaults. Both values travel with the envelope's archive header
// (spec §4.C), so Decrypt always derives the same key regardless of what
// the caller's current configuration happens to be.
func EncryptWithParams(plaintext, password []byte, timeCost, memoryKiB uint32) (*Envelope, error) {
	salt, err := hashsum.RandomBytes(SaltSize)
	if err != nil {
		return nil, errors.NewCryptoError("rand-salt", err)
	}
	nonce, err := hashsum.RandomBytes(NonceSize)
	if err != nil {
		return nil, errors.NewCryptoError("rand-nonce", err)
	}

	key, err := DeriveKeyWithParams(password, salt, timeCost, memoryKiB, KDFThreads)
	if err != nil {
		return nil, err
	}
	defer SecureZero(key)

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, errors.NewCryptoError("aead-new", err)
	}

	env := &Envelope{Ciphertext: aead.Seal(nil, nonce, plaintext, nil)}
	copy(env.Salt[:], salt)
	copy(env.Nonce[:], nonce)
	return env, nil
}

// Decrypt derives the key from password and the envelope's stored salt,
// then opens the ciphertext. Any tampering or wrong password surfaces as
// errors.ErrAuthenticationFailed — spec §4.C requires this be a hard
// failure, never a partial or best-effort result.
func Decrypt(env *Envelope, password []byte) ([]byte, error) {
	return DecryptWithParams(env, password, KDFTime, KDFMemory)
}

// DecryptWithParams is Decrypt with the Argon2id time/memory cost taken
// from the caller. The archive reader always passes the Ops/Mem values
// recorded in the container's own header, so this is self-describing per
// archive rather than dependent on the current process's configuration.
func DecryptWithParams(env *Envelope, password []byte, timeCost, memoryKiB uint32) ([]byte, error) {
	key, err := DeriveKeyWithParams(password, env.Salt[:], timeCost, memoryKiB, KDFThreads)
	if err != nil {
		return nil, err
	}
	defer SecureZero(key)

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, errors.NewCryptoError("aead-new", err)
	}

	plaintext, err := aead.Open(nil, env.Nonce[:], env.Ciphertext, nil)
	if err != nil {
		return nil, errors.NewCryptoError("aead-open", errors.ErrAuthenticationFailed)
	}
	return plaintext, nil
}

// Serialise encodes {salt, nonce, ciphertext} byte-exactly as
// salt || nonce || ciphertext, matching spec §4.C's serialise/deserialise
// contract (the outer header stores salt/nonce separately; this form is
// used when the envelope travels as a single opaque blob, e.g. in tests).
func (e *Envelope) Serialise() []byte {
	out := make([]byte, 0, SaltSize+NonceSize+len(e.Ciphertext))
	out = append(out, e.Salt[:]...)
	out = append(out, e.Nonce[:]...)
	out = append(out, e.Ciphertext...)
	return out
}

// Deserialise parses the byte-exact form produced by Serialise.
func Deserialise(b []byte) (*Envelope, error) {
	if len(b) < SaltSize+NonceSize {
		return nil, errors.NewCryptoError("deserialise", errors.ErrArchiveFormatFailed)
	}
	env := &Envelope{}
	copy(env.Salt[:], b[:SaltSize])
	copy(env.Nonce[:], b[SaltSize:SaltSize+NonceSize])
	env.Ciphertext = append([]byte(nil), b[SaltSize+NonceSize:]...)
	return env, nil
}
