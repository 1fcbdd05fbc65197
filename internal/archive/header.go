// Package archive implements the backup container format: a fixed binary
// header followed by a payload that is either a streamed tagged-entry
// sequence (version 2) or a ciphertext-wrapped legacy textual record stream
// (version 1). This is AUDIT-CRITICAL code — changes to the field layout
// break compatibility with every container already on disk.
package archive

import (
	"encoding/binary"
	"io"

	"github.com/Euclidae/khrowno-sub000/internal/errors"
)

// Magic is the fixed 8-byte identifier every container begins with.
var Magic = [8]byte{'K', 'H', 'R', 'O', 'N', 'O', '0', '1'}

// Version identifies the payload shape.
const (
	VersionLegacyV1 uint32 = 1
	VersionTaggedV2 uint32 = 2
)

// Compression tags, shared with package codec.
const (
	CompressionNone uint8 = 0
	CompressionGzip uint8 = 1
	CompressionLZ4  uint8 = 2
	CompressionZstd uint8 = 3
)

// Encryption algorithm/KDF tags. Zero in both fields means the archive is
// plaintext; the descriptor is otherwise self-describing.
const (
	EncAlgoNone             uint8 = 0
	EncAlgoChaCha20Poly1305 uint8 = 1

	EncKDFNone     uint8 = 0
	EncKDFArgon2id uint8 = 1
)

const (
	SaltSize  = 32
	NonceSize = 12

	// ChecksumSize is the width of the payload digest (SHA-256).
	ChecksumSize = 32
)

// EncryptionDescriptor records the parameters needed to reproduce the key
// used to seal the payload. All-zero means plaintext.
type EncryptionDescriptor struct {
	Algo  uint8
	KDF   uint8
	Salt  [SaltSize]byte
	Nonce [NonceSize]byte
	Ops   uint32
	Mem   uint32
}

// IsEncrypted reports whether this descriptor describes an encrypted
// payload (algo and kdf both non-zero).
func (d EncryptionDescriptor) IsEncrypted() bool {
	return d.Algo != EncAlgoNone && d.KDF != EncKDFNone
}

// Header is the fixed-width container header, serialised in field order.
type Header struct {
	Magic          [8]byte
	Version        uint32
	CompressionTag uint8
	Encryption     EncryptionDescriptor
	PayloadLen     uint64
	Checksum       [ChecksumSize]byte
}

// Size is the on-disk byte width of a serialised Header. Fixed-width, no
// padding: magic(8) + version(4) + compression(1) + algo(1) + kdf(1) +
// salt(32) + nonce(12) + ops(4) + mem(4) + payload-len(8) + checksum(32).
const Size = 8 + 4 + 1 + 1 + 1 + SaltSize + NonceSize + 4 + 4 + 8 + ChecksumSize

// NewHeader builds a header with the given version and compression tag and
// a zeroed (plaintext) encryption descriptor and payload length/checksum —
// both filled in later once the payload has actually been written.
func NewHeader(version uint32, compressionTag uint8) *Header {
	h := &Header{Version: version, CompressionTag: compressionTag}
	copy(h.Magic[:], Magic[:])
	return h
}

// WriteTo serialises h to w in field order. Implements io.WriterTo so the
// writer can rewrite the header in place via io.WriteSeeker.Seek(0, 0).
func (h *Header) WriteTo(w io.Writer) (int64, error) {
	buf := make([]byte, Size)
	off := 0
	off += copy(buf[off:], h.Magic[:])
	binary.LittleEndian.PutUint32(buf[off:], h.Version)
	off += 4
	buf[off] = h.CompressionTag
	off++
	buf[off] = h.Encryption.Algo
	off++
	buf[off] = h.Encryption.KDF
	off++
	off += copy(buf[off:], h.Encryption.Salt[:])
	off += copy(buf[off:], h.Encryption.Nonce[:])
	binary.LittleEndian.PutUint32(buf[off:], h.Encryption.Ops)
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], h.Encryption.Mem)
	off += 4
	binary.LittleEndian.PutUint64(buf[off:], h.PayloadLen)
	off += 8
	off += copy(buf[off:], h.Checksum[:])

	n, err := w.Write(buf)
	if err != nil {
		return int64(n), errors.NewArchiveError("header-write", err)
	}
	return int64(n), nil
}

// ReadHeader parses a Header from r, validating the magic.
func ReadHeader(r io.Reader) (*Header, error) {
	buf := make([]byte, Size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, errors.NewArchiveError("magic", errors.ErrArchiveFormatFailed)
	}

	h := &Header{}
	off := 0
	copy(h.Magic[:], buf[off:off+8])
	off += 8
	if h.Magic != Magic {
		return nil, errors.NewArchiveError("magic", errors.ErrInvalidMagic)
	}

	h.Version = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	if h.Version != VersionLegacyV1 && h.Version != VersionTaggedV2 {
		return nil, errors.NewArchiveError("version", errors.ErrUnsupportedVersion)
	}

	h.CompressionTag = buf[off]
	off++
	h.Encryption.Algo = buf[off]
	off++
	h.Encryption.KDF = buf[off]
	off++
	copy(h.Encryption.Salt[:], buf[off:off+SaltSize])
	off += SaltSize
	copy(h.Encryption.Nonce[:], buf[off:off+NonceSize])
	off += NonceSize
	h.Encryption.Ops = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	h.Encryption.Mem = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	h.PayloadLen = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	copy(h.Checksum[:], buf[off:off+ChecksumSize])

	return h, nil
}
