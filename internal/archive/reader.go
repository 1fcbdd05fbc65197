package archive

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/Euclidae/khrowno-sub000/internal/codec"
	"github.com/Euclidae/khrowno-sub000/internal/crypto"
	"github.com/Euclidae/khrowno-sub000/internal/errors"
	"github.com/Euclidae/khrowno-sub000/internal/hashsum"
	"github.com/Euclidae/khrowno-sub000/internal/log"
	"github.com/Euclidae/khrowno-sub000/internal/util"
)

// IndexEntry is a lightweight per-entry record produced by Index: no file
// content is written to disk, but the content bytes are still read so the
// final checksum remains authoritative.
type IndexEntry struct {
	Path      string
	Size      uint64
	Mtime     int64
	IsSymlink bool
}

// defaultLegacyMode is applied to files recovered from a version-1 textual
// payload, which carries no mode field of its own.
const defaultLegacyMode = 0o644

// Reader performs extract, index, and selective-extract over a container.
type Reader struct {
	Logger log.Logger
}

// NewReader returns a Reader. A nil logger falls back to a no-op logger.
func NewReader(logger log.Logger) *Reader {
	if logger == nil {
		logger = log.NewNullLogger()
	}
	return &Reader{Logger: logger}
}

func (r *Reader) openPrelude(inputPath string) (*os.File, *Header, error) {
	f, err := os.Open(inputPath)
	if err != nil {
		return nil, nil, errors.NewFileError("open", inputPath, err)
	}
	h, err := ReadHeader(f)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return f, h, nil
}

// Extract decodes the full container to destDir. ctx is checked between
// entries; a cancelled ctx aborts the extract with errors.ErrCancelled.
func (r *Reader) Extract(ctx context.Context, inputPath, destDir string, password []byte, progress ProgressFunc) error {
	return r.walk(ctx, inputPath, password, progress, func(e *decodedEntry, content io.Reader) error {
		return r.materialise(destDir, e, content)
	}, func(entries []legacyEntry) error {
		for _, e := range entries {
			path, err := sanitisePath(e.Path)
			if err != nil {
				return err
			}
			if err := writeFile(filepath.Join(destDir, path), defaultLegacyMode, e.Mtime, bytes.NewReader(e.Data)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Index walks the container without writing any files, accumulating
// per-entry metadata. Content bytes are still consumed so the checksum
// check remains authoritative.
func (r *Reader) Index(ctx context.Context, inputPath string, password []byte) ([]IndexEntry, error) {
	var out []IndexEntry
	err := r.walk(ctx, inputPath, password, nil, func(e *decodedEntry, content io.Reader) error {
		if content != nil {
			if _, err := io.Copy(io.Discard, content); err != nil {
				return errors.NewArchiveError("content", errors.ErrArchiveFormatFailed)
			}
		}
		path, err := sanitisePath(e.Path)
		if err != nil {
			return err
		}
		out = append(out, IndexEntry{Path: path, Size: e.Size, Mtime: e.Mtime, IsSymlink: e.IsSymlnk})
		return nil
	}, func(entries []legacyEntry) error {
		for _, e := range entries {
			path, err := sanitisePath(e.Path)
			if err != nil {
				return err
			}
			out = append(out, IndexEntry{Path: path, Size: uint64(len(e.Data)), Mtime: e.Mtime})
		}
		return nil
	})
	return out, err
}

// SelectiveExtract writes only entries whose sanitised path is in wanted;
// all other entries have their bytes consumed (to stay aligned) but are
// not written. The streaming checksum is not verified in this mode.
func (r *Reader) SelectiveExtract(ctx context.Context, inputPath, destDir string, password []byte, wanted map[string]bool, progress ProgressFunc) error {
	if err := ctx.Err(); err != nil {
		return errors.NewArchiveError("selective-extract", errors.ErrCancelled)
	}

	f, header, err := r.openPrelude(inputPath)
	if err != nil {
		return err
	}
	defer f.Close()

	if header.Encryption.IsEncrypted() || header.Version == VersionLegacyV1 {
		entries, err := r.decodeBuffered(f, header, password)
		if err != nil {
			return err
		}
		for _, e := range entries {
			path, err := sanitisePath(e.Path)
			if err != nil {
				return err
			}
			if !wanted[path] {
				continue
			}
			if err := writeFile(filepath.Join(destDir, path), defaultLegacyMode, e.Mtime, bytes.NewReader(e.Data)); err != nil {
				return err
			}
		}
		return nil
	}

	source, err := r.openTaggedStream(f, header)
	if err != nil {
		return err
	}

	total := 0
	count := 0
	for {
		if err := ctx.Err(); err != nil {
			return errors.NewArchiveError("selective-extract", errors.ErrCancelled)
		}

		e, err := decodeEntryHeader(source)
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		path, perr := sanitisePath(e.Path)
		if perr != nil {
			return perr
		}

		if e.Tag == TagFile {
			if wanted[path] {
				if err := materialiseFileContent(filepath.Join(destDir, path), e, io.LimitReader(source, int64(e.Size))); err != nil {
					return err
				}
			} else if _, err := io.CopyN(io.Discard, source, int64(e.Size)); err != nil {
				return errors.NewArchiveError("content", errors.ErrArchiveFormatFailed)
			}
		} else if wanted[path] {
			if err := materialiseSymlink(filepath.Join(destDir, path), e.Target); err != nil {
				return err
			}
		}

		count++
		total++
		if progress != nil && count%100 == 0 {
			progress("selective-extract", count, total)
		}
	}
	if progress != nil {
		progress("selective-extract", total, total)
	}
	return nil
}

// walk is the shared traversal used by Extract and Index: it dispatches to
// the tagged streaming path or the buffered legacy path depending on the
// header, verifying the checksum in the streaming case.
func (r *Reader) walk(
	ctx context.Context,
	inputPath string,
	password []byte,
	progress ProgressFunc,
	onTagged func(e *decodedEntry, content io.Reader) error,
	onLegacy func(entries []legacyEntry) error,
) error {
	if err := ctx.Err(); err != nil {
		return errors.NewArchiveError("read", errors.ErrCancelled)
	}

	f, header, err := r.openPrelude(inputPath)
	if err != nil {
		return err
	}
	defer f.Close()

	if header.Encryption.IsEncrypted() || header.Version == VersionLegacyV1 {
		entries, err := r.decodeBuffered(f, header, password)
		if err != nil {
			return err
		}
		return onLegacy(entries)
	}

	source, err := r.openTaggedStream(f, header)
	if err != nil {
		return err
	}

	hasher := hashsum.New()
	if _, err := hasher.Write(PayloadMarker); err != nil {
		return errors.NewArchiveError("payload", err)
	}

	total := 0
	count := 0
	for {
		if err := ctx.Err(); err != nil {
			return errors.NewArchiveError("read", errors.ErrCancelled)
		}

		e, err := decodeEntryHeader(io.TeeReader(source, hasherWriter{hasher}))
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		if _, perr := sanitisePath(e.Path); perr != nil {
			return perr
		}

		if e.Tag == TagFile {
			limited := io.LimitReader(source, int64(e.Size))
			tee := io.TeeReader(limited, hasherWriter{hasher})
			if err := onTagged(e, tee); err != nil {
				return err
			}
		} else {
			if err := onTagged(e, nil); err != nil {
				return err
			}
		}

		count++
		total++
		if progress != nil && count%100 == 0 {
			progress("read", count, total)
		}
	}
	if progress != nil {
		progress("read", total, total)
	}

	if hasher.Finalize() != header.Checksum {
		return errors.NewArchiveError("checksum", errors.ErrChecksumMismatch)
	}
	r.Logger.Debug("archive verified", log.Field{Key: "size", Value: util.Sizeify(int64(header.PayloadLen))})
	return nil
}

// openTaggedStream positions a version-2 payload reader at the first entry,
// having verified and consumed the KHRV2 marker.
func (r *Reader) openTaggedStream(f *os.File, header *Header) (io.Reader, error) {
	limited := io.LimitReader(f, int64(header.PayloadLen))
	source, err := codec.NewDecoder(limited, codec.Tag(header.CompressionTag))
	if err != nil {
		return nil, err
	}

	marker := make([]byte, len(PayloadMarker))
	if _, err := io.ReadFull(source, marker); err != nil || !bytes.Equal(marker, PayloadMarker) {
		return nil, errors.NewArchiveError("payload-marker", errors.ErrArchiveFormatFailed)
	}
	return source, nil
}

// decodeBuffered recovers the logical version-1 textual payload from an
// encrypted or legacy container: checksum semantics depend on whether the
// payload is encrypted (checksum over ciphertext) or not (checksum over the
// logical, pre-compression stream).
func (r *Reader) decodeBuffered(f *os.File, header *Header, password []byte) ([]legacyEntry, error) {
	raw := make([]byte, header.PayloadLen)
	if _, err := io.ReadFull(f, raw); err != nil {
		return nil, errors.NewArchiveError("payload", errors.ErrArchiveFormatFailed)
	}

	var logical []byte

	if header.Encryption.IsEncrypted() {
		if hashsum.Sum256(raw) != header.Checksum {
			return nil, errors.NewArchiveError("checksum", errors.ErrChecksumMismatch)
		}
		if len(password) == 0 {
			return nil, errors.NewCryptoError("decrypt", errors.ErrDecryptionFailed)
		}
		env := &crypto.Envelope{Salt: header.Encryption.Salt, Nonce: header.Encryption.Nonce, Ciphertext: raw}
		plain, err := crypto.DecryptWithParams(env, password, header.Encryption.Ops, header.Encryption.Mem)
		if err != nil {
			return nil, err
		}
		logical = plain
		if codec.Tag(header.CompressionTag) != codec.TagNone {
			dec, err := codec.NewDecoder(bytes.NewReader(logical), codec.Tag(header.CompressionTag))
			if err != nil {
				return nil, err
			}
			logical, err = io.ReadAll(dec)
			if err != nil {
				return nil, err
			}
		}
	} else {
		logical = raw
		if codec.Tag(header.CompressionTag) != codec.TagNone {
			dec, err := codec.NewDecoder(bytes.NewReader(raw), codec.Tag(header.CompressionTag))
			if err != nil {
				return nil, err
			}
			decoded, err := io.ReadAll(dec)
			if err != nil {
				return nil, err
			}
			logical = decoded
		}
		if hashsum.Sum256(logical) != header.Checksum {
			return nil, errors.NewArchiveError("checksum", errors.ErrChecksumMismatch)
		}
	}

	return decodeLegacyPayload(bytes.NewReader(logical))
}

type hasherWriter struct{ h *hashsum.Hash }

func (hw hasherWriter) Write(p []byte) (int, error) { return hw.h.Write(p) }

func (r *Reader) materialise(destDir string, e *decodedEntry, content io.Reader) error {
	path, err := sanitisePath(e.Path)
	if err != nil {
		return err
	}
	target := filepath.Join(destDir, path)

	if e.IsSymlnk {
		return materialiseSymlink(target, e.Target)
	}
	return materialiseFileContent(target, e, content)
}

func materialiseFileContent(target string, e *decodedEntry, content io.Reader) error {
	return writeFile(target, os.FileMode(e.Mode&0o7777), e.Mtime, content)
}

func materialiseSymlink(target, linkTarget string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return errors.NewFileError("mkdir", filepath.Dir(target), err)
	}
	_ = os.Remove(target)
	if err := os.Symlink(linkTarget, target); err != nil {
		return errors.NewFileError("symlink", target, err)
	}
	return nil
}

func writeFile(target string, mode os.FileMode, mtime int64, content io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return errors.NewFileError("mkdir", filepath.Dir(target), err)
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return errors.NewFileError("create", target, err)
	}
	defer out.Close()

	if content != nil {
		if _, err := io.Copy(out, content); err != nil {
			return errors.NewFileError("write", target, err)
		}
	}
	if mode != 0 {
		if err := out.Chmod(mode); err != nil {
			return errors.NewFileError("chmod", target, err)
		}
	}
	if mtime != 0 {
		t := time.Unix(mtime, 0)
		if err := os.Chtimes(target, t, t); err != nil {
			return errors.NewFileError("chtimes", target, err)
		}
	}
	return nil
}
