package archive

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"syscall"

	"github.com/Euclidae/khrowno-sub000/internal/codec"
	"github.com/Euclidae/khrowno-sub000/internal/config"
	"github.com/Euclidae/khrowno-sub000/internal/crypto"
	"github.com/Euclidae/khrowno-sub000/internal/errors"
	"github.com/Euclidae/khrowno-sub000/internal/hashsum"
	"github.com/Euclidae/khrowno-sub000/internal/log"
	"github.com/Euclidae/khrowno-sub000/internal/util"
)

// ProgressFunc reports archive-operation progress as (operation, done, total).
type ProgressFunc func(operation string, done, total int)

// Writer produces container files from a list of source paths. Its
// encryption-disable thresholds and free-space requirement come from
// Config, defaulted to config.Defaults() by NewWriter.
type Writer struct {
	Logger log.Logger
	Config config.Config
}

// NewWriter returns a Writer with the default configuration. A nil logger
// falls back to a no-op logger.
func NewWriter(logger log.Logger) *Writer {
	return NewWriterWithConfig(logger, config.Defaults())
}

// NewWriterWithConfig returns a Writer whose encryption thresholds and
// free-space requirement come from cfg instead of the defaults.
func NewWriterWithConfig(logger log.Logger, cfg config.Config) *Writer {
	if logger == nil {
		logger = log.NewNullLogger()
	}
	return &Writer{Logger: logger, Config: cfg}
}

type sourceStat struct {
	path    string
	info    os.FileInfo
	isLink  bool
	linkDst string
}

// countingWriter tracks the number of bytes written through it, used to
// record the on-disk payload length in the finalised header.
type countingWriter struct {
	w     io.Writer
	count int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.count += int64(n)
	return n, err
}

// Write streams sources into a new container at outputPath. password == nil
// (or empty) means plaintext. compressionRequested is resolved via
// codec.Resolve before anything is written, so an unimplemented tag never
// reaches the header. ctx is checked between entries; a cancelled ctx
// aborts the write with errors.ErrCancelled.
func (w *Writer) Write(ctx context.Context, sources []string, outputPath string, password []byte, compressionRequested codec.Tag, progress ProgressFunc) error {
	if err := ctx.Err(); err != nil {
		return errors.NewArchiveError("write", errors.ErrCancelled)
	}

	stats, totalBytes, err := statSources(sources)
	if err != nil {
		return err
	}

	if err := w.checkFreeSpace(filepath.Dir(outputPath), totalBytes); err != nil {
		return err
	}

	compressionTag := codec.Resolve(compressionRequested)

	encrypt := len(password) > 0
	if encrypt && (len(stats) > w.Config.EncryptionFileCountLimit || totalBytes > w.Config.EncryptionByteLimit) {
		w.Logger.Warn("encryption disabled: archive exceeds streaming-safe size",
			log.Field{Key: "files", Value: len(stats)},
			log.Field{Key: "bytes", Value: util.Sizeify(totalBytes)},
		)
		encrypt = false
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return errors.NewFileError("create", outputPath, err)
	}
	defer out.Close()

	if encrypt {
		return w.writeEncrypted(ctx, stats, out, password, compressionTag, progress)
	}
	return w.writeStreaming(ctx, stats, out, compressionTag, progress)
}

func statSources(sources []string) ([]sourceStat, int64, error) {
	stats := make([]sourceStat, 0, len(sources))
	var total int64
	for _, p := range sources {
		info, err := os.Lstat(p)
		if err != nil {
			continue // per-entry stat failures are skipped, not fatal
		}
		s := sourceStat{path: p, info: info}
		if info.Mode()&os.ModeSymlink != 0 {
			target, err := os.Readlink(p)
			if err != nil {
				continue
			}
			s.isLink = true
			s.linkDst = target
		} else if info.Mode().IsRegular() {
			total += info.Size()
		}
		stats = append(stats, s)
	}
	return stats, total, nil
}

func (w *Writer) checkFreeSpace(dir string, totalSourceSize int64) error {
	var fsStat syscall.Statfs_t
	if err := syscall.Statfs(dir, &fsStat); err != nil {
		return errors.NewFileError("statfs", dir, err)
	}
	free := int64(fsStat.Bavail) * int64(fsStat.Bsize)

	required := int64(float64(totalSourceSize) * w.Config.DiskHeadroomFraction)
	if required < w.Config.MinFreeSpaceBytes {
		required = w.Config.MinFreeSpaceBytes
	}
	required += totalSourceSize

	if free < required {
		w.Logger.Warn("insufficient disk space for archive write",
			log.Field{Key: "free", Value: util.Sizeify(free)},
			log.Field{Key: "required", Value: util.Sizeify(required)},
		)
		return errors.NewFileError("statfs", dir, errors.ErrDiskSpaceInsufficient)
	}
	return nil
}

// writeStreaming produces a version-2 tagged payload, streaming directly to
// disk with no whole-archive buffering. header.checksum is the SHA-256 of
// the logical (pre-compression) byte stream.
func (w *Writer) writeStreaming(ctx context.Context, stats []sourceStat, out *os.File, compressionTag codec.Tag, progress ProgressFunc) error {
	header := NewHeader(VersionTaggedV2, uint8(compressionTag))
	if _, err := header.WriteTo(out); err != nil {
		return err
	}

	counter := &countingWriter{w: out}
	enc, err := codec.NewEncoder(counter, compressionTag)
	if err != nil {
		return err
	}

	hasher := hashsum.New()
	logical := io.MultiWriter(enc, hasher)

	if _, err := logical.Write(PayloadMarker); err != nil {
		return errors.NewArchiveError("payload", err)
	}

	total := len(stats)
	for i, s := range stats {
		if err := ctx.Err(); err != nil {
			return errors.NewArchiveError("write", errors.ErrCancelled)
		}
		if err := w.writeOneEntry(logical, s); err != nil {
			w.Logger.Warn("skipping source entry", log.Field{Key: "path", Value: s.path}, log.Field{Key: "error", Value: err.Error()})
			continue
		}
		if progress != nil && (i%100 == 0 || i == total-1) {
			progress("write", i+1, total)
		}
	}
	if progress != nil {
		progress("write", total, total)
	}

	if err := enc.Finish(); err != nil {
		return err
	}

	header.PayloadLen = uint64(counter.count)
	header.Checksum = hasher.Finalize()

	if _, err := out.Seek(0, io.SeekStart); err != nil {
		return errors.NewFileError("seek", out.Name(), err)
	}
	if _, err := header.WriteTo(out); err != nil {
		return err
	}
	w.Logger.Debug("archive written", log.Field{Key: "size", Value: util.Sizeify(int64(header.PayloadLen))})
	return nil
}

func (w *Writer) writeOneEntry(logical io.Writer, s sourceStat) error {
	if s.isLink {
		return encodeSymlinkEntry(logical, s.path, s.linkDst)
	}
	if !s.info.Mode().IsRegular() {
		return nil // fifo/socket/device: skipped silently per contract
	}

	f, err := os.Open(s.path)
	if err != nil {
		return errors.NewFileError("open", s.path, err)
	}
	defer f.Close()

	size := uint64(s.info.Size())
	mode := uint64(s.info.Mode().Perm())
	mtime := s.info.ModTime().Unix()

	copied, err := encodeFileEntry(logical, s.path, mode, mtime, size, f)
	if err != nil && copied == size {
		// Entry framing already committed with the full declared size; any
		// write error past that point is a fatal stream error, not a skip.
		return errors.NewFileError("write", s.path, err)
	}
	return nil
}

// writeEncrypted builds the version-1 textual intermediate in memory,
// optionally compresses it, seals it with the crypto envelope, and writes
// the ciphertext as the payload. header.checksum here is over the
// ciphertext, not the logical stream — the documented exception for
// encrypted archives.
func (w *Writer) writeEncrypted(ctx context.Context, stats []sourceStat, out *os.File, password []byte, compressionTag codec.Tag, progress ProgressFunc) error {
	var entries []legacyEntry
	total := len(stats)
	for i, s := range stats {
		if err := ctx.Err(); err != nil {
			return errors.NewArchiveError("write", errors.ErrCancelled)
		}
		if s.isLink {
			w.Logger.Warn("symlink dropped from encrypted legacy payload", log.Field{Key: "path", Value: s.path})
			continue
		}
		if !s.info.Mode().IsRegular() {
			continue
		}
		data, err := os.ReadFile(s.path)
		if err != nil {
			w.Logger.Warn("skipping source entry", log.Field{Key: "path", Value: s.path}, log.Field{Key: "error", Value: err.Error()})
			continue
		}
		entries = append(entries, legacyEntry{Path: s.path, Mtime: s.info.ModTime().Unix(), Data: data})
		if progress != nil && (i%100 == 0 || i == total-1) {
			progress("write", i+1, total)
		}
	}
	if progress != nil {
		progress("write", total, total)
	}

	var plain bytes.Buffer
	if err := encodeLegacyPayload(&plain, entries); err != nil {
		return errors.NewArchiveError("legacy-encode", err)
	}

	payload := plain.Bytes()
	if compressionTag != codec.TagNone {
		var compressed bytes.Buffer
		enc, err := codec.NewEncoder(&compressed, compressionTag)
		if err != nil {
			return err
		}
		if _, err := enc.Write(payload); err != nil {
			return err
		}
		if err := enc.Finish(); err != nil {
			return err
		}
		payload = compressed.Bytes()
	}

	env, err := crypto.EncryptWithParams(payload, password, w.Config.KDFTimeCost, w.Config.KDFMemoryKiB)
	if err != nil {
		return errors.NewCryptoError("encrypt", errors.ErrEncryptionFailed)
	}

	header := NewHeader(VersionLegacyV1, uint8(compressionTag))
	header.Encryption = EncryptionDescriptor{
		Algo:  EncAlgoChaCha20Poly1305,
		KDF:   EncKDFArgon2id,
		Salt:  env.Salt,
		Nonce: env.Nonce,
		Ops:   w.Config.KDFTimeCost,
		Mem:   w.Config.KDFMemoryKiB,
	}
	header.PayloadLen = uint64(len(env.Ciphertext))
	header.Checksum = hashsum.Sum256(env.Ciphertext)

	if _, err := header.WriteTo(out); err != nil {
		return err
	}
	if _, err := out.Write(env.Ciphertext); err != nil {
		return errors.NewFileError("write", out.Name(), err)
	}
	w.Logger.Debug("archive written", log.Field{Key: "size", Value: util.Sizeify(int64(header.PayloadLen))})
	return nil
}
