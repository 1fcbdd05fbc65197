package archive

import (
	"encoding/binary"
	"io"

	"github.com/Euclidae/khrowno-sub000/internal/errors"
	"github.com/Euclidae/khrowno-sub000/internal/util"
)

// Entry tags (spec §3).
const (
	TagFile    uint8 = 1
	TagSymlink uint8 = 2
)

// PayloadMarker opens every version-2 payload.
var PayloadMarker = []byte("KHRV2\n")

// chunkSize is the read/write granularity for streamed file content.
const chunkSize = util.MiB

func writeUint32(w io.Writer, v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func writeUint64(w io.Writer, v uint64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func writeInt64(w io.Writer, v int64) error {
	return writeUint64(w, uint64(v))
}

// encodeFileEntry writes a tag-1 record: path-len, path, mode, mtime, size,
// then exactly size content bytes read from content in chunkSize pieces.
// Returns the number of content bytes actually copied, so a short read on
// the source can be reported back to the caller as a truncated entry.
func encodeFileEntry(w io.Writer, path string, mode uint64, mtime int64, size uint64, content io.Reader) (uint64, error) {
	if _, err := w.Write([]byte{TagFile}); err != nil {
		return 0, err
	}
	if err := writeUint32(w, uint32(len(path))); err != nil {
		return 0, err
	}
	if _, err := w.Write([]byte(path)); err != nil {
		return 0, err
	}
	if err := writeUint64(w, mode); err != nil {
		return 0, err
	}
	if err := writeInt64(w, mtime); err != nil {
		return 0, err
	}
	if err := writeUint64(w, size); err != nil {
		return 0, err
	}

	buf := util.GetMiBBuffer()
	defer util.PutMiBBuffer(buf)
	var copied uint64
	for copied < size {
		want := size - copied
		if want > chunkSize {
			want = chunkSize
		}
		n, rerr := content.Read(buf[:want])
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return copied, werr
			}
			copied += uint64(n)
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return copied, rerr
		}
	}
	return copied, nil
}

// encodeSymlinkEntry writes a tag-2 record: path-len, path, mode (zero,
// ignored), mtime (zero, ignored), target-len, target bytes.
func encodeSymlinkEntry(w io.Writer, path, target string) error {
	if _, err := w.Write([]byte{TagSymlink}); err != nil {
		return err
	}
	if err := writeUint32(w, uint32(len(path))); err != nil {
		return err
	}
	if _, err := w.Write([]byte(path)); err != nil {
		return err
	}
	if err := writeUint64(w, 0); err != nil {
		return err
	}
	if err := writeInt64(w, 0); err != nil {
		return err
	}
	if err := writeUint32(w, uint32(len(target))); err != nil {
		return err
	}
	_, err := w.Write([]byte(target))
	return err
}

// decodedEntry is the union of a file or symlink record as the reader
// reconstructs it, before the caller decides what to do with it.
type decodedEntry struct {
	Tag      uint8
	Path     string
	Mode     uint64
	Mtime    int64
	Size     uint64 // tag 1 only
	Target   string // tag 2 only
	IsSymlnk bool
}

// readTag reads the single tag byte that starts every entry. io.EOF from
// here (at a record boundary) is the caller's cue that the payload ended.
func readTag(r io.Reader) (uint8, error) {
	var b [1]byte
	n, err := io.ReadFull(r, b[:])
	if n == 0 && err == io.EOF {
		return 0, io.EOF
	}
	if err != nil {
		return 0, errors.NewArchiveError("tag", errors.ErrArchiveFormatFailed)
	}
	return b[0], nil
}

func readUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, errors.NewArchiveError("field", errors.ErrArchiveFormatFailed)
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func readUint64(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, errors.NewArchiveError("field", errors.ErrArchiveFormatFailed)
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

func readString(r io.Reader, length uint32) (string, error) {
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", errors.NewArchiveError("field", errors.ErrArchiveFormatFailed)
	}
	return string(buf), nil
}

// decodeEntryHeader runs the want-tag through want-size-or-target-len
// states of the entry state machine and returns everything but the
// tag-1 content bytes, which the caller streams separately.
func decodeEntryHeader(r io.Reader) (*decodedEntry, error) {
	tag, err := readTag(r)
	if err != nil {
		return nil, err
	}
	if tag != TagFile && tag != TagSymlink {
		return nil, errors.NewArchiveError("tag", errors.ErrArchiveFormatFailed)
	}

	pathLen, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	path, err := readString(r, pathLen)
	if err != nil {
		return nil, err
	}
	mode, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	mtimeRaw, err := readUint64(r)
	if err != nil {
		return nil, err
	}

	e := &decodedEntry{Tag: tag, Path: path, Mode: mode, Mtime: int64(mtimeRaw)}

	if tag == TagFile {
		size, err := readUint64(r)
		if err != nil {
			return nil, err
		}
		e.Size = size
		return e, nil
	}

	e.IsSymlnk = true
	targetLen, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	target, err := readString(r, targetLen)
	if err != nil {
		return nil, err
	}
	e.Target = target
	return e, nil
}
