package archive

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Euclidae/khrowno-sub000/internal/errors"
)

// LegacyMarker opens a version-1 textual payload. The writer only produces
// this format as the plaintext intermediate for encrypted archives (spec's
// open-question resolution); the reader accepts it standalone too, since
// real-world version-1 containers predate the tagged binary format.
const LegacyMarker = "KROWNO_BACKUP_V1\n"

// legacyEntry is one FILE/LEN/MTIME/content record of the version-1 format.
// Symbolic links have no representation in this format; the writer that
// builds one drops symlink sources, logging a warning for each, rather than
// invent a record type the original format never had.
type legacyEntry struct {
	Path  string
	Mtime int64
	Data  []byte
}

// encodeLegacyPayload serialises entries into the version-1 textual form.
func encodeLegacyPayload(w io.Writer, entries []legacyEntry) error {
	if _, err := io.WriteString(w, LegacyMarker); err != nil {
		return err
	}
	for _, e := range entries {
		if _, err := fmt.Fprintf(w, "FILE: %s\n", e.Path); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "LEN: %d\n", len(e.Data)); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "MTIME: %d\n", e.Mtime); err != nil {
			return err
		}
		if _, err := w.Write(e.Data); err != nil {
			return err
		}
	}
	return nil
}

// decodeLegacyPayload parses a version-1 textual payload back into entries.
func decodeLegacyPayload(r io.Reader) ([]legacyEntry, error) {
	br := bufio.NewReader(r)

	marker := make([]byte, len(LegacyMarker))
	if _, err := io.ReadFull(br, marker); err != nil || string(marker) != LegacyMarker {
		return nil, errors.NewArchiveError("legacy-marker", errors.ErrArchiveFormatFailed)
	}

	var entries []legacyEntry
	for {
		line, err := br.ReadString('\n')
		if err == io.EOF && line == "" {
			break
		}
		if err != nil && err != io.EOF {
			return nil, errors.NewArchiveError("legacy-record", errors.ErrArchiveFormatFailed)
		}
		if !strings.HasPrefix(line, "FILE: ") {
			return nil, errors.NewArchiveError("legacy-record", errors.ErrArchiveFormatFailed)
		}
		path := strings.TrimSuffix(strings.TrimPrefix(line, "FILE: "), "\n")

		lenLine, err := br.ReadString('\n')
		if err != nil || !strings.HasPrefix(lenLine, "LEN: ") {
			return nil, errors.NewArchiveError("legacy-record", errors.ErrArchiveFormatFailed)
		}
		length, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(lenLine, "LEN: ")))
		if err != nil || length < 0 {
			return nil, errors.NewArchiveError("legacy-record", errors.ErrArchiveFormatFailed)
		}

		mtimeLine, err := br.ReadString('\n')
		if err != nil || !strings.HasPrefix(mtimeLine, "MTIME: ") {
			return nil, errors.NewArchiveError("legacy-record", errors.ErrArchiveFormatFailed)
		}
		mtime, err := strconv.ParseInt(strings.TrimSpace(strings.TrimPrefix(mtimeLine, "MTIME: ")), 10, 64)
		if err != nil {
			return nil, errors.NewArchiveError("legacy-record", errors.ErrArchiveFormatFailed)
		}

		data := make([]byte, length)
		if _, err := io.ReadFull(br, data); err != nil {
			return nil, errors.NewArchiveError("legacy-content", errors.ErrArchiveFormatFailed)
		}

		entries = append(entries, legacyEntry{Path: path, Mtime: mtime, Data: data})
	}

	return entries, nil
}
