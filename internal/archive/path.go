package archive

import (
	"strings"

	"github.com/Euclidae/khrowno-sub000/internal/errors"
)

// sanitisePath strips a leading slash and rejects any empty, "." or ".."
// segment. This is the sole mitigation against path-traversal entries and
// must run on every path emitted by the reader before it touches disk.
func sanitisePath(raw string) (string, error) {
	p := strings.TrimPrefix(raw, "/")
	if p == "" {
		return "", errors.NewArchiveError("path", errors.ErrArchiveFormatFailed)
	}

	segments := strings.Split(p, "/")
	clean := make([]string, 0, len(segments))
	for _, seg := range segments {
		if seg == "" || seg == "." || seg == ".." {
			return "", errors.NewArchiveError("path", errors.ErrArchiveFormatFailed)
		}
		clean = append(clean, seg)
	}
	if len(clean) == 0 {
		return "", errors.NewArchiveError("path", errors.ErrArchiveFormatFailed)
	}
	return strings.Join(clean, "/"), nil
}
