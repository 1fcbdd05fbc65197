package archive

import (
	"bytes"
	"testing"
)

// FuzzDecodeEntryHeader exercises the tag/path/mode/mtime/size-or-target
// state machine with arbitrary input. decodeEntryHeader should never panic,
// only return a well-formed error or io.EOF.
// Run with: go test -fuzz=FuzzDecodeEntryHeader -fuzztime=60s
func FuzzDecodeEntryHeader(f *testing.F) {
	var fileEntry bytes.Buffer
	encodeFileEntry(&fileEntry, "some/path", 0o644, 1700000000, 3, bytes.NewReader([]byte("abc")))
	f.Add(fileEntry.Bytes())

	var symlinkEntry bytes.Buffer
	encodeSymlinkEntry(&symlinkEntry, "a/link", "../target")
	f.Add(symlinkEntry.Bytes())

	full := fileEntry.Bytes()
	for i := 1; i < len(full); i += 3 {
		f.Add(full[:i])
	}

	f.Add([]byte{})
	f.Add([]byte{TagFile})
	f.Add([]byte{TagSymlink})
	f.Add(make([]byte, 64))
	f.Add([]byte("not an entry at all"))

	f.Fuzz(func(t *testing.T, data []byte) {
		_, _ = decodeEntryHeader(bytes.NewReader(data))
	})
}
