// Package dedupstore implements a content-addressed file pool: each unique
// byte content is stored once under its hash, with a reference count that
// tracks how many logical paths currently point at it.
package dedupstore

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/Euclidae/khrowno-sub000/internal/errors"
	"github.com/Euclidae/khrowno-sub000/internal/hashsum"
	"github.com/Euclidae/khrowno-sub000/internal/util"
)

// Entry is one pool-resident content record.
type Entry struct {
	Hash     [hashsum.Size]byte
	Size     int64
	RefCount int
	PoolPath string // relative to the pool root
}

// Stats summarises the store's dedup efficiency.
type Stats struct {
	Unique        int
	TotalRefs     int
	LogicalBytes  int64
	PhysicalBytes int64
	SavingsPct    float64
}

// Store is a single content-addressable pool rooted at Dir. Not safe for
// concurrent mutation — callers must serialise Add/Lookup calls themselves,
// matching the rest of this core's single-threaded components.
type Store struct {
	Dir string

	mu      sync.Mutex
	entries map[[hashsum.Size]byte]*Entry
}

// New returns a Store rooted at dir. The directory is created on first Add
// if it does not already exist.
func New(dir string) *Store {
	return &Store{Dir: dir, entries: make(map[[hashsum.Size]byte]*Entry)}
}

func hashFile(path string) ([hashsum.Size]byte, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return [hashsum.Size]byte{}, 0, errors.NewFileError("open", path, err)
	}
	defer f.Close()

	h := hashsum.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return [hashsum.Size]byte{}, 0, errors.NewFileError("read", path, err)
	}
	return h.Finalize(), n, nil
}

func poolRelativePath(hash [hashsum.Size]byte) string {
	hex := hex.EncodeToString(hash[:])
	return filepath.Join(hex[:2], hex)
}

// Add hashes the file at path and stores it in the pool if its content is
// new. Returns true iff the content was new (a fresh physical copy was
// made); otherwise the existing entry's ref count is incremented.
func (s *Store) Add(path string) (bool, error) {
	hash, size, err := hashFile(path)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[hash]; ok {
		e.RefCount++
		return false, nil
	}

	rel := poolRelativePath(hash)
	full := filepath.Join(s.Dir, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return false, errors.NewFileError("mkdir", filepath.Dir(full), err)
	}
	if err := copyFile(path, full); err != nil {
		return false, err
	}

	s.entries[hash] = &Entry{Hash: hash, Size: size, RefCount: 1, PoolPath: rel}
	return true, nil
}

// Lookup hashes the candidate file and returns the pool path if present.
func (s *Store) Lookup(path string) (string, bool, error) {
	hash, _, err := hashFile(path)
	if err != nil {
		return "", false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[hash]
	if !ok {
		return "", false, nil
	}
	return filepath.Join(s.Dir, e.PoolPath), true, nil
}

// Stats computes the current dedup efficiency summary.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	var st Stats
	for _, e := range s.entries {
		st.Unique++
		st.TotalRefs += e.RefCount
		st.PhysicalBytes += e.Size
		st.LogicalBytes += e.Size * int64(e.RefCount)
	}
	if st.LogicalBytes > 0 {
		st.SavingsPct = float64(st.LogicalBytes-st.PhysicalBytes) / float64(st.LogicalBytes) * 100
	}
	return st
}

// Summary renders st as a human-readable one-line report, e.g.
// "42 unique files, 340.00 MiB logical, 120.00 MiB physical, 64.71% saved".
func (st Stats) Summary() string {
	return fmt.Sprintf("%d unique files, %s logical, %s physical, %.2f%% saved",
		st.Unique, util.Sizeify(st.LogicalBytes), util.Sizeify(st.PhysicalBytes), st.SavingsPct)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.NewFileError("open", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return errors.NewFileError("create", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return errors.NewFileError("write", dst, err)
	}
	return nil
}
