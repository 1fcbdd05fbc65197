package pkgresolve

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultCachePath returns the location the resolver's learned mappings are
// persisted to by default: $HOME/.config/krowno/package_mappings.json
// despite the extension the on-disk format is the line-oriented one below,
// kept for compatibility with the original tool's cache file name.
func DefaultCachePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "krowno", "package_mappings.json"), nil
}

// Save writes mappings to path in the line-oriented format:
//
//	canonical|fedora:name|ubuntu:name|...
//
// Lines starting with '#' are comments and ignored on load.
func Save(path string, mappings map[string]Mapping) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, "# krowno package mapping cache")
	for canonical, m := range mappings {
		line := canonical
		for distro, name := range m.PerDistro {
			line += fmt.Sprintf("|%s:%s", distro, name)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return w.Flush()
}

// Load reads a mapping cache file written by Save. A missing file is not an
// error: it returns an empty map so the resolver falls back to its builtin
// seed.
func Load(path string) (map[string]Mapping, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return map[string]Mapping{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	mappings := make(map[string]Mapping)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "|")
		canonical := fields[0]
		m := Mapping{Canonical: canonical, PerDistro: make(map[Distro]string)}
		for _, field := range fields[1:] {
			parts := strings.SplitN(field, ":", 2)
			if len(parts) != 2 {
				continue
			}
			m.PerDistro[Distro(parts[0])] = parts[1]
		}
		mappings[canonical] = m
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return mappings, nil
}

// LoadInto merges the cache file at path into r's in-memory table, builtin
// entries taking precedence only where the cache has no override.
func (r *Resolver) LoadInto(path string) error {
	loaded, err := Load(path)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for canonical, m := range loaded {
		r.mappings[canonical] = m
	}
	return nil
}

// Persist writes r's current in-memory mapping table to path.
func (r *Resolver) Persist(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Save(path, r.mappings)
}
