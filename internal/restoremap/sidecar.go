// Package restoremap maps an extracted archive tree back onto a live
// system: it locates the metadata sidecar, copies the captured home
// directory into the target user's home, invokes the native package
// manager and sandboxed-app installer for the captured manifests, and
// best-effort applies ownership and hostname.
package restoremap

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/Euclidae/khrowno-sub000/internal/errors"
)

// Metadata is the parsed contents of a krowno_meta_* sidecar.
type Metadata struct {
	Hostname  string `json:"hostname"`
	Username  string `json:"username"`
	Home      string `json:"home"`
	Timestamp int64  `json:"timestamp"`
}

// findSidecar returns the first path in restoreDir/tmp matching prefix, or
// "" if none exists.
func findSidecar(restoreDir, prefix string) (string, error) {
	tmpDir := filepath.Join(restoreDir, "tmp")
	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", errors.NewFileError("readdir", tmpDir, err)
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), prefix) {
			return filepath.Join(tmpDir, e.Name()), nil
		}
	}
	return "", nil
}

// loadMetadata locates and parses the krowno_meta_* sidecar. A missing
// sidecar is not an error: it returns a zero Metadata and ok=false so the
// caller falls back to scanning restoreDir/home.
func loadMetadata(restoreDir string) (Metadata, bool, error) {
	path, err := findSidecar(restoreDir, "krowno_meta_")
	if err != nil {
		return Metadata{}, false, err
	}
	if path == "" {
		return Metadata{}, false, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, false, errors.NewFileError("read", path, err)
	}

	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return Metadata{}, false, errors.NewArchiveError("sidecar", err)
	}
	return m, true, nil
}

// firstHomeSubdir returns the name of the first subdirectory under
// restoreDir/home, used as the source-user fallback when no sidecar is
// present.
func firstHomeSubdir(restoreDir string) (string, error) {
	homeDir := filepath.Join(restoreDir, "home")
	entries, err := os.ReadDir(homeDir)
	if err != nil {
		return "", errors.NewFileError("readdir", homeDir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			return e.Name(), nil
		}
	}
	return "", errors.NewFileError("readdir", homeDir, errors.ErrFileNotFound)
}

var pkgLineRe = regexp.MustCompile(`^PKG: (.+)$`)

// scanPackageSidecars reads every krowno_packages_* file under
// restoreDir/tmp and collects the PKG: lines into a flat list.
func scanPackageSidecars(restoreDir string) ([]string, error) {
	return scanListSidecars(restoreDir, "krowno_packages_", pkgLineRe)
}

// scanFlatpakSidecars reads every krowno_flatpaks_* file and collects one
// application identifier per non-header line.
func scanFlatpakSidecars(restoreDir string) ([]string, error) {
	tmpDir := filepath.Join(restoreDir, "tmp")
	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.NewFileError("readdir", tmpDir, err)
	}

	var ids []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), "krowno_flatpaks_") {
			continue
		}
		path := filepath.Join(tmpDir, e.Name())
		lines, err := readFlatpakFile(path)
		if err != nil {
			continue // best-effort: a malformed sidecar is skipped, not fatal
		}
		ids = append(ids, lines...)
	}
	return ids, nil
}

func readFlatpakFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var ids []string
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		switch {
		case lineNum == 1:
			if line != "KROWNO_FLATPAK_LIST" {
				return nil, errors.NewArchiveError("sidecar", errors.ErrArchiveFormatFailed)
			}
		case strings.HasPrefix(line, "TIMESTAMP:"), strings.HasPrefix(line, "COUNT:"):
			continue
		case line == "":
			continue
		default:
			ids = append(ids, line)
		}
	}
	return ids, scanner.Err()
}

func scanListSidecars(restoreDir, prefix string, lineRe *regexp.Regexp) ([]string, error) {
	tmpDir := filepath.Join(restoreDir, "tmp")
	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.NewFileError("readdir", tmpDir, err)
	}

	var matches []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		path := filepath.Join(tmpDir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		for _, line := range strings.Split(string(data), "\n") {
			if m := lineRe.FindStringSubmatch(line); m != nil {
				matches = append(matches, m[1])
			}
		}
	}
	return matches, nil
}

// WritePackageSidecar serialises names in the KROWNO_PACKAGE_MANIFEST
// format to the file destPath, for the backup side of the round trip.
func WritePackageSidecar(destPath string, names []string, timestamp int64) error {
	var b strings.Builder
	b.WriteString("KROWNO_PACKAGE_MANIFEST\n")
	b.WriteString("TIMESTAMP: " + strconv.FormatInt(timestamp, 10) + "\n")
	b.WriteString("TOTAL_PACKAGES: " + strconv.Itoa(len(names)) + "\n")
	for _, n := range names {
		b.WriteString("PKG: " + n + "\n")
	}
	return os.WriteFile(destPath, []byte(b.String()), 0o644)
}

// WriteFlatpakSidecar serialises ids in the KROWNO_FLATPAK_LIST format.
func WriteFlatpakSidecar(destPath string, ids []string, timestamp int64) error {
	var b strings.Builder
	b.WriteString("KROWNO_FLATPAK_LIST\n")
	b.WriteString("TIMESTAMP: " + strconv.FormatInt(timestamp, 10) + "\n")
	b.WriteString("COUNT: " + strconv.Itoa(len(ids)) + "\n")
	for _, id := range ids {
		b.WriteString(id + "\n")
	}
	return os.WriteFile(destPath, []byte(b.String()), 0o644)
}

// WriteMetadataSidecar serialises m as the single-line JSON metadata
// sidecar format.
func WriteMetadataSidecar(destPath string, m Metadata) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(destPath, data, 0o644)
}
