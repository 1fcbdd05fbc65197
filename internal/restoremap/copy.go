package restoremap

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/Euclidae/khrowno-sub000/internal/errors"
)

// copyTreeFunc reports progress as (operation, done, total) while copying.
type copyTreeFunc func(operation string, done, total int)

// copyHomeTree recursively copies regular files and directories from src to
// dst, creating missing parents. Symlinks and special files are skipped;
// only directories and plain file content are copied. ctx is checked
// between files so a cancelled restore
// stops before starting the next one instead of running to completion.
func copyHomeTree(ctx context.Context, src, dst string, progress copyTreeFunc) error {
	var files []string
	err := filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // best-effort: one unreadable entry is skipped
		}
		if d.Type()&os.ModeSymlink != 0 || !(d.IsDir() || d.Type().IsRegular()) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return errors.NewFileError("walk", src, err)
	}

	total := len(files)
	for i, path := range files {
		if err := ctx.Err(); err != nil {
			return errors.NewFileError("copy", src, errors.ErrCancelled)
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			continue
		}
		target := filepath.Join(dst, rel)

		info, err := os.Lstat(path)
		if err != nil {
			continue
		}
		if info.IsDir() {
			_ = os.MkdirAll(target, 0o755)
		} else {
			if err := copyRegularFile(path, target, info.Mode()); err != nil {
				continue // per-file failures are skipped without being reported
			}
		}

		if progress != nil && (i%100 == 0 || i == total-1) {
			progress("copy-home", i+1, total)
		}
	}
	if progress != nil {
		progress("copy-home", total, total)
	}
	return nil
}

// copyRegularFile copies src to dst via a uuid-suffixed scratch file in the
// same directory, then renames it into place, so a restore interrupted
// mid-copy never leaves a partially-written file at dst.
func copyRegularFile(src, dst string, mode os.FileMode) error {
	destDir := filepath.Dir(dst)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return err
	}

	staging := filepath.Join(destDir, ".krowno-restore-"+uuid.NewString())
	if err := copyFileContent(src, staging, mode); err != nil {
		os.Remove(staging)
		return err
	}
	return os.Rename(staging, dst)
}

func copyFileContent(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
