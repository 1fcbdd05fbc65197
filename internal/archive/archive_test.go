package archive

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Euclidae/khrowno-sub000/internal/codec"
	"github.com/Euclidae/khrowno-sub000/internal/errors"
	"github.com/Euclidae/khrowno-sub000/internal/hashsum"
)

func writeSourceFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write source file: %v", err)
	}
	return path
}

func TestPlainRoundTripThreeFiles(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()

	a := writeSourceFile(t, srcDir, "a", []byte("abc"))
	b := writeSourceFile(t, srcDir, "b", []byte{})
	big := bytes.Repeat([]byte{0x5A}, 1048577)
	c := writeSourceFile(t, srcDir, "c", big)

	archivePath := filepath.Join(outDir, "out.khr")
	w := NewWriter(nil)
	if err := w.Write(context.Background(), []string{a, b, c}, archivePath, nil, codec.TagNone, nil); err != nil {
		t.Fatalf("Write: %v", err)
	}

	extractDir := t.TempDir()
	r := NewReader(nil)
	if err := r.Extract(context.Background(), archivePath, extractDir, nil, nil); err != nil {
		t.Fatalf("Extract: %v", err)
	}

	gotA, err := os.ReadFile(filepath.Join(extractDir, a[1:]))
	if err != nil {
		t.Fatalf("read extracted a: %v", err)
	}
	if string(gotA) != "abc" {
		t.Errorf("a content = %q, want %q", gotA, "abc")
	}

	gotB, err := os.ReadFile(filepath.Join(extractDir, b[1:]))
	if err != nil {
		t.Fatalf("read extracted b: %v", err)
	}
	if len(gotB) != 0 {
		t.Errorf("b should be empty, got %d bytes", len(gotB))
	}

	gotC, err := os.ReadFile(filepath.Join(extractDir, c[1:]))
	if err != nil {
		t.Fatalf("read extracted c: %v", err)
	}
	if !bytes.Equal(gotC, big) {
		t.Error("c content mismatch")
	}
}

func TestGzipSymlinkRoundTrip(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()

	linkPath := filepath.Join(srcDir, "lnk")
	if err := os.Symlink("../../etc/hostname", linkPath); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	archivePath := filepath.Join(outDir, "out.khr")
	w := NewWriter(nil)
	if err := w.Write(context.Background(), []string{linkPath}, archivePath, nil, codec.TagGzip, nil); err != nil {
		t.Fatalf("Write: %v", err)
	}

	r := NewReader(nil)
	entries, err := r.Index(context.Background(), archivePath, nil)
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	if len(entries) != 1 || !entries[0].IsSymlink {
		t.Fatalf("expected one symlink entry, got %+v", entries)
	}

	extractDir := t.TempDir()
	if err := r.Extract(context.Background(), archivePath, extractDir, nil, nil); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	target, err := os.Readlink(filepath.Join(extractDir, entries[0].Path))
	if err != nil {
		t.Fatalf("readlink: %v", err)
	}
	if target != "../../etc/hostname" {
		t.Errorf("target = %q, want %q", target, "../../etc/hostname")
	}
}

func TestPathTraversalRejected(t *testing.T) {
	outDir := t.TempDir()
	archivePath := filepath.Join(outDir, "out.khr")

	out, err := os.Create(archivePath)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	header := NewHeader(VersionTaggedV2, CompressionNone)

	var payload bytes.Buffer
	payload.Write(PayloadMarker)
	encodeFileEntry(&payload, "../x", 0o644, 0, 3, bytes.NewReader([]byte("abc")))

	header.PayloadLen = uint64(payload.Len())
	header.Checksum = hashsum.Sum256(payload.Bytes())
	header.WriteTo(out)
	out.Write(payload.Bytes())
	out.Close()

	r := NewReader(nil)
	extractDir := t.TempDir()
	err = r.Extract(context.Background(), archivePath, extractDir, nil, nil)
	if !errors.Is(err, errors.ErrArchiveFormatFailed) {
		t.Fatalf("expected ArchiveFormatFailed, got %v", err)
	}
	entries, _ := os.ReadDir(extractDir)
	if len(entries) != 0 {
		t.Error("expected no files created on path traversal rejection")
	}
}

func TestChecksumTamperDetected(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()
	a := writeSourceFile(t, srcDir, "a", []byte("hello world"))

	archivePath := filepath.Join(outDir, "out.khr")
	w := NewWriter(nil)
	if err := w.Write(context.Background(), []string{a}, archivePath, nil, codec.TagNone, nil); err != nil {
		t.Fatalf("Write: %v", err)
	}

	f, err := os.OpenFile(archivePath, os.O_RDWR, 0)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := f.Seek(int64(Size+10), 0); err != nil {
		t.Fatalf("seek: %v", err)
	}
	if _, err := f.Write([]byte{0xFF}); err != nil {
		t.Fatalf("tamper: %v", err)
	}
	f.Close()

	r := NewReader(nil)
	extractDir := t.TempDir()
	err = r.Extract(context.Background(), archivePath, extractDir, nil, nil)
	if !errors.Is(err, errors.ErrChecksumMismatch) && !errors.Is(err, errors.ErrArchiveFormatFailed) {
		t.Errorf("expected ChecksumMismatch or ArchiveFormatFailed, got %v", err)
	}
}

func TestEmptySourceListProducesValidArchive(t *testing.T) {
	outDir := t.TempDir()
	archivePath := filepath.Join(outDir, "out.khr")

	w := NewWriter(nil)
	if err := w.Write(context.Background(), nil, archivePath, nil, codec.TagNone, nil); err != nil {
		t.Fatalf("Write: %v", err)
	}

	r := NewReader(nil)
	entries, err := r.Index(context.Background(), archivePath, nil)
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %d", len(entries))
	}
}

func TestEncryptedRoundTrip(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()
	a := writeSourceFile(t, srcDir, "secret.txt", []byte("top secret contents"))

	archivePath := filepath.Join(outDir, "out.khr")
	w := NewWriter(nil)
	if err := w.Write(context.Background(), []string{a}, archivePath, []byte("hunter2"), codec.TagGzip, nil); err != nil {
		t.Fatalf("Write: %v", err)
	}

	r := NewReader(nil)
	extractDir := t.TempDir()
	if err := r.Extract(context.Background(), archivePath, extractDir, []byte("hunter2"), nil); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(extractDir, a[1:]))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "top secret contents" {
		t.Errorf("content = %q", got)
	}

	if err := r.Extract(context.Background(), archivePath, t.TempDir(), []byte("wrong"), nil); err == nil {
		t.Error("expected error for wrong password")
	}
}

func TestSelectiveExtract(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()
	a := writeSourceFile(t, srcDir, "a", []byte("aaa"))
	b := writeSourceFile(t, srcDir, "b", []byte("bbb"))

	archivePath := filepath.Join(outDir, "out.khr")
	w := NewWriter(nil)
	if err := w.Write(context.Background(), []string{a, b}, archivePath, nil, codec.TagNone, nil); err != nil {
		t.Fatalf("Write: %v", err)
	}

	r := NewReader(nil)
	extractDir := t.TempDir()
	wanted := map[string]bool{a[1:]: true}
	if err := r.SelectiveExtract(context.Background(), archivePath, extractDir, nil, wanted, nil); err != nil {
		t.Fatalf("SelectiveExtract: %v", err)
	}

	if _, err := os.Stat(filepath.Join(extractDir, a[1:])); err != nil {
		t.Errorf("expected %s to exist: %v", a, err)
	}
	if _, err := os.Stat(filepath.Join(extractDir, b[1:])); !os.IsNotExist(err) {
		t.Errorf("expected %s to not exist", b)
	}
}
