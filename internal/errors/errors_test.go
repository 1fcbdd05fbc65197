package errors

import (
	"errors"
	"testing"
)

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrCancelled", ErrCancelled},
		{"ErrInvalidMagic", ErrInvalidMagic},
		{"ErrUnsupportedVersion", ErrUnsupportedVersion},
		{"ErrArchiveFormatFailed", ErrArchiveFormatFailed},
		{"ErrChecksumMismatch", ErrChecksumMismatch},
		{"ErrCompressionFailed", ErrCompressionFailed},
		{"ErrDecompressionFailed", ErrDecompressionFailed},
		{"ErrEncryptionFailed", ErrEncryptionFailed},
		{"ErrDecryptionFailed", ErrDecryptionFailed},
		{"ErrFileNotFound", ErrFileNotFound},
		{"ErrFileExists", ErrFileExists},
		{"ErrPermissionDenied", ErrPermissionDenied},
		{"ErrDiskSpaceInsufficient", ErrDiskSpaceInsufficient},
		{"ErrPathTooLong", ErrPathTooLong},
		{"ErrIsDirectory", ErrIsDirectory},
		{"ErrNotDirectory", ErrNotDirectory},
		{"ErrInvalidPassword", ErrInvalidPassword},
		{"ErrWeakPassword", ErrWeakPassword},
		{"ErrAuthenticationFailed", ErrAuthenticationFailed},
		{"ErrRandFailure", ErrRandFailure},
		{"ErrPackageNotFound", ErrPackageNotFound},
		{"ErrUnsupportedDistribution", ErrUnsupportedDistribution},
		{"ErrPackageManagerNotFound", ErrPackageManagerNotFound},
		{"ErrNetworkUnavailable", ErrNetworkUnavailable},
		{"ErrTimeout", ErrTimeout},
		{"ErrInvalidURL", ErrInvalidURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err == nil {
				t.Error("sentinel error should not be nil")
			}
			if tt.err.Error() == "" {
				t.Error("sentinel error should have a message")
			}
		})
	}
}

func TestCryptoError(t *testing.T) {
	baseErr := errors.New("underlying error")
	cryptoErr := NewCryptoError("rand", baseErr)

	if cryptoErr.Error() != "crypto rand: underlying error" {
		t.Errorf("unexpected error message: %s", cryptoErr.Error())
	}
	if cryptoErr.Unwrap() != baseErr {
		t.Error("Unwrap should return underlying error")
	}

	cryptoErrNil := NewCryptoError("aead-open", nil)
	if cryptoErrNil.Error() != "crypto aead-open failed" {
		t.Errorf("unexpected error message for nil: %s", cryptoErrNil.Error())
	}
}

func TestFileError(t *testing.T) {
	baseErr := errors.New("permission denied")
	fileErr := NewFileError("open", "/path/to/file", baseErr)

	if fileErr.Error() != "open /path/to/file: permission denied" {
		t.Errorf("unexpected error message: %s", fileErr.Error())
	}
	if fileErr.Unwrap() != baseErr {
		t.Error("Unwrap should return underlying error")
	}

	fileErrNil := NewFileError("stat", "/some/path", nil)
	if fileErrNil.Error() != "stat /some/path failed" {
		t.Errorf("unexpected error message for nil: %s", fileErrNil.Error())
	}
}

func TestValidationError(t *testing.T) {
	validErr := NewValidationError("password", "must be at least 8 characters")

	expected := "validation: password: must be at least 8 characters"
	if validErr.Error() != expected {
		t.Errorf("unexpected error message: %s", validErr.Error())
	}
}

func TestArchiveError(t *testing.T) {
	baseErr := errors.New("decode failed")
	archErr := NewArchiveError("version", baseErr)

	if archErr.Error() != "archive version: decode failed" {
		t.Errorf("unexpected error message: %s", archErr.Error())
	}
	if archErr.Unwrap() != baseErr {
		t.Error("Unwrap should return underlying error")
	}
}

func TestPackageError(t *testing.T) {
	baseErr := errors.New("exit status 1")
	pkgErr := NewPackageError("install", "htop", baseErr)

	if pkgErr.Error() != "package install htop: exit status 1" {
		t.Errorf("unexpected error message: %s", pkgErr.Error())
	}
}

func TestNetworkError(t *testing.T) {
	baseErr := errors.New("context deadline exceeded")
	netErr := NewNetworkError("https://example.test/search", baseErr)

	if netErr.Error() != "network https://example.test/search: context deadline exceeded" {
		t.Errorf("unexpected error message: %s", netErr.Error())
	}
}

func TestIs(t *testing.T) {
	if !Is(ErrCancelled, ErrCancelled) {
		t.Error("Is should return true for same error")
	}
	if Is(ErrCancelled, ErrAuthenticationFailed) {
		t.Error("Is should return false for different errors")
	}
}

func TestAs(t *testing.T) {
	cryptoErr := NewCryptoError("test", errors.New("test"))

	var target *CryptoError
	if !As(cryptoErr, &target) {
		t.Error("As should find CryptoError")
	}
	if target.Op != "test" {
		t.Errorf("unexpected Op: %s", target.Op)
	}
}

func TestWrap(t *testing.T) {
	baseErr := errors.New("base")
	wrapped := Wrap(baseErr, "context")

	if wrapped.Error() != "context: base" {
		t.Errorf("unexpected wrapped message: %s", wrapped.Error())
	}
	if Wrap(nil, "context") != nil {
		t.Error("Wrap(nil) should return nil")
	}
}

func TestConvenienceFunctions(t *testing.T) {
	if !IsCancelled(ErrCancelled) {
		t.Error("IsCancelled should return true for ErrCancelled")
	}
	if IsCancelled(ErrAuthenticationFailed) {
		t.Error("IsCancelled should return false for other errors")
	}
	if !IsCorrupt(ErrArchiveFormatFailed) {
		t.Error("IsCorrupt should return true for ErrArchiveFormatFailed")
	}
	if !IsCorrupt(ErrChecksumMismatch) {
		t.Error("IsCorrupt should return true for ErrChecksumMismatch")
	}
}
