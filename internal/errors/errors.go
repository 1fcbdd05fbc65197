// Package errors provides typed errors for the khrono archive, dedup,
// package-resolver, dependency-graph, and restore-mapper operations.
// This enables callers to use errors.Is() and errors.As() for specific error handling.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions, grouped by layer (spec §7).
// Use errors.Is(err, errors.ErrChecksumMismatch) to check for specific errors.
var (
	// Archive
	ErrCancelled           = errors.New("operation cancelled")
	ErrInvalidMagic        = errors.New("invalid archive magic")
	ErrUnsupportedVersion  = errors.New("unsupported archive version")
	ErrArchiveFormatFailed = errors.New("archive format invalid")
	ErrChecksumMismatch    = errors.New("checksum mismatch")
	ErrCompressionFailed   = errors.New("compression failed")
	ErrDecompressionFailed = errors.New("decompression failed")
	ErrEncryptionFailed    = errors.New("encryption failed")
	ErrDecryptionFailed    = errors.New("decryption failed")

	// Storage
	ErrFileNotFound          = errors.New("file not found")
	ErrFileExists            = errors.New("file already exists")
	ErrPermissionDenied      = errors.New("permission denied")
	ErrDiskSpaceInsufficient = errors.New("insufficient disk space")
	ErrPathTooLong           = errors.New("path too long")
	ErrIsDirectory           = errors.New("is a directory")
	ErrNotDirectory          = errors.New("not a directory")

	// Crypto
	ErrInvalidPassword      = errors.New("invalid password")
	ErrWeakPassword         = errors.New("password too weak")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrRandFailure          = errors.New("crypto/rand failure")

	// Package
	ErrPackageNotFound         = errors.New("package not found")
	ErrUnsupportedDistribution = errors.New("unsupported distribution")
	ErrPackageManagerNotFound  = errors.New("package manager not found")

	// Network
	ErrNetworkUnavailable = errors.New("network unavailable")
	ErrTimeout            = errors.New("request timed out")
	ErrInvalidURL         = errors.New("invalid url")
)

// CryptoError represents an error during cryptographic operations.
// It wraps the underlying error with operation context.
type CryptoError struct {
	Op  string // Operation name: "rand", "argon2", "aead-seal", "aead-open"
	Err error  // Underlying error
}

func (e *CryptoError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("crypto %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("crypto %s failed", e.Op)
}

func (e *CryptoError) Unwrap() error {
	return e.Err
}

// NewCryptoError creates a new CryptoError.
func NewCryptoError(op string, err error) *CryptoError {
	return &CryptoError{Op: op, Err: err}
}

// FileError represents an error during file operations.
type FileError struct {
	Op   string // Operation: "open", "read", "write", "stat", "create", "mkdir"
	Path string // File path
	Err  error  // Underlying error
}

func (e *FileError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s %s failed", e.Op, e.Path)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// NewFileError creates a new FileError.
func NewFileError(op, path string, err error) *FileError {
	return &FileError{Op: op, Path: path, Err: err}
}

// ValidationError represents an input validation error.
type ValidationError struct {
	Field   string // Field name that failed validation
	Message string // Human-readable error message
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ArchiveError represents an error parsing or validating the archive
// container (header or payload).
type ArchiveError struct {
	Field string // "magic", "version", "tag", "path", "checksum"
	Err   error
}

func (e *ArchiveError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("archive %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("archive %s invalid", e.Field)
}

func (e *ArchiveError) Unwrap() error {
	return e.Err
}

// NewArchiveError creates a new ArchiveError.
func NewArchiveError(field string, err error) *ArchiveError {
	return &ArchiveError{Field: field, Err: err}
}

// PackageError represents a failure resolving, installing, or listing
// distro packages.
type PackageError struct {
	Op   string // "translate", "install", "list"
	Name string
	Err  error
}

func (e *PackageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("package %s %s: %v", e.Op, e.Name, e.Err)
	}
	return fmt.Sprintf("package %s %s failed", e.Op, e.Name)
}

func (e *PackageError) Unwrap() error {
	return e.Err
}

// NewPackageError creates a new PackageError.
func NewPackageError(op, name string, err error) *PackageError {
	return &PackageError{Op: op, Name: name, Err: err}
}

// NetworkError represents a classified failure of an outbound HTTP call.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NewNetworkError creates a new NetworkError.
func NewNetworkError(url string, err error) *NetworkError {
	return &NetworkError{URL: url, Err: err}
}

// Is checks if target matches any of our sentinel errors.
// This is a convenience function for common error checks.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IsCancelled checks if the error indicates a cancelled operation.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

// IsCorrupt checks if the error indicates archive or checksum corruption.
func IsCorrupt(err error) bool {
	return errors.Is(err, ErrArchiveFormatFailed) || errors.Is(err, ErrChecksumMismatch)
}
