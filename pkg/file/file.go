package file

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"net/http"
	"os"
	"slices"
	"strings"
)

// File represents stored file metadata.
type File struct {
	Filename     string // Original client-supplied filename
	Size         int64
	MIMEType     string
	Extension    string
	AbsolutePath string
	RelativePath string // Slash-separated, relative to the storage root
}

// Entry represents a file or directory entry.
type Entry struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	IsDir bool   `json:"is_dir"`
	Size  int64  `json:"size"`
}

// Storage is the contract of the local upload tree.
type Storage interface {
	// Save writes src to path. It never overwrites: an existing path yields ErrFileExists.
	Save(ctx context.Context, src Source, path string) (*File, error)
	// Open opens a stored file for reading.
	Open(path string) (*os.File, error)
	// Delete removes a single file.
	Delete(ctx context.Context, path string) error
	// Exists checks if a file or directory exists.
	Exists(ctx context.Context, path string) bool
	// List returns all entries in a directory (non-recursive).
	List(ctx context.Context, dir string) ([]Entry, error)
	// Resolve returns the absolute path for path after verifying it stays inside the root.
	Resolve(path string) (string, error)
}

var _ Storage = (*LocalStorage)(nil)

// DetectMIMEType detects the MIME type by reading the file content.
// Uses http.DetectContentType which reads the first 512 bytes to identify file types
// based on magic bytes rather than trusting file extensions.
// Parameters such as "; charset=utf-8" are stripped.
func DetectMIMEType(src Source) (string, error) {
	if src == nil {
		return "", ErrNilSource
	}

	rc, err := src.Open()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFailedToOpenFile, err)
	}
	defer func() { _ = rc.Close() }()

	// 512 bytes is the maximum http.DetectContentType reads
	buffer := make([]byte, 512)
	n, err := io.ReadFull(rc, buffer)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", fmt.Errorf("%w: %v", ErrFailedToReadFile, err)
	}

	mimeType := http.DetectContentType(buffer[:n])
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	return mimeType, nil
}

// ValidateSize checks the declared size of src against maxBytes.
// Sources that do not implement Sized pass; LocalStorage counts the bytes it
// actually writes, so callers needing a hard limit should wrap the reader.
func ValidateSize(src Source, maxBytes int64) error {
	if src == nil {
		return ErrNilSource
	}
	sized, ok := src.(Sized)
	if !ok {
		return nil
	}
	if sized.Size() > maxBytes {
		return fmt.Errorf("file size %d bytes exceeds %d bytes limit: %w", sized.Size(), maxBytes, ErrFileTooLarge)
	}
	return nil
}

// ValidateMIMEType checks if the sniffed MIME type is in the allowed list.
// Pass no types to allow all MIME types.
func ValidateMIMEType(src Source, allowedTypes ...string) error {
	if src == nil {
		return ErrNilSource
	}
	if len(allowedTypes) == 0 {
		return nil
	}

	mimeType, err := DetectMIMEType(src)
	if err != nil {
		return err
	}

	if slices.Contains(allowedTypes, mimeType) {
		return nil
	}

	return fmt.Errorf("MIME type %s not in allowed types %v: %w", mimeType, allowedTypes, ErrMIMETypeNotAllowed)
}

// Hash calculates the hex-encoded hash of the source content.
// Defaults to SHA256 when h is nil.
func Hash(src Source, h hash.Hash) (string, error) {
	if src == nil {
		return "", ErrNilSource
	}
	if h == nil {
		h = sha256.New()
	}

	rc, err := src.Open()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFailedToOpenFile, err)
	}
	defer func() { _ = rc.Close() }()

	if _, err := io.Copy(h, rc); err != nil {
		return "", fmt.Errorf("%w: %v", ErrFailedToHashFile, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
