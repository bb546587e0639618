package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalStorage implements Storage for a local directory tree.
// All operations are confined to baseDir: paths are checked lexically and
// after symlink resolution, and writes go through os.Root so the kernel
// refuses to follow links out of the tree.
// Safe for concurrent use.
type LocalStorage struct {
	baseDir       string        // Absolute path - all files stored within this directory
	uploadTimeout time.Duration // zero means no limit
	maxFileSize   int64         // Zero means unlimited
	dirPerm       os.FileMode
	filePerm      os.FileMode
	afterLocate   func() // runs between the path check and the os.Root call
}

// LocalOption defines a function that configures LocalStorage.
type LocalOption func(*LocalStorage)

// WithLocalUploadTimeout sets the timeout for upload operations.
// If not set, relies on context deadline from caller.
func WithLocalUploadTimeout(timeout time.Duration) LocalOption {
	return func(s *LocalStorage) {
		s.uploadTimeout = timeout
	}
}

// WithMaxFileSize aborts writes once more than n bytes have been copied.
func WithMaxFileSize(n int64) LocalOption {
	return func(s *LocalStorage) {
		s.maxFileSize = n
	}
}

// WithPermissions overrides the directory and file modes (default 0755/0644).
func WithPermissions(dir, file os.FileMode) LocalOption {
	return func(s *LocalStorage) {
		s.dirPerm = dir
		s.filePerm = file
	}
}

// NewLocalStorage creates a storage rooted at baseDir.
// baseDir is resolved to an absolute path; it is created lazily on the first
// write so that configuration can be validated before the tree exists.
func NewLocalStorage(baseDir string, opts ...LocalOption) (*LocalStorage, error) {
	if baseDir == "" {
		return nil, ErrInvalidConfig
	}

	absBaseDir, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to resolve base directory: %v", ErrFailedToGetAbsolutePath, err)
	}

	s := &LocalStorage{
		baseDir:  absBaseDir,
		dirPerm:  0755,
		filePerm: 0644,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// BaseDir returns the absolute storage root.
func (s *LocalStorage) BaseDir() string {
	return s.baseDir
}

// EnsureRoot creates the storage root if it does not exist.
func (s *LocalStorage) EnsureRoot() error {
	info, err := os.Stat(s.baseDir)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("%w: storage root", ErrNotDirectory)
		}
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %v", ErrFailedToStatPath, err)
	}
	if err := os.MkdirAll(s.baseDir, s.dirPerm); err != nil {
		return fmt.Errorf("%w: %v", ErrFailedToCreateDirectory, err)
	}
	return nil
}

// Save writes src to path using an exclusive create, so an existing file is
// never truncated; in that case ErrFileExists is returned and src is not read.
// Parent directories are created inside the root as needed. Partial files are
// removed on copy failure or context cancellation.
func (s *LocalStorage) Save(ctx context.Context, src Source, path string) (*File, error) {
	if s.uploadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.uploadTimeout)
		defer cancel()
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if src == nil {
		return nil, ErrNilSource
	}

	absPath, realRoot, rootRel, err := s.locate(path, false)
	if err != nil {
		return nil, err
	}
	if absPath == s.baseDir {
		return nil, fmt.Errorf("%w: storage root", ErrIsDirectory)
	}
	relPath, err := filepath.Rel(s.baseDir, absPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}

	if err := s.EnsureRoot(); err != nil {
		return nil, err
	}
	if s.afterLocate != nil {
		s.afterLocate()
	}

	root, err := os.OpenRoot(realRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToOpenRoot, err)
	}
	defer func() { _ = root.Close() }()

	if err := mkdirAll(root, filepath.Dir(rootRel), s.dirPerm); err != nil {
		return nil, rootErr(ErrFailedToCreateDirectory, err, relPath)
	}

	dst, err := root.OpenFile(rootRel, os.O_WRONLY|os.O_CREATE|os.O_EXCL, s.filePerm)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileExists, filepath.ToSlash(relPath))
		}
		return nil, rootErr(ErrFailedToCreateFile, err, relPath)
	}
	defer func() { _ = dst.Close() }()

	abort := func(err error) (*File, error) {
		_ = dst.Close()
		_ = root.Remove(rootRel) // Clean up partial file
		return nil, err
	}

	rc, err := src.Open()
	if err != nil {
		return abort(fmt.Errorf("%w: %v", ErrFailedToOpenFile, err))
	}
	defer func() { _ = rc.Close() }()

	// Manual buffered copy with context checking - allows cancellation during large uploads
	written := int64(0)
	buf := make([]byte, 32*1024)
	for {
		select {
		case <-ctx.Done():
			return abort(ctx.Err())
		default:
		}

		n, readErr := rc.Read(buf)
		if n > 0 {
			if s.maxFileSize > 0 && written+int64(n) > s.maxFileSize {
				return abort(fmt.Errorf("file exceeds %d bytes limit: %w", s.maxFileSize, ErrFileTooLarge))
			}
			nw, writeErr := dst.Write(buf[:n])
			if writeErr != nil {
				return abort(fmt.Errorf("%w: %v", ErrFailedToWriteFile, writeErr))
			}
			written += int64(nw)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return abort(fmt.Errorf("%w: %v", ErrFailedToReadFile, readErr))
		}
	}

	mimeType, err := DetectMIMEType(src)
	if err != nil {
		mimeType = "application/octet-stream"
	}

	return &File{
		Filename:     src.Filename(),
		Size:         written,
		MIMEType:     mimeType,
		Extension:    filepath.Ext(absPath),
		AbsolutePath: absPath,
		RelativePath: filepath.ToSlash(relPath),
	}, nil
}

// Open opens a stored file for reading. Directories are rejected.
// The file is opened through os.Root, so a symlink leading out of the
// storage root fails even if it was planted after the path check.
func (s *LocalStorage) Open(path string) (*os.File, error) {
	_, realRoot, rootRel, err := s.locate(path, true)
	if err != nil {
		return nil, err
	}
	if s.afterLocate != nil {
		s.afterLocate()
	}

	root, err := os.OpenRoot(realRoot)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("%w: %v", ErrFailedToOpenRoot, err)
	}
	defer func() { _ = root.Close() }()

	f, err := root.Open(rootRel)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, rootErr(ErrFailedToOpenFile, err, path)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %v", ErrFailedToStatPath, err)
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s", ErrIsDirectory, path)
	}

	return f, nil
}

// Delete removes a single file.
// Directories are refused.
func (s *LocalStorage) Delete(ctx context.Context, path string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	absPath, err := s.Resolve(path)
	if err != nil {
		return err
	}

	info, err := os.Lstat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return fmt.Errorf("%w: %v", ErrFailedToStatPath, err)
	}

	if info.IsDir() {
		return fmt.Errorf("%w: %s", ErrIsDirectory, path)
	}

	if err := os.Remove(absPath); err != nil {
		return fmt.Errorf("%w: %v", ErrFailedToDeleteFile, err)
	}

	return nil
}

// Exists checks if a file or directory exists.
// Returns false for invalid paths or on context cancellation.
// Dangling symlinks count as existing, so a name they occupy is never reused.
func (s *LocalStorage) Exists(ctx context.Context, path string) bool {
	select {
	case <-ctx.Done():
		return false
	default:
	}

	absPath := filepath.Join(s.baseDir, filepath.Clean(filepath.FromSlash(path)))
	if !withinDir(s.baseDir, absPath) {
		return false
	}

	_, err := os.Lstat(absPath)
	return err == nil
}

// List returns all entries in a directory (non-recursive).
// Entry paths are slash-separated and relative to the storage root.
func (s *LocalStorage) List(ctx context.Context, dir string) ([]Entry, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	absPath, err := s.Resolve(dir)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrDirectoryNotFound, dir)
		}
		return nil, fmt.Errorf("%w: %v", ErrFailedToStatPath, err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, dir)
	}

	dirEntries, err := os.ReadDir(absPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToReadDirectory, err)
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, dirEntry := range dirEntries {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		entryRelPath, err := filepath.Rel(s.baseDir, filepath.Join(absPath, dirEntry.Name()))
		if err != nil {
			continue
		}

		info, err := dirEntry.Info()
		if err != nil {
			continue // Skip entries we can't read
		}

		entry := Entry{
			Name:  dirEntry.Name(),
			Path:  filepath.ToSlash(entryRelPath),
			IsDir: dirEntry.IsDir(),
		}
		if !dirEntry.IsDir() {
			entry.Size = info.Size()
		}

		entries = append(entries, entry)
	}

	return entries, nil
}

// Resolve validates and resolves a path within the base directory.
// The lexical check rejects ../ escapes; the canonical check resolves
// symlinks on the longest existing prefix of both the root and the target and
// rejects targets whose real location is outside the real root.
func (s *LocalStorage) Resolve(path string) (string, error) {
	absPath, _, _, err := s.locate(path, true)
	return absPath, err
}

// locate runs the checks of Resolve and also returns the canonical root and
// the target relative to it, which is what os.Root operations take. With
// followLeaf false the last component is kept as named, so an exclusive
// create fails on a link occupying that name instead of writing through it.
func (s *LocalStorage) locate(path string, followLeaf bool) (absPath, realRoot, rootRel string, err error) {
	absPath = filepath.Join(s.baseDir, filepath.Clean(filepath.FromSlash(path)))
	if !withinDir(s.baseDir, absPath) {
		return "", "", "", fmt.Errorf("%w: %s", ErrInvalidPath, path)
	}

	realRoot, err = Canonicalize(s.baseDir)
	if err != nil {
		return "", "", "", err
	}
	realPath, err := Canonicalize(absPath)
	if err != nil {
		return "", "", "", err
	}
	if !withinDir(realRoot, realPath) {
		return "", "", "", fmt.Errorf("%w: %s", ErrInvalidPath, path)
	}

	if !followLeaf && absPath != s.baseDir {
		realDir, err := Canonicalize(filepath.Dir(absPath))
		if err != nil {
			return "", "", "", err
		}
		if !withinDir(realRoot, realDir) {
			return "", "", "", fmt.Errorf("%w: %s", ErrInvalidPath, path)
		}
		realPath = filepath.Join(realDir, filepath.Base(absPath))
	}

	rootRel, err = filepath.Rel(realRoot, realPath)
	if err != nil {
		return "", "", "", fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	return absPath, realRoot, rootRel, nil
}

// maxLinkHops bounds how many dangling links Canonicalize follows by hand.
const maxLinkHops = 40

// Canonicalize resolves symlinks on the longest existing prefix of path and
// appends the components that do not exist yet unchanged.
// A dangling symlink is followed to where it points, so the result is where a
// write through it would land.
func Canonicalize(path string) (string, error) {
	return canonicalize(path, 0)
}

func canonicalize(path string, hops int) (string, error) {
	path = filepath.Clean(path)
	var missing []string
	rest := func(p string) string {
		for i := len(missing) - 1; i >= 0; i-- {
			p = filepath.Join(p, missing[i])
		}
		return p
	}
	for {
		resolved, err := filepath.EvalSymlinks(path)
		if err == nil {
			return rest(resolved), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %v", ErrFailedToResolveSymlinks, err)
		}
		if info, lerr := os.Lstat(path); lerr == nil {
			if info.Mode()&fs.ModeSymlink == 0 {
				return "", fmt.Errorf("%w: %v", ErrFailedToResolveSymlinks, err)
			}
			if hops >= maxLinkHops {
				return "", fmt.Errorf("%w: too many dangling links", ErrInvalidPath)
			}
			target, err := os.Readlink(path)
			if err != nil {
				return "", fmt.Errorf("%w: %v", ErrFailedToResolveSymlinks, err)
			}
			if !filepath.IsAbs(target) {
				target = filepath.Join(filepath.Dir(path), target)
			}
			resolved, err := canonicalize(target, hops+1)
			if err != nil {
				return "", err
			}
			return rest(resolved), nil
		}

		parent := filepath.Dir(path)
		if parent == path {
			return rest(path), nil
		}
		missing = append(missing, filepath.Base(path))
		path = parent
	}
}

// rootErr wraps err in kind, or reports ErrInvalidPath when os.Root refused
// to follow a link out of the tree.
func rootErr(kind, err error, path string) error {
	if strings.Contains(err.Error(), "path escapes from parent") {
		return fmt.Errorf("%w: %s", ErrInvalidPath, filepath.ToSlash(path))
	}
	return fmt.Errorf("%w: %v", kind, err)
}

// withinDir reports whether target equals dir or is a descendant of it.
func withinDir(dir, target string) bool {
	rel, err := filepath.Rel(dir, target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// mkdirAll creates dir and its parents inside root one component at a time.
func mkdirAll(root *os.Root, dir string, perm os.FileMode) error {
	if dir == "." || dir == "" {
		return nil
	}
	current := ""
	for _, part := range strings.Split(dir, string(filepath.Separator)) {
		current = filepath.Join(current, part)
		if err := root.Mkdir(current, perm); err != nil && !errors.Is(err, fs.ErrExist) {
			return err
		}
	}
	return nil
}
