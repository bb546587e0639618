package upload

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/dmitrymomot/reupload/pkg/file"
	"github.com/dmitrymomot/reupload/pkg/logger"
)

// Set names are embedded in settings keys (UPLOADED_<NAME>_DEST) and in
// self-serve URLs (<prefix>/<name>/<path>), so "_" and "/" are excluded.
var setNamePattern = regexp.MustCompile(`^[a-z][a-z0-9]*$`)

// Set is a named category of uploads with its own destination, URL and
// extension policy. Create sets at startup with New, then attach their
// configuration with Configure. A Set is safe for concurrent use; Reconfigure
// swaps its configuration atomically.
type Set struct {
	name        string
	extensions  Extensions
	defaultDest DestinationFunc
	mimeTypes   []string
	maxSize     int64
	logger      *slog.Logger

	state atomic.Pointer[state]
}

// state is the configuration snapshot a single call works with.
type state struct {
	cfg         Configuration
	storage     *file.LocalStorage
	servePrefix string
}

// Option configures a Set.
type Option func(*Set)

// WithExtensions sets the extension policy. The default is Only(Defaults...).
func WithExtensions(exts Extensions) Option {
	return func(s *Set) {
		if exts != nil {
			s.extensions = exts
		}
	}
}

// WithDefaultDestination sets the fallback used when neither the per-set nor
// the global destination setting is present.
func WithDefaultDestination(fn DestinationFunc) Option {
	return func(s *Set) { s.defaultDest = fn }
}

// WithMIMETypes additionally requires the sniffed content type of every
// upload to be one of types.
func WithMIMETypes(types ...string) Option {
	return func(s *Set) { s.mimeTypes = append(s.mimeTypes, types...) }
}

// WithMaxSize rejects uploads larger than n bytes. Zero means unlimited.
func WithMaxSize(n int64) Option {
	return func(s *Set) { s.maxSize = n }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Set) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates an unconfigured upload set.
// The name must be lowercase letters and digits, starting with a letter.
func New(name string, opts ...Option) (*Set, error) {
	if !setNamePattern.MatchString(name) {
		return nil, fmt.Errorf("%w: %q must be lowercase letters and digits, starting with a letter", ErrInvalidSetName, name)
	}
	s := &Set{
		name:       name,
		extensions: Only(Defaults...),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logger.UploadSet(name))
	return s, nil
}

// MustNew is like New but panics on an invalid name.
func MustNew(name string, opts ...Option) *Set {
	s, err := New(name, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// Name returns the set name.
func (s *Set) Name() string { return s.name }

// Configured reports whether a configuration is attached.
func (s *Set) Configured() bool { return s.state.Load() != nil }

// Config returns a copy of the attached configuration.
func (s *Set) Config() (Configuration, error) {
	st, err := s.snapshot()
	if err != nil {
		return Configuration{}, err
	}
	return st.cfg.clone(), nil
}

func (s *Set) settingsPrefix() string {
	return settingsSetPrefix + strings.ToUpper(s.name) + "_"
}

func (s *Set) snapshot() (*state, error) {
	st := s.state.Load()
	if st == nil {
		return nil, fmt.Errorf("%w: %q", ErrNotConfigured, s.name)
	}
	return st, nil
}

// newState builds the snapshot for cfg without attaching it.
func (s *Set) newState(cfg Configuration, servePrefix string) (*state, error) {
	opts := []file.LocalOption{}
	if s.maxSize > 0 {
		opts = append(opts, file.WithMaxFileSize(s.maxSize))
	}
	storage, err := file.NewLocalStorage(cfg.Destination, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: upload set %q: %w", ErrConfiguration, s.name, err)
	}
	return &state{cfg: cfg.clone(), storage: storage, servePrefix: servePrefix}, nil
}

// attach swaps in st. In-flight calls keep the snapshot they started with.
func (s *Set) attach(st *state) { s.state.Store(st) }

// ExtensionAllowed reports whether files with ext may be saved. ext is
// compared case-insensitively, with or without a leading dot.
func (s *Set) ExtensionAllowed(ext string) bool {
	var cfg Configuration
	if st := s.state.Load(); st != nil {
		cfg = st.cfg
	}
	return cfg.extensionAllowed(s.extensions, ext)
}

// FileAllowed reports whether src may be saved under filename: the extension
// of filename must be allowed and, with WithMIMETypes, the content must match.
func (s *Set) FileAllowed(src file.Source, filename string) bool {
	if !s.ExtensionAllowed(ExtensionOf(filename)) {
		return false
	}
	if len(s.mimeTypes) > 0 {
		return src != nil && file.ValidateMIMEType(src, s.mimeTypes...) == nil
	}
	return true
}

// SaveOption customizes a single Save call.
type SaveOption func(*saveOptions)

type saveOptions struct {
	folder string
	name   string
}

// WithFolder saves into folder, relative to the destination.
// The folder is sanitized; traversal segments are dropped.
func WithFolder(folder string) SaveOption {
	return func(o *saveOptions) { o.folder = folder }
}

// WithName saves under name instead of the client filename. A name ending
// in "." gets the client file's extension ("photo." + "boat.JPG" is
// "photo.JPG"). A folder part in name is appended to WithFolder.
func WithName(name string) SaveOption {
	return func(o *saveOptions) { o.name = name }
}

// target is the sanitized location of one Save call.
type target struct {
	name string // final file name, extension included
	rel  string // slash-separated path relative to the destination
}

func resolveTarget(src file.Source, o saveOptions) (target, error) {
	original := src.Filename()
	if strings.TrimSpace(original) == "" {
		return target{}, ErrMissingName
	}

	var embedded, name string
	var err error
	if o.name == "" {
		if name, err = SanitizeFilename(original); err != nil {
			return target{}, err
		}
	} else {
		raw := strings.ReplaceAll(o.name, `\`, "/")
		if i := strings.LastIndex(raw, "/"); i >= 0 {
			embedded, raw = raw[:i], raw[i+1:]
		}
		if strings.HasSuffix(raw, ".") {
			raw += rawExtension(original)
		}
		if name, err = SanitizeFilename(raw); err != nil {
			return target{}, err
		}
	}

	segments := append(cleanSegments(o.folder), cleanSegments(embedded)...)
	return target{
		name: name,
		rel:  path.Join(append(segments, name)...),
	}, nil
}

// Save stores src in the set's destination and returns its path relative
// to the destination, slash-separated. That path is what URL, Path, Open
// and Delete take.
//
// The name is WithName or the sanitized client filename. Its extension is
// checked before anything touches the disk. An existing file is never
// overwritten: the name gets a _1, _2, ... suffix before the extension,
// using exclusive creates so concurrent saves cannot collide.
func (s *Set) Save(ctx context.Context, src file.Source, opts ...SaveOption) (string, error) {
	if src == nil {
		return "", fmt.Errorf("%w: nil source", ErrInvalidSource)
	}
	st, err := s.snapshot()
	if err != nil {
		return "", err
	}

	var o saveOptions
	for _, opt := range opts {
		opt(&o)
	}

	t, err := resolveTarget(src, o)
	if err != nil {
		return "", err
	}

	ext := ExtensionOf(t.name)
	if !st.cfg.extensionAllowed(s.extensions, ext) {
		s.logger.InfoContext(ctx, "upload rejected",
			logger.Event("extension_not_allowed"),
			logger.Filename(src.Filename()),
			logger.Extension(ext),
		)
		return "", fmt.Errorf("%w: extension %q in upload set %q", ErrNotAllowed, ext, s.name)
	}
	if s.maxSize > 0 {
		if err := file.ValidateSize(src, s.maxSize); err != nil {
			return "", err
		}
	}
	if len(s.mimeTypes) > 0 {
		if err := file.ValidateMIMEType(src, s.mimeTypes...); err != nil {
			if errors.Is(err, file.ErrMIMETypeNotAllowed) {
				return "", fmt.Errorf("%w: content type in upload set %q: %w", ErrNotAllowed, s.name, err)
			}
			return "", err
		}
	}

	// Containment is checked before any directory is created.
	if _, err := st.storage.Resolve(t.rel); err != nil {
		return "", s.rejectPath(ctx, src, t.rel, err)
	}

	for n := 0; ; n++ {
		saved, err := st.storage.Save(ctx, src, candidate(t.rel, n))
		if errors.Is(err, file.ErrFileExists) {
			continue
		}
		if err != nil {
			if errors.Is(err, file.ErrInvalidPath) {
				return "", s.rejectPath(ctx, src, t.rel, err)
			}
			return "", err
		}

		s.logger.DebugContext(ctx, "file saved",
			logger.Path(saved.RelativePath),
			logger.Size(saved.Size),
			logger.Attempts(n+1),
		)
		return saved.RelativePath, nil
	}
}

// rejectPath logs a containment violation and returns an error that does not
// carry any filesystem path.
func (s *Set) rejectPath(ctx context.Context, src file.Source, rel string, err error) error {
	if !errors.Is(err, file.ErrInvalidPath) {
		return err
	}
	s.logger.ErrorContext(ctx, "upload escapes destination",
		logger.Event("path_traversal"),
		logger.Filename(src.Filename()),
		logger.Path(rel),
		logger.Error(err),
	)
	return fmt.Errorf("%w: upload set %q", ErrPathTraversal, s.name)
}

// URL returns the public URL of a saved file: the configured base URL plus
// rel, or the self-serve route when the set is self-served.
// Self-served URLs are root-relative ("/_uploads/files/a.txt"); the set does
// not know the origin it is served from. Configure UPLOADED_<NAME>_URL when
// clients need absolute URLs.
func (s *Set) URL(rel string) (string, error) {
	st, err := s.snapshot()
	if err != nil {
		return "", err
	}
	escaped := escapePath(rel)
	switch {
	case st.cfg.BaseURL != "":
		return st.cfg.BaseURL + escaped, nil
	case st.cfg.AutoServe:
		return strings.TrimRight(st.servePrefix, "/") + "/" + s.name + "/" + escaped, nil
	default:
		return "", fmt.Errorf("%w: upload set %q has no URL and is not self-served", ErrConfiguration, s.name)
	}
}

func escapePath(rel string) string {
	segments := strings.Split(strings.TrimLeft(rel, "/"), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}

// Path joins rel, and optionally folder, to the destination. It does not
// touch the filesystem or sanitize anything: rel is expected to come from Save.
func (s *Set) Path(rel, folder string) (string, error) {
	st, err := s.snapshot()
	if err != nil {
		return "", err
	}
	return filepath.Join(st.cfg.Destination, filepath.FromSlash(folder), filepath.FromSlash(rel)), nil
}

// Open opens a saved file for reading. Paths escaping the destination,
// directly or through symlinks, fail with an error wrapping file.ErrInvalidPath.
func (s *Set) Open(rel string) (*os.File, error) {
	st, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	return st.storage.Open(rel)
}

// Exists reports whether rel exists inside the destination.
func (s *Set) Exists(ctx context.Context, rel string) bool {
	st, err := s.snapshot()
	if err != nil {
		return false
	}
	return st.storage.Exists(ctx, rel)
}

// Delete removes a saved file.
func (s *Set) Delete(ctx context.Context, rel string) error {
	st, err := s.snapshot()
	if err != nil {
		return err
	}
	if err := st.storage.Delete(ctx, rel); err != nil {
		return err
	}
	s.logger.DebugContext(ctx, "file deleted", logger.Path(rel))
	return nil
}

// List returns the entries of folder ("" for the destination itself),
// sorted by name. A destination that was never written to is empty.
func (s *Set) List(ctx context.Context, folder string) ([]file.Entry, error) {
	st, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	entries, err := st.storage.List(ctx, folder)
	if err != nil {
		if folder == "" && errors.Is(err, file.ErrDirectoryNotFound) {
			return []file.Entry{}, nil
		}
		return nil, err
	}
	slices.SortFunc(entries, func(a, b file.Entry) int { return strings.Compare(a.Name, b.Name) })
	return entries, nil
}

// Ready creates the destination if needed and verifies it is writable.
func (s *Set) Ready(ctx context.Context) error {
	st, err := s.snapshot()
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := st.storage.EnsureRoot(); err != nil {
		return fmt.Errorf("upload set %q: %w", s.name, err)
	}
	probe, err := os.CreateTemp(st.storage.BaseDir(), ".ready-*")
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return fmt.Errorf("upload set %q: destination is not writable: %w", s.name, err)
		}
		return fmt.Errorf("upload set %q: %w", s.name, err)
	}
	name := probe.Name()
	_ = probe.Close()
	return os.Remove(name)
}
