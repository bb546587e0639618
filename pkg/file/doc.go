// Package file provides the local filesystem layer behind upload sets.
//
// It offers a Source abstraction for uploaded content (multipart headers,
// in-memory bytes, files on disk), content helpers (MIME sniffing, size and
// type validation, hashing) and LocalStorage, a directory tree in which every
// operation is confined to the storage root.
//
// # Usage
//
//	import "github.com/dmitrymomot/reupload/pkg/file"
//
//	storage, err := file.NewLocalStorage("/var/uploads/photos")
//	if err != nil {
//		return err
//	}
//
//	// In HTTP handler
//	fh := r.MultipartForm.File["avatar"][0]
//	src := file.FromHeader(fh)
//
//	if err := file.ValidateMIMEType(src, "image/jpeg", "image/png"); err != nil {
//		return err
//	}
//
//	saved, err := storage.Save(ctx, src, "users/42/avatar.jpg")
//	if errors.Is(err, file.ErrFileExists) {
//		// pick another name; Save never overwrites
//	}
//
// LocalStorage does not sanitize names; callers pass already sanitized
// relative paths (see package upload). It does verify containment.
//
// # Security Considerations
//
//   - Resolve rejects ../ escapes lexically, then resolves symlinks on the
//     longest existing prefix of the root and the target and rejects targets
//     whose real location is outside the real root.
//   - Dangling symlinks are followed by hand and checked like any other link.
//   - Writes and reads go through os.Root opened at the real root, so links
//     planted after the check still cannot lead out of the tree; such a
//     refusal is reported as ErrInvalidPath.
//   - Save creates files with O_EXCL: an existing file, directory or symlink
//     at the target yields ErrFileExists and is never truncated.
//   - Partial files are removed when the copy fails, the size limit is hit or
//     the context is canceled.
//
// # Error Handling
//
//	saved, err := storage.Save(ctx, src, "report.pdf")
//	switch {
//	case errors.Is(err, file.ErrInvalidPath):
//		// path leaves the storage root
//	case errors.Is(err, file.ErrFileExists):
//		// name taken
//	case errors.Is(err, file.ErrFileTooLarge):
//		// WithMaxFileSize limit exceeded
//	}
package file
