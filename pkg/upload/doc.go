// Package upload turns untrusted upload filenames into safe, collision-free
// paths inside a configured destination directory.
//
// An upload Set is a named category of files (photos, documents, ...) with
// its own destination, optional public base URL and extension policy. Sets
// are created at startup and configured in one pass from a config.Settings
// snapshot:
//
//	photos := upload.MustNew("photos", upload.WithExtensions(upload.Only(upload.Images...)))
//	files := upload.MustNew("files", upload.WithExtensions(upload.AllExcept(upload.Executables...)))
//
//	reg, err := upload.Configure(config.FromEnviron(), photos, files)
//	if err != nil {
//		return err // every misconfigured set is reported
//	}
//
//	rel, err := photos.Save(ctx, file.FromHeader(fh), upload.WithFolder("users/42"))
//	url, err := photos.URL(rel)
//
// # Settings
//
//	UPLOADED_<NAME>_DEST    destination directory of one set
//	UPLOADED_<NAME>_URL     public base URL; an empty value disables URLs
//	UPLOADED_<NAME>_ALLOW   extensions allowed on top of the policy
//	UPLOADED_<NAME>_DENY    extensions denied on top of the policy
//	UPLOADS_DEFAULT_DEST    parent directory, the set name is appended
//	UPLOADS_DEFAULT_URL     parent URL, the set name is appended
//	UPLOADS_AUTOSERVE       serve sets without a URL through package autoserve
//	UPLOADS_SERVE_PREFIX    route prefix of the self-serve handler, "/_uploads"
//
// # Save pipeline
//
//  1. The name comes from WithName or the client filename and is sanitized
//     (SanitizeFilename); folders from WithFolder and from a "/" in WithName
//     are sanitized segment by segment (SanitizePath) and joined, in that order.
//  2. The extension of the final name is checked against the policy, then
//     the optional MIME and size limits, before any I/O.
//  3. The joined path is canonicalized with symlinks resolved and must stay
//     inside the destination, else ErrPathTraversal.
//  4. The file is created exclusively; on a collision the next name of the
//     sequence name_1.ext, name_2.ext, ... is tried.
//
// # Errors
//
//	ErrInvalidName     nothing usable left after sanitization
//	ErrMissingName     the upload has no filename
//	ErrNotAllowed      extension or content type rejected
//	ErrPathTraversal   target escapes the destination (logged as a security event)
//	ErrConfiguration   no destination or URL can be determined
//	ErrNotConfigured   the set was never passed to Configure
//	ErrInvalidSource   nil source
//
// HTTPStatus maps them to status codes for handlers.
package upload
