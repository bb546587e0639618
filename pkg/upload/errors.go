package upload

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/reupload/pkg/file"
)

var (
	// Caller input errors
	ErrInvalidName   = errors.New("invalid file name")
	ErrMissingName   = errors.New("file name is missing")
	ErrNotAllowed    = errors.New("upload not allowed")
	ErrPathTraversal = errors.New("path escapes upload destination")
	ErrInvalidSource = errors.New("invalid upload source") // nil or otherwise unusable file source

	// Setup errors
	ErrConfiguration   = errors.New("upload configuration error")
	ErrNotConfigured   = errors.New("upload set is not configured")
	ErrInvalidSetName  = errors.New("invalid upload set name")
	ErrUnknownSet      = errors.New("unknown upload set")
	ErrDuplicateSet    = errors.New("duplicate upload set")
	ErrInvalidManifest = errors.New("invalid upload manifest")
)

// HTTPStatus maps an error returned by this package to an HTTP status code.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrUnknownSet), errors.Is(err, file.ErrFileNotFound), errors.Is(err, file.ErrDirectoryNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNotAllowed), errors.Is(err, file.ErrMIMETypeNotAllowed):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, ErrPathTraversal), errors.Is(err, file.ErrInvalidPath):
		return http.StatusForbidden
	case errors.Is(err, file.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrInvalidName), errors.Is(err, ErrMissingName), errors.Is(err, ErrInvalidSource),
		errors.Is(err, file.ErrIsDirectory), errors.Is(err, file.ErrNotDirectory):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
