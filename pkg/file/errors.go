package file

import "errors"

// Caller errors.
var (
	ErrNilSource          = errors.New("file source is nil")
	ErrInvalidPath        = errors.New("path escapes the storage root")
	ErrFileExists         = errors.New("file already exists")
	ErrInvalidConfig      = errors.New("storage root is empty")
	ErrFileTooLarge       = errors.New("file exceeds the size limit")
	ErrMIMETypeNotAllowed = errors.New("content type not allowed")
)

// Lookup errors.
var (
	ErrFileNotFound      = errors.New("file not found")
	ErrDirectoryNotFound = errors.New("directory not found")
	ErrNotDirectory      = errors.New("not a directory")
	ErrIsDirectory       = errors.New("is a directory")
)

// I/O errors. The underlying error is appended to the message.
var (
	ErrFailedToOpenRoot        = errors.New("open storage root")
	ErrFailedToOpenFile        = errors.New("open file")
	ErrFailedToReadFile        = errors.New("read file")
	ErrFailedToWriteFile       = errors.New("write file")
	ErrFailedToCreateFile      = errors.New("create file")
	ErrFailedToDeleteFile      = errors.New("delete file")
	ErrFailedToCreateDirectory = errors.New("create directory")
	ErrFailedToReadDirectory   = errors.New("read directory")
	ErrFailedToStatPath        = errors.New("stat path")
	ErrFailedToGetAbsolutePath = errors.New("resolve absolute path")
	ErrFailedToResolveSymlinks = errors.New("resolve symlinks")
	ErrFailedToHashFile        = errors.New("hash file")
)
