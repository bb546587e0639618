package file

import (
	"bytes"
	"io"
	"mime/multipart"
	"os"
)

// Source is an uploaded file as handed over by the transport layer: the
// client-supplied filename plus a way to read its content. Open may be called
// more than once; every call starts reading from the beginning.
type Source interface {
	Filename() string
	Open() (io.ReadCloser, error)
}

// Sized is implemented by sources that know their size up front.
type Sized interface {
	Size() int64
}

// FromHeader adapts a multipart file header. Returns nil for a nil header.
func FromHeader(fh *multipart.FileHeader) Source {
	if fh == nil {
		return nil
	}
	return headerSource{fh: fh}
}

type headerSource struct {
	fh *multipart.FileHeader
}

func (s headerSource) Filename() string { return s.fh.Filename }
func (s headerSource) Size() int64      { return s.fh.Size }

func (s headerSource) Open() (io.ReadCloser, error) {
	return s.fh.Open()
}

// FromBytes wraps in-memory content under the given filename.
func FromBytes(filename string, data []byte) Source {
	return bytesSource{name: filename, data: data}
}

type bytesSource struct {
	name string
	data []byte
}

func (s bytesSource) Filename() string { return s.name }
func (s bytesSource) Size() int64      { return int64(len(s.data)) }

func (s bytesSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.data)), nil
}

// FromPath exposes a file on disk under a client-facing filename.
// Useful for imports and CLI tools where the name differs from the path.
func FromPath(filename, path string) Source {
	return pathSource{name: filename, path: path}
}

type pathSource struct {
	name string
	path string
}

func (s pathSource) Filename() string { return s.name }

func (s pathSource) Open() (io.ReadCloser, error) {
	return os.Open(s.path)
}
