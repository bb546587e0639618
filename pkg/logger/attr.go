package logger

import (
	"log/slog"
	"strconv"
	"time"
)

// Group creates a slog group attribute from the provided attributes.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Errors groups multiple non-nil errors under the key "errors".
// If all errors are nil, it returns an empty Attr.
func Errors(errs ...error) slog.Attr {
	as := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// Error records a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// RequestID records the request identifier under the key "request_id".
// An empty id yields an empty Attr.
func RequestID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("request_id", id)
}

// UploadSet records the upload set name under the key "upload_set".
func UploadSet(name string) slog.Attr {
	return slog.String("upload_set", name)
}

// Filename records a client-supplied file name under the key "filename".
func Filename(name string) slog.Attr {
	return slog.String("filename", name)
}

// Extension records a file extension under the key "extension".
func Extension(ext string) slog.Attr {
	return slog.String("extension", ext)
}

// Path records a path relative to an upload destination under the key "path".
func Path(rel string) slog.Attr {
	return slog.String("path", rel)
}

// Size records a byte count under the key "size".
func Size(n int64) slog.Attr {
	return slog.Int64("size", n)
}

// Attempts records how many names were tried under the key "attempts".
func Attempts(n int) slog.Attr {
	return slog.Int("attempts", n)
}

// Duration records a duration under the key "duration".
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Event records the event name under the key "event".
func Event(name string) slog.Attr {
	return slog.String("event", name)
}
