package file_test

import (
	"bytes"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/reupload/pkg/file"
)

func createFileHeader(filename string, content []byte) *multipart.FileHeader {
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil
	}

	if _, err := part.Write(content); err != nil {
		return nil
	}

	if err := writer.Close(); err != nil {
		return nil
	}

	req := &http.Request{
		Method: "POST",
		Header: http.Header{
			"Content-Type": []string{writer.FormDataContentType()},
		},
		Body: io.NopCloser(body),
	}

	if err := req.ParseMultipartForm(32 << 20); err != nil {
		return nil
	}

	if req.MultipartForm != nil && req.MultipartForm.File != nil {
		if files, ok := req.MultipartForm.File["file"]; ok && len(files) > 0 {
			return files[0]
		}
	}

	return nil
}

func TestSources(t *testing.T) {
	t.Parallel()

	t.Run("multipart header", func(t *testing.T) {
		t.Parallel()
		src := file.FromHeader(createFileHeader("avatar.png", []byte("png-bytes")))
		require.NotNil(t, src)
		assert.Equal(t, "avatar.png", src.Filename())

		sized, ok := src.(file.Sized)
		require.True(t, ok)
		assert.Equal(t, int64(9), sized.Size())

		for range 2 {
			rc, err := src.Open()
			require.NoError(t, err)
			data, err := io.ReadAll(rc)
			require.NoError(t, err)
			require.NoError(t, rc.Close())
			assert.Equal(t, "png-bytes", string(data))
		}
	})

	t.Run("nil header", func(t *testing.T) {
		t.Parallel()
		assert.Nil(t, file.FromHeader(nil))
	})

	t.Run("path", func(t *testing.T) {
		t.Parallel()
		p := filepath.Join(t.TempDir(), "on-disk.bin")
		require.NoError(t, os.WriteFile(p, []byte("disk"), 0644))

		src := file.FromPath("Report.PDF", p)
		assert.Equal(t, "Report.PDF", src.Filename())
		rc, err := src.Open()
		require.NoError(t, err)
		defer rc.Close()
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "disk", string(data))
	})
}

func TestDetectMIMEType(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		content []byte
		want    string
	}{
		{
			name:    "jpeg image",
			content: []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46, 0x49, 0x46},
			want:    "image/jpeg",
		},
		{
			name:    "png image",
			content: []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A},
			want:    "image/png",
		},
		{
			name:    "plain text without parameters",
			content: []byte("Hello, World!"),
			want:    "text/plain",
		},
		{
			name:    "pdf file",
			content: []byte("%PDF-1.4"),
			want:    "application/pdf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := file.DetectMIMEType(file.FromBytes("whatever.bin", tt.content))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("nil source", func(t *testing.T) {
		t.Parallel()
		_, err := file.DetectMIMEType(nil)
		assert.ErrorIs(t, err, file.ErrNilSource)
	})
}

func TestValidateSize(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		src      file.Source
		maxBytes int64
		wantErr  error
	}{
		{name: "within limit", src: file.FromBytes("a.txt", []byte("small file")), maxBytes: 1024},
		{name: "exactly at limit", src: file.FromBytes("a.txt", []byte("exact")), maxBytes: 5},
		{name: "exceeds limit", src: file.FromBytes("a.txt", []byte("too large file")), maxBytes: 5, wantErr: file.ErrFileTooLarge},
		{name: "unknown size passes", src: file.FromPath("a.txt", "/does/not/matter"), maxBytes: 1},
		{name: "nil source", src: nil, maxBytes: 1024, wantErr: file.ErrNilSource},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := file.ValidateSize(tt.src, tt.maxBytes)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateMIMEType(t *testing.T) {
	t.Parallel()
	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46, 0x49, 0x46}
	tests := []struct {
		name         string
		src          file.Source
		allowedTypes []string
		wantErr      error
	}{
		{name: "allowed jpeg", src: file.FromBytes("a.jpg", jpeg), allowedTypes: []string{"image/jpeg", "image/png"}},
		{name: "renamed text file", src: file.FromBytes("a.jpg", []byte("text content")), allowedTypes: []string{"image/jpeg"}, wantErr: file.ErrMIMETypeNotAllowed},
		{name: "no restrictions", src: file.FromBytes("a.txt", []byte("any content"))},
		{name: "nil source", src: nil, allowedTypes: []string{"image/jpeg"}, wantErr: file.ErrNilSource},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := file.ValidateMIMEType(tt.src, tt.allowedTypes...)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestHash(t *testing.T) {
	t.Parallel()
	content := []byte("test content for hashing")
	sha := sha256.Sum256(content)
	md := md5.Sum(content)

	tests := []struct {
		name   string
		hasher hash.Hash
		want   string
	}{
		{name: "sha256", hasher: sha256.New(), want: hex.EncodeToString(sha[:])},
		{name: "md5", hasher: md5.New(), want: hex.EncodeToString(md[:])},
		{name: "default is sha256", hasher: nil, want: hex.EncodeToString(sha[:])},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := file.Hash(file.FromBytes("a.txt", content), tt.hasher)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("nil source", func(t *testing.T) {
		t.Parallel()
		_, err := file.Hash(nil, nil)
		assert.ErrorIs(t, err, file.ErrNilSource)
	})
}
