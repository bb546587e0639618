package upload_test

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/reupload/pkg/config"
	"github.com/dmitrymomot/reupload/pkg/upload"
)

func quiet() upload.Option {
	return upload.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestResolve(t *testing.T) {
	t.Parallel()
	files := upload.MustNew("files", quiet())
	photos := upload.MustNew("photos", quiet())

	tests := []struct {
		name     string
		set      *upload.Set
		settings config.Settings
		want     upload.Configuration
	}{
		{
			name: "manual",
			set:  files,
			settings: config.Settings{
				"UPLOADED_FILES_DEST": "/var/files",
				"UPLOADED_FILES_URL":  "http://localhost:6001/",
			},
			want: upload.Configuration{Destination: "/var/files", BaseURL: "http://localhost:6001/"},
		},
		{
			name:     "manual without url",
			set:      photos,
			settings: config.Settings{"UPLOADED_PHOTOS_DEST": "/mnt/photos"},
			want:     upload.Configuration{Destination: "/mnt/photos"},
		},
		{
			name: "defaults append the set name",
			set:  files,
			settings: config.Settings{
				"UPLOADS_DEFAULT_DEST": "/var/uploads",
				"UPLOADS_DEFAULT_URL":  "http://localhost:6000/",
			},
			want: upload.Configuration{Destination: "/var/uploads/files", BaseURL: "http://localhost:6000/files/"},
		},
		{
			name: "default url without trailing slash",
			set:  photos,
			settings: config.Settings{
				"UPLOADS_DEFAULT_DEST": "/var/uploads",
				"UPLOADS_DEFAULT_URL":  "http://localhost:6000",
			},
			want: upload.Configuration{Destination: "/var/uploads/photos", BaseURL: "http://localhost:6000/photos/"},
		},
		{
			name: "per-set settings win over defaults",
			set:  photos,
			settings: config.Settings{
				"UPLOADS_DEFAULT_DEST": "/var/uploads",
				"UPLOADS_DEFAULT_URL":  "http://localhost:6001/",
				"UPLOADED_PHOTOS_DEST": "/mnt/photos",
				"UPLOADED_PHOTOS_URL":  "http://localhost:6002",
			},
			want: upload.Configuration{Destination: "/mnt/photos", BaseURL: "http://localhost:6002/"},
		},
		{
			name: "autoserve without url",
			set:  files,
			settings: config.Settings{
				"UPLOADED_FILES_DEST": "/uploads",
				"UPLOADS_AUTOSERVE":   "true",
			},
			want: upload.Configuration{Destination: "/uploads", AutoServe: true},
		},
		{
			name: "explicit url disables autoserve",
			set:  photos,
			settings: config.Settings{
				"UPLOADED_PHOTOS_DEST": "/uploads",
				"UPLOADED_PHOTOS_URL":  "https://example.com/images",
				"UPLOADS_AUTOSERVE":    "true",
			},
			want: upload.Configuration{Destination: "/uploads", BaseURL: "https://example.com/images/"},
		},
		{
			name: "explicit empty url opts out",
			set:  photos,
			settings: config.Settings{
				"UPLOADED_PHOTOS_DEST": "/uploads",
				"UPLOADED_PHOTOS_URL":  "",
				"UPLOADS_DEFAULT_URL":  "http://localhost:6000/",
				"UPLOADS_AUTOSERVE":    "true",
			},
			want: upload.Configuration{Destination: "/uploads"},
		},
		{
			name: "extension overrides",
			set:  files,
			settings: config.Settings{
				"UPLOADED_FILES_DEST":  "/uploads",
				"UPLOADED_FILES_ALLOW": "ZIP, .tar",
				"UPLOADED_FILES_DENY":  "svg",
			},
			want: upload.Configuration{Destination: "/uploads", Allow: []string{"zip", "tar"}, Deny: []string{"svg"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := upload.Resolve(tt.set, tt.settings)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %+v", got)
		})
	}
}

func TestResolve_DestinationFunc(t *testing.T) {
	t.Parallel()
	files := upload.MustNew("files", quiet(), upload.WithDefaultDestination(func(s config.Settings) string {
		return filepath.Join(s["INSTANCE"], "files")
	}))

	got, err := upload.Resolve(files, config.Settings{"INSTANCE": "/home/me/webapps/thisapp"})
	require.NoError(t, err)
	assert.Equal(t, "/home/me/webapps/thisapp/files", got.Destination)
	assert.Empty(t, got.BaseURL)

	got, err = upload.Resolve(files, config.Settings{
		"INSTANCE":             "/home/me/webapps/thisapp",
		"UPLOADS_DEFAULT_DEST": "/var/uploads",
	})
	require.NoError(t, err)
	assert.Equal(t, "/var/uploads/files", got.Destination, "global default comes before the callback")
}

func TestResolve_RelativeDestination(t *testing.T) {
	t.Parallel()
	got, err := upload.Resolve(upload.MustNew("files", quiet()), config.Settings{"UPLOADED_FILES_DEST": "data/files"})
	require.NoError(t, err)

	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(wd, "data", "files"), got.Destination)
}

func TestResolve_Errors(t *testing.T) {
	t.Parallel()
	files := upload.MustNew("files", quiet())

	notDir := filepath.Join(t.TempDir(), "plain-file")
	require.NoError(t, os.WriteFile(notDir, nil, 0644))

	tests := []struct {
		name     string
		set      *upload.Set
		settings config.Settings
	}{
		{name: "no destination", set: files, settings: config.Settings{}},
		{name: "destination is a file", set: files, settings: config.Settings{"UPLOADED_FILES_DEST": notDir}},
		{name: "bad autoserve flag", set: files, settings: config.Settings{"UPLOADED_FILES_DEST": "/uploads", "UPLOADS_AUTOSERVE": "sometimes"}},
		{name: "bad url", set: files, settings: config.Settings{"UPLOADED_FILES_DEST": "/uploads", "UPLOADED_FILES_URL": "http://[::1"}},
		{name: "nil set", set: nil, settings: config.Settings{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := upload.Resolve(tt.set, tt.settings)
			assert.ErrorIs(t, err, upload.ErrConfiguration)
		})
	}
}

func TestConfiguration_Equal(t *testing.T) {
	t.Parallel()
	a := upload.Configuration{Destination: "/var/files", BaseURL: "http://localhost/"}

	assert.True(t, a.Equal(upload.Configuration{Destination: "/var/files", BaseURL: "http://localhost/"}))
	assert.True(t, a.Equal(&upload.Configuration{Destination: "/var/files", BaseURL: "http://localhost/"}))
	assert.False(t, a.Equal(upload.Configuration{Destination: "/var/files"}))
	assert.False(t, a.Equal(upload.Configuration{Destination: "/var/files", BaseURL: "http://localhost/", AutoServe: true}))
	assert.False(t, a.Equal("abc"))
	assert.False(t, a.Equal(nil))
	assert.False(t, a.Equal((*upload.Configuration)(nil)))
}
