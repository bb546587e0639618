package upload_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/reupload/pkg/file"
	"github.com/dmitrymomot/reupload/pkg/upload"
)

const manifestYAML = `
sets:
  - name: photos
    extensions: [images]
    deny: [svg]
    mime_types: [image/png]
    max_size: 1024
  - name: files
    allow_all: true
    deny: [executables, scripts]
  - name: notes
  - name: archives
    extensions: [archives, .ISO]
`

func TestParseManifest(t *testing.T) {
	t.Parallel()
	sets, err := upload.ParseManifest(strings.NewReader(manifestYAML), quiet())
	require.NoError(t, err)
	require.Len(t, sets, 4)

	names := make([]string, len(sets))
	for i, s := range sets {
		names[i] = s.Name()
		assert.False(t, s.Configured())
	}
	assert.Equal(t, []string{"photos", "files", "notes", "archives"}, names)

	photos, files, notes, archives := sets[0], sets[1], sets[2], sets[3]

	assert.True(t, photos.ExtensionAllowed("jpg"))
	assert.False(t, photos.ExtensionAllowed("svg"))
	assert.False(t, photos.ExtensionAllowed("txt"))
	assert.False(t, photos.FileAllowed(file.FromBytes("a.png", []byte("text")), "a.png"))

	assert.True(t, files.ExtensionAllowed("zip"))
	assert.True(t, files.ExtensionAllowed(""))
	assert.False(t, files.ExtensionAllowed("exe"))
	assert.False(t, files.ExtensionAllowed("py"))

	assert.True(t, notes.ExtensionAllowed("txt"))
	assert.False(t, notes.ExtensionAllowed("zip"))

	assert.True(t, archives.ExtensionAllowed("gz"))
	assert.True(t, archives.ExtensionAllowed("iso"))
	assert.False(t, archives.ExtensionAllowed("txt"))
}

func TestParseManifest_Errors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{name: "empty", input: "", want: upload.ErrInvalidManifest},
		{name: "no sets", input: "sets: []", want: upload.ErrInvalidManifest},
		{name: "unknown field", input: "sets:\n  - name: files\n    extensoins: [txt]\n", want: upload.ErrInvalidManifest},
		{name: "malformed", input: "sets: [", want: upload.ErrInvalidManifest},
		{name: "bad name", input: "sets:\n  - name: My_Files\n", want: upload.ErrInvalidSetName},
		{name: "duplicate", input: "sets:\n  - name: files\n  - name: files\n", want: upload.ErrDuplicateSet},
		{name: "negative size", input: "sets:\n  - name: files\n    max_size: -1\n", want: upload.ErrInvalidManifest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := upload.ParseManifest(strings.NewReader(tt.input))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
