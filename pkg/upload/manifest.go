package upload

import (
	"errors"
	"fmt"
	"io"
	"slices"

	"gopkg.in/yaml.v3"
)

// Manifest describes upload sets declaratively:
//
//	sets:
//	  - name: photos
//	    extensions: [images]
//	    deny: [svg]
//	    mime_types: [image/jpeg, image/png]
//	    max_size: 10485760
//	  - name: files
//	    allow_all: true
//	    deny: [executables, scripts]
//
// Entries of extensions and deny are group names (see Group) or literal
// extensions. Without extensions and allow_all a set gets Defaults.
type Manifest struct {
	Sets []ManifestSet `yaml:"sets"`
}

// ManifestSet is one set of a Manifest.
type ManifestSet struct {
	Name       string   `yaml:"name"`
	Extensions []string `yaml:"extensions"`
	Deny       []string `yaml:"deny"`
	AllowAll   bool     `yaml:"allow_all"`
	MIMETypes  []string `yaml:"mime_types"`
	MaxSize    int64    `yaml:"max_size"`
}

// ParseManifest decodes a YAML manifest and creates its sets. opts are
// applied to every set before the manifest's own settings.
func ParseManifest(r io.Reader, opts ...Option) ([]*Set, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty manifest", ErrInvalidManifest)
		}
		return nil, errors.Join(ErrInvalidManifest, err)
	}
	return m.Build(opts...)
}

// Build creates the sets described by m.
func (m Manifest) Build(opts ...Option) ([]*Set, error) {
	if len(m.Sets) == 0 {
		return nil, fmt.Errorf("%w: no sets", ErrInvalidManifest)
	}

	seen := make(map[string]struct{}, len(m.Sets))
	sets := make([]*Set, 0, len(m.Sets))
	var errs []error
	for _, ms := range m.Sets {
		if _, dup := seen[ms.Name]; dup {
			errs = append(errs, fmt.Errorf("%w: %q", ErrDuplicateSet, ms.Name))
			continue
		}
		seen[ms.Name] = struct{}{}

		if ms.MaxSize < 0 {
			errs = append(errs, fmt.Errorf("%w: set %q: negative max_size", ErrInvalidManifest, ms.Name))
			continue
		}

		setOpts := slices.Clone(opts)
		setOpts = append(setOpts, WithExtensions(ms.policy()), WithMaxSize(ms.MaxSize))
		if len(ms.MIMETypes) > 0 {
			setOpts = append(setOpts, WithMIMETypes(ms.MIMETypes...))
		}

		s, err := New(ms.Name, setOpts...)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		sets = append(sets, s)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return sets, nil
}

func (ms ManifestSet) policy() Extensions {
	deny := expandGroups(ms.Deny)
	if ms.AllowAll {
		if len(deny) == 0 {
			return All
		}
		return AllExcept(deny...)
	}

	allowed := expandGroups(ms.Extensions)
	if len(allowed) == 0 {
		allowed = slices.Clone(Defaults)
	}
	allowed = slices.DeleteFunc(allowed, func(ext string) bool {
		return slices.Contains(deny, ext)
	})
	return Only(allowed...)
}

// expandGroups replaces group names with their extensions.
func expandGroups(entries []string) []string {
	var out []string
	for _, e := range entries {
		if exts, ok := Group(e); ok {
			out = append(out, exts...)
			continue
		}
		out = append(out, normalizeExtension(e))
	}
	return out
}
