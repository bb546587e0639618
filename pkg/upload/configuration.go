package upload

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dmitrymomot/reupload/pkg/config"
)

// Settings keys. Per-set keys embed the upper-cased set name:
// UPLOADED_PHOTOS_DEST, UPLOADED_PHOTOS_URL, ...
const (
	settingsSetPrefix  = "UPLOADED_"
	settingsGlobPrefix = "UPLOADS_"

	DefaultServePrefix = "/_uploads"
)

// Configuration is the resolved configuration of one upload set.
type Configuration struct {
	// Destination is the absolute directory files are stored in.
	Destination string
	// BaseURL, when set, ends with exactly one slash; URL appends paths to it.
	BaseURL string
	// AutoServe reports whether files are reachable through the self-serve route.
	AutoServe bool
	// Allow and Deny override the set's extension policy, lowercase without dots.
	Allow []string
	Deny  []string
}

// Equal reports structural equality. Values of any other type, including
// nil, are never equal.
func (c Configuration) Equal(other any) bool {
	var o Configuration
	switch v := other.(type) {
	case Configuration:
		o = v
	case *Configuration:
		if v == nil {
			return false
		}
		o = *v
	default:
		return false
	}
	return c.Destination == o.Destination &&
		c.BaseURL == o.BaseURL &&
		c.AutoServe == o.AutoServe &&
		slices.Equal(c.Allow, o.Allow) &&
		slices.Equal(c.Deny, o.Deny)
}

func (c Configuration) clone() Configuration {
	c.Allow = slices.Clone(c.Allow)
	c.Deny = slices.Clone(c.Deny)
	return c
}

// extensionAllowed applies the per-set overrides on top of policy:
// an allowed-listed extension always passes, a denied one never does.
func (c Configuration) extensionAllowed(policy Extensions, ext string) bool {
	ext = normalizeExtension(ext)
	if slices.Contains(c.Allow, ext) {
		return true
	}
	return policy.Allowed(ext) && !slices.Contains(c.Deny, ext)
}

// DestinationFunc computes a default destination from the settings snapshot.
// It is consulted after UPLOADED_<NAME>_DEST and UPLOADS_DEFAULT_DEST.
// Returning "" means no default.
type DestinationFunc func(settings config.Settings) string

// globals are the UPLOADS_* settings shared by all sets.
type globals struct {
	DefaultDest string `env:"DEFAULT_DEST"`
	DefaultURL  string `env:"DEFAULT_URL"`
	AutoServe   bool   `env:"AUTOSERVE" envDefault:"false"`
	ServePrefix string `env:"SERVE_PREFIX" envDefault:"/_uploads"`
}

// setSettings are the UPLOADED_<NAME>_* settings. The URL key is read with
// Lookup because an explicit empty value differs from an absent one.
type setSettings struct {
	Dest  string   `env:"DEST"`
	Allow []string `env:"ALLOW" envSeparator:","`
	Deny  []string `env:"DENY" envSeparator:","`
}

func parseGlobals(settings config.Settings) (globals, error) {
	var g globals
	if err := settings.Decode(&g, settingsGlobPrefix); err != nil {
		return globals{}, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	g.ServePrefix = "/" + strings.Trim(g.ServePrefix, "/")
	return g, nil
}

// Resolve computes the configuration of set from settings.
//
// Destination: UPLOADED_<NAME>_DEST, else UPLOADS_DEFAULT_DEST/<name>, else
// the set's DestinationFunc. Relative paths are made absolute.
//
// URL: UPLOADED_<NAME>_URL when present (an empty value opts out of any
// URL, self-served or not), else UPLOADS_DEFAULT_URL/<name>/, else none, in
// which case UPLOADS_AUTOSERVE decides whether the set is self-served.
func Resolve(set *Set, settings config.Settings) (Configuration, error) {
	if set == nil {
		return Configuration{}, fmt.Errorf("%w: nil upload set", ErrConfiguration)
	}
	g, err := parseGlobals(settings)
	if err != nil {
		return Configuration{}, err
	}
	return resolve(set, settings, g)
}

func resolve(set *Set, settings config.Settings, g globals) (Configuration, error) {
	prefix := set.settingsPrefix()

	var ss setSettings
	if err := settings.Decode(&ss, prefix); err != nil {
		return Configuration{}, fmt.Errorf("%w: upload set %q: %w", ErrConfiguration, set.name, err)
	}

	dest := strings.TrimSpace(ss.Dest)
	if dest == "" && g.DefaultDest != "" {
		dest = filepath.Join(g.DefaultDest, set.name)
	}
	if dest == "" && set.defaultDest != nil {
		dest = strings.TrimSpace(set.defaultDest(settings))
	}
	if dest == "" {
		return Configuration{}, fmt.Errorf("%w: no destination for upload set %q", ErrConfiguration, set.name)
	}

	abs, err := filepath.Abs(dest)
	if err != nil {
		return Configuration{}, fmt.Errorf("%w: upload set %q: %v", ErrConfiguration, set.name, err)
	}
	info, err := os.Stat(abs)
	switch {
	case err == nil && !info.IsDir():
		return Configuration{}, fmt.Errorf("%w: destination of upload set %q is not a directory", ErrConfiguration, set.name)
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return Configuration{}, fmt.Errorf("%w: upload set %q: %v", ErrConfiguration, set.name, err)
	}

	cfg := Configuration{
		Destination: abs,
		Allow:       normalizeExtensions(ss.Allow),
		Deny:        normalizeExtensions(ss.Deny),
	}

	if u, ok := settings.Lookup(prefix + "URL"); ok {
		if u != "" {
			if cfg.BaseURL, err = baseURL(u); err != nil {
				return Configuration{}, fmt.Errorf("%w: upload set %q: %v", ErrConfiguration, set.name, err)
			}
		}
	} else if g.DefaultURL != "" {
		base, err := baseURL(g.DefaultURL)
		if err != nil {
			return Configuration{}, fmt.Errorf("%w: %sDEFAULT_URL: %v", ErrConfiguration, settingsGlobPrefix, err)
		}
		cfg.BaseURL = base + set.name + "/"
	} else {
		cfg.AutoServe = g.AutoServe
	}

	return cfg, nil
}

// baseURL validates u and normalizes it to end with exactly one slash.
func baseURL(u string) (string, error) {
	if _, err := url.Parse(u); err != nil {
		return "", err
	}
	return addSlash(u), nil
}

func addSlash(u string) string {
	return strings.TrimRight(u, "/") + "/"
}
