package config

import (
	"errors"
	"maps"
	"os"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Settings is a flat key/value snapshot such as UPLOADED_PHOTOS_DEST=/srv/photos.
// Unlike os.Getenv, it keeps "absent" and "set to empty" apart.
// A Settings value is not modified after construction and is safe to share.
type Settings map[string]string

// FromEnviron snapshots the process environment.
func FromEnviron() Settings {
	environ := os.Environ()
	s := make(Settings, len(environ))
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if ok {
			s[key] = value
		}
	}
	return s
}

// FromMap copies m into a new Settings.
func FromMap(m map[string]string) Settings {
	return Settings(maps.Clone(m))
}

// ReadSettings reads .env files without touching the process environment.
// Later files override earlier ones.
func ReadSettings(paths ...string) (Settings, error) {
	m, err := godotenv.Read(paths...)
	if err != nil {
		return nil, errors.Join(ErrLoadingEnvFile, err)
	}
	return Settings(m), nil
}

// Merge returns a copy of s with the keys of other added on top.
func (s Settings) Merge(other Settings) Settings {
	out := make(Settings, len(s)+len(other))
	maps.Copy(out, s)
	maps.Copy(out, other)
	return out
}

// Lookup returns the value for key and whether it is set at all.
func (s Settings) Lookup(key string) (string, bool) {
	v, ok := s[key]
	return v, ok
}

// Get returns the value for key or fallback when it is absent or empty.
func (s Settings) Get(key, fallback string) string {
	if v := s[key]; v != "" {
		return v
	}
	return fallback
}

// Bool parses key as a boolean, returning fallback when it is absent or invalid.
func (s Settings) Bool(key string, fallback bool) bool {
	v, ok := s[key]
	if !ok || v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// Decode parses the settings into v using env struct tags, with prefix
// prepended to every tag name.
//
//	type Globals struct {
//		DefaultDest string `env:"DEFAULT_DEST"`
//	}
//
//	var g Globals
//	err := settings.Decode(&g, "UPLOADS_")
func (s Settings) Decode(v any, prefix string) error {
	if err := env.ParseWithOptions(v, env.Options{
		Environment: map[string]string(s),
		Prefix:      prefix,
	}); err != nil {
		return errors.Join(ErrParsingSettings, err)
	}
	return nil
}
