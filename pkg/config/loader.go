package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// cache keeps one parsed copy per configuration type.
type cache struct {
	mu     sync.RWMutex
	values map[string]any
	onces  map[string]*sync.Once
}

var (
	globalCache = newCache()

	defaultEnvMu     sync.Mutex
	defaultEnvLoaded bool
)

func newCache() *cache {
	return &cache{
		values: make(map[string]any),
		onces:  make(map[string]*sync.Once),
	}
}

// LoadEnv loads .env files into the process environment. Without paths it
// loads ./.env. Variables already set in the environment are kept; among the
// given files, later files override earlier ones.
func LoadEnv(paths ...string) error {
	defaultEnvMu.Lock()
	defer defaultEnvMu.Unlock()
	defaultEnvLoaded = true

	if len(paths) == 0 {
		if err := godotenv.Load(); err != nil {
			return errors.Join(ErrLoadingEnvFile, err)
		}
		return nil
	}

	files, err := godotenv.Read(paths...)
	if err != nil {
		return errors.Join(ErrLoadingEnvFile, err)
	}
	for key, value := range files {
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return errors.Join(ErrLoadingEnvFile, err)
		}
	}
	return nil
}

// MustLoadEnv is like LoadEnv but panics on failure.
func MustLoadEnv(paths ...string) {
	if err := LoadEnv(paths...); err != nil {
		panic(fmt.Sprintf("failed to load env files: %v", err))
	}
}

// Load parses the process environment into v using env struct tags.
// Each configuration type is parsed once; later calls get the cached copy.
// The default .env file is loaded on first use unless LoadEnv ran before.
//
//	type ServerConfig struct {
//		Addr string `env:"HTTP_ADDR" envDefault:":8080"`
//	}
//
//	var cfg ServerConfig
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
func Load[T any](v *T) error {
	loadDefaultEnv()
	if v == nil {
		return ErrNilPointer
	}

	typeName := typeNameOf[T]()

	if cached, ok := globalCache.get(typeName); ok {
		*v = cached.(T)
		return nil
	}

	globalCache.mu.Lock()
	once, exists := globalCache.onces[typeName]
	if !exists {
		once = new(sync.Once)
		globalCache.onces[typeName] = once
	}
	globalCache.mu.Unlock()

	var err error
	once.Do(func() {
		var parsed T
		if parseErr := env.Parse(&parsed); parseErr != nil {
			err = errors.Join(ErrParsingConfig, parseErr)
			// Allow a later call to retry once the environment is fixed
			globalCache.mu.Lock()
			delete(globalCache.onces, typeName)
			globalCache.mu.Unlock()
			return
		}
		globalCache.set(typeName, parsed)
	})
	if err != nil {
		return err
	}

	if cached, ok := globalCache.get(typeName); ok {
		*v = cached.(T)
		return nil
	}
	return ErrConfigNotLoaded
}

// MustLoad is like Load but panics on failure.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("failed to load required configuration: %v", err))
	}
}

// ForceReloadConfig drops the cached copy of T and parses the environment again.
func ForceReloadConfig[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}
	typeName := typeNameOf[T]()

	globalCache.mu.Lock()
	delete(globalCache.values, typeName)
	delete(globalCache.onces, typeName)
	globalCache.mu.Unlock()

	return Load(v)
}

// ResetCache forgets every cached configuration. Intended for tests.
func ResetCache() {
	globalCache.mu.Lock()
	globalCache.values = make(map[string]any)
	globalCache.onces = make(map[string]*sync.Once)
	globalCache.mu.Unlock()
}

func (c *cache) get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[key]
	return v, ok
}

func (c *cache) set(key string, v any) {
	c.mu.Lock()
	c.values[key] = v
	c.mu.Unlock()
}

func loadDefaultEnv() {
	defaultEnvMu.Lock()
	defer defaultEnvMu.Unlock()
	if defaultEnvLoaded {
		return
	}
	defaultEnvLoaded = true
	// The default .env file is optional
	_ = godotenv.Load()
}

func typeNameOf[T any]() string {
	t := reflect.TypeFor[T]()
	return t.PkgPath() + "." + t.String()
}
