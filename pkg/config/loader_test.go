package config_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/reupload/pkg/config"
)

type serverConfig struct {
	Addr    string `env:"RU_SERVER_ADDR" envDefault:":8080"`
	Workers int    `env:"RU_SERVER_WORKERS" envDefault:"4"`
	Debug   bool   `env:"RU_SERVER_DEBUG" envDefault:"true"`
}

type cachedConfig struct {
	Value string `env:"RU_CACHED_VALUE" envDefault:"default_value"`
}

type requiredConfig struct {
	Token string `env:"RU_REQUIRED_TOKEN,required"`
}

type fileConfig struct {
	String string   `env:"RU_TEST_STRING"`
	Int    int      `env:"RU_TEST_INT"`
	Bool   bool     `env:"RU_TEST_BOOL"`
	List   []string `env:"RU_TEST_LIST" envSeparator:","`
	Quoted string   `env:"RU_TEST_QUOTED"`
	Empty  string   `env:"RU_TEST_EMPTY"`
	Unique string   `env:"RU_TEST_UNIQUE"`
}

func unsetFileVars(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"RU_TEST_STRING", "RU_TEST_INT", "RU_TEST_BOOL", "RU_TEST_LIST",
		"RU_TEST_QUOTED", "RU_TEST_EMPTY", "RU_TEST_UNIQUE",
	} {
		require.NoError(t, os.Unsetenv(key))
	}
	t.Cleanup(func() {
		for _, key := range []string{
			"RU_TEST_STRING", "RU_TEST_INT", "RU_TEST_BOOL", "RU_TEST_LIST",
			"RU_TEST_QUOTED", "RU_TEST_EMPTY", "RU_TEST_UNIQUE",
		} {
			_ = os.Unsetenv(key)
		}
	})
}

func TestLoad(t *testing.T) {
	t.Run("values from environment", func(t *testing.T) {
		config.ResetCache()
		t.Setenv("RU_SERVER_ADDR", ":9090")
		t.Setenv("RU_SERVER_WORKERS", "16")
		t.Setenv("RU_SERVER_DEBUG", "false")

		var cfg serverConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, ":9090", cfg.Addr)
		assert.Equal(t, 16, cfg.Workers)
		assert.False(t, cfg.Debug)
	})

	t.Run("defaults", func(t *testing.T) {
		config.ResetCache()
		var cfg serverConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, ":8080", cfg.Addr)
		assert.Equal(t, 4, cfg.Workers)
		assert.True(t, cfg.Debug)
	})

	t.Run("nil pointer", func(t *testing.T) {
		var cfg *serverConfig
		assert.ErrorIs(t, config.Load(cfg), config.ErrNilPointer)
	})
}

func TestLoad_Cached(t *testing.T) {
	config.ResetCache()
	t.Setenv("RU_CACHED_VALUE", "first")

	var first cachedConfig
	require.NoError(t, config.Load(&first))

	t.Setenv("RU_CACHED_VALUE", "second")

	var second cachedConfig
	require.NoError(t, config.Load(&second))
	assert.Equal(t, "first", second.Value)

	var reloaded cachedConfig
	require.NoError(t, config.ForceReloadConfig(&reloaded))
	assert.Equal(t, "second", reloaded.Value)
}

func TestLoad_MissingRequired(t *testing.T) {
	config.ResetCache()
	require.NoError(t, os.Unsetenv("RU_REQUIRED_TOKEN"))

	var cfg requiredConfig
	err := config.Load(&cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrParsingConfig)

	t.Setenv("RU_REQUIRED_TOKEN", "secret")
	require.NoError(t, config.Load(&cfg), "a failed parse is not cached")
	assert.Equal(t, "secret", cfg.Token)
}

func TestMustLoad(t *testing.T) {
	config.ResetCache()
	require.NoError(t, os.Unsetenv("RU_REQUIRED_TOKEN"))

	assert.Panics(t, func() {
		var cfg requiredConfig
		config.MustLoad(&cfg)
	})
	assert.NotPanics(t, func() {
		var cfg serverConfig
		config.MustLoad(&cfg)
	})
}

func TestLoadEnv(t *testing.T) {
	t.Run("single file", func(t *testing.T) {
		unsetFileVars(t)
		config.ResetCache()

		require.NoError(t, config.LoadEnv("testdata/.env.custom"))

		var cfg fileConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "custom_value", cfg.String)
		assert.Equal(t, 1234, cfg.Int)
		assert.True(t, cfg.Bool)
		assert.Equal(t, []string{"jpg", "png", "gif"}, cfg.List)
		assert.Equal(t, "quoted value", cfg.Quoted)
		assert.Empty(t, cfg.Empty)
	})

	t.Run("later files win", func(t *testing.T) {
		unsetFileVars(t)
		config.ResetCache()

		require.NoError(t, config.LoadEnv("testdata/.env.custom", "testdata/.env.override"))

		var cfg fileConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "override_value", cfg.String)
		assert.Equal(t, 9999, cfg.Int)
		assert.Equal(t, "unique_to_override", cfg.Unique)
		assert.Equal(t, "quoted value", cfg.Quoted)
	})

	t.Run("process environment wins", func(t *testing.T) {
		unsetFileVars(t)
		config.ResetCache()
		t.Setenv("RU_TEST_STRING", "from_process")

		require.NoError(t, config.LoadEnv("testdata/.env.custom"))
		assert.Equal(t, "from_process", os.Getenv("RU_TEST_STRING"))
	})

	t.Run("missing file", func(t *testing.T) {
		err := config.LoadEnv("testdata/missing.env")
		require.Error(t, err)
		assert.ErrorIs(t, err, config.ErrLoadingEnvFile)
	})
}

func TestMustLoadEnv(t *testing.T) {
	unsetFileVars(t)
	assert.NotPanics(t, func() { config.MustLoadEnv("testdata/.env.custom") })
	assert.Panics(t, func() { config.MustLoadEnv("testdata/missing.env") })
}
