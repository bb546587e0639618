// Package config loads application configuration from the environment and
// provides Settings, the key/value store upload sets are configured from.
//
// It wraps `github.com/joho/godotenv` and `github.com/caarlos0/env/v11`:
//
//   - LoadEnv reads one or more .env files into the process environment.
//   - Load parses the environment into a tagged struct and caches one copy
//     per type for the lifetime of the process.
//   - Settings is an immutable snapshot (process environment, .env files or a
//     plain map) that keeps absent keys and empty values apart, which the
//     upload configuration relies on: UPLOADED_PHOTOS_URL="" opts a set out
//     of self-serving, an unset key does not.
//
// # Usage
//
//	type AppConfig struct {
//		Addr     string `env:"HTTP_ADDR" envDefault:":8080"`
//		Manifest string `env:"UPLOADS_MANIFEST" envDefault:"uploads.yaml"`
//	}
//
//	func main() {
//		_ = config.LoadEnv() // optional .env in the working directory
//
//		var cfg AppConfig
//		config.MustLoad(&cfg)
//
//		settings := config.FromEnviron()
//		if v, ok := settings.Lookup("UPLOADED_PHOTOS_URL"); ok && v == "" {
//			// explicitly disabled
//		}
//	}
//
// Typed views of a Settings snapshot use the same struct tags:
//
//	var g struct {
//		DefaultDest string `env:"DEFAULT_DEST"`
//		AutoServe   bool   `env:"AUTOSERVE"`
//	}
//	err := settings.Decode(&g, "UPLOADS_")
//
// # Error Handling
//
//   - ErrParsingConfig: the environment does not fit the struct.
//   - ErrParsingSettings: a Settings snapshot does not fit the struct.
//   - ErrLoadingEnvFile: a .env file is missing or malformed.
//   - ErrNilPointer: nil pointer passed to Load.
//
// # Testing Helpers
//
// ResetCache clears every cached struct; ForceReloadConfig re-parses one type.
package config
