// Package config loads the store's runtime configuration from the
// environment. All variables are optional; the zero value of Config is the
// production default.
package config

import (
	"sync"

	"github.com/JeremyLoy/config"
	"github.com/rs/zerolog/log"
)

// Config carries the recognized environment options.
//
//	ARKHE_SANITIZE       - enable expensive consistency checks ("true"/"false")
//	ARKHE_STATSD_ADDRESS - address of a statsd agent, empty disables metrics
//	ARKHE_LOG_LEVEL      - zerolog level name, empty keeps the global level
type Config struct {
	ArkheSanitize      bool
	ArkheStatsdAddress string
	ArkheLogLevel      string
}

var (
	loadOnce sync.Once
	loaded   Config
)

// Get returns the process-wide configuration, reading the environment on
// first use.
func Get() Config {
	loadOnce.Do(func() {
		if err := config.FromEnv().To(&loaded); err != nil {
			log.Warn().Err(err).Msg("failed to load configuration from environment")
		}
	})
	return loaded
}

// Sanitize reports whether the expensive consistency checks are enabled:
// iteration guards on archetypes, handle verification after structural
// mutation, duplicate-name detection, and double-erase panics.
func Sanitize() bool {
	return Get().ArkheSanitize
}

// SetSanitize overrides the sanitize flag. Intended for tests.
func SetSanitize(enabled bool) {
	Get()
	loaded.ArkheSanitize = enabled
}
