package config

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	envOnce sync.Once
	cacheMu sync.Mutex
	cache   = map[reflect.Type]any{}
)

// loadDotenv loads a .env file from the working directory exactly once per process. A
// missing file is not an error: environments that inject variables directly have no .env
// to load.
func loadDotenv() {
	envOnce.Do(func() {
		_ = godotenv.Load()
	})
}

// Load parses environment variables into cfg using struct tags, caching the result by
// cfg's pointee type so a second Load call for the same type returns the first call's
// value without re-reading the environment. cfg must be a non-nil pointer to a struct.
func Load[T any](cfg *T) error {
	loadDotenv()

	t := reflect.TypeOf(*cfg)

	cacheMu.Lock()
	if cached, ok := cache[t]; ok {
		cacheMu.Unlock()
		*cfg = *cached.(*T)
		return nil
	}
	cacheMu.Unlock()

	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", t, err)
	}

	cp := *cfg
	cacheMu.Lock()
	cache[t] = &cp
	cacheMu.Unlock()
	return nil
}

// MustLoad calls Load and panics if it returns an error. Intended for use during
// application startup, where a missing or invalid configuration is fatal.
func MustLoad[T any](cfg *T) {
	if err := Load(cfg); err != nil {
		panic(err)
	}
}

// Reset clears the cache. Intended for tests that need to reload configuration under
// different environment variables within the same process.
func Reset() {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	cache = map[reflect.Type]any{}
	envOnce = sync.Once{}
}
