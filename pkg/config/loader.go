package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	mu      sync.RWMutex
	cache   = make(map[string]any)
	envOnce sync.Once
)

// Load fills v from the environment. The first call in the process also
// loads a .env file when one exists. Each struct type is parsed once; later
// calls for the same type return the cached copy, so every component sees
// identical configuration regardless of call order.
func Load[T any](v *T) error {
	envOnce.Do(func() {
		// The .env file is a development convenience and may not exist.
		_ = godotenv.Load()
	})
	if v == nil {
		return ErrNilPointer
	}

	name := typeName[T]()

	mu.RLock()
	cached, ok := cache[name]
	mu.RUnlock()
	if ok {
		*v = cached.(T)
		return nil
	}

	if err := env.Parse(v); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}

	mu.Lock()
	// A concurrent Load for the same type may have won the race; prefer the
	// stored copy so every caller observes the same value.
	if cached, ok := cache[name]; ok {
		*v = cached.(T)
	} else {
		cache[name] = *v
	}
	mu.Unlock()

	return nil
}

// MustLoad works like Load but panics if configuration loading fails.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("failed to load required configuration: %v", err))
	}
}

func typeName[T any]() string {
	var zero T
	t := reflect.TypeOf(zero)
	if t == nil {
		return fmt.Sprintf("%T", *new(T))
	}
	return t.String()
}
