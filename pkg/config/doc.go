// Package config loads typed configuration structs from environment
// variables, with optional .env file support for local development.
//
// Each configuration is a plain struct with `env` tags understood by
// caarlos0/env; defaults live in `envDefault` tags next to the fields they
// describe. Load parses a struct at most once per type and serves cached
// copies afterwards, so independent components can each call Load for the
// config they need without re-reading the environment.
//
//	type Config struct {
//	    Addr string `env:"HTTP_ADDR" envDefault:":8080"`
//	}
//
//	var cfg Config
//	if err := config.Load(&cfg); err != nil { ... }
//
// MustLoad panics on failure and is intended for configuration the process
// cannot start without.
package config
