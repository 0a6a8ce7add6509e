// Package config provides configuration helpers for go-wayfind commands.
package config

import (
	"os"
	"strconv"
)

// Default service configuration.
const (
	DefaultPort      = "8080"
	DefaultVenueID   = "demo"
	DefaultStorePath = "venues.json"
)

// VenueID returns the venue from WAYFIND_VENUE.
// Falls back to the provided default if not set.
func VenueID(defaultID string) string {
	return EnvString("WAYFIND_VENUE", defaultID)
}

// Port returns the HTTP port from WAYFIND_PORT or def.
func Port(def string) string {
	return EnvString("WAYFIND_PORT", def)
}

// StorePath returns the venue store location from WAYFIND_STORE or def.
// A path ending in .db or .sqlite selects the SQLite store.
func StorePath(def string) string {
	return EnvString("WAYFIND_STORE", def)
}

// EnvString reads a string from the environment, returning def when unset.
func EnvString(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

// EnvInt reads an integer from the environment, returning def when the
// variable is unset or malformed.
func EnvInt(name string, def int) int {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// EnvBool reads a boolean ("1", "true", ...) from the environment,
// returning def when unset or malformed.
func EnvBool(name string, def bool) bool {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
