// Package config locates, decodes, and validates key configuration files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// DirName is the per-user configuration directory name.
const DirName = "deskcycle_kb"

var (
	// ErrNotFound means neither the given path nor the config directory holds the file.
	ErrNotFound = errors.New("config file not found")

	// ErrInvalid means the file was found but could not be turned into rules.
	ErrInvalid = errors.New("invalid config")
)

// Document is the on-disk shape of a key configuration.
type Document struct {
	Keys []KeyEntry `json:"keys" toml:"keys" yaml:"keys"`
}

// KeyEntry is one configured key speed range.
type KeyEntry struct {
	KeyName  string   `json:"key_name" toml:"key_name" yaml:"key_name"`
	MinSpeed float64  `json:"min_speed" toml:"min_speed" yaml:"min_speed"`
	MaxSpeed *float64 `json:"max_speed,omitempty" toml:"max_speed,omitempty" yaml:"max_speed,omitempty"`
	KeyType  string   `json:"key_type,omitempty" toml:"key_type,omitempty" yaml:"key_type,omitempty"`
}

// DefaultDir returns the per-user configuration directory, e.g. ~/.config/deskcycle_kb.
func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, DirName), nil
}

// Resolve returns name if it exists, otherwise name inside dir if that exists.
func Resolve(name, dir string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: no file given", ErrNotFound)
	}
	if isFile(name) {
		return name, nil
	}
	if dir != "" {
		p := filepath.Join(dir, name)
		if isFile(p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, name)
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}
