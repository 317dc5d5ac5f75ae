package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/sweeney/deskcycle-kb/internal/logic"
)

//go:embed keys.schema.json
var schemaJSON []byte

const schemaURL = "https://github.com/sweeney/deskcycle-kb/keys.schema.json"

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func keySchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile(schemaURL)
	})
	return schema, schemaErr
}

// Format is a configuration file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// FormatFor picks the format from the file extension. Unknown extensions are JSON.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// Load reads path and builds its rule set.
func Load(path string, isValidKey func(string) bool) (*logic.RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	rs, err := Parse(data, FormatFor(path), isValidKey)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rs, nil
}

// Parse decodes data, validates it against the key schema, and builds the rules.
// Every failure wraps ErrInvalid.
func Parse(data []byte, format Format, isValidKey func(string) bool) (*logic.RuleSet, error) {
	doc, err := Decode(data, format)
	if err != nil {
		return nil, err
	}

	rs, err := logic.NewRuleSet(doc.RuleConfigs(), isValidKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return rs, nil
}

// Decode turns data into a validated Document.
// TOML and YAML are normalised to JSON so one schema covers every format.
func Decode(data []byte, format Format) (*Document, error) {
	jsonData, err := normalise(data, format)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", ErrInvalid, format, err)
	}

	var instance any
	if err := json.Unmarshal(jsonData, &instance); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", ErrInvalid, format, err)
	}

	sch, err := keySchema()
	if err != nil {
		return nil, err
	}
	if err := sch.Validate(instance); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	var doc Document
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return &doc, nil
}

func normalise(data []byte, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return data, nil

	case FormatTOML:
		var raw map[string]any
		if _, err := toml.Decode(string(data), &raw); err != nil {
			return nil, err
		}
		return json.Marshal(raw)

	case FormatYAML:
		var raw map[string]any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		return json.Marshal(raw)
	}
	return nil, fmt.Errorf("unknown format %q", format)
}

// RuleConfigs converts the document to rule configs in file order.
func (d *Document) RuleConfigs() []logic.RuleConfig {
	cfgs := make([]logic.RuleConfig, 0, len(d.Keys))
	for _, k := range d.Keys {
		cfg := logic.RuleConfig{
			Key:      k.KeyName,
			MinSpeed: k.MinSpeed,
			MaxSpeed: logic.Unbounded,
			Mode:     logic.Mode(k.KeyType),
		}
		if k.MaxSpeed != nil {
			cfg.MaxSpeed = *k.MaxSpeed
		}
		cfgs = append(cfgs, cfg)
	}
	return cfgs
}
