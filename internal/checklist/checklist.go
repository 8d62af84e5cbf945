package checklist

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"winprep/internal/ops"
)

// Scope selects where a setting is written.
type Scope string

const (
	// AllUsers writes into every user profile and the default profile.
	AllUsers Scope = "all_users"
	// Machine writes once to a machine-wide root (HKLM unless root is set).
	Machine Scope = "machine"
)

// ParseScope maps user input to a Scope; empty means AllUsers.
func ParseScope(value string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "all_users", "allusers", "user", "users":
		return AllUsers, nil
	case "machine", "system":
		return Machine, nil
	default:
		return "", fmt.Errorf("unknown scope %q", value)
	}
}

// Setting is one row of the settings table as written by the author.
type Setting struct {
	Label        string `toml:"label" yaml:"label"`
	Scope        string `toml:"scope,omitempty" yaml:"scope,omitempty"`
	Root         string `toml:"root,omitempty" yaml:"root,omitempty"`
	Path         string `toml:"path" yaml:"path"`
	Name         string `toml:"name" yaml:"name"`
	DefaultValue bool   `toml:"default_value,omitempty" yaml:"default_value,omitempty"`
	Type         string `toml:"type,omitempty" yaml:"type,omitempty"`
	Value        any    `toml:"value,omitempty" yaml:"value,omitempty"`
	Action       string `toml:"action,omitempty" yaml:"action,omitempty"`
}

type document struct {
	Settings []Setting `toml:"setting" yaml:"settings"`
}

// Format identifies a checklist encoding.
type Format string

const (
	TOML Format = "toml"
	YAML Format = "yaml"
)

// FormatForPath picks the encoding from the file extension.
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return TOML, nil
	case ".yaml", ".yml":
		return YAML, nil
	default:
		return "", ops.Wrap(ops.ErrValidation, "checklist", "detect format", path, errors.New("expected .toml, .yaml, or .yml"))
	}
}

// Load reads a settings table from path.
func Load(path string) ([]Setting, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ops.Wrap(ops.ErrNotFound, "checklist", "read", path, err)
		}
		return nil, fmt.Errorf("read checklist: %w", err)
	}
	settings, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return settings, nil
}

// Parse decodes a settings table. Unknown fields are rejected so typos in
// column names surface instead of silently producing blank values.
func Parse(data []byte, format Format) ([]Setting, error) {
	var doc document
	switch format {
	case TOML:
		decoder := toml.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&doc); err != nil {
			return nil, ops.Wrap(ops.ErrValidation, "checklist", "parse toml", "", err)
		}
	case YAML:
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
			return nil, ops.Wrap(ops.ErrValidation, "checklist", "parse yaml", "", err)
		}
	default:
		return nil, fmt.Errorf("unsupported checklist format %q", format)
	}
	return doc.Settings, nil
}

// Encode renders settings in format; used by `checklist fmt`.
func Encode(settings []Setting, format Format) ([]byte, error) {
	doc := document{Settings: settings}
	switch format {
	case TOML:
		return toml.Marshal(doc)
	case YAML:
		var buf bytes.Buffer
		encoder := yaml.NewEncoder(&buf)
		encoder.SetIndent(2)
		if err := encoder.Encode(doc); err != nil {
			return nil, err
		}
		if err := encoder.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported checklist format %q", format)
	}
}
