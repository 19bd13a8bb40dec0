// Package config loads the citable YAML configuration file.
//
//	delimiter: "|"
//	database: citable.db
//	log:
//	  level: info
//	  format: text
//	editions:
//	  - name: reading
//	    omit: [abbr, note, del]
//	    tidy: true
//
// Every field is optional. The diplomatic and normalized editions always
// exist; a profile may repeat one of their names only to change tidy.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/FocuswithJustin/CitableCorpus/core/corpus"
	"github.com/FocuswithJustin/CitableCorpus/core/errors"
	"github.com/FocuswithJustin/CitableCorpus/core/tei"
	"github.com/FocuswithJustin/CitableCorpus/internal/logging"
)

// DefaultDatabase is the store path used when none is configured.
const DefaultDatabase = "citable.db"

// Config is the parsed configuration.
type Config struct {
	Delimiter string          `yaml:"delimiter"`
	Database  string          `yaml:"database"`
	Log       LogConfig       `yaml:"log"`
	Editions  []EditionConfig `yaml:"editions"`
}

// LogConfig selects the log level and format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// EditionConfig is a named edition profile.
type EditionConfig struct {
	Name string   `yaml:"name"`
	Omit []string `yaml:"omit"`
	Tidy bool     `yaml:"tidy"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Delimiter: corpus.DefaultDelimiter,
		Database:  DefaultDatabase,
		Log:       LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads the file at path. An empty path returns Default.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &errors.NotFoundError{Resource: "config", ID: path, Err: err}
		}
		return nil, errors.NewIO("read", path, err)
	}
	cfg, err := Parse(b)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result. Unknown
// keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, &errors.ParseError{Format: "YAML", Message: "invalid configuration", Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field values and edition profiles.
func (c *Config) Validate() error {
	if c.Delimiter == "" {
		return errors.NewValidation("delimiter", "must not be empty")
	}
	if strings.ContainsAny(c.Delimiter, ":\r\n") {
		return &errors.ValidationError{Field: "delimiter", Value: c.Delimiter, Message: "must not contain ':' or a line break"}
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return &errors.ValidationError{Field: "log.level", Value: c.Log.Level, Message: err.Error()}
	}
	if _, err := logging.ParseFormat(c.Log.Format); err != nil {
		return &errors.ValidationError{Field: "log.format", Value: c.Log.Format, Message: err.Error()}
	}

	seen := map[string]bool{}
	for _, ec := range c.Editions {
		if seen[ec.Name] {
			return &errors.ValidationError{Field: "editions", Value: ec.Name, Message: "defined more than once"}
		}
		seen[ec.Name] = true

		e := tei.Edition{Name: ec.Name, Omit: ec.Omit, Tidy: ec.Tidy}
		if err := e.Validate(); err != nil {
			return err
		}
		if builtin, ok := tei.Builtin(ec.Name); ok && len(ec.Omit) > 0 && !sameNames(ec.Omit, builtin.Omit) {
			return &errors.ValidationError{
				Field:   "editions",
				Value:   ec.Name,
				Message: fmt.Sprintf("built-in edition omits %v and cannot be redefined", builtin.Omit),
			}
		}
	}
	return nil
}

// Edition resolves an edition by name: configured profiles first, then the
// built-ins. A profile that shares a built-in's name keeps its omission set.
func (c *Config) Edition(name string) (tei.Edition, error) {
	builtin, isBuiltin := tei.Builtin(name)
	for _, ec := range c.Editions {
		if ec.Name != name {
			continue
		}
		if isBuiltin {
			builtin.Tidy = ec.Tidy
			return builtin, nil
		}
		return tei.Edition{Name: ec.Name, Omit: slices.Clone(ec.Omit), Tidy: ec.Tidy}, nil
	}
	if isBuiltin {
		return builtin, nil
	}
	return tei.Edition{}, errors.NewNotFound("edition", name)
}

// EditionNames lists every available edition, sorted.
func (c *Config) EditionNames() []string {
	names := []string{"diplomatic", "normalized"}
	for _, ec := range c.Editions {
		if !slices.Contains(names, ec.Name) {
			names = append(names, ec.Name)
		}
	}
	sort.Strings(names)
	return names
}

func sameNames(a, b []string) bool {
	a, b = slices.Clone(a), slices.Clone(b)
	sort.Strings(a)
	sort.Strings(b)
	return slices.Equal(slices.Compact(a), slices.Compact(b))
}
