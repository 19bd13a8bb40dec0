package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	cerrors "github.com/FocuswithJustin/CitableCorpus/core/errors"
)

const sampleYAML = `
delimiter: "#"
database: /var/lib/citable/corpora.db
log:
  level: debug
  format: json
editions:
  - name: reading
    omit: [abbr, note, del]
    tidy: true
  - name: diplomatic
    tidy: true
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "citable.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") failed: %v", err)
	}
	if cfg.Delimiter != "|" {
		t.Errorf("Delimiter = %q, want %q", cfg.Delimiter, "|")
	}
	if cfg.Database != DefaultDatabase {
		t.Errorf("Database = %q, want %q", cfg.Database, DefaultDatabase)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Delimiter != "#" {
		t.Errorf("Delimiter = %q, want %q", cfg.Delimiter, "#")
	}
	if cfg.Database != "/var/lib/citable/corpora.db" {
		t.Errorf("Database = %q", cfg.Database)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if len(cfg.Editions) != 2 {
		t.Fatalf("len(Editions) = %d, want 2", len(cfg.Editions))
	}
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "log:\n  level: warn\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Delimiter != "|" || cfg.Database != DefaultDatabase || cfg.Log.Format != "text" {
		t.Errorf("defaults lost: %+v", cfg)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want warn", cfg.Log.Level)
	}
}

func TestLoadEmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Delimiter != "|" {
		t.Errorf("Delimiter = %q", cfg.Delimiter)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, cerrors.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		yaml  string
		field string
	}{
		{"syntax", "delimiter: [unclosed", ""},
		{"unknown key", "delimeter: \"|\"\n", ""},
		{"empty delimiter", "delimiter: \"\"\n", "delimiter"},
		{"colon delimiter", "delimiter: \":\"\n", "delimiter"},
		{"bad level", "log:\n  level: loud\n", "log.level"},
		{"bad format", "log:\n  format: xml\n", "log.format"},
		{"bad edition name", "editions:\n  - name: a.b\n", "edition"},
		{"duplicate edition", "editions:\n  - name: x\n  - name: x\n", "editions"},
		{"redefined builtin", "editions:\n  - name: normalized\n    omit: [expan]\n", "editions"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("Parse should fail")
			}
			if tt.field == "" {
				var pErr *cerrors.ParseError
				if !errors.As(err, &pErr) {
					t.Errorf("error = %T (%v), want *errors.ParseError", err, err)
				}
				return
			}
			var vErr *cerrors.ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("error = %T (%v), want *errors.ValidationError", err, err)
			}
			if vErr.Field != tt.field {
				t.Errorf("Field = %q, want %q", vErr.Field, tt.field)
			}
		})
	}
}

func TestBuiltinWithSameOmitIsAllowed(t *testing.T) {
	_, err := Parse([]byte("editions:\n  - name: diplomatic\n    omit: [expan]\n    tidy: true\n"))
	if err != nil {
		t.Errorf("Parse failed: %v", err)
	}
}

func TestEdition(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	reading, err := cfg.Edition("reading")
	if err != nil {
		t.Fatalf("Edition(reading) failed: %v", err)
	}
	if strings.Join(reading.Omit, ",") != "abbr,note,del" || !reading.Tidy {
		t.Errorf("reading = %+v", reading)
	}

	dipl, err := cfg.Edition("diplomatic")
	if err != nil {
		t.Fatalf("Edition(diplomatic) failed: %v", err)
	}
	if strings.Join(dipl.Omit, ",") != "expan" || !dipl.Tidy {
		t.Errorf("diplomatic = %+v, want built-in omission with tidy", dipl)
	}

	norm, err := cfg.Edition("normalized")
	if err != nil {
		t.Fatalf("Edition(normalized) failed: %v", err)
	}
	if strings.Join(norm.Omit, ",") != "abbr" || norm.Tidy {
		t.Errorf("normalized = %+v", norm)
	}

	if _, err := cfg.Edition("missing"); !errors.Is(err, cerrors.ErrNotFound) {
		t.Errorf("Edition(missing) error = %v, want ErrNotFound", err)
	}
}

func TestEditionNames(t *testing.T) {
	cfg, _ := Parse([]byte(sampleYAML))
	got := strings.Join(cfg.EditionNames(), ",")
	if want := "diplomatic,normalized,reading"; got != want {
		t.Errorf("EditionNames() = %q, want %q", got, want)
	}
}
