package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	cerrors "github.com/FocuswithJustin/CitableCorpus/core/errors"
	"github.com/FocuswithJustin/CitableCorpus/core/store"
)

const (
	urnBase = "urn:cts:latinLit:phi0959.phi006:"

	sampleTEI = `<?xml version="1.0" encoding="UTF-8"?>
<TEI xmlns="http://www.tei-c.org/ns/1.0">
  <text>
    <body>
      <div n="1">
        <ab n="1">Plain
          text.</ab>
        <ab n="2">The <choice><abbr>dr.</abbr><expan>doctor</expan></choice> arrived.</ab>
      </div>
    </body>
  </text>
</TEI>
`

	sampleCEX = `#!cexversion
3.0

#!ctsdata
urn:cts:latinLit:phi0959.phi006:1.1|Plain text.
urn:cts:latinLit:phi0959.phi006:1.2|Second.
`
)

// Test helper functions

func createTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
	return path
}

func newTestApp(t *testing.T, g Globals) (*app, *bytes.Buffer) {
	t.Helper()
	if g.DB == "" {
		g.DB = filepath.Join(t.TempDir(), "citable.db")
	}
	if g.LogLevel == "" {
		g.LogLevel = "error"
	}
	var out bytes.Buffer
	a, err := newApp(context.Background(), g, &out, io.Discard)
	if err != nil {
		t.Fatalf("newApp failed: %v", err)
	}
	return a, &out
}

func TestNewApp(t *testing.T) {
	dir := t.TempDir()
	cfgPath := createTestFile(t, dir, "citable.yaml", "delimiter: \"#\"\ndatabase: from-config.db\n")

	a, _ := newTestApp(t, Globals{Config: cfgPath, DB: filepath.Join(dir, "flag.db")})
	if a.cfg.Delimiter != "#" {
		t.Errorf("Delimiter = %q, want %q", a.cfg.Delimiter, "#")
	}
	if a.cfg.Database != filepath.Join(dir, "flag.db") {
		t.Errorf("Database = %q, want the flag value", a.cfg.Database)
	}

	a, _ = newTestApp(t, Globals{Config: cfgPath, Delimiter: "~"})
	if a.cfg.Delimiter != "~" {
		t.Errorf("Delimiter = %q, want flag override %q", a.cfg.Delimiter, "~")
	}
}

func TestNewAppErrors(t *testing.T) {
	tests := []struct {
		name string
		g    Globals
	}{
		{"missing config", Globals{Config: filepath.Join(t.TempDir(), "missing.yaml")}},
		{"bad delimiter", Globals{Delimiter: ":"}},
		{"bad log level", Globals{LogLevel: "loud"}},
		{"bad log format", Globals{LogFormat: "xml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := newApp(context.Background(), tt.g, io.Discard, io.Discard); err == nil {
				t.Error("newApp should fail")
			}
		})
	}
}

// Tests for CEXCmd

func TestCEXCmd_Run(t *testing.T) {
	doc := createTestFile(t, t.TempDir(), "ovid.xml", sampleTEI)
	a, out := newTestApp(t, Globals{})

	if err := (&CEXCmd{Doc: doc, URN: urnBase}).Run(a); err != nil {
		t.Fatalf("CEXCmd.Run() error = %v", err)
	}
	want := urnBase + "1.1|" + `<ab xmlns="http://www.tei-c.org/ns/1.0" n="1">Plain text.</ab>` + "\n" +
		urnBase + "1.2|" + `<ab xmlns="http://www.tei-c.org/ns/1.0" n="2">The <choice><abbr>dr.</abbr><expan>doctor</expan></choice> arrived.</ab>` + "\n"
	if out.String() != want {
		t.Errorf("output =\n%s\nwant\n%s", out.String(), want)
	}
}

func TestCEXCmd_Block(t *testing.T) {
	dir := t.TempDir()
	doc := createTestFile(t, dir, "ovid.xml", sampleTEI)
	outPath := filepath.Join(dir, "ovid.cex")
	a, out := newTestApp(t, Globals{})

	if err := (&CEXCmd{Doc: doc, URN: urnBase, Block: true, Out: outPath}).Run(a); err != nil {
		t.Fatalf("CEXCmd.Run() error = %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("stdout = %q, want nothing with --out", out.String())
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	if !strings.HasPrefix(string(data), "#!cexversion\n3.0\n\n#!ctsdata\n"+urnBase+"1.1|") {
		t.Errorf("output = %q", data)
	}
}

func TestCEXCmd_Malformed(t *testing.T) {
	doc := createTestFile(t, t.TempDir(), "bad.xml", "<TEI><text>")
	a, _ := newTestApp(t, Globals{})

	err := (&CEXCmd{Doc: doc, URN: urnBase}).Run(a)
	var pErr *cerrors.ParseError
	if !errors.As(err, &pErr) {
		t.Fatalf("error = %T (%v), want *errors.ParseError", err, err)
	}
	if pErr.Line != 1 {
		t.Errorf("Line = %d, want 1", pErr.Line)
	}
}

// Tests for EditionCmd

func TestEditionCmd_Run(t *testing.T) {
	dir := t.TempDir()
	doc := createTestFile(t, dir, "ovid.xml", sampleTEI)

	tests := []struct {
		edition string
		want    string
	}{
		{"diplomatic", "urn:cts:latinLit:phi0959.phi006.v1.diplomatic:1.1|Plain text.\n" +
			"urn:cts:latinLit:phi0959.phi006.v1.diplomatic:1.2|The dr. arrived.\n"},
		{"normalized", "urn:cts:latinLit:phi0959.phi006.v1.normalized:1.1|Plain text.\n" +
			"urn:cts:latinLit:phi0959.phi006.v1.normalized:1.2|The doctor arrived.\n"},
	}
	for _, tt := range tests {
		t.Run(tt.edition, func(t *testing.T) {
			a, out := newTestApp(t, Globals{})
			if err := (&EditionCmd{Input: doc, Edition: tt.edition, URN: urnBase}).Run(a); err != nil {
				t.Fatalf("EditionCmd.Run() error = %v", err)
			}
			if out.String() != tt.want {
				t.Errorf("output =\n%s\nwant\n%s", out.String(), tt.want)
			}
		})
	}
}

func TestEditionCmd_DelimitedInput(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
	}{
		{"cex document", sampleCEX},
		{"plain lines", "urn:cts:latinLit:phi0959.phi006:1.1|Plain text.\nurn:cts:latinLit:phi0959.phi006:1.2|Second.\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := createTestFile(t, dir, "ovid.cex", tt.content)
			a, out := newTestApp(t, Globals{})
			if err := (&EditionCmd{Input: input, Edition: "normalized"}).Run(a); err != nil {
				t.Fatalf("EditionCmd.Run() error = %v", err)
			}
			lines := strings.Split(strings.TrimSpace(out.String()), "\n")
			if len(lines) != 2 {
				t.Fatalf("got %d lines, want 2: %q", len(lines), out.String())
			}
			if lines[1] != "urn:cts:latinLit:phi0959.phi006.v1.normalized:1.2|Second." {
				t.Errorf("line 2 = %q", lines[1])
			}
		})
	}
}

func TestEditionCmd_Profile(t *testing.T) {
	dir := t.TempDir()
	cfg := createTestFile(t, dir, "citable.yaml", "editions:\n  - name: bare\n    omit: [choice]\n")
	doc := createTestFile(t, dir, "ovid.xml", sampleTEI)

	a, out := newTestApp(t, Globals{Config: cfg})
	if err := (&EditionCmd{Input: doc, Edition: "bare", URN: urnBase, Block: true}).Run(a); err != nil {
		t.Fatalf("EditionCmd.Run() error = %v", err)
	}
	if !strings.Contains(out.String(), "v1.bare:1.2|The  arrived.\n") {
		t.Errorf("output = %q", out.String())
	}

	out.Reset()
	if err := (&EditionCmd{Input: doc, Edition: "bare", URN: urnBase, Tidy: true}).Run(a); err != nil {
		t.Fatalf("EditionCmd.Run() error = %v", err)
	}
	if !strings.Contains(out.String(), "v1.bare:1.2|The arrived.\n") {
		t.Errorf("tidy output = %q", out.String())
	}
}

func TestEditionCmd_Errors(t *testing.T) {
	dir := t.TempDir()
	doc := createTestFile(t, dir, "ovid.xml", sampleTEI)
	a, _ := newTestApp(t, Globals{})

	err := (&EditionCmd{Input: doc, Edition: "missing", URN: urnBase}).Run(a)
	if !errors.Is(err, cerrors.ErrNotFound) {
		t.Errorf("unknown edition error = %v, want ErrNotFound", err)
	}

	err = (&EditionCmd{Input: doc, Edition: "diplomatic"}).Run(a)
	var vErr *cerrors.ValidationError
	if !errors.As(err, &vErr) || vErr.Field != "urn" {
		t.Errorf("missing --urn error = %v, want urn ValidationError", err)
	}

	err = (&EditionCmd{Input: filepath.Join(dir, "missing.xml"), Edition: "diplomatic", URN: urnBase}).Run(a)
	if !errors.Is(err, cerrors.ErrNotFound) {
		t.Errorf("missing input error = %v, want ErrNotFound", err)
	}
}

// Tests for DiffCmd

func TestDiffCmd_Run(t *testing.T) {
	doc := createTestFile(t, t.TempDir(), "ovid.xml", sampleTEI)
	a, out := newTestApp(t, Globals{})

	cmd := &DiffCmd{Input: doc, Left: "diplomatic", Right: "normalized", URN: urnBase}
	if err := cmd.Run(a); err != nil {
		t.Fatalf("DiffCmd.Run() error = %v", err)
	}
	for _, want := range []string{"-dr.\n", "+doctor\n", "1 changed, 1 identical, 0 only left, 0 only right\n"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}

	cmd.ExitCode = true
	if err := cmd.Run(a); err == nil {
		t.Error("DiffCmd with --exit-code should fail when editions differ")
	}

	cmd.Right = "diplomatic"
	if err := cmd.Run(a); err != nil {
		t.Errorf("identical editions with --exit-code: %v", err)
	}
}

// Tests for ValidateCmd

func TestValidateCmd_Run(t *testing.T) {
	dir := t.TempDir()
	dup := createTestFile(t, dir, "dup.cex",
		"urn:cts:latinLit:phi0959.phi006:1.1|a\nurn:cts:latinLit:phi0959.phi006:1.1|b\nurn:cts:latinLit:phi0959.phi006:1.2|c\n")

	a, out := newTestApp(t, Globals{})
	if err := (&ValidateCmd{Input: dup}).Run(a); err != nil {
		t.Fatalf("ValidateCmd.Run() error = %v", err)
	}
	for _, want := range []string{"dup.cex: 3 passages, 1 duplicate URNs", "duplicate: urn:cts:latinLit:phi0959.phi006:1.1", "digest: "} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}

	err := (&ValidateCmd{Input: dup, Strict: true}).Run(a)
	if !errors.Is(err, cerrors.ErrInvalidInput) {
		t.Errorf("strict error = %v, want ErrInvalidInput", err)
	}

	doc := createTestFile(t, dir, "ovid.xml", sampleTEI)
	if err := (&ValidateCmd{Input: doc, URN: urnBase, Strict: true}).Run(a); err != nil {
		t.Errorf("strict on unique URNs: %v", err)
	}

	bad := createTestFile(t, dir, "bad.cex", "no delimiter here\n")
	if err := (&ValidateCmd{Input: bad}).Run(a); err == nil {
		t.Error("ValidateCmd should fail on a malformed line")
	}
}

// Tests for PassageCmd

func TestPassageCmd_Run(t *testing.T) {
	dir := t.TempDir()
	doc := createTestFile(t, dir, "ovid.xml", sampleTEI)
	input := createTestFile(t, dir, "ovid.cex", sampleCEX)

	tests := []struct {
		name string
		cmd  PassageCmd
		want string
	}{
		{
			name: "bare reference",
			cmd:  PassageCmd{Input: input, Ref: "1.2"},
			want: urnBase + "1.2|Second.\n",
		},
		{
			name: "full URN",
			cmd:  PassageCmd{Input: input, Ref: urnBase + "1.1"},
			want: urnBase + "1.1|Plain text.\n",
		},
		{
			name: "edition of TEI input",
			cmd:  PassageCmd{Input: doc, URN: urnBase, Ref: "1.2", Edition: "normalized"},
			want: "urn:cts:latinLit:phi0959.phi006.v1.normalized:1.2|The doctor arrived.\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, out := newTestApp(t, Globals{})
			if err := tt.cmd.Run(a); err != nil {
				t.Fatalf("PassageCmd.Run() error = %v", err)
			}
			if out.String() != tt.want {
				t.Errorf("output = %q, want %q", out.String(), tt.want)
			}
		})
	}
}

func TestPassageCmd_Errors(t *testing.T) {
	input := createTestFile(t, t.TempDir(), "ovid.cex", sampleCEX)
	tests := []struct {
		name string
		ref  string
		want error
	}{
		{"missing passage", "9.9", cerrors.ErrNotFound},
		{"other work", "urn:cts:latinLit:phi0959.phi007:1.1", cerrors.ErrNotFound},
		{"malformed reference", "1..2", cerrors.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _ := newTestApp(t, Globals{})
			err := (&PassageCmd{Input: input, Ref: tt.ref}).Run(a)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

// Tests for the store commands

func TestStoreReadCommandsWithoutDatabase(t *testing.T) {
	db := filepath.Join(t.TempDir(), "absent.db")
	a, out := newTestApp(t, Globals{DB: db})

	if err := (&StoreListCmd{}).Run(a); err != nil {
		t.Fatalf("StoreListCmd.Run() error = %v", err)
	}
	if out.String() != "No corpora stored.\n" {
		t.Errorf("list output = %q", out.String())
	}

	out.Reset()
	if err := (&StoreListCmd{JSON: true}).Run(a); err != nil {
		t.Fatalf("StoreListCmd.Run() error = %v", err)
	}
	if strings.TrimSpace(out.String()) != "[]" {
		t.Errorf("JSON list output = %q", out.String())
	}

	if err := (&StoreShowCmd{ID: "missing"}).Run(a); !errors.Is(err, cerrors.ErrNotFound) {
		t.Errorf("show error = %v, want ErrNotFound", err)
	}
	if _, err := os.Stat(db); !os.IsNotExist(err) {
		t.Errorf("read-only commands created %s", db)
	}
}

func TestStoreCommands(t *testing.T) {
	dir := t.TempDir()
	doc := createTestFile(t, dir, "ovid.xml", sampleTEI)
	a, out := newTestApp(t, Globals{DB: filepath.Join(dir, "corpora.db")})

	save := &StoreSaveCmd{Input: doc, URN: urnBase, Edition: "normalized"}
	if err := save.Run(a); err != nil {
		t.Fatalf("StoreSaveCmd.Run() error = %v", err)
	}
	if !strings.Contains(out.String(), "ovid.xml (normalized)  2 passages") {
		t.Errorf("save output = %q", out.String())
	}

	out.Reset()
	if err := (&StoreListCmd{JSON: true}).Run(a); err != nil {
		t.Fatalf("StoreListCmd.Run() error = %v", err)
	}
	var records []store.Record
	if err := json.Unmarshal(out.Bytes(), &records); err != nil {
		t.Fatalf("list output is not JSON: %v\n%s", err, out.String())
	}
	if len(records) != 1 || records[0].Passages != 2 {
		t.Fatalf("records = %+v", records)
	}
	id := records[0].ID

	out.Reset()
	if err := (&StoreListCmd{}).Run(a); err != nil {
		t.Fatalf("StoreListCmd.Run() error = %v", err)
	}
	if !strings.Contains(out.String(), id) || !strings.Contains(out.String(), "ago") && !strings.Contains(out.String(), "now") {
		t.Errorf("list output = %q", out.String())
	}

	out.Reset()
	if err := (&StoreShowCmd{ID: id}).Run(a); err != nil {
		t.Fatalf("StoreShowCmd.Run() error = %v", err)
	}
	if !strings.Contains(out.String(), "v1.normalized:1.2|The doctor arrived.") {
		t.Errorf("show output = %q", out.String())
	}

	out.Reset()
	if err := (&StoreDeleteCmd{ID: id}).Run(a); err != nil {
		t.Fatalf("StoreDeleteCmd.Run() error = %v", err)
	}
	if err := (&StoreShowCmd{ID: id}).Run(a); !errors.Is(err, cerrors.ErrNotFound) {
		t.Errorf("show after delete error = %v, want ErrNotFound", err)
	}

	out.Reset()
	if err := (&StoreListCmd{}).Run(a); err != nil {
		t.Fatalf("StoreListCmd.Run() error = %v", err)
	}
	if out.String() != "No corpora stored.\n" {
		t.Errorf("empty list output = %q", out.String())
	}
}

func TestStoreSaveCmd_Label(t *testing.T) {
	dir := t.TempDir()
	input := createTestFile(t, dir, "ovid.cex", sampleCEX)
	a, out := newTestApp(t, Globals{})

	if err := (&StoreSaveCmd{Input: input, Label: "ovid source"}).Run(a); err != nil {
		t.Fatalf("StoreSaveCmd.Run() error = %v", err)
	}
	first := strings.Fields(out.String())[0]

	out.Reset()
	if err := (&StoreSaveCmd{Input: input, Label: "ovid source"}).Run(a); err != nil {
		t.Fatalf("StoreSaveCmd.Run() error = %v", err)
	}
	if second := strings.Fields(out.String())[0]; second != first {
		t.Errorf("resaving the same corpus gave ID %s, want %s", second, first)
	}
}

func TestVersionCmd_Run(t *testing.T) {
	a, out := newTestApp(t, Globals{})
	if err := (&VersionCmd{}).Run(a); err != nil {
		t.Fatalf("VersionCmd.Run() error = %v", err)
	}
	if !strings.HasPrefix(out.String(), "citable version "+version) {
		t.Errorf("output = %q", out.String())
	}
	if !strings.Contains(out.String(), "sqlite") {
		t.Errorf("output %q does not name the driver package", out.String())
	}
}
