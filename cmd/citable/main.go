// Command citable reads TEI XML into citable corpora, derives editions from
// them, and keeps corpora in a local store.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/FocuswithJustin/CitableCorpus/core/cex"
	"github.com/FocuswithJustin/CitableCorpus/core/corpus"
	"github.com/FocuswithJustin/CitableCorpus/core/cts"
	"github.com/FocuswithJustin/CitableCorpus/core/errors"
	"github.com/FocuswithJustin/CitableCorpus/core/sqlite"
	"github.com/FocuswithJustin/CitableCorpus/core/store"
	"github.com/FocuswithJustin/CitableCorpus/core/tei"
	"github.com/FocuswithJustin/CitableCorpus/internal/config"
	"github.com/FocuswithJustin/CitableCorpus/internal/diff"
	"github.com/FocuswithJustin/CitableCorpus/internal/logging"
	"github.com/FocuswithJustin/CitableCorpus/internal/source"
	"github.com/FocuswithJustin/CitableCorpus/internal/validation"
)

const version = "0.1.0"

// Globals are the flags shared by every command. Each overrides the matching
// configuration file setting when given.
type Globals struct {
	Config    string `name:"config" short:"c" help:"Configuration file" type:"path" env:"CITABLE_CONFIG"`
	LogLevel  string `name:"log-level" help:"Log level (debug, info, warn, error)" env:"CITABLE_LOG_LEVEL"`
	LogFormat string `name:"log-format" help:"Log format (text, json)" env:"CITABLE_LOG_FORMAT"`
	Delimiter string `name:"delimiter" short:"d" help:"Delimiter between URN and text" env:"CITABLE_DELIMITER"`
	DB        string `name:"db" help:"Corpus store database" type:"path" env:"CITABLE_DB"`
}

// CLI defines the command-line interface for citable.
var CLI struct {
	Globals

	CEX      CEXCmd      `cmd:"" name:"cex" help:"Read a TEI document into delimited text"`
	Edition  EditionCmd  `cmd:"" help:"Build an edition from TEI XML or delimited text"`
	Diff     DiffCmd     `cmd:"" help:"Compare two editions of the same input"`
	Validate ValidateCmd `cmd:"" help:"Parse an input and report duplicate URNs"`
	Passage  PassageCmd  `cmd:"" help:"Print one passage of an input"`
	Store    StoreGroup  `cmd:"" help:"Corpus store operations"`
	Version  VersionCmd  `cmd:"" help:"Print version information"`
}

// StoreGroup contains corpus store operations.
type StoreGroup struct {
	Save   StoreSaveCmd   `cmd:"" help:"Save a corpus to the store"`
	List   StoreListCmd   `cmd:"" help:"List stored corpora"`
	Show   StoreShowCmd   `cmd:"" help:"Print a stored corpus"`
	Delete StoreDeleteCmd `cmd:"" help:"Delete a stored corpus"`
}

// app is the state every command runs against.
type app struct {
	ctx    context.Context
	cfg    *config.Config
	out    io.Writer
	loader *source.Loader
}

// newApp loads the configuration, applies the global flags over it and
// initializes logging.
func newApp(ctx context.Context, g Globals, stdout, stderr io.Writer) (*app, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, err
	}
	if g.LogLevel != "" {
		cfg.Log.Level = g.LogLevel
	}
	if g.LogFormat != "" {
		cfg.Log.Format = g.LogFormat
	}
	if g.Delimiter != "" {
		cfg.Delimiter = g.Delimiter
	}
	if g.DB != "" {
		cfg.Database = g.DB
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level, _ := logging.ParseLevel(cfg.Log.Level)
	format, _ := logging.ParseFormat(cfg.Log.Format)
	logging.Init(stderr, level, format)

	return &app{ctx: ctx, cfg: cfg, out: stdout, loader: source.Default}, nil
}

// load reads location into a corpus. TEI XML needs a URN base; CEX
// documents are read from their ctsdata blocks and bare delimited text line
// by line.
func (a *app) load(location, base string) (*corpus.Corpus, error) {
	data, err := a.loader.Read(a.ctx, location)
	if err != nil {
		return nil, err
	}
	name := source.Name(location)

	kind, err := validation.Detect(data)
	if err != nil {
		return nil, errors.Wrap(err, name)
	}
	logging.DebugContext(a.ctx, "input detected", "source", name, "kind", string(kind))

	var c *corpus.Corpus
	switch kind {
	case validation.KindXML:
		if base == "" {
			return nil, errors.NewValidation("urn", "TEI input needs a URN base (--urn)")
		}
		c, err = tei.Corpus(data, base, a.cfg.Delimiter)
	case validation.KindCEX:
		var doc *cex.Document
		if doc, err = cex.Parse(string(data)); err == nil {
			logging.DebugContext(a.ctx, "cex blocks", "source", name, "labels", doc.Labels())
			c, err = cex.Corpus(doc, a.cfg.Delimiter)
		}
	default:
		c, err = corpus.Parse(string(data), a.cfg.Delimiter)
	}
	if err != nil {
		return nil, errors.Wrap(err, name)
	}

	logging.CorpusLoaded(a.ctx, name, c.Len())
	if dups := c.Duplicates(); len(dups) > 0 {
		urns := make([]string, len(dups))
		for i, u := range dups {
			urns[i] = u.String()
		}
		logging.DuplicateURNs(a.ctx, name, urns)
	}
	return c, nil
}

// output runs fn against the file at path, or standard output when path is
// empty.
func (a *app) output(path string, fn func(io.Writer) error) error {
	if path == "" {
		return fn(a.out)
	}
	if err := validation.ValidatePath(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.NewIO("create", path, err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.NewIO("close", path, err)
	}
	return nil
}

// emit writes c as delimited text, or as a CEX document when block is set.
func (a *app) emit(c *corpus.Corpus, block bool, path string) error {
	return a.output(path, func(w io.Writer) error {
		if block {
			return cex.Write(w, c, a.cfg.Delimiter)
		}
		text, err := c.CEX(a.cfg.Delimiter)
		if err != nil {
			return err
		}
		if text == "" {
			return nil
		}
		_, err = io.WriteString(w, text+"\n")
		return err
	})
}

// edition resolves name and applies the tidy override.
func (a *app) edition(name string, tidy bool) (tei.Edition, error) {
	e, err := a.cfg.Edition(name)
	if err != nil {
		return tei.Edition{}, err
	}
	e.Tidy = e.Tidy || tidy
	return e, nil
}

func (a *app) build(e tei.Edition, c *corpus.Corpus) (*corpus.Corpus, error) {
	start := time.Now()
	out, err := e.Build(c)
	if err != nil {
		return nil, err
	}
	logging.EditionBuilt(a.ctx, e.Name, out.Len(), time.Since(start))
	return out, nil
}

// openStore opens the configured store. Read-only opens never create the
// database file.
func (a *app) openStore(readOnly bool) (*store.Store, error) {
	if err := validation.ValidatePath(a.cfg.Database); err != nil {
		return nil, err
	}
	open := store.Open
	if readOnly {
		open = store.OpenReadOnly
	}
	s, err := open(a.cfg.Database)
	if err != nil {
		return nil, errors.Wrap(err, a.cfg.Database)
	}
	logging.DebugContext(a.ctx, "store opened", "path", s.Path(), "driver", sqlite.DriverType(), "read_only", readOnly)
	return s, nil
}

// CEXCmd reads a TEI document into delimited text.
type CEXCmd struct {
	Doc   string `arg:"" help:"TEI document (path, URL or - for stdin)"`
	URN   string `name:"urn" short:"u" required:"" help:"URN base, ending with ':'"`
	Block bool   `help:"Write a CEX document with a ctsdata block"`
	Out   string `short:"o" help:"Output file (default: stdout)" type:"path"`
}

func (c *CEXCmd) Run(a *app) error {
	if c.Block {
		corp, err := a.load(c.Doc, c.URN)
		if err != nil {
			return err
		}
		return a.emit(corp, true, c.Out)
	}

	data, err := a.loader.Read(a.ctx, c.Doc)
	if err != nil {
		return err
	}
	text, err := tei.CEX(data, c.URN, a.cfg.Delimiter)
	if err != nil {
		return errors.Wrap(err, source.Name(c.Doc))
	}
	return a.output(c.Out, func(w io.Writer) error {
		if text == "" {
			return nil
		}
		_, err := io.WriteString(w, text+"\n")
		return err
	})
}

// EditionCmd builds one edition of an input corpus.
type EditionCmd struct {
	Input   string `arg:"" help:"TEI XML or delimited text (path, URL or - for stdin)"`
	Edition string `short:"e" required:"" help:"Edition name (diplomatic, normalized or a configured profile)"`
	URN     string `name:"urn" short:"u" help:"URN base for TEI input"`
	Tidy    bool   `help:"Collapse whitespace in the edition text"`
	Block   bool   `help:"Write a CEX document with a ctsdata block"`
	Out     string `short:"o" help:"Output file (default: stdout)" type:"path"`
}

func (c *EditionCmd) Run(a *app) error {
	e, err := a.edition(c.Edition, c.Tidy)
	if err != nil {
		return err
	}
	corp, err := a.load(c.Input, c.URN)
	if err != nil {
		return err
	}
	out, err := a.build(e, corp)
	if err != nil {
		return err
	}
	return a.emit(out, c.Block, c.Out)
}

// DiffCmd compares two editions of one input passage by passage.
type DiffCmd struct {
	Input    string `arg:"" help:"TEI XML or delimited text (path, URL or - for stdin)"`
	Left     string `default:"diplomatic" help:"Left edition"`
	Right    string `default:"normalized" help:"Right edition"`
	URN      string `name:"urn" short:"u" help:"URN base for TEI input"`
	ExitCode bool   `name:"exit-code" help:"Fail when the editions differ"`
}

func (c *DiffCmd) Run(a *app) error {
	left, err := a.edition(c.Left, false)
	if err != nil {
		return err
	}
	right, err := a.edition(c.Right, false)
	if err != nil {
		return err
	}
	corp, err := a.load(c.Input, c.URN)
	if err != nil {
		return err
	}

	lc, err := a.build(left, corp)
	if err != nil {
		return err
	}
	rc, err := a.build(right, corp)
	if err != nil {
		return err
	}

	report := diff.Compare(lc, rc)
	if err := report.Write(a.out); err != nil {
		return err
	}
	if c.ExitCode && !report.Equal() {
		return fmt.Errorf("editions %s and %s differ", left.Name, right.Name)
	}
	return nil
}

// ValidateCmd parses an input and reports on it.
type ValidateCmd struct {
	Input  string `arg:"" help:"TEI XML or delimited text (path, URL or - for stdin)"`
	URN    string `name:"urn" short:"u" help:"URN base for TEI input"`
	Strict bool   `help:"Fail when URNs repeat"`
}

func (c *ValidateCmd) Run(a *app) error {
	corp, err := a.load(c.Input, c.URN)
	if err != nil {
		return err
	}
	dups := corp.Duplicates()

	fmt.Fprintf(a.out, "%s: %s passages, %d duplicate URNs\n",
		source.Name(c.Input), humanize.Comma(int64(corp.Len())), len(dups))
	for _, u := range dups {
		fmt.Fprintf(a.out, "  duplicate: %s\n", u)
	}
	fmt.Fprintf(a.out, "digest: %s\n", corp.Digest())

	if c.Strict {
		return corp.Validate()
	}
	return nil
}

// PassageCmd prints one passage of an input corpus, optionally from one of
// its editions. A bare reference is resolved against the work of the first
// passage.
type PassageCmd struct {
	Input   string `arg:"" help:"TEI XML or delimited text (path, URL or - for stdin)"`
	Ref     string `arg:"" help:"Passage URN, or a passage reference such as 1.2"`
	URN     string `name:"urn" short:"u" help:"URN base for TEI input"`
	Edition string `short:"e" help:"Print the passage from this edition"`
}

func (c *PassageCmd) Run(a *app) error {
	corp, err := a.load(c.Input, c.URN)
	if err != nil {
		return err
	}
	if c.Edition != "" {
		e, err := a.edition(c.Edition, false)
		if err != nil {
			return err
		}
		if corp, err = a.build(e, corp); err != nil {
			return err
		}
	}
	if corp.Len() == 0 {
		return errors.NewNotFound("passage", c.Ref)
	}

	var urn cts.URN
	if strings.HasPrefix(c.Ref, "urn:") {
		urn, err = cts.Parse(c.Ref)
	} else {
		urn, err = corp.Passages()[0].URN().WithPassage(c.Ref)
	}
	if err != nil {
		return err
	}

	p, ok := corp.Lookup(urn)
	if !ok {
		return errors.NewNotFound("passage", urn.String())
	}
	text, err := corpus.New(p).CEX(a.cfg.Delimiter)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, text)
	return err
}

// StoreSaveCmd saves an input corpus, or one of its editions, to the store.
type StoreSaveCmd struct {
	Input   string `arg:"" help:"TEI XML or delimited text (path, URL or - for stdin)"`
	Label   string `short:"l" help:"Label for the stored corpus (default: input name)"`
	URN     string `name:"urn" short:"u" help:"URN base for TEI input"`
	Edition string `short:"e" help:"Store this edition instead of the source corpus"`
}

func (c *StoreSaveCmd) Run(a *app) error {
	corp, err := a.load(c.Input, c.URN)
	if err != nil {
		return err
	}
	label := c.Label
	if label == "" {
		label = source.Name(c.Input)
	}
	if c.Edition != "" {
		e, err := a.edition(c.Edition, false)
		if err != nil {
			return err
		}
		if corp, err = a.build(e, corp); err != nil {
			return err
		}
		if c.Label == "" {
			label += " (" + e.Name + ")"
		}
	}

	s, err := a.openStore(false)
	if err != nil {
		return err
	}
	defer s.Close()

	rec, err := s.Save(a.ctx, label, corp)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s  %s  %s passages\n", rec.ID, rec.Label, humanize.Comma(int64(rec.Passages)))
	return nil
}

// StoreListCmd lists stored corpora.
type StoreListCmd struct {
	JSON bool `name:"json" help:"Print records as JSON"`
}

func (c *StoreListCmd) Run(a *app) error {
	var records []store.Record
	s, err := a.openStore(true)
	switch {
	case errors.Is(err, errors.ErrNotFound):
		records = []store.Record{}
	case err != nil:
		return err
	default:
		defer s.Close()
		if records, err = s.List(a.ctx); err != nil {
			return err
		}
	}

	if c.JSON {
		data, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, string(data))
		return nil
	}

	if len(records) == 0 {
		fmt.Fprintln(a.out, "No corpora stored.")
		return nil
	}
	fmt.Fprintf(a.out, "%-36s  %-24s  %10s  %s\n", "ID", "LABEL", "PASSAGES", "CREATED")
	for _, rec := range records {
		fmt.Fprintf(a.out, "%-36s  %-24s  %10s  %s\n",
			rec.ID, rec.Label, humanize.Comma(int64(rec.Passages)), humanize.Time(rec.CreatedAt))
	}
	return nil
}

// StoreShowCmd prints a stored corpus.
type StoreShowCmd struct {
	ID    string `arg:"" help:"Corpus ID"`
	Block bool   `help:"Write a CEX document with a ctsdata block"`
	Out   string `short:"o" help:"Output file (default: stdout)" type:"path"`
}

func (c *StoreShowCmd) Run(a *app) error {
	s, err := a.openStore(true)
	if err != nil {
		return err
	}
	defer s.Close()

	corp, err := s.Load(a.ctx, c.ID)
	if err != nil {
		return err
	}
	return a.emit(corp, c.Block, c.Out)
}

// StoreDeleteCmd deletes a stored corpus.
type StoreDeleteCmd struct {
	ID string `arg:"" help:"Corpus ID"`
}

func (c *StoreDeleteCmd) Run(a *app) error {
	s, err := a.openStore(false)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Delete(a.ctx, c.ID); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "deleted %s\n", c.ID)
	return nil
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run(a *app) error {
	info := sqlite.GetInfo()
	fmt.Fprintf(a.out, "citable version %s (sqlite driver: %s, %s)\n", version, info.DriverType, info.Package)
	return nil
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("citable"),
		kong.Description("Citable corpora from TEI XML"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	ctx := logging.WithRunID(context.Background(), strings.SplitN(uuid.New().String(), "-", 2)[0])
	a, err := newApp(ctx, CLI.Globals, os.Stdout, os.Stderr)
	kctx.FatalIfErrorf(err)

	err = kctx.Run(a)
	kctx.FatalIfErrorf(err)
}
