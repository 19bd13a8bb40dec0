// Package cts implements CTS URNs, the hierarchical citation addresses used to
// identify passages of a text.
//
// A URN has the shape
//
//	urn:cts:<namespace>:<textgroup>[.<work>[.<version>[.<exemplar>]]]:[<passage>]
//
// where the passage is a dot-separated reference or a range of two references
// joined by "-". URN values are immutable: the With* methods return modified
// copies.
package cts

import (
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/FocuswithJustin/CitableCorpus/core/errors"
)

// URN is a parsed CTS URN. The zero value is not a valid URN.
type URN struct {
	namespace string
	textGroup string
	work      string
	version   string
	exemplar  string
	begin     string
	end       string
}

// urnGrammar is the participle grammar for CTS URNs.
type urnGrammar struct {
	Scheme    string        `parser:"@Segment \":\""`
	Protocol  string        `parser:"@Segment \":\""`
	Namespace string        `parser:"@Segment \":\""`
	Work      []string      `parser:"@Segment ( \".\" @Segment )* \":\""`
	Passage   *passageRange `parser:"@@?"`
}

type passageRange struct {
	Begin []string `parser:"@Segment ( \".\" @Segment )*"`
	End   []string `parser:"( \"-\" @Segment ( \".\" @Segment )* )?"`
}

// urnLexer splits a URN into segments and the three structural separators.
// Whitespace is not a token, so any embedded space is a syntax error.
var urnLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Segment", Pattern: `[^:.\-\s]+`},
	{Name: "Punct", Pattern: `[:.\-]`},
})

var urnParser = participle.MustBuild[urnGrammar](
	participle.Lexer(urnLexer),
)

// Parse parses a CTS URN string. Surrounding whitespace is ignored.
func Parse(s string) (URN, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return URN{}, invalid(s, "empty URN", nil)
	}

	parsed, err := urnParser.ParseString("", s)
	if err != nil {
		return URN{}, invalid(s, "malformed URN", err)
	}
	if parsed.Scheme != "urn" {
		return URN{}, invalid(s, "URN must begin with \"urn:\"", nil)
	}
	if parsed.Protocol != "cts" {
		return URN{}, invalid(s, "not a CTS URN", nil)
	}
	if len(parsed.Work) > 4 {
		return URN{}, invalid(s, "work component has more than four parts", nil)
	}

	u := URN{namespace: parsed.Namespace}
	parts := []*string{&u.textGroup, &u.work, &u.version, &u.exemplar}
	for i, p := range parsed.Work {
		*parts[i] = p
	}
	if parsed.Passage != nil {
		u.begin = strings.Join(parsed.Passage.Begin, ".")
		u.end = strings.Join(parsed.Passage.End, ".")
	}
	return u, nil
}

// MustParse is like Parse but panics on error. Intended for constants and tests.
func MustParse(s string) URN {
	u, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return u
}

func invalid(value, message string, err error) *errors.ValidationError {
	return &errors.ValidationError{Field: "urn", Value: value, Message: message, Err: err}
}

// String returns the canonical string form.
func (u URN) String() string {
	var sb strings.Builder
	sb.WriteString("urn:cts:")
	sb.WriteString(u.namespace)
	sb.WriteString(":")
	sb.WriteString(u.WorkComponent())
	sb.WriteString(":")
	sb.WriteString(u.Passage())
	return sb.String()
}

// IsZero reports whether u is the zero URN.
func (u URN) IsZero() bool {
	return u == URN{}
}

// Namespace returns the CTS namespace (e.g. "greekLit").
func (u URN) Namespace() string { return u.namespace }

// TextGroup returns the text group identifier.
func (u URN) TextGroup() string { return u.textGroup }

// Work returns the work identifier, or "" for a text-group-level URN.
func (u URN) Work() string { return u.work }

// Version returns the version identifier, or "".
func (u URN) Version() string { return u.version }

// Exemplar returns the exemplar identifier, or "".
func (u URN) Exemplar() string { return u.exemplar }

// WorkComponent returns the dotted work hierarchy, e.g. "tlg0012.tlg001.msA".
func (u URN) WorkComponent() string {
	parts := []string{u.textGroup}
	for _, p := range []string{u.work, u.version, u.exemplar} {
		if p == "" {
			break
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, ".")
}

// Passage returns the passage component, e.g. "1.1" or "1.1-1.5".
func (u URN) Passage() string {
	if u.end == "" {
		return u.begin
	}
	return u.begin + "-" + u.end
}

// IsRange reports whether the passage component is a range.
func (u URN) IsRange() bool { return u.end != "" }

// RangeBegin returns the first reference of a range, or the whole passage.
func (u URN) RangeBegin() string { return u.begin }

// RangeEnd returns the last reference of a range, or "".
func (u URN) RangeEnd() string { return u.end }

// WithVersion returns a copy of u with its version set to v. An empty v drops
// both the version and the exemplar.
func (u URN) WithVersion(v string) (URN, error) {
	if v == "" {
		u.version, u.exemplar = "", ""
		return u, nil
	}
	if u.work == "" {
		return URN{}, invalid(u.String(), "cannot set version without a work", nil)
	}
	if err := checkSegment(u, "version", v); err != nil {
		return URN{}, err
	}
	u.version = v
	return u, nil
}

// WithExemplar returns a copy of u with its exemplar set to e. An exemplar
// requires a version.
func (u URN) WithExemplar(e string) (URN, error) {
	if e == "" {
		u.exemplar = ""
		return u, nil
	}
	if u.version == "" {
		return URN{}, invalid(u.String(), "cannot set exemplar without a version", nil)
	}
	if err := checkSegment(u, "exemplar", e); err != nil {
		return URN{}, err
	}
	u.exemplar = e
	return u, nil
}

// WithPassage returns a copy of u addressing passage p ("" for the whole work).
func (u URN) WithPassage(p string) (URN, error) {
	if p == "" {
		u.begin, u.end = "", ""
		return u, nil
	}
	parsed, err := Parse("urn:cts:" + u.namespace + ":" + u.WorkComponent() + ":" + p)
	if err != nil {
		return URN{}, err
	}
	return parsed, nil
}

func checkSegment(u URN, component, value string) error {
	if strings.ContainsAny(value, ":.- \t\r\n") {
		return &errors.ValidationError{
			Field:   component,
			Value:   value,
			Message: "must be a single URN segment (in " + u.String() + ")",
		}
	}
	return nil
}

// ValidSegment reports whether s can stand as a single URN component, such as
// a version or exemplar label.
func ValidSegment(s string) bool {
	return s != "" && !strings.ContainsAny(s, ":.- \t\r\n")
}
