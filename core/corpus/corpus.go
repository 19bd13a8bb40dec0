// Package corpus provides citable passages and ordered corpora of passages,
// with parsing and serialization of the line-oriented delimited format
//
//	<urn><delimiter><text>
//
// Passages and corpora are values: nothing in this package mutates a corpus
// once it has been constructed.
package corpus

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/FocuswithJustin/CitableCorpus/core/cts"
	"github.com/FocuswithJustin/CitableCorpus/core/errors"
)

// DefaultDelimiter separates the URN from the text in a delimited line.
const DefaultDelimiter = "|"

// Passage is one addressed unit of text.
type Passage struct {
	urn  cts.URN
	text string
}

// NewPassage creates a passage.
func NewPassage(urn cts.URN, text string) Passage {
	return Passage{urn: urn, text: text}
}

// URN returns the passage's citation address.
func (p Passage) URN() cts.URN { return p.urn }

// Text returns the passage content: serialized markup or plain text.
func (p Passage) Text() string { return p.text }

// Corpus is an ordered sequence of passages.
type Corpus struct {
	passages []Passage
}

// New creates a corpus from passages in the given order.
func New(passages ...Passage) *Corpus {
	return &Corpus{passages: append([]Passage(nil), passages...)}
}

// Len returns the number of passages.
func (c *Corpus) Len() int {
	if c == nil {
		return 0
	}
	return len(c.passages)
}

// Passages returns a copy of the passages in corpus order.
func (c *Corpus) Passages() []Passage {
	if c == nil {
		return nil
	}
	return append([]Passage(nil), c.passages...)
}

// Lookup returns the first passage whose URN equals urn.
func (c *Corpus) Lookup(urn cts.URN) (Passage, bool) {
	for _, p := range c.Passages() {
		if p.urn == urn {
			return p, true
		}
	}
	return Passage{}, false
}

// Duplicates returns every URN that occurs more than once, in order of
// first repetition.
func (c *Corpus) Duplicates() []cts.URN {
	seen := make(map[cts.URN]int, c.Len())
	var dups []cts.URN
	for _, p := range c.Passages() {
		seen[p.urn]++
		if seen[p.urn] == 2 {
			dups = append(dups, p.urn)
		}
	}
	return dups
}

// Validate reports duplicate URNs. Construction does not call it: uniqueness
// is advisory and left to the caller.
func (c *Corpus) Validate() error {
	dups := c.Duplicates()
	if len(dups) == 0 {
		return nil
	}
	names := make([]string, len(dups))
	for i, u := range dups {
		names[i] = u.String()
	}
	return &errors.ValidationError{
		Field:   "corpus",
		Message: fmt.Sprintf("%d duplicate URN(s): %s", len(dups), strings.Join(names, ", ")),
	}
}

// Parse parses a delimited-text block into a corpus. Blank lines are
// dropped, each line is split on the first occurrence of delimiter, and both
// halves are trimmed. An empty delimiter means DefaultDelimiter. The first
// malformed line aborts the parse.
func Parse(s, delimiter string) (*Corpus, error) {
	return ParseLines(strings.Split(s, "\n"), delimiter)
}

// ParseLines is Parse over pre-split lines.
func ParseLines(lines []string, delimiter string) (*Corpus, error) {
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}

	c := &Corpus{}
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		p, err := ParseLine(line, delimiter)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", i+1)
		}
		c.passages = append(c.passages, p)
	}
	return c, nil
}

// ParseLine parses one non-blank delimited line into a passage.
func ParseLine(line, delimiter string) (Passage, error) {
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}
	ref, text, ok := strings.Cut(line, delimiter)
	if !ok {
		return Passage{}, &errors.ParseError{
			Format:  "CEX",
			Message: fmt.Sprintf("no %q delimiter in %q", delimiter, line),
		}
	}
	urn, err := cts.Parse(strings.TrimSpace(ref))
	if err != nil {
		return Passage{}, err
	}
	return Passage{urn: urn, text: strings.TrimSpace(text)}, nil
}

// CEX serializes the corpus as delimited text, one passage per line, without
// a trailing newline. Text may contain the delimiter; a URN may not. Text
// with a line break cannot be written, since it would end the line early.
// Parsing trims both fields, so leading and trailing whitespace in text does
// not survive a round trip.
func (c *Corpus) CEX(delimiter string) (string, error) {
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}
	lines := make([]string, 0, c.Len())
	for _, p := range c.Passages() {
		ref := p.urn.String()
		if strings.Contains(ref, delimiter) {
			return "", &errors.ValidationError{
				Field:   "urn",
				Value:   ref,
				Message: fmt.Sprintf("contains the delimiter %q", delimiter),
			}
		}
		if strings.ContainsAny(p.text, "\r\n") {
			return "", &errors.ValidationError{
				Field:   "text",
				Value:   ref,
				Message: "contains a line break",
			}
		}
		lines = append(lines, ref+delimiter+p.text)
	}
	return strings.Join(lines, "\n"), nil
}

// Digest returns the hex BLAKE3 hash of the corpus's URN/text pairs in order.
// Two corpora with equal passages have equal digests.
func (c *Corpus) Digest() string {
	h := blake3.New()
	for _, p := range c.Passages() {
		h.WriteString(p.urn.String())
		h.WriteString("\x00")
		h.WriteString(p.text)
		h.WriteString("\n")
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Map returns a new corpus built by applying fn to every passage in order.
// It stops at the first error.
func (c *Corpus) Map(fn func(Passage) (Passage, error)) (*Corpus, error) {
	out := &Corpus{passages: make([]Passage, 0, c.Len())}
	for i, p := range c.Passages() {
		np, err := fn(p)
		if err != nil {
			return nil, errors.Wrapf(err, "passage %d (%s)", i+1, p.urn)
		}
		out.passages = append(out.passages, np)
	}
	return out, nil
}
