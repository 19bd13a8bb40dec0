package tei

import (
	"strings"

	"github.com/FocuswithJustin/CitableCorpus/core/corpus"
	"github.com/FocuswithJustin/CitableCorpus/core/cts"
	"github.com/FocuswithJustin/CitableCorpus/core/errors"
	"github.com/FocuswithJustin/CitableCorpus/core/xml"
)

// DefaultVersion is given to passages whose URN carries no version before the
// edition's exemplar is applied.
const DefaultVersion = "v1"

// Edition is a policy for deriving plain text from passage markup. Name is
// the exemplar label of the derived URNs; Omit lists the local names of the
// elements dropped, with their content, during extraction.
type Edition struct {
	Name string
	Omit []string
	// Tidy normalizes whitespace in the extracted text.
	Tidy bool
}

// Diplomatic keeps abbreviated surface forms and drops their expansions.
func Diplomatic() Edition {
	return Edition{Name: "diplomatic", Omit: []string{"expan"}}
}

// Normalized keeps expansions and drops the abbreviated forms.
func Normalized() Edition {
	return Edition{Name: "normalized", Omit: []string{"abbr"}}
}

// Builtin returns the built-in edition with the given name.
func Builtin(name string) (Edition, bool) {
	switch name {
	case "diplomatic":
		return Diplomatic(), true
	case "normalized":
		return Normalized(), true
	}
	return Edition{}, false
}

// Validate checks that the edition's name can serve as a URN exemplar.
func (e Edition) Validate() error {
	if !cts.ValidSegment(e.Name) {
		return &errors.ValidationError{
			Field:   "edition",
			Value:   e.Name,
			Message: "name must be a single URN segment",
		}
	}
	return nil
}

// fragmentElement wraps passage content so that plain text and runs of
// sibling elements parse as one document.
const fragmentElement = "fragment"

// Text parses markup as a fragment and extracts its text. The fragment may
// be a single element, several sibling elements, or plain text; "&" and "<"
// in plain text must still be escaped.
func (e Edition) Text(markup string) (string, error) {
	doc, err := xml.ParseString("<" + fragmentElement + ">" + stripDeclaration(markup) + "</" + fragmentElement + ">")
	if err != nil {
		return "", err
	}
	text := xml.ExtractText(doc.Root(), e.Omit...)
	if e.Tidy {
		text = xml.NormalizeSpace(text)
	}
	return text, nil
}

// stripDeclaration drops a leading XML declaration, which may not appear
// inside the fragment wrapper.
func stripDeclaration(markup string) string {
	trimmed := strings.TrimLeft(markup, " \t\r\n")
	if !strings.HasPrefix(trimmed, "<?xml") {
		return markup
	}
	if _, rest, ok := strings.Cut(trimmed, "?>"); ok {
		return rest
	}
	return markup
}

// URN returns the address of u in this edition: the version defaults to
// DefaultVersion and the exemplar becomes the edition name. Work and passage
// are unchanged. A URN without a work, such as a textgroup-only base, has no
// place for a version and is rejected.
func (e Edition) URN(u cts.URN) (cts.URN, error) {
	var err error
	if u.Version() == "" {
		if u, err = u.WithVersion(DefaultVersion); err != nil {
			return cts.URN{}, err
		}
	}
	return u.WithExemplar(e.Name)
}

// Passage derives the edition's passage from p.
func (e Edition) Passage(p corpus.Passage) (corpus.Passage, error) {
	text, err := e.Text(p.Text())
	if err != nil {
		return corpus.Passage{}, err
	}
	urn, err := e.URN(p.URN())
	if err != nil {
		return corpus.Passage{}, err
	}
	return corpus.NewPassage(urn, text), nil
}

// Build derives the edition of every passage in c. The result has the same
// length and order as c and shares no storage with it. The first failing
// passage aborts the build.
func (e Edition) Build(c *corpus.Corpus) (*corpus.Corpus, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	out, err := c.Map(e.Passage)
	if err != nil {
		return nil, errors.Wrapf(err, "%s edition", e.Name)
	}
	return out, nil
}
