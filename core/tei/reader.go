// Package tei reads TEI documents into citable corpora and derives plain-text
// editions from them.
//
// The reader understands one document shape: a root element containing
// text/body/div elements, each div holding ab elements. Every ab becomes one
// passage addressed by the div and ab n attributes. Element names are matched
// by local name, so the TEI namespace may be declared with or without a prefix.
package tei

import (
	"strings"

	"github.com/antchfx/xpath"

	"github.com/FocuswithJustin/CitableCorpus/core/corpus"
	"github.com/FocuswithJustin/CitableCorpus/core/xml"
)

// RefSeparator joins the division and unit references of a passage.
const RefSeparator = "."

var (
	divisionPath = xpath.MustCompile("/*/*[local-name()='text']/*[local-name()='body']/*[local-name()='div']")
	unitPath     = xpath.MustCompile("*[local-name()='ab']")
)

// Unit is one citable unit of a document: its passage reference and its
// serialized, whitespace-normalized markup.
type Unit struct {
	Ref    string
	Markup string
}

// Units returns the document's units in division order, then unit order.
// A missing n attribute contributes an empty reference component.
func Units(doc *xml.Document) []Unit {
	var units []Unit
	for _, div := range doc.Select(divisionPath) {
		divRef, _ := div.Attr("n")
		for _, ab := range div.Select(unitPath) {
			abRef, _ := ab.Attr("n")
			units = append(units, Unit{
				Ref:    divRef + RefSeparator + abRef,
				Markup: xml.NormalizeSpace(ab.OuterXML()),
			})
		}
	}
	return units
}

// CEX parses src and returns its units as delimited text, one
// "<base><ref><delimiter><markup>" line per unit joined by newlines. base is
// prepended verbatim, so it normally ends with the ":" that opens the passage
// component of a URN. An empty delimiter means corpus.DefaultDelimiter.
func CEX(src []byte, base, delimiter string) (string, error) {
	doc, err := xml.Parse(src)
	if err != nil {
		return "", err
	}
	if delimiter == "" {
		delimiter = corpus.DefaultDelimiter
	}

	units := Units(doc)
	lines := make([]string, len(units))
	for i, u := range units {
		lines[i] = base + u.Ref + delimiter + u.Markup
	}
	return strings.Join(lines, "\n"), nil
}

// Corpus parses src into a corpus of its units. It is CEX followed by
// corpus.Parse; a malformed address aborts the whole read.
func Corpus(src []byte, base, delimiter string) (*corpus.Corpus, error) {
	text, err := CEX(src, base, delimiter)
	if err != nil {
		return nil, err
	}
	return corpus.Parse(text, delimiter)
}
