// Package cex reads and writes CEX documents: plain text divided into blocks,
// each introduced by a "#!label" line. Blank lines and lines starting with
// "//" are ignored. Passage data lives in ctsdata blocks, one delimited
// "<urn><delimiter><text>" line per passage.
package cex

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/FocuswithJustin/CitableCorpus/core/corpus"
	"github.com/FocuswithJustin/CitableCorpus/core/errors"
)

// Well-known block labels.
const (
	LabelVersion = "cexversion"
	LabelCTSData = "ctsdata"
)

// Version is written in the cexversion block.
const Version = "3.0"

const (
	blockPrefix   = "#!"
	commentPrefix = "//"
)

// Block is one labeled block with its content lines, comments and blank
// lines removed. Numbers holds the 1-based document line of each entry in
// Lines.
type Block struct {
	Label   string
	Lines   []string
	Numbers []int
}

// Document is a parsed CEX document. Blocks keep their input order; a label
// may occur more than once.
type Document struct {
	Blocks []Block
}

// Parse parses CEX text.
func Parse(s string) (*Document, error) {
	return Read(strings.NewReader(s))
}

// Read parses a CEX document from r. Content before the first block header
// is ignored.
func Read(r io.Reader) (*Document, error) {
	doc := &Document{}
	var current *Block

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	n := 0
	for scanner.Scan() {
		n++
		line := strings.TrimRight(scanner.Text(), "\r")
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, blockPrefix) {
			label := strings.TrimSpace(strings.TrimPrefix(trimmed, blockPrefix))
			if label == "" {
				return nil, &errors.ParseError{Format: "CEX", Line: n, Message: "block header without a label"}
			}
			doc.Blocks = append(doc.Blocks, Block{Label: label})
			current = &doc.Blocks[len(doc.Blocks)-1]
			continue
		}

		if trimmed == "" || strings.HasPrefix(trimmed, commentPrefix) || current == nil {
			continue
		}
		current.Lines = append(current.Lines, line)
		current.Numbers = append(current.Numbers, n)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.NewIO("read", "CEX document", err)
	}
	return doc, nil
}

// Labels returns the distinct block labels in order of first appearance.
func (d *Document) Labels() []string {
	seen := map[string]bool{}
	var labels []string
	for _, b := range d.Blocks {
		if !seen[b.Label] {
			seen[b.Label] = true
			labels = append(labels, b.Label)
		}
	}
	return labels
}

// Lines returns the content lines of every block with the given label,
// concatenated in document order.
func (d *Document) Lines(label string) []string {
	var lines []string
	for _, b := range d.Blocks {
		if b.Label == label {
			lines = append(lines, b.Lines...)
		}
	}
	return lines
}

// Has reports whether the document contains a block with the given label.
func (d *Document) Has(label string) bool {
	for _, b := range d.Blocks {
		if b.Label == label {
			return true
		}
	}
	return false
}

// Corpus builds a corpus from the document's ctsdata blocks. Errors name
// the document line of the offending entry.
func Corpus(d *Document, delimiter string) (*corpus.Corpus, error) {
	if !d.Has(LabelCTSData) {
		return nil, errors.NewNotFound("CEX block", LabelCTSData)
	}
	var passages []corpus.Passage
	for _, b := range d.Blocks {
		if b.Label != LabelCTSData {
			continue
		}
		for i, line := range b.Lines {
			p, err := corpus.ParseLine(strings.TrimSpace(line), delimiter)
			if err != nil {
				return nil, errors.Wrap(errors.Wrapf(err, "line %d", lineNumber(b, i)), LabelCTSData)
			}
			passages = append(passages, p)
		}
	}
	return corpus.New(passages...), nil
}

// lineNumber returns the document line of b.Lines[i], or i+1 for blocks
// built without line numbers.
func lineNumber(b Block, i int) int {
	if i < len(b.Numbers) {
		return b.Numbers[i]
	}
	return i + 1
}

// Write writes c as a CEX document with a cexversion block and a ctsdata
// block.
func Write(w io.Writer, c *corpus.Corpus, delimiter string) error {
	data, err := c.CEX(delimiter)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s%s\n%s\n\n", blockPrefix, LabelVersion, Version)
	fmt.Fprintf(bw, "%s%s\n", blockPrefix, LabelCTSData)
	if data != "" {
		bw.WriteString(data)
		bw.WriteString("\n")
	}
	if err := bw.Flush(); err != nil {
		return errors.NewIO("write", "CEX document", err)
	}
	return nil
}
