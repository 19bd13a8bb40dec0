// Package validation checks user-supplied paths and classifies corpus input
// by its content.
package validation

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"

	"github.com/FocuswithJustin/CitableCorpus/core/errors"
)

// MaxPathLength is the maximum allowed path length.
const MaxPathLength = 4096

// ValidatePath rejects empty or overlong paths and paths containing control
// characters.
func ValidatePath(path string) error {
	if path == "" {
		return errors.NewValidation("path", "must not be empty")
	}
	if len(path) > MaxPathLength {
		return &errors.ValidationError{Field: "path", Message: fmt.Sprintf("longer than %d bytes", MaxPathLength)}
	}
	for _, r := range path {
		if unicode.IsControl(r) {
			return &errors.ValidationError{Field: "path", Value: path, Message: "control character not allowed"}
		}
	}
	return nil
}

// Kind is the detected kind of a corpus input.
type Kind string

const (
	// KindXML is a markup document, read with the TEI reader.
	KindXML Kind = "xml"
	// KindCEX is a CEX document with "#!" block headers.
	KindCEX Kind = "cex"
	// KindDelimited is bare delimited text, one passage per line.
	KindDelimited Kind = "delimited"
)

const utf8BOM = "\xef\xbb\xbf"

// magicBytes are signatures of binary content that cannot be a corpus.
var magicBytes = []struct {
	name  string
	magic []byte
}{
	{"gzip", []byte{0x1f, 0x8b}},
	{"xz", []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}},
	{"zip", []byte{0x50, 0x4b, 0x03, 0x04}},
	{"sqlite", []byte("SQLite format 3")},
}

// Detect classifies data. Compressed or other binary content is rejected
// with an UnsupportedError; decompression is chosen by file suffix before
// this point, so such content means a misnamed file.
func Detect(data []byte) (Kind, error) {
	for _, sig := range magicBytes {
		if bytes.HasPrefix(data, sig.magic) {
			return "", errors.NewUnsupported(sig.name+" content", "compressed input must end in .xz or .gz")
		}
	}
	if !isLikelyText(data) {
		return "", errors.NewUnsupported("binary content", "input is not text")
	}

	text := strings.TrimSpace(strings.TrimPrefix(string(data), utf8BOM))
	switch {
	case strings.HasPrefix(text, "<"):
		return KindXML, nil
	case hasBlockHeader(text):
		return KindCEX, nil
	}
	return KindDelimited, nil
}

func hasBlockHeader(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "#!") {
			return true
		}
	}
	return false
}

// isLikelyText checks the first 512 bytes for null bytes and a low share of
// control characters. Empty input counts as text.
func isLikelyText(buf []byte) bool {
	if len(buf) > 512 {
		buf = buf[:512]
	}
	if bytes.IndexByte(buf, 0) != -1 {
		return false
	}

	control := 0
	for _, b := range buf {
		if b < 0x20 && b != '\t' && b != '\n' && b != '\r' {
			control++
		}
	}
	return control*20 <= len(buf)
}
