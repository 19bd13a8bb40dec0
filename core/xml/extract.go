package xml

import (
	"regexp"
	"strings"

	"github.com/antchfx/xmlquery"
)

// ExtractText returns the concatenated character data below n, in document
// order, skipping every element whose local name is in omit together with
// everything inside it. n itself is never tested against omit. Text is
// appended verbatim: no trimming, no separators.
func ExtractText(n *Node, omit ...string) string {
	if n == nil || n.node == nil {
		return ""
	}
	skip := make(map[string]bool, len(omit))
	for _, name := range omit {
		skip[name] = true
	}
	var sb strings.Builder
	extractText(&sb, n.node, skip)
	return sb.String()
}

func extractText(sb *strings.Builder, n *xmlquery.Node, skip map[string]bool) {
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		switch child.Type {
		case xmlquery.TextNode, xmlquery.CharDataNode:
			sb.WriteString(child.Data)
		case xmlquery.ElementNode:
			if skip[child.Data] {
				continue
			}
			extractText(sb, child, skip)
		}
	}
}

var (
	lineBreaks = strings.NewReplacer("\r", " ", "\n", " ")
	spaceRun   = regexp.MustCompile(`\s+`)
)

// NormalizeSpace replaces line breaks with spaces, collapses whitespace runs
// to a single space, and trims both ends. It is idempotent.
func NormalizeSpace(s string) string {
	return strings.TrimSpace(spaceRun.ReplaceAllString(lineBreaks.Replace(s), " "))
}
