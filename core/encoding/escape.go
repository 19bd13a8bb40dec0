// Package encoding provides the XML escaping used when serializing markup
// fragments.
package encoding

import "strings"

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		"\"", "&quot;",
		"\n", "&#10;",
		"\r", "&#13;",
		"\t", "&#9;",
	)
)

// EscapeXMLText escapes the basic XML entities for text content.
// Quotes and whitespace are left as they are.
func EscapeXMLText(s string) string {
	return textEscaper.Replace(s)
}

// EscapeXMLAttr escapes text for use in a double-quoted XML attribute.
// Whitespace other than spaces is written as character references so that
// attribute-value normalization does not alter it on re-parse.
func EscapeXMLAttr(s string) string {
	return attrEscaper.Replace(s)
}
