package xml

import (
	"sort"
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/FocuswithJustin/CitableCorpus/core/encoding"
)

// writeFragment serializes n as a standalone fragment. Unlike
// xmlquery's OutputXML, text is written verbatim (no trimming), and namespace
// bindings that n or its descendants inherit from outside the fragment are
// declared on n so the fragment parses on its own.
func writeFragment(w *strings.Builder, n *xmlquery.Node) {
	if n.Type != xmlquery.ElementNode {
		writeNode(w, n, nil)
		return
	}
	writeNode(w, n, inheritedNamespaces(n))
}

// writeNode recursively serializes an XML node. decls are extra namespace
// declarations emitted on this element only.
func writeNode(w *strings.Builder, n *xmlquery.Node, decls []xmlquery.Attr) {
	switch n.Type {
	case xmlquery.DocumentNode:
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			writeNode(w, child, nil)
		}

	case xmlquery.ElementNode:
		name := qualifiedName(n)
		w.WriteString("<")
		w.WriteString(name)
		for _, attr := range decls {
			writeAttr(w, attr)
		}
		for _, attr := range n.Attr {
			writeAttr(w, attr)
		}
		if n.FirstChild == nil {
			w.WriteString("/>")
			return
		}
		w.WriteString(">")
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			writeNode(w, child, nil)
		}
		w.WriteString("</")
		w.WriteString(name)
		w.WriteString(">")

	case xmlquery.TextNode:
		w.WriteString(encoding.EscapeXMLText(n.Data))

	case xmlquery.CharDataNode:
		w.WriteString("<![CDATA[")
		w.WriteString(n.Data)
		w.WriteString("]]>")

	case xmlquery.CommentNode:
		w.WriteString("<!--")
		w.WriteString(n.Data)
		w.WriteString("-->")

	case xmlquery.ProcessingInstruction:
		if n.ProcInst == nil {
			return
		}
		w.WriteString("<?")
		w.WriteString(n.ProcInst.Target)
		if n.ProcInst.Inst != "" {
			w.WriteString(" ")
			w.WriteString(n.ProcInst.Inst)
		}
		w.WriteString("?>")
	}
}

func writeAttr(w *strings.Builder, attr xmlquery.Attr) {
	w.WriteString(" ")
	w.WriteString(attrName(attr))
	w.WriteString("=\"")
	w.WriteString(encoding.EscapeXMLAttr(attr.Value))
	w.WriteString("\"")
}

func qualifiedName(n *xmlquery.Node) string {
	if n.Prefix == "" {
		return n.Data
	}
	return n.Prefix + ":" + n.Data
}

// attrName returns the attribute's name as written in the source. xmlquery
// rewrites a resolved namespace URI to its prefix; the xml prefix is
// predeclared.
func attrName(attr xmlquery.Attr) string {
	if attr.Name.Space == "" {
		return attr.Name.Local
	}
	return attr.Name.Space + ":" + attr.Name.Local
}

// isNamespaceDecl reports whether attr is xmlns or xmlns:prefix, and returns
// the prefix it declares ("" for the default namespace).
func isNamespaceDecl(attr xmlquery.Attr) (string, bool) {
	if attr.Name.Space == "" && attr.Name.Local == "xmlns" {
		return "", true
	}
	if attr.Name.Space == "xmlns" {
		return attr.Name.Local, true
	}
	return "", false
}

// inheritedNamespaces returns declarations for every prefix used in the
// subtree rooted at n that is not declared within that subtree.
func inheritedNamespaces(n *xmlquery.Node) []xmlquery.Attr {
	used := map[string]string{}
	declared := map[string]bool{}

	var visit func(*xmlquery.Node)
	visit = func(el *xmlquery.Node) {
		if el.NamespaceURI != "" {
			if _, ok := used[el.Prefix]; !ok {
				used[el.Prefix] = el.NamespaceURI
			}
		}
		for _, attr := range el.Attr {
			if prefix, ok := isNamespaceDecl(attr); ok {
				declared[prefix] = true
				continue
			}
			if attr.Name.Space != "" && attr.Name.Space != "xml" && attr.NamespaceURI != attr.Name.Space {
				if _, ok := used[attr.Name.Space]; !ok {
					used[attr.Name.Space] = attr.NamespaceURI
				}
			}
		}
		for child := el.FirstChild; child != nil; child = child.NextSibling {
			if child.Type == xmlquery.ElementNode {
				visit(child)
			}
		}
	}
	visit(n)

	prefixes := make([]string, 0, len(used))
	for prefix := range used {
		if !declared[prefix] {
			prefixes = append(prefixes, prefix)
		}
	}
	sort.Strings(prefixes)

	decls := make([]xmlquery.Attr, 0, len(prefixes))
	for _, prefix := range prefixes {
		attr := xmlquery.Attr{Value: used[prefix]}
		if prefix == "" {
			attr.Name.Local = "xmlns"
		} else {
			attr.Name.Space = "xmlns"
			attr.Name.Local = prefix
		}
		decls = append(decls, attr)
	}
	return decls
}
