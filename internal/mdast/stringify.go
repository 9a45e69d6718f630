package mdast

import "strings"

// Stringify renders the phrasing content of n back to Markdown. It is used
// for table header and cell text, where inline formatting must survive as
// source text rather than as structure.
func Stringify(n *Node) string {
	var b strings.Builder
	writeInline(&b, n)
	return b.String()
}

// StringifyChildren renders each child of n in order.
func StringifyChildren(n *Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	for _, c := range n.Children {
		writeInline(&b, c)
	}
	return b.String()
}

func writeInline(b *strings.Builder, n *Node) {
	if n == nil {
		return
	}
	switch n.Kind {
	case KindText, KindHTML:
		b.WriteString(n.Value)
	case KindInlineCode:
		fence := "`"
		if strings.Contains(n.Value, "`") {
			fence = "``"
		}
		b.WriteString(fence)
		b.WriteString(n.Value)
		b.WriteString(fence)
	case KindInlineMath:
		b.WriteString("$")
		b.WriteString(n.Value)
		b.WriteString("$")
	case KindBreak:
		b.WriteString("\\\n")
	case KindEmphasis:
		b.WriteString("*")
		writeChildren(b, n)
		b.WriteString("*")
	case KindStrong:
		b.WriteString("**")
		writeChildren(b, n)
		b.WriteString("**")
	case KindDelete:
		b.WriteString("~~")
		writeChildren(b, n)
		b.WriteString("~~")
	case KindLink:
		b.WriteString("[")
		writeChildren(b, n)
		b.WriteString("](")
		b.WriteString(n.URL)
		writeTitle(b, n.Title)
		b.WriteString(")")
	case KindImage:
		b.WriteString("![")
		b.WriteString(n.Alt)
		b.WriteString("](")
		b.WriteString(n.URL)
		writeTitle(b, n.Title)
		b.WriteString(")")
	case KindFootnoteReference:
		b.WriteString("[^")
		b.WriteString(n.Label)
		b.WriteString("]")
	default:
		writeChildren(b, n)
	}
}

func writeChildren(b *strings.Builder, n *Node) {
	for _, c := range n.Children {
		writeInline(b, c)
	}
}

func writeTitle(b *strings.Builder, title string) {
	if title == "" {
		return
	}
	b.WriteString(` "`)
	b.WriteString(strings.ReplaceAll(title, `"`, `\"`))
	b.WriteString(`"`)
}
