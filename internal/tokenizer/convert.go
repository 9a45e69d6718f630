package tokenizer

import (
	"bytes"
	"strings"

	"github.com/dgallion1/mdschema/internal/mdast"
	"github.com/yuin/goldmark/ast"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// converter lowers a goldmark document into mdast.
type converter struct {
	src   []byte
	index *lineIndex

	// footnotes maps goldmark footnote indexes to their labels.
	footnotes map[int]string
	// fenced records code and math nodes whose position must include the
	// opening and closing fence lines.
	fenced map[*mdast.Node]bool
	// definitions and footnote definitions lifted out of their goldmark
	// positions; they are reinserted by source line.
	lifted []*mdast.Node

	lastFence *mdast.Node
}

func newConverter(src []byte, index *lineIndex) *converter {
	return &converter{
		src:       src,
		index:     index,
		footnotes: map[int]string{},
		fenced:    map[*mdast.Node]bool{},
	}
}

func (c *converter) document(doc ast.Node) *mdast.Node {
	c.collectFootnotes(doc)
	root := &mdast.Node{Kind: mdast.KindRoot}
	root.Children = c.children(doc)
	return root
}

func (c *converter) collectFootnotes(doc ast.Node) {
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if fn, ok := n.(*east.Footnote); ok {
			c.footnotes[fn.Index] = string(fn.Ref)
		}
		return ast.WalkContinue, nil
	})
}

func (c *converter) children(parent ast.Node) []*mdast.Node {
	var out []*mdast.Node
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		out = append(out, c.convert(n)...)
	}
	return mergeText(out)
}

// convert returns zero or more mdast nodes for n.
func (c *converter) convert(n ast.Node) []*mdast.Node {
	pos := c.position(n)
	one := func(m *mdast.Node) []*mdast.Node {
		if m.Position == nil {
			m.Position = pos
		}
		return []*mdast.Node{m}
	}

	switch n := n.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		// A paragraph made only of link reference definitions is left
		// behind with no lines once goldmark lifts the definitions out.
		if n.Lines().Len() == 0 && n.FirstChild() == nil {
			return nil
		}
		return one(&mdast.Node{Kind: mdast.KindParagraph, Children: c.children(n)})
	case *ast.Heading:
		return one(&mdast.Node{Kind: mdast.KindHeading, Depth: n.Level, Children: c.children(n)})
	case *ast.ThematicBreak:
		return one(&mdast.Node{Kind: mdast.KindThematicBreak})
	case *ast.Blockquote:
		return one(&mdast.Node{Kind: mdast.KindBlockquote, Children: c.children(n)})
	case *ast.List:
		m := &mdast.Node{Kind: mdast.KindList, Ordered: n.IsOrdered(), Spread: !n.IsTight}
		if n.IsOrdered() {
			start := n.Start
			m.Start = &start
		}
		m.Children = c.children(n)
		return one(m)
	case *ast.ListItem:
		return one(c.listItem(n))
	case *ast.FencedCodeBlock:
		m := &mdast.Node{Kind: mdast.KindCode, Value: c.linesValue(n.Lines())}
		if n.Info != nil {
			info := strings.TrimSpace(string(n.Info.Segment.Value(c.src)))
			m.Lang, m.Meta = splitInfo(info)
		}
		c.fenced[m] = true
		c.lastFence = m
		return one(m)
	case *ast.CodeBlock:
		return one(&mdast.Node{Kind: mdast.KindCode, Value: c.linesValue(n.Lines())})
	case *ast.HTMLBlock:
		var b bytes.Buffer
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			b.Write(seg.Value(c.src))
		}
		if n.HasClosure() {
			b.Write(n.ClosureLine.Value(c.src))
		}
		return one(&mdast.Node{Kind: mdast.KindHTML, Value: strings.TrimRight(b.String(), "\n")})
	case *MathBlock:
		m := &mdast.Node{Kind: mdast.KindMath, Value: c.linesValue(n.Lines())}
		if !n.Closed {
			m.MarkUnfinished()
		}
		c.fenced[m] = true
		return one(m)
	case *east.Table:
		m := &mdast.Node{Kind: mdast.KindTable}
		for _, a := range n.Alignments {
			m.Align = append(m.Align, alignment(a))
		}
		m.Children = c.children(n)
		return one(m)
	case *east.TableHeader, *east.TableRow:
		return one(&mdast.Node{Kind: mdast.KindTableRow, Children: c.children(n)})
	case *east.TableCell:
		return one(&mdast.Node{Kind: mdast.KindTableCell, Children: c.children(n)})
	case *east.FootnoteList:
		for f := n.FirstChild(); f != nil; f = f.NextSibling() {
			c.lifted = append(c.lifted, c.convert(f)...)
		}
		return nil
	case *east.Footnote:
		label := string(n.Ref)
		return one(&mdast.Node{
			Kind:       mdast.KindFootnoteDefinition,
			Identifier: strings.ToLower(label),
			Label:      label,
			Children:   c.children(n),
		})
	case *east.FootnoteBacklink:
		return nil
	case *east.FootnoteLink:
		label := c.footnotes[n.Index]
		return one(&mdast.Node{
			Kind:       mdast.KindFootnoteReference,
			Identifier: strings.ToLower(label),
			Label:      label,
		})
	case *east.TaskCheckBox:
		// Lifted onto the list item by listItem.
		return nil
	case *ast.Text:
		var value string
		if n.IsRaw() {
			value = string(n.Segment.Value(c.src))
		} else {
			value = unescape(n.Segment.Value(c.src))
		}
		if n.SoftLineBreak() {
			value += "\n"
		}
		t := &mdast.Node{Kind: mdast.KindText, Value: value, Position: pos}
		if n.HardLineBreak() {
			br := &mdast.Node{Kind: mdast.KindBreak}
			if pos != nil {
				p := *pos
				br.Position = &p
			}
			return []*mdast.Node{t, br}
		}
		return []*mdast.Node{t}
	case *ast.String:
		return one(&mdast.Node{Kind: mdast.KindText, Value: string(n.Value)})
	case *ast.CodeSpan:
		var b strings.Builder
		for t := n.FirstChild(); t != nil; t = t.NextSibling() {
			switch t := t.(type) {
			case *ast.Text:
				b.Write(t.Segment.Value(c.src))
			case *ast.String:
				b.Write(t.Value)
			}
		}
		return one(&mdast.Node{Kind: mdast.KindInlineCode, Value: strings.ReplaceAll(b.String(), "\n", " ")})
	case *InlineMath:
		return one(&mdast.Node{Kind: mdast.KindInlineMath, Value: string(n.Value)})
	case *ast.Emphasis:
		kind := mdast.KindEmphasis
		if n.Level >= 2 {
			kind = mdast.KindStrong
		}
		return one(&mdast.Node{Kind: kind, Children: c.children(n)})
	case *east.Strikethrough:
		return one(&mdast.Node{Kind: mdast.KindDelete, Children: c.children(n)})
	case *ast.Link:
		return one(&mdast.Node{
			Kind:     mdast.KindLink,
			URL:      string(n.Destination),
			Title:    string(n.Title),
			Children: c.children(n),
		})
	case *ast.AutoLink:
		return one(&mdast.Node{
			Kind:     mdast.KindLink,
			URL:      string(n.URL(c.src)),
			Children: []*mdast.Node{mdast.NewText(string(n.Label(c.src)))},
		})
	case *ast.Image:
		alt := mdast.Text(&mdast.Node{Kind: mdast.KindParagraph, Children: c.children(n)})
		return one(&mdast.Node{
			Kind:  mdast.KindImage,
			URL:   string(n.Destination),
			Title: string(n.Title),
			Alt:   alt,
		})
	case *ast.RawHTML:
		var b bytes.Buffer
		for i := 0; i < n.Segments.Len(); i++ {
			seg := n.Segments.At(i)
			b.Write(seg.Value(c.src))
		}
		return one(&mdast.Node{Kind: mdast.KindHTML, Value: b.String()})
	default:
		// Unknown goldmark nodes keep their content reachable as a paragraph
		// or as inline children.
		if n.Type() == ast.TypeBlock {
			return one(&mdast.Node{Kind: mdast.KindParagraph, Children: c.children(n)})
		}
		return c.children(n)
	}
}

func (c *converter) listItem(n *ast.ListItem) *mdast.Node {
	m := &mdast.Node{Kind: mdast.KindListItem, Children: c.children(n)}
	if first := n.FirstChild(); first != nil {
		if box, ok := first.FirstChild().(*east.TaskCheckBox); ok {
			checked := box.IsChecked
			m.Checked = &checked
			if len(m.Children) > 0 && len(m.Children[0].Children) > 0 {
				t := m.Children[0].Children[0]
				if t.Kind == mdast.KindText {
					t.Value = strings.TrimLeft(t.Value, " \t")
				}
			}
		}
	}
	return m
}

func (c *converter) linesValue(lines *text.Segments) string {
	var b bytes.Buffer
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(c.src))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// position derives a source span from goldmark line and text segments.
func (c *converter) position(n ast.Node) *mdast.Position {
	start, stop, ok := c.span(n)
	if !ok {
		return nil
	}
	end := stop - 1
	if end < start {
		end = start
	}
	return &mdast.Position{
		Start: mdast.Point{Line: c.index.line(start), Column: c.index.column(start), Offset: start},
		End:   mdast.Point{Line: c.index.line(end), Column: c.index.column(end) + 1, Offset: stop},
	}
}

func (c *converter) span(n ast.Node) (int, int, bool) {
	switch n := n.(type) {
	case *ast.Text:
		return n.Segment.Start, n.Segment.Stop, true
	case *ast.HTMLBlock:
		start, stop, ok := segmentsSpan(n.Lines())
		if n.HasClosure() {
			if !ok {
				start = n.ClosureLine.Start
			}
			stop, ok = n.ClosureLine.Stop, true
		}
		return start, stop, ok
	case *ast.RawHTML:
		return segmentsSpan(n.Segments)
	}
	if n.Type() == ast.TypeBlock {
		if start, stop, ok := segmentsSpan(n.Lines()); ok {
			return start, stop, true
		}
	}
	var (
		start, stop int
		found       bool
	)
	for ch := n.FirstChild(); ch != nil; ch = ch.NextSibling() {
		s, e, ok := c.span(ch)
		if !ok {
			continue
		}
		if !found || s < start {
			start = s
		}
		if !found || e > stop {
			stop = e
		}
		found = true
	}
	return start, stop, found
}

func segmentsSpan(lines *text.Segments) (int, int, bool) {
	if lines == nil || lines.Len() == 0 {
		return 0, 0, false
	}
	return lines.At(0).Start, lines.At(lines.Len() - 1).Stop, true
}

func splitInfo(info string) (lang, meta string) {
	if i := strings.IndexAny(info, " \t"); i >= 0 {
		return info[:i], strings.TrimSpace(info[i+1:])
	}
	return info, ""
}

func alignment(a east.Alignment) mdast.Align {
	switch a {
	case east.AlignLeft:
		return mdast.AlignLeft
	case east.AlignRight:
		return mdast.AlignRight
	case east.AlignCenter:
		return mdast.AlignCenter
	default:
		return mdast.AlignNone
	}
}

func unescape(b []byte) string {
	b = util.UnescapePunctuations(b)
	b = util.ResolveNumericReferences(b)
	b = util.ResolveEntityNames(b)
	return string(b)
}

// mergeText joins adjacent text nodes, the way mdast represents a run of
// characters that goldmark split around delimiters and line breaks.
func mergeText(nodes []*mdast.Node) []*mdast.Node {
	if len(nodes) < 2 {
		return nodes
	}
	out := nodes[:0:0]
	for _, n := range nodes {
		if len(out) > 0 && n.Kind == mdast.KindText && out[len(out)-1].Kind == mdast.KindText {
			prev := out[len(out)-1]
			prev.Value += n.Value
			if prev.Position != nil && n.Position != nil {
				prev.Position.End = n.Position.End
			}
			continue
		}
		out = append(out, n)
	}
	return out
}
