package tokenizer

import (
	"regexp"
	"strings"

	"github.com/dgallion1/mdschema/internal/mdast"
)

var (
	// strongRun matches `**x**` runs CommonMark leaves literal because the
	// closer is followed by a letter, e.g. `**57%**增长`.
	strongRun = regexp.MustCompile(`\*\*([^*\n]*[$%#@&+\-=\w\d.，。、；：！？“”‘’"'（）【】《》]+[^*\n]*?)\*\*`)
	// openStrong matches a trailing `**x` whose closer has not arrived yet.
	openStrong = regexp.MustCompile(`^\*\*([^*\n]+)$`)

	bareLink = regexp.MustCompile(`^\[([^\]]+)\]\(([^)]+)\)$`)
)

// fixStrong rewrites literal `**` runs left in text nodes into strong nodes.
// A trailing `**x` is only read as an unfinished strong inside the last
// top-level node of the final block; elsewhere it stays literal text.
func fixStrong(root *mdast.Node, final bool) {
	last := len(root.Children) - 1
	for i, child := range root.Children {
		fixStrongIn(child, final && i == last)
	}
}

func fixStrongIn(n *mdast.Node, open bool) {
	if n == nil || len(n.Children) == 0 {
		return
	}
	var out []*mdast.Node
	changed := false
	for _, child := range n.Children {
		if child.Kind != mdast.KindText {
			fixStrongIn(child, open)
			out = append(out, child)
			continue
		}
		split := splitStrong(child, open)
		if split == nil {
			out = append(out, child)
			continue
		}
		changed = true
		out = append(out, split...)
	}
	if changed {
		n.Children = out
	}
}

func splitStrong(t *mdast.Node, open bool) []*mdast.Node {
	value := t.Value
	matches := strongRun.FindAllStringSubmatchIndex(value, -1)
	if len(matches) == 0 {
		if !open {
			return nil
		}
		if m := openStrong.FindStringSubmatch(value); m != nil {
			return []*mdast.Node{unfinishedStrong(m[1], t.Position)}
		}
		return nil
	}

	var out []*mdast.Node
	last := 0
	for _, m := range matches {
		if m[0] > last {
			out = append(out, &mdast.Node{Kind: mdast.KindText, Value: value[last:m[0]], Position: t.Position})
		}
		out = append(out, &mdast.Node{
			Kind:     mdast.KindStrong,
			Children: []*mdast.Node{mdast.NewText(value[m[2]:m[3]])},
			Position: t.Position,
		})
		last = m[1]
	}
	if last < len(value) {
		rest := value[last:]
		if m := openStrong.FindStringSubmatch(rest); open && m != nil {
			out = append(out, unfinishedStrong(m[1], t.Position))
		} else {
			out = append(out, &mdast.Node{Kind: mdast.KindText, Value: rest, Position: t.Position})
		}
	}
	return out
}

func unfinishedStrong(value string, pos *mdast.Position) *mdast.Node {
	s := &mdast.Node{
		Kind:     mdast.KindStrong,
		Children: []*mdast.Node{mdast.NewText(value)},
		Position: pos,
	}
	s.MarkUnfinished()
	return s
}

// paragraphText is the trimmed text of a paragraph's direct text children
// and of the text one level inside its formatting children.
func paragraphText(p *mdast.Node) string {
	var b strings.Builder
	for _, c := range p.Children {
		if c.Kind == mdast.KindText {
			b.WriteString(c.Value)
			continue
		}
		for _, g := range c.Children {
			if g.Kind == mdast.KindText {
				b.WriteString(g.Value)
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// fixTrailingParagraph reinterprets the final top-level paragraph when it
// looks like the beginning of an image, table or link still being typed.
// The first node of a document is never rewritten.
func fixTrailingParagraph(root *mdast.Node) {
	last := len(root.Children) - 1
	if last < 1 {
		return
	}
	p := root.Children[last]
	if p.Kind != mdast.KindParagraph {
		return
	}
	text := paragraphText(p)
	if text == "" {
		return
	}

	switch {
	case strings.HasPrefix(text, "!"):
		url := strings.TrimSpace(text[1:])
		if url == "" {
			return
		}
		img := &mdast.Node{Kind: mdast.KindImage, URL: url, Position: p.Position}
		img.MarkUnfinished()
		root.Children[last] = img
	case strings.HasPrefix(text, "|"):
		cell := mdast.NewParent(mdast.KindTableCell,
			mdast.NewParent(mdast.KindParagraph, mdast.NewText(text)))
		table := &mdast.Node{
			Kind:     mdast.KindTable,
			Children: []*mdast.Node{mdast.NewParent(mdast.KindTableRow, cell)},
			Position: p.Position,
		}
		table.MarkUnfinished()
		root.Children[last] = table
	case strings.HasPrefix(text, "["):
		m := bareLink.FindStringSubmatch(text)
		if m == nil {
			return
		}
		link := &mdast.Node{Kind: mdast.KindLink, URL: m[2], Children: p.Children, Position: p.Position}
		link.MarkUnfinished()
		root.Children[last] = link
	}
}
