// Package tokenizer turns Markdown source into an mdast tree using goldmark
// with GFM, footnotes, math and YAML frontmatter, then applies the fixups
// needed for documents that are still being streamed in.
package tokenizer

import (
	"regexp"
	"strings"

	"github.com/dgallion1/mdschema/internal/mdast"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// Tokenizer is safe for concurrent use; each Parse gets its own context.
type Tokenizer struct {
	md goldmark.Markdown
}

// New returns a tokenizer configured for CommonMark, GFM, footnotes and math.
func New() *Tokenizer {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Footnote,
			Math,
		),
	)
	return &Tokenizer{md: md}
}

// Parse tokenizes src. It never fails: malformed Markdown is still Markdown.
func (t *Tokenizer) Parse(src string) *mdast.Node {
	return t.ParseBlock(src, true)
}

// ParseBlock tokenizes one block of a larger document. Only the final
// block gets the fixups for a paragraph that is still being typed.
func (t *Tokenizer) ParseBlock(src string, final bool) *mdast.Node {
	body := src
	var yamlNode *mdast.Node
	if value, endLine, rest, ok := frontmatter(src); ok {
		body = rest
		yamlNode = &mdast.Node{
			Kind:  mdast.KindYAML,
			Value: value,
			Position: &mdast.Position{
				Start: mdast.Point{Line: 1, Column: 1},
				End:   mdast.Point{Line: endLine, Column: 4},
			},
		}
	}

	source := []byte(body)
	index := newLineIndex(body)
	pc := parser.NewContext()
	doc := t.md.Parser().Parse(text.NewReader(source), parser.WithContext(pc))

	c := newConverter(source, index)
	root := c.document(doc)

	if c.lastFence != nil && openFenceAtEOF(body) {
		c.lastFence.MarkUnfinished()
	}
	fixFencePositions(root, c, index)

	lifted := append(c.lifted, definitions(pc, index)...)
	for _, n := range lifted {
		insertByLine(root, n)
	}
	if yamlNode != nil {
		root.Children = append([]*mdast.Node{yamlNode}, root.Children...)
	}

	fixStrong(root, final)
	if final {
		fixTrailingParagraph(root)
	}
	return root
}

// fixFencePositions widens fenced code and math spans to their fence lines
// and gives position-less top-level blocks (thematic breaks, empty fences)
// the first non-blank line after their predecessor.
func fixFencePositions(root *mdast.Node, c *converter, index *lineIndex) {
	next := 1
	for _, n := range root.Children {
		line := index.firstNonBlank(next)
		switch {
		case c.fenced[n]:
			end := line
			if n.Position != nil {
				end = n.Position.End.Line
			}
			if !n.IsUnfinished() {
				end++
			}
			n.Position = &mdast.Position{
				Start: mdast.Point{Line: line, Column: 1},
				End:   mdast.Point{Line: end, Column: 1},
			}
		case n.Position == nil:
			n.Position = &mdast.Position{
				Start: mdast.Point{Line: line, Column: 1},
				End:   mdast.Point{Line: line, Column: 1},
			}
		}
		next = n.Position.End.Line + 1
	}
}

// definitions recovers link reference definitions, which goldmark consumes
// into the parser context, as mdast definition nodes.
func definitions(pc parser.Context, index *lineIndex) []*mdast.Node {
	var out []*mdast.Node
	used := map[int]bool{}
	for _, ref := range pc.References() {
		label := string(ref.Label())
		n := &mdast.Node{
			Kind:       mdast.KindDefinition,
			Label:      label,
			Identifier: strings.ToLower(label),
			URL:        string(ref.Destination()),
			Title:      string(ref.Title()),
		}
		if line := findDefinitionLine(index, label, used); line > 0 {
			used[line] = true
			n.Position = &mdast.Position{
				Start: mdast.Point{Line: line, Column: 1},
				End:   mdast.Point{Line: line, Column: 1},
			}
		}
		out = append(out, n)
	}
	return out
}

func findDefinitionLine(index *lineIndex, label string, used map[int]bool) int {
	re, err := regexp.Compile(`^[ >]{0,6}\[` + regexp.QuoteMeta(label) + `\]:`)
	if err != nil {
		return 0
	}
	for i, l := range index.lines {
		if !used[i+1] && re.MatchString(l) {
			return i + 1
		}
	}
	return 0
}

// insertByLine places n among the root's children in source-line order.
// Nodes without a line go last.
func insertByLine(root *mdast.Node, n *mdast.Node) {
	line := n.StartLine()
	if line == 0 {
		root.Children = append(root.Children, n)
		return
	}
	at := len(root.Children)
	for i, c := range root.Children {
		if c.StartLine() > line {
			at = i
			break
		}
	}
	root.Children = append(root.Children, nil)
	copy(root.Children[at+1:], root.Children[at:])
	root.Children[at] = n
}
