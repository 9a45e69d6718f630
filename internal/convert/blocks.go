package convert

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/dgallion1/mdschema/internal/doctree"
	"github.com/dgallion1/mdschema/internal/htmlx"
	"github.com/dgallion1/mdschema/internal/mdast"
	"github.com/dgallion1/mdschema/internal/table"
)

var taskMarker = regexp.MustCompile(`^\[([xX ])\]\s?`)

// handleCtx is what a handler may read from the fold.
type handleCtx struct {
	config doctree.Props
	parent *mdast.Node
	stack  htmlx.Stack
	last   bool
}

// handleResult is what a handler hands back to the fold.
type handleResult struct {
	nodes     doctree.Nodes
	stack     htmlx.Stack
	props     doctree.Props
	directive bool
}

func one(n doctree.Node) doctree.Nodes {
	if n == nil {
		return nil
	}
	return doctree.Nodes{n}
}

// handle dispatches on the node kind.
func (c *Converter) handle(n *mdast.Node, ctx handleCtx) handleResult {
	res := handleResult{stack: ctx.stack}
	switch n.Kind {
	case mdast.KindHeading:
		res.nodes = one(c.heading(n))
	case mdast.KindList:
		res.nodes = one(c.list(n))
	case mdast.KindListItem:
		res.nodes = one(c.listItem(n))
	case mdast.KindBlockquote:
		res.nodes = one(c.blockquote(n))
	case mdast.KindParagraph:
		res.nodes = c.paragraph(n, ctx.config)
	case mdast.KindTable:
		res.nodes = one(table.Build(n, ctx.config, func(cell *mdast.Node) doctree.Nodes {
			return c.nodes(cell.Children, false, cell)
		}))
	case mdast.KindCode:
		res.nodes = one(c.code(n, ctx.last))
	case mdast.KindYAML:
		res.nodes = one(c.frontmatter(n))
	case mdast.KindDefinition:
		res.nodes = one(definition(n))
	case mdast.KindFootnoteDefinition:
		res.nodes = one(c.footnoteDefinition(n))
	case mdast.KindFootnoteReference:
		res.nodes = one(&doctree.Leaf{
			Text:       strings.ToUpper(n.Identifier),
			Identifier: n.Identifier,
			Type:       doctree.TypeFootnoteReference,
		})
	case mdast.KindThematicBreak:
		res.nodes = one(doctree.NewElement(doctree.TypeHr))
	case mdast.KindMath:
		res.nodes = one(mathBlock(n))
	case mdast.KindInlineMath:
		res.nodes = one(inlineMath(n, ctx.parent))
	case mdast.KindImage:
		res.nodes = one(c.html.ImageElement(n.URL, n.Alt, n.Finished))
	case mdast.KindHTML:
		r := c.html.Handle(n, ctx.parent, ctx.stack)
		res.nodes, res.stack, res.props, res.directive = r.Nodes, r.Stack, r.Props, r.Directive
	case mdast.KindText, mdast.KindBreak, mdast.KindInlineCode,
		mdast.KindStrong, mdast.KindEmphasis, mdast.KindDelete, mdast.KindLink:
		res.nodes = c.inline(n, ctx.stack)
	default:
		c.log.Debug("unhandled markdown node", "kind", n.Kind.String())
		if text := mdast.Text(n); text != "" {
			res.nodes = one(doctree.Text(text))
		}
	}
	return res
}

func (c *Converter) heading(n *mdast.Node) *doctree.Element {
	el := &doctree.Element{Type: doctree.TypeHead, Level: n.Depth}
	if len(n.Children) > 0 {
		el.Children = orEmpty(c.nodes(n.Children, false, n))
	} else {
		el.Children = doctree.Nodes{doctree.Text("")}
	}
	return el
}

func (c *Converter) list(n *mdast.Node) *doctree.Element {
	el := &doctree.Element{
		Type:     doctree.TypeList,
		Order:    doctree.Bool(n.Ordered),
		Children: orEmpty(c.nodes(n.Children, false, n)),
	}
	if n.Ordered && n.Start != nil {
		el.Start = doctree.Int(*n.Start)
	}
	if n.Finished != nil {
		el.Finished = doctree.Bool(*n.Finished)
	}
	for _, child := range el.Children {
		if item, ok := child.(*doctree.Element); ok && item.Checked != nil {
			el.Task = true
			break
		}
	}
	return el
}

// listItem converts an item. A leading link followed by more content is
// lifted out as a mention; a literal [x] or [ ] marker sets checked.
func (c *Converter) listItem(n *mdast.Node) *doctree.Element {
	checked := n.Checked
	if checked == nil {
		n, checked = stripTaskMarker(n)
	}

	var children doctree.Nodes
	if len(n.Children) > 0 {
		children = orEmpty(c.nodes(n.Children, false, n))
	} else {
		children = doctree.Nodes{doctree.EmptyParagraph()}
	}

	el := &doctree.Element{Type: doctree.TypeListItem, Checked: checked}
	if first := n.Children; len(first) > 0 && len(first[0].Children) > 1 && first[0].Children[0].Kind == mdast.KindLink {
		if p, ok := children[0].(*doctree.Element); ok && len(p.Children) > 0 {
			if leaf, ok := p.Children[0].(*doctree.Leaf); ok && leaf.Text != "" {
				el.Mentions = []doctree.Mention{{
					Avatar: leaf.URL,
					Name:   leaf.Text,
					ID:     mentionID(leaf.URL),
				}}
				p.Children = orEmpty(p.Children[1:])
			}
		}
	}
	el.Children = children
	return el
}

// stripTaskMarker returns a copy of the item without a leading [x]/[ ] on
// its first text, and the checked state the marker named. Items without a
// marker are returned as is with a nil state.
func stripTaskMarker(n *mdast.Node) (*mdast.Node, *bool) {
	if len(n.Children) == 0 || n.Children[0].Kind != mdast.KindParagraph {
		return n, nil
	}
	p := n.Children[0]
	if len(p.Children) == 0 || p.Children[0].Kind != mdast.KindText {
		return n, nil
	}
	t := p.Children[0]
	m := taskMarker.FindStringSubmatch(t.Value)
	if m == nil {
		return n, nil
	}
	text := *t
	text.Value = t.Value[len(m[0]):]
	para := *p
	para.Children = append([]*mdast.Node{&text}, p.Children[1:]...)
	item := *n
	item.Children = append([]*mdast.Node{&para}, n.Children[1:]...)
	return &item, doctree.Bool(m[1] != " ")
}

func mentionID(raw string) string {
	_, query, ok := strings.Cut(raw, "?")
	if !ok {
		return ""
	}
	values, err := url.ParseQuery(query)
	if err != nil {
		return ""
	}
	return values.Get("id")
}

func (c *Converter) blockquote(n *mdast.Node) *doctree.Element {
	if len(n.Children) == 0 {
		return doctree.NewElement(doctree.TypeBlockquote, doctree.EmptyParagraph())
	}
	return doctree.NewElement(doctree.TypeBlockquote, orEmpty(c.nodes(n.Children, false, n))...)
}

// paragraph handles attachments and link cards, then splits the children
// into text runs so images and media sit in their own blocks.
func (c *Converter) paragraph(n *mdast.Node, config doctree.Props) doctree.Nodes {
	if len(n.Children) > 0 {
		first := n.Children[0]
		if first.Kind == mdast.KindHTML && strings.HasPrefix(first.Value, "<a") {
			var b strings.Builder
			for _, child := range n.Children {
				b.WriteString(child.Value)
			}
			if a, ok := htmlx.FindAttachment(b.String()); ok {
				return one(c.html.AttachmentElement(a))
			}
		}
		if first.Kind == mdast.KindLink && config.String("type") == "card" {
			return one(&doctree.Element{
				Type:       doctree.TypeLinkCard,
				URL:        c.html.DecodeURI(first.URL),
				Name:       first.Title,
				OtherProps: config.Clone(),
				Children:   doctree.CardSentinels(),
			})
		}
	}

	var out doctree.Nodes
	var run []*mdast.Node
	flush := func() {
		if len(run) == 0 {
			return
		}
		out = append(out, doctree.Paragraph(c.nodes(run, false, n)...))
		run = nil
	}
	for _, child := range n.Children {
		switch child.Kind {
		case mdast.KindImage:
			flush()
			out = append(out, c.html.ImageElement(child.URL, child.Alt, child.Finished))
		case mdast.KindHTML:
			if htmlx.IsMediaEndTag(child.Value) {
				continue
			}
			if media, ok := htmlx.FindMedia(child.Value); ok {
				flush()
				out = append(out, c.html.MediaElement(media))
				continue
			}
			run = append(run, child)
		default:
			run = append(run, child)
		}
	}
	flush()
	if len(out) == 0 {
		return one(doctree.EmptyParagraph())
	}
	return out
}

func definition(n *mdast.Node) *doctree.Element {
	return doctree.Paragraph(doctree.Text("[" + n.Label + "]: " + n.URL))
}

// footnoteDefinition takes its value and url from the first leaf of its
// first converted child.
func (c *Converter) footnoteDefinition(n *mdast.Node) *doctree.Element {
	el := &doctree.Element{Type: doctree.TypeFootnoteDefinition, Identifier: n.Identifier}
	var leaf *doctree.Leaf
	if converted := c.nodes(n.Children, false, n); len(converted) > 0 {
		if p, ok := converted[0].(*doctree.Element); ok && len(p.Children) > 0 {
			leaf, _ = p.Children[0].(*doctree.Leaf)
		}
	}
	if leaf == nil {
		leaf = doctree.Text("")
	}
	el.Value = leaf.Text
	el.URL = leaf.URL
	el.Children = doctree.Nodes{leaf}
	return el
}

func mathBlock(n *mdast.Node) *doctree.Element {
	el := &doctree.Element{
		Type:     doctree.TypeKatex,
		Language: "latex",
		Katex:    true,
		Value:    n.Value,
		Children: doctree.Nodes{doctree.Text("")},
	}
	if n.IsUnfinished() {
		el.Finished = doctree.Bool(false)
	}
	return el
}

func orEmpty(ns doctree.Nodes) doctree.Nodes {
	if len(ns) == 0 {
		return doctree.Nodes{doctree.Text("")}
	}
	return ns
}
