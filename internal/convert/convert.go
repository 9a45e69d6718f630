// Package convert lowers the Markdown syntax tree into the editor document
// tree. Siblings are folded left to right; each step sees the previous
// node and element, the open inline tags and any comment directive.
package convert

import (
	"log/slog"

	"github.com/dgallion1/mdschema/internal/doctree"
	"github.com/dgallion1/mdschema/internal/htmlx"
	"github.com/dgallion1/mdschema/internal/mdast"
	"github.com/dgallion1/mdschema/internal/plugin"
)

// Empty-line insertion between top-level nodes: a gap of at least
// emptyLineThreshold source lines yields (gap-2)/2 empty paragraphs.
const (
	emptyLineThreshold = 4
	emptyLineOffset    = 2
	emptyLineDivisor   = 2
)

// Config tunes conversion.
type Config struct {
	// OpenLinksInNewTab adds target/rel props to every link leaf.
	OpenLinksInNewTab bool `json:"openLinksInNewTab,omitempty"`
	// Typing marks input that is being typed live.
	Typing bool `json:"typing,omitempty"`
}

// Converter turns mdast trees into document elements.
type Converter struct {
	cfg   Config
	rules []plugin.Rule
	html  *htmlx.Handler
	log   *slog.Logger
}

// New returns a Converter. rules are consulted before default handling.
func New(cfg Config, rules []plugin.Rule, log *slog.Logger) *Converter {
	if log == nil {
		log = slog.Default()
	}
	return &Converter{cfg: cfg, rules: rules, html: htmlx.New(log), log: log}
}

// Convert lowers the children of root.
func (c *Converter) Convert(root *mdast.Node) doctree.Nodes {
	return c.ConvertBlock(root, true)
}

// ConvertBlock lowers one block of a larger document. When final is false
// more blocks follow, so the block's last node is not the document's last.
func (c *Converter) ConvertBlock(root *mdast.Node, final bool) doctree.Nodes {
	if root == nil || len(root.Children) == 0 {
		return doctree.Nodes{doctree.EmptyParagraph()}
	}
	var f fold
	for i, n := range root.Children {
		c.step(&f, n, final && i == len(root.Children)-1, true, nil)
	}
	return f.out
}

// fold is the state threaded through one sibling list. Each list owns its
// fold; nested lists start from a fresh one.
type fold struct {
	out      doctree.Nodes
	prevNode *mdast.Node
	prevEl   doctree.Node
	stack    htmlx.Stack
	// context accumulates props from every comment seen so far.
	context doctree.Props
	// pending holds the props of a directive comment until the next
	// element is produced.
	pending doctree.Props
}

// directive resolves the configuration for the current node: the props of
// an immediately preceding config comment rendered as html code, or else
// a pending directive comment.
func (f fold) directive() doctree.Props {
	if el, ok := f.prevEl.(*doctree.Element); ok &&
		el.Type == doctree.TypeCode && el.Language == "html" && el.IsConfig && len(el.OtherProps) > 0 {
		return el.OtherProps.Without("finished")
	}
	return f.pending
}

func (c *Converter) nodes(list []*mdast.Node, top bool, parent *mdast.Node) doctree.Nodes {
	if len(list) == 0 {
		return doctree.Nodes{doctree.EmptyParagraph()}
	}
	var f fold
	for i, n := range list {
		c.step(&f, n, i == len(list)-1, top, parent)
	}
	return f.out
}

// step converts one sibling and appends the result to f. The props maps
// in f are replaced, never written to, since produced nodes hold clones.
func (c *Converter) step(f *fold, n *mdast.Node, last, top bool, parent *mdast.Node) {
	config := f.directive()

	var produced doctree.Nodes
	if rule, ok := plugin.First(c.rules, n); ok {
		if el := rule.Convert(n); el != nil {
			produced = doctree.Nodes{el}
		}
	} else {
		r := c.handle(n, handleCtx{config: config, parent: parent, stack: f.stack, last: last})
		produced = r.nodes
		f.stack = r.stack
		if len(r.props) > 0 {
			f.context = f.context.Merge(r.props)
		}
		if r.directive {
			f.pending = f.pending.Merge(r.props)
		}
	}

	if top && f.prevNode != nil {
		f.out = append(f.out, emptyLines(f.prevNode, n)...)
	}

	if len(produced) > 0 {
		if htmlx.IsBlockContext(parent) {
			produced = wrapLeaves(produced)
		}
		for _, p := range produced {
			applyContext(p, f.context, config)
		}
		f.out = append(f.out, produced...)
		f.prevEl = produced[len(produced)-1]
		f.pending = nil
	} else {
		f.prevEl = nil
	}
	f.prevNode = n
}

// emptyLines returns the empty paragraphs standing in for the blank
// source lines between prev and n.
func emptyLines(prev, n *mdast.Node) doctree.Nodes {
	if prev.Position == nil || n.Position == nil {
		return nil
	}
	return EmptyLines(n.StartLine() - prev.EndLine())
}

// EmptyLines returns the empty paragraphs for two blocks whose lines are
// distance apart. Adjacent lines are distance 1.
func EmptyLines(distance int) doctree.Nodes {
	if distance < emptyLineThreshold {
		return nil
	}
	count := (distance - emptyLineOffset) / emptyLineDivisor
	out := make(doctree.Nodes, count)
	for i := range out {
		out[i] = doctree.EmptyParagraph()
	}
	return out
}

// wrapLeaves puts bare leaves produced in block position into paragraphs.
func wrapLeaves(ns doctree.Nodes) doctree.Nodes {
	out := make(doctree.Nodes, 0, len(ns))
	for _, n := range ns {
		if l, ok := n.(*doctree.Leaf); ok && l.Type == "" {
			out = append(out, doctree.Paragraph(l))
			continue
		}
		out = append(out, n)
	}
	return out
}

// applyContext stamps accumulated comment props and the resolved
// directive onto a produced node. Paragraphs and headings take the
// directive's alignment.
func applyContext(n doctree.Node, context, config doctree.Props) {
	switch n := n.(type) {
	case *doctree.Element:
		if len(context) > 0 {
			n.ContextProps = context.Clone()
		}
		if len(config) > 0 && n.OtherProps == nil {
			n.OtherProps = config.Clone()
		}
		if n.Type != doctree.TypeParagraph && n.Type != doctree.TypeHead {
			return
		}
		align := config.String("align")
		if align == "" {
			align = n.OtherProps.String("align")
		}
		if align == "" {
			align = n.Align
		}
		n.Align = align
	case *doctree.Leaf:
		if len(context) > 0 {
			n.ContextProps = context.Clone()
		}
		if len(config) > 0 && n.OtherProps == nil {
			n.OtherProps = config.Clone()
		}
	}
}
