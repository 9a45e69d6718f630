package convert

import (
	"regexp"
	"strings"

	"github.com/dgallion1/mdschema/internal/doctree"
	"github.com/dgallion1/mdschema/internal/htmlx"
	"github.com/dgallion1/mdschema/internal/mdast"
)

const mathSuffix = `(?:%|[kKmMbB]|千|万|亿|兆|万亿|百万|亿万)?`

var (
	mathCurrency     = regexp.MustCompile(`^[+-]?\d{1,3}(?:,\d{3})*(?:\.\d+)?` + mathSuffix + `$`)
	mathSimpleNumber = regexp.MustCompile(`^[+-]?\d+(?:\.\d+)?` + mathSuffix + `$`)
	mathOperators    = regexp.MustCompile(`[=^_\\{}]`)

	codePlaceholder = regexp.MustCompile(`\$\{(.*?)\}`)
	codeKeyValue    = regexp.MustCompile(`(\w+):([^,]+)`)
)

// ShouldTreatInlineMathAsText reports whether $value$ is an amount such as
// $1,200$ or $9.5M$ rather than a formula.
func ShouldTreatInlineMathAsText(value string) bool {
	v := strings.TrimSpace(value)
	if v == "" {
		return true
	}
	if mathOperators.MatchString(v) {
		return false
	}
	return mathCurrency.MatchString(v) || mathSimpleNumber.MatchString(v)
}

func inlineKatex(value string) *doctree.Element {
	return &doctree.Element{
		Type:     doctree.TypeInlineKatex,
		Value:    value,
		Children: doctree.Nodes{doctree.Text(value)},
	}
}

// inlineMath converts a bare inlineMath node. Amounts become literal text,
// wrapped in a paragraph when they stand in block position.
func inlineMath(n *mdast.Node, parent *mdast.Node) doctree.Node {
	if !ShouldTreatInlineMathAsText(n.Value) {
		return inlineKatex(n.Value)
	}
	text := doctree.Text("$" + n.Value + "$")
	if htmlx.IsBlockContext(parent) {
		return doctree.Paragraph(text)
	}
	return text
}

// inline converts text and inline formatting nodes.
func (c *Converter) inline(n *mdast.Node, stack htmlx.Stack) doctree.Nodes {
	switch n.Kind {
	case mdast.KindText:
		l := doctree.Text(n.Value)
		if stack.Len() > 0 && n.Value != "" {
			l = stack.Apply(l)
		}
		return one(l)
	case mdast.KindBreak:
		return one(doctree.Text("\n"))
	case mdast.KindInlineCode:
		l := stack.Apply(c.format(unfinishedLeaf(n), n))
		inlineCode(l, n.Value)
		return one(l)
	}

	l := stack.Apply(c.format(unfinishedLeaf(n), n))
	for _, child := range n.Children {
		if child.Kind != mdast.KindHTML {
			continue
		}
		converted := c.nodes(n.Children, false, n)
		if len(converted) == 0 {
			return nil
		}
		switch first := converted[0].(type) {
		case *doctree.Leaf:
			first.URL = l.URL
		case *doctree.Element:
			first.URL = l.URL
		}
		return converted[:1]
	}
	children := n.Children
	if len(children) == 0 {
		children = []*mdast.Node{mdast.NewText(l.URL)}
	}
	return c.parseText(children, l)
}

// unfinishedLeaf returns an empty leaf carrying finished=false when n is
// still open.
func unfinishedLeaf(n *mdast.Node) *doctree.Leaf {
	l := &doctree.Leaf{}
	if n.IsUnfinished() {
		l.OtherProps = doctree.Props{"finished": false}
	}
	return l
}

// markUnfinished returns l with finished=false when n is still open.
func markUnfinished(l *doctree.Leaf, n *mdast.Node) *doctree.Leaf {
	if !n.IsUnfinished() {
		return l
	}
	l.OtherProps = l.OtherProps.Merge(doctree.Props{"finished": false})
	return l
}

// format applies the marks n itself contributes to a copy of l.
func (c *Converter) format(l *doctree.Leaf, n *mdast.Node) *doctree.Leaf {
	out := l.Clone()
	switch n.Kind {
	case mdast.KindStrong:
		out.Bold = true
		return markUnfinished(out, n)
	case mdast.KindEmphasis:
		out.Italic = true
		return markUnfinished(out, n)
	case mdast.KindDelete:
		out.Strikethrough = true
	case mdast.KindLink:
		out.URL = n.URL
		if c.cfg.OpenLinksInNewTab || n.IsUnfinished() {
			props := doctree.Props{"target": "_blank", "rel": "noopener noreferrer"}
			if n.IsUnfinished() {
				props["finished"] = false
			}
			out.OtherProps = out.OtherProps.Merge(props)
		}
	}
	return out
}

// parseText flattens inline nodes into leaves under the marks of base. A
// mark wrapping nothing still yields an empty leaf carrying the mark.
func (c *Converter) parseText(list []*mdast.Node, base *doctree.Leaf) doctree.Nodes {
	var out doctree.Nodes
	nested := func(n *mdast.Node, l *doctree.Leaf) {
		got := c.parseText(n.Children, l)
		out = append(out, got...)
		if len(got) == 0 && l.HasMarks() {
			empty := l.Clone()
			empty.Text = ""
			out = append(out, empty)
		}
	}
	for _, n := range list {
		switch n.Kind {
		case mdast.KindStrong:
			l := base.Clone()
			l.Bold = true
			nested(n, markUnfinished(l, n))
		case mdast.KindEmphasis:
			l := base.Clone()
			l.Italic = true
			nested(n, markUnfinished(l, n))
		case mdast.KindDelete:
			l := base.Clone()
			l.Strikethrough = true
			nested(n, l)
		case mdast.KindLink:
			if n.URL == "" {
				out = append(out, c.parseText(n.Children, base)...)
				continue
			}
			l := base.Clone()
			l.URL = n.URL
			nested(n, l)
		case mdast.KindInlineCode:
			l := base.Clone()
			inlineCode(l, n.Value)
			out = append(out, l)
		case mdast.KindInlineMath:
			if !ShouldTreatInlineMathAsText(n.Value) {
				out = append(out, inlineKatex(n.Value))
				continue
			}
			l := base.Clone()
			l.Text = "$" + n.Value + "$"
			out = append(out, l)
		case mdast.KindBreak:
			l := base.Clone()
			l.Text = "\n"
			out = append(out, l)
		default:
			l := base.Clone()
			l.Text = n.Value
			out = append(out, l)
		}
	}
	return out
}

// inlineCode fills in an inline code leaf. `${placeholder:x,initialValue:y}`
// is an editable tag whose text is its initial value, or a space while it
// only has a placeholder.
func inlineCode(l *doctree.Leaf, value string) {
	values := map[string]string{}
	if m := codePlaceholder.FindStringSubmatch(value); m != nil {
		for _, kv := range codeKeyValue.FindAllStringSubmatch(m[1], -1) {
			values[kv[1]] = kv[2]
		}
	}
	isTag := strings.HasPrefix(value, "${")

	l.Code = true
	l.Tag = isTag
	switch {
	case values["initialValue"] != "":
		l.Text = values["initialValue"]
	case values["placeholder"] != "":
		l.Text = " "
	case !isTag:
		l.Text = value
	default:
		l.Text = " "
	}
	l.Placeholder, l.InitialValue = "", ""
	if isTag {
		l.Placeholder = values["placeholder"]
		l.InitialValue = values["initialValue"]
	}
}
