// Package plugin lets callers take over the conversion of selected
// Markdown nodes. Rules are tried in order and the first match wins.
package plugin

import (
	"github.com/dgallion1/mdschema/internal/doctree"
	"github.com/dgallion1/mdschema/internal/mdast"
)

// Rule intercepts nodes before default handling.
type Rule interface {
	// Match reports whether the rule handles n.
	Match(n *mdast.Node) bool
	// Convert produces the element that replaces n. A nil result drops n.
	Convert(n *mdast.Node) doctree.Node
}

// Named is implemented by rules that contribute to the parse cache key.
// Rules without a name are keyed by their position in the rule list.
type Named interface {
	Name() string
}

// Func adapts a pair of functions to Rule.
type Func struct {
	ID        string
	MatchFn   func(*mdast.Node) bool
	ConvertFn func(*mdast.Node) doctree.Node
}

func (f Func) Match(n *mdast.Node) bool           { return f.MatchFn(n) }
func (f Func) Convert(n *mdast.Node) doctree.Node { return f.ConvertFn(n) }
func (f Func) Name() string                       { return f.ID }

// First returns the first rule in rules matching n.
func First(rules []Rule, n *mdast.Node) (Rule, bool) {
	for _, r := range rules {
		if r.Match(n) {
			return r, true
		}
	}
	return nil, false
}
