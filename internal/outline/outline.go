// Package outline folds a flat element list into a heading hierarchy.
package outline

import (
	"strings"

	"github.com/dgallion1/mdschema/internal/doctree"
)

// Section is a heading and everything up to the next heading of the same
// or a higher level.
type Section struct {
	Title string `json:"title"`
	Level int    `json:"level"`
	// Elements counts the non-heading elements directly under the heading.
	Elements int        `json:"elements"`
	Children []*Section `json:"children,omitempty"`
}

// Build returns a level-0 root whose children are the top-level headings.
// Elements before the first heading are counted on the root.
func Build(nodes doctree.Nodes) *Section {
	root := &Section{}
	// Root is level 0, all headings nest under it.
	stack := []*Section{root}

	for _, n := range nodes {
		el, ok := n.(*doctree.Element)
		if !ok {
			continue
		}
		if el.Type != doctree.TypeHead {
			if !isBlank(el) {
				stack[len(stack)-1].Elements++
			}
			continue
		}

		level := min(max(el.Level, 1), 6)
		sec := &Section{
			Title: strings.TrimSpace(doctree.PlainText(el)),
			Level: level,
		}
		// Pop until the top is a strictly shallower heading.
		for len(stack) > 1 && stack[len(stack)-1].Level >= level {
			stack = stack[:len(stack)-1]
		}
		parent := stack[len(stack)-1]
		parent.Children = append(parent.Children, sec)
		stack = append(stack, sec)
	}
	return root
}

// Walk visits s and its descendants depth first. The root has depth 0.
func (s *Section) Walk(fn func(sec *Section, depth int)) {
	s.walk(fn, 0)
}

func (s *Section) walk(fn func(*Section, int), depth int) {
	fn(s, depth)
	for _, c := range s.Children {
		c.walk(fn, depth+1)
	}
}

func isBlank(el *doctree.Element) bool {
	return el.Type == doctree.TypeParagraph && strings.TrimSpace(doctree.PlainText(el)) == ""
}
