package doctree

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Nodes is an ordered list of elements and leaves. It decodes from JSON by
// shape: objects with a "children" key are elements, all others are leaves.
type Nodes []Node

func (ns *Nodes) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*ns = nil
		return nil
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return fmt.Errorf("decoding node list: %w", err)
	}
	out := make(Nodes, 0, len(raws))
	for i, raw := range raws {
		n, err := DecodeNode(raw)
		if err != nil {
			return fmt.Errorf("node %d: %w", i, err)
		}
		out = append(out, n)
	}
	*ns = out
	return nil
}

// DecodeNode decodes a single element or leaf.
func DecodeNode(raw []byte) (Node, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, err
	}
	if _, ok := probe["children"]; ok {
		var e Element
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, err
		}
		return &e, nil
	}
	var l Leaf
	if err := json.Unmarshal(raw, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

// Clone returns a deep copy of ns.
func (ns Nodes) Clone() Nodes {
	if ns == nil {
		return nil
	}
	out := make(Nodes, len(ns))
	for i, n := range ns {
		out[i] = CloneNode(n)
	}
	return out
}

// CloneNode returns a deep copy of n.
func CloneNode(n Node) Node {
	switch n := n.(type) {
	case *Element:
		return n.Clone()
	case *Leaf:
		return n.Clone()
	default:
		return n
	}
}

// Clone returns a deep copy of e.
func (e *Element) Clone() *Element {
	if e == nil {
		return nil
	}
	c := *e
	if e.Order != nil {
		c.Order = Bool(*e.Order)
	}
	if e.Start != nil {
		c.Start = Int(*e.Start)
	}
	if e.Checked != nil {
		c.Checked = Bool(*e.Checked)
	}
	if e.Finished != nil {
		c.Finished = Bool(*e.Finished)
	}
	if e.Mentions != nil {
		c.Mentions = append([]Mention(nil), e.Mentions...)
	}
	c.Value = cloneValue(e.Value)
	c.OtherProps = e.OtherProps.Clone()
	c.ContextProps = e.ContextProps.Clone()
	c.Children = e.Children.Clone()
	return &c
}

// Clone returns a deep copy of l.
func (l *Leaf) Clone() *Leaf {
	if l == nil {
		return nil
	}
	c := *l
	c.OtherProps = l.OtherProps.Clone()
	c.ContextProps = l.ContextProps.Clone()
	return &c
}

// SetHash stamps the reconciliation hash on n.
func SetHash(n Node, hash string) {
	switch n := n.(type) {
	case *Element:
		n.Hash = hash
	case *Leaf:
		n.Hash = hash
	}
}

// Walk calls fn for n and every descendant in document order. Returning
// false from fn skips the node's children.
func Walk(n Node, fn func(Node) bool) {
	if !fn(n) {
		return
	}
	if e, ok := n.(*Element); ok {
		for _, c := range e.Children {
			Walk(c, fn)
		}
	}
}

// PlainText concatenates the text of every leaf under n.
func PlainText(n Node) string {
	var b bytes.Buffer
	Walk(n, func(n Node) bool {
		if l, ok := n.(*Leaf); ok {
			b.WriteString(l.Text)
		}
		return true
	})
	return b.String()
}
