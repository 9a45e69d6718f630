// Package mdast defines the generic Markdown syntax tree consumed by the
// document-tree converter. The tokenizer package produces it from goldmark;
// plugins and the converter only ever see these nodes.
package mdast

// Kind is the closed set of node kinds the tokenizer can emit.
type Kind int

const (
	KindUnknown Kind = iota
	KindRoot
	KindParagraph
	KindHeading
	KindThematicBreak
	KindBlockquote
	KindList
	KindListItem
	KindHTML
	KindCode
	KindYAML
	KindDefinition
	KindFootnoteDefinition
	KindTable
	KindTableRow
	KindTableCell
	KindMath
	KindText
	KindEmphasis
	KindStrong
	KindDelete
	KindInlineCode
	KindInlineMath
	KindBreak
	KindLink
	KindImage
	KindFootnoteReference
)

var kindNames = [...]string{
	KindUnknown:            "unknown",
	KindRoot:               "root",
	KindParagraph:          "paragraph",
	KindHeading:            "heading",
	KindThematicBreak:      "thematicBreak",
	KindBlockquote:         "blockquote",
	KindList:               "list",
	KindListItem:           "listItem",
	KindHTML:               "html",
	KindCode:               "code",
	KindYAML:               "yaml",
	KindDefinition:         "definition",
	KindFootnoteDefinition: "footnoteDefinition",
	KindTable:              "table",
	KindTableRow:           "tableRow",
	KindTableCell:          "tableCell",
	KindMath:               "math",
	KindText:               "text",
	KindEmphasis:           "emphasis",
	KindStrong:             "strong",
	KindDelete:             "delete",
	KindInlineCode:         "inlineCode",
	KindInlineMath:         "inlineMath",
	KindBreak:              "break",
	KindLink:               "link",
	KindImage:              "image",
	KindFootnoteReference:  "footnoteReference",
}

// String returns the mdast type name of k.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// ParseKind maps an mdast type name back to its Kind.
func ParseKind(name string) Kind {
	for k, n := range kindNames {
		if n == name {
			return Kind(k)
		}
	}
	return KindUnknown
}

// Align is a GFM table column alignment.
type Align string

const (
	AlignNone   Align = ""
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// Point is a 1-based line/column location in the tokenized source.
type Point struct {
	Line   int
	Column int
	Offset int
}

// Position is the source span of a node. Nodes synthesized by the streaming
// fixups may not have one.
type Position struct {
	Start Point
	End   Point
}

// Node is a single mdast node. Which fields are meaningful depends on Kind.
type Node struct {
	Kind     Kind
	Children []*Node

	// Value holds the literal content of text, inlineCode, inlineMath, code,
	// math, html and yaml nodes.
	Value string

	Depth   int   // heading
	Ordered bool  // list
	Start   *int  // list
	Spread  bool  // list, listItem
	Checked *bool // listItem

	URL   string // link, image, definition
	Title string // link, image, definition
	Alt   string // image

	Lang string // code
	Meta string // code

	Identifier string // definition, footnoteDefinition, footnoteReference
	Label      string // definition, footnoteDefinition, footnoteReference

	Align []Align // table

	// Finished is nil when the construct was closed normally and points to
	// false when the source ended before the construct was closed.
	Finished *bool

	Position *Position
}

// IsUnfinished reports whether n carries finished == false.
func (n *Node) IsUnfinished() bool {
	return n != nil && n.Finished != nil && !*n.Finished
}

// MarkUnfinished sets finished == false on n.
func (n *Node) MarkUnfinished() {
	f := false
	n.Finished = &f
}

// StartLine returns the first source line of n, or 0 when unknown.
func (n *Node) StartLine() int {
	if n == nil || n.Position == nil {
		return 0
	}
	return n.Position.Start.Line
}

// EndLine returns the last source line of n, or 0 when unknown.
func (n *Node) EndLine() int {
	if n == nil || n.Position == nil {
		return 0
	}
	return n.Position.End.Line
}

// Text concatenates the literal values of n and its descendants.
func Text(n *Node) string {
	if n == nil {
		return ""
	}
	switch n.Kind {
	case KindText, KindInlineCode, KindInlineMath, KindHTML, KindCode, KindMath, KindYAML:
		return n.Value
	case KindBreak:
		return "\n"
	}
	var s string
	for _, c := range n.Children {
		s += Text(c)
	}
	return s
}

// NewText returns a text node.
func NewText(value string) *Node {
	return &Node{Kind: KindText, Value: value}
}

// NewParent returns a node of kind k with the given children.
func NewParent(k Kind, children ...*Node) *Node {
	return &Node{Kind: k, Children: children}
}
