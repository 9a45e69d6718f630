// Package doctree is the editor document model produced by the converter:
// a tree of typed elements whose terminal nodes are styled text leaves.
package doctree

// Element types.
const (
	TypeParagraph          = "paragraph"
	TypeHead               = "head"
	TypeList               = "list"
	TypeListItem           = "list-item"
	TypeBlockquote         = "blockquote"
	TypeCode               = "code"
	TypeMermaid            = "mermaid"
	TypeApaasify           = "apaasify"
	TypeKatex              = "katex"
	TypeInlineKatex        = "inline-katex"
	TypeTable              = "table"
	TypeChart              = "chart"
	TypeTableRow           = "table-row"
	TypeTableCell          = "table-cell"
	TypeCard               = "card"
	TypeCardBefore         = "card-before"
	TypeCardAfter          = "card-after"
	TypeMedia              = "media"
	TypeAttach             = "attach"
	TypeLinkCard           = "link-card"
	TypeFootnoteDefinition = "footnoteDefinition"
	TypeFootnoteReference  = "footnoteReference"
	TypeHr                 = "hr"
	TypeBreak              = "break"
)

// Node is an *Element or a *Leaf.
type Node interface {
	isNode()
}

// Mention is an avatar reference lifted out of a list item.
type Mention struct {
	Avatar string `json:"avatar,omitempty"`
	Name   string `json:"name"`
	ID     string `json:"id,omitempty"`
}

// Element is a typed block or inline container. Which fields are set
// depends on Type.
type Element struct {
	Type string `json:"type"`

	Level    int       `json:"level,omitempty"`
	Order    *bool     `json:"order,omitempty"`
	Start    *int      `json:"start,omitempty"`
	Task     bool      `json:"task,omitempty"`
	Checked  *bool     `json:"checked,omitempty"`
	Mentions []Mention `json:"mentions,omitempty"`

	Language    string `json:"language,omitempty"`
	Render      bool   `json:"render,omitempty"`
	Value       any    `json:"value,omitempty"`
	IsConfig    bool   `json:"isConfig,omitempty"`
	Frontmatter bool   `json:"frontmatter,omitempty"`
	Katex       bool   `json:"katex,omitempty"`

	URL       string `json:"url,omitempty"`
	Alt       string `json:"alt,omitempty"`
	Name      string `json:"name,omitempty"`
	Size      int64  `json:"size,omitempty"`
	MediaType string `json:"mediaType,omitempty"`
	Height    int    `json:"height,omitempty"`
	Width     int    `json:"width,omitempty"`
	Controls  bool   `json:"controls,omitempty"`
	Autoplay  bool   `json:"autoplay,omitempty"`
	Loop      bool   `json:"loop,omitempty"`
	Muted     bool   `json:"muted,omitempty"`
	Poster    string `json:"poster,omitempty"`

	Align      string `json:"align,omitempty"`
	Identifier string `json:"identifier,omitempty"`

	// Table cell layout.
	Title   bool `json:"title,omitempty"`
	Rows    int  `json:"rows,omitempty"`
	Cols    int  `json:"cols,omitempty"`
	RowSpan int  `json:"rowSpan,omitempty"`
	ColSpan int  `json:"colSpan,omitempty"`
	Hidden  bool `json:"hidden,omitempty"`

	// Finished is false while the element's source is still open.
	Finished *bool `json:"finished,omitempty"`

	OtherProps   Props  `json:"otherProps,omitempty"`
	ContextProps Props  `json:"contextProps,omitempty"`
	Hash         string `json:"hash,omitempty"`

	Children Nodes `json:"children"`
}

func (*Element) isNode() {}

// Leaf is a run of text with optional marks.
type Leaf struct {
	Text string `json:"text"`

	// Type is only set on footnote references, which render as a leaf.
	Type string `json:"type,omitempty"`

	Bold          bool   `json:"bold,omitempty"`
	Italic        bool   `json:"italic,omitempty"`
	Strikethrough bool   `json:"strikethrough,omitempty"`
	Code          bool   `json:"code,omitempty"`
	URL           string `json:"url,omitempty"`
	Color         string `json:"color,omitempty"`
	HighColor     string `json:"highColor,omitempty"`
	Identifier    string `json:"identifier,omitempty"`

	Tag          bool   `json:"tag,omitempty"`
	Placeholder  string `json:"placeholder,omitempty"`
	InitialValue string `json:"initialValue,omitempty"`

	OtherProps   Props  `json:"otherProps,omitempty"`
	ContextProps Props  `json:"contextProps,omitempty"`
	Hash         string `json:"hash,omitempty"`
}

func (*Leaf) isNode() {}

// HasMarks reports whether any formatting would survive on an empty leaf.
func (l *Leaf) HasMarks() bool {
	return l.Bold || l.Italic || l.Strikethrough || l.URL != "" || l.Code || l.IsUnfinished()
}

// IsUnfinished reports whether the leaf carries otherProps.finished == false.
func (l *Leaf) IsUnfinished() bool {
	return l.OtherProps.IsUnfinished()
}

// IsUnfinished reports whether the element is flagged as still streaming,
// either directly or through otherProps.
func (e *Element) IsUnfinished() bool {
	if e.Finished != nil && !*e.Finished {
		return true
	}
	return e.OtherProps.IsUnfinished()
}

// Text returns a plain leaf.
func Text(s string) *Leaf {
	return &Leaf{Text: s}
}

// NewElement returns an element of the given type. An element always has at
// least one child; an empty text leaf is used when none are given.
func NewElement(typ string, children ...Node) *Element {
	if len(children) == 0 {
		children = Nodes{Text("")}
	}
	return &Element{Type: typ, Children: children}
}

// EmptyParagraph returns a paragraph holding a single empty leaf.
func EmptyParagraph() *Element {
	return NewElement(TypeParagraph)
}

// Paragraph returns a paragraph of the given children.
func Paragraph(children ...Node) *Element {
	return NewElement(TypeParagraph, children...)
}

// WrapCard wraps inner in a card with the drag-handle sentinels either side.
func WrapCard(inner *Element) *Element {
	return &Element{
		Type: TypeCard,
		Children: Nodes{
			NewElement(TypeCardBefore),
			inner,
			NewElement(TypeCardAfter),
		},
	}
}

// CardSentinels returns the before/after children used by attachment and
// link-card elements, which carry their payload on the element itself.
func CardSentinels() Nodes {
	return Nodes{NewElement(TypeCardBefore), NewElement(TypeCardAfter)}
}

// Bool returns a pointer to b.
func Bool(b bool) *bool {
	return &b
}

// Int returns a pointer to i.
func Int(i int) *int {
	return &i
}
