package htmlx

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/dgallion1/mdschema/internal/doctree"
)

// Fragment converts a block HTML fragment into document elements. Inline
// content at the top level is gathered into paragraphs.
func (h *Handler) Fragment(src string) doctree.Nodes {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(src), body)
	if err != nil {
		h.log.Warn("parse html fragment", "error", err)
		return nil
	}
	for _, n := range nodes {
		body.AppendChild(n)
	}
	return h.blocks(body)
}

// blocks converts the children of n, wrapping runs of inline content in
// paragraphs.
func (h *Handler) blocks(n *html.Node) doctree.Nodes {
	var out doctree.Nodes
	var run doctree.Nodes
	flush := func() {
		if len(run) > 0 && strings.TrimSpace(leafText(run)) != "" {
			out = append(out, doctree.Paragraph(run...))
		}
		run = nil
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.CommentNode {
			continue
		}
		if c.Type == html.ElementNode && isBlockElement(c.Data) {
			flush()
			out = append(out, h.fragmentBlock(c)...)
			continue
		}
		run = append(run, h.inlines(c, doctree.Leaf{})...)
	}
	flush()
	return out
}

func (h *Handler) fragmentBlock(n *html.Node) doctree.Nodes {
	switch n.Data {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		return doctree.Nodes{&doctree.Element{
			Type:     doctree.TypeHead,
			Level:    headingLevel(n.Data),
			Children: h.inlineChildren(n),
		}}
	case "p":
		return doctree.Nodes{doctree.Paragraph(h.inlineChildren(n)...)}
	case "ul", "ol":
		list := &doctree.Element{Type: doctree.TypeList, Order: doctree.Bool(n.Data == "ol")}
		if n.Data == "ol" {
			if start := attr(n, "start"); start != "" {
				list.Start = doctree.Int(atoiOr(start, 1))
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.Data == "li" {
				list.Children = append(list.Children, h.listItem(c))
			}
		}
		if len(list.Children) == 0 {
			return nil
		}
		return doctree.Nodes{list}
	case "li":
		return doctree.Nodes{h.listItem(n)}
	case "blockquote":
		children := h.blocks(n)
		if len(children) == 0 {
			children = doctree.Nodes{doctree.EmptyParagraph()}
		}
		return doctree.Nodes{&doctree.Element{Type: doctree.TypeBlockquote, Children: children}}
	case "pre":
		code := textContent(n)
		lang := ""
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.Data == "code" {
				lang = strings.TrimPrefix(attr(c, "class"), "language-")
			}
		}
		return doctree.Nodes{&doctree.Element{
			Type:     doctree.TypeCode,
			Language: lang,
			Value:    code,
			Children: doctree.Nodes{doctree.Text(code)},
		}}
	case "hr":
		return doctree.Nodes{doctree.NewElement(doctree.TypeHr)}
	case "table":
		return doctree.Nodes{h.table(n)}
	case "img", "video", "iframe":
		return doctree.Nodes{h.MediaElement(mediaFromNode(n))}
	}
	return h.blocks(n)
}

func (h *Handler) listItem(n *html.Node) *doctree.Element {
	children := h.blocks(n)
	if len(children) == 0 {
		children = doctree.Nodes{doctree.EmptyParagraph()}
	}
	return &doctree.Element{Type: doctree.TypeListItem, Children: children}
}

func (h *Handler) table(n *html.Node) *doctree.Element {
	var rows []*html.Node
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			if c.Data == "tr" {
				rows = append(rows, c)
				continue
			}
			collect(c)
		}
	}
	collect(n)

	t := &doctree.Element{Type: doctree.TypeTable}
	for r, row := range rows {
		tr := &doctree.Element{Type: doctree.TypeTableRow}
		col := 0
		for c := row.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode || (c.Data != "td" && c.Data != "th") {
				continue
			}
			cell := &doctree.Element{
				Type:     doctree.TypeTableCell,
				Title:    r == 0,
				Rows:     r,
				Cols:     col,
				Children: doctree.Nodes{doctree.Paragraph(h.inlineChildren(c)...)},
			}
			if span := atoiOr(attr(c, "rowspan"), 1); span > 1 {
				cell.RowSpan = span
			}
			if span := atoiOr(attr(c, "colspan"), 1); span > 1 {
				cell.ColSpan = span
			}
			tr.Children = append(tr.Children, cell)
			col++
		}
		t.Children = append(t.Children, tr)
	}
	if len(t.Children) == 0 {
		t.Children = doctree.Nodes{doctree.Text("")}
	}
	return doctree.WrapCard(t)
}

func (h *Handler) inlineChildren(n *html.Node) doctree.Nodes {
	var out doctree.Nodes
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, h.inlines(c, doctree.Leaf{})...)
	}
	if len(out) == 0 {
		return doctree.Nodes{doctree.Text("")}
	}
	return out
}

// inlines lowers an inline subtree into leaves carrying the marks of its
// enclosing tags.
func (h *Handler) inlines(n *html.Node, marks doctree.Leaf) doctree.Nodes {
	switch n.Type {
	case html.TextNode:
		if n.Data == "" {
			return nil
		}
		l := marks
		l.Text = n.Data
		return doctree.Nodes{&l}
	case html.ElementNode:
	default:
		return nil
	}

	switch n.Data {
	case "br":
		l := marks
		l.Text = "\n"
		return doctree.Nodes{&l}
	case "img", "video", "iframe":
		return doctree.Nodes{h.MediaElement(mediaFromNode(n))}
	case "b", "strong":
		marks.Bold = true
	case "i", "em":
		marks.Italic = true
	case "del", "s":
		marks.Strikethrough = true
	case "code":
		marks.Code = true
	case "a":
		marks.URL = attr(n, "href")
	case "font":
		if c := attr(n, "color"); c != "" {
			marks.Color = c
			marks.HighColor = c
		}
	case "span":
		if c := styleColor(attr(n, "style")); c != "" {
			marks.HighColor = c
		}
	case "sup", "sub":
		marks.Identifier = textContent(n)
	}
	var out doctree.Nodes
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, h.inlines(c, marks)...)
	}
	return out
}

func isBlockElement(tag string) bool {
	switch tag {
	case "p", "div", "ul", "ol", "li", "table", "blockquote", "pre", "hr",
		"h1", "h2", "h3", "h4", "h5", "h6", "section", "article", "header", "footer", "details",
		"img", "video", "iframe":
		return true
	}
	return false
}

func mediaFromNode(n *html.Node) Media {
	m := Media{
		Tag:      n.Data,
		URL:      attr(n, "src"),
		Alt:      attr(n, "alt"),
		Align:    attr(n, "data-align"),
		Poster:   attr(n, "poster"),
		Height:   atoiOr(attr(n, "height"), 0),
		Width:    atoiOr(attr(n, "width"), 0),
		Controls: hasAttr(n, "controls"),
		Autoplay: hasAttr(n, "autoplay"),
		Loop:     hasAttr(n, "loop"),
		Muted:    hasAttr(n, "muted"),
	}
	if m.URL == "" && n.Data == "video" {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.Data == "source" {
				m.URL = attr(c, "src")
				break
			}
		}
	}
	return m
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func styleColor(style string) string {
	for _, decl := range strings.Split(style, ";") {
		k, v, ok := strings.Cut(decl, ":")
		if ok && strings.TrimSpace(k) == "color" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func atoiOr(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}

func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(buf.String())
}

func leafText(ns doctree.Nodes) string {
	var b strings.Builder
	for _, n := range ns {
		b.WriteString(doctree.PlainText(n))
	}
	return b.String()
}
