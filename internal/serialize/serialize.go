// Package serialize writes a document tree back out as Markdown. Parsing
// the output again yields the same tree for documents that were complete
// when parsed; streaming flags are not preserved.
package serialize

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/dgallion1/mdschema/internal/doctree"
)

// derivedProps are otherProps the parser computes itself. They are never
// written back into a directive comment.
var derivedProps = map[string]bool{
	"finished":      true,
	"finish":        true,
	"data-block":    true,
	"data-state":    true,
	"data-language": true,
	"target":        true,
	"rel":           true,
	"columns":       true,
	"dataSource":    true,
	"data":          true,
}

// Markdown serializes a list of top-level elements.
func Markdown(nodes doctree.Nodes) string {
	var w writer
	return strings.TrimRight(w.blocks(nodes), "\n") + "\n"
}

type writer struct{}

// blocks writes a sibling list separated by blank lines. An empty
// paragraph stands for one extra blank line pair.
func (w *writer) blocks(nodes doctree.Nodes) string {
	var parts []string
	var prev *doctree.Element
	for _, n := range nodes {
		el, ok := n.(*doctree.Element)
		if !ok {
			parts = append(parts, escapeLineStarts(w.inline(doctree.Nodes{n})))
			prev = nil
			continue
		}
		if isEmptyParagraph(el) {
			parts = append(parts, "")
			prev = el
			continue
		}
		if d := directive(el, prev); d != "" {
			parts = append(parts, d)
		}
		parts = append(parts, w.block(el))
		prev = el
	}
	return strings.Join(parts, "\n\n")
}

func (w *writer) block(el *doctree.Element) string {
	switch el.Type {
	case doctree.TypeParagraph:
		return escapeLineStarts(w.inline(el.Children))
	case doctree.TypeHead:
		level := min(max(el.Level, 1), 6)
		return strings.Repeat("#", level) + " " + strings.ReplaceAll(w.inline(el.Children), "\n", " ")
	case doctree.TypeList:
		return w.list(el)
	case doctree.TypeBlockquote:
		return prefixLines(w.blocks(el.Children), "> ", ">")
	case doctree.TypeCode:
		return w.code(el)
	case doctree.TypeMermaid:
		return fence("mermaid", "", valueString(el.Value))
	case doctree.TypeKatex:
		if el.Language == "katex" {
			return fence("katex", "", valueString(el.Value))
		}
		return "$$\n" + valueString(el.Value) + "\n$$"
	case doctree.TypeApaasify:
		return fence(orDefault(el.Language, "apaasify"), "", schemaSource(el))
	case doctree.TypeCard:
		for _, c := range el.Children {
			if inner, ok := c.(*doctree.Element); ok && inner.Type != doctree.TypeCardBefore && inner.Type != doctree.TypeCardAfter {
				return w.block(inner)
			}
		}
		return ""
	case doctree.TypeTable, doctree.TypeChart:
		return w.table(el)
	case doctree.TypeMedia:
		return media(el)
	case doctree.TypeAttach:
		return fmt.Sprintf(`<a download href="%s" data-size="%d">%s</a>`, el.URL, el.Size, el.Name)
	case doctree.TypeLinkCard:
		return "[" + escapeText(el.Name) + "](" + linkDestination(el.URL) + ` "` + strings.ReplaceAll(el.Name, `"`, `\"`) + `")`
	case doctree.TypeFootnoteDefinition:
		text := escapeText(valueString(el.Value))
		if el.URL != "" {
			text = "[" + text + "](" + linkDestination(el.URL) + ")"
		}
		return "[^" + el.Identifier + "]: " + text
	case doctree.TypeHr:
		return "---"
	case doctree.TypeInlineKatex, doctree.TypeBreak:
		return w.inline(doctree.Nodes{el})
	}
	return w.blocks(el.Children)
}

func (w *writer) code(el *doctree.Element) string {
	value := valueString(el.Value)
	switch {
	case el.Frontmatter:
		return "---\n" + value + "\n---"
	case el.Language == "think":
		return "<think>\n" + value + "\n</think>"
	case el.Language == "html" && el.Render:
		return value
	}
	meta := ""
	if el.Render {
		meta = "render"
	}
	return fence(el.Language, meta, value)
}

func (w *writer) list(el *doctree.Element) string {
	ordered := el.Order != nil && *el.Order
	n := 1
	if el.Start != nil {
		n = *el.Start
	}
	var items []string
	for _, c := range el.Children {
		item, ok := c.(*doctree.Element)
		if !ok || item.Type != doctree.TypeListItem {
			continue
		}
		marker := "- "
		if ordered {
			marker = strconv.Itoa(n) + ". "
			n++
		}
		items = append(items, w.listItem(item, marker))
	}
	return strings.Join(items, "\n")
}

func (w *writer) listItem(item *doctree.Element, marker string) string {
	var lead string
	if item.Checked != nil {
		if *item.Checked {
			lead = "[x] "
		} else {
			lead = "[ ] "
		}
	}
	for _, m := range item.Mentions {
		lead += "[" + escapeText(m.Name) + "](" + linkDestination(m.Avatar) + ")"
	}

	var parts []string
	var prevPara bool
	for i, c := range item.Children {
		el, ok := c.(*doctree.Element)
		var s string
		if ok {
			if i == 0 && isEmptyParagraph(el) {
				s = ""
			} else {
				s = w.block(el)
			}
		} else {
			s = w.inline(doctree.Nodes{c})
		}
		para := ok && el.Type == doctree.TypeParagraph
		if i > 0 && para && prevPara {
			parts = append(parts, "")
		}
		parts = append(parts, s)
		prevPara = para
	}
	lines := strings.Split(lead+strings.Join(parts, "\n"), "\n")
	indent := strings.Repeat(" ", len(marker))
	for i := 1; i < len(lines); i++ {
		if lines[i] != "" {
			lines[i] = indent + lines[i]
		}
	}
	return strings.TrimRight(marker+strings.Join(lines, "\n"), " ")
}

// table writes a GFM table from the rendered cells.
func (w *writer) table(el *doctree.Element) string {
	var rows [][]string
	var aligns []string
	for _, r := range el.Children {
		row, ok := r.(*doctree.Element)
		if !ok || row.Type != doctree.TypeTableRow {
			continue
		}
		var cells []string
		for _, c := range row.Children {
			cell, ok := c.(*doctree.Element)
			if !ok || cell.Type != doctree.TypeTableCell {
				continue
			}
			text := w.inline(cellInline(cell))
			text = strings.ReplaceAll(strings.ReplaceAll(text, "|", `\|`), "\n", "<br>")
			cells = append(cells, text)
			if len(rows) == 0 {
				aligns = append(aligns, cell.Align)
			}
		}
		rows = append(rows, cells)
	}
	if len(rows) == 0 {
		return ""
	}
	var b strings.Builder
	writeRow := func(cells []string) {
		b.WriteString("|")
		for i := range aligns {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			b.WriteString(" " + cell + " |")
		}
		b.WriteString("\n")
	}
	writeRow(rows[0])
	b.WriteString("|")
	for _, a := range aligns {
		switch a {
		case "left":
			b.WriteString(" :--- |")
		case "center":
			b.WriteString(" :---: |")
		case "right":
			b.WriteString(" ---: |")
		default:
			b.WriteString(" --- |")
		}
	}
	b.WriteString("\n")
	for _, r := range rows[1:] {
		writeRow(r)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func cellInline(cell *doctree.Element) doctree.Nodes {
	var out doctree.Nodes
	for _, c := range cell.Children {
		if p, ok := c.(*doctree.Element); ok && p.Type == doctree.TypeParagraph {
			out = append(out, p.Children...)
			continue
		}
		out = append(out, c)
	}
	return out
}

func media(el *doctree.Element) string {
	plain := el.Align == "" && el.Height == 0 && el.Width == 0 && el.Poster == "" &&
		!el.Controls && !el.Autoplay && !el.Loop && !el.Muted
	if el.MediaType == "image" || el.MediaType == "" {
		if plain && !strings.ContainsAny(el.URL, " ()<>") {
			return "![" + escapeText(el.Alt) + "](" + el.URL + ")"
		}
	}
	tag := "img"
	switch el.MediaType {
	case "video":
		tag = "video"
	case "iframe":
		tag = "iframe"
	}
	var b strings.Builder
	b.WriteString("<" + tag + ` src="` + el.URL + `"`)
	if el.Alt != "" {
		b.WriteString(` alt="` + el.Alt + `"`)
	}
	if el.Width > 0 {
		b.WriteString(` width="` + strconv.Itoa(el.Width) + `"`)
	}
	if el.Height > 0 {
		b.WriteString(` height="` + strconv.Itoa(el.Height) + `"`)
	}
	if el.Align != "" {
		b.WriteString(` data-align="` + el.Align + `"`)
	}
	if el.Poster != "" {
		b.WriteString(` poster="` + el.Poster + `"`)
	}
	for _, flag := range []struct {
		on   bool
		name string
	}{{el.Controls, "controls"}, {el.Autoplay, "autoplay"}, {el.Loop, "loop"}, {el.Muted, "muted"}} {
		if flag.on {
			b.WriteString(" " + flag.name)
		}
	}
	if tag == "img" {
		b.WriteString("/>")
	} else {
		b.WriteString("></" + tag + ">")
	}
	return b.String()
}

// directive returns the comment that reproduces el's configuration, or ""
// when el carries none or inherits it from the html comment before it.
func directive(el, prev *doctree.Element) string {
	if el.Type == doctree.TypeCode && el.Language == "html" {
		return ""
	}
	var props map[string]any
	switch el.Type {
	case doctree.TypeCard:
		for _, c := range el.Children {
			if inner, ok := c.(*doctree.Element); ok && (inner.Type == doctree.TypeChart || inner.Type == doctree.TypeTable) {
				return directive(inner, prev)
			}
		}
		return ""
	case doctree.TypeChart:
		switch cfg := el.OtherProps["config"].(type) {
		case map[string]any:
			props = cfg
		case doctree.Props:
			props = cfg
		case nil:
			return ""
		default:
			props = map[string]any{"config": cfg}
		}
	default:
		props = map[string]any{}
		for k, v := range el.OtherProps {
			if !derivedProps[k] {
				props[k] = v
			}
		}
	}
	if len(props) == 0 {
		return ""
	}
	if prev != nil && prev.Type == doctree.TypeCode && prev.Language == "html" && prev.IsConfig &&
		reflect.DeepEqual(map[string]any(prev.OtherProps.Without("finished")), props) {
		return ""
	}
	data, err := json.Marshal(props)
	if err != nil {
		return ""
	}
	return "<!-- " + string(data) + " -->"
}

// inline writes leaves and inline elements.
func (w *writer) inline(nodes doctree.Nodes) string {
	var b strings.Builder
	for _, n := range nodes {
		switch n := n.(type) {
		case *doctree.Leaf:
			b.WriteString(leaf(n))
		case *doctree.Element:
			switch n.Type {
			case doctree.TypeInlineKatex:
				b.WriteString("$" + valueString(n.Value) + "$")
			case doctree.TypeBreak:
				b.WriteString("<br/>")
			case doctree.TypeCard, doctree.TypeMedia:
				b.WriteString(w.block(n))
			default:
				b.WriteString(w.inline(n.Children))
			}
		}
	}
	return b.String()
}

func leaf(l *doctree.Leaf) string {
	if l.Type == doctree.TypeFootnoteReference {
		return "[^" + l.Identifier + "]"
	}
	if l.Text == "\n" && !l.HasMarks() {
		return "\\\n"
	}
	if l.Text == "" {
		return ""
	}

	core := l.Text
	lead, trail := "", ""
	if !l.Code {
		trimmed := strings.TrimLeft(core, " ")
		lead = core[:len(core)-len(trimmed)]
		core = strings.TrimRight(trimmed, " ")
		trail = trimmed[len(core):]
		if core == "" {
			return lead + trail
		}
	}

	var s string
	if l.Code {
		s = codeSpan(l)
	} else {
		s = escapeText(core)
	}
	if l.Strikethrough {
		s = "~~" + s + "~~"
	}
	if l.Italic {
		s = "*" + s + "*"
	}
	if l.Bold {
		s = "**" + s + "**"
	}
	if l.Identifier != "" && l.Identifier == l.Text {
		s = "<sup>" + s + "</sup>"
	}
	switch {
	case l.Color != "":
		s = `<font color="` + l.Color + `">` + s + "</font>"
	case l.HighColor != "":
		s = `<span style="color:` + l.HighColor + `">` + s + "</span>"
	}
	if l.URL != "" {
		s = "[" + s + "](" + linkDestination(l.URL) + ")"
	}
	return lead + s + trail
}

// codeSpan writes an inline code leaf, restoring the ${...} form of
// template tags.
func codeSpan(l *doctree.Leaf) string {
	text := l.Text
	if l.Tag {
		var kv []string
		if l.Placeholder != "" {
			kv = append(kv, "placeholder:"+l.Placeholder)
		}
		if l.InitialValue != "" {
			kv = append(kv, "initialValue:"+l.InitialValue)
		}
		text = "${" + strings.Join(kv, ",") + "}"
	}
	ticks := "`"
	for strings.Contains(text, ticks) {
		ticks += "`"
	}
	if strings.HasPrefix(text, "`") || strings.HasSuffix(text, "`") {
		return ticks + " " + text + " " + ticks
	}
	return ticks + text + ticks
}

var textEscaper = strings.NewReplacer(
	`\`, `\\`,
	"*", `\*`,
	"_", `\_`,
	"`", "\\`",
	"[", `\[`,
	"]", `\]`,
	"~", `\~`,
	"<", "&lt;",
)

func escapeText(s string) string {
	return textEscaper.Replace(s)
}

var blockStart = regexp.MustCompile(`^( {0,3})(#|>|\||[-+] |-+\s*$|\+$|=+\s*$|\d+[.)](?: |$))`)

// escapeLineStarts keeps paragraph lines from being read as headings,
// quotes, list items or table rows.
func escapeLineStarts(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if m := blockStart.FindStringSubmatchIndex(l); m != nil {
			at := m[3]
			if l[at] >= '0' && l[at] <= '9' {
				digits := at
				for digits < len(l) && l[digits] >= '0' && l[digits] <= '9' {
					digits++
				}
				lines[i] = l[:digits] + `\` + l[digits:]
				continue
			}
			lines[i] = l[:at] + `\` + l[at:]
		}
	}
	return strings.Join(lines, "\n")
}

func linkDestination(u string) string {
	if strings.ContainsAny(u, " ()<>") {
		return "<" + strings.ReplaceAll(u, ">", "%3E") + ">"
	}
	return u
}

func fence(lang, meta, value string) string {
	marker := "```"
	for strings.Contains(value, marker) {
		marker += "`"
	}
	info := lang
	if meta != "" {
		info += " " + meta
	}
	return marker + info + "\n" + value + "\n" + marker
}

func prefixLines(s, prefix, emptyPrefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l == "" {
			lines[i] = emptyPrefix
		} else {
			lines[i] = prefix + l
		}
	}
	return strings.Join(lines, "\n")
}

func isEmptyParagraph(el *doctree.Element) bool {
	if el.Type != doctree.TypeParagraph || len(el.Children) != 1 || len(el.OtherProps) > 0 {
		return false
	}
	l, ok := el.Children[0].(*doctree.Leaf)
	return ok && l.Text == "" && !l.HasMarks()
}

func valueString(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return jsonValue(v)
	}
}

// jsonValue writes a decoded schema value as indented JSON with sorted
// keys. Strings that never decoded are written as they are.
func jsonValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

// schemaSource prefers the block's original text, kept as its child leaf,
// over re-encoding the decoded value.
func schemaSource(el *doctree.Element) string {
	if len(el.Children) == 1 {
		if l, ok := el.Children[0].(*doctree.Leaf); ok && strings.TrimSpace(l.Text) != "" {
			return l.Text
		}
	}
	return jsonValue(el.Value)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
