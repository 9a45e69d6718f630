package importer

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// HTMLImporter handles HTML files. Headings, paragraphs, lists, quotes,
// preformatted blocks, tables and images map to their Markdown forms;
// navigation chrome and scripts are dropped.
type HTMLImporter struct{}

func (p *HTMLImporter) Import(r io.Reader, filename string) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	var b builder
	body := findElement(doc, "body")
	if body == nil {
		body = doc
	}
	if title := textContent(findElement(doc, "title")); title != "" && findElement(body, "h1") == nil {
		b.heading(1, title)
	}
	htmlBlocks(&b, body)
	return b.String(), nil
}

func htmlBlocks(b *builder, n *html.Node) {
	var run strings.Builder
	flush := func() {
		b.paragraph(run.String())
		run.Reset()
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			run.WriteString(collapseSpace(c.Data))
			continue
		}
		if c.Type != html.ElementNode {
			continue
		}
		if level := headingLevel(c.Data); level > 0 {
			flush()
			b.heading(level, inlineMarkdown(c))
			continue
		}
		switch c.Data {
		case "script", "style", "nav", "footer", "header", "noscript", "template":
		case "p":
			flush()
			b.paragraph(inlineMarkdown(c))
		case "ul", "ol":
			flush()
			b.raw(listMarkdown(c, 0))
		case "blockquote":
			flush()
			var inner builder
			htmlBlocks(&inner, c)
			b.raw(quote(strings.TrimSuffix(inner.String(), "\n")))
		case "pre":
			flush()
			b.raw(fence(textContentRaw(c), codeLanguage(c)))
		case "table":
			flush()
			header, rows := tableRows(c)
			b.table(header, rows)
		case "hr":
			flush()
			b.raw("---")
		case "div", "section", "article", "main", "aside", "figure", "body":
			flush()
			htmlBlocks(b, c)
		default:
			run.WriteString(inlineMarkdown(c))
		}
	}
	flush()
}

// inlineMarkdown renders the inline content of n with emphasis, code,
// links and images.
func inlineMarkdown(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(inlineNode(c))
	}
	return strings.TrimSpace(sb.String())
}

func inlineNode(n *html.Node) string {
	if n.Type == html.TextNode {
		return collapseSpace(n.Data)
	}
	if n.Type != html.ElementNode {
		return ""
	}
	inner := func() string { return inlineMarkdown(n) }
	switch n.Data {
	case "strong", "b":
		return wrapNonEmpty("**", inner())
	case "em", "i":
		return wrapNonEmpty("*", inner())
	case "del", "s", "strike":
		return wrapNonEmpty("~~", inner())
	case "code", "kbd", "samp":
		return wrapNonEmpty("`", textContent(n))
	case "br":
		return "  \n"
	case "a":
		href := attr(n, "href")
		if href == "" {
			return inner()
		}
		return "[" + inner() + "](" + href + ")"
	case "img":
		return "![" + attr(n, "alt") + "](" + attr(n, "src") + ")"
	case "script", "style":
		return ""
	}
	return inner()
}

func listMarkdown(list *html.Node, depth int) string {
	ordered := list.Data == "ol"
	start := 1
	if s, err := strconv.Atoi(attr(list, "start")); err == nil {
		start = s
	}
	indent := strings.Repeat("   ", depth)
	var lines []string
	i := start
	for li := list.FirstChild; li != nil; li = li.NextSibling {
		if li.Type != html.ElementNode || li.Data != "li" {
			continue
		}
		marker := "- "
		if ordered {
			marker = strconv.Itoa(i) + ". "
			i++
		}
		var text strings.Builder
		var nested []string
		for c := li.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && (c.Data == "ul" || c.Data == "ol") {
				nested = append(nested, listMarkdown(c, depth+1))
				continue
			}
			text.WriteString(inlineNode(c))
		}
		lines = append(lines, indent+marker+strings.TrimSpace(text.String()))
		lines = append(lines, nested...)
	}
	return strings.Join(lines, "\n")
}

func tableRows(t *html.Node) (header []string, rows [][]string) {
	var all [][]string
	var headed bool
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.Data {
			case "tr":
				var row []string
				for cell := c.FirstChild; cell != nil; cell = cell.NextSibling {
					if cell.Type == html.ElementNode && (cell.Data == "td" || cell.Data == "th") {
						row = append(row, inlineMarkdown(cell))
						if cell.Data == "th" && len(all) == 0 {
							headed = true
						}
					}
				}
				all = append(all, row)
			case "table":
			default:
				walk(c)
			}
		}
	}
	walk(t)
	if len(all) == 0 {
		return nil, nil
	}
	if !headed {
		width := 0
		for _, r := range all {
			width = max(width, len(r))
		}
		return make([]string, width), all
	}
	return all[0], all[1:]
}

func quote(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l == "" {
			lines[i] = ">"
		} else {
			lines[i] = "> " + l
		}
	}
	return strings.Join(lines, "\n")
}

func fence(code, lang string) string {
	marker := "```"
	for strings.Contains(code, marker) {
		marker += "`"
	}
	return marker + lang + "\n" + strings.TrimRight(code, "\n") + "\n" + marker
}

func codeLanguage(pre *html.Node) string {
	code := findElement(pre, "code")
	if code == nil {
		return ""
	}
	for _, cls := range strings.Fields(attr(code, "class")) {
		if lang, ok := strings.CutPrefix(cls, "language-"); ok {
			return lang
		}
	}
	return ""
}

func wrapNonEmpty(mark, s string) string {
	if strings.TrimSpace(s) == "" {
		return s
	}
	return mark + s + mark
}

func collapseSpace(s string) string {
	if strings.TrimSpace(s) == "" {
		if s == "" {
			return ""
		}
		return " "
	}
	lead := s[0] == ' ' || s[0] == '\n' || s[0] == '\t'
	trail := strings.ContainsAny(s[len(s)-1:], " \n\t")
	out := strings.Join(strings.Fields(s), " ")
	if lead {
		out = " " + out
	}
	if trail {
		out += " "
	}
	return out
}

func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	return strings.TrimSpace(textContentRaw(n))
}

func textContentRaw(n *html.Node) string {
	if n == nil {
		return ""
	}
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
	return buf.String()
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if f := findElement(c, tag); f != nil {
			return f
		}
	}
	return nil
}
