package htmlx

import (
	"regexp"
	"strings"
)

// standardElements is the allow-list of tags treated as real HTML. Any
// other tag is considered model-invented markup and is unwrapped to its
// text.
var standardElements = map[string]bool{}

func init() {
	for _, group := range [][]string{
		// document
		{"html", "head", "body", "title", "meta", "link", "style", "script"},
		// sections
		{"header", "nav", "main", "section", "article", "aside", "footer", "h1", "h2", "h3", "h4", "h5", "h6"},
		// text blocks
		{"div", "p", "hr", "pre", "blockquote"},
		// lists
		{"ul", "ol", "li", "dl", "dt", "dd"},
		// tables
		{"table", "thead", "tbody", "tfoot", "tr", "th", "td", "caption", "colgroup", "col"},
		// forms
		{"form", "input", "textarea", "button", "select", "option", "label", "fieldset", "legend"},
		// inline text
		{"a", "em", "strong", "small", "mark", "del", "ins", "sub", "sup", "i", "b", "u", "s", "code", "kbd", "samp", "var", "span", "br", "wbr"},
		// media
		{"img", "video", "audio", "source", "track", "iframe", "embed", "object", "param", "picture"},
		// other
		{"canvas", "svg", "math", "details", "summary", "dialog", "menu", "menuitem", "font"},
	} {
		for _, tag := range group {
			standardElements[tag] = true
		}
	}
}

var firstTagName = regexp.MustCompile(`</?(\w+)`)

// IsStandardTag reports whether name (any case) is on the allow-list.
func IsStandardTag(name string) bool {
	return standardElements[strings.ToLower(name)]
}

// IsStandardElement reports whether the first tag in s is on the allow-list.
func IsStandardElement(s string) bool {
	m := firstTagName.FindStringSubmatch(s)
	if m == nil {
		return false
	}
	return IsStandardTag(m[1])
}
