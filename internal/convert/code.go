package convert

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/yosuke-furukawa/json5/encoding/json5"
	"gopkg.in/yaml.v3"

	"github.com/dgallion1/mdschema/internal/doctree"
	"github.com/dgallion1/mdschema/internal/mdast"
	"github.com/dgallion1/mdschema/internal/partialjson"
	"github.com/dgallion1/mdschema/internal/preprocess"
)

// Streaming states reported in data-state.
const (
	stateLoading = "loading"
	stateDone    = "done"
)

var (
	mermaidKinds = []string{
		"graph", "sequenceDiagram", "gantt", "pie", "classDiagram",
		"stateDiagram", "erDiagram", "journey", "gitgraph", "flowchart",
	}
	mermaidDangling = []*regexp.Regexp{
		regexp.MustCompile(`(?i)graph\s*$`),
		regexp.MustCompile(`-->?\s*$`),
	}
)

// code converts a code block. A block followed by more siblings is always
// finished; the last one is finished when its fence closed and, for
// mermaid, when the diagram source is balanced.
func (c *Converter) code(n *mdast.Node, last bool) *doctree.Element {
	state := stateDone
	if n.IsUnfinished() || (n.Lang == "mermaid" && !isMermaidComplete(n.Value)) {
		state = stateLoading
	}
	finish := !last || state == stateDone

	el := &doctree.Element{
		Type:     doctree.TypeCode,
		Language: n.Lang,
		Render:   n.Meta == "render",
		Value:    n.Value,
		IsConfig: strings.HasPrefix(strings.TrimSpace(n.Value), "<!--"),
		Children: doctree.Nodes{doctree.Text(n.Value)},
		OtherProps: doctree.Props{
			"data-block": "true",
			"data-state": state,
			"finish":     finish,
		},
	}
	if n.Lang != "" {
		el.OtherProps["data-language"] = n.Lang
	}
	if last && n.IsUnfinished() {
		el.Finished = doctree.Bool(false)
	}

	switch n.Lang {
	case "mermaid":
		el.Type = doctree.TypeMermaid
	case "katex":
		el.Type = doctree.TypeKatex
	case "schema", "apaasify", "apassify", "agentar-card":
		el.Type = doctree.TypeApaasify
		el.Value = c.schemaValue(n.Value)
	case "think":
		restored := preprocess.RestoreThinkFences(n.Value)
		el.Value = restored
		el.Children = doctree.Nodes{doctree.Text(restored)}
	}
	return el
}

// schemaValue decodes a schema block as JSON5, then as partial JSON. A
// value neither can read is kept as the raw string.
func (c *Converter) schemaValue(raw string) any {
	src := raw
	if strings.TrimSpace(src) == "" {
		src = "[]"
	}
	var v any
	if err := json5.Unmarshal([]byte(src), &v); err == nil {
		return v
	}
	v, err := partialjson.Parse(src)
	if err != nil {
		c.log.Warn("parse schema block", "error", err)
		return raw
	}
	return v
}

// frontmatter converts a yaml header. A mapping is also decoded into
// otherProps.data.
func (c *Converter) frontmatter(n *mdast.Node) *doctree.Element {
	el := &doctree.Element{
		Type:        doctree.TypeCode,
		Language:    "yaml",
		Value:       n.Value,
		Frontmatter: true,
		Children:    doctree.Nodes{doctree.Text(n.Value)},
	}
	var data map[string]any
	if err := yaml.Unmarshal([]byte(n.Value), &data); err != nil {
		c.log.Debug("frontmatter is not a mapping", "error", err)
		return el
	}
	if len(data) > 0 {
		el.OtherProps = doctree.Props{"data": jsonShape(data)}
	}
	return el
}

// jsonShape rewrites the map[any]any values yaml produces for non-string
// keys into map[string]any.
func jsonShape(v any) any {
	switch v := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = jsonShape(e)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[fmt.Sprint(k)] = jsonShape(e)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = jsonShape(e)
		}
		return out
	default:
		return v
	}
}

// isMermaidComplete reports whether a diagram names its kind, has balanced
// brackets and does not end on a dangling arrow.
func isMermaidComplete(code string) bool {
	code = strings.TrimSpace(code)
	if len(code) < 10 {
		return false
	}
	named := false
	for _, k := range mermaidKinds {
		if strings.Contains(code, k) {
			named = true
			break
		}
	}
	if !named || !bracketsBalanced(code) {
		return false
	}
	for _, re := range mermaidDangling {
		if re.MatchString(code) {
			return false
		}
	}
	return true
}

// bracketsBalanced checks (), [] and {} nesting outside double-quoted
// labels. A backslash escapes the next byte.
func bracketsBalanced(code string) bool {
	var stack []byte
	var quote byte
	for i := 0; i < len(code); i++ {
		ch := code[i]
		if ch == '\\' {
			i++
			continue
		}
		if quote != 0 {
			if ch == quote {
				quote = 0
			}
			continue
		}
		switch ch {
		case '"':
			quote = ch
		case '(', '[', '{':
			stack = append(stack, ch)
		case ')', ']', '}':
			if len(stack) == 0 || stack[len(stack)-1] != opener(ch) {
				return false
			}
			stack = stack[:len(stack)-1]
		}
	}
	return len(stack) == 0 && quote == 0
}

func opener(close byte) byte {
	switch close {
	case ')':
		return '('
	case ']':
		return '['
	default:
		return '{'
	}
}
