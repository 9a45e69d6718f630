// Package htmlx interprets raw HTML found in Markdown: comment directives,
// media and attachment tags, inline style tags and block fragments.
package htmlx

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/yosuke-furukawa/json5/encoding/json5"

	"github.com/dgallion1/mdschema/internal/doctree"
	"github.com/dgallion1/mdschema/internal/mdast"
	"github.com/dgallion1/mdschema/internal/partialjson"
)

var (
	thinkBlock  = regexp.MustCompile(`^\s*<think>((?s:.*?))</think>\s*$`)
	answerBlock = regexp.MustCompile(`^\s*<answer>((?s:.*?))</answer>\s*$`)
	lineBreak   = regexp.MustCompile(`<br/?>`)
	blockTags   = regexp.MustCompile(`</?(table|div|ul|li|ol|p|strong)[^\n>]*?>`)
	inlineTag   = regexp.MustCompile(`</?(b|i|del|font|code|span|sup|sub|strong|a)(?:\s[^\n>]*?)?/?>`)

	styleAttr     = regexp.MustCompile(`style="([^"\n]+)"`)
	linkHref      = regexp.MustCompile(`href="([\w:./_\-#\\]+)"`)
	fontColor     = regexp.MustCompile(`color="([^"\n]+)"`)
	fontColorBare = regexp.MustCompile(`color=([^"\n]+)`)
)

// Result is the outcome of interpreting one html node.
type Result struct {
	// Nodes holds zero, one, or (for expanded fragments) several nodes.
	Nodes doctree.Nodes
	// Props are the context properties parsed from a comment.
	Props doctree.Props
	// Stack is the inline tag stack after this node.
	Stack Stack
	// Directive is set for a comment whose body is a JSON object. It
	// produces no node; its Props configure the next sibling.
	Directive bool
}

// Handler interprets html nodes.
type Handler struct {
	log *slog.Logger
	*Decoder
}

// New returns a Handler logging to log, or slog.Default when nil.
func New(log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{log: log, Decoder: NewDecoder(log)}
}

// IsBlockContext reports whether html under parent is interpreted as a
// block: at the top level, or directly inside a list item or blockquote.
func IsBlockContext(parent *mdast.Node) bool {
	return parent == nil || parent.Kind == mdast.KindListItem || parent.Kind == mdast.KindBlockquote
}

// Handle interprets n, an html node, given its parent and the tag stack.
func (h *Handler) Handle(n *mdast.Node, parent *mdast.Node, stack Stack) Result {
	trimmed := strings.TrimSpace(n.Value)
	unclosed := strings.HasPrefix(trimmed, "<!--") && !strings.HasSuffix(trimmed, "-->")
	processed := n.Value
	if unclosed {
		processed = trimmed + "-->"
	}

	res := Result{Stack: stack, Props: h.commentProps(processed)}

	var node doctree.Node
	if IsBlockContext(parent) {
		var nodes doctree.Nodes
		node, nodes, res.Directive = h.block(n.Value, processed, unclosed)
		if nodes != nil {
			res.Nodes = nodes
			return res
		}
	} else {
		node, res.Stack = h.inline(n.Value, stack)
	}
	if node == nil {
		return res
	}

	if el, ok := node.(*doctree.Element); ok {
		source := n.Value
		if unclosed {
			source = processed
		}
		el.IsConfig = strings.HasPrefix(strings.TrimSpace(source), "<!--")
		props := res.Props.Clone()
		if unclosed {
			if props == nil {
				props = doctree.Props{}
			}
			props["finished"] = false
		}
		if len(props) > 0 {
			el.OtherProps = props
		}
	}
	res.Nodes = doctree.Nodes{node}
	return res
}

// commentProps parses the body of a closed comment as JSON5, then as
// partial JSON. Anything unparseable yields no props.
func (h *Handler) commentProps(processed string) doctree.Props {
	t := strings.TrimSpace(processed)
	if !strings.HasPrefix(t, "<!--") || !strings.HasSuffix(t, "-->") {
		return nil
	}
	body := strings.TrimSpace(strings.Replace(strings.Replace(processed, "<!--", "", 1), "-->", "", 1))
	if body == "" {
		return nil
	}

	var v any
	if err := json5.Unmarshal([]byte(body), &v); err != nil {
		pv, perr := partialjson.Parse(body)
		if perr != nil {
			h.log.Warn("html comment is not json", "comment", body, "error", perr)
			return nil
		}
		v = pv
	}
	return toProps(v)
}

// toProps spreads an object into a bag. Arrays become index-keyed bags.
func toProps(v any) doctree.Props {
	switch v := v.(type) {
	case map[string]any:
		if len(v) == 0 {
			return nil
		}
		return doctree.Props(v)
	case []any:
		if len(v) == 0 {
			return nil
		}
		p := make(doctree.Props, len(v))
		for i, e := range v {
			p[strconv.Itoa(i)] = e
		}
		return p
	}
	return nil
}

// isObjectComment reports whether a closed comment body is a strict JSON
// object, which is how serialized element properties are written.
func isObjectComment(comment string) bool {
	body := strings.TrimSpace(strings.Replace(strings.Replace(comment, "<!--", "", 1), "-->", "", 1))
	var v any
	if err := json.Unmarshal([]byte(body), &v); err != nil {
		return false
	}
	_, ok := v.(map[string]any)
	return ok
}

func (h *Handler) block(value, processed string, unclosed bool) (node doctree.Node, nodes doctree.Nodes, directive bool) {
	if m := thinkBlock.FindStringSubmatch(value); m != nil {
		content := strings.TrimSpace(m[1])
		return &doctree.Element{
			Type:     doctree.TypeCode,
			Language: "think",
			Value:    content,
			Children: doctree.Nodes{doctree.Text(content)},
		}, nil, false
	}
	if m := answerBlock.FindStringSubmatch(value); m != nil {
		return doctree.Text(strings.TrimSpace(m[1])), nil, false
	}
	if media, ok := FindMedia(value); ok {
		return h.MediaElement(media), nil, false
	}
	if value == "<br/>" {
		return doctree.EmptyParagraph(), nil, false
	}
	if IsMediaEndTag(value) {
		return nil, nil, false
	}

	comment := value
	if unclosed {
		comment = processed
	}
	t := strings.TrimSpace(comment)
	isComment := strings.HasPrefix(t, "<!--") && strings.HasSuffix(t, "-->")
	if isComment && isObjectComment(comment) {
		return nil, nil, true
	}
	if isComment || IsStandardElement(comment) {
		if blockTags.MatchString(comment) {
			if nodes := h.Fragment(comment); len(nodes) > 0 {
				return nil, nodes, false
			}
		}
		return &doctree.Element{
			Type:     doctree.TypeCode,
			Language: "html",
			Render:   true,
			Value:    comment,
			Children: doctree.Nodes{doctree.Text(comment)},
		}, nil, false
	}
	return doctree.Text(value), nil, false
}

func (h *Handler) inline(value string, stack Stack) (doctree.Node, Stack) {
	if lineBreak.MatchString(value) {
		return &doctree.Element{Type: doctree.TypeBreak, Children: doctree.Nodes{doctree.Text("\n")}}, stack
	}
	if m := answerBlock.FindStringSubmatch(value); m != nil {
		return doctree.Text(strings.TrimSpace(m[1])), stack
	}
	if !IsStandardElement(value) {
		return doctree.Text(value), stack
	}
	if loc := inlineTag.FindStringSubmatchIndex(value); loc != nil {
		str, name := value[loc[0]:loc[1]], value[loc[2]:loc[3]]
		if strings.HasPrefix(str, "</") {
			if top, ok := stack.Top(); ok && top.Name == name {
				stack = stack.Pop()
			}
			return nil, stack
		}
		return nil, pushTag(stack, str, name)
	}
	if media, ok := FindMedia(value); ok {
		return h.MediaElement(media), stack
	}
	return doctree.Text(value), stack
}

// pushTag records an opening tag. span, a and font only take effect when
// they carry a color or link; other tags push their name.
func pushTag(stack Stack, str, name string) Stack {
	switch name {
	case "span":
		m := styleAttr.FindStringSubmatch(str)
		if m == nil {
			return stack
		}
		for _, decl := range strings.Split(m[1], ";") {
			k, v, ok := strings.Cut(decl, ":")
			if ok && strings.TrimSpace(k) == "color" && strings.TrimSpace(v) != "" {
				return stack.Push(Tag{Name: name, Color: strings.TrimSpace(v)})
			}
		}
		return stack
	case "a":
		if m := linkHref.FindStringSubmatch(str); m != nil {
			return stack.Push(Tag{Name: name, URL: m[1]})
		}
		return stack
	case "font":
		m := fontColor.FindStringSubmatch(str)
		if m == nil {
			m = fontColorBare.FindStringSubmatch(str)
		}
		if m != nil {
			return stack.Push(Tag{Name: name, Color: strings.ReplaceAll(m[1], ">", "")})
		}
		return stack
	}
	return stack.Push(Tag{Name: name})
}
