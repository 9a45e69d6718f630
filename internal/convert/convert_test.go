package convert

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dgallion1/mdschema/internal/doctree"
	"github.com/dgallion1/mdschema/internal/mdast"
	"github.com/dgallion1/mdschema/internal/plugin"
	"github.com/dgallion1/mdschema/internal/tokenizer"
)

func convert(t *testing.T, md string, cfg Config, rules ...plugin.Rule) doctree.Nodes {
	t.Helper()
	return New(cfg, rules, nil).Convert(tokenizer.New().Parse(md))
}

func element(t *testing.T, n doctree.Node, typ string) *doctree.Element {
	t.Helper()
	el, ok := n.(*doctree.Element)
	if !ok {
		t.Fatalf("expected %s element, got %#v", typ, n)
	}
	if el.Type != typ {
		t.Fatalf("expected type %q, got %q", typ, el.Type)
	}
	return el
}

func leaf(t *testing.T, n doctree.Node) *doctree.Leaf {
	t.Helper()
	l, ok := n.(*doctree.Leaf)
	if !ok {
		t.Fatalf("expected leaf, got %#v", n)
	}
	return l
}

func TestStrongAroundAmount(t *testing.T) {
	out := convert(t, "**$9.698M**", Config{})
	p := element(t, out[0], doctree.TypeParagraph)
	if len(p.Children) != 1 {
		t.Fatalf("expected one leaf, got %d", len(p.Children))
	}
	l := leaf(t, p.Children[0])
	if !l.Bold || l.Text != "$9.698M" {
		t.Errorf("expected bold %q, got %+v", "$9.698M", l)
	}
}

func TestUnterminatedStrongIsUnfinished(t *testing.T) {
	out := convert(t, "**unterminated", Config{})
	p := element(t, out[0], doctree.TypeParagraph)
	l := leaf(t, p.Children[0])
	if !l.Bold || l.Text != "unterminated" {
		t.Errorf("expected bold %q, got %+v", "unterminated", l)
	}
	if !l.IsUnfinished() {
		t.Errorf("expected finished=false, got %v", l.OtherProps)
	}
}

func TestInlineMath(t *testing.T) {
	out := convert(t, "$100$", Config{})
	p := element(t, out[0], doctree.TypeParagraph)
	if got := leaf(t, p.Children[0]).Text; got != "$100$" {
		t.Errorf("expected %q, got %q", "$100$", got)
	}

	out = convert(t, "$a^2+b^2=c^2$", Config{})
	p = element(t, out[0], doctree.TypeParagraph)
	k := element(t, p.Children[0], doctree.TypeInlineKatex)
	if k.Value != "a^2+b^2=c^2" {
		t.Errorf("expected %q, got %v", "a^2+b^2=c^2", k.Value)
	}
}

func TestShouldTreatInlineMathAsText(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"", true},
		{"100", true},
		{"1,234.5", true},
		{"-3.2%", true},
		{"9.698M", true},
		{"12万", true},
		{"x", false},
		{"a^2", false},
		{"10_000", false},
		{"\\frac{1}{2}", false},
		{"1,23", false},
	}
	for _, tt := range tests {
		if got := ShouldTreatInlineMathAsText(tt.value); got != tt.want {
			t.Errorf("ShouldTreatInlineMathAsText(%q): expected %v, got %v", tt.value, tt.want, got)
		}
	}
}

func TestChartFromComment(t *testing.T) {
	md := "<!-- {\"chartType\":\"line\",\"x\":\"年份\",\"y\":\"值\"} -->\n| 年份 | 值 |\n|---|---|\n| 2020 | 8 |\n| 2021 | 10 |\n"
	out := convert(t, md, Config{})
	if len(out) != 1 {
		t.Fatalf("expected one node, got %d: %#v", len(out), out)
	}
	card := element(t, out[0], doctree.TypeCard)
	chart := element(t, card.Children[1], doctree.TypeChart)
	source, ok := chart.OtherProps["dataSource"].([]any)
	if !ok || len(source) != 2 {
		t.Fatalf("expected two data rows, got %#v", chart.OtherProps["dataSource"])
	}
	first := source[0].(map[string]any)
	if first["年份"] != "2020" {
		t.Errorf("expected %q, got %v", "2020", first["年份"])
	}
}

func TestTableWithoutDirective(t *testing.T) {
	out := convert(t, "| name | n |\n|---|---|\n| a | 8 |\n| b | 10 |\n| c | 12 |\n", Config{})
	card := element(t, out[0], doctree.TypeCard)
	tbl := element(t, card.Children[1], doctree.TypeTable)
	row := element(t, tbl.Children[1], doctree.TypeTableRow)
	if got := element(t, row.Children[1], doctree.TypeTableCell).Align; got != "right" {
		t.Errorf("expected numeric column aligned right, got %q", got)
	}
	if got := element(t, row.Children[0], doctree.TypeTableCell).Align; got != "" {
		t.Errorf("expected text column unaligned, got %q", got)
	}
}

func TestCommentDirectiveAligns(t *testing.T) {
	out := convert(t, "<!-- {\"align\":\"center\"} -->\n\ntext", Config{})
	if len(out) != 1 {
		t.Fatalf("expected the comment to produce no node, got %d", len(out))
	}
	p := element(t, out[0], doctree.TypeParagraph)
	if p.Align != "center" {
		t.Errorf("expected center, got %q", p.Align)
	}
	if diff := cmp.Diff(doctree.Props{"align": "center"}, p.ContextProps); diff != "" {
		t.Errorf("context props mismatch (-want +got):\n%s", diff)
	}
}

func TestContextPropsFollowSiblings(t *testing.T) {
	out := convert(t, "<!-- {\"tone\":\"info\"} -->\n\n- item\n\nfirst\n\nsecond", Config{})
	var tops []*doctree.Element
	for _, n := range out {
		if el, ok := n.(*doctree.Element); ok && doctree.PlainText(el) != "" {
			tops = append(tops, el)
		}
	}
	if len(tops) != 3 {
		t.Fatalf("expected list and two paragraphs, got %d elements", len(tops))
	}
	for i, el := range tops {
		if el.ContextProps.String("tone") != "info" {
			t.Errorf("element %d: expected context props, got %v", i, el.ContextProps)
		}
	}
	doctree.Walk(tops[0], func(n doctree.Node) bool {
		if el, ok := n.(*doctree.Element); ok && el != tops[0] && len(el.ContextProps) > 0 {
			t.Errorf("nested %s picked up context props %v", el.Type, el.ContextProps)
		}
		return true
	})
}

func TestCodeFinish(t *testing.T) {
	out := convert(t, "```js\nx := 1\n```\n\ntext", Config{})
	code := element(t, out[0], doctree.TypeCode)
	if code.OtherProps["finish"] != true || code.OtherProps["data-state"] != "done" {
		t.Errorf("expected finished code, got %v", code.OtherProps)
	}
	if code.OtherProps["data-language"] != "js" {
		t.Errorf("expected data-language js, got %v", code.OtherProps["data-language"])
	}

	out = convert(t, "```python\nprint(1)\n", Config{})
	code = element(t, out[0], doctree.TypeCode)
	if code.OtherProps["finish"] != false || code.OtherProps["data-state"] != "loading" {
		t.Errorf("expected loading code, got %v", code.OtherProps)
	}
	if !code.IsUnfinished() {
		t.Error("expected last open fence to be unfinished")
	}
}

func TestStreamingSchemaBlock(t *testing.T) {
	out := convert(t, "```schema\n{\"type\": \"card\", \"items\": [1, 2", Config{})
	el := element(t, out[0], doctree.TypeApaasify)
	want := map[string]any{"type": "card", "items": []any{float64(1), float64(2)}}
	if diff := cmp.Diff(want, el.Value); diff != "" {
		t.Errorf("schema value mismatch (-want +got):\n%s", diff)
	}
}

func TestCodeLanguages(t *testing.T) {
	out := convert(t, "```apaasify\n{a: 1}\n```\n", Config{})
	el := element(t, out[0], doctree.TypeApaasify)
	if diff := cmp.Diff(map[string]any{"a": float64(1)}, el.Value); diff != "" {
		t.Errorf("apaasify value mismatch (-want +got):\n%s", diff)
	}
	if got := leaf(t, el.Children[0]).Text; got != "{a: 1}" {
		t.Errorf("expected raw text child, got %q", got)
	}

	out = convert(t, "```mermaid\ngraph TD\n  A-->B\n```\n", Config{})
	m := element(t, out[0], doctree.TypeMermaid)
	if m.OtherProps["data-state"] != "done" {
		t.Errorf("expected complete diagram, got %v", m.OtherProps["data-state"])
	}

	out = convert(t, "```mermaid\ngraph TD\n  A-->\n```\n", Config{})
	m = element(t, out[0], doctree.TypeMermaid)
	if m.OtherProps["data-state"] != "loading" {
		t.Errorf("expected dangling arrow to be loading, got %v", m.OtherProps["data-state"])
	}
}

func TestBracketsBalanced(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"A[x] --> B(y)", true},
		{"A[\"a ] b\"] --> B", true},
		{"A[x --> B", false},
		{"A(x]", false},
		{"{ \\} }", true},
	}
	for _, tt := range tests {
		if got := bracketsBalanced(tt.code); got != tt.want {
			t.Errorf("bracketsBalanced(%q): expected %v, got %v", tt.code, tt.want, got)
		}
	}
}

func TestFrontmatter(t *testing.T) {
	out := convert(t, "---\ntitle: Hi\ntags: [a, b]\n---\n\nBody", Config{})
	code := element(t, out[0], doctree.TypeCode)
	if !code.Frontmatter || code.Language != "yaml" {
		t.Fatalf("expected yaml frontmatter, got %+v", code)
	}
	want := map[string]any{"title": "Hi", "tags": []any{"a", "b"}}
	if diff := cmp.Diff(want, code.OtherProps["data"]); diff != "" {
		t.Errorf("frontmatter data mismatch (-want +got):\n%s", diff)
	}
}

func TestMathBlock(t *testing.T) {
	out := convert(t, "$$\nx^2\n$$\n", Config{})
	k := element(t, out[0], doctree.TypeKatex)
	if k.Value != "x^2" || !k.Katex || k.Language != "latex" {
		t.Errorf("unexpected katex element %+v", k)
	}
}

func TestTaskList(t *testing.T) {
	out := convert(t, "- [x] done\n- [ ] todo\n", Config{})
	list := element(t, out[0], doctree.TypeList)
	if !list.Task {
		t.Error("expected task list")
	}
	if list.Order == nil || *list.Order {
		t.Error("expected unordered list")
	}
	first := element(t, list.Children[0], doctree.TypeListItem)
	if first.Checked == nil || !*first.Checked {
		t.Error("expected first item checked")
	}
}

func TestOrderedListStart(t *testing.T) {
	out := convert(t, "3. c\n4. d\n", Config{})
	list := element(t, out[0], doctree.TypeList)
	if list.Start == nil || *list.Start != 3 {
		t.Errorf("expected start 3, got %v", list.Start)
	}
}

func TestListItemMention(t *testing.T) {
	out := convert(t, "- [Bob](https://x.test/a.png?id=42) says hi\n", Config{})
	list := element(t, out[0], doctree.TypeList)
	item := element(t, list.Children[0], doctree.TypeListItem)
	want := []doctree.Mention{{Avatar: "https://x.test/a.png?id=42", Name: "Bob", ID: "42"}}
	if diff := cmp.Diff(want, item.Mentions); diff != "" {
		t.Errorf("mentions mismatch (-want +got):\n%s", diff)
	}
	p := element(t, item.Children[0], doctree.TypeParagraph)
	if got := doctree.PlainText(p); got != " says hi" {
		t.Errorf("expected mention removed, got %q", got)
	}
}

func TestEmptyLines(t *testing.T) {
	out := convert(t, "a\n\n\n\n\n\nb", Config{})
	if len(out) != 4 {
		t.Fatalf("expected 4 nodes, got %d", len(out))
	}
	for _, n := range out[1:3] {
		if got := doctree.PlainText(element(t, n, doctree.TypeParagraph)); got != "" {
			t.Errorf("expected empty paragraph, got %q", got)
		}
	}
}

func TestLinkTarget(t *testing.T) {
	out := convert(t, "[site](https://example.com)", Config{OpenLinksInNewTab: true})
	p := element(t, out[0], doctree.TypeParagraph)
	l := leaf(t, p.Children[0])
	if l.URL != "https://example.com" || l.Text != "site" {
		t.Fatalf("unexpected link leaf %+v", l)
	}
	if l.OtherProps.String("target") != "_blank" || l.OtherProps.String("rel") != "noopener noreferrer" {
		t.Errorf("expected new tab props, got %v", l.OtherProps)
	}

	out = convert(t, "[site](https://example.com)", Config{})
	l = leaf(t, element(t, out[0], doctree.TypeParagraph).Children[0])
	if l.OtherProps != nil {
		t.Errorf("expected no props, got %v", l.OtherProps)
	}
}

func TestInlineFontTag(t *testing.T) {
	out := convert(t, "<font color=\"red\">hot</font> stuff", Config{})
	p := element(t, out[0], doctree.TypeParagraph)
	want := doctree.Nodes{
		&doctree.Leaf{Text: "hot", Color: "red", HighColor: "red"},
		&doctree.Leaf{Text: " stuff"},
	}
	if diff := cmp.Diff(want, p.Children); diff != "" {
		t.Errorf("children mismatch (-want +got):\n%s", diff)
	}
}

func TestImageSplitsParagraph(t *testing.T) {
	out := convert(t, "before ![a](b.png) after", Config{})
	if len(out) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(out))
	}
	element(t, out[0], doctree.TypeParagraph)
	card := element(t, out[1], doctree.TypeCard)
	media := element(t, card.Children[1], doctree.TypeMedia)
	if media.URL != "b.png" || media.Alt != "a" {
		t.Errorf("unexpected media %+v", media)
	}
	element(t, out[2], doctree.TypeParagraph)
}

func TestInlineCodeTag(t *testing.T) {
	tests := []struct {
		value string
		want  doctree.Leaf
	}{
		{"x", doctree.Leaf{Text: "x", Code: true}},
		{"${placeholder:目标场景,initialValue:已选择}", doctree.Leaf{Text: "已选择", Code: true, Tag: true, Placeholder: "目标场景", InitialValue: "已选择"}},
		{"${placeholder:目标场景}", doctree.Leaf{Text: " ", Code: true, Tag: true, Placeholder: "目标场景"}},
		{"${}", doctree.Leaf{Text: " ", Code: true, Tag: true}},
	}
	for _, tt := range tests {
		var got doctree.Leaf
		inlineCode(&got, tt.value)
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("inlineCode(%q) mismatch (-want +got):\n%s", tt.value, diff)
		}
	}
}

func TestFootnotes(t *testing.T) {
	out := convert(t, "See[^a].\n\n[^a]: The note\n", Config{})
	p := element(t, out[0], doctree.TypeParagraph)
	var ref *doctree.Leaf
	for _, c := range p.Children {
		if l, ok := c.(*doctree.Leaf); ok && l.Type == doctree.TypeFootnoteReference {
			ref = l
		}
	}
	if ref == nil || ref.Text != "A" || ref.Identifier != "a" {
		t.Fatalf("expected footnote reference A, got %#v", p.Children)
	}
	def := element(t, out[len(out)-1], doctree.TypeFootnoteDefinition)
	if def.Value != "The note" {
		t.Errorf("expected %q, got %v", "The note", def.Value)
	}
}

func TestPluginReplacesDefault(t *testing.T) {
	rule := plugin.Func{
		ID:      "headings",
		MatchFn: func(n *mdast.Node) bool { return n.Kind == mdast.KindHeading },
		ConvertFn: func(n *mdast.Node) doctree.Node {
			return doctree.Paragraph(doctree.Text("H:" + mdast.Text(n)))
		},
	}
	out := convert(t, "# Title\n\nbody", Config{}, rule)
	if got := doctree.PlainText(element(t, out[0], doctree.TypeParagraph)); got != "H:Title" {
		t.Errorf("expected %q, got %q", "H:Title", got)
	}
	element(t, out[1], doctree.TypeParagraph)
}

func TestEmptyDocument(t *testing.T) {
	out := convert(t, "", Config{})
	if len(out) != 1 {
		t.Fatalf("expected one node, got %d", len(out))
	}
	if got := doctree.PlainText(element(t, out[0], doctree.TypeParagraph)); got != "" {
		t.Errorf("expected empty paragraph, got %q", got)
	}
}
