package tokenizer

import (
	"testing"

	"github.com/dgallion1/mdschema/internal/mdast"
)

func kinds(nodes []*mdast.Node) []mdast.Kind {
	var out []mdast.Kind
	for _, n := range nodes {
		out = append(out, n.Kind)
	}
	return out
}

func TestParseBlocks(t *testing.T) {
	src := "# Title\n\nSome *text* here.\n\n- a\n- b\n\n> quote\n"
	root := New().Parse(src)
	got := kinds(root.Children)
	want := []mdast.Kind{mdast.KindHeading, mdast.KindParagraph, mdast.KindList, mdast.KindBlockquote}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("child %d: expected %v, got %v", i, want[i], got[i])
		}
	}
	if root.Children[0].Depth != 1 {
		t.Errorf("expected depth 1, got %d", root.Children[0].Depth)
	}
	if line := root.Children[1].StartLine(); line != 3 {
		t.Errorf("expected paragraph on line 3, got %d", line)
	}
	if line := root.Children[3].StartLine(); line != 8 {
		t.Errorf("expected blockquote on line 8, got %d", line)
	}
}

func TestSoftBreaksMergeIntoText(t *testing.T) {
	root := New().Parse("line one\nline two")
	p := root.Children[0]
	if len(p.Children) != 1 {
		t.Fatalf("expected one merged text node, got %d", len(p.Children))
	}
	if p.Children[0].Value != "line one\nline two" {
		t.Errorf("expected %q, got %q", "line one\nline two", p.Children[0].Value)
	}
}

func TestStrongFollowedByLetter(t *testing.T) {
	root := New().Parse("增长**57%**增长")
	p := root.Children[0]
	var strong *mdast.Node
	for _, c := range p.Children {
		if c.Kind == mdast.KindStrong {
			strong = c
		}
	}
	if strong == nil {
		t.Fatalf("expected a strong node, got %v", kinds(p.Children))
	}
	if got := mdast.Text(strong); got != "57%" {
		t.Errorf("expected %q, got %q", "57%", got)
	}
}

func TestUnterminatedStrong(t *testing.T) {
	root := New().Parse("**unterminated")
	p := root.Children[0]
	if len(p.Children) != 1 || p.Children[0].Kind != mdast.KindStrong {
		t.Fatalf("expected single strong child, got %v", kinds(p.Children))
	}
	s := p.Children[0]
	if !s.IsUnfinished() {
		t.Error("expected strong to be unfinished")
	}
	if got := mdast.Text(s); got != "unterminated" {
		t.Errorf("expected %q, got %q", "unterminated", got)
	}
}

func TestInlineMath(t *testing.T) {
	root := New().Parse("area $a^2+b^2=c^2$ done")
	p := root.Children[0]
	var math *mdast.Node
	for _, c := range p.Children {
		if c.Kind == mdast.KindInlineMath {
			math = c
		}
	}
	if math == nil {
		t.Fatalf("expected inline math, got %v", kinds(p.Children))
	}
	if math.Value != "a^2+b^2=c^2" {
		t.Errorf("expected %q, got %q", "a^2+b^2=c^2", math.Value)
	}
}

func TestMathBlock(t *testing.T) {
	root := New().Parse("$$\nx^2\n$$\n")
	if len(root.Children) != 1 || root.Children[0].Kind != mdast.KindMath {
		t.Fatalf("expected one math node, got %v", kinds(root.Children))
	}
	m := root.Children[0]
	if m.Value != "x^2" {
		t.Errorf("expected %q, got %q", "x^2", m.Value)
	}
	if m.IsUnfinished() {
		t.Error("closed math block should not be unfinished")
	}

	open := New().Parse("text\n\n$$\nx^2")
	last := open.Children[len(open.Children)-1]
	if last.Kind != mdast.KindMath || !last.IsUnfinished() {
		t.Errorf("expected unfinished math, got %v unfinished=%v", last.Kind, last.IsUnfinished())
	}
}

func TestFencedCode(t *testing.T) {
	root := New().Parse("```js render\nconsole.log(1)\n```\n")
	c := root.Children[0]
	if c.Kind != mdast.KindCode {
		t.Fatalf("expected code, got %v", c.Kind)
	}
	if c.Lang != "js" || c.Meta != "render" {
		t.Errorf("expected lang js meta render, got %q %q", c.Lang, c.Meta)
	}
	if c.IsUnfinished() {
		t.Error("closed fence should not be unfinished")
	}
	if c.StartLine() != 1 || c.EndLine() != 3 {
		t.Errorf("expected lines 1-3, got %d-%d", c.StartLine(), c.EndLine())
	}

	open := New().Parse("```python\nprint(1)\n")
	if !open.Children[0].IsUnfinished() {
		t.Error("expected unclosed fence to be unfinished")
	}
}

func TestFrontmatter(t *testing.T) {
	root := New().Parse("---\ntitle: Hi\n---\n\nBody")
	if root.Children[0].Kind != mdast.KindYAML {
		t.Fatalf("expected yaml first, got %v", kinds(root.Children))
	}
	if root.Children[0].Value != "title: Hi" {
		t.Errorf("expected %q, got %q", "title: Hi", root.Children[0].Value)
	}
	if root.Children[1].StartLine() != 5 {
		t.Errorf("expected body on line 5, got %d", root.Children[1].StartLine())
	}
}

func TestTable(t *testing.T) {
	root := New().Parse("| a | b |\n|:--|--:|\n| 1 | 2 |\n")
	tbl := root.Children[0]
	if tbl.Kind != mdast.KindTable {
		t.Fatalf("expected table, got %v", tbl.Kind)
	}
	if len(tbl.Align) != 2 || tbl.Align[0] != mdast.AlignLeft || tbl.Align[1] != mdast.AlignRight {
		t.Errorf("unexpected alignment %v", tbl.Align)
	}
	if len(tbl.Children) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(tbl.Children))
	}
	if got := mdast.StringifyChildren(tbl.Children[1].Children[1]); got != "2" {
		t.Errorf("expected cell %q, got %q", "2", got)
	}
}

func TestTaskList(t *testing.T) {
	root := New().Parse("- [x] done\n- [ ] todo\n")
	list := root.Children[0]
	first := list.Children[0]
	if first.Checked == nil || !*first.Checked {
		t.Fatal("expected first item checked")
	}
	if got := mdast.Text(first); got != "done" {
		t.Errorf("expected %q, got %q", "done", got)
	}
	second := list.Children[1]
	if second.Checked == nil || *second.Checked {
		t.Fatal("expected second item unchecked")
	}
}

func TestFootnotes(t *testing.T) {
	root := New().Parse("See[^1].\n\n[^1]: The note\n")
	var ref, def *mdast.Node
	for _, n := range root.Children {
		if n.Kind == mdast.KindFootnoteDefinition {
			def = n
		}
		for _, c := range n.Children {
			if c.Kind == mdast.KindFootnoteReference {
				ref = c
			}
		}
	}
	if ref == nil || def == nil {
		t.Fatalf("expected footnote reference and definition, got %v", kinds(root.Children))
	}
	if ref.Identifier != "1" || def.Identifier != "1" {
		t.Errorf("unexpected identifiers %q %q", ref.Identifier, def.Identifier)
	}
}

func TestDefinitionRecovered(t *testing.T) {
	root := New().Parse("Intro\n\n[home]: https://example.com\n")
	if len(root.Children) != 2 || root.Children[1].Kind != mdast.KindDefinition {
		t.Fatalf("expected paragraph then definition, got %v", kinds(root.Children))
	}
	if root.Children[1].URL != "https://example.com" {
		t.Errorf("unexpected url %q", root.Children[1].URL)
	}
}

func TestTrailingParagraphFixups(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind mdast.Kind
	}{
		{"image", "intro\n\n!partial-image", mdast.KindImage},
		{"table", "intro\n\n| a | b", mdast.KindTable},
		{"first node untouched", "!partial", mdast.KindParagraph},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := New().Parse(tt.src)
			last := root.Children[len(root.Children)-1]
			if last.Kind != tt.kind {
				t.Fatalf("expected %v, got %v", tt.kind, last.Kind)
			}
			if tt.kind != mdast.KindParagraph && !last.IsUnfinished() {
				t.Error("expected rewritten node to be unfinished")
			}
		})
	}
}

func TestHTMLBlock(t *testing.T) {
	root := New().Parse("<!-- {\"align\":\"center\"} -->\n\ntext")
	if root.Children[0].Kind != mdast.KindHTML {
		t.Fatalf("expected html, got %v", root.Children[0].Kind)
	}
	if root.Children[0].Value != `<!-- {"align":"center"} -->` {
		t.Errorf("unexpected html value %q", root.Children[0].Value)
	}
}

func TestOpenFenceAtEOF(t *testing.T) {
	tests := []struct {
		src  string
		want bool
	}{
		{"```\ncode\n```", false},
		{"```\ncode", true},
		{"~~~~\n```\n~~~~\n", false},
		{"text ``` inline", false},
		{"> ```\n> quoted", true},
	}
	for _, tt := range tests {
		if got := openFenceAtEOF(tt.src); got != tt.want {
			t.Errorf("openFenceAtEOF(%q) = %v, want %v", tt.src, got, tt.want)
		}
	}
}

func TestParseBlockSkipsTrailingFixups(t *testing.T) {
	root := New().ParseBlock("intro\n\n!important", false)
	last := root.Children[len(root.Children)-1]
	if last.Kind != mdast.KindParagraph {
		t.Errorf("expected paragraph in a non-final block, got %v", last.Kind)
	}
}

func unfinishedAt(n *mdast.Node) bool {
	if n.IsUnfinished() {
		return true
	}
	for _, c := range n.Children {
		if unfinishedAt(c) {
			return true
		}
	}
	return false
}

func TestOnlyLastNodeIsUnfinished(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		final    bool
		wantLast bool
	}{
		{"open strong before a paragraph", "**abc\n\nnext paragraph here", true, false},
		{"open strong in a list before a paragraph", "- **abc\n- b\n\ntail", true, false},
		{"open strong at the end", "intro\n\n**abc", true, true},
		{"open strong in a non-final block", "intro\n\n**abc", false, false},
		{"closed fence then open fence", "```\na\n```\n\n```go\nb", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := New().ParseBlock(tt.src, tt.final)
			last := len(root.Children) - 1
			for i, n := range root.Children[:last] {
				if unfinishedAt(n) {
					t.Errorf("child %d (%v) is marked unfinished", i, n.Kind)
				}
			}
			if got := unfinishedAt(root.Children[last]); got != tt.wantLast {
				t.Errorf("last child unfinished = %v, want %v", got, tt.wantLast)
			}
		})
	}
}

func TestOpenStrongStaysLiteralBeforeOtherBlocks(t *testing.T) {
	root := New().Parse("**abc\n\nnext paragraph here")
	if got := mdast.Text(root.Children[0]); got != "**abc" {
		t.Errorf("expected literal %q, got %q", "**abc", got)
	}
}
