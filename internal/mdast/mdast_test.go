package mdast

import "testing"

func TestKindStringRoundTrip(t *testing.T) {
	for k := KindRoot; k <= KindFootnoteReference; k++ {
		name := k.String()
		if name == "unknown" {
			t.Fatalf("kind %d has no name", k)
		}
		if got := ParseKind(name); got != k {
			t.Errorf("ParseKind(%q) = %v, want %v", name, got, k)
		}
	}
	if got := Kind(999).String(); got != "unknown" {
		t.Errorf("expected unknown for out of range kind, got %q", got)
	}
}

func TestStringify(t *testing.T) {
	cell := NewParent(KindTableCell,
		NewParent(KindStrong, NewText("bold")),
		NewText(" and "),
		&Node{Kind: KindInlineCode, Value: "x"},
		NewText(" "),
		&Node{Kind: KindLink, URL: "https://a.b", Children: []*Node{NewText("link")}},
	)
	want := "**bold** and `x` [link](https://a.b)"
	if got := StringifyChildren(cell); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestText(t *testing.T) {
	p := NewParent(KindParagraph,
		NewText("a"),
		NewParent(KindEmphasis, NewText("b")),
		&Node{Kind: KindBreak},
		&Node{Kind: KindInlineCode, Value: "c"},
	)
	if got := Text(p); got != "ab\nc" {
		t.Errorf("expected %q, got %q", "ab\nc", got)
	}
}

func TestUnfinished(t *testing.T) {
	n := NewText("x")
	if n.IsUnfinished() {
		t.Fatal("fresh node should not be unfinished")
	}
	n.MarkUnfinished()
	if !n.IsUnfinished() {
		t.Fatal("expected node to be unfinished")
	}
	var nilNode *Node
	if nilNode.StartLine() != 0 || nilNode.EndLine() != 0 {
		t.Fatal("nil node should report line 0")
	}
}
