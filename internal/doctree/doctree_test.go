package doctree

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestJSONRoundTripKeepsShape(t *testing.T) {
	tree := Nodes{
		&Element{
			Type:  TypeHead,
			Level: 2,
			Align: "center",
			Children: Nodes{
				&Leaf{Text: "Title", Bold: true},
			},
		},
		&Element{
			Type:       TypeCode,
			Language:   "json",
			Value:      "{}",
			OtherProps: Props{"finish": true},
			Children:   Nodes{Text("{}")},
		},
		&Leaf{Text: "1", Type: TypeFootnoteReference, Identifier: "1"},
	}

	data, err := json.Marshal(tree)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got Nodes
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if diff := cmp.Diff(tree, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestEmptyElementHasLeaf(t *testing.T) {
	p := EmptyParagraph()
	if len(p.Children) != 1 {
		t.Fatalf("expected one child, got %d", len(p.Children))
	}
	if l, ok := p.Children[0].(*Leaf); !ok || l.Text != "" {
		t.Errorf("expected empty leaf, got %#v", p.Children[0])
	}
	data, _ := json.Marshal(p)
	if string(data) != `{"type":"paragraph","children":[{"text":""}]}` {
		t.Errorf("unexpected json %s", data)
	}
}

func TestCloneIsDeep(t *testing.T) {
	orig := &Element{
		Type:       TypeTable,
		OtherProps: Props{"columns": []any{map[string]any{"title": "a"}}},
		Children:   Nodes{Text("x")},
	}
	c := orig.Clone()
	c.OtherProps["columns"].([]any)[0].(map[string]any)["title"] = "b"
	c.Children[0].(*Leaf).Text = "y"

	title := orig.OtherProps["columns"].([]any)[0].(map[string]any)["title"]
	if title != "a" {
		t.Errorf("expected original column title %q, got %q", "a", title)
	}
	if orig.Children[0].(*Leaf).Text != "x" {
		t.Error("clone shares children with original")
	}
}

func TestWrapCard(t *testing.T) {
	inner := NewElement(TypeTable)
	card := WrapCard(inner)
	if card.Type != TypeCard || len(card.Children) != 3 {
		t.Fatalf("unexpected card %#v", card)
	}
	if card.Children[1] != inner {
		t.Error("expected inner element in the middle")
	}
	if card.Children[0].(*Element).Type != TypeCardBefore || card.Children[2].(*Element).Type != TypeCardAfter {
		t.Error("expected card sentinels")
	}
}

func TestPropsHelpers(t *testing.T) {
	p := Props{"finished": false, "align": "left"}
	if !p.IsUnfinished() {
		t.Error("expected unfinished")
	}
	if got := p.String("align"); got != "left" {
		t.Errorf("expected %q, got %q", "left", got)
	}
	if rest := p.Without("finished", "align"); rest != nil {
		t.Errorf("expected nil, got %v", rest)
	}
	merged := p.Merge(Props{"align": "right"})
	if merged.String("align") != "right" || p.String("align") != "left" {
		t.Errorf("merge must not mutate receiver: %v %v", merged, p)
	}
}

func TestPlainText(t *testing.T) {
	tree := Paragraph(Text("a"), &Element{Type: TypeInlineKatex, Children: Nodes{Text("b")}}, Text("c"))
	if got := PlainText(tree); got != "abc" {
		t.Errorf("expected %q, got %q", "abc", got)
	}
}
