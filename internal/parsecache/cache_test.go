package parsecache

import (
	"fmt"
	"testing"

	"github.com/dgallion1/mdschema/internal/doctree"
)

func para(s string) doctree.Nodes {
	return doctree.Nodes{doctree.Paragraph(doctree.Text(s))}
}

func TestCapacityEvictsOldest(t *testing.T) {
	c := New(100, nil)
	for i := 0; i < 101; i++ {
		c.Put(fmt.Sprintf("k%d", i), para(fmt.Sprint(i)))
		if c.Len() > 100 {
			t.Fatalf("cache grew to %d entries", c.Len())
		}
	}
	if _, ok := c.Get("k0"); ok {
		t.Error("expected the first entry to be evicted")
	}
	if _, ok := c.Get("k100"); !ok {
		t.Error("expected the newest entry to be cached")
	}
	s := c.Stats()
	if s.Evictions != 1 || s.Hits != 1 || s.Misses != 1 || s.Entries != 100 {
		t.Errorf("unexpected stats %+v", s)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	c := New(2, nil)
	c.Put("k", para("a"))
	got, _ := c.Get("k")
	got[0].(*doctree.Element).Children[0].(*doctree.Leaf).Text = "mutated"
	again, _ := c.Get("k")
	if text := doctree.PlainText(again[0]); text != "a" {
		t.Errorf("expected cached text %q, got %q", "a", text)
	}
}

func TestReplaceKeepsPosition(t *testing.T) {
	c := New(2, nil)
	c.Put("a", para("1"))
	c.Put("b", para("2"))
	c.Put("a", para("3"))
	c.Put("c", para("4"))
	if _, ok := c.Get("a"); ok {
		t.Error("expected a to be evicted first")
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("expected b to survive")
	}
}

func TestClear(t *testing.T) {
	c := New(2, nil)
	c.Put("a", para("1"))
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("expected empty cache, got %d", c.Len())
	}
	if s := c.Stats(); s.Hits != 0 || s.Misses != 0 {
		t.Errorf("expected reset counters, got %+v", s)
	}
}

func TestKey(t *testing.T) {
	base := Key("block", nil, nil)
	if base != Key("block", nil, nil) {
		t.Error("expected a stable key")
	}
	variants := map[string]string{
		"text":   Key("other", nil, nil),
		"rules":  Key("block", []string{"r"}, nil),
		"config": Key("block", nil, map[string]bool{"typing": true}),
	}
	for name, k := range variants {
		if k == base {
			t.Errorf("expected %s to change the key", name)
		}
	}
	if Key("ab", []string{"c"}, nil) == Key("a", []string{"bc"}, nil) {
		t.Error("expected block and rule boundaries to be distinct")
	}
}

func TestStamp(t *testing.T) {
	nodes := doctree.Nodes{doctree.EmptyParagraph(), &doctree.Leaf{Text: "x"}}
	Stamp(nodes, "h")
	if nodes[0].(*doctree.Element).Hash != "h-0" || nodes[1].(*doctree.Leaf).Hash != "h-1" {
		t.Errorf("unexpected hashes %#v", nodes)
	}
}
