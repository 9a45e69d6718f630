package outline

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dgallion1/mdschema/internal/doctree"
)

func head(level int, title string) *doctree.Element {
	return &doctree.Element{Type: doctree.TypeHead, Level: level, Children: doctree.Nodes{doctree.Text(title)}}
}

func para(text string) *doctree.Element {
	return doctree.Paragraph(doctree.Text(text))
}

func TestBuild_HeadingHierarchy(t *testing.T) {
	nodes := doctree.Nodes{
		para("preamble"),
		head(1, "Title"),
		para("Intro text."),
		head(2, "Section A"),
		para("Section A content."),
		doctree.EmptyParagraph(),
		head(3, "Subsection A1"),
		para("a1"),
		para("a1 more"),
		head(2, "Section B"),
		head(1, "Appendix"),
	}
	want := &Section{
		Elements: 1,
		Children: []*Section{
			{Title: "Title", Level: 1, Elements: 1, Children: []*Section{
				{Title: "Section A", Level: 2, Elements: 1, Children: []*Section{
					{Title: "Subsection A1", Level: 3, Elements: 2},
				}},
				{Title: "Section B", Level: 2},
			}},
			{Title: "Appendix", Level: 1},
		},
	}
	if diff := cmp.Diff(want, Build(nodes)); diff != "" {
		t.Errorf("outline mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_SkippedLevels(t *testing.T) {
	got := Build(doctree.Nodes{head(3, "deep"), head(1, "top"), head(2, "mid")})
	if len(got.Children) != 2 {
		t.Fatalf("expected 2 top-level sections, got %d", len(got.Children))
	}
	if got.Children[0].Title != "deep" || got.Children[1].Children[0].Title != "mid" {
		t.Errorf("unexpected nesting: %+v", got.Children)
	}
}

func TestWalk(t *testing.T) {
	root := Build(doctree.Nodes{head(1, "a"), head(2, "b"), head(1, "c")})
	var seen []string
	var depths []int
	root.Walk(func(s *Section, depth int) {
		seen = append(seen, s.Title)
		depths = append(depths, depth)
	})
	if diff := cmp.Diff([]string{"", "a", "b", "c"}, seen); diff != "" {
		t.Errorf("titles (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{0, 1, 2, 1}, depths); diff != "" {
		t.Errorf("depths (-want +got):\n%s", diff)
	}
}
