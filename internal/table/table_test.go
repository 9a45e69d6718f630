package table

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dgallion1/mdschema/internal/doctree"
	"github.com/dgallion1/mdschema/internal/mdast"
)

func tbl(rows ...[]string) *mdast.Node {
	t := &mdast.Node{Kind: mdast.KindTable}
	for _, r := range rows {
		row := &mdast.Node{Kind: mdast.KindTableRow}
		for _, v := range r {
			cell := &mdast.Node{Kind: mdast.KindTableCell}
			if v != "" {
				cell.Children = []*mdast.Node{mdast.NewText(v)}
			}
			row.Children = append(row.Children, cell)
		}
		t.Children = append(t.Children, row)
	}
	t.Align = make([]mdast.Align, len(rows[0]))
	return t
}

func textCells(cell *mdast.Node) doctree.Nodes {
	return doctree.Nodes{doctree.Text(mdast.Text(cell))}
}

func inner(t *testing.T, card *doctree.Element) *doctree.Element {
	t.Helper()
	if card.Type != doctree.TypeCard || len(card.Children) != 3 {
		t.Fatalf("expected card, got %+v", card)
	}
	return card.Children[1].(*doctree.Element)
}

func TestChartFromDirective(t *testing.T) {
	directive := doctree.Props{"chartType": "line", "x": "年份", "y": "值"}
	el := inner(t, Build(tbl([]string{"年份", "值"}, []string{"2020", "8"}, []string{"2021", "10"}), directive, textCells))

	if el.Type != doctree.TypeChart {
		t.Fatalf("expected chart, got %s", el.Type)
	}
	source := el.OtherProps["dataSource"].([]any)
	if len(source) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(source))
	}
	if got := source[0].(map[string]any)["年份"]; got != "2020" {
		t.Errorf("expected %q, got %v", "2020", got)
	}
	cfg := el.OtherProps["config"].(map[string]any)
	if cfg["chartType"] != "line" {
		t.Errorf("expected chart config, got %v", cfg)
	}
	if _, ok := el.OtherProps["chartType"]; ok {
		t.Error("chart otherProps should nest the directive under config")
	}
}

func TestTableWhenNoChartType(t *testing.T) {
	for name, directive := range map[string]doctree.Props{
		"none":        nil,
		"table type":  {"chartType": "table"},
		"no type":     {"align": "center"},
		"empty array": {"config": []any{}},
	} {
		t.Run(name, func(t *testing.T) {
			el := inner(t, Build(tbl([]string{"a"}, []string{"1"}), directive, textCells))
			if el.Type != doctree.TypeTable {
				t.Errorf("expected table, got %s", el.Type)
			}
		})
	}
}

func TestArrayDirective(t *testing.T) {
	directive := doctree.Props{"0": map[string]any{"chartType": "bar"}, "1": map[string]any{"chartType": "pie"}}
	el := inner(t, Build(tbl([]string{"a", "b"}, []string{"x", "1"}), directive, textCells))
	if el.Type != doctree.TypeChart {
		t.Fatalf("expected chart, got %s", el.Type)
	}
	cfg, ok := el.OtherProps["config"].([]any)
	if !ok || len(cfg) != 2 {
		t.Fatalf("expected config array, got %#v", el.OtherProps["config"])
	}
	if cfg[1].(map[string]any)["chartType"] != "pie" {
		t.Errorf("expected ordered entries, got %v", cfg)
	}
}

func TestNestedConfigMember(t *testing.T) {
	directive := doctree.Props{"config": []any{map[string]any{"chartType": "column"}}}
	el := inner(t, Build(tbl([]string{"a"}, []string{"1"}), directive, textCells))
	if el.Type != doctree.TypeChart {
		t.Errorf("expected chart, got %s", el.Type)
	}
}

func TestInferredAlignment(t *testing.T) {
	el := inner(t, Build(tbl(
		[]string{"name", "count"},
		[]string{"a", "8"},
		[]string{"b", "10"},
		[]string{"c", "12"},
	), nil, textCells))

	for _, row := range el.Children {
		cells := row.(*doctree.Element).Children
		if got := cells[0].(*doctree.Element).Align; got != "" {
			t.Errorf("expected no alignment for text column, got %q", got)
		}
		if got := cells[1].(*doctree.Element).Align; got != "right" {
			t.Errorf("expected right for numeric column, got %q", got)
		}
	}
}

func TestExplicitAlignmentWins(t *testing.T) {
	tb := tbl([]string{"name", "count"}, []string{"a", "8"}, []string{"b", "10"})
	tb.Align = []mdast.Align{mdast.AlignCenter, mdast.AlignNone}
	el := inner(t, Build(tb, nil, textCells))
	cells := el.Children[1].(*doctree.Element).Children
	if got := cells[0].(*doctree.Element).Align; got != "center" {
		t.Errorf("expected center, got %q", got)
	}
	if got := cells[1].(*doctree.Element).Align; got != "" {
		t.Errorf("expected explicit none to be kept, got %q", got)
	}
}

func TestColumnAlignment(t *testing.T) {
	cols := []Column{{DataIndex: "v"}}
	tests := []struct {
		values []string
		want   string
	}{
		{[]string{"8", "10", "12"}, "right"},
		{[]string{"8", "10", "1"}, "right"},
		{[]string{"1,000", "2.5", "-3"}, "right"},
		{[]string{"8", "x"}, ""},
		{[]string{"10", "20", "text"}, ""},
		{[]string{"10", "20", "3."}, "right"},
		{[]string{"a", "1"}, ""},
		{[]string{"-"}, ""},
	}
	for _, tt := range tests {
		var rows []map[string]any
		for _, v := range tt.values {
			rows = append(rows, map[string]any{"v": v})
		}
		if got := ColumnAlignment(rows, cols)[0]; got != tt.want {
			t.Errorf("%v: expected %q, got %q", tt.values, tt.want, got)
		}
	}
}

func TestColumnsAndDataSource(t *testing.T) {
	tb := tbl([]string{`index\_value`, "a", "a"}, []string{"1", "2", "3", "extra"})
	cols := Columns(tb)
	want := []Column{
		{Title: "index_value", DataIndex: "index_value", Key: "index_value"},
		{Title: "a", DataIndex: "a", Key: "a"},
		{Title: "a", DataIndex: "a_2", Key: "a_2"},
	}
	if diff := cmp.Diff(want, cols); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
	rows := DataSource(tb, cols)
	wantRows := []map[string]any{{"index_value": "1", "a": "2", "a_2": "3"}}
	if diff := cmp.Diff(wantRows, rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeCells(t *testing.T) {
	directive := doctree.Props{"mergeCells": []any{
		map[string]any{"row": 1.0, "col": 0.0, "rowSpan": 2.0, "colSpan": 1.0},
	}}
	el := inner(t, Build(tbl([]string{"a", "b"}, []string{"1", "2"}, []string{"3", "4"}), directive, textCells))
	cell := func(r, c int) *doctree.Element {
		return el.Children[r].(*doctree.Element).Children[c].(*doctree.Element)
	}
	if cell(1, 0).RowSpan != 2 || cell(1, 0).Hidden {
		t.Errorf("unexpected anchor %+v", cell(1, 0))
	}
	if !cell(2, 0).Hidden {
		t.Error("expected covered cell to be hidden")
	}
	if cell(2, 1).Hidden {
		t.Error("uncovered cell must stay visible")
	}
}

func TestMergeCellsClippedToTable(t *testing.T) {
	tests := []struct {
		name       string
		merge      map[string]any
		wantAnchor [2]int
		wantHidden int
	}{
		{"huge spans", map[string]any{"row": 0.0, "col": 0.0, "rowSpan": 100000.0, "colSpan": 100000.0}, [2]int{2, 2}, 3},
		{"negative spans", map[string]any{"row": 0.0, "col": 0.0, "rowSpan": -5.0, "colSpan": -5.0}, [2]int{0, 0}, 0},
		{"anchor outside the table", map[string]any{"row": 9.0, "col": 9.0, "rowSpan": 2.0, "colSpan": 2.0}, [2]int{0, 0}, 0},
		{"missing colSpan", map[string]any{"row": 0.0, "col": 1.0, "rowSpan": 2.0}, [2]int{0, 0}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			directive := doctree.Props{"mergeCells": []any{tt.merge}}
			el := inner(t, Build(tbl([]string{"a", "b"}, []string{"1", "2"}), directive, textCells))
			hidden := 0
			for _, row := range el.Children {
				for _, c := range row.(*doctree.Element).Children {
					if c.(*doctree.Element).Hidden {
						hidden++
					}
				}
			}
			if hidden != tt.wantHidden {
				t.Errorf("expected %d hidden cells, got %d", tt.wantHidden, hidden)
			}
			anchor := el.Children[0].(*doctree.Element).Children[0].(*doctree.Element)
			if got := [2]int{anchor.RowSpan, anchor.ColSpan}; got != tt.wantAnchor {
				t.Errorf("expected anchor spans %v, got %v", tt.wantAnchor, got)
			}
		})
	}
}

func TestCellLayout(t *testing.T) {
	tb := tbl([]string{"h"}, []string{""})
	f := false
	tb.Finished = &f
	el := inner(t, Build(tb, nil, textCells))
	if !el.IsUnfinished() {
		t.Error("expected finished == false to carry over")
	}
	head := el.Children[0].(*doctree.Element).Children[0].(*doctree.Element)
	if !head.Title || head.Rows != 0 {
		t.Errorf("unexpected header cell %+v", head)
	}
	body := el.Children[1].(*doctree.Element).Children[0].(*doctree.Element)
	if diff := cmp.Diff(doctree.Nodes{doctree.EmptyParagraph()}, body.Children); diff != "" {
		t.Errorf("empty cell mismatch (-want +got):\n%s", diff)
	}
}
