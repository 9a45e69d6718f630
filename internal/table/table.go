// Package table turns a Markdown table into a table or chart element.
// A chart is a table whose preceding comment directive names a chart type.
package table

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/dgallion1/mdschema/internal/doctree"
	"github.com/dgallion1/mdschema/internal/mdast"
)

// CellFunc converts the inline content of one cell.
type CellFunc func(cell *mdast.Node) doctree.Nodes

// Column describes one table column.
type Column struct {
	Title     string
	DataIndex string
	Key       string
}

func (c Column) toMap() map[string]any {
	return map[string]any{"title": c.Title, "dataIndex": c.DataIndex, "key": c.Key}
}

// Build converts t. directive is the comment configuration that applies to
// the table, if any.
func Build(t *mdast.Node, directive doctree.Props, cells CellFunc) *doctree.Element {
	config := directive
	if config == nil {
		config = doctree.Props{}
	}

	columns := Columns(t)
	rows := DataSource(t, columns)

	aligns := make([]string, len(columns))
	explicit := false
	for i, a := range t.Align {
		if a != mdast.AlignNone {
			explicit = true
		}
		if i < len(aligns) {
			aligns[i] = string(a)
		}
	}
	if !explicit {
		aligns = ColumnAlignment(rows, columns)
	}

	chartConfig := ChartConfig(config)
	chartType := ChartType(chartConfig, config)
	isChart := chartType != "" && chartType != "table"
	width := 0
	for _, row := range t.Children {
		width = max(width, len(row.Children))
	}
	spans := mergeMap(config["mergeCells"], len(t.Children), width)

	var children doctree.Nodes
	for r, row := range t.Children {
		tr := &doctree.Element{Type: doctree.TypeTableRow}
		for c, cell := range row.Children {
			td := &doctree.Element{
				Type:  doctree.TypeTableCell,
				Title: r == 0,
				Rows:  r,
				Cols:  c,
			}
			if c < len(aligns) {
				td.Align = aligns[c]
			}
			if s, ok := spans[cellKey{r, c}]; ok {
				if s.hidden {
					td.Hidden = true
				} else {
					if s.rowSpan > 1 {
						td.RowSpan = s.rowSpan
					}
					if s.colSpan > 1 {
						td.ColSpan = s.colSpan
					}
				}
			}
			if len(cell.Children) > 0 && cells != nil {
				td.Children = doctree.Nodes{doctree.Paragraph(cells(cell)...)}
			} else {
				td.Children = doctree.Nodes{doctree.EmptyParagraph()}
			}
			tr.Children = append(tr.Children, td)
		}
		if len(tr.Children) == 0 {
			tr.Children = doctree.Nodes{doctree.Text("")}
		}
		children = append(children, tr)
	}
	if len(children) == 0 {
		children = doctree.Nodes{doctree.Text("")}
	}

	var otherProps doctree.Props
	if isChart {
		otherProps = doctree.Props{"config": chartConfig}
	} else {
		otherProps = config.Clone()
	}
	cols := make([]any, len(columns))
	for i, c := range columns {
		cols[i] = c.toMap()
	}
	source := make([]any, len(rows))
	for i, row := range rows {
		delete(row, "chartType")
		source[i] = row
	}
	otherProps["columns"] = cols
	otherProps["dataSource"] = source

	typ := doctree.TypeTable
	if isChart {
		typ = doctree.TypeChart
	}
	el := &doctree.Element{Type: typ, Children: children, OtherProps: otherProps}
	if t.Finished != nil {
		el.Finished = doctree.Bool(*t.Finished)
	}
	return doctree.WrapCard(el)
}

// Columns derives column descriptors from the header row. Repeated titles
// get a _<index> suffix on their data index.
func Columns(t *mdast.Node) []Column {
	if len(t.Children) == 0 {
		return nil
	}
	seen := map[string]bool{}
	var cols []Column
	for i, cell := range t.Children[0].Children {
		title := NormalizeFieldName(strings.TrimSpace(strings.ReplaceAll(mdast.StringifyChildren(cell), "\n", "")))
		key := title
		if seen[title] {
			key = title + "_" + strconv.Itoa(i)
		}
		seen[title] = true
		cols = append(cols, Column{Title: title, DataIndex: key, Key: key})
	}
	return cols
}

var (
	escapedUnderscore = regexp.MustCompile(`\\_`)
	escapedBackslash  = regexp.MustCompile(`\\\\`)
	escapedQuote      = regexp.MustCompile(`\\"`)
)

// NormalizeFieldName removes Markdown escapes from a header title so that
// `index\_value` and `index_value` name the same field.
func NormalizeFieldName(name string) string {
	if name == "" {
		return name
	}
	name = escapedUnderscore.ReplaceAllString(name, "_")
	name = escapedBackslash.ReplaceAllString(name, `\`)
	name = escapedQuote.ReplaceAllString(name, `"`)
	return strings.TrimSpace(name)
}

// DataSource builds one record per body row. Cells beyond the header's
// column count are dropped.
func DataSource(t *mdast.Node, columns []Column) []map[string]any {
	if len(t.Children) < 2 {
		return []map[string]any{}
	}
	rows := make([]map[string]any, 0, len(t.Children)-1)
	for _, row := range t.Children[1:] {
		rec := map[string]any{}
		for i, cell := range row.Children {
			if i >= len(columns) {
				break
			}
			v := strings.ReplaceAll(mdast.StringifyChildren(cell), "\n", "")
			v = strings.ReplaceAll(v, `\"`, `"`)
			v = strings.ReplaceAll(v, `\_`, "")
			rec[columns[i].DataIndex] = strings.TrimSpace(v)
		}
		rows = append(rows, rec)
	}
	return rows
}

var numericPattern = regexp.MustCompile(`^[-+]?[0-9,]*\.?[0-9]+([eE][-+]?[0-9]+)?$`)

// IsNumeric reports whether a cell value reads as a number.
func IsNumeric(v string) bool {
	if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return true
	}
	return numericPattern.MatchString(v)
}

// isPartialNumber reports a value that looks like a number still being
// typed: a lone digit or sign, or digits ending in a decimal point.
func isPartialNumber(v string) bool {
	switch {
	case v == "-" || v == "+":
		return true
	case len(v) == 1 && v[0] >= '0' && v[0] <= '9':
		return true
	case strings.HasSuffix(v, ".") && strings.ContainsAny(v, "0123456789"):
		return true
	}
	return false
}

// ColumnAlignment infers "right" for columns whose values are all numeric.
// A last value that is still being typed is left out, so the alignment
// does not flip while a number streams in.
func ColumnAlignment(rows []map[string]any, columns []Column) []string {
	if len(rows) == 0 {
		return make([]string, len(columns))
	}
	out := make([]string, len(columns))
	for i, col := range columns {
		var values []string
		for _, row := range rows {
			if s, _ := row[col.DataIndex].(string); s != "" {
				values = append(values, s)
			}
		}
		if n := len(values); n > 0 && isPartialNumber(values[n-1]) {
			values = values[:n-1]
		}
		if len(values) == 0 {
			continue
		}
		numeric := true
		for _, v := range values {
			if !IsNumeric(v) {
				numeric = false
				break
			}
		}
		if numeric {
			out[i] = "right"
		}
	}
	return out
}

// ChartConfig picks the chart configuration out of a directive: its
// "config" member when present, else the directive itself. Objects keyed
// "0", "1", ... are turned back into arrays.
func ChartConfig(config doctree.Props) any {
	var v any = map[string]any(config)
	if c, ok := config["config"]; ok && c != nil {
		v = c
	}
	return objectToArray(v)
}

func objectToArray(v any) any {
	var m map[string]any
	switch o := v.(type) {
	case map[string]any:
		m = o
	case doctree.Props:
		m = o
	default:
		return v
	}
	if len(m) == 0 {
		return v
	}
	idx := make([]int, 0, len(m))
	for k := range m {
		n, err := strconv.Atoi(k)
		if err != nil || n < 0 || strconv.Itoa(n) != k {
			return v
		}
		idx = append(idx, n)
	}
	sort.Ints(idx)
	out := make([]any, len(idx))
	for i, n := range idx {
		out[i] = m[strconv.Itoa(n)]
	}
	return out
}

// ChartType resolves the chart type from the chart config, its first
// entry, or the raw directive, in that order.
func ChartType(chartConfig any, config doctree.Props) string {
	if s := chartTypeOf(chartConfig); s != "" {
		return s
	}
	if arr, ok := chartConfig.([]any); ok && len(arr) > 0 {
		if s := chartTypeOf(arr[0]); s != "" {
			return s
		}
	}
	return config.String("chartType")
}

func chartTypeOf(v any) string {
	switch m := v.(type) {
	case map[string]any:
		s, _ := m["chartType"].(string)
		return s
	case doctree.Props:
		return m.String("chartType")
	}
	return ""
}

type cellKey struct{ row, col int }

type span struct {
	rowSpan, colSpan int
	hidden           bool
}

// mergeMap expands mergeCells entries ({row, col, rowSpan, colSpan}) into
// per-cell spans. Cells covered by an anchor are hidden. Anchors outside
// the rows x cols grid are dropped and spans are clipped to it; a span
// below one counts as one.
func mergeMap(v any, rows, cols int) map[cellKey]span {
	list, _ := v.([]any)
	out := map[cellKey]span{}
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		row, col := num(m["row"]), num(m["col"])
		if row < 0 || col < 0 || row >= rows || col >= cols {
			continue
		}
		rs := num(m["rowSpan"])
		if rs == 0 {
			rs = num(m["rowspan"])
		}
		cs := num(m["colSpan"])
		if cs == 0 {
			cs = num(m["colspan"])
		}
		rs = min(max(rs, 1), rows-row)
		cs = min(max(cs, 1), cols-col)
		if rs == 1 && cs == 1 {
			continue
		}
		out[cellKey{row, col}] = span{rowSpan: rs, colSpan: cs}
		for r := row; r < row+rs; r++ {
			for c := col; c < col+cs; c++ {
				if r != row || c != col {
					out[cellKey{r, c}] = span{rowSpan: 1, colSpan: 1, hidden: true}
				}
			}
		}
	}
	return out
}

func num(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case string:
		i, _ := strconv.Atoi(n)
		return i
	}
	return 0
}
