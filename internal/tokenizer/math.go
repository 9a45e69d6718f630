package tokenizer

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// Parser and transformer priorities. Math must run before the emphasis and
// link parsers so that `$a*b$` is not split by delimiter handling.
const (
	mathInlinePriority = 50
	mathBlockPriority  = 90
)

// KindInlineMath is the goldmark kind of an InlineMath node.
var KindInlineMath = ast.NewNodeKind("InlineMath")

// KindMathBlock is the goldmark kind of a MathBlock node.
var KindMathBlock = ast.NewNodeKind("MathBlock")

// InlineMath is `$...$` (or any matching run of dollars) on a single line.
type InlineMath struct {
	ast.BaseInline
	Value []byte
}

func (n *InlineMath) Kind() ast.NodeKind { return KindInlineMath }

func (n *InlineMath) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Value": string(n.Value)}, nil)
}

// MathBlock is a `$$` fenced display math block.
type MathBlock struct {
	ast.BaseBlock
	// Closed is set once the closing fence has been seen.
	Closed bool
}

func (n *MathBlock) Kind() ast.NodeKind { return KindMathBlock }

func (n *MathBlock) IsRaw() bool { return true }

func (n *MathBlock) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, nil, nil)
}

type inlineMathParser struct{}

func (p *inlineMathParser) Trigger() []byte {
	return []byte{'$'}
}

func (p *inlineMathParser) Parse(parent ast.Node, block text.Reader, pc parser.Context) ast.Node {
	line, _ := block.PeekLine()
	open := 0
	for open < len(line) && line[open] == '$' {
		open++
	}
	if open == 0 {
		return nil
	}

	for i := open; i < len(line); {
		if line[i] != '$' {
			if line[i] == '\n' || line[i] == '\r' {
				return nil
			}
			i++
			continue
		}
		j := i
		for j < len(line) && line[j] == '$' {
			j++
		}
		if j-i != open {
			i = j
			continue
		}
		content := trimMathPadding(line[open:i])
		if len(content) == 0 {
			return nil
		}
		block.Advance(j)
		return &InlineMath{Value: append([]byte(nil), content...)}
	}
	return nil
}

// trimMathPadding strips one leading and trailing space when both are
// present and the content is not all spaces, the same rule code spans use.
func trimMathPadding(b []byte) []byte {
	if len(b) >= 2 && b[0] == ' ' && b[len(b)-1] == ' ' && len(bytes.TrimSpace(b)) > 0 {
		return b[1 : len(b)-1]
	}
	return b
}

var mathBlockInfoKey = parser.NewContextKey()

type mathBlockData struct {
	indent int
	fence  int
}

type mathBlockParser struct{}

func (b *mathBlockParser) Trigger() []byte {
	return []byte{'$'}
}

func (b *mathBlockParser) Open(parent ast.Node, reader text.Reader, pc parser.Context) (ast.Node, parser.State) {
	line, _ := reader.PeekLine()
	pos := pc.BlockOffset()
	if pos < 0 || pos >= len(line) || line[pos] != '$' {
		return nil, parser.NoChildren
	}
	i := pos
	for i < len(line) && line[i] == '$' {
		i++
	}
	if i-pos < 2 {
		return nil, parser.NoChildren
	}
	// A dollar after the opening run makes this inline math, e.g. `$$x$$`.
	if bytes.IndexByte(line[i:], '$') >= 0 {
		return nil, parser.NoChildren
	}
	pc.Set(mathBlockInfoKey, &mathBlockData{indent: pos, fence: i - pos})
	return &MathBlock{}, parser.NoChildren
}

func (b *mathBlockParser) Continue(node ast.Node, reader text.Reader, pc parser.Context) parser.State {
	line, segment := reader.PeekLine()
	data, _ := pc.Get(mathBlockInfoKey).(*mathBlockData)
	if data == nil {
		return parser.Close
	}

	w, pos := util.IndentWidth(line, reader.LineOffset())
	if w < 4 {
		i := pos
		for i < len(line) && line[i] == '$' {
			i++
		}
		if i-pos >= data.fence && util.IsBlank(line[i:]) {
			node.(*MathBlock).Closed = true
			reader.Advance(segment.Stop - segment.Start - segment.Padding)
			return parser.Close
		}
	}

	pos, padding := util.IndentPosition(line, reader.LineOffset(), data.indent)
	if pos < 0 {
		pos = util.FirstNonSpacePosition(line)
		if pos < 0 {
			pos = 0
		}
		padding = 0
	}
	seg := text.NewSegmentPadding(segment.Start+pos, segment.Stop, padding)
	node.Lines().Append(seg)
	reader.AdvanceAndSetPadding(segment.Stop-segment.Start-pos-1, padding)
	return parser.Continue | parser.NoChildren
}

func (b *mathBlockParser) Close(node ast.Node, reader text.Reader, pc parser.Context) {
	pc.Set(mathBlockInfoKey, nil)
}

func (b *mathBlockParser) CanInterruptParagraph() bool { return true }

func (b *mathBlockParser) CanAcceptIndentedLine() bool { return false }

type mathExtension struct{}

// Math is a goldmark extension adding `$inline$` and `$$` block math.
var Math goldmark.Extender = &mathExtension{}

func (e *mathExtension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(
		parser.WithInlineParsers(
			util.Prioritized(&inlineMathParser{}, mathInlinePriority),
		),
		parser.WithBlockParsers(
			util.Prioritized(&mathBlockParser{}, mathBlockPriority),
		),
	)
}
