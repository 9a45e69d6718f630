package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dgallion1/mdschema/internal/outline"
)

var (
	topStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6188"))
	sectionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#78DCE8"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#727072"))
)

// renderOutline prints one line per heading, indented by depth, with the
// number of elements under it.
func renderOutline(root *outline.Section, styled bool) string {
	if root == nil || len(root.Children) == 0 {
		return "(no headings)\n"
	}
	var b strings.Builder
	root.Walk(func(s *outline.Section, depth int) {
		if depth == 0 {
			return
		}
		title := strings.Repeat("#", s.Level) + " " + s.Title
		count := fmt.Sprintf("(%d)", s.Elements)
		if styled {
			style := sectionStyle
			if depth == 1 {
				style = topStyle
			}
			title = style.Render(title)
			count = dimStyle.Render(count)
		}
		b.WriteString(strings.Repeat("  ", depth-1) + title + " " + count + "\n")
	})
	return b.String()
}
