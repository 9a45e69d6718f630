package htmlx

import "github.com/dgallion1/mdschema/internal/doctree"

// Tag is an open inline HTML tag and the style it contributes.
type Tag struct {
	Name  string
	Color string
	URL   string
}

// Stack is an immutable stack of open inline tags. Push and Pop return new
// stacks and never modify the receiver, so a stack value can be shared
// between siblings safely.
type Stack struct {
	tags []Tag
}

// Push returns a stack with t on top.
func (s Stack) Push(t Tag) Stack {
	tags := make([]Tag, len(s.tags)+1)
	copy(tags, s.tags)
	tags[len(s.tags)] = t
	return Stack{tags: tags}
}

// Pop returns the stack without its top tag.
func (s Stack) Pop() Stack {
	if len(s.tags) == 0 {
		return s
	}
	n := len(s.tags) - 1
	return Stack{tags: s.tags[:n:n]}
}

// Top returns the most recently pushed tag.
func (s Stack) Top() (Tag, bool) {
	if len(s.tags) == 0 {
		return Tag{}, false
	}
	return s.tags[len(s.tags)-1], true
}

// Len returns the number of open tags.
func (s Stack) Len() int { return len(s.tags) }

// Tags returns a copy of the open tags, bottom first.
func (s Stack) Tags() []Tag {
	return append([]Tag(nil), s.tags...)
}

// Apply returns a copy of l carrying the marks of every open tag.
func (s Stack) Apply(l *doctree.Leaf) *doctree.Leaf {
	if len(s.tags) == 0 {
		return l
	}
	out := l.Clone()
	for _, t := range s.tags {
		switch t.Name {
		case "font":
			out.Color = t.Color
		case "sup", "sub":
			out.Identifier = l.Text
		case "code":
			out.Code = true
		case "i":
			out.Italic = true
		case "b", "strong":
			out.Bold = true
		case "del":
			out.Strikethrough = true
		case "a":
			if t.URL != "" {
				out.URL = t.URL
			}
		}
		if (t.Name == "span" || t.Name == "font") && t.Color != "" {
			out.HighColor = t.Color
		}
	}
	return out
}
