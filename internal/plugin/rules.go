package plugin

import (
	"fmt"
	"io"
	"os"
	"reflect"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"gopkg.in/yaml.v3"

	"github.com/dgallion1/mdschema/internal/doctree"
	"github.com/dgallion1/mdschema/internal/mdast"
)

// Definition is one declarative rule as written in a rule file:
//
//	rules:
//	  - name: notes
//	    match: kind == "blockquote" && text startsWith "NOTE:"
//	    type: code
//	    language: note
//	    text: trim(text[5:])
//	    props: {tone: info}
type Definition struct {
	Name     string         `yaml:"name"`
	Match    string         `yaml:"match"`
	Type     string         `yaml:"type"`
	Language string         `yaml:"language,omitempty"`
	Text     string         `yaml:"text,omitempty"`
	Props    map[string]any `yaml:"props,omitempty"`
}

type ruleFile struct {
	Rules []Definition `yaml:"rules"`
}

// Env is what match and text expressions see.
type Env struct {
	Kind       string `expr:"kind"`
	Text       string `expr:"text"`
	Value      string `expr:"value"`
	Lang       string `expr:"lang"`
	Meta       string `expr:"meta"`
	URL        string `expr:"url"`
	Depth      int    `expr:"depth"`
	Ordered    bool   `expr:"ordered"`
	Children   int    `expr:"children"`
	Unfinished bool   `expr:"unfinished"`
}

// NewEnv describes n for expression evaluation.
func NewEnv(n *mdast.Node) Env {
	return Env{
		Kind:       n.Kind.String(),
		Text:       mdast.Text(n),
		Value:      n.Value,
		Lang:       n.Lang,
		Meta:       n.Meta,
		URL:        n.URL,
		Depth:      n.Depth,
		Ordered:    n.Ordered,
		Children:   len(n.Children),
		Unfinished: n.IsUnfinished(),
	}
}

// exprRule is a compiled Definition.
type exprRule struct {
	def   Definition
	match *vm.Program
	text  *vm.Program
}

// Compile checks and compiles def.
func Compile(def Definition) (Rule, error) {
	if def.Name == "" {
		return nil, fmt.Errorf("rule without a name")
	}
	if def.Type == "" {
		return nil, fmt.Errorf("rule %s: missing type", def.Name)
	}
	match, err := expr.Compile(def.Match, expr.Env(Env{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("rule %s: compiling match: %w", def.Name, err)
	}
	r := &exprRule{def: def, match: match}
	if def.Text != "" {
		r.text, err = expr.Compile(def.Text, expr.Env(Env{}), expr.AsKind(reflect.String))
		if err != nil {
			return nil, fmt.Errorf("rule %s: compiling text: %w", def.Name, err)
		}
	}
	return r, nil
}

// LoadRules reads a YAML rule file from r and compiles every rule in it.
func LoadRules(r io.Reader) ([]Rule, error) {
	var f ruleFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decoding rules: %w", err)
	}
	rules := make([]Rule, 0, len(f.Rules))
	seen := map[string]bool{}
	for _, def := range f.Rules {
		if seen[def.Name] {
			return nil, fmt.Errorf("duplicate rule %q", def.Name)
		}
		seen[def.Name] = true
		rule, err := Compile(def)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// LoadRuleFile is LoadRules on the file at path.
func LoadRuleFile(path string) ([]Rule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening rules: %w", err)
	}
	defer f.Close()
	return LoadRules(f)
}

func (r *exprRule) Name() string { return r.def.Name }

// Match evaluates the match expression. An expression that fails at run
// time does not match.
func (r *exprRule) Match(n *mdast.Node) bool {
	out, err := vm.Run(r.match, NewEnv(n))
	if err != nil {
		return false
	}
	ok, _ := out.(bool)
	return ok
}

// Convert builds the element named by the rule. Its text is the text
// expression's result, or the node's own text.
func (r *exprRule) Convert(n *mdast.Node) doctree.Node {
	env := NewEnv(n)
	text := env.Text
	if r.text != nil {
		if out, err := vm.Run(r.text, env); err == nil {
			text, _ = out.(string)
		}
	}
	el := &doctree.Element{
		Type:     r.def.Type,
		Language: r.def.Language,
		Children: doctree.Nodes{doctree.Text(text)},
	}
	if el.Type == doctree.TypeCode || el.Language != "" {
		el.Value = text
	}
	if len(r.def.Props) > 0 {
		el.OtherProps = doctree.Props(r.def.Props).Clone()
	}
	return el
}
