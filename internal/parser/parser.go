// Package parser is the entry point that turns Markdown into the editor
// document tree. Documents are split into blocks and each block's result is
// cached by content hash, so re-parsing a document that grew by a few
// characters only converts the blocks that changed.
package parser

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/mdschema/internal/chunker"
	"github.com/dgallion1/mdschema/internal/convert"
	"github.com/dgallion1/mdschema/internal/doctree"
	"github.com/dgallion1/mdschema/internal/parsecache"
	"github.com/dgallion1/mdschema/internal/plugin"
	"github.com/dgallion1/mdschema/internal/preprocess"
	"github.com/dgallion1/mdschema/internal/stats"
	"github.com/dgallion1/mdschema/internal/tokenizer"
)

// Config tunes a single parse.
type Config = convert.Config

// Result is the output of Parse.
type Result struct {
	Schema doctree.Nodes `json:"schema"`
	// Links is reserved for extracted link references and is always empty.
	Links []any `json:"links"`
}

// Parser owns a tokenizer and a block cache. It is safe for concurrent use.
type Parser struct {
	tok      *tokenizer.Tokenizer
	cache    *parsecache.Cache
	capacity int
	chunk    chunker.Config
	rules    []plugin.Rule
	stats    *stats.Recorder
	log      *slog.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger sets the logger used by the parser and its cache.
func WithLogger(log *slog.Logger) Option {
	return func(p *Parser) {
		if log != nil {
			p.log = log
		}
	}
}

// WithCacheCapacity bounds the number of cached blocks.
func WithCacheCapacity(n int) Option {
	return func(p *Parser) {
		p.capacity = n
	}
}

// WithMinBlock sets the size below which blocks are merged before caching.
func WithMinBlock(n int) Option {
	return func(p *Parser) {
		p.chunk.MinBlock = n
	}
}

// WithRules installs rules consulted on every parse after the rules passed
// to Parse itself.
func WithRules(rules ...plugin.Rule) Option {
	return func(p *Parser) {
		p.rules = append(p.rules, rules...)
	}
}

// WithStats records the latency and cache reuse of every parse.
func WithStats(r *stats.Recorder) Option {
	return func(p *Parser) {
		p.stats = r
	}
}

// New returns a Parser with an empty cache.
func New(opts ...Option) *Parser {
	p := &Parser{
		tok:      tokenizer.New(),
		capacity: parsecache.DefaultCapacity,
		chunk:    chunker.DefaultConfig(),
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.cache = parsecache.New(p.capacity, p.log)
	return p
}

// blockKey is everything besides the block text that changes its output.
type blockKey struct {
	Config
	Final bool `json:"final"`
}

// Parse converts md. rules take precedence over the parser's own rules;
// the first rule matching a node replaces its default conversion. Parse
// never fails: malformed input degrades to best-effort elements.
func (p *Parser) Parse(md string, rules []plugin.Rule, cfg Config) Result {
	start := time.Now()

	all := make([]plugin.Rule, 0, len(rules)+len(p.rules))
	all = append(all, rules...)
	all = append(all, p.rules...)
	names := ruleNames(all)
	conv := convert.New(cfg, all, p.log)

	blocks := chunker.Blocks(preprocess.Apply(md), p.chunk)
	var schema doctree.Nodes
	reused := 0
	for i, b := range blocks {
		final := i == len(blocks)-1
		if i > 0 {
			schema = append(schema, convert.EmptyLines(b.Blank+1)...)
		}

		key := parsecache.Key(b.Text, names, blockKey{Config: cfg, Final: final})
		nodes, ok := p.cache.Get(key)
		if ok {
			reused++
		} else {
			nodes = conv.ConvertBlock(p.tok.ParseBlock(b.Text, final), final)
			p.cache.Put(key, nodes)
		}
		parsecache.Stamp(nodes, key)
		schema = append(schema, nodes...)
	}

	schema = dropNewlineParagraphs(schema)
	if len(schema) == 0 {
		schema = doctree.Nodes{doctree.EmptyParagraph()}
	}

	elapsed := time.Since(start)
	p.stats.Record(stats.Parse{Duration: elapsed, Blocks: len(blocks), Reused: reused})
	p.log.Debug("parsed markdown",
		"bytes", len(md),
		"blocks", len(blocks),
		"reused", reused,
		"elements", len(schema),
		"duration", elapsed,
	)
	return Result{Schema: schema, Links: []any{}}
}

// ClearCache drops every cached block.
func (p *Parser) ClearCache() {
	p.cache.Clear()
}

// CacheStats reports the block cache counters.
func (p *Parser) CacheStats() parsecache.Stats {
	return p.cache.Stats()
}

// ruleNames identifies rules for the cache key. Unnamed rules are keyed
// by type and position.
func ruleNames(rules []plugin.Rule) []string {
	names := make([]string, len(rules))
	for i, r := range rules {
		if n, ok := r.(plugin.Named); ok && n.Name() != "" {
			names[i] = n.Name()
		} else {
			names[i] = fmt.Sprintf("%T#%d", r, i)
		}
	}
	return names
}

// dropNewlineParagraphs removes top-level paragraphs holding nothing but a
// bare line break.
func dropNewlineParagraphs(ns doctree.Nodes) doctree.Nodes {
	out := ns[:0:0]
	for _, n := range ns {
		if el, ok := n.(*doctree.Element); ok && el.Type == doctree.TypeParagraph && len(el.Children) == 1 {
			if l, ok := el.Children[0].(*doctree.Leaf); ok && l.Text == "\n" && !l.HasMarks() {
				continue
			}
		}
		out = append(out, n)
	}
	return out
}
