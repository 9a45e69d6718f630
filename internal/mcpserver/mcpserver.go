// Package mcpserver exposes the parser as an MCP tool over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dgallion1/mdschema/internal/parser"
)

// MetadataParseMarkdown describes the parse_markdown tool.
var MetadataParseMarkdown = &mcp.Tool{
	Name: "parse_markdown",
	Description: "Convert Markdown into the editor document tree. " +
		"Returns the tree as JSON together with the number of top-level elements. " +
		"Unterminated constructs at the end of the input (bold, code fences, tables) are " +
		"returned with finished=false so partial model output can be rendered while streaming.",
}

// InputParseMarkdown is the input for the parse_markdown tool.
type InputParseMarkdown struct {
	Markdown          string `json:"markdown" jsonschema:"Markdown source to convert"`
	OpenLinksInNewTab bool   `json:"open_links_in_new_tab,omitempty" jsonschema:"Add target=_blank to every link"`
}

// OutputParseMarkdown is the output for the parse_markdown tool.
type OutputParseMarkdown struct {
	// SchemaJSON is the JSON-encoded element list.
	SchemaJSON string `json:"schema_json"`
	// ElementCount is the number of top-level elements.
	ElementCount int `json:"element_count"`
}

type tools struct {
	parser *parser.Parser
	log    *slog.Logger
}

// ParseMarkdown runs the parser over the input document.
func (t *tools) ParseMarkdown(ctx context.Context, _ *mcp.CallToolRequest, input InputParseMarkdown) (*mcp.CallToolResult, OutputParseMarkdown, error) {
	res := t.parser.Parse(input.Markdown, nil, parser.Config{OpenLinksInNewTab: input.OpenLinksInNewTab})
	data, err := json.Marshal(res.Schema)
	if err != nil {
		return nil, OutputParseMarkdown{}, fmt.Errorf("encode schema: %w", err)
	}
	t.log.Debug("parse_markdown", "bytes", len(input.Markdown), "elements", len(res.Schema))
	return nil, OutputParseMarkdown{
		SchemaJSON:   string(data),
		ElementCount: len(res.Schema),
	}, nil
}

// New returns an MCP server with the parse_markdown tool registered.
func New(p *parser.Parser, version string, log *slog.Logger) *mcp.Server {
	if log == nil {
		log = slog.Default()
	}
	s := mcp.NewServer(&mcp.Implementation{Name: "mdschema", Version: version}, nil)
	t := &tools{parser: p, log: log}
	mcp.AddTool(s, MetadataParseMarkdown, t.ParseMarkdown)
	return s
}

// Run serves the tools on stdin/stdout until ctx is done or the client
// disconnects.
func Run(ctx context.Context, p *parser.Parser, version string, log *slog.Logger) error {
	if err := New(p, version, log).Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
