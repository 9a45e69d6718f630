package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dgallion1/mdschema/internal/importer"
	"github.com/dgallion1/mdschema/internal/mcpserver"
	"github.com/dgallion1/mdschema/internal/outline"
	"github.com/dgallion1/mdschema/internal/parser"
	"github.com/dgallion1/mdschema/internal/plugin"
)

func newParseCmd(g *globalFlags) *cobra.Command {
	var (
		newTab bool
		indent bool
	)
	cmd := &cobra.Command{
		Use:   "parse [file]",
		Short: "Print the document tree of a Markdown file as JSON",
		Long:  "Print the document tree of a Markdown file as JSON. With no file, or when file is -, read standard input.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			md, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			p, err := g.parser(cmd)
			if err != nil {
				return err
			}
			res := p.Parse(md, nil, parser.Config{OpenLinksInNewTab: newTab})
			enc := json.NewEncoder(cmd.OutOrStdout())
			if indent {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(res)
		},
	}
	cmd.Flags().BoolVar(&newTab, "new-tab", false, "add target=_blank to links")
	cmd.Flags().BoolVar(&indent, "indent", false, "indent the JSON output")
	return cmd
}

func newOutlineCmd(g *globalFlags) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "outline [file]",
		Short: "Print the heading hierarchy of a Markdown file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			md, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			p, err := g.parser(cmd)
			if err != nil {
				return err
			}
			root := outline.Build(p.Parse(md, nil, parser.Config{}).Schema)
			out := cmd.OutOrStdout()
			if asJSON {
				return json.NewEncoder(out).Encode(root)
			}
			styled := false
			if f, ok := out.(*os.File); ok {
				styled = isTerminal(f)
			}
			_, err = io.WriteString(out, renderOutline(root, styled))
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the outline as JSON")
	return cmd
}

func newImportCmd(g *globalFlags) *cobra.Command {
	var (
		schema      bool
		noPdftotext bool
	)
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Convert a DOCX, PDF, HTML, CSV or text file to Markdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			imp, err := importer.Options{PDFFallbackPdftotext: !noPdftotext}.ForFile(path)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			md, err := imp.Import(bytes.NewReader(data), filepath.Base(path))
			if err != nil {
				return fmt.Errorf("import %s: %w", path, err)
			}
			if !schema {
				_, err = io.WriteString(cmd.OutOrStdout(), md)
				return err
			}
			p, err := g.parser(cmd)
			if err != nil {
				return err
			}
			return json.NewEncoder(cmd.OutOrStdout()).Encode(p.Parse(md, nil, parser.Config{}))
		},
	}
	cmd.Flags().BoolVar(&schema, "schema", false, "print the document tree instead of Markdown")
	cmd.Flags().BoolVar(&noPdftotext, "no-pdftotext", false, "do not fall back to pdftotext for PDFs")
	return cmd
}

func newMCPCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the parse_markdown tool over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			p, err := g.parser(cmd)
			if err != nil {
				return err
			}
			return mcpserver.Run(ctx, p, version, g.logger(cmd.ErrOrStderr()))
		},
	}
}

// parser builds a parser with the global rules and logger.
func (g *globalFlags) parser(cmd *cobra.Command) (*parser.Parser, error) {
	log := g.logger(cmd.ErrOrStderr())
	opts := []parser.Option{parser.WithLogger(log)}
	if g.rules != "" {
		rules, err := plugin.LoadRuleFile(g.rules)
		if err != nil {
			return nil, err
		}
		log.Debug("loaded rules", "path", g.rules, "count", len(rules))
		opts = append(opts, parser.WithRules(rules...))
	}
	return parser.New(opts...), nil
}

// readInput returns the named file, or standard input for no name or -.
func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("read %s: %w", args[0], err)
	}
	return string(data), nil
}
