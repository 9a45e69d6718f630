// Command mdschema converts Markdown into the editor document tree from
// the command line and serves the converter as an MCP tool.
package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type globalFlags struct {
	verbose bool
	rules   string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "mdschema",
		Short:         "Convert Markdown into editor document trees",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "log parser activity to stderr")
	root.PersistentFlags().StringVar(&g.rules, "rules", os.Getenv("RULES_FILE"), "YAML rule table applied to every parse")

	root.AddCommand(
		newParseCmd(g),
		newOutlineCmd(g),
		newImportCmd(g),
		newMCPCmd(g),
	)
	return root
}

// logger writes text logs to a terminal and JSON logs otherwise.
func (g *globalFlags) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if g.verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if f, ok := w.(*os.File); ok && isTerminal(f) {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
