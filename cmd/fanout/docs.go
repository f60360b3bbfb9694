package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
)

var docsOpts struct {
	dir    string
	format string
}

var docsCmd = &cobra.Command{
	Use:    "gen-docs",
	Short:  "Generate man pages or markdown for fanout",
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return genDocs(cmd.Root(), docsOpts.dir, docsOpts.format)
	},
}

func init() {
	docsCmd.Flags().StringVar(&docsOpts.dir, "dir", "docs", "output directory")
	docsCmd.Flags().StringVar(&docsOpts.format, "format", "man", "output format (man or markdown)")
}

// genDocs writes documentation for root and all of its subcommands.
func genDocs(root *cobra.Command, dir, format string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	root.DisableAutoGenTag = true

	switch format {
	case "man":
		return doc.GenManTree(root, &doc.GenManHeader{
			Title:   "FANOUT",
			Section: "1",
			Source:  "fanout " + version,
			Manual:  "fanout manual",
		}, dir)
	case "markdown":
		return doc.GenMarkdownTree(root, dir)
	default:
		return fmt.Errorf("unknown format %q (use man or markdown)", format)
	}
}
