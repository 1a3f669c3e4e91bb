package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgallion1/improvedoc/internal/improve"
	"github.com/dgallion1/improvedoc/internal/render"
)

func newRenderCmd(g *globalFlags) *cobra.Command {
	var (
		docFile   string
		out       string
		report    string
		scopeIDs  bool
		idPrefix  string
		allowHTML bool
	)

	c := &cobra.Command{
		Use:   "render MARKDOWN",
		Short: "Render a Markdown source to HTML and annotate it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := args[0]
			if !render.IsMarkdown(src) {
				return fmt.Errorf("%s: not a markdown file", src)
			}
			a, err := g.attrs()
			if err != nil {
				return err
			}
			data, err := readInput(cmd, src)
			if err != nil {
				return err
			}
			if docFile == "" {
				docFile = src
			}
			abs, err := filepath.Abs(docFile)
			if err != nil {
				return err
			}

			opts := render.Options{IDPrefix: idPrefix, AllowHTML: allowHTML}
			if scopeIDs && idPrefix == "" {
				base := filepath.Base(abs)
				opts.IDPrefix = "_" + strings.TrimSuffix(base, filepath.Ext(base)) + "_"
			}
			page, err := render.Markdown(data, opts)
			if err != nil {
				return err
			}

			res, err := g.processor(cmd).Process(improve.Document{DocFile: abs, Backend: "html5", Attributes: a}, page)
			if err != nil {
				return err
			}
			if err := writeOutput(cmd, out, []byte(res.Output)); err != nil {
				return err
			}
			return writeReport(report, res.Report)
		},
	}

	c.Flags().StringVarP(&docFile, "docfile", "d", "", "Source path used for links (default the markdown file)")
	c.Flags().StringVarP(&out, "out", "o", "", "Output file (default stdout)")
	c.Flags().StringVar(&report, "report", "", "Write a JSON report of the annotated headings to this file")
	c.Flags().BoolVar(&scopeIDs, "scope-ids", false, `Prefix generated heading ids with "_<file stem>_"`)
	c.Flags().StringVar(&idPrefix, "id-prefix", "", `Prefix for generated heading ids (default "_")`)
	c.Flags().BoolVar(&allowHTML, "allow-html", false, "Keep sanitized raw HTML from the source")

	return c
}
