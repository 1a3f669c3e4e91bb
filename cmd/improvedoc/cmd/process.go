package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dgallion1/improvedoc/internal/doctree"
	"github.com/dgallion1/improvedoc/internal/improve"
)

func newProcessCmd(g *globalFlags) *cobra.Command {
	var (
		docFile string
		backend string
		out     string
		report  string
	)

	c := &cobra.Command{
		Use:   "process [HTML]",
		Short: "Annotate one rendered HTML document",
		Long:  `Reads rendered HTML (from a file or stdin) and writes it back with edit links for the document and each matching section. Documents whose source path does not fit the configured layout are written unchanged.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.attrs()
			if err != nil {
				return err
			}
			var in string
			if len(args) == 1 {
				in = args[0]
			}
			input, err := readInput(cmd, in)
			if err != nil {
				return err
			}
			abs, err := filepath.Abs(docFile)
			if err != nil {
				return err
			}

			res, err := g.processor(cmd).Process(improve.Document{DocFile: abs, Backend: backend, Attributes: a}, string(input))
			if errors.Is(err, improve.ErrNoContentRoot) {
				return fmt.Errorf("%s: %w", docFile, err)
			}
			if err != nil {
				return err
			}
			if err := writeOutput(cmd, out, []byte(res.Output)); err != nil {
				return err
			}
			return writeReport(report, res.Report)
		},
	}

	c.Flags().StringVarP(&docFile, "docfile", "d", "", "Path of the source file the HTML was rendered from")
	c.Flags().StringVarP(&backend, "backend", "b", "html5", "Backend that produced the HTML")
	c.Flags().StringVarP(&out, "out", "o", "", "Output file (default stdout)")
	c.Flags().StringVar(&report, "report", "", "Write a JSON report of the annotated headings to this file")
	_ = c.MarkFlagRequired("docfile")

	return c
}

func writeReport(path string, r doctree.Report) error {
	if path == "" {
		return nil
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
