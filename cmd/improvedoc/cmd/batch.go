package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dgallion1/improvedoc/internal/pipeline"
)

func newBatchCmd(g *globalFlags) *cobra.Command {
	var (
		htmlRoot   string
		sourceRoot string
		ext        string
		outRoot    string
		workers    int
	)

	c := &cobra.Command{
		Use:   "batch",
		Short: "Annotate every rendered page under a directory",
		Long:  `Pairs each .html file under --html with the source file at the same relative path under --source and annotates it. Pages are rewritten in place unless --out is given.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.attrs()
			if err != nil {
				return err
			}
			jobs, err := pipeline.Discover(htmlRoot, sourceRoot, ext, a)
			if err != nil {
				return err
			}
			for _, j := range jobs {
				j.OutPath = j.HTMLPath
				if outRoot != "" {
					rel, err := filepath.Rel(htmlRoot, j.HTMLPath)
					if err != nil {
						return err
					}
					j.OutPath = filepath.Join(outRoot, rel)
				}
			}

			log := g.logger(cmd)
			r := pipeline.NewRunner(g.processor(cmd), workers, log)
			if err := r.Run(cmd.Context(), jobs); err != nil {
				return err
			}

			counts := pipeline.Summary(jobs)
			fmt.Fprintf(cmd.OutOrStdout(), "%d documents: %d annotated, %d skipped, %d failed\n",
				len(jobs), counts[pipeline.StatusAnnotated], counts[pipeline.StatusSkipped], counts[pipeline.StatusFailed])
			failed := color.New(color.FgRed)
			for _, j := range jobs {
				snap := j.Snapshot()
				for _, e := range snap.Errors {
					failed.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", snap.HTMLPath, e)
				}
			}
			if counts[pipeline.StatusFailed] > 0 {
				return errors.New("some documents failed")
			}
			return nil
		},
	}

	c.Flags().StringVar(&htmlRoot, "html", "", "Directory of rendered HTML")
	c.Flags().StringVar(&sourceRoot, "source", "", "Directory of source files mirroring --html")
	c.Flags().StringVar(&ext, "ext", ".adoc", "Source file extension")
	c.Flags().StringVarP(&outRoot, "out", "o", "", "Write annotated pages under this directory instead of in place")
	c.Flags().IntVarP(&workers, "workers", "w", runtime.NumCPU(), "Concurrent documents")
	_ = c.MarkFlagRequired("html")
	_ = c.MarkFlagRequired("source")

	return c
}
