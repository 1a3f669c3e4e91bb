package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dgallion1/improvedoc/internal/attrs"
	"github.com/dgallion1/improvedoc/internal/improve"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	attributes     []string
	attributesFile string
	debug          bool
}

func Execute(version string) error {
	root := NewRootCmd()
	root.Version = version
	return root.Execute()
}

func NewRootCmd() *cobra.Command {
	g := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:           "improvedoc",
		Short:         "Add edit-on-GitHub links to rendered documentation",
		Long:          `improvedoc post-processes rendered HTML documentation, adding links that let readers edit, browse, or blame the source of each page and section.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringArrayVarP(&g.attributes, "attribute", "a", nil, "Document attribute as key=value (repeatable)")
	rootCmd.PersistentFlags().StringVar(&g.attributesFile, "attributes", "", "YAML file of document attributes")
	rootCmd.PersistentFlags().BoolVar(&g.debug, "debug", false, "Log debug output to stderr")

	rootCmd.AddCommand(newProcessCmd(g))
	rootCmd.AddCommand(newRenderCmd(g))
	rootCmd.AddCommand(newBatchCmd(g))

	return rootCmd
}

func (g *globalFlags) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if g.debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

func (g *globalFlags) processor(cmd *cobra.Command) *improve.Processor {
	return improve.NewProcessor(g.logger(cmd))
}

// attrs loads the attributes file first; -a pairs override it.
func (g *globalFlags) attrs() (attrs.Attributes, error) {
	var fromFile attrs.Attributes
	if g.attributesFile != "" {
		f, err := os.Open(g.attributesFile)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		if fromFile, err = attrs.ParseYAML(f); err != nil {
			return nil, fmt.Errorf("%s: %w", g.attributesFile, err)
		}
	}
	pairs, err := attrs.ParsePairs(g.attributes)
	if err != nil {
		return nil, err
	}
	return attrs.Merge(fromFile, pairs), nil
}

// readInput reads the named file, or stdin for "" and "-".
func readInput(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "" || name == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(name)
}

// writeOutput writes to the named file, or stdout for "" and "-".
func writeOutput(cmd *cobra.Command, name string, data []byte) error {
	if name == "" || name == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	return os.WriteFile(name, data, 0o644)
}
