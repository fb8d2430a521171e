package main

import (
	"fmt"
	"io"
	"os"

	"github.com/okian/evalmatrix/internal/domain/catalog"
	"github.com/okian/evalmatrix/internal/domain/codec"
	"github.com/okian/evalmatrix/internal/domain/model"
	"github.com/okian/evalmatrix/pkg/logger"
	"github.com/spf13/cobra"
)

var version = "dev"

// globalOptions are shared by every subcommand.
type globalOptions struct {
	catalogFile string
	debug       bool
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}
	cmd := &cobra.Command{
		Use:   "matrixctl",
		Short: "matrixctl - work with evaluation documents",
		Long: `matrixctl reads and writes the JSON documents exported by the
evalmatrix server.

It can produce a blank document, score one, render it as an HTML report
and send it to an analysis service.`,
		Version:      version,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.catalogFile, "catalog", "", "YAML catalog replacing the built-in criteria")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	cmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		if err := logger.Init(logger.WithWriter(cmd.ErrOrStderr())); err != nil {
			return err
		}
		if opts.debug {
			return logger.SetLevelString("debug")
		}
		return logger.SetLevelString("warn")
	}

	cmd.AddCommand(newTemplateCommand(opts))
	cmd.AddCommand(newScoreCommand(opts))
	cmd.AddCommand(newReportCommand(opts))
	cmd.AddCommand(newAnalyzeCommand(opts))
	cmd.AddCommand(newVersionCommand())

	return cmd
}

func execute() error {
	return newRootCommand().Execute()
}

func (o *globalOptions) catalog() (*catalog.Catalog, error) {
	if o.catalogFile == "" {
		return catalog.Default(), nil
	}
	return catalog.LoadFile(o.catalogFile)
}

func (o *globalOptions) codec() (*codec.Codec, error) {
	cat, err := o.catalog()
	if err != nil {
		return nil, err
	}
	return codec.New(cat), nil
}

// loadDocument reads and merges an exported document from path. "-" reads
// standard input.
func (o *globalOptions) loadDocument(cmd *cobra.Command, path string) (*codec.Codec, *model.Session, error) {
	c, err := o.codec()
	if err != nil {
		return nil, nil, err
	}

	var data []byte
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	sess, stats, err := c.FromSnapshot(data, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	if stats.Dropped > 0 || stats.Coerced > 0 {
		logger.Get().Warn(cmd.Context(), "document adjusted on load",
			logger.String("file", path),
			logger.Int("dropped", stats.Dropped),
			logger.Int("coerced", stats.Coerced),
		)
	}
	return c, sess, nil
}
