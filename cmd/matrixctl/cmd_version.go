package main

import (
	"fmt"

	"github.com/okian/evalmatrix/internal/domain/codec"
	"github.com/spf13/cobra"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the tool and document format versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "matrixctl %s (document %s)\n", version, codec.DefaultVersion)
			return err
		},
	}
}
