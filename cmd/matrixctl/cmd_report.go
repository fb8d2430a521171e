package main

import (
	"github.com/okian/evalmatrix/internal/domain/codec"
	"github.com/okian/evalmatrix/internal/report"
	"github.com/spf13/cobra"
)

func newReportCommand(g *globalOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "report <evaluation.json>",
		Short: "Render a document as a printable HTML report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, sess, err := g.loadDocument(cmd, args[0])
			if err != nil {
				return err
			}
			w, closeFn, err := openOutput(output, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if err := report.Render(w, codec.ToView(sess), nil); err != nil {
				_ = closeFn()
				return err
			}
			return closeFn()
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to this file instead of stdout")

	return cmd
}
