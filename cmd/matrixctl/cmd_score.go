package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/okian/evalmatrix/internal/domain/codec"
	"github.com/okian/evalmatrix/internal/domain/types"
	"github.com/spf13/cobra"
)

func newScoreCommand(g *globalOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "score <evaluation.json>",
		Short: "Print the aggregate scores of a document",
		Long: `Load an evaluation document and print per-criterion status, the
per-layer averages and the overall label.

Scores are recomputed from the criteria; the document's computed block is
ignored.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "table" && format != "json" {
				return fmt.Errorf("unsupported format %q: must be table or json", format)
			}
			_, sess, err := g.loadDocument(cmd, args[0])
			if err != nil {
				return err
			}
			view := codec.ToView(sess)
			if format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(view)
			}
			return printScoreTable(cmd.OutOrStdout(), view)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: table or json")

	return cmd
}

func printScoreTable(out io.Writer, view types.SessionView) error {
	w := tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "LAYER\tCRITERION\tSCORE\tWEIGHT\tSTATUS")
	for _, c := range view.Criteria {
		score := "-"
		if c.Score > 0 {
			score = fmt.Sprintf("%d", c.Score)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%.1f\t%s\n", c.Layer, c.Name, score, c.Weight, c.Status)
	}
	fmt.Fprintln(w)
	for _, layer := range view.Summary.Layers {
		sc := view.Summary.PerLayer[layer]
		if sc.Count == 0 {
			fmt.Fprintf(w, "%s\t-\n", layer)
			continue
		}
		fmt.Fprintf(w, "%s\t%.2f\t(%d rated)\n", layer, sc.Score, sc.Count)
	}
	fmt.Fprintf(w, "Overall\t%s\t(%d/%d rated)\n",
		view.Summary.OverallLabel, view.Summary.Filled, view.Summary.Filled+view.Summary.Missing)
	return w.Flush()
}
