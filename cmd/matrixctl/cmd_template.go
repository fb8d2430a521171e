package main

import (
	"fmt"

	"github.com/okian/evalmatrix/internal/domain/model"
	"github.com/spf13/cobra"
)

func newTemplateCommand(g *globalOptions) *cobra.Command {
	var (
		output string
		name   string
		role   string
	)
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Write a blank evaluation document",
		Long: `Write an unscored evaluation document for the active catalog.

Fill in scores and evidence, then pass the file to score, report or analyze,
or import it into the server.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := g.codec()
			if err != nil {
				return err
			}
			cat, err := g.catalog()
			if err != nil {
				return err
			}
			sess := model.NewSession(cat)
			sess.Meta.EvaluateeName = name
			if role != "" {
				sess.Meta.Role = role
			}

			data, err := c.Marshal(sess)
			if err != nil {
				return err
			}
			w, closeFn, err := openOutput(output, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintln(w, string(data)); err != nil {
				_ = closeFn()
				return err
			}
			return closeFn()
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to this file instead of stdout")
	cmd.Flags().StringVar(&name, "name", "", "Evaluatee name")
	cmd.Flags().StringVar(&role, "role", "", "Evaluatee role (default "+model.DefaultRole+")")

	return cmd
}
