package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newListCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show every stored setting",
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withStores(cmd.Context(), func(s *Stores) error {
				ctx, out := cmd.Context(), cmd.OutOrStdout()
				if err := printOIDC(ctx, out, s.OIDC); err != nil {
					return err
				}
				fmt.Fprintln(out)
				if err := printCORS(ctx, out, s.CORS); err != nil {
					return err
				}
				fmt.Fprintln(out)
				return printRate(ctx, out, s.Rate)
			})
		},
	}
}
