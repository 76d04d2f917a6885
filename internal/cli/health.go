package cli

import (
	"github.com/spf13/cobra"
)

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the server is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := timeout(cmd.Context())
			defer cancel()

			status, err := client.Health(ctx)
			if err != nil {
				return err
			}

			output(cmd).Print(HealthResult{
				Status:   status,
				Server:   cfg.ServerURL,
				SignedIn: client.HasToken(),
			})
			return nil
		},
	}
}
