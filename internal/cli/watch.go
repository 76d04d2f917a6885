package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/mcoot/quill/internal/client/routeguard"
	"github.com/mcoot/quill/internal/client/session"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream session changes",
		Long: `Print a line for every change to your session: profile edits and
sign-outs made elsewhere, and session expiry.

The command exits when the session ends. Press Ctrl+C to stop earlier.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCore(cmd.Context(), func(c *core) error {
				if err := c.enter(cmd.Context(), routeguard.Profile.Path); err != nil {
					return err
				}
				out := output(cmd)
				out.Print(NewTransition(time.Now(), c.store.Snapshot()))

				unsubscribe := c.store.Subscribe(func(snap session.Snapshot) {
					out.Print(NewTransition(time.Now(), snap))
				})
				defer unsubscribe()

				return client.Watch(cmd.Context())
			})
		},
	}
}
