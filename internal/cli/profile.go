package cli

import (
	"github.com/spf13/cobra"

	"github.com/mcoot/quill/internal/client/routeguard"
	"github.com/mcoot/quill/internal/model"
)

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "View and edit profiles",
	}

	cmd.AddCommand(newProfileShowCmd())
	cmd.AddCommand(newProfileUpdateCmd())

	return cmd
}

func newProfileShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [identity-id]",
		Short: "Show your profile, or someone else's public profile",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				ctx, cancel := timeout(cmd.Context())
				defer cancel()
				identity, err := client.GetIdentity(ctx, model.IdentityID(args[0]))
				if err != nil {
					return err
				}
				output(cmd).Print(identity)
				return nil
			}

			return withCore(cmd.Context(), func(c *core) error {
				if err := c.enter(cmd.Context(), routeguard.Profile.Path); err != nil {
					return err
				}
				output(cmd).Print(c.store.CurrentIdentity())
				return nil
			})
		},
	}
}

func newProfileUpdateCmd() *cobra.Command {
	var displayName, avatarURL, bio, website string

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Edit your profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			var update model.ProfileUpdate
			if cmd.Flags().Changed("display-name") {
				update.DisplayName = &displayName
			}
			if cmd.Flags().Changed("avatar-url") {
				update.AvatarURL = &avatarURL
			}
			if cmd.Flags().Changed("bio") {
				update.Bio = &bio
			}
			if cmd.Flags().Changed("website") {
				update.Website = &website
			}

			return withCore(cmd.Context(), func(c *core) error {
				if err := c.enter(cmd.Context(), routeguard.Profile.Path); err != nil {
					return err
				}
				identity, err := c.gateway.UpdateProfile(cmd.Context(), update)
				if err != nil {
					return err
				}
				output(cmd).Print(identity)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&displayName, "display-name", "", "Display name")
	cmd.Flags().StringVar(&avatarURL, "avatar-url", "", "Avatar image URL")
	cmd.Flags().StringVar(&bio, "bio", "", "Short biography")
	cmd.Flags().StringVar(&website, "website", "", "Website URL")
	return cmd
}
