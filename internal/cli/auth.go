package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Account and session commands",
	}

	cmd.AddCommand(newAuthSignUpCmd())
	cmd.AddCommand(newAuthConfirmCmd())
	cmd.AddCommand(newAuthSignInCmd())
	cmd.AddCommand(newAuthSignOutCmd())
	cmd.AddCommand(newAuthWhoAmICmd())

	return cmd
}

func passwordFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "password", "p", "", "Password (env: QUILL_PASSWORD)")
}

func resolvePassword(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if cfg.Password != "" {
		return cfg.Password, nil
	}
	return "", errors.New("a password is required: pass --password or set QUILL_PASSWORD")
}

func newAuthSignUpCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "signup <email>",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := resolvePassword(password)
			if err != nil {
				return err
			}
			return withCore(cmd.Context(), func(c *core) error {
				result, err := c.gateway.SignUp(cmd.Context(), args[0], pw)
				if err != nil {
					return err
				}
				out := output(cmd)
				if result.ConfirmationRequired {
					out.PrintMessage(fmt.Sprintf("Check your email for a confirmation code, then run: quill auth confirm %s <code>", args[0]))
					return nil
				}
				out.Print(result.Identity)
				return nil
			})
		},
	}

	passwordFlag(cmd, &password)
	return cmd
}

func newAuthConfirmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "confirm <email> <code>",
		Short: "Confirm an email address with the code sent at sign-up",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := timeout(cmd.Context())
			defer cancel()

			if err := client.Confirm(ctx, args[0], args[1]); err != nil {
				return err
			}
			output(cmd).PrintMessage("Email confirmed, you can now sign in")
			return nil
		},
	}
}

func newAuthSignInCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "signin <email>",
		Short: "Sign in and remember the session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := resolvePassword(password)
			if err != nil {
				return err
			}
			return withCore(cmd.Context(), func(c *core) error {
				identity, err := c.gateway.SignIn(cmd.Context(), args[0], pw)
				if err != nil {
					return err
				}
				output(cmd).Print(identity)
				return nil
			})
		},
	}

	passwordFlag(cmd, &password)
	return cmd
}

func newAuthSignOutCmd() *cobra.Command {
	var everywhere bool

	cmd := &cobra.Command{
		Use:   "signout",
		Short: "Sign out",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCore(cmd.Context(), func(c *core) error {
				if everywhere {
					ctx, cancel := timeout(cmd.Context())
					defer cancel()
					if err := client.SignOutEverywhere(ctx); err != nil {
						return err
					}
				}
				if err := c.gateway.SignOut(cmd.Context()); err != nil {
					return err
				}
				output(cmd).PrintMessage("You have been signed out")
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&everywhere, "all", false, "Sign out every session of this account")
	return cmd
}

func newAuthWhoAmICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show who is signed in",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCore(cmd.Context(), func(c *core) error {
				identity := c.store.CurrentIdentity()
				if identity == nil {
					output(cmd).PrintMessage("Not signed in")
					return nil
				}
				output(cmd).Print(identity)
				return nil
			})
		},
	}
}
