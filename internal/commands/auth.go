package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	scerrors "github.com/scorecloud/scorecloud-cli/internal/sdk/errors"
	"github.com/scorecloud/scorecloud-cli/internal/session"
)

// NewAuthCmd creates the auth command group.
func NewAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage authentication",
		Long:  "Manage account authentication including sign-in, sign-up, sign-out, and token refresh.",
	}

	cmd.AddCommand(
		newAuthLoginCmd(),
		newAuthSignUpCmd(),
		newAuthLogoutCmd(),
		newAuthStatusCmd(),
		newAuthRefreshCmd(),
	)

	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in to the score service",
		Long:  "Start the browser authorization flow and store the resulting tokens.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app(cmd)
			if err != nil {
				return err
			}

			fmt.Println("Opening browser for authorization...")
			if err := a.API.SignIn(cmd.Context()); err != nil {
				return err
			}

			info, err := a.API.FetchAccountInfo(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("Signed in as %s (id %d)\n", info.UserName, info.ID)
			return nil
		},
	}
}

func newAuthSignUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app(cmd)
			if err != nil {
				return err
			}

			fmt.Println("Opening browser for account creation...")
			if err := a.API.SignUp(cmd.Context()); err != nil {
				return err
			}

			info, err := a.API.FetchAccountInfo(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("Signed in as %s (id %d)\n", info.UserName, info.ID)
			return nil
		},
	}
}

func newAuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and delete stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app(cmd)
			if err != nil {
				return err
			}

			if err := a.API.SignOut(cmd.Context()); err != nil {
				return err
			}

			fmt.Println("Signed out.")
			return nil
		},
	}
}

func newAuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show authentication status",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app(cmd)
			if err != nil {
				return err
			}

			if !a.Session.SignedIn() {
				if a.Auth.AccessToken() != "" {
					fmt.Println("Tokens present, but the session could not be confirmed.")
				} else {
					fmt.Println("Not signed in.")
				}
				return nil
			}

			info := a.Session.Account()
			fmt.Printf("Signed in as %s (id %d)\n", info.UserName, info.ID)
			fmt.Printf("Profile: %s\n", info.ProfileURL)
			return nil
		},
	}
}

func newAuthRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Force a token refresh",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app(cmd)
			if err != nil {
				return err
			}

			if !a.Auth.Refresh(cmd.Context()) {
				a.Session.SetAccount(session.AccountInfo{})
				return scerrors.ErrNotAuthorized()
			}

			fmt.Println("Tokens refreshed.")
			return nil
		},
	}
}
