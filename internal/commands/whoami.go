package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewWhoamiCmd creates the whoami command.
func NewWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app(cmd)
			if err != nil {
				return err
			}

			info, err := a.API.FetchAccountInfo(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("%s (id %d)\n", info.UserName, info.ID)
			fmt.Printf("Profile:    %s\n", info.ProfileURL)
			fmt.Printf("Avatar:     %s\n", info.AvatarURL)
			fmt.Printf("Sheetmusic: %s\n", info.SheetmusicURL)
			return nil
		},
	}
}
