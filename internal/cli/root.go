// Package cli assembles the root command and entry point.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scorecloud/scorecloud-cli/internal/appctx"
	"github.com/scorecloud/scorecloud-cli/internal/commands"
	"github.com/scorecloud/scorecloud-cli/internal/config"
	scerrors "github.com/scorecloud/scorecloud-cli/internal/sdk/errors"
	"github.com/scorecloud/scorecloud-cli/internal/version"
)

// NewRootCmd creates the root cobra command.
func NewRootCmd() *cobra.Command {
	var flags appctx.GlobalFlags

	cmd := &cobra.Command{
		Use:           "scorecloud",
		Short:         "Command-line client for the score cloud service",
		Long:          "scorecloud manages your score service account and publishes scores from the command line.",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" || cmd.Name() == "version" {
				return nil
			}

			cfg, err := config.Load(config.FlagOverrides{
				APIRoot:   flags.APIRoot,
				ConfigDir: flags.ConfigDir,
			})
			if err != nil {
				return err
			}

			app, err := appctx.NewApp(cfg)
			if err != nil {
				return err
			}
			app.Flags = flags
			app.ApplyFlags()
			app.Init(cmd.Context())

			cmd.SetContext(appctx.WithApp(cmd.Context(), app))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&flags.APIRoot, "api-root", "", "override the API root URL")
	cmd.PersistentFlags().StringVar(&flags.ConfigDir, "config-dir", "", "override the config directory")
	cmd.PersistentFlags().CountVarP(&flags.Verbose, "verbose", "v", "enable debug logging (stacks)")

	cmd.AddCommand(
		commands.NewAuthCmd(),
		commands.NewWhoamiCmd(),
		commands.NewScoreCmd(),
	)

	return cmd
}

// Execute runs the root command and exits with the mapped error code.
func Execute() {
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", errorMessage(err))
		os.Exit(scerrors.ExitCodeFor(scerrors.CodeOf(err)))
	}
}

func errorMessage(err error) string {
	var e *scerrors.Error
	if errors.As(err, &e) && e.Cause != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Cause)
	}
	return err.Error()
}
