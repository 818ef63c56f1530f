// Package commands implements the CLI commands.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scorecloud/scorecloud-cli/internal/appctx"
)

// app retrieves the initialized application context for a command.
func app(cmd *cobra.Command) (*appctx.App, error) {
	a := appctx.FromContext(cmd.Context())
	if a == nil {
		return nil, fmt.Errorf("app not initialized")
	}
	return a, nil
}
