package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	scerrors "github.com/scorecloud/scorecloud-cli/internal/sdk/errors"
)

// NewScoreCmd creates the score command group.
func NewScoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Inspect and upload scores",
	}

	cmd.AddCommand(
		newScoreInfoCmd(),
		newScoreUploadCmd(),
	)

	return cmd
}

func newScoreInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <id>",
		Short: "Show metadata for a published score",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app(cmd)
			if err != nil {
				return err
			}

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return scerrors.ErrUsage("score id must be numeric")
			}

			info, err := a.API.FetchScoreInfo(cmd.Context(), id)
			if err != nil {
				return err
			}

			fmt.Printf("Title:       %s\n", info.Title)
			fmt.Printf("Owner:       %s (id %d)\n", info.Owner.UserName, info.Owner.ID)
			fmt.Printf("License:     %s\n", info.License)
			fmt.Printf("Private:     %t\n", info.IsPrivate)
			if len(info.Tags) > 0 {
				fmt.Printf("Tags:        %s\n", strings.Join(info.Tags, ", "))
			}
			if info.URL != "" {
				fmt.Printf("URL:         %s\n", info.URL)
			}
			if info.Description != "" {
				fmt.Printf("Description: %s\n", info.Description)
			}
			return nil
		},
	}
}

func newScoreUploadCmd() *cobra.Command {
	var title string
	var sourceURL string

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Publish a score, or update a previous upload",
		Long: "Upload a score file. Pass --source-url from a previous upload to " +
			"update the existing score instead of publishing a new one.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app(cmd)
			if err != nil {
				return err
			}

			file, err := os.Open(args[0])
			if err != nil {
				return scerrors.ErrIO(err)
			}
			defer file.Close()

			if title == "" {
				title = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			}

			task := a.API.UploadScore(cmd.Context(), file, title, sourceURL)
			task.OnStarted(func() {
				fmt.Fprintln(os.Stderr, "Uploading...")
			})
			task.OnProgress(func(current, total int64, message string) {
				if total > 0 {
					fmt.Fprintf(os.Stderr, "\r%s %d%%", message, current*100/total)
				}
			})

			result := task.Wait()
			fmt.Fprintln(os.Stderr)
			if result.Err != nil {
				return result.Err
			}

			fmt.Println(result.SourceURL)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "score title (defaults to the file name)")
	cmd.Flags().StringVar(&sourceURL, "source-url", "", "source URL from a previous upload to update")

	return cmd
}
