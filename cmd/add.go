package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/s0up4200/pikfront/backend"
)

var (
	addParent string
	addName   string
)

// addCmd submits a magnet link or URL
var addCmd = &cobra.Command{
	Use:   "add URL",
	Short: "Submit a magnet link or URL for offline download",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdd,
}

// quotaCmd shows storage usage
var quotaCmd = &cobra.Command{
	Use:   "quota",
	Short: "Show drive storage usage",
	Args:  cobra.NoArgs,
	RunE:  runQuota,
}

func init() {
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(quotaCmd)

	addCmd.Flags().StringVar(&addParent, "parent", "", "folder ID to download into")
	addCmd.Flags().StringVar(&addName, "name", "", "name for the downloaded file")
}

func runAdd(cmd *cobra.Command, args []string) error {
	link := strings.TrimSpace(args[0])
	if link == "" {
		return errors.New("please enter a magnet link or URL")
	}

	ctx := cmd.Context()
	if _, err := requireLogin(ctx); err != nil {
		return err
	}

	result, err := client.AddDownload(ctx, backend.AddDownloadRequest{
		URL:      link,
		ParentID: addParent,
		Name:     addName,
	})
	if err != nil {
		return fmt.Errorf("failed to add download: %w", err)
	}

	if task := result.Task(); task != nil {
		logger.Info().Str("task_id", task.ID).Str("name", task.Name).Msg("Download task created")
		fmt.Printf("✓ Added %s (ID: %s)\n", task.Name, task.ID)
		return nil
	}
	fmt.Println("✓ Download task added")
	return nil
}

func runQuota(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if _, err := requireLogin(ctx); err != nil {
		return err
	}

	quota, err := client.Quota(ctx)
	if err != nil {
		return fmt.Errorf("failed to load quota: %w", err)
	}
	fmt.Print(consoleFormatter().FormatQuota(quota))
	return nil
}
