package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/s0up4200/pikfront/backend"
	"github.com/s0up4200/pikfront/filter"
	"github.com/s0up4200/pikfront/render"
	"github.com/s0up4200/pikfront/session"
)

var (
	parentID   string
	allPages   bool
	outputPath string
)

// filesCmd lists a drive folder
var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List drive files",
	Long: `List the entries of a drive folder, folders first. Without --parent the
root folder is listed.

Examples:
  pikfront files --parent VNayNjZtsdmka --all
  pikfront files --filter 'ext() == "mkv" and Size > 1000000000'`,
	Args: cobra.NoArgs,
	RunE: runFiles,
}

// trashCmd moves drive entries to the trash
var trashCmd = &cobra.Command{
	Use:   "trash FILE_ID...",
	Short: "Move drive files to the trash",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTrash,
}

// urlCmd prints a direct download link
var urlCmd = &cobra.Command{
	Use:   "url FILE_ID",
	Short: "Print the direct download link of a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runURL,
}

// downloadCmd saves a file through the backend proxy
var downloadCmd = &cobra.Command{
	Use:   "download FILE_ID",
	Short: "Download a file through the backend",
	Args:  cobra.ExactArgs(1),
	RunE:  runDownload,
}

func init() {
	rootCmd.AddCommand(filesCmd)
	rootCmd.AddCommand(trashCmd)
	rootCmd.AddCommand(urlCmd)
	rootCmd.AddCommand(downloadCmd)

	filesCmd.Flags().StringVar(&parentID, "parent", "", "folder ID to list (default is the root folder)")
	filesCmd.Flags().StringVarP(&filterExpr, "filter", "f", "", "filter expression")
	filesCmd.Flags().BoolVarP(&allPages, "all", "a", false, "fetch every page of the listing")

	trashCmd.Flags().BoolVarP(&noConfirm, "yes", "y", false, "skip confirmation prompt")

	downloadCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file (default is the file name in the current directory)")
}

func runFiles(cmd *cobra.Command, args []string) error {
	var program *filter.Program
	if filterExpr != "" {
		p, err := filters.Compile(filterExpr)
		if err != nil {
			return fmt.Errorf("invalid filter expression: %w", err)
		}
		program = p
	}

	ctx := cmd.Context()
	if _, err := requireLogin(ctx); err != nil {
		return err
	}

	var (
		files     []backend.FileEntry
		pageToken string
	)
	for {
		list, err := client.ListFiles(ctx, parentID, pageToken)
		if err != nil {
			return fmt.Errorf("failed to load files: %w", err)
		}
		files = append(files, list.Files...)
		pageToken = list.NextPageToken
		if !list.HasMorePages() || !allPages {
			break
		}
	}

	name := session.RootName
	if parentID != "" {
		name = parentID
	}
	fmt.Print(consoleFormatter().FormatFiles(filter.Files(program, files), name))
	if pageToken != "" && !allPages {
		fmt.Println("More entries available, use --all to list them.")
	}
	return nil
}

func runTrash(cmd *cobra.Command, args []string) error {
	ok, err := confirm(fmt.Sprintf("Move %d %s to the trash?", len(args), pluralItems(len(args))))
	if err != nil {
		return err
	}
	if !ok {
		logger.Info().Msg("Trash cancelled")
		return nil
	}

	ctx := cmd.Context()
	if _, err := requireLogin(ctx); err != nil {
		return err
	}

	if err := client.TrashFiles(ctx, args); err != nil {
		return fmt.Errorf("failed to trash files: %w", err)
	}
	fmt.Printf("✓ Moved %d %s to trash\n", len(args), pluralItems(len(args)))
	return nil
}

func pluralItems(n int) string {
	if n == 1 {
		return "item"
	}
	return "items"
}

func runURL(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if _, err := requireLogin(ctx); err != nil {
		return err
	}

	info, err := client.DownloadURL(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to get download link: %w", err)
	}
	link := info.URL()
	if link == "" {
		return fmt.Errorf("no download link available for %s", args[0])
	}
	fmt.Println(link)
	return nil
}

func runDownload(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if _, err := requireLogin(ctx); err != nil {
		return err
	}

	dl, err := client.ProxyDownload(ctx, args[0])
	if err != nil {
		return err
	}
	defer dl.Body.Close()

	target := outputPath
	if target == "" {
		target = filepath.Base(filepath.Clean("/" + dl.Name))
	}

	logger.Info().Str("file", target).Int64("size", dl.ContentLength).Msg("Downloading")
	written, err := saveDownload(dl.Body, target)
	if err != nil {
		return err
	}

	fmt.Printf("✓ Saved %s (%s)\n", target, render.FormatSize(written))
	return nil
}

// saveDownload writes body to target. A partial file is removed on failure.
func saveDownload(body io.Reader, target string) (int64, error) {
	out, err := os.Create(target)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", target, err)
	}

	written, err := io.Copy(out, body)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		if removeErr := os.Remove(target); removeErr != nil {
			logger.Warn().Err(removeErr).Str("file", target).Msg("Failed to remove partial download")
		}
		return written, fmt.Errorf("failed to write %s: %w", target, err)
	}
	return written, nil
}
