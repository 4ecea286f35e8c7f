package cmd

import (
	"fmt"
	"runtime"

	"github.com/blang/semver"
	"github.com/creativeprojects/go-selfupdate"
	"github.com/spf13/cobra"

	"github.com/s0up4200/pikfront/config"
)

// releaseRepository is the GitHub repository releases are published to
const releaseRepository = "s0up4200/pikfront"

var (
	version   = "dev"
	buildTime = "unknown"
)

// SetVersion records build information injected through ldflags
func SetVersion(v, bt string) {
	version = v
	buildTime = bt
	rootCmd.Version = v
}

// versionCmd prints build information
var versionCmd = &cobra.Command{
	Use:               "version",
	Short:             "Print version information",
	Args:              cobra.NoArgs,
	PersistentPreRunE: skipInitialize,
	RunE:              runVersion,
}

// updateCmd replaces the running binary with the latest release
var updateCmd = &cobra.Command{
	Use:               "update",
	Short:             "Update pikfront to the latest release",
	Args:              cobra.NoArgs,
	PersistentPreRunE: skipInitialize,
	RunE:              runUpdate,
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(updateCmd)
}

// skipInitialize lets commands run without a config file
func skipInitialize(cmd *cobra.Command, args []string) error {
	logger = setupLogger(config.LoggingConfig{Level: "info", Format: "console", Color: true})
	return nil
}

// currentVersion parses the build version. Development builds have none.
func currentVersion() (semver.Version, bool) {
	v, err := semver.ParseTolerant(version)
	if err != nil {
		return semver.Version{}, false
	}
	return v, true
}

func runVersion(cmd *cobra.Command, args []string) error {
	fmt.Printf("pikfront %s\n", version)
	fmt.Printf("Built:    %s\n", buildTime)
	fmt.Printf("Go:       %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	return nil
}

func runUpdate(cmd *cobra.Command, args []string) error {
	current, ok := currentVersion()
	if !ok {
		return fmt.Errorf("cannot update a development build (version %q)", version)
	}

	ctx := cmd.Context()
	latest, found, err := selfupdate.DetectLatest(ctx, selfupdate.ParseSlug(releaseRepository))
	if err != nil {
		return fmt.Errorf("failed to check for updates: %w", err)
	}
	if !found {
		return fmt.Errorf("no release found for %s/%s", runtime.GOOS, runtime.GOARCH)
	}

	if latest.LessOrEqual(current.String()) {
		fmt.Printf("✓ pikfront %s is up to date\n", current)
		return nil
	}

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		return fmt.Errorf("failed to locate executable: %w", err)
	}

	logger.Info().
		Str("current", current.String()).
		Str("latest", latest.Version()).
		Msg("Updating")

	if err := selfupdate.UpdateTo(ctx, latest.AssetURL, latest.AssetName, exe); err != nil {
		return fmt.Errorf("failed to update binary: %w", err)
	}

	fmt.Printf("✓ Updated pikfront %s → %s\n", current, latest.Version())
	return nil
}
