package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/s0up4200/pikfront/backend"
	"github.com/s0up4200/pikfront/config"
	"github.com/s0up4200/pikfront/filter"
	"github.com/s0up4200/pikfront/metrics"
	"github.com/s0up4200/pikfront/render"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  zerolog.Logger
	client  *backend.Client
	filters *filter.Manager

	// Command flags
	username  string
	password  string
	showIDs   bool
	noConfirm bool
)

// errNoCredentials is returned by commands that need a backend session when
// neither config nor flags provide credentials
var errNoCredentials = errors.New("no credentials: set backend.username and backend.password or pass --username and --password")

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "pikfront",
	Short: "Manage PikPak downloads and drive files",
	Long: `pikfront is a front end for a PikPak download backend. It submits magnet
links and URLs, follows download tasks, browses drive folders and serves a
small web UI that does all of this from the browser.`,
	SilenceUsage:      true,
	PersistentPreRunE: initializeApp,
}

// Execute adds all child commands to the root command and runs it until it
// finishes or the process is interrupted.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&username, "username", "u", "", "backend username (overrides backend.username)")
	rootCmd.PersistentFlags().StringVarP(&password, "password", "P", "", "backend password (overrides backend.password)")
	rootCmd.PersistentFlags().BoolVar(&showIDs, "ids", false, "show task and file IDs")
}

// initializeApp loads the configuration and creates the backend client
func initializeApp(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger = setupLogger(cfg.Logging)

	filters = filter.NewManager()
	if err := filters.RegisterAll(cfg.Filter.Presets); err != nil {
		return fmt.Errorf("invalid filter preset: %w", err)
	}

	client, err = backend.NewClient(cfg.Backend.URL, logger,
		backend.WithTimeout(cfg.Backend.Timeout),
		backend.WithObserver(metrics.ObserveBackendRequest),
	)
	if err != nil {
		return fmt.Errorf("failed to create backend client: %w", err)
	}

	return nil
}

// setupLogger configures the zerolog logger. Color is only used when stderr
// is a terminal.
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level := zerolog.InfoLevel
	switch strings.ToLower(cfg.Level) {
	case "trace":
		level = zerolog.TraceLevel
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	if cfg.Format == "json" {
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    !cfg.Color || !isTerminal(os.Stderr),
	}

	return zerolog.New(output).With().Timestamp().Logger()
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// credentials returns the flag credentials, falling back to the config
func credentials() (string, string) {
	user, pass := cfg.Backend.Username, cfg.Backend.Password
	if username != "" {
		user = username
	}
	if password != "" {
		pass = password
	}
	return user, pass
}

// requireLogin opens a backend session for commands that need one
func requireLogin(ctx context.Context) (*backend.User, error) {
	user, pass := credentials()
	if user == "" || pass == "" {
		return nil, errNoCredentials
	}

	u, err := client.Login(ctx, user, pass)
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}
	logger.Debug().Str("user", u.DisplayName()).Msg("Logged in")
	return u, nil
}

func consoleFormatter() *render.ConsoleFormatter {
	return render.NewConsoleFormatter(showIDs)
}

// confirm asks a yes/no question on stdin. --yes answers it up front.
func confirm(prompt string) (bool, error) {
	if noConfirm {
		return true, nil
	}

	fmt.Printf("%s [y/N]: ", prompt)
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return false, fmt.Errorf("failed to read input: %w", err)
		}
		return false, nil
	}
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return answer == "y" || answer == "yes", nil
}

// batchSummary prints the outcome of a batch task operation
func batchSummary(verb string, result backend.BatchResult) error {
	if n := len(result.Successful); n > 0 {
		fmt.Printf("✓ %s %d %s\n", verb, n, pluralTasks(n))
	}
	for _, failure := range result.Failed {
		fmt.Printf("✗ %s: %s\n", failure.TaskID, backend.Message(failure.Err))
	}
	return result.Err()
}

func pluralTasks(n int) string {
	if n == 1 {
		return "task"
	}
	return "tasks"
}
