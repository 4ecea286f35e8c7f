package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/s0up4200/pikfront/backend"
	"github.com/s0up4200/pikfront/filter"
	"github.com/s0up4200/pikfront/session"
)

var (
	taskPhases  []string
	filterExpr  string
	preset      string
	watch       bool
	deleteFiles bool
)

// tasksCmd lists download tasks
var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List download tasks",
	Long: `List offline download tasks, optionally limited to some phases and
narrowed with a filter expression or a preset from config.

Examples:
  pikfront tasks --phase running --phase pending
  pikfront tasks --filter 'isError() or Progress < 10'
  pikfront tasks --preset stalled --watch`,
	Args: cobra.NoArgs,
	RunE: runTasks,
}

// tasksRmCmd deletes download tasks
var tasksRmCmd = &cobra.Command{
	Use:     "rm TASK_ID...",
	Aliases: []string{"delete"},
	Short:   "Delete download tasks",
	Args:    cobra.MinimumNArgs(1),
	RunE:    runTasksRm,
}

// tasksRetryCmd retries download tasks
var tasksRetryCmd = &cobra.Command{
	Use:   "retry TASK_ID...",
	Short: "Retry failed download tasks",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTasksRetry,
}

func init() {
	rootCmd.AddCommand(tasksCmd)
	tasksCmd.AddCommand(tasksRmCmd)
	tasksCmd.AddCommand(tasksRetryCmd)

	tasksCmd.Flags().StringSliceVar(&taskPhases, "phase", nil, "only show tasks in these phases (running, pending, error, complete)")
	tasksCmd.Flags().StringVarP(&filterExpr, "filter", "f", "", "filter expression")
	tasksCmd.Flags().StringVarP(&preset, "preset", "p", "", "use a preset filter from config")
	tasksCmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep refreshing at the configured poll interval")

	tasksRmCmd.Flags().BoolVar(&deleteFiles, "delete-files", false, "also delete the downloaded files")
	tasksRmCmd.Flags().BoolVarP(&noConfirm, "yes", "y", false, "skip confirmation prompt")
}

func parsePhases(values []string) ([]backend.Phase, error) {
	phases := make([]backend.Phase, 0, len(values))
	for _, value := range values {
		phase, err := backend.ParsePhase(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", err, value)
		}
		phases = append(phases, phase)
	}
	return phases, nil
}

func runTasks(cmd *cobra.Command, args []string) error {
	phases, err := parsePhases(taskPhases)
	if err != nil {
		return err
	}

	program, err := filters.Resolve(filterExpr, preset)
	if err != nil {
		return fmt.Errorf("invalid filter expression: %w", err)
	}
	if program != nil {
		logger.Info().Str("filter", program.Expression()).Msg("Filtering tasks")
	}

	ctx := cmd.Context()
	if _, err := requireLogin(ctx); err != nil {
		return err
	}

	show := func(ctx context.Context) error {
		list, err := client.ListTasks(ctx, phases...)
		if err != nil {
			return fmt.Errorf("failed to load tasks: %w", err)
		}
		if watch && isTerminal(os.Stdout) {
			fmt.Print("\033[H\033[2J")
		}
		fmt.Print(consoleFormatter().FormatTasks(filter.Tasks(program, list.Tasks)))
		return nil
	}

	if err := show(ctx); err != nil || !watch {
		return err
	}

	poller := session.NewPoller(cfg.Poll.Interval, func(ctx context.Context) {
		if err := show(ctx); err != nil && ctx.Err() == nil {
			logger.Warn().Err(err).Msg("Refresh failed")
		}
	}, logger)
	poller.Start()
	defer poller.Stop()

	<-ctx.Done()
	return nil
}

func runTasksRm(cmd *cobra.Command, args []string) error {
	ok, err := confirm(fmt.Sprintf("Delete %d %s?", len(args), pluralTasks(len(args))))
	if err != nil {
		return err
	}
	if !ok {
		logger.Info().Msg("Deletion cancelled")
		return nil
	}

	ctx := cmd.Context()
	if _, err := requireLogin(ctx); err != nil {
		return err
	}

	return batchSummary("Deleted", backend.BatchDeleteTasks(ctx, client, args, deleteFiles))
}

func runTasksRetry(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if _, err := requireLogin(ctx); err != nil {
		return err
	}

	return batchSummary("Retried", backend.BatchRetryTasks(ctx, client, args))
}
