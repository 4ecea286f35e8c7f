package backend

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// DefaultBatchConcurrency bounds concurrent task operations
const DefaultBatchConcurrency = 5

// BatchResult contains the results of a batch task operation
type BatchResult struct {
	Requested  int
	Successful []string
	Failed     []TaskError
}

// Err returns nil when every operation succeeded, otherwise the first failure
func (r BatchResult) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	if len(r.Failed) == 1 {
		return r.Failed[0]
	}
	return fmt.Errorf("%d of %d operations failed, first: %w", len(r.Failed), r.Requested, r.Failed[0])
}

// TaskError contains information about a failed task operation
type TaskError struct {
	TaskID string
	Err    error
}

// Error implements the error interface
func (e TaskError) Error() string {
	return fmt.Sprintf("task %s: %v", e.TaskID, e.Err)
}

// Unwrap returns the underlying error
func (e TaskError) Unwrap() error {
	return e.Err
}

// BatchDeleteTasks deletes tasks concurrently, collecting per-task results
func BatchDeleteTasks(ctx context.Context, api API, taskIDs []string, deleteFiles bool) BatchResult {
	return runBatch(ctx, taskIDs, func(ctx context.Context, id string) error {
		return api.DeleteTask(ctx, id, deleteFiles)
	})
}

// BatchRetryTasks retries tasks concurrently, collecting per-task results
func BatchRetryTasks(ctx context.Context, api API, taskIDs []string) BatchResult {
	return runBatch(ctx, taskIDs, api.RetryTask)
}

func runBatch(ctx context.Context, ids []string, op func(context.Context, string) error) BatchResult {
	result := BatchResult{
		Requested: len(ids),
	}

	if len(ids) == 0 {
		return result
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(DefaultBatchConcurrency)

	successChan := make(chan string, len(ids))
	errorChan := make(chan TaskError, len(ids))

	for _, id := range ids {
		g.Go(func() error {
			if err := op(ctx, id); err != nil {
				errorChan <- TaskError{TaskID: id, Err: err}
			} else {
				successChan <- id
			}
			return nil // Don't stop on individual errors
		})
	}

	g.Wait()
	close(successChan)
	close(errorChan)

	for id := range successChan {
		result.Successful = append(result.Successful, id)
	}
	for err := range errorChan {
		result.Failed = append(result.Failed, err)
	}

	return result
}
