package commands

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/taskpilot/api/internal/config"
	"github.com/taskpilot/api/internal/queue"
)

// NewReembedCmd creates the reembed command. It enqueues embedding jobs for
// the worker to process, typically after switching embedding models: search
// skips vectors from other models, so tasks stay invisible until rewritten.
func NewReembedCmd() *cobra.Command {
	var userID string
	var taskID string

	cmd := &cobra.Command{
		Use:   "reembed",
		Short: "Schedule embedding regeneration",
		Long:  "Enqueue embedding refresh jobs for one task (--task-id) or every task a user owns (--user-id).",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return fmt.Errorf("--user-id is required")
			}
			uid, err := uuid.Parse(userID)
			if err != nil {
				return fmt.Errorf("invalid --user-id: %w", err)
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			jobQueue, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL)
			if err != nil {
				return fmt.Errorf("connect to RabbitMQ: %w", err)
			}
			defer func() {
				_ = jobQueue.Close()
			}()

			ctx := context.Background()

			if taskID != "" {
				tid, err := uuid.Parse(taskID)
				if err != nil {
					return fmt.Errorf("invalid --task-id: %w", err)
				}
				job := queue.NewEmbeddingRefreshJob(uid, tid)
				if err := jobQueue.Enqueue(ctx, job); err != nil {
					return fmt.Errorf("enqueue embedding refresh job: %w", err)
				}
				fmt.Printf("Enqueued embedding refresh for task %s (job %s)\n", tid, job.ID)
				return nil
			}

			job := queue.NewJob(queue.JobTypeUserReindex, uid, nil)
			if err := jobQueue.Enqueue(ctx, job); err != nil {
				return fmt.Errorf("enqueue reindex job: %w", err)
			}
			fmt.Printf("Enqueued reindex for user %s (job %s)\n", uid, job.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user-id", "", "Owner of the task(s) to reembed (required)")
	cmd.Flags().StringVar(&taskID, "task-id", "", "Single task to reembed; omit to reindex all of the user's tasks")
	return cmd
}
