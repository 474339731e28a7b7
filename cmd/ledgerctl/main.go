// ledgerctl is the operations CLI: it enqueues background tasks and
// inspects the job queue without going through the HTTP API.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ledgerkit/ledgerkit/internal/app"
	"github.com/ledgerkit/ledgerkit/jobs"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Operations CLI for the sales document service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newEnqueueCmd(), newQueueCmd())
	return root
}

func redisOpts() (asynq.RedisClientOpt, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}
	return asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}, nil
}

func newEnqueueCmd() *cobra.Command {
	enqueue := &cobra.Command{
		Use:   "enqueue",
		Short: "Enqueue a background task",
	}

	var asOf string
	overdue := &cobra.Command{
		Use:   "overdue-scan",
		Short: "Mark sent invoices past their due date as overdue",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := jobs.OverdueScanPayload{}
			if asOf != "" {
				parsed, err := time.Parse("2006-01-02", asOf)
				if err != nil {
					return fmt.Errorf("--as-of must be YYYY-MM-DD: %w", err)
				}
				payload.AsOf = parsed
			}
			opts, err := redisOpts()
			if err != nil {
				return err
			}
			client, err := jobs.NewClient(opts)
			if err != nil {
				return err
			}
			defer client.Close()

			info, err := client.EnqueueOverdueScan(cmd.Context(), payload)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s id=%s\n", info.Type, info.ID)
			return nil
		},
	}
	overdue.Flags().StringVar(&asOf, "as-of", "", "scan reference date (YYYY-MM-DD, defaults to now)")

	var tenantID string
	warmup := &cobra.Command{
		Use:   "warmup",
		Short: "Precompute the monthly document groupings",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := redisOpts()
			if err != nil {
				return err
			}
			client, err := jobs.NewClient(opts)
			if err != nil {
				return err
			}
			defer client.Close()

			info, err := client.EnqueueAggregatesWarmup(cmd.Context(), jobs.AggregatesWarmupPayload{TenantID: tenantID})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s id=%s\n", info.Type, info.ID)
			return nil
		},
	}
	warmup.Flags().StringVar(&tenantID, "tenant", "", "warm a single tenant (defaults to all)")

	enqueue.AddCommand(overdue, warmup)
	return enqueue
}

func newQueueCmd() *cobra.Command {
	queue := &cobra.Command{
		Use:   "queue",
		Short: "Inspect the job queue",
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Print queue depth and processing counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := redisOpts()
			if err != nil {
				return err
			}
			inspector := asynq.NewInspector(opts)
			defer inspector.Close()

			info, err := inspector.GetQueueInfo(jobs.QueueDefault)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queue=%s pending=%d active=%d retry=%d failed=%d\n",
				info.Queue, info.Pending, info.Active, info.Retry, info.Failed)
			return nil
		},
	}

	queue.AddCommand(status)
	return queue
}
