package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/dyluth/videoscout/internal/checkpoint"
	"github.com/dyluth/videoscout/internal/printer"
)

var watchThread string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Monitor session progress in real time",
	Long: `Monitor session progress in real time.

Every checkpoint save is published on the instance's session events channel;
watch subscribes and prints each event as it arrives. Requires a Redis-backed
checkpoint store (redis.url in scout.yml).

Examples:
  # Watch all sessions of this instance
  videoscout watch

  # Watch one session
  videoscout watch --thread 8f2e1a`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchThread, "thread", "t", "", "Only show events for this thread id")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Redis.URL == "" {
		return printer.Error(
			"watch requires a Redis-backed checkpoint store",
			"The in-memory store publishes no events.",
			[]string{"Set redis.url in " + configPath},
		)
	}

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	store, err := checkpoint.NewRedisStore(opts, cfg.Instance)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Ping(ctx); err != nil {
		return printer.ErrorWithContext(
			"Redis connection failed",
			fmt.Sprintf("Could not connect to Redis at %s", cfg.Redis.URL),
			map[string]string{"Instance": cfg.Instance},
			[]string{"Check that Redis is running and redis.url is correct"},
		)
	}

	sub, err := store.SubscribeSessionEvents(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to session events: %w", err)
	}
	defer sub.Close()

	printer.Info("Watching instance %q (Ctrl+C to stop)\n", cfg.Instance)

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-sub.Errors():
			if ok {
				printer.Warning("event skipped: %v\n", err)
			}
		case rec, ok := <-sub.Events():
			if !ok {
				return nil
			}
			if watchThread != "" && rec.ThreadID != watchThread {
				continue
			}
			printer.Printf("[%s] next=%s loop=%d videos=%d\n",
				rec.ThreadID, rec.NextStage, rec.Board.LoopStep, len(rec.Board.VideoStore))
		}
	}
}
