package commands

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dyluth/videoscout/internal/printer"
)

var (
	askQuery  string
	askThread string
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Start a research session for a query",
	Long: `Start a research session for a query.

The session runs the full research loop: plan searches, find candidate
videos, inspect the promising ones, and synthesize an answer. Progress is
checkpointed after every stage; pass --thread to continue an existing
session under the same identifier.

Examples:
  # Ask a question
  videoscout ask --query "how is caramel coloring made"

  # Continue a session under a known thread id
  videoscout ask --thread my-session --query "how is caramel coloring made"`,
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askQuery, "query", "q", "", "Research question (required)")
	askCmd.Flags().StringVarP(&askThread, "thread", "t", "", "Session thread id (generated if omitted)")
	askCmd.MarkFlagRequired("query")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	store, closeStore, err := newStore(cfg)
	if err != nil {
		return printer.Error(
			"checkpoint store unavailable",
			fmt.Sprintf("Error: %v", err),
			[]string{"Check redis.url in " + configPath, "Leave redis.url empty to run with the in-memory store"},
		)
	}
	defer closeStore()

	logger := newLogger()
	eng, err := newEngine(cfg, store, logger)
	if err != nil {
		return err
	}

	threadID := askThread
	if threadID == "" {
		threadID = uuid.New().String()
	}
	printer.Info("Session %s\n", threadID)

	result, err := eng.Run(ctx, threadID, askQuery, stagePrinter())
	if err != nil {
		return fmt.Errorf("session %s failed: %w", threadID, err)
	}

	if result.Suspended {
		printer.Question(threadID, result.Board.AmbiguityNote)
		return nil
	}

	printer.Answer(result.FinalAnswer())
	printer.Success("Session %s complete after %d loop(s)\n", threadID, result.Board.LoopStep)
	return nil
}
