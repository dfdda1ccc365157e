package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dyluth/videoscout/internal/engine"
	"github.com/dyluth/videoscout/internal/printer"
)

var resumeAnswer string

var resumeCmd = &cobra.Command{
	Use:   "resume <thread-id>",
	Short: "Resume a checkpointed session",
	Long: `Resume a checkpointed session from its last completed stage.

A session suspended on a clarifying question needs --answer; the answer is
recorded as an additional constraint and research re-enters at the planner.
An interrupted session resumes without it.

Examples:
  # Resume an interrupted session
  videoscout resume 8f2e1a

  # Answer a clarifying question
  videoscout resume 8f2e1a --answer "the savory variant"`,
	Args: cobra.ExactArgs(1),
	RunE: runResume,
}

func init() {
	resumeCmd.Flags().StringVarP(&resumeAnswer, "answer", "a", "", "Answer to the session's clarifying question")
	rootCmd.AddCommand(resumeCmd)
}

func runResume(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	threadID := args[0]

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	store, closeStore, err := newStore(cfg)
	if err != nil {
		return printer.Error(
			"checkpoint store unavailable",
			fmt.Sprintf("Error: %v", err),
			[]string{"Check redis.url in " + configPath},
		)
	}
	defer closeStore()

	if cfg.Redis.URL == "" {
		printer.Warning("redis.url is empty: the in-memory store holds no checkpoints from previous runs\n")
	}

	logger := newLogger()
	eng, err := newEngine(cfg, store, logger)
	if err != nil {
		return err
	}

	var result *engine.Result
	if resumeAnswer != "" {
		result, err = eng.ResumeWithAnswer(ctx, threadID, resumeAnswer, stagePrinter())
	} else {
		result, err = eng.Resume(ctx, threadID, stagePrinter())
	}
	if err != nil {
		return printer.ErrorWithContext(
			"resume failed",
			fmt.Sprintf("Error: %v", err),
			map[string]string{"Thread": threadID},
			[]string{"Start a new session with 'videoscout ask'"},
		)
	}

	if result.Suspended {
		printer.Question(threadID, result.Board.AmbiguityNote)
		return nil
	}

	printer.Answer(result.FinalAnswer())
	printer.Success("Session %s complete after %d loop(s)\n", threadID, result.Board.LoopStep)
	return nil
}
