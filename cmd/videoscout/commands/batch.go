package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dyluth/videoscout/internal/batch"
	"github.com/dyluth/videoscout/internal/printer"
)

var (
	batchFile        string
	batchConcurrency int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run many research sessions concurrently",
	Long: `Run many research sessions concurrently from a file of queries.

The file holds one query per line; blank lines and lines starting with '#'
are skipped. Each query runs as an independent session with its own thread
id, up to the configured concurrency.

Examples:
  # Run a query file with the configured concurrency
  videoscout batch --file queries.txt

  # Override the worker pool size
  videoscout batch --file queries.txt --concurrency 8`,
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().StringVarP(&batchFile, "file", "f", "", "File with one query per line (required)")
	batchCmd.Flags().IntVarP(&batchConcurrency, "concurrency", "j", 0, "Parallel sessions (overrides batch.concurrency)")
	batchCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	queries, err := readQueries(batchFile)
	if err != nil {
		return printer.Error(
			"could not read query file",
			fmt.Sprintf("Error: %v", err),
			[]string{"Pass a readable file with one query per line via --file"},
		)
	}
	if len(queries) == 0 {
		return printer.Error(
			"query file is empty",
			fmt.Sprintf("No queries found in %s.", batchFile),
			[]string{"Add one query per line; '#' starts a comment"},
		)
	}

	store, closeStore, err := newStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	logger := newLogger()
	eng, err := newEngine(cfg, store, logger)
	if err != nil {
		return err
	}

	concurrency := *cfg.Batch.Concurrency
	if batchConcurrency > 0 {
		concurrency = batchConcurrency
	}

	runner, err := batch.NewRunner(eng, concurrency, logger)
	if err != nil {
		return err
	}

	printer.Info("Running %d queries with %d workers\n\n", len(queries), concurrency)
	outcomes := runner.Run(ctx, queries)

	failed := 0
	for _, out := range outcomes {
		switch {
		case out.Err != nil:
			failed++
			printer.Warning("%s: %v\n", out.Query, out.Err)
		case out.Suspended:
			printer.Warning("%s: suspended, resume with 'videoscout resume %s --answer ...'\n", out.Query, out.ThreadID)
		default:
			printer.Success("%s (%s, %d loops)\n", out.Query, out.Elapsed.Round(time.Millisecond), out.LoopSteps)
			printer.Printf("  %s\n", firstLine(out.Answer))
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d sessions failed", failed, len(outcomes))
	}
	printer.Success("All %d sessions complete\n", len(outcomes))
	return nil
}

func readQueries(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var queries []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		queries = append(queries, line)
	}
	return queries, scanner.Err()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
