package commands

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/dyluth/videoscout/internal/checkpoint"
	"github.com/dyluth/videoscout/internal/collab"
	"github.com/dyluth/videoscout/internal/config"
	"github.com/dyluth/videoscout/internal/engine"
	"github.com/dyluth/videoscout/internal/printer"
	"github.com/dyluth/videoscout/internal/stage"
	"github.com/dyluth/videoscout/pkg/blackboard"
)

var (
	version string
	commit  string
	date    string

	configPath string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "videoscout",
	Short: "Videoscout - Video research agent",
	Long: `Videoscout answers questions by researching video content: it plans
search queries, finds candidate videos, inspects the promising ones frame by
frame, and synthesizes an answer grounded in what the videos actually show.

Sessions checkpoint after every stage, so an interrupted or suspended run can
be resumed where it left off.`,
	Version: version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "scout.yml", "Path to configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log structured engine events to stderr")
}

// loadConfig reads the configured scout.yml, falling back to defaults when
// the file does not exist and the user did not name one explicitly.
func loadConfig(cmd *cobra.Command) (*config.ScoutConfig, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) && !cmd.Flags().Changed("config") {
		return config.Default(), nil
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, printer.ErrorWithContext(
			"invalid configuration",
			err.Error(),
			map[string]string{"Config": configPath},
			[]string{"Fix the reported field and retry"},
		)
	}
	return cfg, nil
}

func newLogger() *log.Logger {
	if verbose {
		return log.New(os.Stderr, "", 0)
	}
	return log.New(io.Discard, "", 0)
}

// newStore builds the checkpoint store: Redis when redis.url is set, the
// in-process memory store otherwise.
func newStore(cfg *config.ScoutConfig) (checkpoint.Store, func(), error) {
	if cfg.Redis.URL == "" {
		return checkpoint.NewMemoryStore(), func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	store, err := checkpoint.NewRedisStore(opts, cfg.Instance)
	if err != nil {
		return nil, nil, err
	}
	return store, func() { store.Close() }, nil
}

// stagePrinter returns an event handler that prints each stage transition
// with the loop the session is currently in.
func stagePrinter() engine.EventHandler {
	loop := 0
	return func(ev engine.Event) {
		printer.Stage(ev.Stage, loop)
		if step, ok := ev.Update[blackboard.FieldLoopStep].(int); ok {
			loop = step
		}
	}
}

// newEngine wires the six stages over the configured collaborators. Without
// provider credentials the offline set is used and every stage runs its
// documented fallback.
func newEngine(cfg *config.ScoutConfig, store checkpoint.Store, logger *log.Logger) (*engine.Engine, error) {
	if cfg.Search.VideoProvider != "" || cfg.Search.TextProvider != "" {
		printer.Warning("search providers are configured but no provider credentials are wired; running offline\n")
	}
	offline := collab.NewOffline()

	return engine.New(store, logger,
		stage.NewPlanner(offline, *cfg.Planner.MaxQueries, logger),
		stage.NewSearcher(offline, nil, logger),
		stage.NewSelector(offline, *cfg.Selector.TopK, logger),
		stage.NewWatcher(offline, offline, *cfg.Watcher.NumFrames, logger),
		stage.NewChecker(*cfg.Checker.MaxLoopSteps, logger),
		stage.NewAnalyst(offline, logger),
	)
}
