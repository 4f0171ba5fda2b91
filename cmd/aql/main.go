// Package main provides the aql command.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/everydev1618/aql"
	"github.com/everydev1618/aql/cache"
	"github.com/everydev1618/aql/dsl"
	"github.com/everydev1618/aql/internal/config"
	"github.com/everydev1618/aql/internal/logging"
	"github.com/everydev1618/aql/internal/store"
	"github.com/everydev1618/aql/llm"
)

var version = "dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "aql",
		Short: "Run AQL agent workflows",
		Long: `aql parses and executes AQL queries: declarative graphs of agent
invocations whose outputs feed each other.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "Config file (default $AQL_HOME/config.yaml)")
	root.PersistentFlags().Bool("debug", false, "Log every dispatched operation")

	root.AddCommand(newRunCommand())
	root.AddCommand(newValidateCommand())
	root.AddCommand(newHistoryCommand())
	root.AddCommand(newVersionCommand())
	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "aql %s\n", version)
		},
	}
}

// app holds what the subcommands share: configuration, logger and the
// run history store.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   store.Store
	closers []func() error
}

func loadApp(cmd *cobra.Command) (*app, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Engine.Debug = true
		cfg.Logging.Level = "debug"
	}

	return &app{
		cfg:    cfg,
		logger: logging.New(cfg.Logging.Level, cfg.Logging.Format, cmd.ErrOrStderr()),
	}, nil
}

// openStore opens the run history database. It returns nil when history
// is disabled.
func (a *app) openStore() (store.Store, error) {
	if a.store != nil || !a.cfg.Store.Enabled {
		return a.store, nil
	}

	path := a.cfg.Store.Path
	if path == "" {
		path = config.DefaultDBPath()
	}
	if err := config.EnsureHome(); err != nil {
		return nil, fmt.Errorf("create aql home: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	s, err := store.NewSQLiteStore(path)
	if err != nil {
		return nil, err
	}
	if err := s.Init(); err != nil {
		s.Close()
		return nil, err
	}
	a.store = s
	a.closers = append(a.closers, s.Close)
	return s, nil
}

// engine builds an engine from the configuration.
func (a *app) engine(ctx context.Context) (*aql.Engine, error) {
	timeout, err := a.cfg.Timeout()
	if err != nil {
		return nil, err
	}
	ttl, err := a.cfg.CacheTTL()
	if err != nil {
		return nil, err
	}

	opts := []aql.Option{
		aql.WithLogger(a.logger),
		aql.WithCacheTTL(ttl),
		aql.WithConfig(dsl.ExecutionConfig{
			Timeout:  timeout,
			Retries:  a.cfg.Engine.Retries,
			Parallel: a.cfg.Engine.Parallel,
			Caching:  a.cfg.Engine.Caching,
			Debug:    a.cfg.Engine.Debug,

			Templating: a.cfg.Engine.Templating,
		}),
	}

	switch a.cfg.LLM.Provider {
	case config.ProviderAnthropic:
		llmOpts := []llm.AnthropicOption{
			llm.WithRequestsPerMinute(a.cfg.LLM.RequestsPerMinute),
		}
		if a.cfg.LLM.APIKey != "" {
			llmOpts = append(llmOpts, llm.WithAPIKey(a.cfg.LLM.APIKey))
		}
		if a.cfg.LLM.Model != "" {
			llmOpts = append(llmOpts, llm.WithModel(a.cfg.LLM.Model))
		}
		if a.cfg.LLM.BaseURL != "" {
			llmOpts = append(llmOpts, llm.WithBaseURL(a.cfg.LLM.BaseURL))
		}
		opts = append(opts, aql.WithCaller(llm.NewAnthropic(llmOpts...)))
	default:
		opts = append(opts, aql.WithCaller(llm.Placeholder{}))
	}

	if a.cfg.Cache.Driver == config.DriverRedis {
		r, err := cache.NewRedis(ctx, cache.RedisConfig{
			Address:  a.cfg.Cache.Addr,
			Password: a.cfg.Cache.Password,
			DB:       a.cfg.Cache.DB,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, r.Close)
		opts = append(opts, aql.WithCache(r))
	}

	s, err := a.openStore()
	if err != nil {
		return nil, err
	}
	if s != nil {
		opts = append(opts, aql.WithStore(s))
	}

	return aql.New(opts...), nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}
