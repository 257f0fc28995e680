package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"wikichat/internal/agent"
	"wikichat/internal/config"
	"wikichat/internal/db"
	"wikichat/internal/gateway"
	"wikichat/internal/llm"
	"wikichat/internal/tools"
	"wikichat/internal/trace"

	"github.com/spf13/cobra"
)

type serveOptions struct {
	configPath string
	addr       string
}

func newServeCmd() *cobra.Command {
	var opts serveOptions
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the chat server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "path to config.toml")
	cmd.Flags().StringVarP(&opts.addr, "addr", "a", "", "override listen address")
	return cmd
}

// serve builds everything the server needs and blocks until ctx is done.
// Every startup failure is returned before the listener is opened.
func serve(ctx context.Context, opts serveOptions) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if opts.addr != "" {
		cfg.Gateway.Addr = opts.addr
	}

	if cfg.Trace.Enabled {
		shutdown, err := trace.Init(ctx, trace.Config{
			Endpoint: cfg.Trace.Endpoint,
			URLPath:  cfg.Trace.URLPath,
			APIKey:   cfg.Trace.APIKey,
		})
		if err != nil {
			return fmt.Errorf("initializing tracing: %w", err)
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				slog.Warn("tracing shutdown", "error", err)
			}
		}()
		slog.Info("tracing enabled", "endpoint", cfg.Trace.Endpoint)
	}

	runner, cleanup, err := buildAgent(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := gateway.NewServer(runner)
	slog.Info("starting wikichat",
		"addr", cfg.Gateway.Addr,
		"llm", cfg.DefaultLLM,
		"strategy", runner.Strategy(),
		"cache", cfg.Cache.Enabled,
	)
	return srv.ListenAndServe(ctx, cfg.Gateway.Addr)
}

// buildAgent wires the model, the Wikipedia tool and the strategy into the
// process-wide agent. cleanup releases the lookup cache, if any.
func buildAgent(ctx context.Context, cfg *config.Config) (*agent.Agent, func(), error) {
	cleanup := func() {}

	llmCfg, err := cfg.LLM()
	if err != nil {
		return nil, cleanup, err
	}
	provider, err := llm.New(ctx, llm.Settings{
		Provider:    llmCfg.Provider,
		Model:       llmCfg.Model,
		BaseURL:     llmCfg.BaseURL,
		APIKey:      cfg.APIKey,
		Temperature: llmCfg.Temperature,
	})
	if err != nil {
		return nil, cleanup, fmt.Errorf("creating LLM client: %w", err)
	}

	wiki := tools.NewWikipedia(
		tools.WithLang(cfg.Wikipedia.Lang),
		tools.WithAPIURL(cfg.Wikipedia.APIURL),
		tools.WithTopK(cfg.Wikipedia.TopK),
		tools.WithMaxChars(cfg.Wikipedia.MaxChars),
	)
	lookup := agent.LookupFunc(wiki.Lookup)

	if cfg.Cache.Enabled {
		database, err := db.Open(cfg.Cache.Path)
		if err != nil {
			return nil, cleanup, fmt.Errorf("opening lookup cache: %w", err)
		}
		if err := database.Migrate(); err != nil {
			database.Close()
			return nil, cleanup, fmt.Errorf("migrating lookup cache: %w", err)
		}
		cleanup = func() { database.Close() }

		cached := tools.NewCachedLookup(lookup, database, wiki.APIURL(), cfg.Cache.TTL.Std(), cfg.Cache.MaxEntries)
		lookup = cached.Lookup
		slog.Info("lookup cache enabled", "path", cfg.Cache.Path, "ttl", cfg.Cache.TTL.Std())
	}

	registry := agent.NewRegistry()
	registry.Register(tools.NewWikipediaTool(lookup))

	a, err := agent.New(provider, registry, cfg.Agent.Strategy, agent.WithMaxIterations(cfg.Agent.MaxIterations))
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}
	return a, cleanup, nil
}
