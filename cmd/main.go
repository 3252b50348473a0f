package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/kateshostak/taskboard/internal/app"
	"github.com/kateshostak/taskboard/internal/config"
	"github.com/kateshostak/taskboard/internal/pkg/middleware"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "taskboard",
		Short: "A small task board served as HTML",
		Long: `taskboard keeps a list of tasks (name, description, priority) and serves
pages to list, filter, create, edit and delete them.

CONFIGURATION:
  Flags override environment variables, which override defaults.

  TASKS_ADDR              listen address (default: localhost:8080)
  TASKS_REQUEST_TIMEOUT   store call timeout per request (default: 1s)
  TASKS_STORE             ` + strings.Join(config.Backends, "|") + ` (default: memory)
  TASKS_DSN               data source for postgres, mysql and sqlite
  TASKS_REDIS_ADDR        redis address (default: localhost:6379)
  TASKS_REDIS_PREFIX      redis key prefix (default: taskboard)
  TASKS_STRICT_RENAME     refuse renaming a task onto another task's name
  TASKS_SEED              add the example tasks to an empty store (default: true)`,
		SilenceUsage: true,
	}
	root.AddCommand(newServeCommand())
	return root
}

func newServeCommand() *cobra.Command {
	cfg := config.NewConfig()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the task board over HTTP",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// environment first, then flags the user actually set
			flags := *cfg
			if err := cfg.LoadFromEnvironment(); err != nil {
				return err
			}
			applyChangedFlags(cmd, cfg, &flags)
			return cfg.Validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.Server.Addr, "addr", cfg.Server.Addr, "listen address")
	f.DurationVar(&cfg.Server.RequestTimeout, "timeout", cfg.Server.RequestTimeout, "store call timeout per request")
	f.StringVar(&cfg.Store.Backend, "store", cfg.Store.Backend, "task store: "+strings.Join(config.Backends, "|"))
	f.StringVar(&cfg.Store.DSN, "dsn", cfg.Store.DSN, "data source for sql stores")
	f.StringVar(&cfg.Store.RedisAddr, "redis-addr", cfg.Store.RedisAddr, "redis address")
	f.StringVar(&cfg.Store.RedisPrefix, "redis-prefix", cfg.Store.RedisPrefix, "redis key prefix")
	f.BoolVar(&cfg.Store.StrictRename, "strict-rename", cfg.Store.StrictRename, "refuse renaming a task onto another task's name")
	f.BoolVar(&cfg.Store.Seed, "seed", cfg.Store.Seed, "add the example tasks to an empty store")

	return cmd
}

// applyChangedFlags copies back the values of flags set on the command line,
// which LoadFromEnvironment may have overwritten.
func applyChangedFlags(cmd *cobra.Command, cfg, flags *config.Config) {
	f := cmd.Flags()
	if f.Changed("addr") {
		cfg.Server.Addr = flags.Server.Addr
	}
	if f.Changed("timeout") {
		cfg.Server.RequestTimeout = flags.Server.RequestTimeout
	}
	if f.Changed("store") {
		cfg.Store.Backend = flags.Store.Backend
	}
	if f.Changed("dsn") {
		cfg.Store.DSN = flags.Store.DSN
	}
	if f.Changed("redis-addr") {
		cfg.Store.RedisAddr = flags.Store.RedisAddr
	}
	if f.Changed("redis-prefix") {
		cfg.Store.RedisPrefix = flags.Store.RedisPrefix
	}
	if f.Changed("strict-rename") {
		cfg.Store.StrictRename = flags.Store.StrictRename
	}
	if f.Changed("seed") {
		cfg.Store.Seed = flags.Store.Seed
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	tasker, err := config.CreateTasker(ctx, cfg)
	if err != nil {
		return fmt.Errorf("cant create task store: %w", err)
	}
	defer tasker.Close()

	board := app.NewBoard(tasker, app.WithTimeout(cfg.Server.RequestTimeout))
	logger := log.Default()

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           middleware.Logging(os.Stdout, logger)(board),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Printf("serving tasks from %v store on %v", cfg.Store.Backend, cfg.Server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
