package config

import (
	"context"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	tasksrepo "github.com/kateshostak/taskboard/internal/pkg/tasks"
	sqltasks "github.com/kateshostak/taskboard/internal/pkg/tasks/db"
	memtasks "github.com/kateshostak/taskboard/internal/pkg/tasks/memory"
	redistasks "github.com/kateshostak/taskboard/internal/pkg/tasks/redis"
)

var sqlDrivers = map[string]string{
	"postgres": "pgx",
	"mysql":    "mysql",
	"sqlite":   "sqlite",
}

// CreateTasker builds the task store named by cfg.Store.Backend and, when
// cfg.Store.Seed is set, fills an empty store with the example tasks.
func CreateTasker(ctx context.Context, cfg *Config) (tasksrepo.Tasker, error) {
	var opts []tasksrepo.Option
	if cfg.Store.StrictRename {
		opts = append(opts, tasksrepo.WithStrictRename())
	}

	var (
		tasker tasksrepo.Tasker
		err    error
	)
	switch cfg.Store.Backend {
	case "memory":
		if cfg.Store.Seed {
			return memtasks.NewTasker(opts...), nil
		}
		return memtasks.NewEmptyTasker(opts...), nil
	case "postgres", "mysql", "sqlite":
		tasker, err = createSQLTasker(ctx, sqlDrivers[cfg.Store.Backend], cfg.Store.DSN, opts)
	case "redis":
		client, cerr := redistasks.Open(ctx, cfg.Store.RedisAddr)
		if cerr != nil {
			return nil, cerr
		}
		tasker = redistasks.NewTasker(client, cfg.Store.RedisPrefix, opts...)
	default:
		return nil, &ConfigError{Field: "store.backend", Message: fmt.Sprintf("unknown store %q", cfg.Store.Backend)}
	}
	if err != nil {
		return nil, err
	}

	if cfg.Store.Seed {
		if err := tasksrepo.Seed(ctx, tasker); err != nil {
			tasker.Close()
			return nil, err
		}
	}
	return tasker, nil
}

func createSQLTasker(ctx context.Context, driver, dsn string, opts []tasksrepo.Option) (tasksrepo.Tasker, error) {
	db, err := sqltasks.Open(ctx, driver, dsn)
	if err != nil {
		return nil, err
	}

	tasker, err := sqltasks.NewTasker(ctx, db, driver, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	return tasker, nil
}
