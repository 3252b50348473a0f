package config

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	tasksrepo "github.com/kateshostak/taskboard/internal/pkg/tasks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, "localhost:8080", cfg.Server.Addr)
	assert.Equal(t, time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.True(t, cfg.Store.Seed)
	assert.False(t, cfg.Store.StrictRename)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("TASKS_ADDR", ":9090")
	t.Setenv("TASKS_REQUEST_TIMEOUT", "250ms")
	t.Setenv("TASKS_STORE", "sqlite")
	t.Setenv("TASKS_DSN", "/tmp/tasks.db")
	t.Setenv("TASKS_STRICT_RENAME", "true")
	t.Setenv("TASKS_SEED", "false")

	cfg := NewConfig()
	require.NoError(t, cfg.LoadFromEnvironment())
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 250*time.Millisecond, cfg.Server.RequestTimeout)
	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.Equal(t, "/tmp/tasks.db", cfg.Store.DSN)
	assert.True(t, cfg.Store.StrictRename)
	assert.False(t, cfg.Store.Seed)
}

func TestLoadFromEnvironment_BadValues(t *testing.T) {
	tests := []struct {
		env   string
		value string
		field string
	}{
		{"TASKS_REQUEST_TIMEOUT", "soon", "server.request_timeout"},
		{"TASKS_STRICT_RENAME", "maybe", "store.strict_rename"},
		{"TASKS_SEED", "yes please", "store.seed"},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			t.Setenv(tt.env, tt.value)

			err := NewConfig().LoadFromEnvironment()
			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"empty addr", func(c *Config) { c.Server.Addr = "" }, "server.addr"},
		{"zero timeout", func(c *Config) { c.Server.RequestTimeout = 0 }, "server.request_timeout"},
		{"unknown backend", func(c *Config) { c.Store.Backend = "etcd" }, "store.backend"},
		{"sql without dsn", func(c *Config) { c.Store.Backend = "postgres"; c.Store.DSN = "" }, "store.dsn"},
		{"redis without addr", func(c *Config) { c.Store.Backend = "redis"; c.Store.RedisAddr = "" }, "store.redis_addr"},
		{"redis without prefix", func(c *Config) { c.Store.Backend = "redis"; c.Store.RedisPrefix = "" }, "store.redis_prefix"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.modify(cfg)

			err := cfg.Validate()
			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestCreateTasker(t *testing.T) {
	ctx := context.Background()

	t.Run("memory seeded", func(t *testing.T) {
		tasker, err := CreateTasker(ctx, NewConfig())
		require.NoError(t, err)
		defer tasker.Close()

		all, err := tasker.GetAllTasks(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 4)
	})

	t.Run("memory empty", func(t *testing.T) {
		cfg := NewConfig()
		cfg.Store.Seed = false

		tasker, err := CreateTasker(ctx, cfg)
		require.NoError(t, err)
		defer tasker.Close()

		all, err := tasker.GetAllTasks(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("sqlite strict", func(t *testing.T) {
		cfg := NewConfig()
		cfg.Store.Backend = "sqlite"
		cfg.Store.DSN = filepath.Join(t.TempDir(), "tasks.db")
		cfg.Store.StrictRename = true

		tasker, err := CreateTasker(ctx, cfg)
		require.NoError(t, err)
		defer tasker.Close()

		all, err := tasker.GetAllTasks(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 4)

		_, err = tasker.UpdateTask(ctx, 1, tasksrepo.Candidate{Name: "shopping", Description: "x", Priority: tasksrepo.Low})
		assert.ErrorIs(t, err, tasksrepo.ErrDuplicateName)
	})

	t.Run("unknown backend", func(t *testing.T) {
		cfg := NewConfig()
		cfg.Store.Backend = "etcd"

		_, err := CreateTasker(ctx, cfg)
		assert.Error(t, err)
	})
}
