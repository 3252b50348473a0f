package tasks

import (
	"context"
	"path/filepath"
	"testing"

	tasksrepo "github.com/kateshostak/taskboard/internal/pkg/tasks"
	"github.com/kateshostak/taskboard/internal/pkg/tasks/taskstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func newSQLiteTasker(t *testing.T, opts ...tasksrepo.Option) *TasksRepo {
	t.Helper()

	ctx := context.Background()
	db, err := Open(ctx, "sqlite", filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, err)

	repo, err := NewTasker(ctx, db, "sqlite", opts...)
	require.NoError(t, err)
	return repo
}

func TestTasksRepo(t *testing.T) {
	taskstest.Run(t, func(t *testing.T, opts ...tasksrepo.Option) tasksrepo.Tasker {
		return newSQLiteTasker(t, opts...)
	})
}

func TestNewTasker_KeepsExistingRows(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tasks.db")

	db, err := Open(ctx, "sqlite", path)
	require.NoError(t, err)
	repo, err := NewTasker(ctx, db, "sqlite")
	require.NoError(t, err)
	require.NoError(t, tasksrepo.Seed(ctx, repo))
	require.NoError(t, repo.Close())

	db, err = Open(ctx, "sqlite", path)
	require.NoError(t, err)
	repo, err = NewTasker(ctx, db, "sqlite")
	require.NoError(t, err)
	defer repo.Close()

	// seeding a non-empty store is a no-op
	require.NoError(t, tasksrepo.Seed(ctx, repo))

	all, err := repo.GetAllTasks(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestTasksRepo_BadPriorityInRow(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteTasker(t)
	defer repo.Close()

	_, err := repo.tasks.ExecContext(ctx, "INSERT INTO tasks (id, name, name_key, description, priority) VALUES(1, 'x', 'x', 'y', 'Urgent')")
	require.NoError(t, err)

	_, err = repo.GetTaskByID(ctx, 1)
	assert.ErrorIs(t, err, tasksrepo.ErrInvalidPriority)
}

func TestRebind(t *testing.T) {
	tests := []struct {
		driver string
		query  string
		want   string
	}{
		{"pgx", "SELECT id FROM tasks WHERE name_key = ? AND id <> ?", "SELECT id FROM tasks WHERE name_key = $1 AND id <> $2"},
		{"postgres", "DELETE FROM tasks WHERE id = ?", "DELETE FROM tasks WHERE id = $1"},
		{"mysql", "DELETE FROM tasks WHERE id = ?", "DELETE FROM tasks WHERE id = ?"},
		{"sqlite", "SELECT 1", "SELECT 1"},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			repo := &TasksRepo{driver: tt.driver}
			assert.Equal(t, tt.want, repo.rebind(tt.query))
		})
	}
}

func TestCreateTable(t *testing.T) {
	assert.Contains(t, createTable("mysql"), "name_key VARBINARY(1020) NOT NULL")
	for _, driver := range []string{"pgx", "sqlite"} {
		assert.Contains(t, createTable(driver), "name_key VARCHAR(255) NOT NULL", driver)
	}
}

func TestTasksRepo_AccentsAreDistinct(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteTasker(t)
	defer repo.Close()

	first, err := repo.CreateTask(ctx, tasksrepo.Candidate{Name: "école", Description: "accented", Priority: tasksrepo.Low})
	require.NoError(t, err)
	second, err := repo.CreateTask(ctx, tasksrepo.Candidate{Name: "ecole", Description: "plain", Priority: tasksrepo.Low})
	require.NoError(t, err)

	got, err := repo.GetTaskByName(ctx, "ECOLE")
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)

	got, err = repo.GetTaskByName(ctx, "ÉCOLE")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
}
