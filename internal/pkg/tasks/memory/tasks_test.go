package tasks

import (
	"context"
	"testing"

	tasksrepo "github.com/kateshostak/taskboard/internal/pkg/tasks"
	"github.com/kateshostak/taskboard/internal/pkg/tasks/taskstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTasksRepo(t *testing.T) {
	taskstest.Run(t, func(t *testing.T, opts ...tasksrepo.Option) tasksrepo.Tasker {
		return NewEmptyTasker(opts...)
	})
}

func TestNewTasker_Seeded(t *testing.T) {
	repo := NewTasker()

	all, err := repo.GetAllTasks(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 4)

	for i, c := range tasksrepo.SeedTasks() {
		assert.Equal(t, *c.Task(int64(i+1)), *all[i])
	}

	task, err := repo.CreateTask(context.Background(), tasksrepo.Candidate{Name: "washing", Description: "Wash the car", Priority: tasksrepo.Low})
	require.NoError(t, err)
	assert.Equal(t, int64(5), task.ID)
}
