// Package taskstest checks a tasks.Tasker implementation against the behavior
// every task store must share.
package taskstest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	tasksrepo "github.com/kateshostak/taskboard/internal/pkg/tasks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty store built with opts. The store is closed by the caller.
type Factory func(t *testing.T, opts ...tasksrepo.Option) tasksrepo.Tasker

// Run runs the shared store tests against stores made by newTasker.
func Run(t *testing.T, newTasker Factory) {
	seeded := func(t *testing.T, opts ...tasksrepo.Option) tasksrepo.Tasker {
		tasker := newTasker(t, opts...)
		t.Cleanup(func() { tasker.Close() })
		require.NoError(t, tasksrepo.Seed(context.Background(), tasker))
		return tasker
	}

	t.Run("seeded state", func(t *testing.T) {
		testSeededState(t, seeded(t))
	})
	t.Run("create assigns increasing ids", func(t *testing.T) {
		tasker := newTasker(t)
		t.Cleanup(func() { tasker.Close() })
		testCreateIncreasingIDs(t, tasker)
	})
	t.Run("create after seed gets id 5", func(t *testing.T) {
		testCreateAfterSeed(t, seeded(t))
	})
	t.Run("duplicate name", func(t *testing.T) {
		testDuplicateName(t, seeded(t))
	})
	t.Run("get by name", func(t *testing.T) {
		testGetByName(t, seeded(t))
	})
	t.Run("by priority", func(t *testing.T) {
		testByPriority(t, seeded(t))
	})
	t.Run("update", func(t *testing.T) {
		testUpdate(t, seeded(t))
	})
	t.Run("update missing", func(t *testing.T) {
		testUpdateMissing(t, seeded(t))
	})
	t.Run("permissive rename", func(t *testing.T) {
		testPermissiveRename(t, seeded(t))
	})
	t.Run("strict rename", func(t *testing.T) {
		testStrictRename(t, seeded(t, tasksrepo.WithStrictRename()))
	})
	t.Run("delete", func(t *testing.T) {
		testDelete(t, seeded(t))
	})
	t.Run("id after deleting the highest", func(t *testing.T) {
		testMaxPlusOne(t, seeded(t))
	})
	t.Run("returned tasks are copies", func(t *testing.T) {
		testCopies(t, seeded(t))
	})
	t.Run("concurrent create", func(t *testing.T) {
		tasker := newTasker(t)
		t.Cleanup(func() { tasker.Close() })
		testConcurrentCreate(t, tasker)
	})
}

func testSeededState(t *testing.T, tasker tasksrepo.Tasker) {
	all, err := tasker.GetAllTasks(context.Background())
	require.NoError(t, err)

	want := []tasksrepo.Task{
		{ID: 1, Name: "cleaning", Description: "Clean the house", Priority: tasksrepo.Low},
		{ID: 2, Name: "gardening", Description: "Mow the lawn", Priority: tasksrepo.Medium},
		{ID: 3, Name: "shopping", Description: "Buy the groceries", Priority: tasksrepo.High},
		{ID: 4, Name: "painting", Description: "Paint the fence", Priority: tasksrepo.Medium},
	}
	assert.Equal(t, want, values(all))
}

func testCreateIncreasingIDs(t *testing.T, tasker tasksrepo.Tasker) {
	ctx := context.Background()

	var last int64
	for _, name := range []string{"one", "two", "three", "four", "five"} {
		task, err := tasker.CreateTask(ctx, tasksrepo.Candidate{Name: name, Description: "do " + name, Priority: tasksrepo.Vital})
		require.NoError(t, err)
		assert.Greater(t, task.ID, last)
		last = task.ID
	}
	assert.Equal(t, int64(5), last)

	all, err := tasker.GetAllTasks(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func testCreateAfterSeed(t *testing.T, tasker tasksrepo.Tasker) {
	ctx := context.Background()

	_, err := tasker.CreateTask(ctx, tasksrepo.Candidate{Name: "gardening", Description: "Mow the lawn", Priority: tasksrepo.Medium})
	assert.ErrorIs(t, err, tasksrepo.ErrDuplicateName)

	created, err := tasker.CreateTask(ctx, tasksrepo.Candidate{Name: "washing", Description: "Wash the car", Priority: tasksrepo.Vital})
	require.NoError(t, err)
	assert.Equal(t, tasksrepo.Task{ID: 5, Name: "washing", Description: "Wash the car", Priority: tasksrepo.Vital}, *created)

	got, err := tasker.GetTaskByID(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, *created, *got)
}

func testDuplicateName(t *testing.T, tasker tasksrepo.Tasker) {
	ctx := context.Background()

	before, err := tasker.GetAllTasks(ctx)
	require.NoError(t, err)

	for _, name := range []string{"cleaning", "CLEANING", "Cleaning", "cLeAnInG"} {
		task, err := tasker.CreateTask(ctx, tasksrepo.Candidate{Name: name, Description: "again", Priority: tasksrepo.High})
		assert.ErrorIs(t, err, tasksrepo.ErrDuplicateName, name)
		assert.Nil(t, task)
	}

	after, err := tasker.GetAllTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, values(before), values(after))
}

func testGetByName(t *testing.T, tasker tasksrepo.Tasker) {
	ctx := context.Background()

	task, err := tasker.GetTaskByName(ctx, "SHOPPING")
	require.NoError(t, err)
	assert.Equal(t, int64(3), task.ID)

	_, err = tasker.GetTaskByName(ctx, "shop")
	assert.ErrorIs(t, err, tasksrepo.ErrNoTask)

	_, err = tasker.GetTaskByID(ctx, 42)
	assert.ErrorIs(t, err, tasksrepo.ErrNoTask)
}

func testByPriority(t *testing.T, tasker tasksrepo.Tasker) {
	ctx := context.Background()

	all, err := tasker.GetAllTasks(ctx)
	require.NoError(t, err)

	for _, p := range tasksrepo.Priorities() {
		got, err := tasker.GetTasksByPriority(ctx, p)
		require.NoError(t, err)
		require.NotNil(t, got, p.String())

		want := make([]tasksrepo.Task, 0)
		for _, task := range all {
			if task.Priority == p {
				want = append(want, *task)
			}
		}
		assert.Equal(t, want, values(got), p.String())
	}

	medium, err := tasker.GetTasksByPriority(ctx, tasksrepo.Medium)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 4}, ids(medium))

	vital, err := tasker.GetTasksByPriority(ctx, tasksrepo.Vital)
	require.NoError(t, err)
	assert.Empty(t, vital)
}

func testUpdate(t *testing.T, tasker tasksrepo.Tasker) {
	ctx := context.Background()

	replacement := tasksrepo.Candidate{Name: "tidying", Description: "Tidy the attic", Priority: tasksrepo.Vital}
	updated, err := tasker.UpdateTask(ctx, 1, replacement)
	require.NoError(t, err)
	assert.Equal(t, tasksrepo.Task{ID: 1, Name: "tidying", Description: "Tidy the attic", Priority: tasksrepo.Vital}, *updated)

	got, err := tasker.GetTaskByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, *updated, *got)

	_, err = tasker.GetTaskByName(ctx, "cleaning")
	assert.ErrorIs(t, err, tasksrepo.ErrNoTask)

	byName, err := tasker.GetTaskByName(ctx, "Tidying")
	require.NoError(t, err)
	assert.Equal(t, int64(1), byName.ID)

	// the old name is free again
	created, err := tasker.CreateTask(ctx, tasksrepo.Candidate{Name: "cleaning", Description: "Clean again", Priority: tasksrepo.Low})
	require.NoError(t, err)
	assert.Equal(t, int64(5), created.ID)
}

func testUpdateMissing(t *testing.T, tasker tasksrepo.Tasker) {
	ctx := context.Background()

	before, err := tasker.GetAllTasks(ctx)
	require.NoError(t, err)

	task, err := tasker.UpdateTask(ctx, 99, tasksrepo.Candidate{Name: "ghost", Description: "boo", Priority: tasksrepo.Low})
	assert.ErrorIs(t, err, tasksrepo.ErrNoTask)
	assert.Nil(t, task)

	after, err := tasker.GetAllTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, values(before), values(after))
}

func testPermissiveRename(t *testing.T, tasker tasksrepo.Tasker) {
	ctx := context.Background()

	updated, err := tasker.UpdateTask(ctx, 4, tasksrepo.Candidate{Name: "Gardening", Description: "Paint the fence", Priority: tasksrepo.Medium})
	require.NoError(t, err)
	assert.Equal(t, "Gardening", updated.Name)

	// lookups return the earliest task holding the name
	byName, err := tasker.GetTaskByName(ctx, "gardening")
	require.NoError(t, err)
	assert.Equal(t, int64(2), byName.ID)

	deleted, err := tasker.DeleteTask(ctx, 2)
	require.NoError(t, err)
	require.True(t, deleted)

	byName, err = tasker.GetTaskByName(ctx, "gardening")
	require.NoError(t, err)
	assert.Equal(t, int64(4), byName.ID)

	_, err = tasker.CreateTask(ctx, tasksrepo.Candidate{Name: "GARDENING", Description: "x", Priority: tasksrepo.Low})
	assert.ErrorIs(t, err, tasksrepo.ErrDuplicateName)
}

func testStrictRename(t *testing.T, tasker tasksrepo.Tasker) {
	ctx := context.Background()

	before, err := tasker.GetAllTasks(ctx)
	require.NoError(t, err)

	_, err = tasker.UpdateTask(ctx, 4, tasksrepo.Candidate{Name: "Gardening", Description: "Paint the fence", Priority: tasksrepo.Medium})
	assert.ErrorIs(t, err, tasksrepo.ErrDuplicateName)

	after, err := tasker.GetAllTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, values(before), values(after))

	// keeping its own name, in any case, is not a collision
	updated, err := tasker.UpdateTask(ctx, 4, tasksrepo.Candidate{Name: "PAINTING", Description: "Paint the gate", Priority: tasksrepo.High})
	require.NoError(t, err)
	assert.Equal(t, tasksrepo.Task{ID: 4, Name: "PAINTING", Description: "Paint the gate", Priority: tasksrepo.High}, *updated)
}

func testDelete(t *testing.T, tasker tasksrepo.Tasker) {
	ctx := context.Background()

	deleted, err := tasker.DeleteTask(ctx, 2)
	require.NoError(t, err)
	assert.True(t, deleted)

	all, err := tasker.GetAllTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3, 4}, ids(all))

	deleted, err = tasker.DeleteTask(ctx, 2)
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = tasker.DeleteTask(ctx, 77)
	require.NoError(t, err)
	assert.False(t, deleted)

	all, err = tasker.GetAllTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3, 4}, ids(all))

	_, err = tasker.GetTaskByName(ctx, "gardening")
	assert.ErrorIs(t, err, tasksrepo.ErrNoTask)
}

func testMaxPlusOne(t *testing.T, tasker tasksrepo.Tasker) {
	ctx := context.Background()

	for _, id := range []int64{4, 3} {
		deleted, err := tasker.DeleteTask(ctx, id)
		require.NoError(t, err)
		require.True(t, deleted)
	}

	created, err := tasker.CreateTask(ctx, tasksrepo.Candidate{Name: "baking", Description: "Bake bread", Priority: tasksrepo.Low})
	require.NoError(t, err)
	assert.Equal(t, int64(3), created.ID)

	// a gap below the max is never filled
	deleted, err := tasker.DeleteTask(ctx, 1)
	require.NoError(t, err)
	require.True(t, deleted)

	created, err = tasker.CreateTask(ctx, tasksrepo.Candidate{Name: "reading", Description: "Read a book", Priority: tasksrepo.Low})
	require.NoError(t, err)
	assert.Equal(t, int64(4), created.ID)

	all, err := tasker.GetAllTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3, 4}, ids(all))

	for _, task := range all {
		deleted, err := tasker.DeleteTask(ctx, task.ID)
		require.NoError(t, err)
		require.True(t, deleted)
	}

	created, err = tasker.CreateTask(ctx, tasksrepo.Candidate{Name: "resting", Description: "Take a nap", Priority: tasksrepo.Low})
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)
}

func testCopies(t *testing.T, tasker tasksrepo.Tasker) {
	ctx := context.Background()

	task, err := tasker.GetTaskByID(ctx, 1)
	require.NoError(t, err)
	task.Name = "changed"

	all, err := tasker.GetAllTasks(ctx)
	require.NoError(t, err)
	all[1].Description = "changed"

	again, err := tasker.GetTaskByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "cleaning", again.Name)

	again, err = tasker.GetTaskByID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Mow the lawn", again.Description)
}

func testConcurrentCreate(t *testing.T, tasker tasksrepo.Tasker) {
	ctx := context.Background()

	const workers = 32
	var wg sync.WaitGroup
	created := make(chan int64, workers*2)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// every name is tried twice, only one of each pair can win
			for j := 0; j < 2; j++ {
				task, err := tasker.CreateTask(ctx, tasksrepo.Candidate{
					Name:        fmt.Sprintf("task-%d", i%(workers/2)),
					Description: "concurrent",
					Priority:    tasksrepo.High,
				})
				if err == nil {
					created <- task.ID
				} else {
					assert.ErrorIs(t, err, tasksrepo.ErrDuplicateName)
				}
			}
		}(i)
	}
	wg.Wait()
	close(created)

	seen := make(map[int64]bool)
	for id := range created {
		assert.False(t, seen[id], "id %d assigned twice", id)
		seen[id] = true
	}
	assert.Len(t, seen, workers/2)

	all, err := tasker.GetAllTasks(ctx)
	require.NoError(t, err)
	require.Len(t, all, workers/2)

	names := make(map[string]bool)
	for i, task := range all {
		assert.Equal(t, int64(i+1), task.ID)
		assert.False(t, names[task.Name], "name %q stored twice", task.Name)
		names[task.Name] = true
	}
}

func values(tasks []*tasksrepo.Task) []tasksrepo.Task {
	res := make([]tasksrepo.Task, 0, len(tasks))
	for _, task := range tasks {
		res = append(res, *task)
	}
	return res
}

func ids(tasks []*tasksrepo.Task) []int64 {
	res := make([]int64, 0, len(tasks))
	for _, task := range tasks {
		res = append(res, task.ID)
	}
	return res
}
