package tasks

import (
	"context"
	"sync"

	tasksrepo "github.com/kateshostak/taskboard/internal/pkg/tasks"
)

// TasksRepo keeps tasks in a slice ordered by insertion. Because new ids are
// max+1, that order is also ascending id order.
type TasksRepo struct {
	mu    sync.RWMutex
	tasks []tasksrepo.Task
	opts  tasksrepo.Options
}

// NewTasker returns a store holding the seed tasks with ids 1 to 4.
func NewTasker(opts ...tasksrepo.Option) *TasksRepo {
	t := NewEmptyTasker(opts...)
	for _, c := range tasksrepo.SeedTasks() {
		t.tasks = append(t.tasks, *c.Task(t.nextID()))
	}
	return t
}

func NewEmptyTasker(opts ...tasksrepo.Option) *TasksRepo {
	return &TasksRepo{
		tasks: make([]tasksrepo.Task, 0),
		opts:  tasksrepo.NewOptions(opts...),
	}
}

func (t *TasksRepo) GetAllTasks(_ context.Context) ([]*tasksrepo.Task, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	res := make([]*tasksrepo.Task, 0, len(t.tasks))
	for i := range t.tasks {
		task := t.tasks[i]
		res = append(res, &task)
	}
	return res, nil
}

func (t *TasksRepo) GetTasksByPriority(_ context.Context, priority tasksrepo.Priority) ([]*tasksrepo.Task, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	res := make([]*tasksrepo.Task, 0)
	for i := range t.tasks {
		if t.tasks[i].Priority == priority {
			task := t.tasks[i]
			res = append(res, &task)
		}
	}
	return res, nil
}

func (t *TasksRepo) GetTaskByName(_ context.Context, name string) (*tasksrepo.Task, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	i := t.indexByName(name)
	if i < 0 {
		return nil, tasksrepo.ErrNoTask
	}
	task := t.tasks[i]
	return &task, nil
}

func (t *TasksRepo) GetTaskByID(_ context.Context, id int64) (*tasksrepo.Task, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	i := t.indexByID(id)
	if i < 0 {
		return nil, tasksrepo.ErrNoTask
	}
	task := t.tasks[i]
	return &task, nil
}

func (t *TasksRepo) CreateTask(_ context.Context, candidate tasksrepo.Candidate) (*tasksrepo.Task, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.indexByName(candidate.Name) >= 0 {
		return nil, tasksrepo.ErrDuplicateName
	}

	task := candidate.Task(t.nextID())
	t.tasks = append(t.tasks, *task)
	return task, nil
}

func (t *TasksRepo) UpdateTask(_ context.Context, id int64, candidate tasksrepo.Candidate) (*tasksrepo.Task, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.indexByID(id)
	if i < 0 {
		return nil, tasksrepo.ErrNoTask
	}

	if t.opts.StrictRename {
		if j := t.indexByName(candidate.Name); j >= 0 && j != i {
			return nil, tasksrepo.ErrDuplicateName
		}
	}

	task := candidate.Task(id)
	t.tasks[i] = *task
	return task, nil
}

func (t *TasksRepo) DeleteTask(_ context.Context, id int64) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.indexByID(id)
	if i < 0 {
		return false, nil
	}
	t.tasks = append(t.tasks[:i], t.tasks[i+1:]...)
	return true, nil
}

func (t *TasksRepo) Close() error {
	return nil
}

// nextID, indexByID and indexByName expect t.mu to be held.
func (t *TasksRepo) nextID() int64 {
	var last int64
	for i := range t.tasks {
		if t.tasks[i].ID > last {
			last = t.tasks[i].ID
		}
	}
	return last + 1
}

func (t *TasksRepo) indexByID(id int64) int {
	for i := range t.tasks {
		if t.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func (t *TasksRepo) indexByName(name string) int {
	key := tasksrepo.NameKey(name)
	for i := range t.tasks {
		if tasksrepo.NameKey(t.tasks[i].Name) == key {
			return i
		}
	}
	return -1
}
