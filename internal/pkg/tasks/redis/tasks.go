package tasks

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/redis/v9"
	tasksrepo "github.com/kateshostak/taskboard/internal/pkg/tasks"
)

// TasksRepo keeps every task in a hash and indexes it twice: a sorted set of
// ids scored by id, and a hash from name key to id. Mutations are WATCH/MULTI
// transactions over both indexes and are serialized within the process by mu,
// so only other clients can make a transaction retry.
type TasksRepo struct {
	mu     sync.Mutex
	DB     *redis.Client
	prefix string
	opts   tasksrepo.Options
}

func Open(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: "",
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("can's connect to redis: %v", err)
	}

	return client, nil
}

func NewTasker(db *redis.Client, prefix string, opts ...tasksrepo.Option) *TasksRepo {
	return &TasksRepo{
		DB:     db,
		prefix: prefix,
		opts:   tasksrepo.NewOptions(opts...),
	}
}

func (t *TasksRepo) idsKey() string   { return t.prefix + ":ids" }
func (t *TasksRepo) namesKey() string { return t.prefix + ":names" }

func (t *TasksRepo) taskKey(id int64) string {
	return t.prefix + ":task:" + strconv.FormatInt(id, 10)
}

func (t *TasksRepo) GetAllTasks(ctx context.Context) ([]*tasksrepo.Task, error) {
	return t.all(ctx, t.DB)
}

func (t *TasksRepo) GetTasksByPriority(ctx context.Context, priority tasksrepo.Priority) ([]*tasksrepo.Task, error) {
	all, err := t.all(ctx, t.DB)
	if err != nil {
		return nil, err
	}

	res := make([]*tasksrepo.Task, 0)
	for _, task := range all {
		if task.Priority == priority {
			res = append(res, task)
		}
	}
	return res, nil
}

func (t *TasksRepo) GetTaskByName(ctx context.Context, name string) (*tasksrepo.Task, error) {
	id, err := t.DB.HGet(ctx, t.namesKey(), tasksrepo.NameKey(name)).Int64()
	if errors.Is(err, redis.Nil) {
		return nil, tasksrepo.ErrNoTask
	}
	if err != nil {
		return nil, fmt.Errorf("cant look up task name %q: %w", name, err)
	}
	return t.get(ctx, t.DB, id)
}

func (t *TasksRepo) GetTaskByID(ctx context.Context, id int64) (*tasksrepo.Task, error) {
	return t.get(ctx, t.DB, id)
}

func (t *TasksRepo) CreateTask(ctx context.Context, candidate tasksrepo.Candidate) (*tasksrepo.Task, error) {
	var task *tasksrepo.Task
	err := t.watch(ctx, func(tx *redis.Tx) error {
		key := tasksrepo.NameKey(candidate.Name)
		taken, err := tx.HExists(ctx, t.namesKey(), key).Result()
		if err != nil {
			return err
		}
		if taken {
			return tasksrepo.ErrDuplicateName
		}

		last, err := tx.ZRevRangeWithScores(ctx, t.idsKey(), 0, 0).Result()
		if err != nil {
			return err
		}
		var id int64 = 1
		if len(last) > 0 {
			id = int64(last[0].Score) + 1
		}

		task = candidate.Task(id)
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, t.taskKey(id), taskFields(task)...)
			pipe.HSet(ctx, t.namesKey(), key, id)
			pipe.ZAdd(ctx, t.idsKey(), redis.Z{Score: float64(id), Member: id})
			return nil
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (t *TasksRepo) UpdateTask(ctx context.Context, id int64, candidate tasksrepo.Candidate) (*tasksrepo.Task, error) {
	var task *tasksrepo.Task
	err := t.watch(ctx, func(tx *redis.Tx) error {
		old, err := t.get(ctx, tx, id)
		if err != nil {
			return err
		}

		key := tasksrepo.NameKey(candidate.Name)
		holder, err := t.holder(ctx, tx, key)
		if err != nil {
			return err
		}
		if t.opts.StrictRename && holder != 0 && holder != id {
			return tasksrepo.ErrDuplicateName
		}

		oldKey := tasksrepo.NameKey(old.Name)
		var next int64
		if oldKey != key {
			if next, err = t.successor(ctx, tx, oldKey, id); err != nil {
				return err
			}
		}

		task = candidate.Task(id)
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, t.taskKey(id), taskFields(task)...)
			if oldKey != key {
				t.repoint(ctx, pipe, oldKey, next)
			}
			// the index names the lowest id holding a name
			if holder == 0 || id < holder {
				pipe.HSet(ctx, t.namesKey(), key, id)
			}
			return nil
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (t *TasksRepo) DeleteTask(ctx context.Context, id int64) (bool, error) {
	deleted := false
	err := t.watch(ctx, func(tx *redis.Tx) error {
		deleted = false
		task, err := t.get(ctx, tx, id)
		if errors.Is(err, tasksrepo.ErrNoTask) {
			return nil
		}
		if err != nil {
			return err
		}

		key := tasksrepo.NameKey(task.Name)
		next, err := t.successor(ctx, tx, key, id)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, t.taskKey(id))
			pipe.ZRem(ctx, t.idsKey(), id)
			t.repoint(ctx, pipe, key, next)
			return nil
		})
		if err != nil {
			return err
		}
		deleted = true
		return nil
	})
	return deleted, err
}

func (t *TasksRepo) Close() error {
	if err := t.DB.Close(); err != nil {
		return fmt.Errorf("Could not close redisDB: %v", err)
	}
	return nil
}

// watch runs fn in an optimistic transaction on the index keys, retrying
// while another client changes them underneath until ctx is done.
func (t *TasksRepo) watch(ctx context.Context, fn func(*redis.Tx) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for {
		err := t.DB.Watch(ctx, fn, t.idsKey(), t.namesKey())
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("cant commit tasks transaction: %w", ctx.Err())
		default:
		}
	}
}

func (t *TasksRepo) all(ctx context.Context, r redis.Cmdable) ([]*tasksrepo.Task, error) {
	ids, err := r.ZRange(ctx, t.idsKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("cant list task ids: %w", err)
	}

	res := make([]*tasksrepo.Task, 0, len(ids))
	for _, s := range ids {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad task id %q: %w", s, err)
		}
		task, err := t.get(ctx, r, id)
		if errors.Is(err, tasksrepo.ErrNoTask) {
			// deleted between ZRange and HGetAll
			continue
		}
		if err != nil {
			return nil, err
		}
		res = append(res, task)
	}
	return res, nil
}

func (t *TasksRepo) get(ctx context.Context, r redis.Cmdable, id int64) (*tasksrepo.Task, error) {
	fields, err := r.HGetAll(ctx, t.taskKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("cant get task %v: %w", id, err)
	}
	if len(fields) == 0 {
		return nil, tasksrepo.ErrNoTask
	}

	priority, err := tasksrepo.ParsePriority(fields["priority"])
	if err != nil {
		return nil, fmt.Errorf("task %v: %w", id, err)
	}

	return &tasksrepo.Task{
		ID:          id,
		Name:        fields["name"],
		Description: fields["description"],
		Priority:    priority,
	}, nil
}

func (t *TasksRepo) holder(ctx context.Context, tx *redis.Tx, key string) (int64, error) {
	id, err := tx.HGet(ctx, t.namesKey(), key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("cant look up task name: %w", err)
	}
	return id, nil
}

// successor returns the lowest id other than except whose name folds to key,
// or 0. Only a permissive rename can leave more than one such task.
func (t *TasksRepo) successor(ctx context.Context, tx *redis.Tx, key string, except int64) (int64, error) {
	all, err := t.all(ctx, tx)
	if err != nil {
		return 0, err
	}
	for _, task := range all {
		if task.ID != except && tasksrepo.NameKey(task.Name) == key {
			return task.ID, nil
		}
	}
	return 0, nil
}

func (t *TasksRepo) repoint(ctx context.Context, pipe redis.Pipeliner, key string, id int64) {
	if id == 0 {
		pipe.HDel(ctx, t.namesKey(), key)
		return
	}
	pipe.HSet(ctx, t.namesKey(), key, id)
}

func taskFields(task *tasksrepo.Task) []any {
	return []any{
		"name", task.Name,
		"description", task.Description,
		"priority", task.Priority.String(),
	}
}
