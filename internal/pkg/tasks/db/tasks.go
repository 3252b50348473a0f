package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tasksrepo "github.com/kateshostak/taskboard/internal/pkg/tasks"
)

const schema = `CREATE TABLE IF NOT EXISTS tasks (
    id BIGINT PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    name_key %s NOT NULL,
    description TEXT NOT NULL,
    priority VARCHAR(16) NOT NULL
)`

// createTable returns the schema for driver. name_key is compared byte for
// byte: MySQL's default collation would also fold accents.
func createTable(driver string) string {
	if driver == "mysql" {
		return fmt.Sprintf(schema, "VARBINARY(1020)")
	}
	return fmt.Sprintf(schema, "VARCHAR(255)")
}

// TasksRepo stores tasks in a single SQL table. Mutations run in a transaction
// and are serialized within the process by mu.
type TasksRepo struct {
	mu     sync.Mutex
	tasks  *sql.DB
	driver string
	opts   tasksrepo.Options
}

// Open opens a pool for driver ("pgx", "mysql" or "sqlite") and pings it.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("cant open %v: %w", driver, err)
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("cant ping %v: %w", driver, err)
	}

	return db, nil
}

// NewTasker creates the tasks table if it does not exist yet.
func NewTasker(ctx context.Context, db *sql.DB, driver string, opts ...tasksrepo.Option) (*TasksRepo, error) {
	t := &TasksRepo{
		tasks:  db,
		driver: driver,
		opts:   tasksrepo.NewOptions(opts...),
	}

	if _, err := db.ExecContext(ctx, createTable(driver)); err != nil {
		return nil, fmt.Errorf("cant create tasks table: %w", err)
	}

	return t, nil
}

func (t *TasksRepo) GetAllTasks(ctx context.Context) ([]*tasksrepo.Task, error) {
	return t.query(ctx, "SELECT id, name, description, priority FROM tasks ORDER BY id")
}

func (t *TasksRepo) GetTasksByPriority(ctx context.Context, priority tasksrepo.Priority) ([]*tasksrepo.Task, error) {
	return t.query(ctx, "SELECT id, name, description, priority FROM tasks WHERE priority = ? ORDER BY id", priority.String())
}

func (t *TasksRepo) GetTaskByName(ctx context.Context, name string) (*tasksrepo.Task, error) {
	return t.queryRow(ctx, t.tasks, "SELECT id, name, description, priority FROM tasks WHERE name_key = ? ORDER BY id", tasksrepo.NameKey(name))
}

func (t *TasksRepo) GetTaskByID(ctx context.Context, id int64) (*tasksrepo.Task, error) {
	return t.queryRow(ctx, t.tasks, "SELECT id, name, description, priority FROM tasks WHERE id = ?", id)
}

func (t *TasksRepo) CreateTask(ctx context.Context, candidate tasksrepo.Candidate) (*tasksrepo.Task, error) {
	var task *tasksrepo.Task
	err := t.inTx(ctx, func(tx *sql.Tx) error {
		taken, err := t.nameTaken(ctx, tx, candidate.Name, 0)
		if err != nil {
			return err
		}
		if taken {
			return tasksrepo.ErrDuplicateName
		}

		var last int64
		if err := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(id), 0) FROM tasks").Scan(&last); err != nil {
			return fmt.Errorf("cant get max task id: %w", err)
		}

		task = candidate.Task(last + 1)
		if _, err := tx.ExecContext(ctx, t.rebind("INSERT INTO tasks (id, name, name_key, description, priority) VALUES(?, ?, ?, ?, ?)"),
			task.ID, task.Name, tasksrepo.NameKey(task.Name), task.Description, task.Priority.String()); err != nil {
			return fmt.Errorf("cant insert task: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (t *TasksRepo) UpdateTask(ctx context.Context, id int64, candidate tasksrepo.Candidate) (*tasksrepo.Task, error) {
	var task *tasksrepo.Task
	err := t.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := t.queryRow(ctx, tx, "SELECT id, name, description, priority FROM tasks WHERE id = ?", id); err != nil {
			return err
		}

		if t.opts.StrictRename {
			taken, err := t.nameTaken(ctx, tx, candidate.Name, id)
			if err != nil {
				return err
			}
			if taken {
				return tasksrepo.ErrDuplicateName
			}
		}

		task = candidate.Task(id)
		if _, err := tx.ExecContext(ctx, t.rebind("UPDATE tasks SET name = ?, name_key = ?, description = ?, priority = ? WHERE id = ?"),
			task.Name, tasksrepo.NameKey(task.Name), task.Description, task.Priority.String(), id); err != nil {
			return fmt.Errorf("cant update task %v: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (t *TasksRepo) DeleteTask(ctx context.Context, id int64) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	res, err := t.tasks.ExecContext(ctx, t.rebind("DELETE FROM tasks WHERE id = ?"), id)
	if err != nil {
		return false, fmt.Errorf("cant delete task %v: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("cant count deleted tasks: %w", err)
	}
	return n > 0, nil
}

func (t *TasksRepo) Close() error {
	if err := t.tasks.Close(); err != nil {
		return fmt.Errorf("cant close tasksDB: %v", err)
	}
	return nil
}

type querier interface {
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

func (t *TasksRepo) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	tx, err := t.tasks.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("cant begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("cant commit transaction: %w", err)
	}
	return nil
}

// nameTaken reports whether a task other than except already uses name.
func (t *TasksRepo) nameTaken(ctx context.Context, q querier, name string, except int64) (bool, error) {
	var id int64
	err := q.QueryRowContext(ctx, t.rebind("SELECT id FROM tasks WHERE name_key = ? AND id <> ?"), tasksrepo.NameKey(name), except).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("cant look up task name: %w", err)
	}
	return true, nil
}

func (t *TasksRepo) query(ctx context.Context, query string, args ...any) ([]*tasksrepo.Task, error) {
	curr, err := t.tasks.QueryContext(ctx, t.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer curr.Close()

	res := make([]*tasksrepo.Task, 0)
	for curr.Next() {
		task, err := scanTask(curr)
		if err != nil {
			return nil, err
		}
		res = append(res, task)
	}
	if err := curr.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

func (t *TasksRepo) queryRow(ctx context.Context, q querier, query string, args ...any) (*tasksrepo.Task, error) {
	task, err := scanTask(q.QueryRowContext(ctx, t.rebind(query), args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, tasksrepo.ErrNoTask
	}
	return task, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (*tasksrepo.Task, error) {
	var (
		task     tasksrepo.Task
		priority string
	)
	if err := s.Scan(&task.ID, &task.Name, &task.Description, &priority); err != nil {
		return nil, err
	}

	p, err := tasksrepo.ParsePriority(priority)
	if err != nil {
		return nil, fmt.Errorf("task %v: %w", task.ID, err)
	}
	task.Priority = p
	return &task, nil
}

// rebind turns ? placeholders into $1, $2, ... for postgres.
func (t *TasksRepo) rebind(query string) string {
	if t.driver != "pgx" && t.driver != "postgres" {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
