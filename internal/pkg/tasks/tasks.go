package tasks

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/text/cases"
)

var (
	ErrNoTask          = errors.New("no task with given params found")
	ErrDuplicateName   = errors.New("task with given name already exists")
	ErrInvalidPriority = errors.New("invalid priority")
	ErrMissingField    = errors.New("missing required field")
)

type Priority int

const (
	Low Priority = iota
	Medium
	High
	Vital
)

var priorityNames = [...]string{"Low", "Medium", "High", "Vital"}

func (p Priority) String() string {
	if p < Low || p > Vital {
		return fmt.Sprintf("Priority(%d)", int(p))
	}
	return priorityNames[p]
}

// ParsePriority matches s against the priority names exactly, case included.
func ParsePriority(s string) (Priority, error) {
	for i, name := range priorityNames {
		if s == name {
			return Priority(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidPriority, s)
}

// Priorities returns every priority from lowest to highest.
func Priorities() []Priority {
	return []Priority{Low, Medium, High, Vital}
}

type Task struct {
	ID          int64
	Name        string
	Description string
	Priority    Priority
}

// Candidate is the caller supplied part of a task. The store assigns the id.
type Candidate struct {
	Name        string
	Description string
	Priority    Priority
}

func (c Candidate) Validate() error {
	switch {
	case c.Name == "":
		return fmt.Errorf("%w: name", ErrMissingField)
	case c.Description == "":
		return fmt.Errorf("%w: description", ErrMissingField)
	case c.Priority < Low || c.Priority > Vital:
		return fmt.Errorf("%w: %d", ErrInvalidPriority, int(c.Priority))
	}
	return nil
}

func (c Candidate) Task(id int64) *Task {
	return &Task{ID: id, Name: c.Name, Description: c.Description, Priority: c.Priority}
}

// NameKey is the form names are compared in; two names collide when their keys are equal.
// A Caser keeps state, so each call folds with its own.
func NameKey(name string) string {
	return cases.Fold().String(name)
}

type Tasker interface {
	GetAllTasks(context.Context) ([]*Task, error)
	GetTasksByPriority(context.Context, Priority) ([]*Task, error)
	GetTaskByName(context.Context, string) (*Task, error)
	GetTaskByID(context.Context, int64) (*Task, error)

	CreateTask(context.Context, Candidate) (*Task, error)
	UpdateTask(context.Context, int64, Candidate) (*Task, error)
	DeleteTask(context.Context, int64) (bool, error)

	Close() error
}

type Options struct {
	// StrictRename makes UpdateTask refuse a name already held by another task.
	StrictRename bool
}

type Option func(*Options)

func WithStrictRename() Option {
	return func(o *Options) {
		o.StrictRename = true
	}
}

func NewOptions(opts ...Option) Options {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
