package app

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/kateshostak/taskboard/internal/pkg/export"
	"github.com/kateshostak/taskboard/internal/pkg/middleware"
	tasksrepo "github.com/kateshostak/taskboard/internal/pkg/tasks"
)

const defaultTimeout = time.Second

var (
	//go:embed templates/*.html
	templateFS embed.FS

	//go:embed static
	staticFS embed.FS

	pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))
)

type editPage struct {
	Task       *tasksrepo.Task
	Priorities []tasksrepo.Priority
}

// Board serves the task list as HTML pages.
type Board struct {
	tasks    tasksrepo.Tasker
	exporter *export.Exporter
	timeout  time.Duration
	router   *mux.Router
}

type Option func(*Board)

// WithTimeout bounds every store call made while serving a request.
func WithTimeout(d time.Duration) Option {
	return func(b *Board) {
		b.timeout = d
	}
}

func (b *Board) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.router.ServeHTTP(w, r)
}

func NewBoard(tasks tasksrepo.Tasker, opts ...Option) *Board {
	board := &Board{
		tasks:    tasks,
		exporter: export.NewExporter(tasks),
		timeout:  defaultTimeout,
		router:   mux.NewRouter(),
	}
	for _, opt := range opts {
		opt(board)
	}

	board.router.Use(middleware.RequestID)

	board.router.HandleFunc("/", board.Hello).Methods("GET")
	board.router.HandleFunc("/health", board.Health).Methods("GET")

	board.router.HandleFunc("/tasks", board.ListAllTasks).Methods("GET")
	board.router.HandleFunc("/tasks", board.CreateTask).Methods("POST")
	board.router.HandleFunc("/tasks/byPriority/{priority}", board.ListTasksByPriority).Methods("GET")
	board.router.HandleFunc("/tasks/edit/{taskID}", board.EditTaskForm).Methods("GET")
	board.router.HandleFunc("/tasks/edit/{taskID}", board.UpdateTask).Methods("POST")
	board.router.HandleFunc("/tasks/remove/{taskID}", board.DeleteTask).Methods("GET")
	board.router.HandleFunc("/tasks/export", board.ExportTasks).Methods("GET")

	board.router.PathPrefix("/content/").Handler(staticHandler("/content/", "static/content"))
	board.router.PathPrefix("/task-ui/").Handler(staticHandler("/task-ui/", "static/task-ui"))

	return board
}

func staticHandler(prefix, dir string) http.Handler {
	sub, err := fs.Sub(staticFS, dir)
	if err != nil {
		panic(fmt.Sprintf("static dir %v: %v", dir, err))
	}
	return http.StripPrefix(prefix, http.FileServer(http.FS(sub)))
}

func (b *Board) Hello(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, "Hello World!")
}

func (b *Board) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, "ok")
}

func (b *Board) ListAllTasks(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), b.timeout)
	defer cancel()

	tasksSlice, err := b.tasks.GetAllTasks(ctx)
	if err != nil {
		http.Error(w, fmt.Sprintf("cant get tasks: %v", err), http.StatusInternalServerError)
		return
	}

	render(w, "tasks", tasksSlice)
}

func (b *Board) ListTasksByPriority(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), b.timeout)
	defer cancel()

	priority, err := tasksrepo.ParsePriority(mux.Vars(r)["priority"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	tasksSlice, err := b.tasks.GetTasksByPriority(ctx, priority)
	if err != nil {
		http.Error(w, fmt.Sprintf("cant get tasks with priority %v: %v", priority, err), http.StatusInternalServerError)
		return
	}
	if len(tasksSlice) == 0 {
		http.Error(w, fmt.Sprintf("no tasks with priority %v", priority), http.StatusNotFound)
		return
	}

	render(w, "table", tasksSlice)
}

func (b *Board) CreateTask(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), b.timeout)
	defer cancel()

	candidate, err := parseCandidate(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if _, err := b.tasks.CreateTask(ctx, candidate); err != nil {
		storeError(w, fmt.Sprintf("cant create task %q", candidate.Name), err)
		return
	}

	http.Redirect(w, r, "/tasks", http.StatusFound)
}

func (b *Board) EditTaskForm(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), b.timeout)
	defer cancel()

	id, err := taskID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	task, err := b.tasks.GetTaskByID(ctx, id)
	if err != nil {
		storeError(w, fmt.Sprintf("cant get task with given id:%v", id), err)
		return
	}

	render(w, "edit", editPage{Task: task, Priorities: tasksrepo.Priorities()})
}

func (b *Board) UpdateTask(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), b.timeout)
	defer cancel()

	id, err := taskID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	candidate, err := parseCandidate(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if _, err := b.tasks.UpdateTask(ctx, id, candidate); err != nil {
		storeError(w, fmt.Sprintf("cant update task with given id:%v", id), err)
		return
	}

	http.Redirect(w, r, "/tasks", http.StatusFound)
}

func (b *Board) DeleteTask(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), b.timeout)
	defer cancel()

	id, err := taskID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	deleted, err := b.tasks.DeleteTask(ctx, id)
	if err != nil {
		storeError(w, fmt.Sprintf("cant delete task with given id:%v", id), err)
		return
	}
	if !deleted {
		http.Error(w, fmt.Sprintf("no task with given id:%v", id), http.StatusNotFound)
		return
	}

	http.Redirect(w, r, "/tasks", http.StatusFound)
}

func (b *Board) ExportTasks(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), b.timeout)
	defer cancel()

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}

	body, contentType, err := b.exporter.Export(ctx, format)
	if err != nil {
		if errors.Is(err, export.ErrUnknownFormat) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		} else {
			http.Error(w, fmt.Sprintf("cant export tasks: %v", err), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(body)
}

func taskID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["taskID"], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid task id: %v", err)
	}
	return id, nil
}

// parseCandidate reads the name, description and priority form fields. All
// three are required.
func parseCandidate(r *http.Request) (tasksrepo.Candidate, error) {
	if err := r.ParseForm(); err != nil {
		return tasksrepo.Candidate{}, fmt.Errorf("cant parse form: %v", err)
	}

	priorityText := r.PostFormValue("priority")
	if priorityText == "" {
		return tasksrepo.Candidate{}, fmt.Errorf("%w: priority", tasksrepo.ErrMissingField)
	}

	priority, err := tasksrepo.ParsePriority(priorityText)
	if err != nil {
		return tasksrepo.Candidate{}, err
	}

	candidate := tasksrepo.Candidate{
		Name:        r.PostFormValue("name"),
		Description: r.PostFormValue("description"),
		Priority:    priority,
	}
	return candidate, candidate.Validate()
}

func storeError(w http.ResponseWriter, msg string, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, tasksrepo.ErrNoTask):
		code = http.StatusNotFound
	case errors.Is(err, tasksrepo.ErrDuplicateName),
		errors.Is(err, tasksrepo.ErrInvalidPriority),
		errors.Is(err, tasksrepo.ErrMissingField):
		code = http.StatusBadRequest
	}
	http.Error(w, fmt.Sprintf("%v: %v", msg, err), code)
}

func render(w http.ResponseWriter, name string, data any) {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		http.Error(w, fmt.Sprintf("cant render %v: %v", name, err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}
