package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"
	tasksrepo "github.com/kateshostak/taskboard/internal/pkg/tasks"
)

var ErrUnknownFormat = errors.New("unknown export format")

type taskJSON struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

type Exporter struct {
	tasks tasksrepo.Tasker
}

func NewExporter(tasks tasksrepo.Tasker) *Exporter {
	return &Exporter{tasks: tasks}
}

// Export renders every task in format (json, csv or pdf) and returns the body
// with its content type.
func (e *Exporter) Export(ctx context.Context, format string) ([]byte, string, error) {
	format = strings.ToLower(format)
	switch format {
	case "json", "csv", "pdf":
	default:
		return nil, "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	all, err := e.tasks.GetAllTasks(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("cant get tasks: %w", err)
	}

	switch format {
	case "json":
		res := make([]taskJSON, 0, len(all))
		for _, task := range all {
			res = append(res, taskJSON{
				ID:          task.ID,
				Name:        task.Name,
				Description: task.Description,
				Priority:    task.Priority.String(),
			})
		}
		b, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return nil, "", err
		}
		return b, "application/json", nil
	case "csv":
		var buf bytes.Buffer
		w := csv.NewWriter(&buf)
		_ = w.Write([]string{"id", "name", "description", "priority"})
		for _, task := range all {
			_ = w.Write([]string{strconv.FormatInt(task.ID, 10), task.Name, task.Description, task.Priority.String()})
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "text/csv", nil
	case "pdf":
		pdf := gofpdf.New("P", "mm", "A4", "")
		pdf.AddPage()
		pdf.SetFont("Arial", "B", 14)
		pdf.Cell(40, 10, "Task List")
		pdf.Ln(12)
		pdf.SetFont("Arial", "", 10)
		tr := pdf.UnicodeTranslatorFromDescriptor("")
		for _, task := range all {
			line := fmt.Sprintf("%d. [%s] %s: %s", task.ID, task.Priority, task.Name, task.Description)
			pdf.MultiCell(0, 6, tr(line), "0", "L", false)
		}
		var buf bytes.Buffer
		if err := pdf.Output(&buf); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "application/pdf", nil
	}
	return nil, "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}
