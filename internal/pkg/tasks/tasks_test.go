package tasks_test

import (
	"context"
	"testing"

	tasksrepo "github.com/kateshostak/taskboard/internal/pkg/tasks"
	memtasks "github.com/kateshostak/taskboard/internal/pkg/tasks/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePriority(t *testing.T) {
	tests := []struct {
		text    string
		want    tasksrepo.Priority
		wantErr bool
	}{
		{text: "Low", want: tasksrepo.Low},
		{text: "Medium", want: tasksrepo.Medium},
		{text: "High", want: tasksrepo.High},
		{text: "Vital", want: tasksrepo.Vital},
		{text: "low", wantErr: true},
		{text: "VITAL", wantErr: true},
		{text: " High", wantErr: true},
		{text: "", wantErr: true},
		{text: "Urgent", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := tasksrepo.ParsePriority(tt.text)
			if tt.wantErr {
				assert.ErrorIs(t, err, tasksrepo.ErrInvalidPriority)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.text, got.String())
		})
	}
}

func TestPriority_String(t *testing.T) {
	assert.Equal(t, "Priority(7)", tasksrepo.Priority(7).String())
	assert.Equal(t, []tasksrepo.Priority{tasksrepo.Low, tasksrepo.Medium, tasksrepo.High, tasksrepo.Vital}, tasksrepo.Priorities())
}

func TestCandidate_Validate(t *testing.T) {
	tests := []struct {
		name      string
		candidate tasksrepo.Candidate
		wantErr   error
	}{
		{"valid", tasksrepo.Candidate{Name: "a", Description: "b", Priority: tasksrepo.High}, nil},
		{"no name", tasksrepo.Candidate{Description: "b"}, tasksrepo.ErrMissingField},
		{"no description", tasksrepo.Candidate{Name: "a"}, tasksrepo.ErrMissingField},
		{"bad priority", tasksrepo.Candidate{Name: "a", Description: "b", Priority: -1}, tasksrepo.ErrInvalidPriority},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.candidate.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNameKey(t *testing.T) {
	assert.Equal(t, tasksrepo.NameKey("cleaning"), tasksrepo.NameKey("CLEANING"))
	assert.Equal(t, tasksrepo.NameKey("école"), tasksrepo.NameKey("ÉCOLE"))
	assert.NotEqual(t, tasksrepo.NameKey("cleaning"), tasksrepo.NameKey("cleaning "))
	assert.NotEqual(t, tasksrepo.NameKey("école"), tasksrepo.NameKey("ecole"))

	// full folding: one letter may fold to two
	assert.Equal(t, tasksrepo.NameKey("straße"), tasksrepo.NameKey("STRASSE"))
}

func TestSeed(t *testing.T) {
	ctx := context.Background()

	t.Run("empty store gets the example tasks", func(t *testing.T) {
		repo := memtasks.NewEmptyTasker()
		require.NoError(t, tasksrepo.Seed(ctx, repo))

		all, err := repo.GetAllTasks(ctx)
		require.NoError(t, err)
		require.Len(t, all, len(tasksrepo.SeedTasks()))
		for i, c := range tasksrepo.SeedTasks() {
			assert.Equal(t, *c.Task(int64(i+1)), *all[i])
		}
	})

	t.Run("non-empty store is left alone", func(t *testing.T) {
		repo := memtasks.NewEmptyTasker()
		_, err := repo.CreateTask(ctx, tasksrepo.Candidate{Name: "only", Description: "one", Priority: tasksrepo.Low})
		require.NoError(t, err)

		require.NoError(t, tasksrepo.Seed(ctx, repo))

		all, err := repo.GetAllTasks(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})
}
