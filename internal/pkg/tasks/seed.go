package tasks

import (
	"context"
	"fmt"
)

// SeedTasks returns the example tasks a fresh board starts with, in insertion order.
func SeedTasks() []Candidate {
	return []Candidate{
		{Name: "cleaning", Description: "Clean the house", Priority: Low},
		{Name: "gardening", Description: "Mow the lawn", Priority: Medium},
		{Name: "shopping", Description: "Buy the groceries", Priority: High},
		{Name: "painting", Description: "Paint the fence", Priority: Medium},
	}
}

// Seed adds SeedTasks to t when t holds no tasks. A non-empty store is left alone.
func Seed(ctx context.Context, t Tasker) error {
	all, err := t.GetAllTasks(ctx)
	if err != nil {
		return fmt.Errorf("cant list tasks before seeding: %w", err)
	}
	if len(all) != 0 {
		return nil
	}

	for _, c := range SeedTasks() {
		if _, err := t.CreateTask(ctx, c); err != nil {
			return fmt.Errorf("cant seed task %q: %w", c.Name, err)
		}
	}
	return nil
}
