package main

import (
	"context"
	"fmt"

	"github.com/tomashoffer/afripulse/internal/db"
)

// GenerateMediaEvents fills the store with random recent media events for
// local dashboards.
func GenerateMediaEvents(ctx context.Context, numEvents int, repo db.MediaEventRepository) error {
	for i := range numEvents {
		if err := repo.InsertMediaEvent(ctx, db.GenerateRandomMediaEvent()); err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}
	}
	return nil
}
