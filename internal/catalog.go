package internal

import (
	"context"
	"fmt"

	"github.com/tomashoffer/afripulse/internal/db"
)

// Catalog answers the read-only catalog queries used by the dashboard.
type Catalog struct {
	repo db.CatalogRepository
}

func NewCatalog(repo db.CatalogRepository) *Catalog {
	return &Catalog{repo: repo}
}

func (c *Catalog) Countries(ctx context.Context) ([]db.Country, error) {
	countries, err := c.repo.ListCountries(ctx)
	if err != nil {
		return nil, fmt.Errorf("list countries: %w", err)
	}
	return countries, nil
}

func (c *Catalog) Modules() []db.Module {
	return db.Modules()
}
