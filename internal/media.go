package internal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tomashoffer/afripulse/internal/db"
)

const (
	DefaultSharesWindow = 7 * 24 * time.Hour
	MaxShareRows        = 200
)

type ShareRow struct {
	Item      string  `json:"item"`
	Responses int     `json:"responses"`
	Share     float64 `json:"share"`
}

type MediaShares struct {
	Country  string     `json:"country"`
	Category string     `json:"category"`
	Total    int        `json:"total"`
	Rows     []ShareRow `json:"rows"`
}

type MediaService struct {
	repo   db.MediaEventRepository
	window time.Duration
	now    func() time.Time
}

func NewMediaService(repo db.MediaEventRepository) *MediaService {
	return &MediaService{
		repo:   repo,
		window: DefaultSharesWindow,
		now:    time.Now,
	}
}

// WithClock overrides the time source used to anchor the rolling window.
func (s *MediaService) WithClock(now func() time.Time) *MediaService {
	s.now = now
	return s
}

// Shares reports how the media events of the trailing window split across
// outlets for one country, optionally restricted to a category.
func (s *MediaService) Shares(ctx context.Context, country, category string) (MediaShares, error) {
	if category == "" {
		category = db.CategoryAll
	}
	filter := db.MediaFilter{
		CountryISO2: strings.ToUpper(country),
		Category:    strings.ToUpper(category),
		Since:       s.now().Add(-s.window),
	}

	total, err := s.repo.CountMediaEvents(ctx, filter)
	if err != nil {
		return MediaShares{}, fmt.Errorf("count media events: %w", err)
	}

	counts, err := s.repo.CountByOutlet(ctx, filter, MaxShareRows)
	if err != nil {
		return MediaShares{}, fmt.Errorf("count outlets: %w", err)
	}

	rows := make([]ShareRow, 0, len(counts))
	for _, c := range counts {
		share := 0.0
		if total > 0 {
			share = float64(c.Responses) / float64(total)
		}
		rows = append(rows, ShareRow{Item: c.Item, Responses: c.Responses, Share: share})
	}

	return MediaShares{
		Country:  filter.CountryISO2,
		Category: filter.Category,
		Total:    total,
		Rows:     rows,
	}, nil
}
