package app

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"lexicon/api/internal/ranges"
)

// rangesEngine is the slice of the ranges engine the HTTP layer drives.
type rangesEngine interface {
	AllRanges(ctx context.Context, projectID string) (map[string]*ranges.Range, error)
	Range(ctx context.Context, rangeID, projectID string, resolved bool) (*ranges.Range, error)
	CreateRange(ctx context.Context, projectID string, data *ranges.Range) (*ranges.Range, error)
	UpdateRange(ctx context.Context, projectID, rangeID string, data *ranges.Range) (*ranges.Range, error)
	DeleteRange(ctx context.Context, projectID, rangeID string, migration *ranges.Migration) error
	CreateElement(ctx context.Context, projectID, rangeID string, data *ranges.RangeElement) (*ranges.RangeElement, error)
	UpdateElement(ctx context.Context, projectID, rangeID, elementID string, data *ranges.RangeElement) (*ranges.RangeElement, error)
	DeleteElement(ctx context.Context, projectID, rangeID, elementID string, migration *ranges.Migration) error
	FindRangeUsage(ctx context.Context, projectID, rangeID, value string) ([]ranges.UsageRef, error)
	UsageByElement(ctx context.Context, projectID, rangeID string) (*ranges.UsageSummary, error)
	MigrateRangeValues(ctx context.Context, projectID, rangeID, oldValue, operation, newValue string, dryRun bool) (*ranges.MigrationResult, error)
}

// connChecker reports whether the canonical store connector is healthy.
type connChecker interface {
	IsConnected() bool
}

// Service is the application facade between HTTP and the ranges engine.
// It owns no state of its own; it renders engine results into wire views
// and translates engine errors into the HTTP error domain.
type Service struct {
	engine    rangesEngine
	db        *sql.DB
	canonical connChecker
}

func NewService(engine rangesEngine, db *sql.DB, canonical connChecker) *Service {
	return &Service{engine: engine, db: db, canonical: canonical}
}

// Ping reports readiness of both backing stores.
func (s *Service) Ping(ctx context.Context) error {
	if s.db != nil {
		if err := s.db.PingContext(ctx); err != nil {
			return fmt.Errorf("ping custom store: %w", err)
		}
	}
	if s.canonical != nil && !s.canonical.IsConnected() {
		return fmt.Errorf("canonical store not connected")
	}
	return nil
}

// ListRanges returns the merged project ranges as views, sorted by id.
func (s *Service) ListRanges(ctx context.Context, projectID string, resolved bool) ([]*ranges.RangeView, error) {
	merged, err := s.engine.AllRanges(ctx, projectID)
	if err != nil {
		return nil, fromEngine(err)
	}

	ids := make([]string, 0, len(merged))
	for id := range merged {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]*ranges.RangeView, 0, len(ids))
	for _, id := range ids {
		r := merged[id]
		if resolved {
			r = ranges.Resolve(r)
		}
		out = append(out, r.View())
	}
	return out, nil
}

// GetRange returns one range view, optionally with inherited labels and
// abbreviations filled in.
func (s *Service) GetRange(ctx context.Context, projectID, rangeID string, resolved bool) (*ranges.RangeView, error) {
	r, err := s.engine.Range(ctx, rangeID, projectID, resolved)
	if err != nil {
		return nil, fromEngine(err)
	}
	return r.View(), nil
}

func (s *Service) CreateRange(ctx context.Context, projectID string, data *ranges.Range) (*ranges.RangeView, error) {
	r, err := s.engine.CreateRange(ctx, projectID, data)
	if err != nil {
		return nil, fromEngine(err)
	}
	return r.View(), nil
}

func (s *Service) UpdateRange(ctx context.Context, projectID, rangeID string, data *ranges.Range) (*ranges.RangeView, error) {
	r, err := s.engine.UpdateRange(ctx, projectID, rangeID, data)
	if err != nil {
		return nil, fromEngine(err)
	}
	return r.View(), nil
}

func (s *Service) DeleteRange(ctx context.Context, projectID, rangeID string, migration *ranges.Migration) error {
	if err := s.engine.DeleteRange(ctx, projectID, rangeID, migration); err != nil {
		return fromEngine(err)
	}
	return nil
}

func (s *Service) CreateElement(ctx context.Context, projectID, rangeID string, data *ranges.RangeElement) (*ranges.RangeElement, error) {
	el, err := s.engine.CreateElement(ctx, projectID, rangeID, data)
	if err != nil {
		return nil, fromEngine(err)
	}
	return el, nil
}

func (s *Service) UpdateElement(ctx context.Context, projectID, rangeID, elementID string, data *ranges.RangeElement) (*ranges.RangeElement, error) {
	el, err := s.engine.UpdateElement(ctx, projectID, rangeID, elementID, data)
	if err != nil {
		return nil, fromEngine(err)
	}
	return el, nil
}

func (s *Service) DeleteElement(ctx context.Context, projectID, rangeID, elementID string, migration *ranges.Migration) error {
	if err := s.engine.DeleteElement(ctx, projectID, rangeID, elementID, migration); err != nil {
		return fromEngine(err)
	}
	return nil
}

func (s *Service) RangeUsage(ctx context.Context, projectID, rangeID, value string) ([]ranges.UsageRef, error) {
	refs, err := s.engine.FindRangeUsage(ctx, projectID, rangeID, value)
	if err != nil {
		return nil, fromEngine(err)
	}
	return refs, nil
}

func (s *Service) UsageByElement(ctx context.Context, projectID, rangeID string) (*ranges.UsageSummary, error) {
	summary, err := s.engine.UsageByElement(ctx, projectID, rangeID)
	if err != nil {
		return nil, fromEngine(err)
	}
	return summary, nil
}

func (s *Service) MigrateRangeValues(ctx context.Context, projectID, rangeID, oldValue, operation, newValue string, dryRun bool) (*ranges.MigrationResult, error) {
	result, err := s.engine.MigrateRangeValues(ctx, projectID, rangeID, oldValue, operation, newValue, dryRun)
	if err != nil {
		return nil, fromEngine(err)
	}
	return result, nil
}
