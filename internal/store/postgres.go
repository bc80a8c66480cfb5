package store

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresStore holds the custom-range side tables. Canonical range data
// never lives here; rows are strictly additive contributions merged in by
// the ranges engine.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// ListByProject returns every custom-range header row for a project with
// its value rows attached, ordered stably for deterministic merges.
func (s *PostgresStore) ListByProject(ctx context.Context, projectID string) ([]CustomRange, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, range_type, range_name, element_id, element_label, element_description
		FROM custom_ranges
		WHERE project_id = $1
		ORDER BY range_name, element_id
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list custom ranges: %w", err)
	}
	defer rows.Close()

	items := make([]CustomRange, 0)
	index := make(map[int64]int)
	for rows.Next() {
		var item CustomRange
		if err := rows.Scan(&item.ID, &item.ProjectID, &item.RangeType, &item.RangeName,
			&item.ElementID, &item.ElementLabel, &item.ElementDescription); err != nil {
			return nil, fmt.Errorf("scan custom range: %w", err)
		}
		index[item.ID] = len(items)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate custom ranges: %w", err)
	}
	if len(items) == 0 {
		return items, nil
	}

	valueRows, err := s.db.QueryContext(ctx, `
		SELECT v.id, v.custom_range_id, v.value, v.label, v.description
		FROM custom_range_values v
		JOIN custom_ranges r ON r.id = v.custom_range_id
		WHERE r.project_id = $1
		ORDER BY v.custom_range_id, v.id
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list custom range values: %w", err)
	}
	defer valueRows.Close()

	for valueRows.Next() {
		var value CustomRangeValue
		var headerID int64
		if err := valueRows.Scan(&value.ID, &headerID, &value.Value, &value.Label, &value.Description); err != nil {
			return nil, fmt.Errorf("scan custom range value: %w", err)
		}
		if i, ok := index[headerID]; ok {
			items[i].Values = append(items[i].Values, value)
		}
	}
	if err := valueRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate custom range values: %w", err)
	}
	return items, nil
}

// DeleteByRange removes every custom-range row (and, via cascade, its
// value rows) for one range name in a project.
func (s *PostgresStore) DeleteByRange(ctx context.Context, projectID, rangeName string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM custom_ranges WHERE project_id = $1 AND range_name = $2
	`, projectID, rangeName)
	if err != nil {
		return fmt.Errorf("delete custom ranges: %w", err)
	}
	return nil
}
