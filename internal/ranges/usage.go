package ranges

import "context"

// Usage and migration engine. Scans run against the live canonical store,
// never a secondary index, so dry-run counts always match what a real
// migration would touch.

const maxSampleEntries = 5

// UsageRef is one dictionary entry referencing a range value.
type UsageRef struct {
	RecordID     string `json:"recordId"`
	DisplayLabel string `json:"displayLabel"`
	Count        int    `json:"count"`
}

// ElementUsage aggregates references to one range value.
type ElementUsage struct {
	Count         int      `json:"count"`
	Label         string   `json:"label"`
	SampleEntries []string `json:"sampleEntries"`
}

// UsageSummary is the per-element usage breakdown for a range.
type UsageSummary struct {
	TotalEntries int                      `json:"totalEntries"`
	Elements     map[string]*ElementUsage `json:"elements"`
}

// MigrationResult reports the scope of a bulk migration.
type MigrationResult struct {
	EntriesAffected int  `json:"entriesAffected"`
	FieldsUpdated   int  `json:"fieldsUpdated"`
	DryRun          bool `json:"dryRun"`
}

// FindRangeUsage returns every entry whose relevant field references the
// range. An empty value matches any value of the field; a non-empty value
// narrows the scan to that one element.
func (s *Service) FindRangeUsage(ctx context.Context, projectID, rangeID, value string) ([]UsageRef, error) {
	text, err := s.canonical.ExecuteQuery(ctx, usageQuery(s.dbName(projectID), rangeID, value))
	if err != nil {
		return nil, dbError("scan range usage", err)
	}
	refs, err := decodeUsageRefs(text)
	if err != nil {
		return nil, dbError("decode range usage", err)
	}
	out := make([]UsageRef, 0, len(refs))
	for _, ref := range refs {
		count := ref.Count
		if count == 0 {
			count = 1
		}
		out = append(out, UsageRef{RecordID: ref.ID, DisplayLabel: ref.Label, Count: count})
	}
	return out, nil
}

// UsageByElement aggregates distinct-value usage for a range, attaching up
// to five sample referencing entries per value. Labels come from the
// merged view when the value maps onto a known element.
func (s *Service) UsageByElement(ctx context.Context, projectID, rangeID string) (*UsageSummary, error) {
	r, err := s.Range(ctx, rangeID, projectID, false)
	if err != nil {
		return nil, err
	}

	text, err := s.canonical.ExecuteQuery(ctx, usageByElementQuery(s.dbName(projectID), rangeID))
	if err != nil {
		return nil, dbError("scan range usage", err)
	}
	refs, err := decodeUsageRefs(text)
	if err != nil {
		return nil, dbError("decode range usage", err)
	}

	summary := &UsageSummary{Elements: make(map[string]*ElementUsage)}
	entries := make(map[string]bool)
	for _, ref := range refs {
		if ref.Value == "" {
			continue
		}
		entries[ref.ID] = true
		usage, ok := summary.Elements[ref.Value]
		if !ok {
			usage = &ElementUsage{Label: elementLabel(r, ref.Value)}
			summary.Elements[ref.Value] = usage
		}
		usage.Count++
		if len(usage.SampleEntries) < maxSampleEntries && !contains(usage.SampleEntries, ref.ID) {
			usage.SampleEntries = append(usage.SampleEntries, ref.ID)
		}
	}
	summary.TotalEntries = len(entries)
	return summary, nil
}

// MigrateRangeValues rewrites or removes every reference to oldValue in
// one bulk canonical update. All validation happens before any store
// round-trip; a dry run reports the affected count and issues no mutation.
// There is no compensating rollback: the store applies one update
// statement atomically.
func (s *Service) MigrateRangeValues(ctx context.Context, projectID, rangeID, oldValue, operation, newValue string, dryRun bool) (*MigrationResult, error) {
	switch operation {
	case OpReplace:
		if newValue == "" {
			return nil, invalid("newValue is required for a replace migration")
		}
	case OpRemove:
	default:
		return nil, invalid("invalid migration operation %q: must be %q or %q", operation, OpReplace, OpRemove)
	}

	refs, err := s.FindRangeUsage(ctx, projectID, rangeID, oldValue)
	if err != nil {
		return nil, err
	}
	fields := 0
	for _, ref := range refs {
		fields += ref.Count
	}

	if dryRun {
		return &MigrationResult{EntriesAffected: len(refs), DryRun: true}, nil
	}

	if err := s.canonical.ExecuteUpdate(ctx, migrationQuery(s.dbName(projectID), rangeID, oldValue, operation, newValue)); err != nil {
		return nil, dbError("migrate range values", err)
	}
	return &MigrationResult{EntriesAffected: len(refs), FieldsUpdated: fields}, nil
}

// elementLabel resolves a usage value to its display label, preferring the
// resolved hierarchy so unlabeled children inherit from their ancestors.
func elementLabel(r *Range, value string) string {
	resolved := Resolve(r)
	if el := resolved.ElementByValue(value); el != nil {
		return el.EffectiveLabel
	}
	return value
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
