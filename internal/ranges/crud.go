package ranges

import (
	"context"
	"log"
	"strings"

	"github.com/google/uuid"
)

// Mutation engine. Updates are delete-and-reinsert of the canonical node,
// never an in-place patch. Uniqueness validation is a read in one
// round-trip followed by the insert in a second; true mutual exclusion
// between concurrent creators of the same id must come from the store.

// Migration describes a bulk rewrite or removal of external references,
// supplied alongside a guarded deletion. An empty OldValue targets every
// value of the range's field.
type Migration struct {
	Operation string `json:"operation"`
	OldValue  string `json:"oldValue,omitempty"`
	NewValue  string `json:"newValue,omitempty"`
}

// Migration operations.
const (
	OpReplace = "replace"
	OpRemove  = "remove"
)

// CreateRange inserts a new canonical range. The id must be set and
// unused anywhere in the merged view.
func (s *Service) CreateRange(ctx context.Context, projectID string, data *Range) (*Range, error) {
	if data == nil || strings.TrimSpace(data.ID) == "" {
		return nil, invalid("range id is required")
	}
	view, err := s.AllRanges(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if _, exists := view[data.ID]; exists {
		return nil, invalid("range %q already exists", data.ID)
	}

	r := data.Clone()
	r.GUID = uuid.NewString()
	r.Official = true
	r.Standard = standardRangeIDs[canonicalAlias(r.ID)]
	r.ProvidedByConfig = false
	r.FieldworksStandard = false
	ensureElementGUIDs(r)

	node, err := EncodeRangeNode(r)
	if err != nil {
		return nil, err
	}
	if err := s.canonical.ExecuteUpdate(ctx, insertRangeQuery(s.dbName(projectID), node)); err != nil {
		return nil, dbError("insert range", err)
	}
	s.cache.Invalidate(ctx, projectID)
	return r, nil
}

// UpdateRange deletes and reinserts the canonical range node. Elements
// supplied in data replace the existing hierarchy; a nil element list
// keeps it.
func (s *Service) UpdateRange(ctx context.Context, projectID, rangeID string, data *Range) (*Range, error) {
	existing, err := s.Range(ctx, rangeID, projectID, false)
	if err != nil {
		return nil, err
	}

	r := existing.Clone()
	if data != nil {
		if data.Label != nil {
			r.Label = copyMap(data.Label)
		}
		if data.Description != nil {
			r.Description = copyMap(data.Description)
		}
		if data.Elements != nil {
			r.Elements = make([]*RangeElement, len(data.Elements))
			for i, el := range data.Elements {
				r.Elements[i] = el.Clone()
			}
			r.children = nil
		}
	}
	if r.GUID == "" {
		r.GUID = uuid.NewString()
	}
	ensureElementGUIDs(r)

	node, err := EncodeRangeNode(r)
	if err != nil {
		return nil, err
	}
	if err := s.canonical.ExecuteUpdate(ctx, replaceRangeQuery(s.dbName(projectID), rangeID, node)); err != nil {
		return nil, dbError("replace range", err)
	}
	s.cache.Invalidate(ctx, projectID)
	return r, nil
}

// DeleteRange removes the canonical range node and, best-effort, any
// custom-range rows for the same name. A range still referenced by
// dictionary entries requires an explicit migration; without one the call
// fails with the reference count.
func (s *Service) DeleteRange(ctx context.Context, projectID, rangeID string, migration *Migration) error {
	if _, err := s.Range(ctx, rangeID, projectID, false); err != nil {
		return err
	}

	refs, err := s.FindRangeUsage(ctx, projectID, rangeID, "")
	if err != nil {
		return err
	}
	if len(refs) > 0 {
		if migration == nil {
			return invalidWith(map[string]any{"referenceCount": len(refs)},
				"range %q is referenced by %d entries; supply a migration to delete it", rangeID, len(refs))
		}
		if _, err := s.MigrateRangeValues(ctx, projectID, rangeID, migration.OldValue, migration.Operation, migration.NewValue, false); err != nil {
			return err
		}
	}

	if err := s.canonical.ExecuteUpdate(ctx, deleteRangeQuery(s.dbName(projectID), rangeID)); err != nil {
		return dbError("delete range", err)
	}
	if err := s.custom.DeleteByRange(ctx, projectID, rangeID); err != nil {
		// Relational cleanup is best-effort; stale rows are re-merged
		// additively and can be removed later.
		log.Printf("ranges: delete custom rows for range %q in project %q: %v", rangeID, projectID, err)
	}
	s.cache.Invalidate(ctx, projectID)
	return nil
}

// CreateElement inserts a new element under a range. The element id must
// be unused anywhere in the range's hierarchy, not just among siblings,
// and a parent reference must resolve without introducing a cycle.
func (s *Service) CreateElement(ctx context.Context, projectID, rangeID string, data *RangeElement) (*RangeElement, error) {
	if data == nil || strings.TrimSpace(data.ID) == "" {
		return nil, invalid("element id is required")
	}
	r, err := s.Range(ctx, rangeID, projectID, false)
	if err != nil {
		return nil, err
	}
	if r.Element(data.ID) != nil {
		return nil, invalid("element %q already exists in range %q", data.ID, rangeID)
	}
	if data.ParentID != "" {
		if r.Element(data.ParentID) == nil {
			return nil, invalid("parent element %q does not exist in range %q", data.ParentID, rangeID)
		}
		if err := validateParentReference(r, data.ID, data.ParentID); err != nil {
			return nil, err
		}
	}

	el := data.Clone()
	el.GUID = uuid.NewString()

	node, err := EncodeElementNode(el)
	if err != nil {
		return nil, err
	}
	container, err := EncodeRangeNode(canonicalContainer(r, el))
	if err != nil {
		return nil, err
	}
	if err := s.canonical.ExecuteUpdate(ctx, insertElementQuery(s.dbName(projectID), rangeID, node, container)); err != nil {
		return nil, dbError("insert range element", err)
	}
	s.cache.Invalidate(ctx, projectID)
	return el, nil
}

// UpdateElement deletes and reinserts the canonical element node.
func (s *Service) UpdateElement(ctx context.Context, projectID, rangeID, elementID string, data *RangeElement) (*RangeElement, error) {
	r, err := s.Range(ctx, rangeID, projectID, false)
	if err != nil {
		return nil, err
	}
	existing := r.Element(elementID)
	if existing == nil {
		return nil, notFound("range element", elementID)
	}

	el := existing.Clone()
	if data != nil {
		if data.ParentID != existing.ParentID {
			if data.ParentID != "" {
				if r.Element(data.ParentID) == nil {
					return nil, invalid("parent element %q does not exist in range %q", data.ParentID, rangeID)
				}
				if err := validateParentReference(r, elementID, data.ParentID); err != nil {
					return nil, err
				}
			}
			el.ParentID = data.ParentID
		}
		if data.Value != "" {
			el.Value = data.Value
		}
		if data.Label != nil {
			el.Label = copyMap(data.Label)
		}
		if data.Abbrev != nil {
			el.Abbrev = copyMap(data.Abbrev)
		}
		if data.Description != nil {
			el.Description = copyMap(data.Description)
		}
		if data.Traits != nil {
			el.Traits = copyMap(data.Traits)
		}
	}
	if el.GUID == "" {
		el.GUID = uuid.NewString()
	}

	node, err := EncodeElementNode(el)
	if err != nil {
		return nil, err
	}
	container, err := EncodeRangeNode(canonicalContainer(r, el))
	if err != nil {
		return nil, err
	}
	if err := s.canonical.ExecuteUpdate(ctx, replaceElementQuery(s.dbName(projectID), rangeID, elementID, node, container)); err != nil {
		return nil, dbError("replace range element", err)
	}
	s.cache.Invalidate(ctx, projectID)
	return el, nil
}

// DeleteElement removes one element, guarded by usage of that element's
// value in dictionary entries.
func (s *Service) DeleteElement(ctx context.Context, projectID, rangeID, elementID string, migration *Migration) error {
	r, err := s.Range(ctx, rangeID, projectID, false)
	if err != nil {
		return err
	}
	existing := r.Element(elementID)
	if existing == nil {
		return notFound("range element", elementID)
	}

	value := existing.RefValue()
	refs, err := s.FindRangeUsage(ctx, projectID, rangeID, value)
	if err != nil {
		return err
	}
	if len(refs) > 0 {
		if migration == nil {
			return invalidWith(map[string]any{"referenceCount": len(refs)},
				"element %q is referenced by %d entries; supply a migration to delete it", elementID, len(refs))
		}
		if _, err := s.MigrateRangeValues(ctx, projectID, rangeID, value, migration.Operation, migration.NewValue, false); err != nil {
			return err
		}
	}

	if err := s.canonical.ExecuteUpdate(ctx, deleteElementQuery(s.dbName(projectID), rangeID, elementID)); err != nil {
		return dbError("delete range element", err)
	}
	s.cache.Invalidate(ctx, projectID)
	return nil
}

// validateParentReference rejects a parent assignment that would make the
// element its own ancestor. It walks the parent chain upward from the
// proposed parent, tracking visited ids so already-corrupt data cannot
// loop it; cost is proportional to the depth walked.
func validateParentReference(r *Range, elementID, proposedParentID string) error {
	parents := r.parentMap()
	seen := make(map[string]bool)
	for current := proposedParentID; current != ""; current = parents[current] {
		if current == elementID {
			return invalid("element %q cannot have %q as parent: circular reference", elementID, proposedParentID)
		}
		if seen[current] {
			break
		}
		seen[current] = true
	}
	return nil
}

// canonicalContainer renders the range header carrying just the one
// element, for materializing the canonical node of a range that so far
// exists only through config metadata or custom rows.
func canonicalContainer(r *Range, el *RangeElement) *Range {
	guid := r.GUID
	if guid == "" {
		guid = uuid.NewString()
	}
	return &Range{
		ID:          r.ID,
		GUID:        guid,
		Label:       copyMap(r.Label),
		Description: copyMap(r.Description),
		Elements:    []*RangeElement{el},
	}
}

func ensureElementGUIDs(r *Range) {
	for _, el := range r.Elements {
		if el.GUID == "" {
			el.GUID = uuid.NewString()
		}
	}
}
