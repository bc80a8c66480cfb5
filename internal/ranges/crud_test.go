package ranges

import (
	"context"
	"errors"
	"strings"
	"testing"

	"lexicon/api/internal/rangemeta"
)

const statusHierarchyDoc = `<lift-ranges>
  <range id="status">
    <range-element id="A"/>
    <range-element id="B" parent="A"/>
    <range-element id="C" parent="B"/>
  </range>
</lift-ranges>`

func TestCreateRangeRequiresID(t *testing.T) {
	svc := newTestService(&fakeCanonical{}, nil, nil)
	if _, err := svc.CreateRange(context.Background(), "p1", &Range{ID: "  "}); !IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestCreateRangeRejectsDuplicate(t *testing.T) {
	fc := &fakeCanonical{doc: sampleRangesDoc}
	svc := newTestService(fc, nil, nil)

	_, err := svc.CreateRange(context.Background(), "p1", &Range{ID: "status"})
	if !IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(fc.updates) != 0 {
		t.Errorf("duplicate create reached the store: %v", fc.updates)
	}
}

func TestCreateRangeInsertsAndInvalidates(t *testing.T) {
	fc := &fakeCanonical{doc: ""}
	svc := newTestService(fc, nil, nil)
	ctx := context.Background()

	created, err := svc.CreateRange(ctx, "p1", &Range{
		ID:       "my-tags",
		Elements: []*RangeElement{{ID: "archaic"}},
	})
	if err != nil {
		t.Fatalf("CreateRange: %v", err)
	}
	if created.GUID == "" || !created.Official {
		t.Errorf("created = %+v", created)
	}
	if created.Elements[0].GUID == "" {
		t.Error("element guid not assigned")
	}
	if len(fc.updates) != 1 || !strings.Contains(fc.updates[0], "insert node") {
		t.Fatalf("updates = %v", fc.updates)
	}

	// The merged view was invalidated: the next read hits the store again.
	before := fc.docQueries()
	if _, err := svc.AllRanges(ctx, "p1"); err != nil {
		t.Fatalf("AllRanges: %v", err)
	}
	if fc.docQueries() != before+1 {
		t.Error("cache was not invalidated by the mutation")
	}
}

func TestUpdateRangeKeepsElementsWhenNil(t *testing.T) {
	fc := &fakeCanonical{doc: sampleRangesDoc}
	svc := newTestService(fc, nil, nil)

	updated, err := svc.UpdateRange(context.Background(), "p1", "grammatical-info",
		&Range{Label: map[string]string{"en": "Renamed"}})
	if err != nil {
		t.Fatalf("UpdateRange: %v", err)
	}
	if updated.Label["en"] != "Renamed" {
		t.Errorf("label = %v", updated.Label)
	}
	if len(updated.Elements) != 2 {
		t.Errorf("elements were dropped: %d", len(updated.Elements))
	}
	if len(fc.updates) != 1 || !strings.Contains(fc.updates[0], "delete node") {
		t.Fatalf("replace is not delete-and-reinsert: %v", fc.updates)
	}
}

func TestUpdateRangeMissing(t *testing.T) {
	svc := newTestService(&fakeCanonical{doc: ""}, nil, nil)
	if _, err := svc.UpdateRange(context.Background(), "p1", "nope", &Range{}); !IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestDeleteRangeGuardedByUsage(t *testing.T) {
	fc := &fakeCanonical{
		doc:   sampleRangesDoc,
		usage: `<refs><ref id="e1"/><ref id="e2"/></refs>`,
	}
	custom := &fakeCustom{}
	svc := newTestService(fc, custom, nil)
	ctx := context.Background()

	err := svc.DeleteRange(ctx, "p1", "status", nil)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if ve.Details == nil {
		t.Error("expected referenceCount details")
	}
	if len(fc.updates) != 0 {
		t.Errorf("guarded delete reached the store: %v", fc.updates)
	}

	// With a migration the references are rewritten first, then the node
	// and the custom rows go.
	err = svc.DeleteRange(ctx, "p1", "status", &Migration{Operation: OpReplace, NewValue: "Archived"})
	if err != nil {
		t.Fatalf("DeleteRange with migration: %v", err)
	}
	if len(fc.updates) != 2 {
		t.Fatalf("updates = %v", fc.updates)
	}
	if !strings.Contains(fc.updates[0], "replace value of node") {
		t.Errorf("migration did not run first: %s", fc.updates[0])
	}
	if !strings.Contains(fc.updates[1], "delete node") {
		t.Errorf("second update is not the delete: %s", fc.updates[1])
	}
	if len(custom.deleted) != 1 || custom.deleted[0] != "status" {
		t.Errorf("custom rows not cleaned up: %v", custom.deleted)
	}
}

func TestDeleteRangeUnused(t *testing.T) {
	fc := &fakeCanonical{doc: sampleRangesDoc, usage: ""}
	svc := newTestService(fc, nil, nil)
	if err := svc.DeleteRange(context.Background(), "p1", "status", nil); err != nil {
		t.Fatalf("DeleteRange: %v", err)
	}
}

func TestCreateElementRejectsDuplicateAnywhere(t *testing.T) {
	fc := &fakeCanonical{doc: statusHierarchyDoc}
	svc := newTestService(fc, nil, nil)

	// "C" is a grandchild, not a sibling of the proposed parent.
	_, err := svc.CreateElement(context.Background(), "p1", "status", &RangeElement{ID: "C"})
	if !IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestCreateElementValidatesParent(t *testing.T) {
	fc := &fakeCanonical{doc: statusHierarchyDoc}
	svc := newTestService(fc, nil, nil)
	ctx := context.Background()

	if _, err := svc.CreateElement(ctx, "p1", "status", &RangeElement{ID: "D", ParentID: "ghost"}); !IsValidation(err) {
		t.Fatalf("expected ValidationError for missing parent, got %v", err)
	}

	el, err := svc.CreateElement(ctx, "p1", "status", &RangeElement{ID: "D", ParentID: "C"})
	if err != nil {
		t.Fatalf("CreateElement: %v", err)
	}
	if el.GUID == "" {
		t.Error("element guid not assigned")
	}
	if len(fc.updates) != 1 || !strings.Contains(fc.updates[0], "insert node") {
		t.Fatalf("updates = %v", fc.updates)
	}
}

func TestCreateElementMaterializesMissingCanonicalRange(t *testing.T) {
	fc := &fakeCanonical{doc: ""}
	meta := &fakeMeta{entries: map[string]rangemeta.Entry{
		"etymology": {Label: "Etymology", Type: rangemeta.TypeFieldworks},
	}}
	svc := newTestService(fc, nil, meta)

	// The range exists only through config metadata; no canonical node yet.
	el, err := svc.CreateElement(context.Background(), "p1", "etymology", &RangeElement{ID: "borrowed"})
	if err != nil {
		t.Fatalf("CreateElement: %v", err)
	}
	if el.GUID == "" {
		t.Error("element guid not assigned")
	}
	if len(fc.updates) != 1 {
		t.Fatalf("updates = %v", fc.updates)
	}
	q := fc.updates[0]
	if !strings.Contains(q, "if (exists($range)) then insert node") {
		t.Errorf("statement has no existence branch: %s", q)
	}
	if !strings.Contains(q, "db:add('lexicon-p1'") {
		t.Errorf("statement cannot create the document: %s", q)
	}
	if !strings.Contains(q, `<range id="etymology"`) {
		t.Errorf("fallback does not carry the range container: %s", q)
	}
}

func TestUpdateElementRejectsCycles(t *testing.T) {
	fc := &fakeCanonical{doc: statusHierarchyDoc}
	svc := newTestService(fc, nil, nil)
	ctx := context.Background()

	// A -> B -> C exists; making C the parent of A closes the loop.
	if _, err := svc.UpdateElement(ctx, "p1", "status", "A", &RangeElement{ParentID: "C"}); !IsValidation(err) {
		t.Fatalf("expected cycle rejection, got %v", err)
	}
	// Self-parenting is the degenerate loop.
	if _, err := svc.UpdateElement(ctx, "p1", "status", "C", &RangeElement{ParentID: "C"}); !IsValidation(err) {
		t.Fatalf("expected self-parent rejection, got %v", err)
	}
	if len(fc.updates) != 0 {
		t.Errorf("rejected updates reached the store: %v", fc.updates)
	}

	// Reparenting down a different branch is fine.
	el, err := svc.UpdateElement(ctx, "p1", "status", "C", &RangeElement{ParentID: "A"})
	if err != nil {
		t.Fatalf("UpdateElement: %v", err)
	}
	if el.ParentID != "A" {
		t.Errorf("parent = %q", el.ParentID)
	}
}

func TestUpdateElementMissing(t *testing.T) {
	svc := newTestService(&fakeCanonical{doc: statusHierarchyDoc}, nil, nil)
	if _, err := svc.UpdateElement(context.Background(), "p1", "status", "ghost", nil); !IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestDeleteElementGuardedByValueUsage(t *testing.T) {
	fc := &fakeCanonical{
		doc:   sampleRangesDoc,
		usage: `<refs><ref id="e1"/></refs>`,
	}
	svc := newTestService(fc, nil, nil)
	ctx := context.Background()

	err := svc.DeleteElement(ctx, "p1", "status", "Approved", nil)
	if !IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	// The scan is narrowed to the element's reference value, which here is
	// the explicit value attribute rather than the id.
	last := fc.queries[len(fc.queries)-1]
	if !strings.Contains(last, "'approved'") {
		t.Errorf("usage scan not narrowed to the element value: %s", last)
	}

	fc.usage = ""
	if err := svc.DeleteElement(ctx, "p1", "status", "Approved", nil); err != nil {
		t.Fatalf("DeleteElement: %v", err)
	}
	if len(fc.updates) != 1 || !strings.Contains(fc.updates[0], "delete node") {
		t.Fatalf("updates = %v", fc.updates)
	}
}
