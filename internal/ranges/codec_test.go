package ranges

import (
	"strings"
	"testing"
)

const sampleRangesDoc = `<?xml version="1.0" encoding="UTF-8"?>
<lift-ranges>
  <range id="grammatical-info" guid="g-1">
    <label><form lang="en"><text>Grammatical Info</text></form></label>
    <range-element id="Noun" guid="e-1">
      <label><form lang="en"><text>Noun</text></form></label>
      <abbrev><form lang="en"><text>n</text></form></abbrev>
    </range-element>
    <range-element id="Proper Noun" parent="Noun">
      <trait name="catalog-source-id" value="ProperNoun"/>
    </range-element>
  </range>
  <range id="status">
    <range-element id="Approved" value="approved"/>
  </range>
</lift-ranges>`

func TestDecodeRanges(t *testing.T) {
	decoded, err := DecodeRanges(sampleRangesDoc)
	if err != nil {
		t.Fatalf("DecodeRanges: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("expected 2 ranges, got %d", len(decoded))
	}

	gi := decoded["grammatical-info"]
	if gi == nil {
		t.Fatal("grammatical-info missing")
	}
	if gi.GUID != "g-1" {
		t.Errorf("guid = %q", gi.GUID)
	}
	if gi.Label["en"] != "Grammatical Info" {
		t.Errorf("label = %v", gi.Label)
	}
	if len(gi.Elements) != 2 {
		t.Fatalf("expected 2 elements, got %d", len(gi.Elements))
	}

	noun := gi.Element("Noun")
	if noun == nil || noun.Abbrev["en"] != "n" {
		t.Errorf("Noun element = %+v", noun)
	}
	proper := gi.Element("Proper Noun")
	if proper == nil {
		t.Fatal("Proper Noun missing")
	}
	if proper.ParentID != "Noun" {
		t.Errorf("parent = %q", proper.ParentID)
	}
	if proper.Traits["catalog-source-id"] != "ProperNoun" {
		t.Errorf("traits = %v", proper.Traits)
	}

	approved := decoded["status"].Element("Approved")
	if approved == nil || approved.RefValue() != "approved" {
		t.Errorf("Approved element = %+v", approved)
	}
}

func TestDecodeRangesEmpty(t *testing.T) {
	decoded, err := DecodeRanges("  \n ")
	if err != nil {
		t.Fatalf("DecodeRanges: %v", err)
	}
	if len(decoded) != 0 {
		t.Fatalf("expected empty map, got %d entries", len(decoded))
	}
}

func TestDecodeRangesMalformed(t *testing.T) {
	if _, err := DecodeRanges("<lift-ranges><range id="); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestDecodeRangeNode(t *testing.T) {
	node, err := DecodeRangeNode(`<range id="etymology"><range-element id="borrowed"/></range>`)
	if err != nil {
		t.Fatalf("DecodeRangeNode: %v", err)
	}
	if node.ID != "etymology" || len(node.Elements) != 1 {
		t.Errorf("node = %+v", node)
	}

	empty, err := DecodeRangeNode("")
	if err != nil || empty != nil {
		t.Errorf("empty input: node=%v err=%v", empty, err)
	}
}

func TestEncodeRangeNode(t *testing.T) {
	r := &Range{
		ID:    "dialect",
		GUID:  "g-2",
		Label: map[string]string{"fr": "Dialecte", "en": "Dialect"},
		Elements: []*RangeElement{
			{ID: "north", Traits: map[string]string{"b": "2", "a": "1"}},
			{ID: "south", ParentID: "north"},
		},
	}

	first, err := EncodeRangeNode(r)
	if err != nil {
		t.Fatalf("EncodeRangeNode: %v", err)
	}
	second, _ := EncodeRangeNode(r)
	if first != second {
		t.Error("encoding is not deterministic")
	}

	// Sorted language and trait order.
	if strings.Index(first, `lang="en"`) > strings.Index(first, `lang="fr"`) {
		t.Errorf("languages not sorted: %s", first)
	}
	if strings.Index(first, `name="a"`) > strings.Index(first, `name="b"`) {
		t.Errorf("traits not sorted: %s", first)
	}

	back, err := DecodeRangeNode(first)
	if err != nil {
		t.Fatalf("decode encoded node: %v", err)
	}
	if back.ID != "dialect" || back.Element("south").ParentID != "north" {
		t.Errorf("round trip lost data: %+v", back)
	}
}

func TestEncodeRangeNodeBracesRoundTrip(t *testing.T) {
	r := &Range{ID: "status", Label: map[string]string{"en": "Status {draft}"}}
	node, err := EncodeRangeNode(r)
	if err != nil {
		t.Fatalf("EncodeRangeNode: %v", err)
	}
	back, err := DecodeRangeNode(node)
	if err != nil {
		t.Fatalf("DecodeRangeNode: %v", err)
	}
	if back.Label["en"] != "Status {draft}" {
		t.Errorf("label = %q", back.Label["en"])
	}
}

func TestDecodeUsageRefs(t *testing.T) {
	refs, err := decodeUsageRefs(`<refs><ref id="e1" label="big" count="2"/><ref id="e2" value="Noun"/></refs>`)
	if err != nil {
		t.Fatalf("decodeUsageRefs: %v", err)
	}
	if len(refs) != 2 {
		t.Fatalf("expected 2 refs, got %d", len(refs))
	}
	if refs[0].ID != "e1" || refs[0].Count != 2 {
		t.Errorf("ref[0] = %+v", refs[0])
	}
	if refs[1].Value != "Noun" {
		t.Errorf("ref[1] = %+v", refs[1])
	}

	none, err := decodeUsageRefs("")
	if err != nil || none != nil {
		t.Errorf("empty input: refs=%v err=%v", none, err)
	}
}
