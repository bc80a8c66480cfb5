// Package ranges implements the controlled-vocabulary engine for LIFT
// dictionary projects: decoding the canonical lift-ranges document,
// reconciling it with project-specific custom ranges and static config
// metadata, resolving inherited display values over element hierarchies,
// and mutating ranges with uniqueness and cycle guarantees.
package ranges

import "sort"

// Range is one controlled vocabulary constraining a dictionary field.
// Elements are held as a flat, document-ordered arena; hierarchy is
// expressed through RangeElement.ParentID and a lazily built children
// index, never through back-references.
type Range struct {
	ID                 string            `json:"id"`
	GUID               string            `json:"guid,omitempty"`
	Label              map[string]string `json:"label,omitempty"`
	Description        map[string]string `json:"description,omitempty"`
	Elements           []*RangeElement   `json:"elements"`
	Official           bool              `json:"official"`
	Standard           bool              `json:"standard"`
	ProvidedByConfig   bool              `json:"providedByConfig"`
	FieldworksStandard bool              `json:"fieldworksStandard"`
	ConfigType         string            `json:"configType,omitempty"`

	children map[string][]*RangeElement
}

// RangeElement is one entry within a Range. Traits carry extension
// metadata with unknown keys preserved as-is.
type RangeElement struct {
	ID          string            `json:"id"`
	GUID        string            `json:"guid,omitempty"`
	Value       string            `json:"value,omitempty"`
	ParentID    string            `json:"parentId,omitempty"`
	Label       map[string]string `json:"label,omitempty"`
	Abbrev      map[string]string `json:"abbrev,omitempty"`
	Description map[string]string `json:"description,omitempty"`
	Traits      map[string]string `json:"traits,omitempty"`
	Custom      bool              `json:"custom,omitempty"`

	// EffectiveLabel and EffectiveAbbrev are populated only on the deep
	// copies produced by Resolve, never on cached canonical state.
	EffectiveLabel  string `json:"effectiveLabel,omitempty"`
	EffectiveAbbrev string `json:"effectiveAbbrev,omitempty"`
}

// RefValue is the value under which dictionary entries reference this
// element: the explicit value if set, otherwise the element id.
func (el *RangeElement) RefValue() string {
	if el.Value != "" {
		return el.Value
	}
	return el.ID
}

// Clone returns a deep copy of the element.
func (el *RangeElement) Clone() *RangeElement {
	if el == nil {
		return nil
	}
	out := *el
	out.Label = copyMap(el.Label)
	out.Abbrev = copyMap(el.Abbrev)
	out.Description = copyMap(el.Description)
	out.Traits = copyMap(el.Traits)
	return &out
}

// Clone returns a deep copy of the range. The children index is not
// copied; it is rebuilt on first use.
func (r *Range) Clone() *Range {
	if r == nil {
		return nil
	}
	out := *r
	out.Label = copyMap(r.Label)
	out.Description = copyMap(r.Description)
	out.children = nil
	out.Elements = make([]*RangeElement, len(r.Elements))
	for i, el := range r.Elements {
		out.Elements[i] = el.Clone()
	}
	return &out
}

// Element finds an element anywhere in the range's hierarchy by id.
func (r *Range) Element(id string) *RangeElement {
	for _, el := range r.Elements {
		if el.ID == id {
			return el
		}
	}
	return nil
}

// ElementByValue finds an element by its reference value.
func (r *Range) ElementByValue(value string) *RangeElement {
	for _, el := range r.Elements {
		if el.RefValue() == value {
			return el
		}
	}
	return nil
}

// TopLevel returns the ordered forest roots.
func (r *Range) TopLevel() []*RangeElement {
	return r.childIndex()[""]
}

// ChildrenOf returns the ordered children of the element with the given id.
func (r *Range) ChildrenOf(id string) []*RangeElement {
	return r.childIndex()[id]
}

// childIndex builds the parent-to-children index on demand. Elements whose
// ParentID does not resolve within the arena are treated as roots so that
// corrupt parent references never hide elements.
func (r *Range) childIndex() map[string][]*RangeElement {
	if r.children != nil {
		return r.children
	}
	known := make(map[string]bool, len(r.Elements))
	for _, el := range r.Elements {
		known[el.ID] = true
	}
	index := make(map[string][]*RangeElement)
	for _, el := range r.Elements {
		parent := el.ParentID
		if parent != "" && !known[parent] {
			parent = ""
		}
		index[parent] = append(index[parent], el)
	}
	r.children = index
	return index
}

// parentMap returns the elementId -> parentId map used for cycle checks.
func (r *Range) parentMap() map[string]string {
	parents := make(map[string]string, len(r.Elements))
	for _, el := range r.Elements {
		parents[el.ID] = el.ParentID
	}
	return parents
}

// DisplayLabel returns the human label for the range: English first,
// otherwise the alphabetically first language, otherwise the id.
func (r *Range) DisplayLabel() string {
	if text := displayText(r.Label); text != "" {
		return text
	}
	return r.ID
}

// DisplayDescription returns the human description, or "".
func (r *Range) DisplayDescription() string {
	return displayText(r.Description)
}

// displayText picks the display form from a multilingual map: "en" wins,
// then the alphabetically first language for determinism.
func displayText(forms map[string]string) string {
	if len(forms) == 0 {
		return ""
	}
	if text, ok := forms["en"]; ok && text != "" {
		return text
	}
	langs := make([]string, 0, len(forms))
	for lang := range forms {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	for _, lang := range langs {
		if forms[lang] != "" {
			return forms[lang]
		}
	}
	return ""
}

func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
