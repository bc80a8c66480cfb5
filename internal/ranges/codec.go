package ranges

import (
	"encoding/xml"
	"fmt"
	"sort"
	"strings"
)

// Codec between the canonical lift-ranges XML and the in-memory model.
// Elements are flat in LIFT with hierarchy carried by the parent attribute,
// which maps directly onto the arena model.

type liftRangesDoc struct {
	XMLName xml.Name    `xml:"lift-ranges"`
	Ranges  []liftRange `xml:"range"`
}

type liftRange struct {
	XMLName     xml.Name           `xml:"range"`
	ID          string             `xml:"id,attr"`
	GUID        string             `xml:"guid,attr,omitempty"`
	Label       *liftMultitext     `xml:"label"`
	Description *liftMultitext     `xml:"description"`
	Elements    []liftRangeElement `xml:"range-element"`
}

type liftRangeElement struct {
	XMLName     xml.Name       `xml:"range-element"`
	ID          string         `xml:"id,attr"`
	GUID        string         `xml:"guid,attr,omitempty"`
	Parent      string         `xml:"parent,attr,omitempty"`
	Value       string         `xml:"value,attr,omitempty"`
	Label       *liftMultitext `xml:"label"`
	Abbrev      *liftMultitext `xml:"abbrev"`
	Description *liftMultitext `xml:"description"`
	Traits      []liftTrait    `xml:"trait"`
}

type liftMultitext struct {
	Forms []liftForm `xml:"form"`
}

type liftForm struct {
	Lang string `xml:"lang,attr"`
	Text string `xml:"text"`
}

type liftTrait struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// DecodeRanges parses a whole lift-ranges document. Empty input decodes to
// an empty map. Malformed XML is returned as an error; the reconciliation
// layer degrades it to "no canonical ranges" rather than propagating it.
func DecodeRanges(doc string) (map[string]*Range, error) {
	if strings.TrimSpace(doc) == "" {
		return map[string]*Range{}, nil
	}
	var parsed liftRangesDoc
	if err := xml.Unmarshal([]byte(doc), &parsed); err != nil {
		return nil, fmt.Errorf("decode lift-ranges: %w", err)
	}
	out := make(map[string]*Range, len(parsed.Ranges))
	for i := range parsed.Ranges {
		r := rangeFromLift(&parsed.Ranges[i])
		if r.ID == "" {
			continue
		}
		out[r.ID] = r
	}
	return out, nil
}

// DecodeRangeNode parses a single range node, as returned by a targeted
// canonical query. Empty input decodes to nil.
func DecodeRangeNode(doc string) (*Range, error) {
	if strings.TrimSpace(doc) == "" {
		return nil, nil
	}
	var parsed liftRange
	if err := xml.Unmarshal([]byte(doc), &parsed); err != nil {
		return nil, fmt.Errorf("decode range node: %w", err)
	}
	return rangeFromLift(&parsed), nil
}

// EncodeRangeNode renders a range as a canonical XML node suitable for
// embedding in an XQuery Update statement.
func EncodeRangeNode(r *Range) (string, error) {
	node := liftRange{
		ID:          r.ID,
		GUID:        r.GUID,
		Label:       multitextFromMap(r.Label),
		Description: multitextFromMap(r.Description),
	}
	for _, el := range r.Elements {
		node.Elements = append(node.Elements, elementToLift(el))
	}
	data, err := xml.Marshal(node)
	if err != nil {
		return "", fmt.Errorf("encode range %q: %w", r.ID, err)
	}
	return string(data), nil
}

// EncodeElementNode renders a single range-element node.
func EncodeElementNode(el *RangeElement) (string, error) {
	data, err := xml.Marshal(elementToLift(el))
	if err != nil {
		return "", fmt.Errorf("encode range element %q: %w", el.ID, err)
	}
	return string(data), nil
}

func rangeFromLift(node *liftRange) *Range {
	r := &Range{
		ID:          node.ID,
		GUID:        node.GUID,
		Label:       mapFromMultitext(node.Label),
		Description: mapFromMultitext(node.Description),
		Elements:    make([]*RangeElement, 0, len(node.Elements)),
	}
	for i := range node.Elements {
		lel := &node.Elements[i]
		if lel.ID == "" {
			continue
		}
		el := &RangeElement{
			ID:          lel.ID,
			GUID:        lel.GUID,
			Value:       lel.Value,
			ParentID:    lel.Parent,
			Label:       mapFromMultitext(lel.Label),
			Abbrev:      mapFromMultitext(lel.Abbrev),
			Description: mapFromMultitext(lel.Description),
		}
		if len(lel.Traits) > 0 {
			el.Traits = make(map[string]string, len(lel.Traits))
			for _, t := range lel.Traits {
				el.Traits[t.Name] = t.Value
			}
		}
		r.Elements = append(r.Elements, el)
	}
	return r
}

func elementToLift(el *RangeElement) liftRangeElement {
	node := liftRangeElement{
		ID:          el.ID,
		GUID:        el.GUID,
		Parent:      el.ParentID,
		Value:       el.Value,
		Label:       multitextFromMap(el.Label),
		Abbrev:      multitextFromMap(el.Abbrev),
		Description: multitextFromMap(el.Description),
	}
	if len(el.Traits) > 0 {
		names := make([]string, 0, len(el.Traits))
		for name := range el.Traits {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			node.Traits = append(node.Traits, liftTrait{Name: name, Value: el.Traits[name]})
		}
	}
	return node
}

func mapFromMultitext(mt *liftMultitext) map[string]string {
	if mt == nil || len(mt.Forms) == 0 {
		return nil
	}
	out := make(map[string]string, len(mt.Forms))
	for _, form := range mt.Forms {
		out[form.Lang] = form.Text
	}
	return out
}

// multitextFromMap emits forms in sorted language order so encoded nodes
// are deterministic.
func multitextFromMap(m map[string]string) *liftMultitext {
	if len(m) == 0 {
		return nil
	}
	langs := make([]string, 0, len(m))
	for lang := range m {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	mt := &liftMultitext{Forms: make([]liftForm, 0, len(langs))}
	for _, lang := range langs {
		mt.Forms = append(mt.Forms, liftForm{Lang: lang, Text: m[lang]})
	}
	return mt
}

// usage scan results come back as small constructed XML documents.

type usageRefsDoc struct {
	XMLName xml.Name   `xml:"refs"`
	Refs    []usageRef `xml:"ref"`
}

type usageRef struct {
	ID    string `xml:"id,attr"`
	Value string `xml:"value,attr"`
	Label string `xml:"label,attr"`
	Count int    `xml:"count,attr"`
}

func decodeUsageRefs(doc string) ([]usageRef, error) {
	if strings.TrimSpace(doc) == "" {
		return nil, nil
	}
	var parsed usageRefsDoc
	if err := xml.Unmarshal([]byte(doc), &parsed); err != nil {
		return nil, fmt.Errorf("decode usage refs: %w", err)
	}
	return parsed.Refs, nil
}
