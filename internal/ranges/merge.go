package ranges

import (
	"lexicon/api/internal/rangemeta"
	"lexicon/api/internal/store"
)

// standardRangeIDs are the well-known FieldWorks taxonomy ids. Ranges with
// these ids are flagged Standard in the merged view.
var standardRangeIDs = map[string]bool{
	"grammatical-info":       true,
	"lexical-relation":       true,
	"semantic-domain-ddp4":   true,
	"anthro-code":            true,
	"domain-type":            true,
	"usage-type":             true,
	"status":                 true,
	"users":                  true,
	"location":               true,
	"from-part-of-speech":    true,
	"morph-type":             true,
	"exception-feature":      true,
	"inflection-feature":     true,
	"inflection-feature-type": true,
	"paradigm":               true,
	"reversal-type":          true,
	"translation-type":       true,
	"note-type":              true,
	"do-not-publish-in":      true,
	"dialect":                true,
}

// rangeAliases maps known variant spellings of a taxonomy id to the
// surviving key. Documents produced by different exporters disagree on
// singular vs plural for a handful of ranges.
var rangeAliases = map[string]string{
	"anthro-codes":      "anthro-code",
	"domain-types":      "domain-type",
	"usage-types":       "usage-type",
	"locations":         "location",
	"dialects":          "dialect",
	"note-types":        "note-type",
	"translation-types": "translation-type",
	"semantic-domain":   "semantic-domain-ddp4",
	"semantic-domains":  "semantic-domain-ddp4",
}

// MergeSources reconciles the three sources of truth into one merged view:
// canonical ranges are authoritative and never altered, custom rows are
// strictly additive, and config metadata materializes ranges absent from
// both. Inputs are treated as immutable snapshots; the result shares no
// structure with them. An entirely empty input set yields an empty map.
func MergeSources(canonical map[string]*Range, custom []store.CustomRange, meta map[string]rangemeta.Entry) map[string]*Range {
	merged := make(map[string]*Range, len(canonical))

	for id, r := range canonical {
		out := r.Clone()
		out.Official = true
		out.Standard = standardRangeIDs[canonicalAlias(id)]
		applyMetaFallback(out, meta)
		merged[id] = out
	}

	mergeCustomRows(merged, custom, meta)

	for id, entry := range meta {
		if _, seen := merged[id]; seen {
			// Canonical and custom data win: a range backed by either
			// source is never flagged providedByConfig.
			continue
		}
		if _, seen := merged[canonicalAlias(id)]; seen {
			continue
		}
		merged[id] = &Range{
			ID:                 id,
			Label:              labelMap(entry.Label),
			Description:        labelMap(entry.Description),
			Elements:           []*RangeElement{},
			Standard:           standardRangeIDs[canonicalAlias(id)],
			ProvidedByConfig:   true,
			FieldworksStandard: entry.Type == rangemeta.TypeFieldworks,
			ConfigType:         entry.Type,
		}
	}

	return dedupeAliases(merged)
}

// mergeCustomRows folds the relational side-store rows into the merged
// view. Each header row contributes one element; its value rows become
// child elements under it. Ids already present in a range's hierarchy are
// left untouched so canonical contributions are never shadowed.
func mergeCustomRows(merged map[string]*Range, custom []store.CustomRange, meta map[string]rangemeta.Entry) {
	for _, row := range custom {
		if row.RangeName == "" || row.ElementID == "" {
			continue
		}
		target, ok := merged[row.RangeName]
		if !ok {
			target = &Range{
				ID:         row.RangeName,
				ConfigType: row.RangeType,
				Standard:   standardRangeIDs[canonicalAlias(row.RangeName)],
				Elements:   []*RangeElement{},
			}
			applyMetaFallback(target, meta)
			merged[row.RangeName] = target
		}
		if target.Element(row.ElementID) == nil {
			target.Elements = append(target.Elements, &RangeElement{
				ID:          row.ElementID,
				Label:       labelMap(row.ElementLabel),
				Description: labelMap(row.ElementDescription),
				Custom:      true,
			})
			target.children = nil
		}
		for _, value := range row.Values {
			if value.Value == "" || target.Element(value.Value) != nil {
				continue
			}
			target.Elements = append(target.Elements, &RangeElement{
				ID:          value.Value,
				Value:       value.Value,
				ParentID:    row.ElementID,
				Label:       labelMap(value.Label),
				Description: labelMap(value.Description),
				Custom:      true,
			})
			target.children = nil
		}
	}
}

// dedupeAliases collapses known variant spellings onto one surviving key.
// The alias that already holds more elements supplies the base range; the
// other's elements are unioned in by id.
func dedupeAliases(merged map[string]*Range) map[string]*Range {
	for variant, survivor := range rangeAliases {
		variantRange, hasVariant := merged[variant]
		if !hasVariant {
			continue
		}
		survivorRange, hasSurvivor := merged[survivor]
		if !hasSurvivor {
			variantRange.ID = survivor
			merged[survivor] = variantRange
			delete(merged, variant)
			continue
		}
		base, extra := survivorRange, variantRange
		if len(variantRange.Elements) > len(survivorRange.Elements) {
			base, extra = variantRange, survivorRange
		}
		for _, el := range extra.Elements {
			if base.Element(el.ID) == nil {
				base.Elements = append(base.Elements, el)
			}
		}
		base.ID = survivor
		base.children = nil
		// Keep canonical provenance if either alias had it.
		base.Official = survivorRange.Official || variantRange.Official
		base.ProvidedByConfig = survivorRange.ProvidedByConfig && variantRange.ProvidedByConfig
		merged[survivor] = base
		delete(merged, variant)
	}
	return merged
}

// canonicalAlias maps a variant spelling to its surviving id, or returns
// the id unchanged.
func canonicalAlias(id string) string {
	if survivor, ok := rangeAliases[id]; ok {
		return survivor
	}
	return id
}

// applyMetaFallback fills missing display label/description from static
// config metadata without touching provenance flags.
func applyMetaFallback(r *Range, meta map[string]rangemeta.Entry) {
	entry, ok := meta[r.ID]
	if !ok {
		entry, ok = meta[canonicalAlias(r.ID)]
	}
	if !ok {
		return
	}
	if len(r.Label) == 0 && entry.Label != "" {
		r.Label = labelMap(entry.Label)
	}
	if len(r.Description) == 0 && entry.Description != "" {
		r.Description = labelMap(entry.Description)
	}
}

func labelMap(text string) map[string]string {
	if text == "" {
		return nil
	}
	return map[string]string{"en": text}
}
