package ranges

// Resolve computes inherited display values over a range's hierarchy. It
// returns a deep copy whose every element carries EffectiveLabel and
// EffectiveAbbrev: the element's own label/abbreviation when present,
// otherwise the already-resolved value of its parent (so inheritance
// chains through unlabeled intermediate nodes), otherwise the element id.
// The input is never mutated; resolving the same input twice yields
// identical output.
func Resolve(r *Range) *Range {
	out := r.Clone()
	for _, root := range out.TopLevel() {
		resolveSubtree(out, root, nil)
	}
	return out
}

func resolveSubtree(r *Range, el *RangeElement, parent *RangeElement) {
	el.EffectiveLabel = effectiveValue(displayText(el.Label), parent, func(p *RangeElement) string {
		return p.EffectiveLabel
	}, el.ID)
	el.EffectiveAbbrev = effectiveValue(displayText(el.Abbrev), parent, func(p *RangeElement) string {
		return p.EffectiveAbbrev
	}, el.ID)
	for _, child := range r.ChildrenOf(el.ID) {
		resolveSubtree(r, child, el)
	}
}

func effectiveValue(own string, parent *RangeElement, inherited func(*RangeElement) string, fallback string) string {
	if own != "" {
		return own
	}
	if parent != nil {
		if v := inherited(parent); v != "" {
			return v
		}
	}
	return fallback
}
