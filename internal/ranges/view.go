package ranges

// RangeView is the wire shape exposed to API callers: display label and
// description flattened to strings, elements nested as a forest.
type RangeView struct {
	ID                 string         `json:"id"`
	GUID               string         `json:"guid,omitempty"`
	Label              string         `json:"label"`
	Description        string         `json:"description,omitempty"`
	Values             []*ElementView `json:"values"`
	Official           bool           `json:"official"`
	Standard           bool           `json:"standard"`
	ProvidedByConfig   bool           `json:"providedByConfig"`
	FieldworksStandard bool           `json:"fieldworksStandard"`
	ConfigType         string         `json:"configType,omitempty"`
}

// ElementView is one node of the nested element forest.
type ElementView struct {
	ID              string            `json:"id"`
	GUID            string            `json:"guid,omitempty"`
	Value           string            `json:"value,omitempty"`
	ParentID        string            `json:"parentId,omitempty"`
	Label           map[string]string `json:"label,omitempty"`
	Abbrev          map[string]string `json:"abbrev,omitempty"`
	Description     map[string]string `json:"description,omitempty"`
	Traits          map[string]string `json:"traits,omitempty"`
	Custom          bool              `json:"custom,omitempty"`
	EffectiveLabel  string            `json:"effectiveLabel,omitempty"`
	EffectiveAbbrev string            `json:"effectiveAbbrev,omitempty"`
	Children        []*ElementView    `json:"children,omitempty"`
}

// View renders the range for API consumers. The nested forest is built
// from the arena's children index; the receiver is not retained.
func (r *Range) View() *RangeView {
	view := &RangeView{
		ID:                 r.ID,
		GUID:               r.GUID,
		Label:              r.DisplayLabel(),
		Description:        r.DisplayDescription(),
		Values:             viewForest(r, r.TopLevel()),
		Official:           r.Official,
		Standard:           r.Standard,
		ProvidedByConfig:   r.ProvidedByConfig,
		FieldworksStandard: r.FieldworksStandard,
		ConfigType:         r.ConfigType,
	}
	if view.Values == nil {
		view.Values = []*ElementView{}
	}
	return view
}

func viewForest(r *Range, els []*RangeElement) []*ElementView {
	if len(els) == 0 {
		return nil
	}
	out := make([]*ElementView, 0, len(els))
	for _, el := range els {
		out = append(out, &ElementView{
			ID:              el.ID,
			GUID:            el.GUID,
			Value:           el.Value,
			ParentID:        el.ParentID,
			Label:           copyMap(el.Label),
			Abbrev:          copyMap(el.Abbrev),
			Description:     copyMap(el.Description),
			Traits:          copyMap(el.Traits),
			Custom:          el.Custom,
			EffectiveLabel:  el.EffectiveLabel,
			EffectiveAbbrev: el.EffectiveAbbrev,
			Children:        viewForest(r, r.ChildrenOf(el.ID)),
		})
	}
	return out
}
