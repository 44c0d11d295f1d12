package fragment

// Fragments is the result of extracting one document. The concrete type
// depends on the document type: *Krona, *Summary or *Chart.
type Fragments interface {
	// DocType returns the document type the fragments came from.
	DocType() DocType
	// Slots returns slot name → markup.
	Slots() map[string]string
	// Vars returns the fragments as template variables named
	// "<doctype>_<slot>", e.g. "krona_div_krona".
	Vars() map[string]string

	fragments()
}

// Krona holds the fragments of a Krona chart page.
type Krona struct {
	// head
	Link             string
	ScriptNotFound   string
	ScriptFunctional string

	// body
	ImgHidden  string
	ImgLoading string
	ImgLogo    string
	Noscript   string
	DivKrona   string
}

func (k *Krona) DocType() DocType { return TypeKrona }

func (k *Krona) Slots() map[string]string {
	return map[string]string{
		SlotLink:             k.Link,
		SlotScriptNotFound:   k.ScriptNotFound,
		SlotScriptFunctional: k.ScriptFunctional,
		SlotImgHidden:        k.ImgHidden,
		SlotImgLoading:       k.ImgLoading,
		SlotImgLogo:          k.ImgLogo,
		SlotNoscript:         k.Noscript,
		SlotDivKrona:         k.DivKrona,
	}
}

func (k *Krona) Vars() map[string]string { return prefixed(k) }

func (*Krona) fragments() {}

// Summary holds the fragments of the alpha-diversity summary table page.
type Summary struct {
	Link             string
	Table            string
	GoogleapisScript string
	DatatablesScript string
	Script           string
}

func (s *Summary) DocType() DocType { return TypeSummary }

func (s *Summary) Slots() map[string]string {
	return map[string]string{
		SlotLink:             s.Link,
		SlotTable:            s.Table,
		SlotGoogleapisScript: s.GoogleapisScript,
		SlotDatatablesScript: s.DatatablesScript,
		SlotScript:           s.Script,
	}
}

func (s *Summary) Vars() map[string]string { return prefixed(s) }

func (*Summary) fragments() {}

// Chart holds the fragments of a rarefaction or NMDS plot page: the chart
// container and the script drawing into it.
type Chart struct {
	Type   DocType
	Div    string
	Script string
}

func (c *Chart) DocType() DocType { return c.Type }

func (c *Chart) Slots() map[string]string {
	return map[string]string{
		SlotDiv:    c.Div,
		SlotScript: c.Script,
	}
}

func (c *Chart) Vars() map[string]string { return prefixed(c) }

func (*Chart) fragments() {}

func prefixed(f Fragments) map[string]string {
	slots := f.Slots()
	vars := make(map[string]string, len(slots))
	for name, markup := range slots {
		vars[string(f.DocType())+"_"+name] = markup
	}
	return vars
}

// VarNames returns the template variable names Vars produces for t, in
// schema order.
func VarNames(t DocType) []string {
	schema := schemas[t]
	names := make([]string, 0, len(schema))
	for _, s := range schema {
		names = append(names, string(t)+"_"+s.Name)
	}
	return names
}

func build(t DocType, slots map[string]string) Fragments {
	switch t {
	case TypeKrona:
		return &Krona{
			Link:             slots[SlotLink],
			ScriptNotFound:   slots[SlotScriptNotFound],
			ScriptFunctional: slots[SlotScriptFunctional],
			ImgHidden:        slots[SlotImgHidden],
			ImgLoading:       slots[SlotImgLoading],
			ImgLogo:          slots[SlotImgLogo],
			Noscript:         slots[SlotNoscript],
			DivKrona:         slots[SlotDivKrona],
		}
	case TypeSummary:
		return &Summary{
			Link:             slots[SlotLink],
			Table:            slots[SlotTable],
			GoogleapisScript: slots[SlotGoogleapisScript],
			DatatablesScript: slots[SlotDatatablesScript],
			Script:           slots[SlotScript],
		}
	default:
		return &Chart{Type: t, Div: slots[SlotDiv], Script: slots[SlotScript]}
	}
}
