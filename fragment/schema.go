package fragment

import (
	"fmt"
	"strings"
)

// DocType identifies one of the four sub-report shapes.
type DocType string

const (
	TypeKrona       DocType = "krona"
	TypeSummary     DocType = "summary"
	TypeRarefaction DocType = "rarefaction"
	TypeNMDS        DocType = "nmds"
)

// DocTypes returns every supported document type.
func DocTypes() []DocType {
	return []DocType{TypeKrona, TypeSummary, TypeRarefaction, TypeNMDS}
}

// ParseDocType maps a case-insensitive name to its DocType.
func ParseDocType(s string) (DocType, error) {
	t := DocType(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := schemas[t]; !ok {
		return "", fmt.Errorf("fragment: unknown document type %q", s)
	}
	return t, nil
}

// Section is the part of a document a slot is looked up in.
type Section int

const (
	// SectionRoot is the list of top-level nodes of a markup fragment.
	SectionRoot Section = iota
	// SectionHead is the children of <head> in a full document.
	SectionHead
	// SectionBody is the children of <body> in a full document.
	SectionBody
)

func (s Section) String() string {
	switch s {
	case SectionHead:
		return "head"
	case SectionBody:
		return "body"
	default:
		return "root"
	}
}

// Slot binds a name to a node of a document.
//
// A positional slot takes the Index-th child of Section, counting only
// nodes that are not whitespace-only text. A tag slot (Tag non-empty) takes
// the first element named Tag anywhere under Section, in document order.
type Slot struct {
	Name    string
	Section Section
	Index   int
	Tag     string
}

// Slot names.
const (
	SlotLink             = "link"
	SlotScriptNotFound   = "script_not_found"
	SlotScriptFunctional = "script_functional"
	SlotImgHidden        = "img_hidden"
	SlotImgLoading       = "img_loading"
	SlotImgLogo          = "img_logo"
	SlotNoscript         = "noscript"
	SlotDivKrona         = "div_krona"

	SlotTable            = "table"
	SlotGoogleapisScript = "googleapis_script"
	SlotDatatablesScript = "datatables_script"
	SlotScript           = "script"

	SlotDiv = "div"
)

var chartSchema = []Slot{
	{Name: SlotDiv, Section: SectionRoot, Index: -1, Tag: "div"},
	{Name: SlotScript, Section: SectionRoot, Index: -1, Tag: "script"},
}

var schemas = map[DocType][]Slot{
	// head[0] is the charset meta element and is not carried over.
	TypeKrona: {
		{Name: SlotLink, Section: SectionHead, Index: 1},
		{Name: SlotScriptNotFound, Section: SectionHead, Index: 2},
		{Name: SlotScriptFunctional, Section: SectionHead, Index: 3},
		{Name: SlotImgHidden, Section: SectionBody, Index: 0},
		{Name: SlotImgLoading, Section: SectionBody, Index: 1},
		{Name: SlotImgLogo, Section: SectionBody, Index: 2},
		{Name: SlotNoscript, Section: SectionBody, Index: 3},
		{Name: SlotDivKrona, Section: SectionBody, Index: 4},
	},
	// Position 2 is skipped. Summary pages emitted upstream carry an extra
	// node there; nothing downstream uses it.
	TypeSummary: {
		{Name: SlotLink, Section: SectionRoot, Index: 0},
		{Name: SlotTable, Section: SectionRoot, Index: 1},
		{Name: SlotGoogleapisScript, Section: SectionRoot, Index: 3},
		{Name: SlotDatatablesScript, Section: SectionRoot, Index: 4},
		{Name: SlotScript, Section: SectionRoot, Index: 5},
	},
	TypeRarefaction: chartSchema,
	TypeNMDS:        chartSchema,
}

// Schema returns a copy of the slot schema of t, or nil for an unknown type.
func Schema(t DocType) []Slot {
	s, ok := schemas[t]
	if !ok {
		return nil
	}
	return append([]Slot(nil), s...)
}

// fullDocument reports whether t is parsed as a complete HTML document
// (head/body sections) rather than as a markup fragment.
func fullDocument(slots []Slot) bool {
	for _, s := range slots {
		if s.Section == SectionHead || s.Section == SectionBody {
			return true
		}
	}
	return false
}
