package home

import (
	"github.com/jacentio/vitrine/catalog"
	"github.com/jacentio/vitrine/store"
)

// SectionsCollection is the document-store collection holding sections.
const SectionsCollection = "homepage"

// Document field names, shared with the stream repairer.
const (
	FieldPosition = "s_no"
	FieldCategory = "category_id"
	FieldProducts = "products"
)

// Section is one curated homepage slot: a display position, a category,
// and an ordered list of product references.
type Section struct {
	ID         string
	Position   int64
	CategoryID string
	ProductIDs []string
}

func sectionFromDoc(d store.Doc) Section {
	p, _ := d.Int(FieldPosition)
	return Section{
		ID:         d.ID(),
		Position:   p,
		CategoryID: d.String(FieldCategory),
		ProductIDs: d.Strings(FieldProducts),
	}
}

// View is a section joined with the current display data of its category
// and products, as returned by listings.
type View struct {
	Position     int64                    `json:"s_no"`
	CategoryID   string                   `json:"category_id"`
	CategoryName string                   `json:"category_name"`
	Products     []catalog.ProductSummary `json:"products"`
}
