// Package catalog resolves category and product references for the
// homepage. It is a read-only view over the catalog collections: section
// writes validate references through it, and listings join display data
// through it.
package catalog

import (
	"context"
	"errors"

	"github.com/jacentio/vitrine/store"
)

// Collection names in the document store.
const (
	CategoriesCollection = "categories"
	ProductsCollection   = "products"
)

// NameNotAvailable is rendered in place of a reference that no longer
// resolves. Stale references degrade a listing, they never fail it.
const NameNotAvailable = "N/A"

// ProductSummary is the display projection of a product.
type ProductSummary struct {
	ID           string  `json:"_id"`
	Name         string  `json:"name"`
	DisplayImage string  `json:"display_image"`
	HoverImage   string  `json:"hover_image,omitempty"`
	Price        float64 `json:"price"`
	OldPrice     float64 `json:"oldPrice"`
	Availability string  `json:"availability,omitempty"`
}

// Lookup answers existence and display queries against the catalog.
type Lookup struct {
	categories store.Collection
	products   store.Collection
}

// NewLookup creates a catalog lookup over the given collections.
func NewLookup(categories, products store.Collection) *Lookup {
	return &Lookup{
		categories: categories,
		products:   products,
	}
}

// CategoryExists reports whether the category id resolves.
func (l *Lookup) CategoryExists(ctx context.Context, id string) (bool, error) {
	return exists(ctx, l.categories, id)
}

// CategoryName returns the category's display name, or ok=false when the
// reference no longer resolves.
func (l *Lookup) CategoryName(ctx context.Context, id string) (string, bool, error) {
	doc, err := l.categories.FindOne(ctx, store.Filter{store.FieldID: id})
	if errors.Is(err, store.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return doc.String("name"), true, nil
}

// ProductExists reports whether the product id resolves.
func (l *Lookup) ProductExists(ctx context.Context, id string) (bool, error) {
	return exists(ctx, l.products, id)
}

// ProductSummary returns the product's display projection, or ok=false
// when the reference no longer resolves.
func (l *Lookup) ProductSummary(ctx context.Context, id string) (ProductSummary, bool, error) {
	doc, err := l.products.FindOne(ctx, store.Filter{store.FieldID: id})
	if errors.Is(err, store.ErrNotFound) {
		return ProductSummary{}, false, nil
	}
	if err != nil {
		return ProductSummary{}, false, err
	}

	price, _ := doc.Float("selling_price")
	oldPrice, _ := doc.Float("mrp")
	return ProductSummary{
		ID:           doc.ID(),
		Name:         doc.String("name"),
		DisplayImage: doc.String("display_image"),
		HoverImage:   doc.String("hover_image"),
		Price:        price,
		OldPrice:     oldPrice,
		Availability: doc.String("availability"),
	}, true, nil
}

func exists(ctx context.Context, c store.Collection, id string) (bool, error) {
	_, err := c.FindOne(ctx, store.Filter{store.FieldID: id})
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
