// Package home implements the homepage section manager: an ordered set of
// at most four curated sections whose display positions stay pairwise
// distinct through every add, edit, and reorder.
//
// The manager holds no state of its own. Every operation re-reads the
// sections collection, decides, and writes back through atomic
// single-document compare-and-set updates. Reordering onto an occupied
// position runs a three-step exchange through a sentinel position so that
// no concurrent reader ever observes two sections sharing a position.
package home

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jacentio/vitrine/catalog"
	"github.com/jacentio/vitrine/internal/pos"
	"github.com/jacentio/vitrine/store"
)

const (
	// MaxSections is the homepage section capacity.
	MaxSections = 4

	// MinProducts and MaxProducts bound a section's product list.
	MinProducts = 1
	MaxProducts = 12
)

// addRetries bounds the post-insert position re-validation loop.
const addRetries = 4

// Manager owns homepage section ordering.
type Manager struct {
	sections store.Collection
	catalog  *catalog.Lookup
	logger   *slog.Logger
}

// NewManager creates a section manager over the given collection and
// catalog lookup.
func NewManager(sections store.Collection, cat *catalog.Lookup, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		sections: sections,
		catalog:  cat,
		logger:   logger,
	}
}

// List returns all sections ordered by position, joined with category and
// product display data for the back office.
func (m *Manager) List(ctx context.Context) ([]View, error) {
	return m.list(ctx, false)
}

// PublicList returns the storefront projection: same sections, with the
// product fields the storefront renders (prices, hover image,
// availability).
func (m *Manager) PublicList(ctx context.Context) ([]View, error) {
	return m.list(ctx, true)
}

func (m *Manager) list(ctx context.Context, public bool) ([]View, error) {
	docs, err := m.sections.Find(ctx, store.Query{
		Sort: &store.Sort{Field: FieldPosition},
	})
	if err != nil {
		return nil, err
	}

	views := make([]View, 0, len(docs))
	for _, doc := range docs {
		sec := sectionFromDoc(doc)
		if !pos.Valid(sec.Position) {
			// Mid-swap sentinel state, hidden from readers.
			continue
		}
		view, err := m.renderView(ctx, sec, public)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

// renderView joins a section with current catalog data. Stale references
// render with the "N/A" sentinel instead of failing the listing.
func (m *Manager) renderView(ctx context.Context, sec Section, public bool) (View, error) {
	view := View{
		Position:     sec.Position,
		CategoryID:   sec.CategoryID,
		CategoryName: catalog.NameNotAvailable,
		Products:     make([]catalog.ProductSummary, 0, len(sec.ProductIDs)),
	}

	if name, ok, err := m.catalog.CategoryName(ctx, sec.CategoryID); err != nil {
		return View{}, err
	} else if ok {
		view.CategoryName = name
	}

	for _, pid := range sec.ProductIDs {
		summary, ok, err := m.catalog.ProductSummary(ctx, pid)
		if err != nil {
			return View{}, err
		}
		if !ok {
			summary = catalog.ProductSummary{ID: pid, Name: catalog.NameNotAvailable}
		}
		if !public {
			// Back-office listing carries only name and thumbnail.
			summary = catalog.ProductSummary{
				ID:           summary.ID,
				Name:         summary.Name,
				DisplayImage: summary.DisplayImage,
			}
		}
		view.Products = append(view.Products, summary)
	}
	return view, nil
}

// Add creates a new section at the next position. The position counter is
// derived from the current maximum, not the count, so positions freed by
// deletes are not reused.
func (m *Manager) Add(ctx context.Context, categoryRef string, productRefs []string) (int64, error) {
	docs, err := m.sections.Find(ctx, store.Query{})
	if err != nil {
		return 0, err
	}
	if len(docs) >= MaxSections {
		return 0, fmt.Errorf("%w: max %d sections allowed", ErrCapacityExceeded, MaxSections)
	}

	categoryID, productIDs, err := m.validateRefs(ctx, categoryRef, productRefs)
	if err != nil {
		return 0, err
	}

	next := pos.Next(pos.Max(positions(docs)))
	id, err := m.sections.InsertOne(ctx, store.Doc{
		FieldPosition: next,
		FieldCategory: categoryID,
		FieldProducts: productIDs,
	})
	if err != nil {
		return 0, err
	}

	return m.settlePosition(ctx, id, next)
}

// settlePosition re-validates a freshly assigned position. Two adds racing
// on the same computed maximum can both claim it; the insert with the
// smallest document id keeps the position and the loser moves to a fresh
// maximum, by compare-and-set so a half-moved section is never duplicated.
func (m *Manager) settlePosition(ctx context.Context, id string, p int64) (int64, error) {
	for attempt := 0; attempt < addRetries; attempt++ {
		claimants, err := m.sections.Find(ctx, store.Query{
			Filter: store.Filter{FieldPosition: p},
		})
		if err != nil {
			return 0, err
		}
		if len(claimants) <= 1 || claimants[0].ID() == id {
			return p, nil
		}

		all, err := m.sections.Find(ctx, store.Query{})
		if err != nil {
			return 0, err
		}
		next := pos.Next(pos.Max(positions(all)))

		m.logger.Info("position collision, moving section",
			"section", id,
			"from", p,
			"to", next,
		)
		matched, err := m.sections.UpdateOne(ctx,
			store.Filter{store.FieldID: id, FieldPosition: p},
			store.Patch{FieldPosition: next},
		)
		if err != nil {
			return 0, err
		}
		if matched == 1 {
			p = next
		}
	}
	return 0, fmt.Errorf("%w: could not settle position for section %s", ErrConcurrentModification, id)
}

// Edit updates the section at targetPosition and optionally relocates it.
// A nil desiredPosition keeps the current position.
func (m *Manager) Edit(ctx context.Context, targetPosition int64, categoryRef string, productRefs []string, desiredPosition *int64) error {
	if !pos.Valid(targetPosition) {
		return fmt.Errorf("%w: position %d", ErrNotFound, targetPosition)
	}
	current, err := m.sections.FindOne(ctx, store.Filter{FieldPosition: targetPosition})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: position %d", ErrNotFound, targetPosition)
		}
		return err
	}

	categoryID, productIDs, err := m.validateRefs(ctx, categoryRef, productRefs)
	if err != nil {
		return err
	}

	desired := targetPosition
	if desiredPosition != nil {
		desired = *desiredPosition
	}
	if !pos.Valid(desired) {
		return fmt.Errorf("%w: position %d is out of range", ErrInvalidArgument, desired)
	}

	patch := store.Patch{
		FieldCategory: categoryID,
		FieldProducts: productIDs,
	}

	// In-place field update, position unchanged.
	if desired == targetPosition {
		matched, err := m.sections.UpdateOne(ctx,
			store.Filter{store.FieldID: current.ID(), FieldPosition: targetPosition},
			patch,
		)
		if err != nil {
			return err
		}
		if matched == 0 {
			return fmt.Errorf("%w: position %d", ErrConcurrentModification, targetPosition)
		}
		return nil
	}

	other, err := m.sections.FindOne(ctx, store.Filter{FieldPosition: desired})
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}

	// Desired position is free: relocate and update in one atomic write.
	if errors.Is(err, store.ErrNotFound) {
		patch[FieldPosition] = desired
		matched, err := m.sections.UpdateOne(ctx,
			store.Filter{store.FieldID: current.ID(), FieldPosition: targetPosition},
			patch,
		)
		if err != nil {
			return err
		}
		if matched == 0 {
			return fmt.Errorf("%w: position %d", ErrConcurrentModification, targetPosition)
		}
		return nil
	}

	return m.swap(ctx, current, other, desired, patch)
}

// swap exchanges the positions of current and other in three atomic steps,
// parking other at the sentinel position so that no instant exposes two
// sections on the same position:
//
//  1. other: desired -> sentinel
//  2. current: target -> desired, new field values applied in the same write
//  3. other: sentinel -> target
//
// Each step is conditioned on the position it expects to move from. A
// reader racing the sequence can observe other missing (sentinel state)
// but never a duplicate position. A failure between steps leaves other at
// the sentinel; the stream repairer reclaims it.
func (m *Manager) swap(ctx context.Context, current, other store.Doc, desired int64, patch store.Patch) error {
	target, _ := current.Int(FieldPosition)

	m.logger.Info("swapping sections",
		"section", current.ID(),
		"target", target,
		"desired", desired,
		"displaced", other.ID(),
	)

	matched, err := m.sections.UpdateOne(ctx,
		store.Filter{store.FieldID: other.ID(), FieldPosition: desired},
		store.Patch{FieldPosition: pos.Sentinel},
	)
	if err != nil {
		return fmt.Errorf("park displaced section: %w", err)
	}
	if matched == 0 {
		return fmt.Errorf("%w: position %d", ErrConcurrentModification, desired)
	}

	patch[FieldPosition] = desired
	matched, err = m.sections.UpdateOne(ctx,
		store.Filter{store.FieldID: current.ID(), FieldPosition: target},
		patch,
	)
	if err != nil {
		return fmt.Errorf("move section to position %d: %w", desired, err)
	}
	if matched == 0 {
		// Other is parked at the sentinel; the repairer will reclaim it.
		m.logger.Error("swap interrupted, section left at sentinel",
			"displaced", other.ID(),
			"freed", desired,
		)
		return fmt.Errorf("%w: position %d", ErrConcurrentModification, target)
	}

	matched, err = m.sections.UpdateOne(ctx,
		store.Filter{store.FieldID: other.ID(), FieldPosition: pos.Sentinel},
		store.Patch{FieldPosition: target},
	)
	if err != nil {
		return fmt.Errorf("unpark displaced section: %w", err)
	}
	if matched == 0 {
		// Already reclaimed by the repairer. Not an error for the caller.
		m.logger.Warn("displaced section no longer at sentinel", "displaced", other.ID())
	}
	return nil
}

// Delete removes the section at the given position. Remaining sections
// keep their positions; the gap persists until an edit relocates into it.
func (m *Manager) Delete(ctx context.Context, position int64) error {
	if !pos.Valid(position) {
		return fmt.Errorf("%w: position %d", ErrNotFound, position)
	}
	deleted, err := m.sections.DeleteOne(ctx, store.Filter{FieldPosition: position})
	if err != nil {
		return err
	}
	if deleted == 0 {
		return fmt.Errorf("%w: position %d", ErrNotFound, position)
	}
	return nil
}

// validateRefs runs the shared reference preconditions of Add and Edit:
// category resolves, product count within bounds, every product resolves.
// The first failing check wins.
func (m *Manager) validateRefs(ctx context.Context, categoryRef string, productRefs []string) (string, []string, error) {
	categoryID, err := ParseRef(categoryRef)
	if err != nil {
		return "", nil, fmt.Errorf("%w: category %q", ErrInvalidReference, categoryRef)
	}
	ok, err := m.catalog.CategoryExists(ctx, categoryID)
	if err != nil {
		return "", nil, err
	}
	if !ok {
		return "", nil, fmt.Errorf("%w: category %q", ErrInvalidReference, categoryRef)
	}

	if len(productRefs) < MinProducts {
		return "", nil, fmt.Errorf("%w: at least %d product required", ErrInvalidArgument, MinProducts)
	}
	if len(productRefs) > MaxProducts {
		return "", nil, fmt.Errorf("%w: max %d products allowed", ErrInvalidArgument, MaxProducts)
	}

	productIDs := make([]string, 0, len(productRefs))
	for _, ref := range productRefs {
		id, err := ParseRef(ref)
		if err != nil {
			return "", nil, fmt.Errorf("%w: product %q", ErrInvalidReference, ref)
		}
		ok, err := m.catalog.ProductExists(ctx, id)
		if err != nil {
			return "", nil, err
		}
		if !ok {
			return "", nil, fmt.Errorf("%w: product %q", ErrInvalidReference, ref)
		}
		productIDs = append(productIDs, id)
	}
	return categoryID, productIDs, nil
}

func positions(docs []store.Doc) []int64 {
	ps := make([]int64, 0, len(docs))
	for _, d := range docs {
		if p, ok := d.Int(FieldPosition); ok {
			ps = append(ps, p)
		}
	}
	return ps
}
