package catalog

import (
	"context"
	"fmt"

	"github.com/nao1215/sigscan/internal/model"
)

// Selection names the items a scan starts from.
type Selection struct {
	// GUIDs selects items by identifier.
	GUIDs []string

	// PathPrefix selects the item at this path and everything below it.
	PathPrefix string

	// All selects the whole catalog.
	All bool
}

// Empty reports whether the selection names nothing.
func (s Selection) Empty() bool {
	return !s.All && len(s.GUIDs) == 0 && s.PathPrefix == ""
}

// Source lists the selected items of a Catalog. It implements the pipeline
// item source.
type Source struct {
	catalog   *Catalog
	selection Selection
}

// Source returns an item source for sel.
func (c *Catalog) Source(sel Selection) *Source {
	return &Source{catalog: c, selection: sel}
}

// ListSelected returns the selected items. GUID selections keep argument
// order and fail with ErrItemNotFound for an unknown GUID.
func (s *Source) ListSelected(ctx context.Context) ([]model.Item, error) {
	sel := s.selection
	switch {
	case sel.Empty():
		return nil, ErrEmptySelection
	case sel.All:
		return s.catalog.ListItems(ctx)
	}

	var items []model.Item
	for _, guid := range sel.GUIDs {
		item, err := s.catalog.GetItem(ctx, guid)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if sel.PathPrefix != "" {
		under, err := s.catalog.ItemsUnderPath(ctx, sel.PathPrefix)
		if err != nil {
			return nil, err
		}
		items = append(items, under...)
	}
	return items, nil
}

// ExpandDescendants returns every item followed by its descendants.
// Duplicates are left for the caller to remove.
func (s *Source) ExpandDescendants(ctx context.Context, items []model.Item) ([]model.Item, error) {
	out := make([]model.Item, 0, len(items))
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out = append(out, item)

		descendants, err := s.catalog.Descendants(ctx, item.GUID)
		if err != nil {
			return nil, fmt.Errorf("failed to expand %s: %w", item.GUID, err)
		}
		out = append(out, descendants...)
	}
	return out, nil
}
