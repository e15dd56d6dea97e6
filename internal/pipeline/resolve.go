package pipeline

import (
	"context"
	"fmt"

	"github.com/nao1215/sigscan/internal/model"
)

// ResolveItems builds the candidate list of a run: the selected items,
// optionally expanded with their descendants, without duplicates and
// without items that have no binary to export. Order is preserved.
func ResolveItems(ctx context.Context, src ItemSource, includeDescendants bool) ([]model.Item, error) {
	items, err := src.ListSelected(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list selected items: %w", err)
	}

	if includeDescendants {
		items, err = src.ExpandDescendants(ctx, items)
		if err != nil {
			return nil, fmt.Errorf("failed to expand descendants: %w", err)
		}
	}

	seen := make(map[string]struct{}, len(items))
	resolved := make([]model.Item, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.GUID]; ok {
			continue
		}
		seen[item.GUID] = struct{}{}
		if !item.HasBinary {
			continue
		}
		resolved = append(resolved, item)
	}
	return resolved, nil
}
