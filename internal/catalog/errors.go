package catalog

import "errors"

var (
	// ErrItemNotFound is returned when a GUID is not in the catalog.
	ErrItemNotFound = errors.New("item not found")

	// ErrNoBinary is returned when an item has no stored binary.
	ErrNoBinary = errors.New("item has no binary")

	// ErrEmptySelection is returned when a selection names nothing.
	ErrEmptySelection = errors.New("empty selection: provide GUIDs, a path prefix or select all")

	// ErrRunNotFound is returned when a run ID is not in the catalog.
	ErrRunNotFound = errors.New("run not found")
)
