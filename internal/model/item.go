package model

import (
	"strings"
)

// Item is a catalog entry whose binary content can be scanned.
// The pipeline never changes an item's identity; results are attached to it
// through the annotation collaborator.
type Item struct {
	// GUID is the stable identifier of the item.
	GUID string `json:"guid"`

	// ParentGUID is the GUID of the containing item, empty for top-level items.
	ParentGUID string `json:"parent_guid,omitempty"`

	// Name is the display name of the item (usually the file name).
	Name string `json:"name"`

	// PathNames lists the names from the catalog root down to this item.
	PathNames []string `json:"path_names"`

	// Kind is a coarse classification such as "document" or "executable".
	Kind string `json:"kind"`

	// MimeType is the detected MIME type of the binary.
	MimeType string `json:"mime_type"`

	// MD5 is the hex encoded MD5 digest of the binary, empty when unknown.
	MD5 string `json:"md5,omitempty"`

	// AuditedSize is the size in bytes of the binary.
	AuditedSize int64 `json:"audited_size"`

	// Extension is the corrected file extension without a leading dot.
	Extension string `json:"extension"`

	// HasBinary reports whether binary content is available for export.
	HasBinary bool `json:"has_binary"`
}

// Path returns the item path joined with "/".
func (i Item) Path() string {
	return strings.Join(i.PathNames, "/")
}

// ArtifactName returns the file name used when the item is exported to the
// scratch directory: "<guid>.<extension>", or just the GUID when the item
// has no extension.
func (i Item) ArtifactName() string {
	ext := strings.TrimPrefix(i.Extension, ".")
	if ext == "" {
		return i.GUID
	}
	return i.GUID + "." + ext
}
