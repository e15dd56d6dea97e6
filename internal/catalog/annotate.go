package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nao1215/sigscan/internal/model"
)

// AddTag attaches label to item. Adding an existing tag is a no-op.
func (c *Catalog) AddTag(ctx context.Context, item model.Item, label string) error {
	query := `INSERT OR IGNORE INTO tags (guid, label) VALUES (?, ?)`
	if _, err := c.db.ExecContext(ctx, query, item.GUID, label); err != nil {
		return fmt.Errorf("failed to add tag: %w", err)
	}
	return nil
}

// CustomField returns the value of field on item and whether it is set.
func (c *Catalog) CustomField(ctx context.Context, item model.Item, field string) (string, bool, error) {
	query := `SELECT value FROM custom_metadata WHERE guid = ? AND field = ?`

	var value string
	err := c.db.QueryRowContext(ctx, query, item.GUID, field).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read custom field: %w", err)
	}
	return value, true, nil
}

// SetCustomField sets field on item to value, replacing any previous value.
func (c *Catalog) SetCustomField(ctx context.Context, item model.Item, field, value string) error {
	query := `
	INSERT INTO custom_metadata (guid, field, value) VALUES (?, ?, ?)
	ON CONFLICT(guid, field) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`
	if _, err := c.db.ExecContext(ctx, query, item.GUID, field, value); err != nil {
		return fmt.Errorf("failed to set custom field: %w", err)
	}
	return nil
}

// ItemTags returns the tags of guid in label order.
func (c *Catalog) ItemTags(ctx context.Context, guid string) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT label FROM tags WHERE guid = ? ORDER BY label`, guid)
	if err != nil {
		return nil, fmt.Errorf("failed to query tags: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, label)
	}
	return tags, rows.Err()
}

// Field is one custom metadata entry.
type Field struct {
	Name  string
	Value string
}

// ItemFields returns the custom metadata of guid in field order.
func (c *Catalog) ItemFields(ctx context.Context, guid string) ([]Field, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT field, value FROM custom_metadata WHERE guid = ? ORDER BY field`, guid)
	if err != nil {
		return nil, fmt.Errorf("failed to query custom metadata: %w", err)
	}
	defer rows.Close()

	var fields []Field
	for rows.Next() {
		var f Field
		if err := rows.Scan(&f.Name, &f.Value); err != nil {
			return nil, fmt.Errorf("failed to scan custom metadata: %w", err)
		}
		fields = append(fields, f)
	}
	return fields, rows.Err()
}
