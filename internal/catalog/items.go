package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/nao1215/sigscan/internal/model"
)

const itemColumns = `guid, parent_guid, name, path_names, kind, mime_type, md5, audited_size, extension, has_binary`

// InsertItem adds item to the catalog. When content is non-nil it is stored
// inline as the item binary.
func (c *Catalog) InsertItem(ctx context.Context, item model.Item, content []byte) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if err := insertItem(ctx, tx, item, content); err != nil {
		return err
	}
	return tx.Commit()
}

func insertItem(ctx context.Context, tx *sql.Tx, item model.Item, content []byte) error {
	pathNames, err := json.Marshal(item.PathNames)
	if err != nil {
		return fmt.Errorf("failed to serialize path: %w", err)
	}

	query := `
	INSERT INTO items (guid, parent_guid, name, path, path_names, kind, mime_type, md5, audited_size, extension, has_binary)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = tx.ExecContext(ctx, query,
		item.GUID,
		nullString(item.ParentGUID),
		item.Name,
		item.Path(),
		string(pathNames),
		item.Kind,
		item.MimeType,
		item.MD5,
		item.AuditedSize,
		item.Extension,
		item.HasBinary,
	)
	if err != nil {
		return fmt.Errorf("failed to insert item %s: %w", item.GUID, err)
	}

	if content != nil {
		if _, err := tx.ExecContext(ctx, `INSERT INTO blobs (guid, content) VALUES (?, ?)`, item.GUID, content); err != nil {
			return fmt.Errorf("failed to store binary of %s: %w", item.GUID, err)
		}
	}
	return nil
}

// GetItem returns the item with guid, or ErrItemNotFound.
func (c *Catalog) GetItem(ctx context.Context, guid string) (model.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE guid = ?`

	item, err := scanItem(c.db.QueryRowContext(ctx, query, guid))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Item{}, fmt.Errorf("%w: %s", ErrItemNotFound, guid)
	}
	if err != nil {
		return model.Item{}, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

// ListItems returns every item in import order.
func (c *Catalog) ListItems(ctx context.Context) ([]model.Item, error) {
	return c.queryItems(ctx, `SELECT `+itemColumns+` FROM items ORDER BY seq`)
}

// ItemsUnderPath returns the items whose path equals prefix or lies below
// it, in import order.
func (c *Catalog) ItemsUnderPath(ctx context.Context, prefix string) ([]model.Item, error) {
	prefix = strings.TrimSuffix(prefix, "/")
	// substr and length count characters, so the prefix length is measured
	// by SQLite rather than in bytes.
	query := `SELECT ` + itemColumns + ` FROM items
	WHERE path = ? OR substr(path, 1, length(?)) = ?
	ORDER BY seq`
	return c.queryItems(ctx, query, prefix, prefix+"/", prefix+"/")
}

// Descendants returns every item below guid, in import order.
func (c *Catalog) Descendants(ctx context.Context, guid string) ([]model.Item, error) {
	query := `
	WITH RECURSIVE tree(guid) AS (
		SELECT guid FROM items WHERE parent_guid = ?
		UNION
		SELECT items.guid FROM items JOIN tree ON items.parent_guid = tree.guid
	)
	SELECT ` + itemColumns + ` FROM items
	WHERE guid IN (SELECT guid FROM tree)
	ORDER BY seq`
	return c.queryItems(ctx, query, guid)
}

// CountItems returns the number of items and of items with a binary.
func (c *Catalog) CountItems(ctx context.Context) (total, withBinary int, err error) {
	query := `SELECT COUNT(*), COALESCE(SUM(has_binary), 0) FROM items`
	if err := c.db.QueryRowContext(ctx, query).Scan(&total, &withBinary); err != nil {
		return 0, 0, fmt.Errorf("failed to count items: %w", err)
	}
	return total, withBinary, nil
}

func (c *Catalog) queryItems(ctx context.Context, query string, args ...any) ([]model.Item, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (model.Item, error) {
	var (
		item      model.Item
		parent    sql.NullString
		pathNames string
		kind      sql.NullString
		mimeType  sql.NullString
		md5       sql.NullString
		extension sql.NullString
	)
	err := row.Scan(
		&item.GUID,
		&parent,
		&item.Name,
		&pathNames,
		&kind,
		&mimeType,
		&md5,
		&item.AuditedSize,
		&extension,
		&item.HasBinary,
	)
	if err != nil {
		return model.Item{}, err
	}

	item.ParentGUID = parent.String
	item.Kind = kind.String
	item.MimeType = mimeType.String
	item.MD5 = md5.String
	item.Extension = extension.String
	if err := json.Unmarshal([]byte(pathNames), &item.PathNames); err != nil {
		return model.Item{}, fmt.Errorf("failed to parse path of %s: %w", item.GUID, err)
	}
	return item, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// prefixed qualifies every column of a comma separated list.
func prefixed(prefix, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = prefix + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
