package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	goerrors "github.com/go-errors/errors"

	"github.com/nao1215/sigscan/internal/model"
)

// Export writes the inline binary of item to dest. Failures carry the stack
// of the failure site.
func (c *Catalog) Export(ctx context.Context, item model.Item, dest string) error {
	var content []byte
	err := c.db.QueryRowContext(ctx, `SELECT content FROM blobs WHERE guid = ?`, item.GUID).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return goerrors.Wrap(fmt.Errorf("%w: %s", ErrNoBinary, item.GUID), 0)
	}
	if err != nil {
		return goerrors.Wrap(fmt.Errorf("failed to read binary: %w", err), 0)
	}

	if err := os.WriteFile(dest, content, 0600); err != nil {
		return goerrors.Wrap(fmt.Errorf("failed to write artifact: %w", err), 0)
	}
	return nil
}
