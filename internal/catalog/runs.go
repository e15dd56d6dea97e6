package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nao1215/sigscan/internal/model"
)

// SaveRun stores a finished run together with its matches.
func (c *Catalog) SaveRun(ctx context.Context, run model.RunRecord, matches []model.MatchedItem) error {
	rulesJSON, err := json.Marshal(run.Rules)
	if err != nil {
		return fmt.Errorf("failed to serialize rules: %w", err)
	}
	summaryJSON, err := json.Marshal(run.Summary)
	if err != nil {
		return fmt.Errorf("failed to serialize summary: %w", err)
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	query := `
	INSERT INTO runs (id, started_at, finished_at, concurrency, rules, summary_json)
	VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err = tx.ExecContext(ctx, query,
		run.ID,
		formatTimestamp(run.StartedAt),
		formatTimestamp(run.FinishedAt),
		run.Concurrency,
		string(rulesJSON),
		string(summaryJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	for _, m := range matches {
		for _, rule := range m.Rules {
			_, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO run_matches (run_id, guid, rule) VALUES (?, ?, ?)`,
				run.ID, m.Item.GUID, rule,
			)
			if err != nil {
				return fmt.Errorf("failed to save match: %w", err)
			}
		}
	}

	return tx.Commit()
}

// ListRuns returns every stored run, most recent first.
func (c *Catalog) ListRuns(ctx context.Context) ([]model.RunRecord, error) {
	query := `
	SELECT id, started_at, finished_at, concurrency, rules, summary_json
	FROM runs
	ORDER BY started_at DESC
	`

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []model.RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun returns the run with id, or ErrRunNotFound.
func (c *Catalog) GetRun(ctx context.Context, id string) (model.RunRecord, error) {
	query := `
	SELECT id, started_at, finished_at, concurrency, rules, summary_json
	FROM runs
	WHERE id = ?
	`
	run, err := scanRun(c.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.RunRecord{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, err
}

// RunMatches returns the matched items of a run in import order.
func (c *Catalog) RunMatches(ctx context.Context, runID string) ([]model.MatchedItem, error) {
	query := `
	SELECT ` + prefixed("i.", itemColumns) + `, m.rule
	FROM run_matches m
	JOIN items i ON i.guid = m.guid
	WHERE m.run_id = ?
	ORDER BY i.seq, m.rule
	`

	rows, err := c.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run matches: %w", err)
	}
	defer rows.Close()

	var matches []model.MatchedItem
	for rows.Next() {
		var rule string
		item, err := scanItem(scannerFunc(func(dest ...any) error {
			return rows.Scan(append(dest, &rule)...)
		}))
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}

		if n := len(matches); n > 0 && matches[n-1].Item.GUID == item.GUID {
			matches[n-1].Rules = append(matches[n-1].Rules, rule)
			continue
		}
		matches = append(matches, model.MatchedItem{Item: item, Rules: []string{rule}})
	}
	return matches, rows.Err()
}

// scannerFunc adapts a function to rowScanner.
type scannerFunc func(dest ...any) error

func (f scannerFunc) Scan(dest ...any) error { return f(dest...) }

func scanRun(row rowScanner) (model.RunRecord, error) {
	var (
		run         model.RunRecord
		startedAt   string
		finishedAt  string
		rulesJSON   string
		summaryJSON string
	)
	if err := row.Scan(&run.ID, &startedAt, &finishedAt, &run.Concurrency, &rulesJSON, &summaryJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.RunRecord{}, err
		}
		return model.RunRecord{}, fmt.Errorf("failed to scan run: %w", err)
	}

	run.StartedAt = parseTimestamp(startedAt)
	run.FinishedAt = parseTimestamp(finishedAt)
	if err := json.Unmarshal([]byte(rulesJSON), &run.Rules); err != nil {
		return model.RunRecord{}, fmt.Errorf("failed to parse rules of run %s: %w", run.ID, err)
	}
	if err := json.Unmarshal([]byte(summaryJSON), &run.Summary); err != nil {
		return model.RunRecord{}, fmt.Errorf("failed to parse summary of run %s: %w", run.ID, err)
	}
	return run, nil
}
