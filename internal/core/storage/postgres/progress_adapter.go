package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aevon-lab/projection-daemon/internal/core/storage"
)

// InsertProgress creates a shard's progression row.
func (a *Adapter) InsertProgress(ctx context.Context, shard string, sequence int64) error {
	return insertProgress(ctx, a.db, shard, sequence)
}

// UpdateProgress advances a shard's progression row under the optimistic guard.
func (a *Adapter) UpdateProgress(ctx context.Context, shard string, expectedPrior, sequence int64) error {
	return updateProgress(ctx, a.db, shard, expectedPrior, sequence)
}

// ProgressFor returns the shard's last applied sequence, 0 for a shard that never ran.
func (a *Adapter) ProgressFor(ctx context.Context, shard string) (int64, error) {
	var seq int64
	err := a.stmtProgressSeqFor.QueryRowContext(ctx, shard).Scan(&seq)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read progress for %q: %w", shard, err)
	}
	return seq, nil
}

// FindProgress returns the shard's full progression row.
func (a *Adapter) FindProgress(ctx context.Context, shard string) (storage.ProjectionProgress, error) {
	progress, err := scanProgressRow(a.db.QueryRowContext(ctx, querySelectProgress, shard), a.identifier)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ProjectionProgress{}, fmt.Errorf("progress for %q: %w", shard, storage.ErrNotFound)
	}
	if err != nil {
		return storage.ProjectionProgress{}, fmt.Errorf("failed to read progress for %q: %w", shard, err)
	}
	return progress, nil
}

// AllProgress lists every progression row, the high-water mark included.
func (a *Adapter) AllProgress(ctx context.Context) ([]storage.ProjectionProgress, error) {
	rows, err := a.db.QueryContext(ctx, querySelectAllProgress)
	if err != nil {
		return nil, fmt.Errorf("failed to query progress: %w", err)
	}
	defer rows.Close()

	var all []storage.ProjectionProgress
	for rows.Next() {
		progress, err := scanProgressRow(rows, a.identifier)
		if err != nil {
			return nil, fmt.Errorf("failed to scan progress row: %w", err)
		}
		all = append(all, progress)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating progress: %w", err)
	}
	return all, nil
}

// DeleteProgress removes a shard's progression row.
func (a *Adapter) DeleteProgress(ctx context.Context, shard string) error {
	if _, err := a.db.ExecContext(ctx, queryDeleteProgress, shard); err != nil {
		return fmt.Errorf("failed to delete progress for %q: %w", shard, err)
	}
	return nil
}

func insertProgress(ctx context.Context, q execer, shard string, sequence int64) error {
	if _, err := q.ExecContext(ctx, queryInsertProgress, shard, sequence); err != nil {
		if storage.IsUniqueViolation(err) {
			return fmt.Errorf("shard %q: %w", shard, storage.ErrProgressExists)
		}
		return fmt.Errorf("failed to insert progress for %q: %w", shard, err)
	}
	return nil
}

func updateProgress(ctx context.Context, q execer, shard string, expectedPrior, sequence int64) error {
	result, err := q.ExecContext(ctx, queryUpdateProgress, shard, expectedPrior, sequence)
	if err != nil {
		return fmt.Errorf("failed to update progress for %q: %w", shard, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read progress update result: %w", err)
	}
	if rows == 1 {
		return nil
	}

	conflict := &storage.ProgressionOutOfOrderError{
		Shard:     shard,
		Expected:  expectedPrior,
		Attempted: sequence,
	}
	err = q.QueryRowContext(ctx, querySelectProgressSequence, shard).Scan(&conflict.Actual)
	switch {
	case err == nil:
		conflict.Found = true
	case errors.Is(err, sql.ErrNoRows):
	default:
		return fmt.Errorf("progress update for %q rejected, reading actual value: %w", shard, err)
	}
	return conflict
}
