package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aevon-lab/projection-daemon/internal/core/storage"
)

// LastContiguousSequence returns the end of the gap-free run starting after start.
// A zero notAfter disables the commit-time cutoff.
func (a *Adapter) LastContiguousSequence(ctx context.Context, start int64, notAfter time.Time) (int64, error) {
	cutoff := sql.NullTime{Time: notAfter, Valid: !notAfter.IsZero()}

	var mark int64
	if err := a.db.QueryRowContext(ctx, queryLastContiguousSequence, start, cutoff).Scan(&mark); err != nil {
		return 0, fmt.Errorf("failed to scan contiguous sequences: %w", err)
	}
	return mark, nil
}

// NextEventAfter returns the first persisted sequence above mark.
func (a *Adapter) NextEventAfter(ctx context.Context, mark int64) (int64, time.Time, bool, error) {
	var seq int64
	var at time.Time
	err := a.db.QueryRowContext(ctx, queryNextEventAfter, mark).Scan(&seq, &at)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, time.Time{}, false, nil
	}
	if err != nil {
		return 0, time.Time{}, false, fmt.Errorf("failed to read next event after %d: %w", mark, err)
	}
	return seq, at, true, nil
}

// LoadHighWaterMark reads the persisted mark, 0 when none was ever saved.
func (a *Adapter) LoadHighWaterMark(ctx context.Context) (int64, error) {
	return a.ProgressFor(ctx, storage.HighWaterMarkName)
}

// SaveHighWaterMark persists mark; a lower value than the stored one is ignored.
func (a *Adapter) SaveHighWaterMark(ctx context.Context, mark int64) error {
	if _, err := a.db.ExecContext(ctx, querySaveHighWaterMark, storage.HighWaterMarkName, mark); err != nil {
		return fmt.Errorf("failed to save high water mark: %w", err)
	}
	return nil
}

// Now reads the database clock that stamps event timestamps.
func (a *Adapter) Now(ctx context.Context) (time.Time, error) {
	var now time.Time
	if err := a.db.QueryRowContext(ctx, queryStoreNow).Scan(&now); err != nil {
		return time.Time{}, fmt.Errorf("failed to read database clock: %w", err)
	}
	return now, nil
}
