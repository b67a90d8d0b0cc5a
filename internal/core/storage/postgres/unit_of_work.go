package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	v1 "github.com/aevon-lab/projection-daemon/internal/api/v1"
	"github.com/aevon-lab/projection-daemon/internal/core/storage"
)

const tombstoneWriteTimeout = 5 * time.Second

// unitOfWork is one read-committed transaction. Rollback (or a failed Commit)
// tombstones every sequence number an append inside it reserved.
type unitOfWork struct {
	adapter  *Adapter
	tx       *sql.Tx
	ctx      context.Context
	reserved []int64
	done     bool
}

// Begin opens a unit of work.
func (a *Adapter) Begin(ctx context.Context) (storage.UnitOfWork, error) {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin unit of work: %w", err)
	}
	return &unitOfWork{adapter: a, tx: tx, ctx: ctx}, nil
}

func (u *unitOfWork) AppendEvents(ctx context.Context, streamID string, opts storage.AppendOptions, events []*v1.Event) ([]*v1.Event, error) {
	appended, reserved, err := appendEvents(ctx, u.tx, streamID, opts, events)
	u.reserved = append(u.reserved, reserved...)
	return appended, err
}

func (u *unitOfWork) LoadDocument(ctx context.Context, projection, id string) (storage.Document, error) {
	return loadDocument(ctx, u.tx, projection, id)
}

func (u *unitOfWork) UpsertDocument(ctx context.Context, doc storage.Document) error {
	return upsertDocument(ctx, u.tx, doc)
}

func (u *unitOfWork) DeleteDocument(ctx context.Context, projection, id string) error {
	return deleteDocument(ctx, u.tx, projection, id)
}

func (u *unitOfWork) InsertProgress(ctx context.Context, shard string, sequence int64) error {
	return insertProgress(ctx, u.tx, shard, sequence)
}

func (u *unitOfWork) UpdateProgress(ctx context.Context, shard string, expectedPrior, sequence int64) error {
	return updateProgress(ctx, u.tx, shard, expectedPrior, sequence)
}

func (u *unitOfWork) Commit() error {
	if u.done {
		return sql.ErrTxDone
	}
	u.done = true

	if err := u.tx.Commit(); err != nil {
		u.tombstone()
		return fmt.Errorf("commit unit of work: %w", err)
	}
	return nil
}

// Rollback aborts the transaction. Calling it after Commit is a no-op.
func (u *unitOfWork) Rollback() error {
	if u.done {
		return nil
	}
	u.done = true

	err := u.tx.Rollback()
	u.tombstone()
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback unit of work: %w", err)
	}
	return nil
}

func (u *unitOfWork) tombstone() {
	if len(u.reserved) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(u.ctx), tombstoneWriteTimeout)
	defer cancel()

	if err := u.adapter.writeTombstones(ctx, u.reserved); err != nil {
		// The safe-harbor skip closes the gap eventually.
		slog.Warn("[Postgres] Failed to tombstone reserved sequences",
			"database", u.adapter.identifier,
			"count", len(u.reserved),
			"error", err)
	}
	u.reserved = nil
}
