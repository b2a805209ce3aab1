package ftsload

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"golang.org/x/xerrors"
)

// DefaultBatchSize is the number of records committed per transaction.
const DefaultBatchSize = 5000

// LoadError reports that a batch failed to commit. Fatal for the run;
// batches committed before it stay in the table.
type LoadError struct {
	Batch int
	Err   error
}

func (e *LoadError) Error() string { return fmt.Sprintf("load batch %d: %v", e.Batch, e.Err) }
func (e *LoadError) Unwrap() error { return e.Err }

// recordLoader accumulates normalized records and commits them in
// fixed-size batches.
type recordLoader interface {
	Add(context.Context, Record) error
	Flush(context.Context) error
	Loaded() int64
	Batches() int
}

type batchLoader struct {
	batchSize int
	commit    func(context.Context, []Record) error

	buf     []Record
	loaded  int64
	batches int
}

func newBatchLoader(batchSize int, commit func(context.Context, []Record) error) *batchLoader {
	return &batchLoader{
		batchSize: batchSize,
		commit:    commit,
		buf:       make([]Record, 0, batchSize),
	}
}

// Add buffers one record and commits the buffer once it is full.
func (l *batchLoader) Add(ctx context.Context, rec Record) error {
	l.buf = append(l.buf, rec)
	if len(l.buf) >= l.batchSize {
		return l.flush(ctx)
	}
	return nil
}

// Flush commits the partial tail batch, if any.
func (l *batchLoader) Flush(ctx context.Context) error {
	if len(l.buf) == 0 {
		return nil
	}
	return l.flush(ctx)
}

func (l *batchLoader) flush(ctx context.Context) error {
	n := len(l.buf)
	if err := l.commit(ctx, l.buf); err != nil {
		return &LoadError{Batch: l.batches + 1, Err: err}
	}

	l.batches++
	l.loaded += int64(n)
	l.buf = l.buf[:0]

	log.Ctx(ctx).Info().Int("batch", l.batches).Int("rows", n).Msg("batch committed")

	return nil
}

func (l *batchLoader) Loaded() int64 { return l.loaded }
func (l *batchLoader) Batches() int  { return l.batches }

// newPostgresLoader builds a loader committing each batch as one
// transaction through the COPY protocol.
func newPostgresLoader(db *sql.DB, table string, proj *Projection, batchSize int) *batchLoader {
	cols := proj.columnNames()

	return newBatchLoader(batchSize, func(ctx context.Context, recs []Record) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return xerrors.Errorf("failed to begin transaction: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, pq.CopyIn(table, cols...))
		if err != nil {
			tx.Rollback()
			return xerrors.Errorf("failed to prepare copy: %w", err)
		}

		for _, rec := range recs {
			if _, err := stmt.ExecContext(ctx, rec...); err != nil {
				stmt.Close()
				tx.Rollback()
				return xerrors.Errorf("failed to buffer record: %w", err)
			}
		}

		if _, err := stmt.ExecContext(ctx); err != nil {
			stmt.Close()
			tx.Rollback()
			return xerrors.Errorf("failed to run copy: %w", err)
		}
		if err := stmt.Close(); err != nil {
			tx.Rollback()
			return xerrors.Errorf("failed to close copy: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return xerrors.Errorf("failed to commit batch: %w", err)
		}

		return nil
	})
}
