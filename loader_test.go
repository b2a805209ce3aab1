package ftsload

import (
	"context"
	"errors"
	"testing"
)

func TestBatchLoader_batchingLaw(t *testing.T) {
	tests := []struct {
		name        string
		records     int
		batchSize   int
		wantBatches int
	}{
		{"empty stream", 0, 5, 0},
		{"single partial batch", 3, 5, 1},
		{"exactly one batch", 5, 5, 1},
		{"full batches plus tail", 12, 5, 3},
		{"exact multiple", 10, 5, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var committed [][]Record
			l := newBatchLoader(tt.batchSize, func(_ context.Context, recs []Record) error {
				batch := make([]Record, len(recs))
				copy(batch, recs)
				committed = append(committed, batch)
				return nil
			})

			ctx := context.Background()
			for i := 0; i < tt.records; i++ {
				if err := l.Add(ctx, Record{int64(i)}); err != nil {
					t.Fatal(err)
				}
			}
			if err := l.Flush(ctx); err != nil {
				t.Fatal(err)
			}

			if len(committed) != tt.wantBatches {
				t.Errorf("expected %d commits, got %d", tt.wantBatches, len(committed))
			}
			if l.Batches() != tt.wantBatches {
				t.Errorf("Batches() should be %d, but %d", tt.wantBatches, l.Batches())
			}

			var total int
			for _, b := range committed {
				if len(b) > tt.batchSize {
					t.Errorf("batch of %d exceeds batch size %d", len(b), tt.batchSize)
				}
				total += len(b)
			}
			if total != tt.records {
				t.Errorf("committed %d rows in total, expected %d", total, tt.records)
			}
			if l.Loaded() != int64(tt.records) {
				t.Errorf("Loaded() should be %d, but %d", tt.records, l.Loaded())
			}
		})
	}
}

func TestBatchLoader_flushIsIdempotentWhenEmpty(t *testing.T) {
	commits := 0
	l := newBatchLoader(5, func(context.Context, []Record) error {
		commits++
		return nil
	})

	ctx := context.Background()
	if err := l.Flush(ctx); err != nil {
		t.Fatal(err)
	}
	if err := l.Flush(ctx); err != nil {
		t.Fatal(err)
	}

	if commits != 0 {
		t.Errorf("expected no commits for an empty buffer, got %d", commits)
	}
}

func TestBatchLoader_commitFailure(t *testing.T) {
	boom := errors.New("connection lost")
	l := newBatchLoader(2, func(context.Context, []Record) error {
		return boom
	})

	ctx := context.Background()
	if err := l.Add(ctx, Record{1}); err != nil {
		t.Fatal(err)
	}

	err := l.Add(ctx, Record{2})
	if err == nil {
		t.Fatal("expected error")
	}

	var le *LoadError
	if !errors.As(err, &le) {
		t.Fatalf("expected *LoadError, got %T", err)
	}
	if le.Batch != 1 {
		t.Errorf("failed batch should be 1, but %d", le.Batch)
	}
	if !errors.Is(err, boom) {
		t.Error("LoadError should wrap the underlying cause")
	}

	if l.Loaded() != 0 {
		t.Errorf("no rows should count as loaded after a failed commit, got %d", l.Loaded())
	}
}
