package ftsload

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Stats counts what one run did.
type Stats struct {
	RunID        string
	StartedAt    time.Time
	Duration     time.Duration
	YearsLoaded  int
	YearsSkipped int
	RowsLoaded   int64
	RowsSkipped  int64
	Batches      int
}

// Pipeline runs the full load: ensure the destination schema once, then
// fetch, normalize and load each year's dataset in sequence.
type Pipeline struct {
	db     *sql.DB
	schema *Schema

	fetch     fetcher
	open      func(io.Reader) (Workbook, error)
	ensure    func(context.Context) error
	newLoader func(*Projection) recordLoader
	notifier  Notifier

	batchSize     int
	startYear     int
	endYear       int
	baseURL       string
	logLevel      string
	prettyLogging bool
}

// New builds a Pipeline against the given database connection.
func New(db *sql.DB, opts ...Option) (*Pipeline, error) {
	schema, err := LoadSchema()
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		db:        db,
		schema:    schema,
		fetch:     newHTTPFetcher(nil),
		open:      OpenWorkbook,
		batchSize: DefaultBatchSize,
		startYear: FirstYear,
		endYear:   time.Now().Year(),
		baseURL:   defaultBaseURL,
		logLevel:  "info",
	}
	p.ensure = func(ctx context.Context) error {
		return EnsureSchema(ctx, p.db, p.schema)
	}
	p.newLoader = func(proj *Projection) recordLoader {
		return newPostgresLoader(p.db, p.schema.Table, proj, p.batchSize)
	}

	for _, o := range opts {
		if err := o.apply(p); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// Run processes every year in range. Fetch failures and bad rows are
// logged and skipped; schema and batch-commit failures abort the run.
func (p *Pipeline) Run(ctx context.Context) (*Stats, error) {
	stats := &Stats{RunID: uuid.NewString(), StartedAt: time.Now()}

	logger := p.logger(stats.RunID)
	ctx = logger.WithContext(ctx)
	ctx = withStartedTime(ctx)

	err := p.run(ctx, stats)

	if t, ok := startedTimeFrom(ctx); ok {
		stats.Duration = time.Since(t)
	}
	p.notify(ctx, &Result{Stats: stats, Error: err})

	return stats, err
}

func (p *Pipeline) run(ctx context.Context, stats *Stats) error {
	l := zerolog.Ctx(ctx)

	if err := p.ensure(ctx); err != nil {
		return err
	}

	for _, ref := range yearsWithBase(p.baseURL, p.startYear, p.endYear) {
		if err := p.runYear(ctx, ref, stats); err != nil {
			var fe *FetchError
			if errors.As(err, &fe) {
				l.Warn().Int("year", ref.Year).Err(err).Msg("year skipped")
				stats.YearsSkipped++
				continue
			}
			return err
		}
		stats.YearsLoaded++
	}

	l.Info().
		Int("years", stats.YearsLoaded).
		Int("years_skipped", stats.YearsSkipped).
		Int64("rows", stats.RowsLoaded).
		Int64("rows_skipped", stats.RowsSkipped).
		Int("batches", stats.Batches).
		Msg("run finished")

	return nil
}

func (p *Pipeline) runYear(ctx context.Context, ref DatasetReference, stats *Stats) error {
	l := zerolog.Ctx(ctx).With().Int("year", ref.Year).Logger()
	ctx = l.WithContext(ctx)

	l.Info().Str("url", ref.URL).Msg("processing year")

	r, closer, err := p.fetch.fetch(ctx, ref)
	if err != nil {
		return err
	}
	defer closer()

	wb, err := p.open(r)
	if err != nil {
		// An unreadable workbook is a dataset-level failure.
		return &FetchError{Year: ref.Year, Err: err}
	}
	defer wb.Close()

	proj, err := p.schema.Project(wb.Header())
	if err != nil {
		return &FetchError{Year: ref.Year, Err: err}
	}
	l.Debug().Int("columns", len(proj.Columns)).Msg("header projected")

	loader := p.newLoader(proj)

	for i := 1; wb.Next(); i++ {
		row, err := wb.Row()
		if err != nil {
			verr := &ValidationError{Row: i, Err: err}
			l.Warn().Err(verr).Msg("row skipped")
			stats.RowsSkipped++
			continue
		}
		if row == nil {
			continue
		}

		rec, err := Normalize(proj, row)
		if err != nil {
			verr := &ValidationError{Row: i, Err: err}
			l.Warn().Err(verr).Msg("row skipped")
			stats.RowsSkipped++
			continue
		}

		if err := loader.Add(ctx, rec); err != nil {
			return err
		}
	}

	if err := loader.Flush(ctx); err != nil {
		return err
	}

	stats.RowsLoaded += loader.Loaded()
	stats.Batches += loader.Batches()

	l.Info().Int64("rows", loader.Loaded()).Int("batches", loader.Batches()).Msg("year loaded")

	return nil
}

func (p *Pipeline) notify(ctx context.Context, r *Result) {
	if p.notifier == nil {
		return
	}
	// Notification failures never affect the run's outcome.
	if err := p.notifier.Notify(ctx, r); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to notify")
	}
}

func (p *Pipeline) logger(runID string) zerolog.Logger {
	var w io.Writer = os.Stderr
	if p.prettyLogging {
		w = zerolog.ConsoleWriter{Out: os.Stderr}
	}

	level, err := zerolog.ParseLevel(p.logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	return zerolog.New(w).Level(level).With().Timestamp().Str("run_id", runID).Logger()
}
