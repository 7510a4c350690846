package scan

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/teemow/gmailurl/internal/correct"
	"github.com/teemow/gmailurl/internal/instrumentation"
	"github.com/teemow/gmailurl/internal/logging"
	"github.com/teemow/gmailurl/internal/pattern"
	"github.com/teemow/gmailurl/internal/record"
	"github.com/teemow/gmailurl/internal/timestamp"
)

// DefaultBatchSize is the number of matches built per parallel batch, per worker.
const DefaultBatchSize = 256

// EmitFunc receives records in input order. Returning an error stops the scan.
type EmitFunc func(*record.Record) error

// Recorder receives scan metrics. *instrumentation.Metrics implements it.
type Recorder interface {
	record.Observer
	RecordMatch(ctx context.Context, source, mode string)
	RecordRecord(ctx context.Context, source string)
	RecordScan(ctx context.Context, source, status string, duration time.Duration)
}

// Options configures a Scanner.
type Options struct {
	// Mode selects the grammar. Defaults to pattern.ModeBoth.
	Mode pattern.Mode

	// Correct configures raw-data token correction.
	Correct correct.Options

	// Timebase is the counter tick rate. Zero selects timestamp.DefaultTimebase.
	Timebase uint64

	// Workers is the number of concurrent record builders. Values below 2
	// build sequentially.
	Workers int

	// BatchSize overrides DefaultBatchSize.
	BatchSize int

	// Recorder receives metrics. Defaults to a no-op recorder.
	Recorder Recorder

	// Logger receives progress logs. Defaults to a discarding logger.
	Logger logging.Logger

	// RunID and Input tag the scan span.
	RunID string
	Input string
}

// Stats summarizes a finished scan.
type Stats struct {
	Matches  int
	Records  int
	Duration time.Duration
}

// Scanner runs scans. It is safe for concurrent use.
type Scanner struct {
	matcher   *pattern.Matcher
	builders  map[record.Source]*record.Builder
	workers   int
	batchSize int
	recorder  Recorder
	logger    logging.Logger
	timebase  uint64
	runID     string
	input     string
}

// New returns a Scanner for opts.
func New(opts Options) (*Scanner, error) {
	matcher, err := pattern.New(opts.Mode)
	if err != nil {
		return nil, fmt.Errorf("compile grammar: %w", err)
	}

	s := &Scanner{
		matcher:   matcher,
		workers:   opts.Workers,
		batchSize: opts.BatchSize,
		recorder:  opts.Recorder,
		logger:    opts.Logger,
		runID:     opts.RunID,
		input:     opts.Input,
	}
	if s.workers < 1 {
		s.workers = 1
	}
	if s.batchSize < 1 {
		s.batchSize = DefaultBatchSize
	}
	if s.recorder == nil {
		s.recorder = &instrumentation.Metrics{}
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}

	corrector := correct.New(opts.Correct)
	timestamps := timestamp.New(opts.Timebase)
	s.timebase = timestamps.Timebase()
	s.builders = make(map[record.Source]*record.Builder, 2)
	for _, src := range []record.Source{record.SourceText, record.SourceRaw} {
		s.builders[src] = record.NewBuilder(record.Options{
			Source:     src,
			Corrector:  corrector,
			Decoder:    opts.Correct.Decoder,
			Timestamps: timestamps,
			Observer:   s.recorder,
			Logger:     s.logger,
		})
	}
	return s, nil
}

// Mode returns the grammar mode.
func (s *Scanner) Mode() pattern.Mode {
	return s.matcher.Mode()
}

// Text scans r one line at a time. Line terminators and carriage returns are
// removed before matching; each line matches at most once, at its start.
func (s *Scanner) Text(ctx context.Context, r io.Reader, emit EmitFunc) (Stats, error) {
	return s.run(ctx, record.SourceText, emit, func(ctx context.Context, fn func(*pattern.Match) error) error {
		br := bufio.NewReaderSize(r, 64*1024)
		for lineNo := 1; ; lineNo++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			line, err := br.ReadString('\n')
			if len(line) > 0 {
				line = strings.ReplaceAll(strings.TrimSuffix(line, "\n"), "\r", "")
				if m, ok := s.matcher.MatchLine(line); ok {
					m.Line = lineNo
					if ferr := fn(m); ferr != nil {
						return ferr
					}
				}
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("read line %d: %w", lineNo, err)
			}
		}
	})
}

// Raw scans data for every URL, left to right.
func (s *Scanner) Raw(ctx context.Context, data []byte, emit EmitFunc) (Stats, error) {
	return s.run(ctx, record.SourceRaw, emit, func(ctx context.Context, fn func(*pattern.Match) error) error {
		return s.matcher.ForeachMatch(ctx, data, fn)
	})
}

type producer func(ctx context.Context, fn func(*pattern.Match) error) error

func (s *Scanner) run(ctx context.Context, src record.Source, emit EmitFunc, produce producer) (stats Stats, err error) {
	start := time.Now()
	mode := string(s.matcher.Mode())

	ctx, span := instrumentation.StartScanSpan(ctx, string(src), instrumentation.NewSpanAttributeBuilder().
		WithMode(mode).
		WithInput(s.input).
		WithRunID(s.runID).
		WithWorkers(s.workers).
		Build()...)
	defer span.End()

	startArgs := []any{
		logging.Source(string(src)),
		logging.Mode(mode),
		logging.Input(s.input),
		"workers", s.workers,
		"timebase", s.timebase,
	}
	if traceID := instrumentation.GetTraceID(ctx); traceID != "" {
		startArgs = append(startArgs, logging.TraceID(traceID))
	}
	s.logger.Debug("scan started", startArgs...)

	defer func() {
		stats.Duration = time.Since(start)
		status := instrumentation.StatusSuccess
		if err != nil {
			status = instrumentation.StatusError
			instrumentation.SetSpanError(span, err)
		} else {
			instrumentation.SetSpanSuccess(span)
		}
		instrumentation.SetScanResult(span, stats.Matches, stats.Records)
		s.recorder.RecordScan(ctx, string(src), status, stats.Duration)
		s.logger.Debug("scan finished",
			logging.Source(string(src)),
			logging.Status(status),
			"matches", stats.Matches,
			"records", stats.Records,
			logging.KeyDuration, stats.Duration,
			logging.Err(err))
	}()

	builder := s.builders[src]
	deliver := func(rec *record.Record) error {
		if err := emit(rec); err != nil {
			return fmt.Errorf("emit record: %w", err)
		}
		stats.Records++
		s.recorder.RecordRecord(ctx, string(src))
		return nil
	}
	onMatch := func() {
		stats.Matches++
		s.recorder.RecordMatch(ctx, string(src), mode)
	}

	if s.workers == 1 {
		err = produce(ctx, func(m *pattern.Match) error {
			onMatch()
			rec, err := builder.Build(ctx, m)
			if err != nil {
				return fmt.Errorf("build record at %s: %w", position(m), err)
			}
			return deliver(rec)
		})
		return stats, err
	}

	batch := make([]*pattern.Match, 0, s.batchSize*s.workers)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		recs, err := s.buildBatch(ctx, builder, batch)
		batch = batch[:0]
		if err != nil {
			return err
		}
		for _, rec := range recs {
			if err := deliver(rec); err != nil {
				return err
			}
		}
		return nil
	}

	err = produce(ctx, func(m *pattern.Match) error {
		onMatch()
		batch = append(batch, m)
		if len(batch) == cap(batch) {
			return flush()
		}
		return nil
	})
	if err == nil {
		err = flush()
	}
	return stats, err
}

// buildBatch builds matches concurrently; the result keeps the input order.
func (s *Scanner) buildBatch(ctx context.Context, builder *record.Builder, batch []*pattern.Match) ([]*record.Record, error) {
	recs := make([]*record.Record, len(batch))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, m := range batch {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rec, err := builder.Build(gctx, m)
			if err != nil {
				return fmt.Errorf("build record at %s: %w", position(m), err)
			}
			recs[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return recs, nil
}

func position(m *pattern.Match) string {
	if m.Line > 0 {
		return fmt.Sprintf("line %d", m.Line)
	}
	return fmt.Sprintf("offset %#x", m.Offset)
}
