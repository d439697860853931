package tap

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/tap-inventio/internal/db"
	"github.com/jonathan/tap-inventio/internal/extract"
	"github.com/jonathan/tap-inventio/internal/inventio"
	"github.com/jonathan/tap-inventio/internal/schemas"
	"github.com/jonathan/tap-inventio/internal/singer"
	"github.com/jonathan/tap-inventio/internal/state"
	"github.com/jonathan/tap-inventio/internal/streams"
	"golang.org/x/sync/errgroup"
)

// Summary describes a finished (or failed) sync.
type Summary struct {
	RunID    uuid.UUID
	Streams  []StreamSummary
	Records  int
	Duration time.Duration
}

// StreamSummary counts records of one stream.
type StreamSummary struct {
	Stream    string
	Companies map[string]int // records written per company
	Records   int
	Skipped   int // at or before the bookmark
}

// RecordError reports a record that does not match its stream schema.
type RecordError struct {
	Stream  string
	Company string
	Cause   error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record of stream %s (company %s) does not match schema: %v", e.Stream, e.Company, e.Cause)
}

func (e *RecordError) Unwrap() error {
	return e.Cause
}

// run is the shared state of one Sync call.
type run struct {
	id      uuid.UUID
	tracker *state.Tracker
	logger  *slog.Logger

	// serialises state emission and persistence
	stateMu sync.Mutex

	mu      sync.Mutex
	streams map[string]*StreamSummary
}

// Sync extracts every selected stream of catalog. A nil catalog selects the
// streams that have endpoint config. Streams run concurrently up to
// max_concurrency; the first failure cancels the others.
func (t *Tap) Sync(ctx context.Context, catalog *singer.Catalog) (*Summary, error) {
	started := time.Now()

	if catalog == nil {
		var err error
		catalog, err = t.Discover()
		if err != nil {
			return nil, err
		}
	}

	selected := catalog.Selected()
	sort.Slice(selected, func(i, j int) bool { return selected[i].TapStreamID < selected[j].TapStreamID })

	r := &run{
		id:      uuid.New(),
		tracker: state.NewTracker(t.init, t.cfg.StartDate),
		streams: map[string]*StreamSummary{},
	}
	r.logger = t.logger.With("run_id", r.id.String())

	recorder, _ := t.store.(RunRecorder)
	if recorder != nil {
		if err := recorder.StartRun(ctx, r.id); err != nil {
			return nil, fmt.Errorf("failed to record run start: %w", err)
		}
	}

	r.logger.Info("sync started", "streams", len(selected), "max_concurrency", t.cfg.MaxConcurrency)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(max(t.cfg.MaxConcurrency, 1))
	for _, entry := range selected {
		g.Go(func() error {
			// a failed stream cancels gCtx; streams still queued never start
			if err := gCtx.Err(); err != nil {
				return err
			}
			if err := t.syncStream(gCtx, r, entry); err != nil {
				return fmt.Errorf("stream %s failed: %w", entry.TapStreamID, err)
			}
			return nil
		})
	}
	syncErr := g.Wait()

	if syncErr == nil {
		syncErr = t.checkpoint(ctx, r)
	}

	summary := r.summary(started)

	if recorder != nil {
		status := db.RunStatusCompleted
		if syncErr != nil {
			status = db.RunStatusFailed
		}
		// a cancelled ctx must not prevent recording the outcome
		if err := recorder.FinishRun(context.WithoutCancel(ctx), r.id, status, summary.Records); err != nil {
			r.logger.Warn("failed to record run result", "error", err)
		}
	}

	if syncErr != nil {
		r.logger.Error("sync failed", "error", syncErr, "records", summary.Records)
		return summary, syncErr
	}
	r.logger.Info("sync finished", "records", summary.Records, "duration", summary.Duration)
	return summary, nil
}

func (t *Tap) syncStream(ctx context.Context, r *run, entry *singer.CatalogEntry) error {
	def, ok := streams.Lookup(entry.TapStreamID)
	if !ok {
		return fmt.Errorf("unknown stream %q", entry.TapStreamID)
	}
	ep, ok := t.cfg.EndpointFor(def.Name)
	if !ok {
		return fmt.Errorf("stream %s is selected but no endpoint is configured for it", def.Name)
	}

	key := ep.ReplicationKey
	if key == "" && entry.ReplicationMethod == singer.Incremental {
		key = entry.ReplicationKey
	}

	schema := entry.Schema
	if len(schema) == 0 {
		var err error
		if schema, err = def.Schema(); err != nil {
			return err
		}
	}

	var validator *schemas.Validator
	if t.cfg.ValidateRecords {
		var err error
		if validator, err = schemas.Compile(def.SchemaFile(), schema); err != nil {
			return err
		}
	}

	var bookmarkProps []string
	if key != "" {
		bookmarkProps = []string{key}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := t.writer.WriteSchema(def.Name, schema, def.PrimaryKeys, bookmarkProps); err != nil {
		return err
	}

	pages, err := inventio.NewCompanyPaginator(ep.Companies)
	if err != nil {
		return fmt.Errorf("stream %s: %w", def.Name, err)
	}

	logger := r.logger.With("stream", def.Name)
	r.tracker.SetCurrentlySyncing(def.Name)
	logger.Info("stream started", "companies", pages.Len(), "replication_key", key)

	for page, ok := pages.Next(); ok; page, ok = pages.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := t.syncPage(ctx, r, def, key, t.cfg.LimitFor(ep), page, validator, logger); err != nil {
			return err
		}
	}

	r.tracker.FinishStream(def.Name)
	logger.Info("stream finished", "records", r.streamRecords(def.Name))
	return nil
}

func (t *Tap) syncPage(
	ctx context.Context,
	r *run,
	def streams.Definition,
	key string,
	limit int,
	page inventio.Page,
	validator *schemas.Validator,
	logger *slog.Logger,
) error {
	logger = logger.With("company", page.Company)

	var bookmark string
	if key != "" {
		bookmark = r.tracker.Bookmark(def.Name, page.Company, key)
	}

	doc, err := t.client.Get(ctx, inventio.Request{
		Stream:  def.Name,
		Company: page.Company,
		Token:   page.Token,
		Limit:   limit,
		OrderBy: key,
	})
	if err != nil {
		return err
	}

	records, err := extract.Records(doc, def.RecordsPath)
	if err != nil {
		return err
	}

	written, skipped := 0, 0
	for _, raw := range records {
		record := extract.PostProcess(raw, page.Company)

		var value string
		if key != "" {
			value = replicationValue(record[key])
			if bookmark != "" && value != "" && state.Comparable(value, bookmark) && state.Compare(value, bookmark) <= 0 {
				skipped++
				continue
			}
		}

		if validator != nil {
			if err := validator.Validate(record); err != nil {
				return &RecordError{Stream: def.Name, Company: page.Company, Cause: err}
			}
		}

		if err := t.writer.WriteRecord(def.Name, record); err != nil {
			return err
		}
		written++

		if key != "" {
			r.tracker.Advance(def.Name, page.Company, key, value)
		}
	}

	r.count(def.Name, page.Company, written, skipped)
	logger.Debug("page synced", "records", written, "skipped", skipped, "bookmark", bookmark)

	return t.checkpoint(ctx, r)
}

// checkpoint emits the current state and persists it.
func (t *Tap) checkpoint(ctx context.Context, r *run) error {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()

	snapshot := r.tracker.Snapshot()
	if err := t.writer.WriteState(snapshot); err != nil {
		return err
	}
	if t.store == nil {
		return nil
	}
	if err := t.store.Save(ctx, snapshot); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

// replicationValue renders a decoded XML value as a bookmark string.
func replicationValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case map[string]any:
		if text, ok := t["#text"].(string); ok {
			return text
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

func (r *run) count(stream, company string, written, skipped int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.streams[stream]
	if !ok {
		s = &StreamSummary{Stream: stream, Companies: map[string]int{}}
		r.streams[stream] = s
	}
	s.Companies[company] += written
	s.Records += written
	s.Skipped += skipped
}

func (r *run) streamRecords(stream string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.streams[stream]; ok {
		return s.Records
	}
	return 0
}

func (r *run) summary(started time.Time) *Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := &Summary{RunID: r.id, Duration: time.Since(started)}
	for _, s := range r.streams {
		out.Streams = append(out.Streams, *s)
		out.Records += s.Records
	}
	sort.Slice(out.Streams, func(i, j int) bool { return out.Streams[i].Stream < out.Streams[j].Stream })
	return out
}
