// Package pipeline runs the batch flow: raw records in, normalized and
// validated orders merged into the keyed canonical store, then a full
// re-projection of the store into the flattened table behind the sink
// boundary. Normalization, validation and projection are pure per-order, so
// they fan out across workers; only the per-key merge needs coordination,
// which the merger's striped locks provide.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"oap/internal/checkpoint"
	"oap/internal/flatten"
	"oap/internal/merge"
	"oap/internal/metrics"
	"oap/internal/model"
	"oap/internal/normalize"
	"oap/internal/sink"
	"oap/internal/source"
	"oap/internal/store"
)

// Rejection reasons as reported in the run summary. Validation reasons come
// from the normalize package; these two cover pre-validation failures.
const (
	RejectDecode   = "decode"
	RejectCoercion = "type_coercion"
)

// Summary is the user-visible result of a run.
type Summary struct {
	Normalized    int
	Rejected      map[string]int
	Inserted      int
	Replaced      int
	ProjectedRows int
	ResumeSkipped int
	LastOffset    int64
}

func (s Summary) String() string {
	return fmt.Sprintf("normalized=%d rejected=%v inserted=%d replaced=%d projected=%d skipped=%d",
		s.Normalized, s.Rejected, s.Inserted, s.Replaced, s.ProjectedRows, s.ResumeSkipped)
}

type Pipeline struct {
	Workers  int
	Store    store.Store
	Merger   *merge.Merger
	Journal  checkpoint.Journal   // optional
	Manifest checkpoint.Publisher // optional
	Resume   checkpoint.Reader    // optional; enables offset skipping
	Metrics  *metrics.Registry    // optional
}

func New(st store.Store, workers int) *Pipeline {
	if workers < 1 {
		workers = 1
	}
	return &Pipeline{
		Workers: workers,
		Store:   st,
		Merger:  merge.NewMerger(st),
	}
}

type result struct {
	offset  int64
	orderID string
	outcome string
	reject  string // empty when accepted
	skip    bool   // already committed by a previous run
	err     error  // batch-fatal
}

// Run executes one batch: read, normalize, validate, merge, re-project,
// write. Per-record failures are counted, never fatal; sink failures abort
// the batch after bounded retries with the committed counts in the summary.
func (p *Pipeline) Run(ctx context.Context, src source.Source, columnar sink.Columnar, table string) (Summary, error) {
	summary := Summary{Rejected: make(map[string]int)}

	// Kafka offsets start at 0, so "no manifest" must be below every valid
	// offset, not equal to the first one.
	resumeFrom := int64(-1)
	if p.Resume != nil {
		if m, err := p.Resume.ReadLatest(); err == nil {
			resumeFrom = m.LastOffset
			log.Printf("resuming batch %s from offset %d", m.BatchID, resumeFrom)
			if p.Metrics != nil {
				age := time.Now().UTC().Unix() - m.CreatedAtEpochSecond
				p.Metrics.LastManifestAgeSec.Set(float64(age))
			}
		}
	}

	jobs := make(chan source.Record, p.Workers*2)
	results := make(chan result, p.Workers*2)

	var wg sync.WaitGroup
	for w := 0; w < p.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rec := range jobs {
				results <- p.process(rec)
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	readErr := make(chan error, 1)
	go func() {
		defer close(jobs)
		readErr <- src.Read(ctx, func(rec source.Record) error {
			// Cancellation checkpoint between records.
			if err := ctx.Err(); err != nil {
				return err
			}
			if rec.Offset <= resumeFrom {
				results <- result{offset: rec.Offset, skip: true}
				return nil
			}
			jobs <- rec
			return nil
		})
	}()

	// drain unblocks the reader and workers if the batch aborts early.
	drain := func() {
		go func() {
			for range results {
			}
		}()
	}

	for res := range results {
		if res.err != nil {
			drain()
			return summary, res.err
		}
		if res.offset > summary.LastOffset {
			summary.LastOffset = res.offset
		}
		if res.skip {
			summary.ResumeSkipped++
			if p.Metrics != nil {
				p.Metrics.ResumeSkipped.Inc()
			}
			continue
		}
		if res.reject != "" {
			summary.Rejected[res.reject]++
			if p.Metrics != nil {
				p.Metrics.Rejected.WithLabelValues(res.reject).Inc()
			}
		} else {
			summary.Normalized++
			switch res.outcome {
			case merge.Inserted.String():
				summary.Inserted++
				if p.Metrics != nil {
					p.Metrics.MergedInserted.Inc()
				}
			case merge.Replaced.String():
				summary.Replaced++
				if p.Metrics != nil {
					p.Metrics.MergedReplaced.Inc()
				}
			}
			if p.Metrics != nil {
				p.Metrics.Normalized.Inc()
			}
		}
		if p.Journal != nil {
			outcome := res.outcome
			if res.reject != "" {
				outcome = "rejected"
			}
			e := checkpoint.Entry{
				OrderID: res.orderID,
				Offset:  res.offset,
				Outcome: outcome,
				TS:      time.Now().UTC().Unix(),
			}
			if err := p.Journal.Append(e); err != nil {
				drain()
				return summary, fmt.Errorf("append journal: %w", err)
			}
		}
	}
	if err := <-readErr; err != nil {
		return summary, fmt.Errorf("read source: %w", err)
	}

	rows, err := p.Project()
	if err != nil {
		return summary, fmt.Errorf("project: %w", err)
	}
	summary.ProjectedRows = len(rows)
	if p.Metrics != nil {
		p.Metrics.ProjectedRows.Add(float64(len(rows)))
	}

	t0 := time.Now()
	if err := writeSink(ctx, columnar, table, rows); err != nil {
		return summary, fmt.Errorf("write flattened table (committed %d records): %w",
			summary.Inserted+summary.Replaced, err)
	}
	if p.Metrics != nil {
		p.Metrics.SinkWriteSec.Observe(time.Since(t0).Seconds())
	}

	if p.Manifest != nil {
		batchID := time.Now().UTC().Format(time.RFC3339)
		if err := p.Manifest.PublishLatest(batchID, summary.LastOffset); err != nil {
			return summary, fmt.Errorf("publish manifest: %w", err)
		}
		if p.Metrics != nil {
			p.Metrics.LastManifestAgeSec.Set(0)
		}
	}
	return summary, nil
}

// process normalizes, validates and merges one raw record. Pure except for
// the keyed merge.
func (p *Pipeline) process(rec source.Record) result {
	if rec.Err != nil {
		return result{offset: rec.Offset, reject: RejectDecode}
	}
	order, err := normalize.Normalize(rec.Raw)
	if err != nil {
		return result{offset: rec.Offset, reject: RejectCoercion}
	}
	if rej := normalize.Validate(order); rej != nil {
		return result{offset: rec.Offset, orderID: order.OrderID, reject: string(rej.Reason)}
	}
	outcome, err := p.Merger.Merge(order)
	if err != nil {
		return result{offset: rec.Offset, err: fmt.Errorf("merge %s: %w", order.OrderID, err)}
	}
	return result{offset: rec.Offset, orderID: order.OrderID, outcome: outcome.String()}
}

// Project re-derives the full flattened row set from the canonical store.
// The projection is always recomputed wholesale, never patched. Rows come
// back sorted by (order_id, item_seq) so re-runs produce identical output.
func (p *Pipeline) Project() ([]flatten.FlatRow, error) {
	var rows []flatten.FlatRow
	err := p.Store.Range(func(_ string, o model.Order) error {
		rows = append(rows, flatten.Project(o)...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].OrderID != rows[j].OrderID {
			return rows[i].OrderID < rows[j].OrderID
		}
		return rows[i].ItemSeq < rows[j].ItemSeq
	})
	return rows, nil
}

func writeSink(ctx context.Context, columnar sink.Columnar, table string, rows []flatten.FlatRow) error {
	if r, ok := columnar.(*sink.Retrying); ok {
		return r.CreateOrReplaceTableCtx(ctx, table, flatten.TableColumns, flatten.Rows(rows))
	}
	return columnar.CreateOrReplaceTable(table, flatten.TableColumns, flatten.Rows(rows))
}
