// Package pipeline batches a subtitle document through the rewrite oracle.
//
// Cues are partitioned into fixed-size batches in document order. Each batch
// is rewritten independently: a failed batch leaves its cues untouched and is
// reported in the run report while sibling batches still apply their results.
// Batches may be processed concurrently; results land back on the cues they
// came from, so document order is preserved regardless of completion order.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pkt0401/kanasub/internal/errors"
	"github.com/pkt0401/kanasub/internal/oracle"
	"github.com/pkt0401/kanasub/internal/rules"
	"github.com/pkt0401/kanasub/internal/srt"
)

// contextRunes caps the document-level context passed to the oracle.
const contextRunes = 3000

// retryBaseDelay is the wait before the second attempt; it doubles per retry.
const retryBaseDelay = 500 * time.Millisecond

// Options tunes batching and retry behavior.
type Options struct {
	// BatchSize is the number of cues per oracle request. Must be ≥ 1.
	BatchSize int

	// Parallelism is the number of batches in flight at once. Must be ≥ 1.
	Parallelism int

	// MaxAttempts caps oracle attempts per batch. Must be ≥ 1.
	MaxAttempts int

	// Timeout bounds each oracle call. Zero means no per-call timeout.
	Timeout time.Duration
}

// BatchFailure records one failed batch with enough context to re-run it.
// Batch and cue positions are 1-based document positions.
type BatchFailure struct {
	Batch    int    `json:"batch"`
	CueStart int    `json:"cue_start"`
	CueEnd   int    `json:"cue_end"`
	Message  string `json:"message"`
}

// Report summarizes one pipeline run over a document.
type Report struct {
	Direction oracle.Direction `json:"direction"`
	Cues      int              `json:"cues"`
	Batches   int              `json:"batches"`
	Changed   int              `json:"changed"`
	Failures  []BatchFailure   `json:"failures,omitempty"`
}

// Failed reports whether any batch failed.
func (r *Report) Failed() bool {
	return len(r.Failures) > 0
}

// Runner drives correction and restoration runs. The rule store is read-only
// for the lifetime of a run.
type Runner struct {
	store  *rules.Store
	oracle oracle.Oracle
	opts   Options
}

// New validates opts and returns a Runner.
func New(store *rules.Store, orc oracle.Oracle, opts Options) (*Runner, error) {
	if store == nil {
		return nil, errors.NewInvalidRequest("rule store is required")
	}
	if orc == nil {
		return nil, errors.NewInvalidRequest("oracle is required")
	}
	if opts.BatchSize < 1 {
		return nil, errors.NewInvalidRequest("batch size must be >= 1")
	}
	if opts.Parallelism < 1 {
		return nil, errors.NewInvalidRequest("parallelism must be >= 1")
	}
	if opts.MaxAttempts < 1 {
		return nil, errors.NewInvalidRequest("max attempts must be >= 1")
	}
	return &Runner{store: store, oracle: orc, opts: opts}, nil
}

// Correct rewrites ambiguous kanji/numeral spans into kana, in place.
// Forward rule lookups are surfaced as candidates; known term corrections are
// applied on top of the oracle's output.
func (r *Runner) Correct(ctx context.Context, doc *srt.Document) (*Report, error) {
	return r.run(ctx, doc, oracle.DirectionCorrect)
}

// Restore maps kana spans back to their original orthography, in place.
// Reverse rule lookups are surfaced as candidates; when a reading matches
// several originals all are passed through for the oracle to disambiguate.
func (r *Runner) Restore(ctx context.Context, doc *srt.Document) (*Report, error) {
	return r.run(ctx, doc, oracle.DirectionRestore)
}

// batch is one unit of oracle work: a contiguous cue range plus the subset
// of cues that actually carry text.
type batch struct {
	number   int // 1-based
	cueStart int // 1-based document position of first cue
	cues     []*srt.Cue
}

func (r *Runner) run(ctx context.Context, doc *srt.Document, direction oracle.Direction) (*Report, error) {
	if doc == nil {
		return nil, errors.NewInvalidRequest("document is required")
	}

	batches := partition(doc.Cues, r.opts.BatchSize)
	report := &Report{
		Direction: direction,
		Cues:      len(doc.Cues),
		Batches:   len(batches),
	}

	// Hints, rules, and document context are fixed for the whole run.
	hints := r.store.Hints()
	customRules := r.store.CustomRules()
	docContext := doc.FullContext(contextRunes)

	type result struct {
		changed int
		err     error
	}
	results := make([]result, len(batches))

	// Batch failures must not cancel siblings, so goroutines never return an
	// error to the group; failures are collected per slot instead.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Parallelism)
	for i, b := range batches {
		g.Go(func() error {
			changed, err := r.runBatch(gctx, b, direction, hints, customRules, docContext)
			results[i] = result{changed: changed, err: err}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("pipeline interrupted: %w", err))
	}

	for i, res := range results {
		if res.err != nil {
			b := batches[i]
			report.Failures = append(report.Failures, BatchFailure{
				Batch:    b.number,
				CueStart: b.cueStart,
				CueEnd:   b.cueStart + len(b.cues) - 1,
				Message:  res.err.Error(),
			})
			continue
		}
		report.Changed += res.changed
	}

	return report, nil
}

// runBatch rewrites one batch, retrying transient oracle failures.
// On success the rewritten texts are written back into the cues; on failure
// the cues are left exactly as they were.
func (r *Runner) runBatch(
	ctx context.Context,
	b batch,
	direction oracle.Direction,
	hints, customRules []string,
	docContext string,
) (int, error) {
	// Blank cues pass through without an oracle round-trip.
	active := make([]*srt.Cue, 0, len(b.cues))
	for _, cue := range b.cues {
		if strings.TrimSpace(cue.Text()) != "" {
			active = append(active, cue)
		}
	}
	if len(active) == 0 {
		return 0, nil
	}

	req := oracle.Request{
		Direction:   direction,
		Texts:       make([]string, len(active)),
		Hints:       hints,
		CustomRules: customRules,
		Candidates:  make([][]rules.Candidate, len(active)),
		Context:     docContext,
	}
	for i, cue := range active {
		req.Texts[i] = cue.Text()
		if direction == oracle.DirectionRestore {
			req.Candidates[i] = r.store.ReverseLookup(cue.Text())
		} else {
			req.Candidates[i] = r.store.ForwardLookup(cue.Text())
		}
	}

	rewritten, err := r.callWithRetry(ctx, req)
	if err != nil {
		return 0, errors.NewPipeline(b.number, b.cueStart, b.cueStart+len(b.cues)-1, err)
	}

	changed := 0
	for i, cue := range active {
		text := normalizeRewrite(rewritten[i])
		if direction == oracle.DirectionCorrect {
			text = r.store.ApplyTermCorrections(text)
		}
		// A fully blank rewrite would produce an unparseable cue, keep the
		// original text instead.
		if text == "" || text == cue.Text() {
			continue
		}
		cue.SetText(text)
		changed++
	}
	return changed, nil
}

// normalizeRewrite drops blank lines from oracle output. A blank line inside
// a cue would terminate the block early on serialization, so the written file
// would no longer parse.
func normalizeRewrite(text string) string {
	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// callWithRetry invokes the oracle with a per-call timeout, at most
// MaxAttempts times. A response with the wrong cardinality violates the
// oracle contract and counts as a failed attempt.
func (r *Runner) callWithRetry(ctx context.Context, req oracle.Request) ([]string, error) {
	var lastErr error
	for attempt := 1; attempt <= r.opts.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := retryBaseDelay << (attempt - 2)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		callCtx := ctx
		cancel := context.CancelFunc(func() {})
		if r.opts.Timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		}
		texts, err := r.oracle.Rewrite(callCtx, req)
		cancel()

		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		if len(texts) != len(req.Texts) {
			lastErr = fmt.Errorf("oracle returned %d texts for %d inputs", len(texts), len(req.Texts))
			continue
		}
		return texts, nil
	}
	return nil, fmt.Errorf("after %d attempts: %w", r.opts.MaxAttempts, lastErr)
}

// partition splits cues into contiguous batches of at most size cues.
func partition(cues []*srt.Cue, size int) []batch {
	var out []batch
	for start := 0; start < len(cues); start += size {
		end := min(start+size, len(cues))
		out = append(out, batch{
			number:   len(out) + 1,
			cueStart: start + 1,
			cues:     cues[start:end],
		})
	}
	return out
}
