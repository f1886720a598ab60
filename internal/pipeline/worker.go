package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"photocarve/internal/config"
	photoimage "photocarve/internal/image"
)

// ErrSuperseded is returned when applying a result whose inputs changed
// while it was being computed.
var ErrSuperseded = errors.New("result superseded by a newer request")

// Snapshot returns a detached copy of the pipeline that can run a pass on
// another goroutine. It shares immutable data (images, feature sets,
// composites) and copies everything that can still change.
func (p *Pipeline) Snapshot() *Pipeline {
	s := &Pipeline{
		store:     photoimage.NewStore(p.store.Layers()...),
		extractor: p.extractor,
		proj:      p.proj.Clone(),
		records:   make(map[int]*record, len(p.records)),
		log:       p.log,
		listeners: make(map[EventType][]EventListener),
		detached:  true,
	}
	for i, rec := range p.records {
		s.records[i] = rec.clone()
	}
	return s
}

func maskRevision(rec *record) uint64 {
	if rec == nil || rec.mask == nil {
		return 0
	}
	return rec.mask.Revision
}

// Apply adopts the results of a snapshot pass. It fails with ErrSuperseded
// when images or paint masks changed since the snapshot was taken; the
// result is then discarded.
func (p *Pipeline) Apply(snap *Pipeline) error {
	cur, done := p.store.Layers(), snap.store.Layers()
	if len(cur) != len(done) {
		return ErrSuperseded
	}
	for i := range cur {
		if cur[i].ID != done[i].ID {
			return ErrSuperseded
		}
		if maskRevision(p.records[i]) != maskRevision(snap.records[i]) {
			return ErrSuperseded
		}
	}

	p.records = snap.records
	p.proj.Assign(snap.proj)

	snap.mu.Lock()
	pending := snap.pending
	snap.pending = nil
	snap.mu.Unlock()
	for _, e := range pending {
		p.Emit(e.event, e.data)
	}
	return nil
}

// Result is the outcome of one background pass.
type Result struct {
	Generation uint64
	Report     *Report
	Err        error
	snap       *Pipeline
}

type request struct {
	gen  uint64
	cfg  config.Config
	snap *Pipeline
}

// Worker runs orchestration passes on a background goroutine. The owner
// goroutine submits requests and applies results; only the newest request
// is ever applied.
type Worker struct {
	p        *Pipeline
	log      *slog.Logger
	gen      uint64
	requests chan request
	results  chan Result
}

// NewWorker creates a worker for p. Call Start before submitting.
func NewWorker(p *Pipeline, log *slog.Logger) *Worker {
	if log == nil {
		log = p.log
	}
	return &Worker{
		p:        p,
		log:      log,
		requests: make(chan request, 1),
		results:  make(chan Result, 4),
	}
}

// Start launches the background goroutine; it exits when ctx is done.
func (w *Worker) Start(ctx context.Context) {
	go w.loop(ctx)
}

func (w *Worker) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-w.requests:
			report, err := req.snap.UpdateImages(req.cfg)
			res := Result{Generation: req.gen, Report: report, Err: err, snap: req.snap}
			select {
			case w.results <- res:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Submit snapshots the pipeline and queues a pass with cfg, replacing any
// request the goroutine has not picked up yet. It returns the request's
// generation.
func (w *Worker) Submit(cfg config.Config) uint64 {
	w.gen++
	req := request{gen: w.gen, cfg: cfg, snap: w.p.Snapshot()}
	select {
	case old := <-w.requests:
		w.log.Debug("dropping queued pass", "generation", old.gen)
	default:
	}
	w.requests <- req
	return w.gen
}

// Results delivers finished passes.
func (w *Worker) Results() <-chan Result {
	return w.results
}

// Apply adopts a finished pass if it belongs to the latest request and its
// inputs are unchanged. Completed stages are adopted even when the pass
// stopped on an error, which is then returned.
func (w *Worker) Apply(res Result) (*Report, error) {
	if res.Generation != w.gen {
		w.log.Debug("discarding stale pass", "generation", res.Generation, "latest", w.gen)
		return nil, ErrSuperseded
	}
	if err := w.p.Apply(res.snap); err != nil {
		w.log.Debug("discarding pass", "generation", res.Generation, "err", err)
		return nil, err
	}
	return res.Report, res.Err
}

// Run submits a pass and blocks until its result is applied or ctx ends.
// Older results arriving meanwhile are discarded.
func (w *Worker) Run(ctx context.Context, cfg config.Config) (*Report, error) {
	gen := w.Submit(cfg)
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case res := <-w.results:
			if res.Generation != gen {
				continue
			}
			return w.Apply(res)
		}
	}
}
