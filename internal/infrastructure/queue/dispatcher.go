package queue

import (
	"context"
	"errors"
	"hash/fnv"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/kanchangiri67/OncoCist/internal/api/metrics"
	"github.com/kanchangiri67/OncoCist/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 64
)

// ErrStopped is returned for jobs submitted after the dispatcher shut down.
var ErrStopped = errors.New("inference dispatcher stopped")

type job struct {
	ctx  context.Context
	in   ports.ScoreInput
	done chan result
}

type result struct {
	res *ports.ScoreResult
	err error
}

// Dispatcher runs scoring calls on a fixed set of worker goroutines. Jobs are
// sharded by scan id so requests for the same scan run one after another on
// the same worker, and CPU-bound inference never runs on request goroutines.
// Dispatcher itself implements ports.Scorer.
type Dispatcher struct {
	shards []chan job
	scorer ports.Scorer
	quit   chan struct{}
	log    zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers shards.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, scorer ports.Scorer, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		shards: make([]chan job, numWorkers),
		scorer: scorer,
		quit:   make(chan struct{}),
		log:    log,
	}
	for i := range d.shards {
		d.shards[i] = make(chan job, channelBuffer)
	}
	return d
}

// Start launches the workers. They stop when ctx is cancelled; jobs still
// queued at that point fail with ErrStopped.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.shards {
		go d.runWorker(ctx, i, ch)
	}
	go func() {
		<-ctx.Done()
		close(d.quit)
	}()
}

// Score enqueues the job on its shard and waits for the result or for ctx.
func (d *Dispatcher) Score(ctx context.Context, in ports.ScoreInput) (*ports.ScoreResult, error) {
	j := job{ctx: ctx, in: in, done: make(chan result, 1)}
	idx := d.shardIndex(in.ScanID)

	select {
	case d.shards[idx] <- j:
		metrics.InferenceQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.shards[idx])))
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-d.quit:
		return nil, ErrStopped
	}

	select {
	case r := <-j.done:
		return r.res, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-d.quit:
		return nil, ErrStopped
	}
}

// shardIndex maps a scan id deterministically to a worker index.
func (d *Dispatcher) shardIndex(scanID uint) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strconv.FormatUint(uint64(scanID), 10)))
	return int(h.Sum32() % uint32(len(d.shards)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan job) {
	depth := metrics.InferenceQueueDepth.WithLabelValues(strconv.Itoa(id))
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-ch:
			depth.Set(float64(len(ch)))
			if err := j.ctx.Err(); err != nil {
				j.done <- result{err: err}
				continue
			}

			start := time.Now()
			res, err := d.scorer.Score(j.ctx, j.in)
			label := "ok"
			if err != nil {
				label = "error"
				d.log.Error().Err(err).
					Uint("scan_id", j.in.ScanID).
					Int("worker_id", id).
					Msg("scoring failed")
			}
			metrics.InferenceDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
			j.done <- result{res: res, err: err}
		}
	}
}
