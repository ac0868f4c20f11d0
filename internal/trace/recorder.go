package trace

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Recorder batches samples from the tick goroutine and hands full batches to
// a background writer.
type Recorder struct {
	sink      Sink
	log       *zap.Logger
	batchSize int
	timeout   time.Duration

	pending []Sample
	queue   chan []Sample
	wg      sync.WaitGroup
	once    sync.Once

	dropped uint64
}

// NewRecorder starts the writer goroutine. queueLen is the number of full
// batches that may wait for the sink before new ones are dropped.
func NewRecorder(sink Sink, batchSize, queueLen int, log *zap.Logger) *Recorder {
	if batchSize < 1 {
		batchSize = 1
	}
	if queueLen < 1 {
		queueLen = 1
	}
	r := &Recorder{
		sink:      sink,
		log:       log,
		batchSize: batchSize,
		timeout:   10 * time.Second,
		pending:   make([]Sample, 0, batchSize),
		queue:     make(chan []Sample, queueLen),
	}
	r.wg.Add(1)
	go r.writeLoop()
	return r
}

// Record buffers samples. Tick goroutine only.
func (r *Recorder) Record(samples ...Sample) {
	for _, s := range samples {
		r.pending = append(r.pending, s)
		if len(r.pending) >= r.batchSize {
			r.flush()
		}
	}
}

// Flush hands any partial batch to the writer. Tick goroutine only.
func (r *Recorder) Flush() {
	if len(r.pending) > 0 {
		r.flush()
	}
}

func (r *Recorder) flush() {
	batch := r.pending
	r.pending = make([]Sample, 0, r.batchSize)
	select {
	case r.queue <- batch:
	default:
		r.dropped += uint64(len(batch))
		r.log.Warn("trace queue full, dropping batch",
			zap.Int("samples", len(batch)),
			zap.Uint64("dropped_total", r.dropped),
		)
	}
}

// Dropped is the number of samples discarded because the sink fell behind.
func (r *Recorder) Dropped() uint64 { return r.dropped }

func (r *Recorder) writeLoop() {
	defer r.wg.Done()
	for batch := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		if err := r.sink.WriteSamples(ctx, batch); err != nil {
			r.log.Error("trace write failed", zap.Int("samples", len(batch)), zap.Error(err))
		}
		cancel()
	}
}

// Close flushes the partial batch, waits for the writer to drain and closes
// the sink.
func (r *Recorder) Close() error {
	var err error
	r.once.Do(func() {
		r.Flush()
		close(r.queue)
		r.wg.Wait()
		err = r.sink.Close()
	})
	return err
}
