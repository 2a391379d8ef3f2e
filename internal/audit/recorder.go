package audit

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Sink persists a single record. Implementations may fail; the recorder
// absorbs those failures.
type Sink interface {
	Write(ctx context.Context, rec Record) error
}

// AsyncRecorder queues records on a buffered channel and drains them on a
// background goroutine, so callers never wait on the sink. When the queue is
// full the record is dropped and counted, not blocked on.
type AsyncRecorder struct {
	sink    Sink
	queue   chan Record
	log     zerolog.Logger
	once    sync.Once
	done    chan struct{}
	dropped uint64
	closed  bool
	mu      sync.Mutex
}

func NewAsyncRecorder(sink Sink, queueSize int, log zerolog.Logger) *AsyncRecorder {
	if queueSize <= 0 {
		queueSize = 1024
	}

	r := &AsyncRecorder{
		sink:  sink,
		queue: make(chan Record, queueSize),
		log:   log,
		done:  make(chan struct{}),
	}
	go r.drain()
	return r
}

func (r *AsyncRecorder) Record(_ context.Context, rec Record) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	// The mutex orders this send against Close, so a late emitter drops its
	// record instead of hitting a closed channel.
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		r.dropped++
		r.log.Warn().
			Str("action", rec.Action).
			Uint64("dropped_total", r.dropped).
			Msg("audit recorder closed, record dropped")
		return
	}

	select {
	case r.queue <- rec:
	default:
		r.dropped++
		r.log.Warn().
			Str("action", rec.Action).
			Uint64("dropped_total", r.dropped).
			Msg("audit queue full, record dropped")
	}
}

func (r *AsyncRecorder) drain() {
	defer close(r.done)
	for rec := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := r.sink.Write(ctx, rec)
		cancel()
		if err != nil {
			r.log.Error().
				Err(err).
				Str("action", rec.Action).
				Msg("audit sink write failed")
		}
	}
}

// Close stops accepting records and waits for the queue to drain. Records
// arriving after Close are dropped, not panicked on.
func (r *AsyncRecorder) Close() {
	r.once.Do(func() {
		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()
		close(r.queue)
	})
	<-r.done
}
