package audit

import (
	"context"
	"sync"
)

// MemoryRecorder collects records in memory for tests.
type MemoryRecorder struct {
	mu   sync.Mutex
	recs []Record
}

func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

func (r *MemoryRecorder) Record(_ context.Context, rec Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recs = append(r.recs, rec)
}

func (r *MemoryRecorder) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, len(r.recs))
	copy(out, r.recs)
	return out
}

// ByAction filters collected records by action name.
func (r *MemoryRecorder) ByAction(action string) []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Record
	for _, rec := range r.recs {
		if rec.Action == action {
			out = append(out, rec)
		}
	}
	return out
}
