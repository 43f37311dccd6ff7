package core

import "sync"

// executionHistory keeps the newest records of a queue, dropping the oldest once
// limit is reached.
type executionHistory struct {
	mu      sync.Mutex
	limit   int
	records []TaskExecutionRecord // grows to limit, then wraps at oldest
	oldest  int
}

func newExecutionHistory(limit int) *executionHistory {
	return &executionHistory{
		limit:   limit,
		records: make([]TaskExecutionRecord, 0, limit),
	}
}

func (h *executionHistory) Add(rec TaskExecutionRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.records) < h.limit {
		h.records = append(h.records, rec)
		return
	}
	h.records[h.oldest] = rec
	h.oldest = (h.oldest + 1) % h.limit
}

// Recent returns up to n records, newest first. n <= 0 means all of them.
func (h *executionHistory) Recent(n int) []TaskExecutionRecord {
	h.mu.Lock()
	defer h.mu.Unlock()

	kept := len(h.records)
	if kept == 0 {
		return nil
	}
	if n <= 0 || n > kept {
		n = kept
	}

	out := make([]TaskExecutionRecord, n)
	newest := h.oldest + kept - 1
	for i := range out {
		out[i] = h.records[(newest-i)%kept]
	}
	return out
}

func (h *executionHistory) Last() (TaskExecutionRecord, bool) {
	recent := h.Recent(1)
	if len(recent) == 0 {
		return TaskExecutionRecord{}, false
	}
	return recent[0], true
}
