package batch

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/aluiziolira/go-price-analyzer/models"
)

// Entry records one search outcome for the operation audit log.
type Entry struct {
	Time        time.Time `json:"time"`
	ProductID   string    `json:"product_id"`
	ProductName string    `json:"product_name"`
	Kind        string    `json:"kind"`
	Outcome     string    `json:"outcome"`
	Reason      string    `json:"reason,omitempty"`
	MinPrice    *float64  `json:"min_price,omitempty"`
	Cached      bool      `json:"cached,omitempty"`
}

// History is a bounded in-memory log of search outcomes. When the limit
// is reached the oldest entries are discarded.
type History struct {
	mu      sync.Mutex
	limit   int
	entries []Entry
}

// NewHistory builds a history retaining at most limit entries.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = 1000
	}
	return &History{limit: limit}
}

// Record appends an outcome for a product.
func (h *History) Record(now time.Time, product models.Product, kind models.BatchKind, result models.SearchResult, cached bool) {
	entry := Entry{
		Time:        now,
		ProductID:   product.ID,
		ProductName: product.Name,
		Kind:        kind.String(),
		Outcome:     result.Label(),
		Reason:      result.Reason,
		Cached:      cached,
	}
	if result.IsSuccess() {
		price := result.MinPrice
		entry.MinPrice = &price
	}

	h.mu.Lock()
	h.entries = append(h.entries, entry)
	if overflow := len(h.entries) - h.limit; overflow > 0 {
		h.entries = append(h.entries[:0:0], h.entries[overflow:]...)
	}
	h.mu.Unlock()
}

// Snapshot returns a copy of the retained entries, oldest first.
func (h *History) Snapshot() []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]Entry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Len reports the number of retained entries.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// WriteJSON exports the retained entries for audit.
func (h *History) WriteJSON(w io.Writer) error {
	entries := h.Snapshot()
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}
