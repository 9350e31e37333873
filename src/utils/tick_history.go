package utils

import (
	"strings"
	"sync"

	"nepse-data-server/src/models"
)

// -----------------------------------------------------------------------------
// TickHistory keeps a bounded in-memory tail of generated ticks per symbol,
// serving the recent-ticks endpoint without touching the archive database.
// -----------------------------------------------------------------------------

type TickHistory struct {
	mu       sync.RWMutex
	capacity int
	buffers  map[string]*RingBuffer
}

// -----------------------------------------------------------------------------

func NewTickHistory(capacity int) *TickHistory {
	if capacity <= 0 {
		capacity = 1000
	}
	return &TickHistory{
		capacity: capacity,
		buffers:  make(map[string]*RingBuffer),
	}
}

// -----------------------------------------------------------------------------

// Record appends one tick to its symbol's buffer, creating it on first use.
func (th *TickHistory) Record(tick models.MTick) {
	symbol := strings.ToUpper(tick.Symbol)

	th.mu.Lock()
	defer th.mu.Unlock()

	buf, ok := th.buffers[symbol]
	if !ok {
		buf = NewRingBuffer(th.capacity)
		th.buffers[symbol] = buf
	}
	buf.Append(tick.Point())
}

// -----------------------------------------------------------------------------

// Recent returns up to n most recent points for a symbol, oldest first.
func (th *TickHistory) Recent(symbol string, n int) []models.MTickPoint {
	symbol = strings.ToUpper(symbol)

	th.mu.RLock()
	defer th.mu.RUnlock()

	buf, ok := th.buffers[symbol]
	if !ok {
		return []models.MTickPoint{}
	}
	return buf.GetLatest(symbol, n)
}

// -----------------------------------------------------------------------------

// Count returns the number of buffered points for a symbol.
func (th *TickHistory) Count(symbol string) int {
	th.mu.RLock()
	defer th.mu.RUnlock()

	buf, ok := th.buffers[strings.ToUpper(symbol)]
	if !ok {
		return 0
	}
	return buf.Size()
}
