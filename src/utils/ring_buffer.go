package utils

import (
	"nepse-data-server/src/models"
)

// -----------------------------------------------------------------------------
// RingBuffer is a fixed-size circular buffer for tick points.
// True ring buffer - no implicit resizing.
// -----------------------------------------------------------------------------

type RingBuffer struct {
	// Data storage as 2D slice (rows x features)
	data     [][models.RB_NUM_FEATURES]float64
	capacity int
	index    int // Next write position
	size     int // Current number of elements
}

// -----------------------------------------------------------------------------

// NewRingBuffer creates a new buffer with fixed capacity
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = 1000 // Default reasonable size
	}

	return &RingBuffer{
		data:     make([][models.RB_NUM_FEATURES]float64, capacity),
		capacity: capacity,
		index:    0,
		size:     0,
	}
}

// -----------------------------------------------------------------------------

// Append adds a structured data point (Strict Type)
func (rb *RingBuffer) Append(point models.MTickPoint) {
	rb.data[rb.index] = [models.RB_NUM_FEATURES]float64{
		float64(point.Timestamp),
		point.Price,
		float64(point.TickVolume),
		point.ChangePct,
		point.DayProgress,
	}

	rb.index = (rb.index + 1) % rb.capacity

	// Update size (never exceeds capacity)
	if rb.size < rb.capacity {
		rb.size++
	}
}

// -----------------------------------------------------------------------------

// GetLatest returns the n latest records, oldest of them first.
func (rb *RingBuffer) GetLatest(symbol string, n int) []models.MTickPoint {
	if rb.size == 0 || n <= 0 {
		return []models.MTickPoint{}
	}

	count := n
	if n > rb.size {
		count = rb.size
	}

	result := make([]models.MTickPoint, count)

	// Latest data sits just behind the write index.
	startIdx := (rb.index - count + rb.capacity) % rb.capacity

	for i := 0; i < count; i++ {
		idx := (startIdx + i) % rb.capacity
		row := rb.data[idx]

		result[i] = models.MTickPoint{
			Symbol:      symbol,
			Timestamp:   int64(row[models.RB_IDX_TIMESTAMP]),
			Price:       row[models.RB_IDX_PRICE],
			TickVolume:  int64(row[models.RB_IDX_VOLUME]),
			ChangePct:   row[models.RB_IDX_CHANGE],
			DayProgress: row[models.RB_IDX_PROGRESS],
		}
	}

	return result
}

// -----------------------------------------------------------------------------

// Size returns current number of elements
func (rb *RingBuffer) Size() int {
	return rb.size
}

// -----------------------------------------------------------------------------

// Capacity returns buffer capacity (fixed)
func (rb *RingBuffer) Capacity() int {
	return rb.capacity
}

// -----------------------------------------------------------------------------

// IsFull returns whether buffer is full
func (rb *RingBuffer) IsFull() bool {
	return rb.size == rb.capacity
}

// -----------------------------------------------------------------------------

// Clear resets the buffer
func (rb *RingBuffer) Clear() {
	rb.index = 0
	rb.size = 0
}
