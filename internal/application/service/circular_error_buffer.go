package service

import (
	"sync"
	"time"

	"stocknotifier/internal/domain/entity"
)

// circularErrorBuffer is a thread-safe fixed-capacity ring of processing
// errors. When full, the oldest entry is overwritten.
type circularErrorBuffer struct {
	buffer   []*entity.ProcessingError
	capacity int
	size     int
	head     int // next position to write
	tail     int // oldest element
	mu       sync.RWMutex
}

// newCircularErrorBuffer creates a ring buffer with the given capacity.
func newCircularErrorBuffer(capacity int) *circularErrorBuffer {
	if capacity <= 0 {
		return nil
	}
	return &circularErrorBuffer{
		buffer:   make([]*entity.ProcessingError, capacity),
		capacity: capacity,
	}
}

// Add appends an error, overwriting the oldest entry when full.
func (b *circularErrorBuffer) Add(err *entity.ProcessingError) bool {
	if err == nil {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.buffer[b.head] = err
	b.head = (b.head + 1) % b.capacity

	if b.size < b.capacity {
		b.size++
	} else {
		b.tail = (b.tail + 1) % b.capacity
	}
	return true
}

// Size returns the current number of errors in the buffer.
func (b *circularErrorBuffer) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

// Capacity returns the maximum number of errors the buffer can hold.
func (b *circularErrorBuffer) Capacity() int {
	return b.capacity
}

// GetAll returns all errors in order from oldest to newest.
func (b *circularErrorBuffer) GetAll() []*entity.ProcessingError {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := make([]*entity.ProcessingError, 0, b.size)
	for i := 0; i < b.size; i++ {
		result = append(result, b.buffer[(b.tail+i)%b.capacity])
	}
	return result
}

// Recent returns up to n of the newest errors, oldest first.
func (b *circularErrorBuffer) Recent(n int) []*entity.ProcessingError {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if n > b.size {
		n = b.size
	}
	result := make([]*entity.ProcessingError, 0, n)
	start := b.size - n
	for i := start; i < b.size; i++ {
		result = append(result, b.buffer[(b.tail+i)%b.capacity])
	}
	return result
}

// CountSince returns how many recorded errors are newer than the cutoff.
func (b *circularErrorBuffer) CountSince(cutoff time.Time) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := 0
	for i := 0; i < b.size; i++ {
		if b.buffer[(b.tail+i)%b.capacity].Timestamp.After(cutoff) {
			count++
		}
	}
	return count
}

// Clear removes all entries.
func (b *circularErrorBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.buffer {
		b.buffer[i] = nil
	}
	b.size = 0
	b.head = 0
	b.tail = 0
}
