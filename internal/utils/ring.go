package utils

// RingBuffer is a fixed-capacity FIFO of float64 values. Once full, every
// Push overwrites the oldest value. The zero value is unusable; use NewRingBuffer.
type RingBuffer struct {
	data  []float64
	head  int // index of the oldest element
	count int
}

// NewRingBuffer creates a buffer holding at most capacity values.
// A non-positive capacity is treated as 1.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &RingBuffer{data: make([]float64, capacity)}
}

// Push appends v, evicting the oldest value when the buffer is full.
func (r *RingBuffer) Push(v float64) {
	c := len(r.data)
	if r.count < c {
		r.data[(r.head+r.count)%c] = v
		r.count++
		return
	}
	r.data[r.head] = v
	r.head = (r.head + 1) % c
}

// Len returns the number of stored values.
func (r *RingBuffer) Len() int { return r.count }

// Cap returns the buffer capacity.
func (r *RingBuffer) Cap() int { return len(r.data) }

// Full reports whether Len == Cap.
func (r *RingBuffer) Full() bool { return r.count == len(r.data) }

// Values returns a copy of the stored values, oldest first.
func (r *RingBuffer) Values() []float64 {
	out := make([]float64, r.count)
	c := len(r.data)
	for i := 0; i < r.count; i++ {
		out[i] = r.data[(r.head+i)%c]
	}
	return out
}

// Last returns the most recently pushed value.
func (r *RingBuffer) Last() (float64, bool) {
	if r.count == 0 {
		return 0, false
	}
	return r.data[(r.head+r.count-1)%len(r.data)], true
}

// Clear empties the buffer, keeping its capacity.
func (r *RingBuffer) Clear() {
	r.head = 0
	r.count = 0
}

// Drain returns the stored values oldest first and empties the buffer.
func (r *RingBuffer) Drain() []float64 {
	out := r.Values()
	r.Clear()
	return out
}
