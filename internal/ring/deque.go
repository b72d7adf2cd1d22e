package ring

// Deque is a growable ring buffer with O(1) push-front, pop-back and
// index-from-front access. It is not safe for concurrent use.
type Deque[T any] struct {
	data  []T
	head  int
	count int
}

// NewDeque constructs a deque with room for capacity elements before the
// first reallocation.
func NewDeque[T any](capacity int) *Deque[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Deque[T]{data: make([]T, capacity)}
}

// Len reports the number of stored elements.
func (d *Deque[T]) Len() int {
	if d == nil {
		return 0
	}
	return d.count
}

// capacity reports the size of the backing array.
func (d *Deque[T]) capacity() int {
	if d == nil {
		return 0
	}
	return len(d.data)
}

// PushFront inserts value before the current front, growing the backing
// array when full.
func (d *Deque[T]) PushFront(value T) {
	if d.count == len(d.data) {
		d.grow()
	}
	d.head = (d.head - 1 + len(d.data)) % len(d.data)
	d.data[d.head] = value
	d.count++
}

// PopBack removes and returns the element at the back.
func (d *Deque[T]) PopBack() (T, bool) {
	var zero T
	if d == nil || d.count == 0 {
		return zero, false
	}
	idx := (d.head + d.count - 1) % len(d.data)
	value := d.data[idx]
	d.data[idx] = zero
	d.count--
	return value, true
}

// At returns the element i positions from the front. It panics when i is
// out of range, matching slice semantics.
func (d *Deque[T]) At(i int) T {
	if i < 0 || i >= d.count {
		panic("ring: index out of range")
	}
	return d.data[(d.head+i)%len(d.data)]
}

// Front returns the newest element.
func (d *Deque[T]) Front() (T, bool) {
	var zero T
	if d == nil || d.count == 0 {
		return zero, false
	}
	return d.data[d.head], true
}

// Back returns the oldest element.
func (d *Deque[T]) Back() (T, bool) {
	var zero T
	if d == nil || d.count == 0 {
		return zero, false
	}
	return d.data[(d.head+d.count-1)%len(d.data)], true
}

// TrimTo pops from the back until at most n elements remain.
func (d *Deque[T]) TrimTo(n int) {
	if n < 0 {
		n = 0
	}
	for d.count > n {
		d.PopBack()
	}
}

// Clear drops every element while keeping the backing array.
func (d *Deque[T]) Clear() {
	if d == nil {
		return
	}
	var zero T
	for i := 0; i < d.count; i++ {
		d.data[(d.head+i)%len(d.data)] = zero
	}
	d.head = 0
	d.count = 0
}

// Each calls fn from front to back until fn returns false.
func (d *Deque[T]) Each(fn func(i int, value T) bool) {
	if d == nil {
		return
	}
	for i := 0; i < d.count; i++ {
		if !fn(i, d.data[(d.head+i)%len(d.data)]) {
			return
		}
	}
}

func (d *Deque[T]) grow() {
	size := len(d.data) * 2
	if size == 0 {
		size = 1
	}
	next := make([]T, size)
	for i := 0; i < d.count; i++ {
		next[i] = d.data[(d.head+i)%len(d.data)]
	}
	d.data = next
	d.head = 0
}
