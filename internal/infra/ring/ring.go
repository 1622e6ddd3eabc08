// Package ring provides a fixed-capacity circular buffer. Once full, each
// push overwrites the oldest element.
package ring

type Buffer[T any] struct {
	items []T
	head  int
	count int
}

func New[T any](capacity int) *Buffer[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer[T]{items: make([]T, capacity)}
}

func (b *Buffer[T]) Push(item T) {
	tail := (b.head + b.count) % len(b.items)
	b.items[tail] = item
	if b.count == len(b.items) {
		b.head = (b.head + 1) % len(b.items)
	} else {
		b.count++
	}
}

func (b *Buffer[T]) Len() int {
	return b.count
}

func (b *Buffer[T]) Cap() int {
	return len(b.items)
}

func (b *Buffer[T]) Full() bool {
	return b.count == len(b.items)
}

// At returns the i-th element counting from the oldest. It panics when i is
// out of range, mirroring slice indexing.
func (b *Buffer[T]) At(i int) T {
	if i < 0 || i >= b.count {
		panic("ring: index out of range")
	}
	return b.items[(b.head+i)%len(b.items)]
}

// Oldest returns the least recently pushed element.
func (b *Buffer[T]) Oldest() (T, bool) {
	var zero T
	if b.count == 0 {
		return zero, false
	}
	return b.items[b.head], true
}

// Newest returns the most recently pushed element.
func (b *Buffer[T]) Newest() (T, bool) {
	var zero T
	if b.count == 0 {
		return zero, false
	}
	return b.items[(b.head+b.count-1)%len(b.items)], true
}

// Do calls fn for every element, oldest to newest.
func (b *Buffer[T]) Do(fn func(T)) {
	for i := 0; i < b.count; i++ {
		fn(b.items[(b.head+i)%len(b.items)])
	}
}

func (b *Buffer[T]) Reset() {
	b.head = 0
	b.count = 0
}
