package sim

import "log"

// A Buffer is a bounded FIFO queue of simulation items.
type Buffer interface {
	Named

	CanPush() bool
	Push(e interface{})
	Pop() interface{}
	Peek() interface{}
	Capacity() int
	Size() int

	// Clear removes all elements in the buffer.
	Clear()
}

// NewBuffer creates a buffer backed by a fixed-size ring.
func NewBuffer(name string, capacity int) Buffer {
	if capacity <= 0 {
		log.Panic("buffer capacity must be positive")
	}

	return &ringBuffer{
		name:  name,
		slots: make([]interface{}, capacity),
	}
}

// ringBuffer keeps its elements in a fixed slice. head indexes the oldest
// element; new elements land at (head+count) modulo the capacity.
type ringBuffer struct {
	name  string
	slots []interface{}
	head  int
	count int
}

func (b *ringBuffer) Name() string {
	return b.name
}

func (b *ringBuffer) CanPush() bool {
	return b.count < len(b.slots)
}

func (b *ringBuffer) Push(e interface{}) {
	if b.count == len(b.slots) {
		log.Panic("buffer overflow")
	}

	b.slots[(b.head+b.count)%len(b.slots)] = e
	b.count++
}

func (b *ringBuffer) Pop() interface{} {
	if b.count == 0 {
		return nil
	}

	e := b.slots[b.head]
	b.slots[b.head] = nil
	b.head = (b.head + 1) % len(b.slots)
	b.count--

	return e
}

func (b *ringBuffer) Peek() interface{} {
	if b.count == 0 {
		return nil
	}

	return b.slots[b.head]
}

func (b *ringBuffer) Capacity() int {
	return len(b.slots)
}

func (b *ringBuffer) Size() int {
	return b.count
}

func (b *ringBuffer) Clear() {
	for i := range b.slots {
		b.slots[i] = nil
	}

	b.head = 0
	b.count = 0
}
