package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Buffer", func() {
	var buf Buffer

	BeforeEach(func() {
		buf = NewBuffer("Buf", 2)
	})

	It("should panic on a non-positive capacity", func() {
		Expect(func() {
			NewBuffer("Bad", 0)
		}).To(Panic())
	})

	It("should pop elements in push order", func() {
		buf.Push("a")
		buf.Push("b")

		Expect(buf.Pop()).To(Equal("a"))
		Expect(buf.Pop()).To(Equal("b"))
	})

	It("should report fullness through CanPush", func() {
		Expect(buf.CanPush()).To(BeTrue())

		buf.Push(1)
		buf.Push(2)

		Expect(buf.CanPush()).To(BeFalse())
		Expect(buf.Size()).To(Equal(2))
		Expect(buf.Capacity()).To(Equal(2))
	})

	It("should panic when pushed beyond capacity", func() {
		buf.Push(1)
		buf.Push(2)

		Expect(func() {
			buf.Push(3)
		}).To(Panic())
	})

	It("should return nil when empty", func() {
		Expect(buf.Peek()).To(BeNil())
		Expect(buf.Pop()).To(BeNil())
	})

	It("should peek without removing", func() {
		buf.Push(1)

		Expect(buf.Peek()).To(Equal(1))
		Expect(buf.Size()).To(Equal(1))
	})

	It("should keep FIFO order across many wraparounds", func() {
		next := 0
		for round := 0; round < 5; round++ {
			buf.Push(round * 2)
			buf.Push(round*2 + 1)

			Expect(buf.Pop()).To(Equal(next))
			next++
			Expect(buf.Pop()).To(Equal(next))
			next++
		}

		Expect(buf.Size()).To(Equal(0))
	})

	It("should accept new elements after Clear", func() {
		buf.Push(1)
		buf.Push(2)

		buf.Clear()

		Expect(buf.Size()).To(Equal(0))
		Expect(buf.Peek()).To(BeNil())

		buf.Push(3)
		Expect(buf.Pop()).To(Equal(3))
	})
})
