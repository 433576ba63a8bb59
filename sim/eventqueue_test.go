package sim

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	gomock "go.uber.org/mock/gomock"
)

var _ = Describe("EventQueueImpl", func() {
	var (
		mockCtrl *gomock.Controller
		queue    *EventQueueImpl
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		queue = NewEventQueue()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should pop in order", func() {
		numEvents := 100
		for i := 0; i < numEvents; i++ {
			event := NewMockEvent(mockCtrl)
			event.EXPECT().
				Time().
				Return(VTimeInSec(rand.Float64() / 1e8)).
				AnyTimes()
			queue.Push(event)
		}

		now := VTimeInSec(-1)
		for i := 0; i < numEvents; i++ {
			event := queue.Pop()
			Expect(event.Time() > now).To(BeTrue())
			now = event.Time()
		}
	})

	It("should peek without removing", func() {
		event := NewMockEvent(mockCtrl)
		event.EXPECT().Time().Return(VTimeInSec(1)).AnyTimes()
		queue.Push(event)

		Expect(queue.Peek()).To(BeIdenticalTo(event))
		Expect(queue.Len()).To(Equal(1))
	})
})

var _ = Describe("InsertionQueue", func() {
	var (
		mockCtrl *gomock.Controller
		queue    *InsertionQueue
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		queue = NewInsertionQueue()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should pop in order", func() {
		numEvents := 100
		for i := 0; i < numEvents; i++ {
			event := NewMockEvent(mockCtrl)
			event.EXPECT().
				Time().
				Return(VTimeInSec(rand.Float64() / 1e8)).
				AnyTimes()
			queue.Push(event)
		}

		now := VTimeInSec(-1)
		for i := 0; i < numEvents; i++ {
			event := queue.Pop()
			Expect(event.Time() > now).To(BeTrue())
			now = event.Time()
		}
	})

	It("should keep same-time events in push order", func() {
		first := NewMockEvent(mockCtrl)
		first.EXPECT().Time().Return(VTimeInSec(1)).AnyTimes()
		second := NewMockEvent(mockCtrl)
		second.EXPECT().Time().Return(VTimeInSec(1)).AnyTimes()

		queue.Push(first)
		queue.Push(second)

		Expect(queue.Pop()).To(BeIdenticalTo(first))
		Expect(queue.Pop()).To(BeIdenticalTo(second))
	})
})
