package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	gomock "go.uber.org/mock/gomock"
)

func newScheduledMockEvent(
	mockCtrl *gomock.Controller,
	time VTimeInSec,
	handler Handler,
	secondary bool,
) *MockEvent {
	evt := NewMockEvent(mockCtrl)
	evt.EXPECT().Time().Return(time).AnyTimes()
	evt.EXPECT().Handler().Return(handler).AnyTimes()
	evt.EXPECT().IsSecondary().Return(secondary).AnyTimes()

	return evt
}

var _ = Describe("SerialEngine", func() {
	var (
		mockCtrl *gomock.Controller
		engine   *SerialEngine
		handler  *MockHandler
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		engine = NewSerialEngine()
		handler = NewMockHandler(mockCtrl)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should run events in time order", func() {
		var handledTimes []VTimeInSec
		handler.EXPECT().
			Handle(gomock.Any()).
			DoAndReturn(func(e Event) error {
				handledTimes = append(handledTimes, e.Time())
				return nil
			}).
			Times(3)

		for _, t := range []VTimeInSec{3e-9, 1e-9, 2e-9} {
			engine.Schedule(
				newScheduledMockEvent(mockCtrl, t, handler, false))
		}

		Expect(engine.Run()).To(Succeed())
		Expect(handledTimes).To(Equal([]VTimeInSec{1e-9, 2e-9, 3e-9}))
		Expect(engine.CurrentTime()).To(
			BeNumerically("~", 3e-9, 1e-12))
	})

	It("should run same-time secondary events after primary events",
		func() {
			var order []string
			handler.EXPECT().
				Handle(gomock.Any()).
				DoAndReturn(func(e Event) error {
					if e.IsSecondary() {
						order = append(order, "secondary")
					} else {
						order = append(order, "primary")
					}
					return nil
				}).
				Times(2)

			engine.Schedule(
				newScheduledMockEvent(mockCtrl, 1e-9, handler, true))
			engine.Schedule(
				newScheduledMockEvent(mockCtrl, 1e-9, handler, false))

			Expect(engine.Run()).To(Succeed())
			Expect(order).To(Equal([]string{"primary", "secondary"}))
		})

	It("should panic when scheduling an event in the past", func() {
		handler.EXPECT().Handle(gomock.Any()).Return(nil)
		engine.Schedule(
			newScheduledMockEvent(mockCtrl, 1e-9, handler, false))
		Expect(engine.Run()).To(Succeed())

		Expect(func() {
			engine.Schedule(
				newScheduledMockEvent(mockCtrl, 0.5e-9, handler, false))
		}).To(Panic())
	})

	It("should call simulation end handlers when finished", func() {
		endHandler := &countingEndHandler{}
		engine.RegisterSimulationEndHandler(endHandler)

		engine.Finished()

		Expect(endHandler.count).To(Equal(1))
	})
})

type countingEndHandler struct {
	count int
}

func (h *countingEndHandler) Handle(_ VTimeInSec) {
	h.count++
}
