package router

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/wormhole/noc/messaging"
	"github.com/sarchlab/wormhole/noc/networking/routing"
)

func sampleFlits(payloadBytes, flitPayloadBytes int) []*messaging.Flit {
	pkt := messaging.NewPacket(
		routing.Coord{X: 0, Y: 0},
		routing.Coord{X: 1, Y: 0},
		make([]byte, payloadBytes),
	)

	return messaging.Split(pkt, flitPayloadBytes)
}

var _ = Describe("Link", func() {
	var link *Link

	BeforeEach(func() {
		link = NewLink("Link", 2, 4)
	})

	It("should start with full credits", func() {
		Expect(link.Credits().Peek(0)).To(Equal(4))
		Expect(link.Credits().Peek(1)).To(Equal(4))
	})

	It("should make a flit visible only on a later cycle", func() {
		f := sampleFlits(16, 32)[0]

		link.Send(f, 1)

		Expect(link.Recv(1)).To(BeNil())
		Expect(link.Recv(2)).To(BeIdenticalTo(f))
		Expect(link.Recv(3)).To(BeNil())
	})

	It("should deliver flits in send order", func() {
		flits := sampleFlits(64, 32)

		link.Send(flits[0], 1)
		link.Send(flits[1], 2)

		Expect(link.Recv(3)).To(BeIdenticalTo(flits[0]))
		Expect(link.Recv(3)).To(BeIdenticalTo(flits[1]))
	})

	It("should hold at most two in-flight flits", func() {
		flits := sampleFlits(96, 32)

		link.Send(flits[0], 1)
		Expect(link.CanSend()).To(BeTrue())

		link.Send(flits[1], 2)
		Expect(link.CanSend()).To(BeFalse())

		Expect(func() {
			link.Send(flits[2], 3)
		}).To(Panic())
	})

	It("should mature a returned credit only on a later cycle", func() {
		Expect(link.Credits().TryReserve(0)).To(BeTrue())
		Expect(link.Credits().Peek(0)).To(Equal(3))

		link.ReturnCredit(0, 5)

		Expect(link.MatureCredits(5)).To(Equal(0))
		Expect(link.Credits().Peek(0)).To(Equal(3))

		Expect(link.MatureCredits(6)).To(Equal(1))
		Expect(link.Credits().Peek(0)).To(Equal(4))
	})

	It("should notify the downstream router on send", func() {
		notified := 0
		link.SetNotify(func() {}, func() { notified++ })

		link.Send(sampleFlits(16, 32)[0], 1)

		Expect(notified).To(Equal(1))
	})

	It("should notify the upstream router on receive and credit return",
		func() {
			notified := 0
			link.SetNotify(func() { notified++ }, func() {})

			link.Send(sampleFlits(16, 32)[0], 1)
			link.Recv(2)
			link.ReturnCredit(0, 2)

			Expect(notified).To(Equal(2))
		})

	It("should drop in-flight state on reset", func() {
		link.Credits().TryReserve(0)
		link.Send(sampleFlits(16, 32)[0], 1)
		link.ReturnCredit(1, 1)

		link.Reset()

		Expect(link.Recv(10)).To(BeNil())
		Expect(link.MatureCredits(10)).To(Equal(0))
		Expect(link.Credits().Peek(0)).To(Equal(4))
	})
})
