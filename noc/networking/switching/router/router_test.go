package router

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/wormhole/noc/networking/routing"
	"github.com/sarchlab/wormhole/sim"
)

var _ = Describe("Builder", func() {
	var engine *sim.SerialEngine

	BeforeEach(func() {
		engine = sim.NewSerialEngine()
	})

	It("should require an engine", func() {
		Expect(func() {
			MakeBuilder().Build("Router")
		}).To(Panic())
	})

	It("should require the coordinate to be inside the mesh", func() {
		Expect(func() {
			MakeBuilder().
				WithEngine(engine).
				WithMeshSize(2, 2).
				WithCoord(routing.Coord{X: 2, Y: 0}).
				Build("Router")
		}).To(Panic())
	})

	It("should require at least one VC and a positive buffer depth",
		func() {
			Expect(func() {
				MakeBuilder().
					WithEngine(engine).
					WithNumVCs(0).
					Build("Router")
			}).To(Panic())

			Expect(func() {
				MakeBuilder().
					WithEngine(engine).
					WithBufferDepth(0).
					Build("Router")
			}).To(Panic())
		})

	It("should build an idle router", func() {
		r := MakeBuilder().
			WithEngine(engine).
			WithMeshSize(2, 2).
			WithCoord(routing.Coord{X: 1, Y: 0}).
			Build("Router")

		Expect(r.Coord()).To(Equal(routing.Coord{X: 1, Y: 0}))
		Expect(r.LocalPort()).NotTo(BeNil())

		for _, s := range r.VCStatuses() {
			Expect(s.State).To(Equal(VCIdle))
			Expect(s.Occupancy).To(Equal(0))
		}
	})
})

var _ = Describe("Router", func() {
	var engine *sim.SerialEngine

	BeforeEach(func() {
		engine = sim.NewSerialEngine()
	})

	buildSingle := func(numVCs int) *Comp {
		return MakeBuilder().
			WithEngine(engine).
			WithNumVCs(numVCs).
			Build("Router")
	}

	// connectPair builds a 2x1 mesh of two routers joined by a pair of
	// links.
	connectPair := func() (*Comp, *Comp) {
		builder := MakeBuilder().
			WithEngine(engine).
			WithMeshSize(2, 1)

		r0 := builder.WithCoord(routing.Coord{X: 0, Y: 0}).Build("Router0")
		r1 := builder.WithCoord(routing.Coord{X: 1, Y: 0}).Build("Router1")

		toEast := NewLink("LinkEast", 2, 4)
		toWest := NewLink("LinkWest", 2, 4)
		toEast.SetNotify(r0.TickLater, r1.TickLater)
		toWest.SetNotify(r1.TickLater, r0.TickLater)

		r0.ConnectLink(routing.East, toEast, toWest)
		r1.ConnectLink(routing.West, toWest, toEast)

		return r0, r1
	}

	It("should deliver a packet addressed to its own node", func() {
		r := buildSingle(2)

		id, err := r.Inject(routing.Coord{X: 0, Y: 0}, make([]byte, 100))
		Expect(err).NotTo(HaveOccurred())

		Expect(engine.Run()).To(Succeed())

		stats := r.Stats()
		Expect(stats.NumPacketsInjected).To(Equal(uint64(1)))
		Expect(stats.NumPacketsDelivered).To(Equal(uint64(1)))
		Expect(stats.PacketLatencies).To(HaveKey(id))
	})

	It("should complete the pipeline within one cycle for a granted flit",
		func() {
			r := buildSingle(2)

			_, err := r.Inject(routing.Coord{X: 0, Y: 0}, make([]byte, 16))
			Expect(err).NotTo(HaveOccurred())

			r.Tick()

			report := r.CycleReport()
			Expect(report.DeliveredFlits).To(HaveLen(1))
			Expect(report.DeliveredPackets).To(HaveLen(1))
		})

	It("should reject injection when every local VC is claimed", func() {
		r := buildSingle(1)

		_, err := r.Inject(routing.Coord{X: 0, Y: 0}, make([]byte, 16))
		Expect(err).NotTo(HaveOccurred())

		_, err = r.Inject(routing.Coord{X: 0, Y: 0}, make([]byte, 16))
		Expect(err).To(MatchError(ErrNoFreeVC))
	})

	It("should panic on a destination outside the mesh", func() {
		r := buildSingle(2)

		Expect(func() {
			r.Inject(routing.Coord{X: 5, Y: 5}, make([]byte, 16))
		}).To(Panic())
	})

	It("should stream a packet that overflows the input buffer", func() {
		// 8 flits against a depth-4 buffer exercises the pending
		// injection queue.
		r := buildSingle(2)

		_, err := r.Inject(routing.Coord{X: 0, Y: 0}, make([]byte, 256))
		Expect(err).NotTo(HaveOccurred())

		Expect(engine.Run()).To(Succeed())
		Expect(r.Stats().NumPacketsDelivered).To(Equal(uint64(1)))
	})

	It("should deliver a packet across a link", func() {
		r0, r1 := connectPair()

		id, err := r0.Inject(routing.Coord{X: 1, Y: 0}, make([]byte, 100))
		Expect(err).NotTo(HaveOccurred())

		Expect(engine.Run()).To(Succeed())

		Expect(r0.Stats().NumPacketsInjected).To(Equal(uint64(1)))
		Expect(r1.Stats().NumPacketsDelivered).To(Equal(uint64(1)))
		Expect(r1.Stats().PacketLatencies).To(HaveKey(id))
	})

	It("should return every credit after the traffic drains", func() {
		r0, r1 := connectPair()

		_, err := r0.Inject(routing.Coord{X: 1, Y: 0}, make([]byte, 100))
		Expect(err).NotTo(HaveOccurred())
		_, err = r1.Inject(routing.Coord{X: 0, Y: 0}, make([]byte, 100))
		Expect(err).NotTo(HaveOccurred())

		Expect(engine.Run()).To(Succeed())

		for _, r := range []*Comp{r0, r1} {
			Expect(r.Stats().NumPacketsDelivered).To(Equal(uint64(1)))
			for _, s := range r.VCStatuses() {
				Expect(s.State).To(Equal(VCIdle))
				Expect(s.Occupancy).To(Equal(0))
			}
		}
	})

	It("should keep flits of concurrent packets on separate VCs", func() {
		r0, r1 := connectPair()

		id1, err := r0.Inject(routing.Coord{X: 1, Y: 0}, make([]byte, 128))
		Expect(err).NotTo(HaveOccurred())
		id2, err := r0.Inject(routing.Coord{X: 1, Y: 0}, make([]byte, 128))
		Expect(err).NotTo(HaveOccurred())

		Expect(engine.Run()).To(Succeed())

		stats := r1.Stats()
		Expect(stats.NumPacketsDelivered).To(Equal(uint64(2)))
		Expect(stats.PacketLatencies).To(HaveKey(id1))
		Expect(stats.PacketLatencies).To(HaveKey(id2))
	})

	It("should grant one flit per cycle and serve contending VCs in turn",
		func() {
			const (
				numVCs      = 2
				bufferDepth = 4
			)

			// Two packets from the same node contend for the East output
			// on separate VCs. The switch allocator must grant at most one
			// flit to that output per cycle and must rotate service so
			// that neither VC starves while the other drains.
			engine := &stepEngine{}
			builder := MakeBuilder().
				WithEngine(engine).
				WithNumVCs(numVCs).
				WithBufferDepth(bufferDepth).
				WithMeshSize(2, 1)

			r0 := builder.
				WithCoord(routing.Coord{X: 0, Y: 0}).
				Build("Router0")
			r1 := builder.
				WithCoord(routing.Coord{X: 1, Y: 0}).
				Build("Router1")

			toEast := NewLink("LinkEast", numVCs, bufferDepth)
			toWest := NewLink("LinkWest", numVCs, bufferDepth)
			r0.ConnectLink(routing.East, toEast, toWest)
			r1.ConnectLink(routing.West, toWest, toEast)

			// 128-byte packets split into four flits each, filling both
			// local VC buffers of Router0.
			_, err := r0.Inject(
				routing.Coord{X: 1, Y: 0}, make([]byte, 128))
			Expect(err).NotTo(HaveOccurred())
			_, err = r0.Inject(
				routing.Coord{X: 1, Y: 0}, make([]byte, 128))
			Expect(err).NotTo(HaveOccurred())

			localOccupancies := func() []int {
				var occ []int
				for _, s := range r0.VCStatuses() {
					if s.Port == routing.Local {
						occ = append(occ, s.Occupancy)
					}
				}
				return occ
			}

			prevGrants := uint64(0)
			firstGrantCycle := uint64(0)
			for cycle := uint64(1); cycle <= 60; cycle++ {
				engine.now = sim.VTimeInSec(float64(cycle) * 1e-9)
				r0.Tick()
				r1.Tick()

				grants := r0.Stats().GrantCounts[routing.East]
				Expect(grants-prevGrants).To(BeNumerically("<=", 1),
					"more than one East grant in cycle %d", cycle)
				if firstGrantCycle == 0 && grants > 0 {
					firstGrantCycle = cycle
				}
				prevGrants = grants

				for vc := 0; vc < numVCs; vc++ {
					credits := toEast.Credits().Peek(vc)
					Expect(credits).To(BeNumerically(">=", 0))
					Expect(credits).To(BeNumerically("<=", bufferDepth))
				}

				// Both contenders must see a grant within two full
				// rotations of the first one.
				if firstGrantCycle > 0 &&
					cycle == firstGrantCycle+2*numVCs-1 {
					for vc, occ := range localOccupancies() {
						Expect(occ).To(
							BeNumerically("<", bufferDepth),
							"local VC %d not served within %d cycles",
							vc, 2*numVCs)
					}
				}
			}

			Expect(r1.Stats().NumPacketsDelivered).To(Equal(uint64(2)))
			for vc := 0; vc < numVCs; vc++ {
				Expect(toEast.Credits().Peek(vc)).To(Equal(bufferDepth))
			}
		})

	It("should clear all state on reset", func() {
		r := buildSingle(2)

		_, err := r.Inject(routing.Coord{X: 0, Y: 0}, make([]byte, 100))
		Expect(err).NotTo(HaveOccurred())

		r.Reset()

		stats := r.Stats()
		Expect(stats.NumPacketsInjected).To(Equal(uint64(0)))
		Expect(stats.NumPacketsDelivered).To(Equal(uint64(0)))
		Expect(stats.PacketLatencies).To(BeEmpty())

		for _, s := range r.VCStatuses() {
			Expect(s.State).To(Equal(VCIdle))
			Expect(s.Occupancy).To(Equal(0))
		}

		Expect(engine.Run()).To(Succeed())
		Expect(r.Stats().NumPacketsDelivered).To(Equal(uint64(0)))
	})
})

// stepEngine advances simulated time only when a test tells it to, so the
// test can tick routers by hand one cycle at a time.
type stepEngine struct {
	sim.HookableBase
	now sim.VTimeInSec
}

func (e *stepEngine) CurrentTime() sim.VTimeInSec {
	return e.now
}

func (e *stepEngine) Schedule(sim.Event) {}

func (e *stepEngine) Run() error {
	return nil
}

func (e *stepEngine) Pause() {}

func (e *stepEngine) Continue() {}

func (e *stepEngine) RegisterSimulationEndHandler(sim.SimulationEndHandler) {}

func (e *stepEngine) Finished() {}
