// Command wormhole runs random or all-to-all traffic through a mesh of
// wormhole routers and reports per-router statistics.
package main

import (
	"fmt"
	"math/rand"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/wormhole/datarecording"
	"github.com/sarchlab/wormhole/monitoring"
	"github.com/sarchlab/wormhole/noc/acceptance"
	"github.com/sarchlab/wormhole/noc/networking/mesh"
	"github.com/sarchlab/wormhole/noc/networking/routing"
	"github.com/sarchlab/wormhole/sim"
)

var (
	width            int
	height           int
	numVCs           int
	bufferDepth      int
	flitPayloadBytes int
	numPackets       uint64
	allToAll         bool
	payloadBytes     int
	seed             int64
	dbPath           string
	monitorOn        bool
	monitorPort      int
)

var rootCmd = &cobra.Command{
	Use:   "wormhole",
	Short: "Simulate traffic on a mesh of virtual-channel wormhole routers",
	Run: func(cmd *cobra.Command, args []string) {
		run()
	},
}

func init() {
	_ = godotenv.Load()

	rootCmd.Flags().IntVar(&width, "width", 4, "mesh width")
	rootCmd.Flags().IntVar(&height, "height", 4, "mesh height")
	rootCmd.Flags().IntVar(&numVCs, "num-vcs", 2,
		"virtual channels per port")
	rootCmd.Flags().IntVar(&bufferDepth, "buffer-depth", 4,
		"per-VC buffer depth in flits")
	rootCmd.Flags().IntVar(&flitPayloadBytes, "flit-bytes", 32,
		"payload bytes per flit")
	rootCmd.Flags().Uint64Var(&numPackets, "packets", 1024,
		"number of random packets to send")
	rootCmd.Flags().BoolVar(&allToAll, "all-to-all", false,
		"send one packet from every node to every other node instead")
	rootCmd.Flags().IntVar(&payloadBytes, "payload-bytes", 64,
		"payload bytes per packet in all-to-all traffic")
	rootCmd.Flags().Int64Var(&seed, "seed", 1,
		"random seed for traffic generation")
	rootCmd.Flags().StringVar(&dbPath, "db", "",
		"record statistics in this SQLite database")
	rootCmd.Flags().BoolVar(&monitorOn, "monitor", false,
		"start the monitoring server")
	rootCmd.Flags().IntVar(&monitorPort, "monitor-port", 0,
		"port for the monitoring server, random if 0")
}

type routerStatEntry struct {
	Router              string
	NumPacketsInjected  uint64
	NumPacketsDelivered uint64
	NumLocalGrants      uint64
}

type latencyEntry struct {
	Router   string
	PacketID string
	Cycles   uint64
}

func run() {
	engine := sim.NewSerialEngine()
	freq := 1 * sim.GHz

	connector := mesh.NewConnector().
		WithEngine(engine).
		WithFreq(freq).
		WithNumVCs(numVCs).
		WithBufferDepth(bufferDepth).
		WithFlitPayloadBytes(flitPayloadBytes)
	connector.CreateNetwork("Mesh", width, height)

	test := acceptance.NewTest()

	var agents []*acceptance.Agent
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			coord := routing.Coord{X: x, Y: y}
			agent := acceptance.NewAgent(engine, freq,
				fmt.Sprintf("Agent[%d][%d]", x, y), coord, test)
			connector.AddTile(coord, agent.AgentPort)
			agent.SetRouterDst(
				connector.Router(coord).LocalPort().AsRemote())

			test.RegisterAgent(agent)
			agents = append(agents, agent)
		}
	}

	if allToAll {
		test.GenerateAllToAll(payloadBytes)
	} else {
		test.GenerateMsgs(numPackets, rand.New(rand.NewSource(seed)))
	}

	if monitorOn {
		monitor := monitoring.NewMonitor().WithPortNumber(monitorPort)
		monitor.RegisterEngine(engine)
		for _, r := range connector.Routers() {
			monitor.RegisterComponent(r)
		}
		for _, a := range agents {
			monitor.RegisterComponent(a)
		}
		monitor.StartServer()
	}

	for _, a := range agents {
		a.TickLater()
	}

	err := engine.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "simulation error: %v\n", err)
		atexit.Exit(1)
	}

	test.MustHaveReceivedAllMsgs()
	fmt.Printf("All %d packets delivered, simulated time %.9fs\n",
		test.NumReceived(), engine.CurrentTime())

	reportStats(connector)

	atexit.Exit(0)
}

func reportStats(connector *mesh.Connector) {
	var recorder datarecording.DataRecorder
	if dbPath != "" {
		recorder = datarecording.New(dbPath)
		recorder.CreateTable("router_stats", routerStatEntry{})
		recorder.CreateTable("packet_latency", latencyEntry{})
	}

	var totalLatency, numLatencies uint64

	for _, r := range connector.Routers() {
		stats := r.Stats()

		fmt.Printf("%s: injected %d, delivered %d\n",
			r.Name(),
			stats.NumPacketsInjected,
			stats.NumPacketsDelivered)

		for _, cycles := range stats.PacketLatencies {
			totalLatency += cycles
			numLatencies++
		}

		if recorder == nil {
			continue
		}

		recorder.InsertData("router_stats", routerStatEntry{
			Router:              r.Name(),
			NumPacketsInjected:  stats.NumPacketsInjected,
			NumPacketsDelivered: stats.NumPacketsDelivered,
			NumLocalGrants:      stats.GrantCounts[routing.Local],
		})

		for id, cycles := range stats.PacketLatencies {
			recorder.InsertData("packet_latency", latencyEntry{
				Router:   r.Name(),
				PacketID: id,
				Cycles:   cycles,
			})
		}
	}

	if numLatencies > 0 {
		fmt.Printf("Average packet latency: %.2f cycles\n",
			float64(totalLatency)/float64(numLatencies))
	}

	if recorder != nil {
		recorder.Flush()
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		atexit.Exit(1)
	}
}
