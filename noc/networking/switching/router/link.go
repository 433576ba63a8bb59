package router

import (
	"log"

	"github.com/sarchlab/wormhole/noc/messaging"
	"github.com/sarchlab/wormhole/noc/networking/credit"
)

type stampedFlit struct {
	flit  *messaging.Flit
	cycle uint64
}

type stampedCredit struct {
	vc    int
	cycle uint64
}

// A Link is one direction of a physical channel between two adjacent
// routers. It carries flits downstream and credits upstream. A flit sent at
// cycle N becomes visible to the receiver at cycle N+1, and a credit
// returned at cycle N becomes spendable by the sender at cycle N+1,
// regardless of the order the two routers tick in.
//
// The credit tracker held by the link is the only state the two routers
// share.
type Link struct {
	name    string
	credits *credit.Tracker

	flits   []stampedFlit
	returns []stampedCredit

	notifyUpstream   func()
	notifyDownstream func()
}

// NewLink creates a link whose downstream input buffers hold bufferDepth
// flits per virtual channel.
func NewLink(name string, numVCs, bufferDepth int) *Link {
	return &Link{
		name:    name,
		credits: credit.NewTracker(name+".Credits", numVCs, bufferDepth),
	}
}

// Name returns the name of the link.
func (l *Link) Name() string {
	return l.name
}

// Credits returns the credit tracker of the link. The sender consults it
// before sending; the receiver replenishes it through ReturnCredit.
func (l *Link) Credits() *credit.Tracker {
	return l.credits
}

// SetNotify registers wake-up callbacks. The downstream callback fires when
// a flit is sent; the upstream callback fires when a credit is returned or
// when the channel register drains.
func (l *Link) SetNotify(upstream, downstream func()) {
	l.notifyUpstream = upstream
	l.notifyDownstream = downstream
}

// CanSend checks if the channel register can take another flit. The register
// holds two slots so that full throughput is kept no matter which end of the
// link ticks first within a cycle.
func (l *Link) CanSend() bool {
	return len(l.flits) < 2
}

// Send places a flit on the link at the given cycle.
func (l *Link) Send(f *messaging.Flit, cycle uint64) {
	if !l.CanSend() {
		log.Panicf("link %s: channel register overrun", l.name)
	}

	l.flits = append(l.flits, stampedFlit{flit: f, cycle: cycle})

	if l.notifyDownstream != nil {
		l.notifyDownstream()
	}
}

// Recv takes the flit that crossed the link before the given cycle, if any.
// At most one flit is received per cycle.
func (l *Link) Recv(cycle uint64) *messaging.Flit {
	if len(l.flits) == 0 || l.flits[0].cycle >= cycle {
		return nil
	}

	f := l.flits[0].flit
	l.flits = l.flits[1:]

	if l.notifyUpstream != nil {
		l.notifyUpstream()
	}

	return f
}

// ReturnCredit gives a buffer slot back to the sender at the given cycle.
func (l *Link) ReturnCredit(vc int, cycle uint64) {
	l.returns = append(l.returns, stampedCredit{vc: vc, cycle: cycle})

	if l.notifyUpstream != nil {
		l.notifyUpstream()
	}
}

// MatureCredits applies the credit returns that crossed the link before the
// given cycle to the tracker. The sender calls it at the beginning of its
// cycle. It returns the number of credits applied.
func (l *Link) MatureCredits(cycle uint64) int {
	applied := 0
	for len(l.returns) > 0 && l.returns[0].cycle < cycle {
		l.credits.Release(l.returns[0].vc)
		l.returns = l.returns[1:]
		applied++
	}

	return applied
}

// Reset drops all in-flight flits and credit returns and refills the
// tracker.
func (l *Link) Reset() {
	l.flits = nil
	l.returns = nil
	l.credits.Reset()
}
