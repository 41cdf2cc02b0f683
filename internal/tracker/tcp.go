package tracker

import (
	"log"

	"pcaptrack/internal/fingerprint"
	"pcaptrack/internal/model"
	"pcaptrack/internal/sink"
)

// tcpState is the simplified, two-value TCP state machine: LISTEN once a
// flow is recognized, CLOSED once a FIN has been observed.
type tcpState uint8

const (
	tcpListen tcpState = iota
	tcpClosed
)

type tcpEntry struct {
	src, dst     uint32
	sport, dport uint16

	firstSeenS  uint64
	firstSeenUS uint32
	lastActiveS uint64
	lastActiveUS uint32

	state tcpState
}

// TCPTracker tracks TCP connections with the two-state machine described
// in the component design: a flow opens on an observed SYN+ACK and
// closes on an observed FIN. Closure is observed, not inferred, so there
// is no idle-timeout pruning — only state-driven pruning of CLOSED
// entries.
type TCPTracker struct {
	entries []*tcpEntry
	sink    sink.Sink

	opened uint64
	closed uint64
}

// NewTCPTracker creates a TCP tracker that reports through s.
func NewTCPTracker(s sink.Sink) *TCPTracker {
	return &TCPTracker{sink: s}
}

func (t *TCPTracker) find(pkt *model.Packet) *tcpEntry {
	for _, e := range t.entries {
		if e.state == tcpClosed {
			continue
		}
		if matchesTCPUDP(e.src, e.dst, e.sport, e.dport, pkt.SrcIP, pkt.DstIP, pkt.SrcPort, pkt.DstPort) {
			return e
		}
	}
	return nil
}

// OnPacket processes a single TCP packet, possibly opening or closing a
// flow and reporting the transition through the sink.
func (t *TCPTracker) OnPacket(pkt *model.Packet) {
	if e := t.find(pkt); e != nil {
		if pkt.TimestampS > e.lastActiveS || (pkt.TimestampS == e.lastActiveS && pkt.TimestampUS >= e.lastActiveUS) {
			e.lastActiveS, e.lastActiveUS = pkt.TimestampS, pkt.TimestampUS
		}
		if pkt.HasTCPFlag(model.TCPFlagFIN) {
			ev := t.buildEvent(e)
			ev.EndTimestampS = pkt.TimestampS
			ev.EndTimestampUS = pkt.TimestampUS
			e.state = tcpClosed
			t.closed++
			if err := t.sink.ReportClose(ev); err != nil {
				log.Printf("tracker(tcp): failed to report close: %v", err)
			}
		}
		return
	}

	if pkt.HasTCPFlag(model.TCPFlagSYN | model.TCPFlagACK) {
		// The entry takes the opening packet's own src/dst/ports as they
		// are, not transposed to the responder's perspective; see
		// DESIGN.md.
		e := &tcpEntry{
			src:         pkt.SrcIP,
			dst:         pkt.DstIP,
			sport:       pkt.SrcPort,
			dport:       pkt.DstPort,
			firstSeenS:  pkt.TimestampS,
			firstSeenUS: pkt.TimestampUS,
			lastActiveS: pkt.TimestampS,
			lastActiveUS: pkt.TimestampUS,
			state:       tcpListen,
		}
		t.entries = append(t.entries, e)
		t.opened++
		if err := t.sink.ReportOpen(t.buildEvent(e)); err != nil {
			log.Printf("tracker(tcp): failed to report open: %v", err)
		}
	}
}

func (t *TCPTracker) buildEvent(e *tcpEntry) *model.ConnectionEvent {
	fp := fingerprint.Compute(fingerprint.Fields{
		Src:         e.src,
		Dst:         e.dst,
		L4Src:       e.sport,
		L4Dst:       e.dport,
		Protocol:    uint16(model.ProtoTCP),
		TimestampS:  e.firstSeenS,
		TimestampUS: uint64(e.firstSeenUS),
	})
	return &model.ConnectionEvent{
		Fingerprint: fp,
		SrcIP:       e.src,
		DstIP:       e.dst,
		Protocol:    uint16(model.ProtoTCP),
		L4Protocol:  uint16(model.ProtoTCP),
		L4Src:       e.sport,
		L4Dst:       e.dport,
		TimestampS:  e.firstSeenS,
		TimestampUS: e.firstSeenUS,
	}
}

// Finalize removes every CLOSED entry, and force-closes every entry
// still in LISTEN at end of input, reporting a close stamped with the
// last packet's timestamp for each. TCP closure is otherwise only ever
// observed (no idle-timeout pruning runs mid-stream); Finalize is the
// one place a residual open is converted to a close, so that no live
// FlowEntry survives end of input.
func (t *TCPTracker) Finalize(lastS uint64, lastUS uint32) {
	for _, e := range t.entries {
		if e.state == tcpListen {
			ev := t.buildEvent(e)
			ev.EndTimestampS = lastS
			ev.EndTimestampUS = lastUS
			t.closed++
			if err := t.sink.ReportClose(ev); err != nil {
				log.Printf("tracker(tcp): failed to report close during finalize: %v", err)
			}
		}
	}
	t.entries = t.entries[:0]
}

// Opened returns the number of flows this tracker has opened.
func (t *TCPTracker) Opened() uint64 { return t.opened }

// Closed returns the number of flows this tracker has closed.
func (t *TCPTracker) Closed() uint64 { return t.closed }
