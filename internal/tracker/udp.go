package tracker

import (
	"log"

	"pcaptrack/internal/fingerprint"
	"pcaptrack/internal/model"
	"pcaptrack/internal/sink"
)

// udpState is the two-value UDP state machine: ACTIVE while packets keep
// arriving inside the idle window, CLOSED once one arrives after it.
type udpState uint8

const (
	udpActive udpState = iota
	udpClosed
)

type udpEntry struct {
	src, dst     uint32
	sport, dport uint16

	firstSeenS  uint64
	firstSeenUS uint32
	lastActiveS uint64
	lastActiveUS uint32

	state udpState
}

func (e *udpEntry) lastActiveMicros() uint64 {
	return e.lastActiveS*1_000_000 + uint64(e.lastActiveUS)
}

// UDPTracker tracks UDP flows with the idle-timeout "extend-or-close"
// state machine: a packet inside the idle window extends the flow
// silently, a packet arriving after the window has elapsed closes the
// flow instead of extending it. Re-opening on that same closing packet
// is deliberately not implemented — see DESIGN.md.
type UDPTracker struct {
	entries   []*udpEntry
	sink      sink.Sink
	timeoutUS uint64

	opened uint64
	closed uint64
}

// NewUDPTracker creates a UDP tracker that reports through s, using
// timeoutUS as the idle window in microseconds.
func NewUDPTracker(s sink.Sink, timeoutUS uint64) *UDPTracker {
	return &UDPTracker{sink: s, timeoutUS: timeoutUS}
}

func (t *UDPTracker) find(pkt *model.Packet) *udpEntry {
	for _, e := range t.entries {
		if e.state == udpClosed {
			continue
		}
		if matchesTCPUDP(e.src, e.dst, e.sport, e.dport, pkt.SrcIP, pkt.DstIP, pkt.SrcPort, pkt.DstPort) {
			return e
		}
	}
	return nil
}

// OnPacket processes a single UDP packet.
func (t *UDPTracker) OnPacket(pkt *model.Packet) {
	pktMicros := pkt.MicrosSince1970()

	if e := t.find(pkt); e != nil {
		if e.lastActiveMicros()+t.timeoutUS > pktMicros {
			e.lastActiveS, e.lastActiveUS = pkt.TimestampS, pkt.TimestampUS
			return
		}
		ev := t.buildEvent(e)
		ev.EndTimestampS = pkt.TimestampS
		ev.EndTimestampUS = pkt.TimestampUS
		e.state = udpClosed
		t.closed++
		if err := t.sink.ReportClose(ev); err != nil {
			log.Printf("tracker(udp): failed to report close: %v", err)
		}
		return
	}

	e := &udpEntry{
		src:          pkt.SrcIP,
		dst:          pkt.DstIP,
		sport:        pkt.SrcPort,
		dport:        pkt.DstPort,
		firstSeenS:   pkt.TimestampS,
		firstSeenUS:  pkt.TimestampUS,
		lastActiveS:  pkt.TimestampS,
		lastActiveUS: pkt.TimestampUS,
		state:        udpActive,
	}
	t.entries = append(t.entries, e)
	t.opened++
	if err := t.sink.ReportOpen(t.buildEvent(e)); err != nil {
		log.Printf("tracker(udp): failed to report open: %v", err)
	}
}

func (t *UDPTracker) buildEvent(e *udpEntry) *model.ConnectionEvent {
	fp := fingerprint.Compute(fingerprint.Fields{
		Src:         e.src,
		Dst:         e.dst,
		L4Src:       e.sport,
		L4Dst:       e.dport,
		Protocol:    uint16(model.ProtoUDP),
		TimestampS:  e.firstSeenS,
		TimestampUS: uint64(e.firstSeenUS),
	})
	return &model.ConnectionEvent{
		Fingerprint: fp,
		SrcIP:       e.src,
		DstIP:       e.dst,
		Protocol:    uint16(model.ProtoUDP),
		L4Protocol:  uint16(model.ProtoUDP),
		L4Src:       e.sport,
		L4Dst:       e.dport,
		TimestampS:  e.firstSeenS,
		TimestampUS: e.firstSeenUS,
	}
}

// Prune removes every CLOSED entry and every entry whose idle window has
// elapsed relative to lastS/lastUS (the timestamp of the last packet
// seen across the run), reporting a close for the latter group.
func (t *UDPTracker) Prune(lastS uint64, lastUS uint32) {
	lastMicros := lastS*1_000_000 + uint64(lastUS)

	live := t.entries[:0]
	for _, e := range t.entries {
		if e.state == udpClosed {
			continue
		}
		if e.lastActiveMicros()+t.timeoutUS < lastMicros {
			ev := t.buildEvent(e)
			ev.EndTimestampS = lastS
			ev.EndTimestampUS = lastUS
			t.closed++
			if err := t.sink.ReportClose(ev); err != nil {
				log.Printf("tracker(udp): failed to report close during prune: %v", err)
			}
			continue
		}
		live = append(live, e)
	}
	t.entries = live
}

// Opened returns the number of flows this tracker has opened.
func (t *UDPTracker) Opened() uint64 { return t.opened }

// Closed returns the number of flows this tracker has closed.
func (t *UDPTracker) Closed() uint64 { return t.closed }
