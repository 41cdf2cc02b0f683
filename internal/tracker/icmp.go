package tracker

import (
	"fmt"
	"log"

	"pcaptrack/internal/fingerprint"
	"pcaptrack/internal/model"
	"pcaptrack/internal/sink"
)

// icmpState mirrors udpState: ACTIVE while inside the idle window,
// CLOSED once a packet arrives after it.
type icmpState uint8

const (
	icmpActive icmpState = iota
	icmpClosed
)

type icmpEntry struct {
	src, dst uint32
	msgtype  int32
	seqnum   int32

	firstSeenS  uint64
	firstSeenUS uint32
	lastActiveS uint64
	lastActiveUS uint32

	state icmpState
}

func (e *icmpEntry) lastActiveMicros() uint64 {
	return e.lastActiveS*1_000_000 + uint64(e.lastActiveUS)
}

// icmpTypeNames maps ICMP type numbers to the names used in log output.
// Purely cosmetic: it never influences matching or fingerprinting.
var icmpTypeNames = map[uint8]string{
	0:  "ECHO_REPLY",
	3:  "DEST_UNREACHABLE",
	4:  "SOURCE_QUENCH",
	5:  "REDIRECT",
	8:  "ECHO_REQUEST",
	9:  "ROUTER_ADVERTISEMENT",
	10: "ROUTER_SOLICITATION",
	11: "TIME_EXCEEDED",
	12: "PARAMETER_PROBLEM",
	13: "TIMESTAMP_REQUEST",
	14: "TIMESTAMP_REPLY",
	15: "INFO_REQUEST",
	16: "INFO_REPLY",
	17: "ADDRESS_MASK_REQUEST",
	18: "ADDRESS_MASK_REPLY",
	30: "TRACEROUTE",
	42: "EXTENDED_ECHO_REQ",
	43: "EXTENDED_ECHO_REPLY",
}

// ICMPTypeName returns the human-readable name for an ICMP type number,
// or a numeric fallback for types this table doesn't carry.
func ICMPTypeName(icmpType uint8) string {
	if name, ok := icmpTypeNames[icmpType]; ok {
		return name
	}
	return fmt.Sprintf("TYPE_%d", icmpType)
}

// ICMPTracker tracks ICMP exchanges with the same idle-timeout state
// machine as UDP. Flow matching uses only the symmetric IPv4 pair; type
// and sequence are recorded from the first packet that opens the entry
// and carried into every emitted event for that entry, but a reply
// whose type differs from the request (the normal case) still matches
// the existing entry rather than opening a second one.
type ICMPTracker struct {
	entries   []*icmpEntry
	sink      sink.Sink
	timeoutUS uint64

	opened uint64
	closed uint64
}

// NewICMPTracker creates an ICMP tracker that reports through s, using
// timeoutUS as the idle window in microseconds.
func NewICMPTracker(s sink.Sink, timeoutUS uint64) *ICMPTracker {
	return &ICMPTracker{sink: s, timeoutUS: timeoutUS}
}

func (t *ICMPTracker) find(pkt *model.Packet) *icmpEntry {
	for _, e := range t.entries {
		if e.state == icmpClosed {
			continue
		}
		if matchesICMP(e.src, e.dst, pkt.SrcIP, pkt.DstIP) {
			return e
		}
	}
	return nil
}

// OnPacket processes a single ICMP packet.
func (t *ICMPTracker) OnPacket(pkt *model.Packet) {
	pktMicros := pkt.MicrosSince1970()

	if e := t.find(pkt); e != nil {
		if e.lastActiveMicros()+t.timeoutUS > pktMicros {
			e.lastActiveS, e.lastActiveUS = pkt.TimestampS, pkt.TimestampUS
			return
		}
		ev := t.buildEvent(e)
		ev.EndTimestampS = pkt.TimestampS
		ev.EndTimestampUS = pkt.TimestampUS
		e.state = icmpClosed
		t.closed++
		if err := t.sink.ReportClose(ev); err != nil {
			log.Printf("tracker(icmp): failed to report close: %v", err)
		}
		return
	}

	e := &icmpEntry{
		src:          pkt.SrcIP,
		dst:          pkt.DstIP,
		msgtype:      int32(pkt.ICMPType),
		seqnum:       int32(pkt.ICMPSeq),
		firstSeenS:   pkt.TimestampS,
		firstSeenUS:  pkt.TimestampUS,
		lastActiveS:  pkt.TimestampS,
		lastActiveUS: pkt.TimestampUS,
		state:        icmpActive,
	}
	t.entries = append(t.entries, e)
	t.opened++
	if err := t.sink.ReportOpen(t.buildEvent(e)); err != nil {
		log.Printf("tracker(icmp): failed to report open: %v", err)
	}
	log.Printf("tracker(icmp): opened %s %s -> %s seq=%d", ICMPTypeName(pkt.ICMPType), model.FormatIPv4(pkt.SrcIP), model.FormatIPv4(pkt.DstIP), pkt.ICMPSeq)
}

func (t *ICMPTracker) buildEvent(e *icmpEntry) *model.ConnectionEvent {
	fp := fingerprint.Compute(fingerprint.Fields{
		Src:         e.src,
		Dst:         e.dst,
		L4Src:       0,
		L4Dst:       0,
		Protocol:    uint16(model.ProtoICMP),
		MsgType:     e.msgtype,
		SeqNum:      e.seqnum,
		TimestampS:  e.firstSeenS,
		TimestampUS: uint64(e.firstSeenUS),
	})
	return &model.ConnectionEvent{
		Fingerprint: fp,
		SrcIP:       e.src,
		DstIP:       e.dst,
		Protocol:    uint16(model.ProtoICMP),
		L4Protocol:  uint16(model.ProtoICMP),
		TimestampS:  e.firstSeenS,
		TimestampUS: e.firstSeenUS,
		MsgType:     e.msgtype,
		SeqNum:      e.seqnum,
	}
}

// Prune removes every CLOSED entry and every entry whose idle window has
// elapsed relative to lastS/lastUS, reporting a close for the latter
// group.
func (t *ICMPTracker) Prune(lastS uint64, lastUS uint32) {
	lastMicros := lastS*1_000_000 + uint64(lastUS)

	live := t.entries[:0]
	for _, e := range t.entries {
		if e.state == icmpClosed {
			continue
		}
		if e.lastActiveMicros()+t.timeoutUS < lastMicros {
			ev := t.buildEvent(e)
			ev.EndTimestampS = lastS
			ev.EndTimestampUS = lastUS
			t.closed++
			if err := t.sink.ReportClose(ev); err != nil {
				log.Printf("tracker(icmp): failed to report close during prune: %v", err)
			}
			continue
		}
		live = append(live, e)
	}
	t.entries = live
}

// Opened returns the number of flows this tracker has opened.
func (t *ICMPTracker) Opened() uint64 { return t.opened }

// Closed returns the number of flows this tracker has closed.
func (t *ICMPTracker) Closed() uint64 { return t.closed }
