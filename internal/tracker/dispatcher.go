package tracker

import (
	"strings"

	"pcaptrack/internal/model"
	"pcaptrack/internal/sink"
)

// Dispatcher owns the three protocol trackers, routes packets to the
// trackers whose protocol is enabled, and drives end-of-input
// finalization across all three.
type Dispatcher struct {
	tcp  *TCPTracker
	udp  *UDPTracker
	icmp *ICMPTracker

	tcpEnabled  bool
	udpEnabled  bool
	icmpEnabled bool

	totalPackets uint64
}

// NewDisabledSet parses a comma-tolerant list of protocol names ("tcp",
// "udp", "icmp") into a set of disabled protocols. Unknown tokens are
// ignored; whitespace around tokens is trimmed.
func NewDisabledSet(disable string) map[string]bool {
	disabled := make(map[string]bool)
	for _, tok := range strings.Split(disable, ",") {
		tok = strings.ToLower(strings.TrimSpace(tok))
		if tok != "" {
			disabled[tok] = true
		}
	}
	return disabled
}

// NewDispatcher builds a dispatcher with one tracker per protocol,
// disabling any protocol named in disable. timeoutUS is the idle
// timeout, in microseconds, applied to the UDP and ICMP trackers.
func NewDispatcher(s sink.Sink, disable string, timeoutUS uint64) *Dispatcher {
	disabled := NewDisabledSet(disable)
	return &Dispatcher{
		tcp:         NewTCPTracker(s),
		udp:         NewUDPTracker(s, timeoutUS),
		icmp:        NewICMPTracker(s, timeoutUS),
		tcpEnabled:  !disabled["tcp"],
		udpEnabled:  !disabled["udp"],
		icmpEnabled: !disabled["icmp"],
	}
}

// OnPacket routes pkt to the tracker matching its L4 protocol, if that
// protocol is enabled, and always advances the total packet counter.
func (d *Dispatcher) OnPacket(pkt *model.Packet) {
	d.totalPackets++
	switch pkt.L4Protocol {
	case model.ProtoTCP:
		if d.tcpEnabled {
			d.tcp.OnPacket(pkt)
		}
	case model.ProtoUDP:
		if d.udpEnabled {
			d.udp.OnPacket(pkt)
		}
	case model.ProtoICMP:
		if d.icmpEnabled {
			d.icmp.OnPacket(pkt)
		}
	}
}

// Finalize prunes residual state from all three trackers at end of
// input, in TCP, UDP, ICMP order. lastPacket supplies the timestamp
// used to evaluate UDP/ICMP idle timeouts and to stamp forced closes.
func (d *Dispatcher) Finalize(lastPacket *model.Packet) {
	var lastS uint64
	var lastUS uint32
	if lastPacket != nil {
		lastS, lastUS = lastPacket.TimestampS, lastPacket.TimestampUS
	}
	d.tcp.Finalize(lastS, lastUS)
	d.udp.Prune(lastS, lastUS)
	d.icmp.Prune(lastS, lastUS)
}

// TotalPackets returns the number of packets seen by the dispatcher,
// including packets dropped because their protocol was disabled.
func (d *Dispatcher) TotalPackets() uint64 { return d.totalPackets }

// TCP returns the dispatcher's TCP tracker, for counter reporting.
func (d *Dispatcher) TCP() *TCPTracker { return d.tcp }

// UDP returns the dispatcher's UDP tracker, for counter reporting.
func (d *Dispatcher) UDP() *UDPTracker { return d.udp }

// ICMP returns the dispatcher's ICMP tracker, for counter reporting.
func (d *Dispatcher) ICMP() *ICMPTracker { return d.icmp }
