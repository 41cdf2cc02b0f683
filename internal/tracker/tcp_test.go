package tracker

import (
	"testing"

	"pcaptrack/internal/model"
)

func synAck(srcIP, dstIP uint32, srcPort, dstPort uint16, s uint64, us uint32, extraFlags uint8) *model.Packet {
	return &model.Packet{
		TimestampS:  s,
		TimestampUS: us,
		SrcIP:       srcIP,
		DstIP:       dstIP,
		L4Protocol:  model.ProtoTCP,
		SrcPort:     srcPort,
		DstPort:     dstPort,
		Flags:       model.TCPFlagSYN | model.TCPFlagACK | extraFlags,
	}
}

func fin(srcIP, dstIP uint32, srcPort, dstPort uint16, s uint64, us uint32) *model.Packet {
	return &model.Packet{
		TimestampS:  s,
		TimestampUS: us,
		SrcIP:       srcIP,
		DstIP:       dstIP,
		L4Protocol:  model.ProtoTCP,
		SrcPort:     srcPort,
		DstPort:     dstPort,
		Flags:       model.TCPFlagFIN,
	}
}

const (
	ip1000002 = 0x0200000A // 10.0.0.2 little-endian packed
	ip1000001 = 0x0100000A // 10.0.0.1 little-endian packed
)

// TestTCPScenarioA reproduces the worked open/close example: SYN+ACK from
// 10.0.0.2:80 to 10.0.0.1:40000 opens a flow keyed from the packet's own
// raw fields (not transposed), and a FIN from either direction closes it
// with a matching fingerprint.
func TestTCPScenarioA(t *testing.T) {
	s := &fakeSink{}
	tr := NewTCPTracker(s)

	tr.OnPacket(synAck(ip1000002, ip1000001, 80, 40000, 1000, 0, 0))
	if len(s.opens) != 1 {
		t.Fatalf("expected 1 open, got %d", len(s.opens))
	}
	open := s.opens[0]
	if open.SrcIP != ip1000002 || open.DstIP != ip1000001 || open.L4Src != 80 || open.L4Dst != 40000 {
		t.Fatalf("unexpected open fields: %+v", open)
	}
	if open.TimestampS != 1000 || open.EndTimestampS != 0 {
		t.Fatalf("unexpected open timestamps: %+v", open)
	}

	tr.OnPacket(fin(ip1000001, ip1000002, 40000, 80, 1000, 500000))
	if len(s.closes) != 1 {
		t.Fatalf("expected 1 close, got %d", len(s.closes))
	}
	closeEv := s.closes[0]
	if closeEv.Fingerprint != open.Fingerprint {
		t.Fatalf("close fingerprint does not match open fingerprint")
	}
	if closeEv.EndTimestampS != 1000 || closeEv.EndTimestampUS != 500000 {
		t.Fatalf("unexpected close end timestamp: %+v", closeEv)
	}

	if tr.Opened() != 1 || tr.Closed() != 1 {
		t.Fatalf("unexpected counters: opened=%d closed=%d", tr.Opened(), tr.Closed())
	}
}

// TestTCPSynAckFinSamePacketOpensFirst covers the boundary behavior: a
// SYN+ACK+FIN packet with no existing entry opens a flow; it does not
// also immediately close it.
func TestTCPSynAckFinSamePacketOpensFirst(t *testing.T) {
	s := &fakeSink{}
	tr := NewTCPTracker(s)

	tr.OnPacket(synAck(ip1000002, ip1000001, 80, 40000, 1000, 0, model.TCPFlagFIN))

	if len(s.opens) != 1 {
		t.Fatalf("expected 1 open, got %d", len(s.opens))
	}
	if len(s.closes) != 0 {
		t.Fatalf("expected no close from the opening packet, got %d", len(s.closes))
	}
}

// TestTCPFinalizeClosesResidualOpen reproduces Scenario D: a run that
// ends with a still-open flow gets a close emitted during Finalize,
// carrying the open's fingerprint and stamped with the last packet's
// timestamp.
func TestTCPFinalizeClosesResidualOpen(t *testing.T) {
	s := &fakeSink{}
	tr := NewTCPTracker(s)

	tr.OnPacket(synAck(ip1000002, ip1000001, 80, 40000, 1000, 0, 0))
	open := s.opens[0]

	tr.Finalize(1005, 250000)

	if len(s.closes) != 1 {
		t.Fatalf("expected 1 close from finalize, got %d", len(s.closes))
	}
	closeEv := s.closes[0]
	if closeEv.Fingerprint != open.Fingerprint {
		t.Fatalf("finalize close fingerprint does not match open")
	}
	if closeEv.EndTimestampS != 1005 || closeEv.EndTimestampUS != 250000 {
		t.Fatalf("unexpected finalize close timestamp: %+v", closeEv)
	}
	if tr.Closed() != 1 {
		t.Fatalf("expected closed counter 1, got %d", tr.Closed())
	}
}

// TestTCPFinalizeNoOpWithNoLiveEntries is the idempotence property: a
// finalize on an empty tracker emits nothing.
func TestTCPFinalizeNoOpWithNoLiveEntries(t *testing.T) {
	s := &fakeSink{}
	tr := NewTCPTracker(s)

	tr.Finalize(1000, 0)

	if len(s.opens) != 0 || len(s.closes) != 0 {
		t.Fatalf("expected no events, got opens=%d closes=%d", len(s.opens), len(s.closes))
	}
}

// TestTCPSinkErrorDoesNotBlockStateTransition verifies the failure
// semantics: a failing sink call is reported and swallowed, but the
// entry's state still transitions.
func TestTCPSinkErrorDoesNotBlockStateTransition(t *testing.T) {
	s := &fakeSink{failClose: true}
	tr := NewTCPTracker(s)

	tr.OnPacket(synAck(ip1000002, ip1000001, 80, 40000, 1000, 0, 0))
	tr.OnPacket(fin(ip1000001, ip1000002, 40000, 80, 1000, 500000))

	if tr.Closed() != 1 {
		t.Fatalf("expected the close transition to still be counted despite sink error")
	}
	if len(tr.entries) != 1 || tr.entries[0].state != tcpClosed {
		t.Fatalf("expected the entry to have transitioned to CLOSED")
	}
}
