package tracker

import (
	"testing"

	"pcaptrack/internal/model"
)

func icmpPkt(srcIP, dstIP uint32, icmpType uint8, seq uint16, s uint64, us uint32) *model.Packet {
	return &model.Packet{
		TimestampS:  s,
		TimestampUS: us,
		SrcIP:       srcIP,
		DstIP:       dstIP,
		L4Protocol:  model.ProtoICMP,
		ICMPType:    icmpType,
		ICMPSeq:     seq,
	}
}

// TestICMPScenarioC reproduces the echo request/reply example: the
// reply's different type still matches the existing entry because
// matching is address-pair-only, and it extends last_active rather than
// opening a second entry or closing the first.
func TestICMPScenarioC(t *testing.T) {
	s := &fakeSink{}
	tr := NewICMPTracker(s, 1_000_000)

	tr.OnPacket(icmpPkt(ip1000001, ip1000002, 8, 1, 3000, 0))
	if tr.Opened() != 1 {
		t.Fatalf("expected one open from the echo request")
	}

	tr.OnPacket(icmpPkt(ip1000002, ip1000001, 0, 1, 3000, 10000))
	if len(s.opens) != 1 || len(s.closes) != 0 {
		t.Fatalf("expected the reply to extend the existing entry, got opens=%d closes=%d", len(s.opens), len(s.closes))
	}

	open := s.opens[0]
	if open.MsgType != 8 || open.SeqNum != 1 {
		t.Fatalf("expected the open event to carry the request's type/seq, got %+v", open)
	}
}

func TestICMPTypeNameTable(t *testing.T) {
	cases := map[uint8]string{
		0:  "ECHO_REPLY",
		8:  "ECHO_REQUEST",
		11: "TIME_EXCEEDED",
		30: "TRACEROUTE",
		42: "EXTENDED_ECHO_REQ",
		43: "EXTENDED_ECHO_REPLY",
	}
	for typ, want := range cases {
		if got := ICMPTypeName(typ); got != want {
			t.Errorf("ICMPTypeName(%d) = %q, want %q", typ, got, want)
		}
	}
	if got := ICMPTypeName(250); got != "TYPE_250" {
		t.Errorf("ICMPTypeName(250) = %q, want numeric fallback", got)
	}
}
