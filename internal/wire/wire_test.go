package wire

import (
	"testing"

	"pcaptrack/internal/fingerprint"
	"pcaptrack/internal/model"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	payload := []byte{1, 2, 3, 4}
	encoded := EncodeEnvelope(MsgTypeOpenNotify, payload)

	msgtype, data, err := DecodeEnvelope(encoded)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if msgtype != MsgTypeOpenNotify {
		t.Fatalf("expected msgtype %d, got %d", MsgTypeOpenNotify, msgtype)
	}
	if string(data) != string(payload) {
		t.Fatalf("expected payload %v, got %v", payload, data)
	}
}

func TestEnvelopeSyncHasNoData(t *testing.T) {
	encoded := EncodeEnvelope(MsgTypeSync, nil)
	msgtype, data, err := DecodeEnvelope(encoded)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if msgtype != MsgTypeSync {
		t.Fatalf("expected SYNC, got %d", msgtype)
	}
	if len(data) != 0 {
		t.Fatalf("expected empty data for SYNC, got %v", data)
	}
}

// TestConnectionEventRoundTrip is the serialize/deserialize idempotence
// property: every numeric field survives the wire round trip bit-exactly.
func TestConnectionEventRoundTrip(t *testing.T) {
	fp := fingerprint.Compute(fingerprint.Fields{Src: 1, Dst: 2, Protocol: 6, TimestampS: 1000})
	ev := &model.ConnectionEvent{
		Fingerprint:    fp,
		SrcIP:          0x0100000A,
		DstIP:          0x0200000A,
		Protocol:       6,
		L4Protocol:     6,
		L4Src:          80,
		L4Dst:          40000,
		TimestampS:     1000,
		TimestampUS:    500000,
		EndTimestampS:  1001,
		EndTimestampUS: 250000,
		MsgType:        -3,
		SeqNum:         7,
	}

	encoded := EncodeConnectionEvent(ev)
	decoded, fpHex, srcStr, dstStr, err := DecodeConnectionEvent(encoded)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}

	if fpHex != fingerprint.Hex(fp) {
		t.Errorf("fingerprint hex mismatch: got %s want %s", fpHex, fingerprint.Hex(fp))
	}
	if srcStr != "10.0.0.1" || dstStr != "10.0.0.2" {
		t.Errorf("unexpected dotted-quad fields: src=%s dst=%s", srcStr, dstStr)
	}
	if decoded.Fingerprint != ev.Fingerprint || decoded.SrcIP != ev.SrcIP || decoded.DstIP != ev.DstIP {
		t.Errorf("fingerprint/address fields did not round-trip")
	}
	if decoded.Protocol != ev.Protocol || decoded.L4Protocol != ev.L4Protocol {
		t.Errorf("protocol fields did not round-trip")
	}
	if decoded.L4Src != ev.L4Src || decoded.L4Dst != ev.L4Dst {
		t.Errorf("port fields did not round-trip")
	}
	if decoded.TimestampS != ev.TimestampS || decoded.TimestampUS != ev.TimestampUS {
		t.Errorf("open timestamp did not round-trip")
	}
	if decoded.EndTimestampS != ev.EndTimestampS || decoded.EndTimestampUS != ev.EndTimestampUS {
		t.Errorf("close timestamp did not round-trip")
	}
	if decoded.MsgType != ev.MsgType || decoded.SeqNum != ev.SeqNum {
		t.Errorf("msgtype/seqnum did not round-trip: got %d/%d want %d/%d", decoded.MsgType, decoded.SeqNum, ev.MsgType, ev.SeqNum)
	}
}
