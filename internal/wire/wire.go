// Package wire hand-encodes the envelope and ConnectionEvent messages
// described in schema.proto using the low-level varint/length-delimited
// primitives from google.golang.org/protobuf/encoding/protowire — the
// same primitives protoc-generated marshal code would emit, without
// requiring a protoc invocation in this build.
package wire

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"net"

	"google.golang.org/protobuf/encoding/protowire"

	"pcaptrack/internal/fingerprint"
	"pcaptrack/internal/model"
)

// MsgType tags the outer envelope.
type MsgType int32

const (
	MsgTypeUnspecified MsgType = 0
	MsgTypeOpenNotify   MsgType = 1
	MsgTypeCloseNotify  MsgType = 2
	MsgTypeSync         MsgType = 3
)

const (
	fieldEnvelopeMsgType = protowire.Number(1)
	fieldEnvelopeData    = protowire.Number(2)

	fieldEventFingerprint    = protowire.Number(1)
	fieldEventSrc            = protowire.Number(2)
	fieldEventDst            = protowire.Number(3)
	fieldEventProtocol       = protowire.Number(4)
	fieldEventL4Protocol     = protowire.Number(5)
	fieldEventL4Src          = protowire.Number(6)
	fieldEventL4Dst          = protowire.Number(7)
	fieldEventTimestampS     = protowire.Number(8)
	fieldEventTimestampUS    = protowire.Number(9)
	fieldEventEndTimestampS  = protowire.Number(10)
	fieldEventEndTimestampUS = protowire.Number(11)
	fieldEventMsgType        = protowire.Number(12)
	fieldEventSeqNum         = protowire.Number(13)
)

// EncodeEnvelope serializes the outer envelope: a msgtype tag and an
// opaque data payload (the marshaled ConnectionEvent, or empty for SYNC).
func EncodeEnvelope(msgtype MsgType, data []byte) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldEnvelopeMsgType, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(msgtype))
	if len(data) > 0 {
		b = protowire.AppendTag(b, fieldEnvelopeData, protowire.BytesType)
		b = protowire.AppendBytes(b, data)
	}
	return b
}

// DecodeEnvelope parses an outer envelope produced by EncodeEnvelope.
func DecodeEnvelope(b []byte) (MsgType, []byte, error) {
	var msgtype MsgType
	var data []byte
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return 0, nil, fmt.Errorf("wire: malformed envelope tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case fieldEnvelopeMsgType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return 0, nil, fmt.Errorf("wire: malformed envelope msgtype: %w", protowire.ParseError(n))
			}
			msgtype = MsgType(v)
			b = b[n:]
		case fieldEnvelopeData:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return 0, nil, fmt.Errorf("wire: malformed envelope data: %w", protowire.ParseError(n))
			}
			data = append([]byte(nil), v...)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return 0, nil, fmt.Errorf("wire: malformed envelope field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return msgtype, data, nil
}

// EncodeConnectionEvent serializes a ConnectionEvent to the wire layout
// described in schema.proto.
func EncodeConnectionEvent(ev *model.ConnectionEvent) []byte {
	var b []byte

	b = protowire.AppendTag(b, fieldEventFingerprint, protowire.BytesType)
	b = protowire.AppendString(b, fingerprint.Hex(ev.Fingerprint))

	b = protowire.AppendTag(b, fieldEventSrc, protowire.BytesType)
	b = protowire.AppendString(b, model.FormatIPv4(ev.SrcIP))

	b = protowire.AppendTag(b, fieldEventDst, protowire.BytesType)
	b = protowire.AppendString(b, model.FormatIPv4(ev.DstIP))

	b = appendVarintField(b, fieldEventProtocol, uint64(ev.Protocol))
	b = appendVarintField(b, fieldEventL4Protocol, uint64(ev.L4Protocol))
	b = appendVarintField(b, fieldEventL4Src, uint64(ev.L4Src))
	b = appendVarintField(b, fieldEventL4Dst, uint64(ev.L4Dst))
	b = appendVarintField(b, fieldEventTimestampS, ev.TimestampS)
	b = appendVarintField(b, fieldEventTimestampUS, uint64(ev.TimestampUS))
	b = appendVarintField(b, fieldEventEndTimestampS, ev.EndTimestampS)
	b = appendVarintField(b, fieldEventEndTimestampUS, uint64(ev.EndTimestampUS))
	b = appendVarintField(b, fieldEventMsgType, protowire.EncodeZigZag(int64(ev.MsgType)))
	b = appendVarintField(b, fieldEventSeqNum, protowire.EncodeZigZag(int64(ev.SeqNum)))

	return b
}

// DecodeConnectionEvent parses a ConnectionEvent produced by
// EncodeConnectionEvent. The fingerprint/src/dst string fields are
// returned alongside the numeric event for callers that need the wire
// representation verbatim; ev.Fingerprint, ev.SrcIP and ev.DstIP are
// also parsed back from those strings, and stay zero when a string is
// not a 32-char hex digest or a dotted-quad IPv4 address.
func DecodeConnectionEvent(b []byte) (*model.ConnectionEvent, string, string, string, error) {
	ev := &model.ConnectionEvent{}
	var fingerprintHex, srcStr, dstStr string

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, "", "", "", fmt.Errorf("wire: malformed event tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch num {
		case fieldEventFingerprint:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, "", "", "", fmt.Errorf("wire: malformed fingerprint: %w", protowire.ParseError(n))
			}
			fingerprintHex = v
			if raw, err := hex.DecodeString(v); err == nil && len(raw) == fingerprint.Size {
				copy(ev.Fingerprint[:], raw)
			}
			b = b[n:]
		case fieldEventSrc:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, "", "", "", fmt.Errorf("wire: malformed src: %w", protowire.ParseError(n))
			}
			srcStr = v
			if ip := net.ParseIP(v).To4(); ip != nil {
				ev.SrcIP = binary.LittleEndian.Uint32(ip)
			}
			b = b[n:]
		case fieldEventDst:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, "", "", "", fmt.Errorf("wire: malformed dst: %w", protowire.ParseError(n))
			}
			dstStr = v
			if ip := net.ParseIP(v).To4(); ip != nil {
				ev.DstIP = binary.LittleEndian.Uint32(ip)
			}
			b = b[n:]
		case fieldEventProtocol:
			v, n, err := consumeVarint(b)
			if err != nil {
				return nil, "", "", "", err
			}
			ev.Protocol = uint16(v)
			b = b[n:]
		case fieldEventL4Protocol:
			v, n, err := consumeVarint(b)
			if err != nil {
				return nil, "", "", "", err
			}
			ev.L4Protocol = uint16(v)
			b = b[n:]
		case fieldEventL4Src:
			v, n, err := consumeVarint(b)
			if err != nil {
				return nil, "", "", "", err
			}
			ev.L4Src = uint16(v)
			b = b[n:]
		case fieldEventL4Dst:
			v, n, err := consumeVarint(b)
			if err != nil {
				return nil, "", "", "", err
			}
			ev.L4Dst = uint16(v)
			b = b[n:]
		case fieldEventTimestampS:
			v, n, err := consumeVarint(b)
			if err != nil {
				return nil, "", "", "", err
			}
			ev.TimestampS = v
			b = b[n:]
		case fieldEventTimestampUS:
			v, n, err := consumeVarint(b)
			if err != nil {
				return nil, "", "", "", err
			}
			ev.TimestampUS = uint32(v)
			b = b[n:]
		case fieldEventEndTimestampS:
			v, n, err := consumeVarint(b)
			if err != nil {
				return nil, "", "", "", err
			}
			ev.EndTimestampS = v
			b = b[n:]
		case fieldEventEndTimestampUS:
			v, n, err := consumeVarint(b)
			if err != nil {
				return nil, "", "", "", err
			}
			ev.EndTimestampUS = uint32(v)
			b = b[n:]
		case fieldEventMsgType:
			v, n, err := consumeVarint(b)
			if err != nil {
				return nil, "", "", "", err
			}
			ev.MsgType = int32(protowire.DecodeZigZag(v))
			b = b[n:]
		case fieldEventSeqNum:
			v, n, err := consumeVarint(b)
			if err != nil {
				return nil, "", "", "", err
			}
			ev.SeqNum = int32(protowire.DecodeZigZag(v))
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, "", "", "", fmt.Errorf("wire: malformed event field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}

	return ev, fingerprintHex, srcStr, dstStr, nil
}

func appendVarintField(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func consumeVarint(b []byte) (uint64, int, error) {
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, 0, fmt.Errorf("wire: malformed varint: %w", protowire.ParseError(n))
	}
	return v, n, nil
}
