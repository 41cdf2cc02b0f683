// Package model holds the types shared between the capture driver, the
// protocol trackers, and the notification sink.
package model

import "fmt"

// L4Protocol identifies the transport-layer protocol of a packet, using
// the IANA protocol numbers carried in the IPv4 header.
type L4Protocol uint8

const (
	ProtoICMP L4Protocol = 1
	ProtoTCP  L4Protocol = 6
	ProtoUDP  L4Protocol = 17
)

// TCP flag bits, as observed on the wire.
const (
	TCPFlagFIN uint8 = 1 << 0
	TCPFlagSYN uint8 = 1 << 1
	TCPFlagRST uint8 = 1 << 2
	TCPFlagACK uint8 = 1 << 4
)

// Packet is the already-decoded, timestamped packet the trackers consume.
// It carries only the fields the trackers need: IPv4 addressing, the L4
// protocol, and protocol-specific header fields. Non-IPv4 packets and
// packets with an unrecognized L4 protocol are never constructed by the
// capture driver; they are dropped at decode time.
type Packet struct {
	TimestampS  uint64
	TimestampUS uint32 // 0..999999

	SrcIP uint32 // network-order IPv4
	DstIP uint32

	L4Protocol L4Protocol

	// TCP / UDP
	SrcPort uint16
	DstPort uint16
	Flags   uint8 // TCP only

	// ICMP
	ICMPType uint8
	ICMPCode uint8
	ICMPSeq  uint16
}

// HasTCPFlag reports whether all bits in mask are set in the packet's TCP
// flags. Meaningless for non-TCP packets.
func (p *Packet) HasTCPFlag(mask uint8) bool {
	return p.Flags&mask == mask
}

// MicrosSince1970 is the packet's timestamp expressed as a single
// microsecond-resolution integer, used by the UDP/ICMP idle-timeout
// comparisons.
func (p *Packet) MicrosSince1970() uint64 {
	return p.TimestampS*1_000_000 + uint64(p.TimestampUS)
}

// ConnectionEvent is the record pushed to the sink on every open and
// close transition. Fingerprint is filled in by the fingerprint package
// from a canonical subset of these fields; it never varies between the
// open and the matching close event for the same flow.
type ConnectionEvent struct {
	Fingerprint [16]byte

	SrcIP uint32
	DstIP uint32

	// Protocol and L4Protocol carry the same value (the L4 protocol
	// number); Protocol exists to mirror the wire schema's L3/L4
	// symmetry described in the data model.
	Protocol   uint16
	L4Protocol uint16

	L4Src uint16
	L4Dst uint16

	TimestampS  uint64
	TimestampUS uint32

	// EndTimestampS/US are zero for open events; populated with the
	// closing packet's timestamp for close events.
	EndTimestampS  uint64
	EndTimestampUS uint32

	MsgType int32
	SeqNum  int32
}

// FormatIPv4 renders an address packed the way this module packs IPv4
// addresses (byte 0 of the dotted-quad occupies bits 0..7) as a
// dotted-quad string.
func FormatIPv4(v uint32) string {
	return fmt.Sprintf("%d.%d.%d.%d", (v>>0)&0xFF, (v>>8)&0xFF, (v>>16)&0xFF, (v>>24)&0xFF)
}
