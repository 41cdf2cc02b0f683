// Package capture decodes offline capture files into the packet model
// the trackers consume, and drives the directory-of-files iteration
// described for the capture-file driver.
package capture

import (
	"encoding/binary"
	"fmt"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"

	"pcaptrack/internal/model"
)

// Reader decodes packets from a single capture file, in file order.
type Reader struct {
	handle *pcap.Handle
}

// NewReader opens filePath for offline reading.
func NewReader(filePath string) (*Reader, error) {
	handle, err := pcap.OpenOffline(filePath)
	if err != nil {
		return nil, fmt.Errorf("capture: failed to open %s: %w", filePath, err)
	}
	return &Reader{handle: handle}, nil
}

// Close releases the underlying pcap handle.
func (r *Reader) Close() {
	r.handle.Close()
}

// Each calls fn once per decoded packet, in file order. Packets that are
// not IPv4, or whose L4 protocol is not TCP/UDP/ICMP, are dropped
// silently, matching the dispatcher's own drop policy for malformed
// input — the decoder never surfaces them as errors.
func (r *Reader) Each(fn func(*model.Packet)) {
	src := gopacket.NewPacketSource(r.handle, r.handle.LinkType())
	for raw := range src.Packets() {
		pkt, ok := decode(raw)
		if !ok {
			continue
		}
		fn(pkt)
	}
}

func decode(raw gopacket.Packet) (*model.Packet, bool) {
	ipLayer := raw.Layer(layers.LayerTypeIPv4)
	if ipLayer == nil {
		return nil, false
	}
	ip4 := ipLayer.(*layers.IPv4)

	pkt := &model.Packet{
		SrcIP: ipv4ToUint32(ip4.SrcIP),
		DstIP: ipv4ToUint32(ip4.DstIP),
	}

	if meta := raw.Metadata(); meta != nil {
		pkt.TimestampS = uint64(meta.Timestamp.Unix())
		pkt.TimestampUS = uint32(meta.Timestamp.Nanosecond() / 1000)
	}

	switch {
	case ip4.Protocol == layers.IPProtocolTCP:
		l := raw.Layer(layers.LayerTypeTCP)
		if l == nil {
			return nil, false
		}
		tcp := l.(*layers.TCP)
		pkt.L4Protocol = model.ProtoTCP
		pkt.SrcPort = uint16(tcp.SrcPort)
		pkt.DstPort = uint16(tcp.DstPort)
		pkt.Flags = tcpFlags(tcp)

	case ip4.Protocol == layers.IPProtocolUDP:
		l := raw.Layer(layers.LayerTypeUDP)
		if l == nil {
			return nil, false
		}
		udp := l.(*layers.UDP)
		pkt.L4Protocol = model.ProtoUDP
		pkt.SrcPort = uint16(udp.SrcPort)
		pkt.DstPort = uint16(udp.DstPort)

	case ip4.Protocol == layers.IPProtocolICMPv4:
		l := raw.Layer(layers.LayerTypeICMPv4)
		if l == nil {
			return nil, false
		}
		icmp := l.(*layers.ICMPv4)
		pkt.L4Protocol = model.ProtoICMP
		pkt.ICMPType = icmp.TypeCode.Type()
		pkt.ICMPCode = icmp.TypeCode.Code()
		pkt.ICMPSeq = icmp.Seq

	default:
		return nil, false
	}

	return pkt, true
}

func tcpFlags(tcp *layers.TCP) uint8 {
	var f uint8
	if tcp.FIN {
		f |= model.TCPFlagFIN
	}
	if tcp.SYN {
		f |= model.TCPFlagSYN
	}
	if tcp.RST {
		f |= model.TCPFlagRST
	}
	if tcp.ACK {
		f |= model.TCPFlagACK
	}
	return f
}

// ipv4ToUint32 packs a 4-byte net.IP the way model.FormatIPv4 expects to
// unpack it: the first dotted-quad octet occupies bits 0..7.
func ipv4ToUint32(ip net.IP) uint32 {
	ip4 := ip.To4()
	if ip4 == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(ip4)
}
