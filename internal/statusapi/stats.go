// Package statusapi exposes the run's live totals over gRPC and plain
// HTTP, for operators who want to watch a long run without tailing logs.
// Neither surface participates in the tracking core; both just read the
// dispatcher's counters.
package statusapi

import (
	"pcaptrack/internal/tracker"
)

// Source is the read-only view of run state both servers report on.
type Source interface {
	TotalPackets() uint64
	TCP() *tracker.TCPTracker
	UDP() *tracker.UDPTracker
	ICMP() *tracker.ICMPTracker
}

func statsMap(src Source) map[string]interface{} {
	return map[string]interface{}{
		"total_packets": float64(src.TotalPackets()),
		"tcp_opened":    float64(src.TCP().Opened()),
		"tcp_closed":    float64(src.TCP().Closed()),
		"udp_opened":    float64(src.UDP().Opened()),
		"udp_closed":    float64(src.UDP().Closed()),
		"icmp_opened":   float64(src.ICMP().Opened()),
		"icmp_closed":   float64(src.ICMP().Closed()),
	}
}
