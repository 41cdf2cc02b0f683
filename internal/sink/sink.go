// Package sink defines the notification sink contract the trackers push
// open/close events through, and the concrete transports that implement
// it.
package sink

import "pcaptrack/internal/model"

// Sink is the request/reply notification endpoint. Every call is
// synchronous: it blocks until the remote side acknowledges, and the
// core's call sites are strictly sequential, so a Sink implementation
// never needs to be safe for concurrent use by more than one of the
// dispatcher's trackers at a time (they all run on the same goroutine).
type Sink interface {
	// ReportOpen transmits an OPEN_NOTIFY for ev and blocks for the ack.
	ReportOpen(ev *model.ConnectionEvent) error

	// ReportClose transmits a CLOSE_NOTIFY for ev and blocks for the ack.
	ReportClose(ev *model.ConnectionEvent) error

	// Flush transmits a zero-length SYNC request and blocks for the ack.
	// Called by the capture driver between capture files, never mid-file.
	Flush() error

	// Close releases any resources held by the sink.
	Close() error
}
