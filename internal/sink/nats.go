package sink

import (
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	"pcaptrack/internal/model"
	"pcaptrack/internal/wire"
)

// NATSSink is the default Sink implementation: it pushes the envelope
// described in internal/wire over a NATS request/reply call, which
// blocks until the remote consumer acknowledges — the natural Go
// expression of the sink's request/reply contract.
type NATSSink struct {
	nc      *nats.Conn
	subject string
	timeout time.Duration
}

// NewNATSSink connects to the NATS server at url and returns a Sink that
// publishes to subject.
func NewNATSSink(url, subject string, requestTimeout time.Duration) (*NATSSink, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("sink: failed to connect to NATS at %s: %w", url, err)
	}
	log.Printf("Connected to NATS server at %s", url)
	if requestTimeout <= 0 {
		requestTimeout = 2 * time.Second
	}
	return &NATSSink{nc: nc, subject: subject, timeout: requestTimeout}, nil
}

func (s *NATSSink) request(msgtype wire.MsgType, data []byte) error {
	payload := wire.EncodeEnvelope(msgtype, data)
	msg, err := s.nc.Request(s.subject, payload, s.timeout)
	if err != nil {
		return fmt.Errorf("sink: request failed: %w", err)
	}
	_ = msg // reply payload is discarded; only the ack matters
	return nil
}

// ReportOpen implements Sink.
func (s *NATSSink) ReportOpen(ev *model.ConnectionEvent) error {
	return s.request(wire.MsgTypeOpenNotify, wire.EncodeConnectionEvent(ev))
}

// ReportClose implements Sink.
func (s *NATSSink) ReportClose(ev *model.ConnectionEvent) error {
	return s.request(wire.MsgTypeCloseNotify, wire.EncodeConnectionEvent(ev))
}

// Flush implements Sink.
func (s *NATSSink) Flush() error {
	return s.request(wire.MsgTypeSync, nil)
}

// Close implements Sink.
func (s *NATSSink) Close() error {
	if s.nc != nil {
		s.nc.Drain()
		log.Println("NATS connection drained and closed.")
	}
	return nil
}
