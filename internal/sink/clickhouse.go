package sink

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"pcaptrack/internal/fingerprint"
	"pcaptrack/internal/model"
)

// ClickHouseConfig names the ClickHouse endpoint a ClickHouseSink writes
// to.
type ClickHouseConfig struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
}

const createConnectionEventsTable = `
CREATE TABLE IF NOT EXISTS connection_events (
    Fingerprint    FixedString(32),
    Event          Enum8('open' = 1, 'close' = 2),
    SrcIP          String,
    DstIP          String,
    Protocol       UInt16,
    L4Protocol     UInt16,
    L4Src          UInt16,
    L4Dst          UInt16,
    TimestampS     UInt64,
    TimestampUS    UInt32,
    EndTimestampS  UInt64,
    EndTimestampUS UInt32,
    MsgType        Int32,
    SeqNum         Int32
) ENGINE = MergeTree()
ORDER BY (Fingerprint, Event);
`

// ClickHouseSink is an alternate Sink implementation that inserts
// ConnectionEvent rows directly into ClickHouse, for deployments that
// skip the external NATS consumer. It mirrors the teacher's pattern of
// offering interchangeable backends (gob/clickhouse/text) behind one
// writer interface.
type ClickHouseSink struct {
	conn driver.Conn
}

// NewClickHouseSink connects to ClickHouse and ensures the
// connection_events table exists.
func NewClickHouseSink(cfg ClickHouseConfig) (*ClickHouseSink, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("sink: failed to open clickhouse connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("sink: failed to ping clickhouse: %w", err)
	}
	if err := conn.Exec(ctx, createConnectionEventsTable); err != nil {
		return nil, fmt.Errorf("sink: failed to create connection_events table: %w", err)
	}
	log.Println("Successfully connected to ClickHouse and ensured connection_events table exists.")

	return &ClickHouseSink{conn: conn}, nil
}

func (s *ClickHouseSink) insert(ev *model.ConnectionEvent, event string) error {
	batch, err := s.conn.PrepareBatch(context.Background(), "INSERT INTO connection_events")
	if err != nil {
		return fmt.Errorf("sink: failed to prepare batch: %w", err)
	}
	err = batch.Append(
		fingerprint.Hex(ev.Fingerprint),
		event,
		model.FormatIPv4(ev.SrcIP),
		model.FormatIPv4(ev.DstIP),
		ev.Protocol,
		ev.L4Protocol,
		ev.L4Src,
		ev.L4Dst,
		ev.TimestampS,
		ev.TimestampUS,
		ev.EndTimestampS,
		ev.EndTimestampUS,
		ev.MsgType,
		ev.SeqNum,
	)
	if err != nil {
		return fmt.Errorf("sink: failed to append row: %w", err)
	}
	return batch.Send()
}

// ReportOpen implements Sink.
func (s *ClickHouseSink) ReportOpen(ev *model.ConnectionEvent) error {
	return s.insert(ev, "open")
}

// ReportClose implements Sink.
func (s *ClickHouseSink) ReportClose(ev *model.ConnectionEvent) error {
	return s.insert(ev, "close")
}

// Flush is a no-op for ClickHouseSink: every call already sends its
// batch synchronously, so there is nothing to sync between files.
func (s *ClickHouseSink) Flush() error { return nil }

// Close implements Sink.
func (s *ClickHouseSink) Close() error {
	return s.conn.Close()
}
