package export

import (
	"context"

	"github.com/nats-io/nats.go"
)

// NATSSink publishes snapshots to a NATS subject.
//
// Example:
//
//	nc, _ := nats.Connect(nats.DefaultURL)
//	sink := export.NewNATSSink(nc, "probe.snapshots")
type NATSSink struct {
	nc      *nats.Conn
	subject string
}

// NewNATSSink creates a sink publishing to subject on nc.
func NewNATSSink(nc *nats.Conn, subject string) *NATSSink {
	return &NATSSink{nc: nc, subject: subject}
}

// Write implements Sink.
func (s *NATSSink) Write(ctx context.Context, payload []byte) error {
	return s.nc.Publish(s.subject, payload)
}

// Close implements Sink. The connection is caller-owned; only pending
// publishes are flushed.
func (s *NATSSink) Close() error {
	return s.nc.Flush()
}

var _ Sink = (*NATSSink)(nil)
