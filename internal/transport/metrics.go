package transport

import "sync/atomic"

// ConnMetrics holds the lock-free per-connection counters required by
// §4.2: every field is updated with atomic operations so reader and
// writer tasks never contend with a metrics snapshot.
type ConnMetrics struct {
	BytesSent            atomic.Uint64
	BytesReceived        atomic.Uint64
	MessagesSent         atomic.Uint64
	MessagesReceived     atomic.Uint64
	Errors               atomic.Uint64
	ReconnectAttempts    atomic.Uint64
	LastActivityUnixNano atomic.Int64
	ConnectedAtUnixNano  atomic.Int64
}

// ConnMetricsSnapshot is a point-in-time, non-atomic copy suitable for
// serialization or scrape exposition.
type ConnMetricsSnapshot struct {
	BytesSent           uint64
	BytesReceived       uint64
	MessagesSent        uint64
	MessagesReceived    uint64
	Errors              uint64
	ReconnectAttempts   uint64
	LastActivityUnixNano int64
	ConnectedAtUnixNano  int64
}

func (m *ConnMetrics) Snapshot() ConnMetricsSnapshot {
	return ConnMetricsSnapshot{
		BytesSent:            m.BytesSent.Load(),
		BytesReceived:        m.BytesReceived.Load(),
		MessagesSent:         m.MessagesSent.Load(),
		MessagesReceived:     m.MessagesReceived.Load(),
		Errors:               m.Errors.Load(),
		ReconnectAttempts:    m.ReconnectAttempts.Load(),
		LastActivityUnixNano: m.LastActivityUnixNano.Load(),
		ConnectedAtUnixNano:  m.ConnectedAtUnixNano.Load(),
	}
}

func (m *ConnMetrics) RecordSend(n int) {
	m.BytesSent.Add(uint64(n))
	m.MessagesSent.Add(1)
}

func (m *ConnMetrics) RecordReceive(n int) {
	m.BytesReceived.Add(uint64(n))
	m.MessagesReceived.Add(1)
}

func (m *ConnMetrics) RecordError() {
	m.Errors.Add(1)
}

func (m *ConnMetrics) RecordReconnectAttempt() {
	m.ReconnectAttempts.Add(1)
}

func (m *ConnMetrics) TouchActivity(nowUnixNano int64) {
	m.LastActivityUnixNano.Store(nowUnixNano)
}

func (m *ConnMetrics) TouchConnectedAt(nowUnixNano int64) {
	m.ConnectedAtUnixNano.Store(nowUnixNano)
}
