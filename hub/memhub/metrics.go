package memhub

import "sync/atomic"

type MetricsSnapshot struct {
	Clients       int64
	CallsRouted   int64
	RepliesRouted int64
	Notifications int64
}

type Metrics struct {
	clients       atomic.Int64
	callsRouted   atomic.Int64
	repliesRouted atomic.Int64
	notifications atomic.Int64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) RecordClient(delta int) {
	m.clients.Add(int64(delta))
}

func (m *Metrics) RecordCall(delta int) {
	m.callsRouted.Add(int64(delta))
}

func (m *Metrics) RecordReply(delta int) {
	m.repliesRouted.Add(int64(delta))
}

func (m *Metrics) RecordNotification(delta int) {
	m.notifications.Add(int64(delta))
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Clients:       m.clients.Load(),
		CallsRouted:   m.callsRouted.Load(),
		RepliesRouted: m.repliesRouted.Load(),
		Notifications: m.notifications.Load(),
	}
}
