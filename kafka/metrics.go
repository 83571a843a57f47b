package kafka

import (
	"sync/atomic"

	kafkago "github.com/segmentio/kafka-go"
)

// Metrics counts entries that went through a Publisher since it was created.
// Delivered and Failed are reported by the writer once a batch completes.
type Metrics struct {
	Topic     string `json:"topic"`
	Queued    int64  `json:"queued"`
	Filtered  int64  `json:"filtered"`
	Delivered int64  `json:"delivered"`
	Failed    int64  `json:"failed"`
	Retries   int64  `json:"retries"`
}

type counters struct {
	queued    atomic.Int64
	filtered  atomic.Int64
	delivered atomic.Int64
	failed    atomic.Int64
	retries   atomic.Int64
}

// snapshot folds in stats, which kafka-go resets on every read.
func (c *counters) snapshot(topic string, stats kafkago.WriterStats) Metrics {
	retries := c.retries.Add(stats.Retries)
	return Metrics{
		Topic:     topic,
		Queued:    c.queued.Load(),
		Filtered:  c.filtered.Load(),
		Delivered: c.delivered.Load(),
		Failed:    c.failed.Load(),
		Retries:   retries,
	}
}
