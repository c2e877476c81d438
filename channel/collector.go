// collector.go adapts a Channel's Stats snapshot to prometheus.Collector, an
// additive export surface alongside the plain Stats()/ResetStats() API.
//
// Grounded on the teacher's `stats` package, which exposes the same runtime
// counters both as a plain struct and as prometheus metrics.
package channel

import "github.com/prometheus/client_golang/prometheus"

// Collector exports one Channel's Stats as prometheus gauges/counters. Not
// registered automatically: callers opt in with prometheus.MustRegister.
type Collector struct {
	c      *Channel
	labels prometheus.Labels
}

// NewCollector wraps c for prometheus export, tagging every metric with
// name (typically the channel's bound address or a caller-chosen label).
func NewCollector(c *Channel, name string) *Collector {
	return &Collector{c: c, labels: prometheus.Labels{"channel": name}}
}

var channelStatDescs = map[string]*prometheus.Desc{
	"messages_sent":      prometheus.NewDesc("goomsg_channel_messages_sent_total", "Messages sent.", []string{"channel"}, nil),
	"messages_received":  prometheus.NewDesc("goomsg_channel_messages_received_total", "Messages received.", []string{"channel"}, nil),
	"bytes_sent":         prometheus.NewDesc("goomsg_channel_bytes_sent_total", "Bytes sent.", []string{"channel"}, nil),
	"bytes_received":     prometheus.NewDesc("goomsg_channel_bytes_received_total", "Bytes received.", []string{"channel"}, nil),
	"send_errors":        prometheus.NewDesc("goomsg_channel_send_errors_total", "Send errors.", []string{"channel"}, nil),
	"receive_errors":     prometheus.NewDesc("goomsg_channel_receive_errors_total", "Receive errors.", []string{"channel"}, nil),
	"dropped":            prometheus.NewDesc("goomsg_channel_dropped_total", "Dropped messages.", []string{"channel"}, nil),
	"retried":            prometheus.NewDesc("goomsg_channel_retried_total", "Retried sends.", []string{"channel"}, nil),
	"current_queue_size": prometheus.NewDesc("goomsg_channel_queue_size", "Current queue size.", []string{"channel"}, nil),
	"max_queue_size":     prometheus.NewDesc("goomsg_channel_queue_size_max", "Max observed queue size.", []string{"channel"}, nil),
}

func (col *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range channelStatDescs {
		ch <- d
	}
}

func (col *Collector) Collect(ch chan<- prometheus.Metric) {
	s := col.c.Stats()
	name := col.labels["channel"]
	counter := func(key string, v int64) {
		ch <- prometheus.MustNewConstMetric(channelStatDescs[key], prometheus.CounterValue, float64(v), name)
	}
	gauge := func(key string, v int64) {
		ch <- prometheus.MustNewConstMetric(channelStatDescs[key], prometheus.GaugeValue, float64(v), name)
	}
	counter("messages_sent", s.MessagesSent)
	counter("messages_received", s.MessagesReceived)
	counter("bytes_sent", s.BytesSent)
	counter("bytes_received", s.BytesReceived)
	counter("send_errors", s.SendErrors)
	counter("receive_errors", s.ReceiveErrors)
	counter("dropped", s.Dropped)
	counter("retried", s.Retried)
	gauge("current_queue_size", s.CurrentQueueSize)
	gauge("max_queue_size", s.MaxQueueSize)
}

var _ prometheus.Collector = (*Collector)(nil)
