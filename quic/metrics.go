package quic

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// metricsCollector implements prometheus.Collector over a dynamic set of
// live connections, following the Describe/Collect pattern of a
// registry-style exporter (see runzero's sockstats exporter): rather than
// updating a fixed set of gauges on every state change, Collect walks the
// live set and re-derives metric values from transport.ConnStats at scrape
// time.
type metricsCollector struct {
	mu    sync.Mutex
	conns map[*remoteConn]struct{}

	congestionWindow *prometheus.Desc
	bytesInFlight    *prometheus.Desc
	smoothedRTT      *prometheus.Desc
	ptoCount         *prometheus.Desc
	pathValidated    *prometheus.Desc
	bytesSent        *prometheus.Desc
	bytesReceived    *prometheus.Desc
}

// NewMetricsCollector returns a prometheus.Collector exposing per-connection
// recovery and path statistics for every connection registered with Track.
// Register it with a prometheus.Registry.
func NewMetricsCollector() prometheus.Collector {
	const ns = "quic"
	labels := []string{"trace", "remote_addr"}
	return &metricsCollector{
		conns: make(map[*remoteConn]struct{}),
		congestionWindow: prometheus.NewDesc(
			prometheus.BuildFQName(ns, "conn", "congestion_window_bytes"),
			"Current congestion window.", labels, nil),
		bytesInFlight: prometheus.NewDesc(
			prometheus.BuildFQName(ns, "conn", "bytes_in_flight"),
			"Bytes sent but not yet acknowledged or declared lost.", labels, nil),
		smoothedRTT: prometheus.NewDesc(
			prometheus.BuildFQName(ns, "conn", "smoothed_rtt_seconds"),
			"Smoothed round-trip time estimate.", labels, nil),
		ptoCount: prometheus.NewDesc(
			prometheus.BuildFQName(ns, "conn", "pto_count"),
			"Consecutive probe timeouts since the last acknowledgment.", labels, nil),
		pathValidated: prometheus.NewDesc(
			prometheus.BuildFQName(ns, "conn", "path_validated"),
			"1 if the active path has completed validation, else 0.", labels, nil),
		bytesSent: prometheus.NewDesc(
			prometheus.BuildFQName(ns, "conn", "bytes_sent_total"),
			"Bytes sent on the active path.", labels, nil),
		bytesReceived: prometheus.NewDesc(
			prometheus.BuildFQName(ns, "conn", "bytes_received_total"),
			"Bytes received on the active path.", labels, nil),
	}
}

// Track registers c so its stats are reported on the next Collect. Untrack
// is called automatically once the connection closes.
func (m *metricsCollector) Track(c *remoteConn) {
	m.mu.Lock()
	m.conns[c] = struct{}{}
	m.mu.Unlock()
}

func (m *metricsCollector) Untrack(c *remoteConn) {
	m.mu.Lock()
	delete(m.conns, c)
	m.mu.Unlock()
}

// Describe implements prometheus.Collector.
func (m *metricsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.congestionWindow
	ch <- m.bytesInFlight
	ch <- m.smoothedRTT
	ch <- m.ptoCount
	ch <- m.pathValidated
	ch <- m.bytesSent
	ch <- m.bytesReceived
}

// Collect implements prometheus.Collector.
func (m *metricsCollector) Collect(ch chan<- prometheus.Metric) {
	m.mu.Lock()
	conns := make([]*remoteConn, 0, len(m.conns))
	for c := range m.conns {
		conns = append(conns, c)
	}
	m.mu.Unlock()

	for _, c := range conns {
		stats := c.conn.Stats()
		labels := []string{c.trace, c.addr.String()}
		ch <- prometheus.MustNewConstMetric(m.congestionWindow, prometheus.GaugeValue, float64(stats.CongestionWindow), labels...)
		ch <- prometheus.MustNewConstMetric(m.bytesInFlight, prometheus.GaugeValue, float64(stats.BytesInFlight), labels...)
		ch <- prometheus.MustNewConstMetric(m.smoothedRTT, prometheus.GaugeValue, stats.SmoothedRTT.Seconds(), labels...)
		ch <- prometheus.MustNewConstMetric(m.ptoCount, prometheus.GaugeValue, float64(stats.PTOCount), labels...)
		ch <- prometheus.MustNewConstMetric(m.pathValidated, prometheus.GaugeValue, boolToFloat(stats.PathValidated), labels...)
		ch <- prometheus.MustNewConstMetric(m.bytesSent, prometheus.CounterValue, float64(stats.BytesSent), labels...)
		ch <- prometheus.MustNewConstMetric(m.bytesReceived, prometheus.CounterValue, float64(stats.BytesReceived), labels...)
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
