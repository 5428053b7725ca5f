package transport

import "time"

// ConnStats is a point-in-time snapshot of the recovery, congestion, and
// path state of a Conn, exported for metrics collection. It intentionally
// mirrors only what an external observer needs: the fields backing it stay
// unexported and internal to the recovery/congestion machinery.
type ConnStats struct {
	// CongestionWindow is the current congestion window in bytes.
	CongestionWindow uint64
	// SlowStartThreshold is the current ssthresh in bytes; it is
	// effectively unbounded before the first loss.
	SlowStartThreshold uint64
	// BytesInFlight is the number of sent-but-not-yet-acked-or-lost bytes
	// counted against the congestion window.
	BytesInFlight uint64
	// InRecovery reports whether the congestion controller is in the
	// Recovery state.
	InRecovery bool

	SmoothedRTT time.Duration
	RTTVariance time.Duration
	MinRTT      time.Duration
	LatestRTT   time.Duration

	PTOCount int

	// PathValidated reports whether the active path has completed
	// PATH_CHALLENGE/PATH_RESPONSE validation.
	PathValidated bool
	BytesSent     uint64
	BytesReceived uint64
}

// Stats returns a snapshot of the connection's loss-recovery, congestion,
// and path state for external observability (metrics exporters, CLI
// diagnostics). It does not mutate connection state.
func (s *Conn) Stats() ConnStats {
	r := &s.recovery
	return ConnStats{
		CongestionWindow:   r.congestion.congestionWindow,
		SlowStartThreshold: r.congestion.slowStartThreshold,
		BytesInFlight:      r.congestion.bytesInFlight,
		InRecovery:         r.congestion.state == congestionRecovery,
		SmoothedRTT:        r.smoothedRTT,
		RTTVariance:        r.rttVariance,
		MinRTT:             r.minRTT,
		LatestRTT:          r.latestRTT,
		PTOCount:           r.ptoCount,
		PathValidated:      s.path.validated,
		BytesSent:          s.path.bytesSent,
		BytesReceived:      s.path.bytesReceived,
	}
}
