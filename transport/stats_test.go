package transport

import (
	"testing"
	"time"
)

func TestConnStatsReflectsRecovery(t *testing.T) {
	var c Conn
	c.recovery.init(time.Now())
	c.recovery.congestion.bytesInFlight = 1200
	c.recovery.smoothedRTT = 0
	stats := c.Stats()
	if stats.CongestionWindow != c.recovery.congestion.congestionWindow {
		t.Fatalf("cwnd = %d, want %d", stats.CongestionWindow, c.recovery.congestion.congestionWindow)
	}
	if stats.BytesInFlight != 1200 {
		t.Fatalf("bytesInFlight = %d", stats.BytesInFlight)
	}
	if stats.InRecovery {
		t.Fatalf("should not start in recovery")
	}
}
