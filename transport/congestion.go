package transport

import "time"

const (
	initialWindowPackets = 10
	maxDatagramSize      = 1452 // typical path MTU minus IP/UDP headers
	minWindowPackets     = 2
	lossReductionFactor  = 0.5
	persistentCongestionThreshold = 3 // multiple of PTO without any ack
)

type congestionState int

const (
	congestionSlowStart congestionState = iota
	congestionAvoidance
	congestionRecovery
)

// congestionController implements NewReno congestion control, RFC 9002
// Appendix B, with ECN-aware window reduction.
type congestionController struct {
	state congestionState

	congestionWindow    uint64
	slowStartThreshold  uint64
	bytesInFlight        uint64

	recoveryStartTime time.Time

	ecnCE uint64
}

func (c *congestionController) init(now time.Time) {
	c.congestionWindow = initialWindowPackets * maxDatagramSize
	c.slowStartThreshold = ^uint64(0)
	c.state = congestionSlowStart
}

// availableWindow returns how many more bytes may be sent before
// bytesInFlight would exceed the congestion window.
func (c *congestionController) availableWindow() uint64 {
	if c.bytesInFlight >= c.congestionWindow {
		return 0
	}
	return c.congestionWindow - c.bytesInFlight
}

func (c *congestionController) onPacketSent(size uint64) {
	c.bytesInFlight += size
}

// onPacketAcked grows the window: by size in slow start (exponential),
// or by maxDatagramSize*size/cwnd on every acknowledgment in congestion
// avoidance (about one datagram per window of acked bytes, approximately
// linear), RFC 9002 Appendix B.3.
func (c *congestionController) onPacketAcked(size uint64, now, sentTime time.Time) {
	if c.bytesInFlight >= size {
		c.bytesInFlight -= size
	} else {
		c.bytesInFlight = 0
	}
	if c.inRecovery(sentTime) {
		return
	}
	switch c.state {
	case congestionSlowStart:
		c.congestionWindow += size
		if c.congestionWindow >= c.slowStartThreshold {
			c.state = congestionAvoidance
		}
	case congestionAvoidance, congestionRecovery:
		// An ack for a packet sent after recovery started ends recovery,
		// RFC 9002 Section 7.3.2.
		c.state = congestionAvoidance
		c.congestionWindow += maxDatagramSize * size / c.congestionWindow
	}
}

func (c *congestionController) inRecovery(sentTime time.Time) bool {
	return !c.recoveryStartTime.IsZero() && !sentTime.After(c.recoveryStartTime)
}

// onPacketsLost reduces the window on a new congestion event, RFC 9002
// Section 7.3.
func (c *congestionController) onPacketsLost(size uint64, now time.Time) {
	if c.bytesInFlight >= size {
		c.bytesInFlight -= size
	} else {
		c.bytesInFlight = 0
	}
	c.congestionEvent(now)
}

func (c *congestionController) congestionEvent(now time.Time) {
	if c.inRecovery(now) {
		return
	}
	c.recoveryStartTime = now
	c.congestionWindow = uint64(float64(c.congestionWindow) * lossReductionFactor)
	if c.congestionWindow < minWindowPackets*maxDatagramSize {
		c.congestionWindow = minWindowPackets * maxDatagramSize
	}
	c.slowStartThreshold = c.congestionWindow
	c.state = congestionRecovery
}

// onCongestionEventECN reduces the window in response to a newly reported
// ECN-CE count, distinct from packet loss but handled identically per
// RFC 9002 Section 7.3's reference to RFC 3168.
func (c *congestionController) onCongestionEventECN(ce uint64, now time.Time) {
	if ce <= c.ecnCE {
		return
	}
	c.ecnCE = ce
	c.congestionEvent(now)
}

// onPersistentCongestion collapses the window to the minimum, RFC 9002
// Section 7.6, once a sustained period with no acknowledgment is detected.
func (c *congestionController) onPersistentCongestion() {
	c.congestionWindow = minWindowPackets * maxDatagramSize
	c.state = congestionSlowStart
	c.slowStartThreshold = ^uint64(0)
	c.recoveryStartTime = time.Time{}
}
