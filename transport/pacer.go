package transport

import "time"

// pacingGain is applied to the congestion window to compute the pacing
// rate outside slow start, smoothing bursts once bandwidth has been probed.
// Slow start uses a steeper gain since the window itself is still growing
// exponentially every round trip.
const pacingGain = 1.25
const pacingGainSlowStart = 2.0

// pacingBurstPackets is the number of packets' worth of budget a pacer
// grants up front and on refill cap, so a connection doesn't trickle out
// single packets right after the timer last fired.
const pacingBurstPackets = 10

// pacer spreads packet sends across an RTT instead of releasing a full
// congestion window at once, reducing burst loss (RFC 9002 Section 7.7).
type pacer struct {
	congestion *congestionController
	budget     float64 // bytes currently available to send without delay
	lastUpdate time.Time
}

func (p *pacer) init(c *congestionController) {
	p.congestion = c
}

func (p *pacer) gain() float64 {
	if p.congestion.state == congestionSlowStart {
		return pacingGainSlowStart
	}
	return pacingGain
}

// rate returns the current pacing rate in bytes/second.
func (p *pacer) rate(smoothedRTT time.Duration) float64 {
	if smoothedRTT <= 0 {
		smoothedRTT = initialRTT
	}
	return p.gain() * float64(p.congestion.congestionWindow) / smoothedRTT.Seconds()
}

// nextSendTime reports when, after sending size bytes now, the pacer will
// next allow a send, given the current smoothed RTT. A call that finds
// budget available consumes it, so this is meant to be called once per
// candidate send, immediately before that send goes out.
func (p *pacer) nextSendTime(now time.Time, size uint64, smoothedRTT time.Duration) time.Time {
	p.refillBudget(now, smoothedRTT)
	if p.budget >= float64(size) {
		p.budget -= float64(size)
		return now
	}
	deficit := float64(size) - p.budget
	rate := p.rate(smoothedRTT)
	if rate <= 0 {
		return now
	}
	delay := time.Duration(deficit / rate * float64(time.Second))
	p.budget = 0
	p.lastUpdate = now.Add(delay)
	return now.Add(delay)
}

// peekSendTime is nextSendTime without consuming budget on the fast path,
// for scheduling a wakeup (Conn.Timeout) rather than deciding whether to
// send right now.
func (p *pacer) peekSendTime(now time.Time, size uint64, smoothedRTT time.Duration) time.Time {
	p.refillBudget(now, smoothedRTT)
	if p.budget >= float64(size) {
		return now
	}
	deficit := float64(size) - p.budget
	rate := p.rate(smoothedRTT)
	if rate <= 0 {
		return now
	}
	delay := time.Duration(deficit / rate * float64(time.Second))
	return now.Add(delay)
}

func (p *pacer) refillBudget(now time.Time, smoothedRTT time.Duration) {
	if p.lastUpdate.IsZero() {
		p.lastUpdate = now
		// Allow an initial burst so a connection doesn't idle-start
		// one packet at a time.
		p.budget = float64(maxDatagramSize) * pacingBurstPackets
		return
	}
	elapsed := now.Sub(p.lastUpdate)
	if elapsed <= 0 {
		return
	}
	p.budget += p.rate(smoothedRTT) * elapsed.Seconds()
	max := float64(maxDatagramSize) * pacingBurstPackets
	if p.budget > max {
		p.budget = max
	}
	p.lastUpdate = now
}
