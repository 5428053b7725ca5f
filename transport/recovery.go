package transport

import "time"

const (
	packetThreshold  = 3
	timeThresholdNum = 9
	timeThresholdDen = 8
	granularity      = time.Millisecond
	initialRTT       = 333 * time.Millisecond
	maxPTOBackoff    = 6 // 2^6 = 64x, generous ceiling on exponential backoff
)

// sentPacket is the loss-recovery bookkeeping kept per in-flight packet.
type sentPacket struct {
	packetNumber uint64
	timeSent     time.Time
	size         uint64
	ackEliciting bool
	inFlight     bool
	frames       []frame
}

// lossRecovery implements RFC 9002: RTT estimation, packet- and
// time-threshold loss detection, and probe timeout scheduling, tracked
// independently per packet number space.
type lossRecovery struct {
	// RTT estimation, RFC 9002 Section 5.
	latestRTT   time.Duration
	minRTT      time.Duration
	smoothedRTT time.Duration
	rttVariance time.Duration
	rttSamples  int

	maxAckDelay time.Duration

	sent                [packetSpaceCount][]*sentPacket
	lost                [packetSpaceCount][]frame
	pendingAckedFrames  [packetSpaceCount][]frame

	ptoCount int
	probes   int

	lossDetectionTimer  time.Time
	lossTime            [packetSpaceCount]time.Time
	lastAckElicitingSent [packetSpaceCount]time.Time

	congestion congestionController
	pacer      pacer
}

func (r *lossRecovery) init(now time.Time) {
	r.smoothedRTT = initialRTT
	r.rttVariance = initialRTT / 2
	r.minRTT = 0
	r.maxAckDelay = 25 * time.Millisecond
	r.congestion.init(now)
	r.pacer.init(&r.congestion)
}

// onPacketSent records a newly sent packet as in-flight for the given space.
func (r *lossRecovery) onPacketSent(op *outgoingPacket, space packetSpace) {
	sp := &sentPacket{
		packetNumber: op.packetNumber,
		timeSent:     op.timeSent,
		size:         op.size,
		ackEliciting: op.ackEliciting,
		inFlight:     op.inFlight,
		frames:       op.frames,
	}
	r.sent[space] = append(r.sent[space], sp)
	if op.ackEliciting {
		r.lastAckElicitingSent[space] = op.timeSent
		if op.inFlight {
			r.congestion.onPacketSent(op.size)
		}
	}
}

// updateRTT applies a new RTT sample, RFC 9002 Section 5.3.
func (r *lossRecovery) updateRTT(latestRTT, ackDelay time.Duration) {
	r.latestRTT = latestRTT
	if r.rttSamples == 0 {
		r.minRTT = latestRTT
		r.smoothedRTT = latestRTT
		r.rttVariance = latestRTT / 2
		r.rttSamples++
		return
	}
	r.rttSamples++
	if r.minRTT == 0 || latestRTT < r.minRTT {
		r.minRTT = latestRTT
	}
	adjusted := latestRTT
	if adjusted > r.minRTT && ackDelay > 0 {
		capped := ackDelay
		if capped > r.maxAckDelay {
			capped = r.maxAckDelay
		}
		if adjusted-r.minRTT >= capped {
			adjusted -= capped
		}
	}
	rttDiff := r.smoothedRTT - adjusted
	if rttDiff < 0 {
		rttDiff = -rttDiff
	}
	r.rttVariance = (3*r.rttVariance + rttDiff) / 4
	r.smoothedRTT = (7*r.smoothedRTT + adjusted) / 8
}

// onAckReceived processes a decoded ACK range set for one space: it
// updates the RTT estimate from the largest newly-acked packet, moves
// acknowledged packets out of `sent`, and runs loss detection on the rest.
func (r *lossRecovery) onAckReceived(acked *rangeSet, ackDelay time.Duration, space packetSpace, now time.Time) {
	sentList := r.sent[space]
	var newlyAcked []*sentPacket
	remaining := sentList[:0]
	var largestAcked *sentPacket
	for _, sp := range sentList {
		if acked.contains(sp.packetNumber) {
			newlyAcked = append(newlyAcked, sp)
			if largestAcked == nil || sp.packetNumber > largestAcked.packetNumber {
				largestAcked = sp
			}
		} else {
			remaining = append(remaining, sp)
		}
	}
	r.sent[space] = remaining
	if len(newlyAcked) == 0 {
		return
	}
	if largestAcked != nil {
		if lg, ok := acked.largest(); ok && lg == largestAcked.packetNumber {
			r.updateRTT(now.Sub(largestAcked.timeSent), ackDelay)
		}
	}
	var ackedSize uint64
	for _, sp := range newlyAcked {
		if sp.inFlight {
			ackedSize += sp.size
		}
	}
	if ackedSize > 0 {
		r.congestion.onPacketAcked(ackedSize, now, largestAcked.timeSent)
	}
	r.detectAndDeclareLost(space, newlyAcked, now)
	r.ptoCount = 0
	r.setLossDetectionTimer(now)
	r.pendingAckedFrames[space] = append(r.pendingAckedFrames[space], framesOf(newlyAcked)...)
}

func framesOf(packets []*sentPacket) []frame {
	var out []frame
	for _, sp := range packets {
		out = append(out, sp.frames...)
	}
	return out
}

// detectAndDeclareLost implements RFC 9002 Section 6.1's packet- and
// time-threshold loss detection against everything still in `sent` older
// than the largest newly-acked packet.
func (r *lossRecovery) detectAndDeclareLost(space packetSpace, newlyAcked []*sentPacket, now time.Time) {
	var largest uint64
	for _, sp := range newlyAcked {
		if sp.packetNumber > largest {
			largest = sp.packetNumber
		}
	}
	lossDelay := time.Duration(timeThresholdNum) * maxDuration(r.latestRTT, r.smoothedRTT) / timeThresholdDen
	if lossDelay < granularity {
		lossDelay = granularity
	}
	lostSendTime := now.Add(-lossDelay)
	r.lossTime[space] = time.Time{}
	remaining := r.sent[space][:0]
	var lostSize uint64
	var lostInThisPass []*sentPacket
	for _, sp := range r.sent[space] {
		if sp.packetNumber > largest {
			remaining = append(remaining, sp)
			continue
		}
		if largest-sp.packetNumber >= packetThreshold || !sp.timeSent.After(lostSendTime) {
			r.lost[space] = append(r.lost[space], sp.frames...)
			lostInThisPass = append(lostInThisPass, sp)
			if sp.inFlight {
				lostSize += sp.size
			}
			continue
		}
		remaining = append(remaining, sp)
		lossTime := sp.timeSent.Add(lossDelay)
		if r.lossTime[space].IsZero() || lossTime.Before(r.lossTime[space]) {
			r.lossTime[space] = lossTime
		}
	}
	r.sent[space] = remaining
	if lostSize > 0 {
		r.congestion.onPacketsLost(lostSize, now)
		r.checkPersistentCongestion(lostInThisPass)
	}
}

// checkPersistentCongestion is a simplified form of RFC 9002 Section 7.6:
// if the packets declared lost in one pass were sent over a span at least
// as long as the persistent congestion duration, the congestion window
// collapses to the minimum rather than merely halving. It compares only
// the earliest and latest send times of those lost packets; it does not
// check whether a packet sent within that span was acknowledged.
func (r *lossRecovery) checkPersistentCongestion(lost []*sentPacket) {
	if len(lost) < 2 {
		return
	}
	first, last := lost[0], lost[0]
	for _, sp := range lost {
		if sp.timeSent.Before(first.timeSent) {
			first = sp
		}
		if sp.timeSent.After(last.timeSent) {
			last = sp
		}
	}
	pto := r.smoothedRTT + maxDuration(4*r.rttVariance, granularity) + r.maxAckDelay
	duration := pto * persistentCongestionThreshold
	if last.timeSent.Sub(first.timeSent) >= duration {
		r.congestion.onPersistentCongestion()
	}
}

// drainAcked invokes fn for every frame carried by a packet acknowledged
// since the last call, then clears the buffer.
func (r *lossRecovery) drainAcked(space packetSpace, fn func(frame)) {
	for _, f := range r.pendingAckedFrames[space] {
		fn(f)
	}
	r.pendingAckedFrames[space] = r.pendingAckedFrames[space][:0]
}

// drainLost invokes fn for every frame that must be resent because its
// packet was declared lost, then clears the buffer.
func (r *lossRecovery) drainLost(space packetSpace, fn func(frame)) {
	for _, f := range r.lost[space] {
		fn(f)
	}
	r.lost[space] = r.lost[space][:0]
}

// dropUnackedData discards all in-flight tracking for a space once it is
// dropped (RFC 9001 Section 4.9), crediting its bytes back out of flight.
func (r *lossRecovery) dropUnackedData(space packetSpace) {
	var size uint64
	for _, sp := range r.sent[space] {
		if sp.inFlight {
			size += sp.size
		}
	}
	if size > 0 {
		r.congestion.onPacketsLost(size, time.Time{})
	}
	r.sent[space] = nil
	r.lost[space] = nil
	r.lossTime[space] = time.Time{}
}

// probeTimeout computes the PTO duration, RFC 9002 Section 6.2.1.
func (r *lossRecovery) probeTimeout() time.Duration {
	backoff := time.Duration(1) << uint(minInt(r.ptoCount, maxPTOBackoff))
	pto := r.smoothedRTT + maxDuration(4*r.rttVariance, granularity) + r.maxAckDelay
	return pto * backoff
}

// setLossDetectionTimer arms the combined loss-detection/PTO timer for the
// earliest relevant space, RFC 9002 Section 6.2.
func (r *lossRecovery) setLossDetectionTimer(now time.Time) {
	var earliestLoss time.Time
	for space := packetSpaceInitial; space < packetSpaceCount; space++ {
		if r.lossTime[space].IsZero() {
			continue
		}
		if earliestLoss.IsZero() || r.lossTime[space].Before(earliestLoss) {
			earliestLoss = r.lossTime[space]
		}
	}
	if !earliestLoss.IsZero() {
		r.lossDetectionTimer = earliestLoss
		return
	}
	hasInFlight := false
	var earliestSent time.Time
	for space := packetSpaceInitial; space < packetSpaceCount; space++ {
		for _, sp := range r.sent[space] {
			if sp.ackEliciting {
				hasInFlight = true
				if earliestSent.IsZero() || sp.timeSent.Before(earliestSent) {
					earliestSent = sp.timeSent
				}
			}
		}
	}
	if !hasInFlight {
		r.lossDetectionTimer = time.Time{}
		return
	}
	r.lossDetectionTimer = earliestSent.Add(r.probeTimeout())
}

// onLossDetectionTimeout fires either a loss-detection pass or a PTO probe,
// RFC 9002 Section 6.2.4.
func (r *lossRecovery) onLossDetectionTimeout(now time.Time) {
	if r.lossDetectionTimer.IsZero() || now.Before(r.lossDetectionTimer) {
		return
	}
	for space := packetSpaceInitial; space < packetSpaceCount; space++ {
		if !r.lossTime[space].IsZero() {
			r.detectAndDeclareLost(space, nil, now)
			r.setLossDetectionTimer(now)
			return
		}
	}
	r.ptoCount++
	r.probes = 2
	r.lossDetectionTimer = time.Time{}
}

func maxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}
