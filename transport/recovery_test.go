package transport

import (
	"testing"
	"time"
)

func TestLossRecoveryPacketThreshold(t *testing.T) {
	var r lossRecovery
	now := time.Now()
	r.init(now)
	for pn := uint64(0); pn <= 3; pn++ {
		op := newOutgoingPacket(pn, now)
		op.addFrame(&pingFrame{})
		op.size = maxDatagramSize
		r.onPacketSent(op, packetSpaceApplication)
	}
	var acked rangeSet
	acked.add(3)
	r.onAckReceived(&acked, 0, packetSpaceApplication, now.Add(10*time.Millisecond))
	if len(r.lost[packetSpaceApplication]) == 0 {
		t.Fatal("expected packet 0 to be declared lost by packet threshold")
	}
}

func TestLossRecoveryTimeThreshold(t *testing.T) {
	var r lossRecovery
	now := time.Now()
	r.init(now)
	op0 := newOutgoingPacket(0, now)
	op0.addFrame(&pingFrame{})
	op0.size = maxDatagramSize
	r.onPacketSent(op0, packetSpaceApplication)

	later := now.Add(time.Second)
	op1 := newOutgoingPacket(1, later)
	op1.addFrame(&pingFrame{})
	op1.size = maxDatagramSize
	r.onPacketSent(op1, packetSpaceApplication)

	var acked rangeSet
	acked.add(1)
	r.onAckReceived(&acked, 0, packetSpaceApplication, later.Add(time.Millisecond))
	if len(r.lost[packetSpaceApplication]) == 0 {
		t.Fatal("expected packet 0 to be declared lost by time threshold")
	}
}

func TestLossRecoveryRTTEstimation(t *testing.T) {
	var r lossRecovery
	now := time.Now()
	r.init(now)
	r.updateRTT(100*time.Millisecond, 0)
	if r.smoothedRTT != 100*time.Millisecond {
		t.Fatalf("smoothedRTT = %v, want 100ms after first sample", r.smoothedRTT)
	}
	r.updateRTT(200*time.Millisecond, 0)
	if r.smoothedRTT <= 100*time.Millisecond || r.smoothedRTT >= 200*time.Millisecond {
		t.Fatalf("smoothedRTT = %v, want between 100ms and 200ms", r.smoothedRTT)
	}
}

func TestLossRecoveryDrainAckedAndLost(t *testing.T) {
	var r lossRecovery
	now := time.Now()
	r.init(now)
	op := newOutgoingPacket(0, now)
	cf := newCryptoFrame([]byte("hi"), 0)
	op.addFrame(cf)
	op.size = maxDatagramSize
	r.onPacketSent(op, packetSpaceInitial)

	var acked rangeSet
	acked.add(0)
	r.onAckReceived(&acked, 0, packetSpaceInitial, now.Add(time.Millisecond))

	var seen []frame
	r.drainAcked(packetSpaceInitial, func(f frame) { seen = append(seen, f) })
	if len(seen) != 1 {
		t.Fatalf("drainAcked saw %d frames, want 1", len(seen))
	}
	// Second call should see nothing more.
	seen = nil
	r.drainAcked(packetSpaceInitial, func(f frame) { seen = append(seen, f) })
	if len(seen) != 0 {
		t.Fatal("drainAcked should be empty after being drained")
	}
}

func TestProbeTimeoutBacksOffExponentially(t *testing.T) {
	var r lossRecovery
	r.init(time.Now())
	first := r.probeTimeout()
	r.ptoCount = 1
	second := r.probeTimeout()
	if second <= first {
		t.Fatalf("second PTO (%v) should be larger than first (%v)", second, first)
	}
}
