package transport

import (
	"testing"
	"time"
)

func TestCongestionSlowStartGrowsOnAck(t *testing.T) {
	var c congestionController
	now := time.Now()
	c.init(now)
	initial := c.congestionWindow
	c.onPacketSent(maxDatagramSize)
	c.onPacketAcked(maxDatagramSize, now.Add(time.Millisecond), now)
	if c.congestionWindow <= initial {
		t.Fatalf("congestionWindow did not grow in slow start: %d -> %d", initial, c.congestionWindow)
	}
	if c.state != congestionSlowStart {
		t.Fatalf("state = %v, want slow start", c.state)
	}
}

func TestCongestionEventHalvesWindow(t *testing.T) {
	var c congestionController
	now := time.Now()
	c.init(now)
	before := c.congestionWindow
	c.onPacketSent(maxDatagramSize)
	c.onPacketsLost(maxDatagramSize, now.Add(time.Millisecond))
	if c.congestionWindow >= before {
		t.Fatalf("congestionWindow did not shrink on loss: %d -> %d", before, c.congestionWindow)
	}
	if c.state != congestionRecovery {
		t.Fatalf("state = %v, want recovery", c.state)
	}
}

func TestCongestionAvoidanceAfterThresholdReached(t *testing.T) {
	var c congestionController
	now := time.Now()
	c.init(now)
	c.slowStartThreshold = c.congestionWindow // force immediate transition
	c.onPacketSent(maxDatagramSize)
	c.onPacketAcked(maxDatagramSize, now.Add(time.Millisecond), now)
	if c.state != congestionAvoidance {
		t.Fatalf("state = %v, want congestion avoidance", c.state)
	}
}

func TestCongestionRecoveryIgnoresAcksForPacketsSentDuringRecovery(t *testing.T) {
	var c congestionController
	now := time.Now()
	c.init(now)
	c.onPacketSent(maxDatagramSize)
	c.onPacketsLost(maxDatagramSize, now) // enters recovery at `now`
	windowAfterLoss := c.congestionWindow
	// A packet sent at the same instant recovery started should not grow cwnd.
	c.onPacketSent(maxDatagramSize)
	c.onPacketAcked(maxDatagramSize, now.Add(time.Millisecond), now)
	if c.congestionWindow != windowAfterLoss {
		t.Fatalf("congestionWindow changed for a packet sent during recovery: %d -> %d", windowAfterLoss, c.congestionWindow)
	}
}

func TestPersistentCongestionResetsToMinimum(t *testing.T) {
	var c congestionController
	c.init(time.Now())
	c.congestionWindow = 1 << 20
	c.onPersistentCongestion()
	if c.congestionWindow != minWindowPackets*maxDatagramSize {
		t.Fatalf("congestionWindow = %d, want minimum window", c.congestionWindow)
	}
	if c.state != congestionSlowStart {
		t.Fatalf("state = %v, want slow start", c.state)
	}
}

func TestPacerDelaysWhenBudgetExhausted(t *testing.T) {
	var c congestionController
	now := time.Now()
	c.init(now)
	c.congestionWindow = maxDatagramSize // tiny window forces pacing delay
	var p pacer
	p.init(&c)
	t1 := p.nextSendTime(now, maxDatagramSize, 50*time.Millisecond)
	if t1.After(now) {
		t.Fatal("first send should use the initial burst budget")
	}
	t2 := p.nextSendTime(now, maxDatagramSize*10, 50*time.Millisecond)
	if !t2.After(now) {
		t.Fatal("expected pacer to delay a send exceeding the available budget")
	}
}
