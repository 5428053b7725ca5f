package quic

import (
	"net"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"github.com/goburrow/qeen/transport"
)

// remoteConn binds one transport.Conn to a UDP peer address and a
// dispatcher. It is the per-connection actor described in spec.md Section
// 5: a single goroutine (run) owns every mutation of the wrapped Conn, only
// ever suspending on the earliest of its timer or an inbound datagram.
type remoteConn struct {
	conn  *transport.Conn
	addr  *net.UDPAddr
	scid  []byte
	trace string // xid-tagged identifier correlating logrus and qlog output

	d *dispatcher

	inbound chan []byte
	done    chan struct{}
	closed  sync.Once

	handler Handler
	events  []transport.Event
}

func newRemoteConn(d *dispatcher, conn *transport.Conn, scid []byte, addr *net.UDPAddr) *remoteConn {
	return &remoteConn{
		conn:    conn,
		addr:    addr,
		scid:    append([]byte(nil), scid...),
		trace:   xid.New().String(),
		d:       d,
		inbound: make(chan []byte, 64),
		done:    make(chan struct{}),
		handler: d.handler,
	}
}

// LocalAddr implements Conn.
func (c *remoteConn) LocalAddr() net.Addr {
	return c.d.socket.LocalAddr()
}

// RemoteAddr implements Conn.
func (c *remoteConn) RemoteAddr() net.Addr {
	return c.addr
}

// Stream implements Conn.
func (c *remoteConn) Stream(id uint64) *transport.Stream {
	st, err := c.conn.Stream(id)
	if err != nil {
		logrus.WithFields(logrus.Fields{"trace": c.trace, "stream": id}).WithError(err).Debug("quic: stream unavailable")
		return nil
	}
	return st
}

// Close implements Conn.
func (c *remoteConn) Close(errCode uint64, reason string) error {
	c.conn.Close(true, errCode, reason)
	c.wake()
	return nil
}

// deliver hands a received datagram to the connection's goroutine. It never
// blocks: a full inbound queue means the connection is falling behind, and
// RFC 9000 Section 9 already allows silently dropping an unparseable or
// unwelcome datagram.
func (c *remoteConn) deliver(b []byte) {
	cp := append([]byte(nil), b...)
	select {
	case c.inbound <- cp:
	default:
		logrus.WithField("trace", c.trace).Warn("quic: inbound queue full, dropping datagram")
	}
}

// wake nudges the run loop to re-check conn state (e.g. after a
// locally-initiated Close) without waiting for the next timer or datagram.
func (c *remoteConn) wake() {
	select {
	case c.inbound <- nil:
	default:
	}
}

// stop terminates the run loop. Safe to call more than once.
func (c *remoteConn) stop() {
	c.closed.Do(func() { close(c.done) })
}

// run is the connection's actor loop: the single suspension point is the
// select below, matching spec.md Section 5 (pacer/loss-detection/PTO/idle
// timer, or inbound datagram).
func (c *remoteConn) run() {
	defer c.d.remove(c)

	buf := make([]byte, maxDatagramSize)
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()
	c.resetTimer(timer)

	if c.handler != nil {
		c.handler.Serve(c, []transport.Event{{Type: EventConnAccept}})
	}
	c.flush(buf)
	for {
		select {
		case data, ok := <-c.inbound:
			if !ok {
				return
			}
			if len(data) > 0 {
				if _, err := c.conn.Write(data); err != nil {
					logrus.WithField("trace", c.trace).WithError(err).Debug("quic: recv error")
				}
			}
		case <-timer.C:
			// Empty Write(nil) still runs Conn's timeout check.
			if _, err := c.conn.Write(nil); err != nil {
				logrus.WithField("trace", c.trace).WithError(err).Debug("quic: timer error")
			}
		case <-c.done:
			return
		}
		c.flush(buf)
		if c.conn.IsClosed() {
			c.fireCloseEvent()
			return
		}
		c.resetTimer(timer)
	}
}

// flush drains outgoing packets produced by Conn.Read to the socket and
// delivers any application events accumulated since the last flush.
func (c *remoteConn) flush(buf []byte) {
	for {
		n, err := c.conn.Read(buf)
		if err != nil {
			logrus.WithField("trace", c.trace).WithError(err).Debug("quic: send error")
			return
		}
		if n == 0 {
			break
		}
		if _, err := c.d.socket.WriteToUDP(buf[:n], c.addr); err != nil {
			logrus.WithField("trace", c.trace).WithError(err).Warn("quic: udp write failed")
			return
		}
	}
	c.events = c.conn.Events(c.events[:0])
	if len(c.events) > 0 && c.handler != nil {
		c.handler.Serve(c, c.events)
	}
}

func (c *remoteConn) fireCloseEvent() {
	if c.handler != nil {
		c.handler.Serve(c, []transport.Event{{Type: EventConnClose}})
	}
}

func (c *remoteConn) resetTimer(timer *time.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
	d := c.conn.Timeout()
	if d < 0 {
		d = time.Hour
	}
	timer.Reset(d)
}
