package quic

import (
	"io"
	"net"
	"time"

	"github.com/docker/go-events"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/goburrow/qeen/transport"
)

// retryTokenMaxAge bounds how long a client has to come back with a Retry
// token before the Listener treats it as stale, RFC 9000 Section 8.1.3.
const retryTokenMaxAge = 10 * time.Second

// Listener accepts inbound QUIC connections on a single UDP socket. A
// datagram whose destination connection ID does not match any existing
// connection is treated as a new connection attempt and handed to
// transport.Accept with a freshly generated local connection ID.
type Listener struct {
	config       *transport.Config
	d            *dispatcher
	handler      Handler
	pendingSinks []events.Sink
	metrics      *metricsCollector

	retryKey *transport.RetryTokenKey
}

// NewListener creates a server using config to accept every new connection.
func NewListener(config *transport.Config) *Listener {
	return &Listener{config: config}
}

// EnableRetry turns on stateless Retry address validation, RFC 9000 Section
// 8.1.2: every new connection attempt is challenged with a Retry packet
// carrying a signed token before the Listener commits any per-connection
// state, and only an Initial echoing a valid token is accepted. Must be
// called before ListenAndServe.
func (l *Listener) EnableRetry() error {
	k, err := transport.NewRetryTokenKey()
	if err != nil {
		return err
	}
	l.retryKey = k
	return nil
}

// SetHandler installs the handler invoked with each connection's events,
// including EventConnAccept the first time a connection's handshake event
// loop runs.
func (l *Listener) SetHandler(h Handler) {
	l.handler = h
	if l.d != nil {
		l.d.handler = h
	}
}

// SetLogger configures qlog-style transaction logging for every accepted
// connection. It takes effect only once ListenAndServe has created the
// listener's dispatcher; a call made before that is ignored.
func (l *Listener) SetLogger(level int, w io.Writer) {
	if l.d == nil {
		return
	}
	l.d.logger.level = logLevel(level)
	l.d.logger.setWriter(w)
}

// AddEventSink attaches a docker/go-events sink that receives a lifecycle
// event each time a connection is accepted or closed.
func (l *Listener) AddEventSink(s events.Sink) {
	if l.d != nil {
		l.d.sink(s)
	} else {
		l.pendingSinks = append(l.pendingSinks, s)
	}
}

// Metrics returns a prometheus.Collector reporting live recovery and path
// statistics for every connection accepted by this listener. Register it
// once with a prometheus.Registry.
func (l *Listener) Metrics() prometheus.Collector {
	if l.metrics == nil {
		l.metrics = NewMetricsCollector().(*metricsCollector)
	}
	if l.d != nil {
		l.d.metrics = l.metrics
	}
	return l.metrics
}

// ListenAndServe binds addr and begins accepting connections.
func (l *Listener) ListenAndServe(addr string) error {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return err
	}
	socket, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return err
	}
	l.d = newDispatcher(socket, l.config)
	l.d.handler = l.handler
	l.d.onUnmatched = l.accept
	for _, s := range l.pendingSinks {
		l.d.sink(s)
	}
	if l.metrics != nil {
		l.d.metrics = l.metrics
	}
	l.d.start()
	return nil
}

// accept handles a datagram addressed to an unknown connection ID: it is
// only a valid new-connection attempt if it looks like an Initial packet,
// per RFC 9000 Section 7.2. Everything else is silently dropped.
func (l *Listener) accept(data []byte, addr *net.UDPAddr) {
	h, err := transport.DecodeHeader(data, cidRoutingLen)
	if err != nil || !h.IsLong {
		return
	}
	var odcid, scid []byte
	if l.retryKey != nil && h.IsInitial {
		if len(h.Token) == 0 {
			l.sendRetry(h, addr)
			return
		}
		got, err := l.retryKey.Validate(h.Token, time.Now(), retryTokenMaxAge)
		if err != nil {
			logrus.WithError(err).Debug("quic: rejecting invalid retry token")
			return
		}
		odcid = got
		// The client now addresses us with the connection ID we chose in
		// the Retry packet; keep it instead of picking a third one, or a
		// retransmitted Initial would look like a second new connection.
		scid = h.DCID
	}
	if scid == nil {
		var err error
		scid, err = newLocalCID()
		if err != nil {
			logrus.WithError(err).Warn("quic: failed to allocate connection id")
			return
		}
	}
	conn, err := transport.Accept(scid, odcid, l.config)
	if err != nil {
		logrus.WithError(err).Debug("quic: rejecting connection attempt")
		return
	}
	rc := newRemoteConn(l.d, conn, scid, addr)
	l.d.add(rc)
	rc.deliver(data)
}

// sendRetry challenges a token-less Initial with a stateless Retry packet,
// without allocating any connection state of its own.
func (l *Listener) sendRetry(h transport.Header, addr *net.UDPAddr) {
	scid, err := newLocalCID()
	if err != nil {
		logrus.WithError(err).Warn("quic: failed to allocate retry connection id")
		return
	}
	token := l.retryKey.Mint(h.DCID, time.Now())
	pkt, err := transport.BuildRetryPacket(h.Version, h.SCID, scid, h.DCID, token)
	if err != nil {
		logrus.WithError(err).Warn("quic: failed to build retry packet")
		return
	}
	if err := l.d.writeTo(pkt, addr); err != nil {
		logrus.WithError(err).Debug("quic: failed to send retry packet")
	}
}

// Close tears down the socket and every connection accepted through it.
func (l *Listener) Close() error {
	if l.d == nil {
		return nil
	}
	return l.d.close()
}
