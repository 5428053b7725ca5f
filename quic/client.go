package quic

import (
	"fmt"
	"io"
	"net"

	"github.com/docker/go-events"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/goburrow/qeen/transport"
)

// Client dials outbound QUIC connections over a single UDP socket, the
// client-side counterpart of Listener. Both share the dispatcher actor
// model in dispatcher.go and remoteconn.go.
type Client struct {
	config         *transport.Config
	d              *dispatcher
	pendingHandler Handler
	pendingSinks   []events.Sink
	metrics        *metricsCollector
}

// NewClient creates a client using config for every connection it dials.
func NewClient(config *transport.Config) *Client {
	return &Client{config: config}
}

// SetHandler installs the handler invoked with each connection's events.
func (c *Client) SetHandler(h Handler) {
	if c.d != nil {
		c.d.handler = h
	} else {
		c.pendingHandler = h
	}
}

// SetLogger configures qlog-style transaction logging; see package-level
// log levels in log.go. It takes effect only once ListenAndServe has
// created the client's dispatcher; a call made before that is ignored.
func (c *Client) SetLogger(level int, w io.Writer) {
	if c.d == nil {
		return
	}
	c.d.logger.level = logLevel(level)
	c.d.logger.setWriter(w)
}

// AddEventSink attaches a docker/go-events sink that receives a lifecycle
// event each time a connection is accepted or closed.
func (c *Client) AddEventSink(s events.Sink) {
	if c.d != nil {
		c.d.sink(s)
	} else {
		c.pendingSinks = append(c.pendingSinks, s)
	}
}

// Metrics returns a prometheus.Collector reporting live recovery and path
// statistics for every connection dialed by this client. Register it once
// with a prometheus.Registry.
func (c *Client) Metrics() prometheus.Collector {
	if c.metrics == nil {
		c.metrics = NewMetricsCollector().(*metricsCollector)
	}
	if c.d != nil {
		c.d.metrics = c.metrics
	}
	return c.metrics
}

// ListenAndServe binds the local UDP socket new connections will be dialed
// from. addr may be ":0" to let the kernel choose a port.
func (c *Client) ListenAndServe(addr string) error {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return err
	}
	socket, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return err
	}
	c.d = newDispatcher(socket, c.config)
	if c.pendingHandler != nil {
		c.d.handler = c.pendingHandler
	}
	for _, s := range c.pendingSinks {
		c.d.sink(s)
	}
	if c.metrics != nil {
		c.d.metrics = c.metrics
	}
	c.d.start()
	return nil
}

// Connect dials a new connection to addr, sending its first Initial packet
// immediately.
func (c *Client) Connect(addr string) error {
	if c.d == nil {
		return fmt.Errorf("quic: client not listening")
	}
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return err
	}
	scid, err := newLocalCID()
	if err != nil {
		return err
	}
	conn, err := transport.Connect(scid, c.config)
	if err != nil {
		return err
	}
	rc := newRemoteConn(c.d, conn, scid, udpAddr)
	c.d.add(rc)
	return nil
}

// Close tears down the socket and every connection dialed through it.
func (c *Client) Close() error {
	if c.d == nil {
		return nil
	}
	return c.d.close()
}
