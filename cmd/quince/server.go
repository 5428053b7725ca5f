package main

import (
	"crypto/tls"
	"log"
	"net/http"

	"github.com/docker/go-events"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/goburrow/qeen"
	"github.com/goburrow/qeen/transport"
)

func newServerCommand() *cobra.Command {
	var (
		listenAddr string
		certFile   string
		keyFile    string
		metricAddr string
		logLevel   int
		retry      bool
	)
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Accept QUIC connections and echo whatever is sent",
		RunE: func(cmd *cobra.Command, args []string) error {
			cert, err := tls.LoadX509KeyPair(certFile, keyFile)
			if err != nil {
				return err
			}
			config := newConfig()
			config.TLS.Certificates = []tls.Certificate{cert}

			ln := quic.NewListener(config)
			if retry {
				if err := ln.EnableRetry(); err != nil {
					return err
				}
			}
			ln.SetHandler(&echoHandler{})
			ln.SetLogger(logLevel, logWriter{})
			ln.AddEventSink(loggingSink{})

			reg := prometheus.NewRegistry()
			reg.MustRegister(ln.Metrics())
			if metricAddr != "" {
				go serveMetrics(metricAddr, reg)
			}
			if err := ln.ListenAndServe(listenAddr); err != nil {
				return err
			}
			log.Printf("quince server listening on %s", listenAddr)
			select {}
		},
	}
	cmd.Flags().StringVar(&listenAddr, "listen", "0.0.0.0:4433", "listen on the given IP:port")
	cmd.Flags().StringVar(&certFile, "cert", "", "TLS certificate PEM file")
	cmd.Flags().StringVar(&keyFile, "key", "", "TLS private key PEM file")
	cmd.Flags().StringVar(&metricAddr, "metrics-listen", "", "serve Prometheus metrics on the given IP:port (disabled if empty)")
	cmd.Flags().IntVarP(&logLevel, "verbose", "v", 2, "log verbose: 0=off 1=error 2=info 3=debug 4=trace")
	cmd.Flags().BoolVar(&retry, "retry", false, "require a Retry round trip before accepting a new connection")
	cmd.MarkFlagRequired("cert")
	cmd.MarkFlagRequired("key")
	return cmd
}

func serveMetrics(addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logrus.WithError(err).Error("quince: metrics server stopped")
	}
}

// echoHandler writes back on each stream whatever it receives.
type echoHandler struct{}

func (echoHandler) Serve(c quic.Conn, evs []transport.Event) {
	for _, e := range evs {
		switch e.Type {
		case quic.EventConnAccept:
			logrus.WithField("remote", c.RemoteAddr()).Info("quince: connection accepted")
		case transport.EventStream:
			st := c.Stream(e.StreamID)
			if st == nil {
				continue
			}
			buf := make([]byte, 4096)
			n, _ := st.Read(buf)
			if n > 0 {
				_, _ = st.Write(buf[:n])
				_ = st.Close()
			}
		case quic.EventConnClose:
			logrus.WithField("remote", c.RemoteAddr()).Info("quince: connection closed")
		}
	}
}

// logWriter adapts logrus's standard logger as an io.Writer for the
// transport-level transaction logger.
type logWriter struct{}

func (logWriter) Write(b []byte) (int, error) {
	logrus.StandardLogger().Writer().Write(b)
	return len(b), nil
}

// loggingSink relays connection accept/close lifecycle events to logrus,
// the docker/go-events counterpart of distribution's notification bridge.
type loggingSink struct{}

func (loggingSink) Write(e events.Event) error {
	logrus.Infof("quince: lifecycle event %+v", e)
	return nil
}

func (loggingSink) Close() error {
	return nil
}
