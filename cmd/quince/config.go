package main

import (
	"crypto/tls"

	"github.com/goburrow/qeen/transport"
)

// newConfig returns the transport.Config shared by the client and server
// subcommands. Callers fill in TLS-specific fields (ServerName,
// InsecureSkipVerify, Certificates) before use.
func newConfig() *transport.Config {
	return transport.NewConfig(&tls.Config{
		NextProtos: []string{"quince"},
	})
}
