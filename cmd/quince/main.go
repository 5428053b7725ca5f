// Command quince is a minimal QUIC client and server built on
// github.com/goburrow/qeen, used to exercise the transport and quic
// packages end to end.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "quince",
		Short: "A small QUIC client/server for exercising github.com/goburrow/qeen",
	}
	root.AddCommand(newClientCommand())
	root.AddCommand(newServerCommand())
	if err := root.Execute(); err != nil {
		logrus.WithError(err).Error("quince: command failed")
		os.Exit(1)
	}
}
