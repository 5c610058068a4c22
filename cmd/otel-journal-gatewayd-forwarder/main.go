// Command otel-journal-gatewayd-forwarder polls one or more
// systemd-journal-gatewayd instances and forwards their entries as OTLP logs.
package main

import (
	"fmt"
	"os"

	"github.com/shedrachokonofua/otel-journal-gatewayd-forwarder/internal/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}
