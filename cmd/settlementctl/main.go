// Command settlementctl runs settlement maintenance tasks against the database
// outside the HTTP server.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand(defaultBootstrap).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
