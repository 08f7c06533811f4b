// Command meshstream runs supervisors and workers.
//
// Usage:
//
//	meshstream [--config file] <command> [flags]
//
// Commands:
//
//	serve    - Expose one worker (or the whole supervisor) over websocket or gRPC
//	invoke   - Run the supervisor once and print its stream
//	gateway  - Serve the supervisor over HTTP with server-sent events
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
