//go:build windows

package main

import (
	"fmt"
	"os"
)

// startAsDaemon runs the server in the foreground; detaching is left to the
// service manager on Windows
func startAsDaemon() {
	if err := runServer(); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
