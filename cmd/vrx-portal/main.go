// VRX Portal - vulnerability and asset management console
//
// Usage:
//
//	vrx-portal serve -config portal.yaml
//	vrx-portal routes
//	vrx-portal probe -url http://localhost:8080
//	vrx-portal version
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
