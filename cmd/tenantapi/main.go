// Package main is the entry point for the tenant API server.
package main

import (
	"os"

	"github.com/tenantdesk/platform/cmd/tenantapi/app"
)

func main() {
	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
