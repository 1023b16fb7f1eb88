// Package main is the entry point for the library backend.
//
// @title                       Library API
// @version                     1.0
// @description                 Library backend: membership cards, catalog, loans and catalog enrichment.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"fmt"
	"os"
)

// Version information (set at build time)
var (
	Version   = "dev"
	GitCommit = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
