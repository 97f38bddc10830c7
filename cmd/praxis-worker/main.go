// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/maraxen/pylabpraxis-sub002/pkg/worker"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config file; $PRAXIS_CONFIG when empty")
	flag.Parse()

	s, err := worker.NewServer(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start worker: %v\n", err)
		os.Exit(1)
	}
	if err := s.Start(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "worker exited: %v\n", err)
		os.Exit(1)
	}
}
