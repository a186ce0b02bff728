package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	simdcmd "github.com/louisbranch/chronicle-engine/internal/cmd/simd"
	"github.com/louisbranch/chronicle-engine/internal/platform/config"
)

func main() {
	cfg, err := simdcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := simdcmd.Run(ctx, cfg); err != nil {
		config.Exitf("simd: %v", err)
	}
}
