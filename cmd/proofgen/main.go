package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	proofgencmd "github.com/louisbranch/broadside/internal/cmd/proofgen"
	"github.com/louisbranch/broadside/internal/platform/config"
)

func main() {
	cfg, err := proofgencmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	log.SetPrefix("[PROOFGEN] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := proofgencmd.Run(ctx, cfg, os.Stdout); err != nil {
		config.Exitf("failed to generate: %v", err)
	}
}
