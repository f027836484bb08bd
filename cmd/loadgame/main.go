// Package main runs the game import command.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	loadgamecmd "github.com/louisbranch/dugout/internal/cmd/loadgame"
)

func main() {
	cfg, err := loadgamecmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[LOADGAME] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := loadgamecmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to import: %v", err)
	}
}
