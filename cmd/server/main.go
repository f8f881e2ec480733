package main

import (
	"log"

	"github.com/Ramsey-B/fern/config"
	"github.com/Ramsey-B/fern/pkg/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := server.Run(cfg); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
