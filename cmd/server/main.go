package main

import (
	"flag"
	"log"

	"github.com/fairwaylab/swinggate/internal/server"
	"github.com/fairwaylab/swinggate/internal/transport"
)

func main() {
	var port string
	flag.StringVar(&port, "port", "", "Server port (overrides env PORT)")
	flag.Parse()

	cfg := server.LoadConfig()
	if port == "" {
		port = cfg.Port
	}
	if port == "" {
		port = transport.DefaultServerPort
	}
	if len(flag.Args()) > 0 {
		cfg.DataDir = flag.Args()[0]
	}

	srv, err := server.NewServer(port, cfg)
	if err != nil {
		log.Fatalf("Failed to init server: %v", err)
	}

	if err := srv.Start(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
