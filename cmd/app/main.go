package main

import (
	"log"

	"github.com/bookwell/bookwell/config"
	"github.com/bookwell/bookwell/internal/appServer"
)

func main() {
	v, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	cfg, err := config.ParseConfig(v)
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}

	appServer.NewServer(cfg)
}
