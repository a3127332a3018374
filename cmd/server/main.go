package main

import (
	"context"
	"flag"
	"log"

	"github.com/gieogita/portal-auth/internal/app"
	"github.com/gieogita/portal-auth/internal/config"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to YAML config file (optional, env vars apply on top)")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	a, err := app.NewApp(cfg)
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	if err := a.Run(context.Background()); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
