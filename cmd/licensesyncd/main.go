package main

import (
	"context"
	"log"
	"os"

	"licensesync/internal/config"
	"licensesync/internal/daemonrun"
)

func main() {
	cfg, _, _, err := config.Load(configPath(os.Getenv))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := daemonrun.Run(context.Background(), cfg, runOptions(os.Getenv)); err != nil {
		log.Fatalf("licensesyncd: %v", err)
	}
}
