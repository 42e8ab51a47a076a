// Command bootstrap is an operator tool for preparing the data store.
// It runs pending migrations and seeds reference data (initialize),
// wipes and rebuilds everything (reset), or reports the current state
// of migrations, data integrity, and store health (status).
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"skillcourt-backend/infrastructure/config"
	"skillcourt-backend/infrastructure/di"
)

const usage = `Usage: bootstrap <command>

Commands:
  initialize   Run pending migrations and seed reference data (skips seeding if data exists)
  reset        Clear all data, re-run migrations, and reseed from scratch
  status       Report migration state, data integrity, and store health
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	defer container.Logger.Sync()

	manager := container.DatabaseManager

	var report interface{}
	switch os.Args[1] {
	case "initialize":
		report, err = manager.Initialize(ctx)
	case "reset":
		report, err = manager.Reset(ctx)
	case "status":
		report, err = manager.GetStatus(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s failed: %v", os.Args[1], err)
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode report: %v", err)
	}
	fmt.Println(string(out))
}
