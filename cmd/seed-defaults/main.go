package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"bitbucket.org/broman/realty_backend/config"
	"bitbucket.org/broman/realty_backend/models"
)

func main() {
	skipMigrate := flag.Bool("skip-migrate", false, "Seed only; do not run AutoMigrate")
	flag.Parse()

	logger := config.NewLogger()
	ctx := context.Background()
	db, err := config.ConnectDatabaseWithRetry(ctx, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "database: %v\n", err)
		os.Exit(1)
	}

	if !*skipMigrate {
		if err := models.MigrateTable(db); err != nil {
			fmt.Fprintf(os.Stderr, "migrate failed: %v\n", err)
			os.Exit(1)
		}
	}

	// No cache here: seeding must read what is actually stored.
	result, err := models.SeedDefaults(ctx, db, models.NewSettingsStore(db, logger, nil))
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("settings_added=%d rules_added=%d categories_added=%d\n", result.Settings, result.Rules, result.Categories)
}
