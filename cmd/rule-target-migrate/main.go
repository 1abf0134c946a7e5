package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"bitbucket.org/broman/realty_backend/config"
	"bitbucket.org/broman/realty_backend/workflow"
)

func main() {
	dryRun := flag.Bool("dry-run", true, "List the classification only (no writes)")
	flag.Parse()

	logger := config.NewLogger()
	ctx := context.Background()
	db, err := config.ConnectDatabaseWithRetry(ctx, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "database: %v\n", err)
		os.Exit(1)
	}

	assignments, err := workflow.MigrateCommissionTargets(ctx, db, logger, *dryRun)
	if err != nil {
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}

	for _, a := range assignments {
		fmt.Printf("rule_id=%d name_ar=%q name_en=%q target=%s\n", a.RuleId, a.NameAr, a.NameEn, a.Target)
	}
	if *dryRun {
		fmt.Printf("%d rules would be updated (dry run)\n", len(assignments))
		return
	}
	fmt.Printf("%d rules updated\n", len(assignments))
}
