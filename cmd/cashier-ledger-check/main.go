package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"bitbucket.org/broman/realty_backend/config"
	"bitbucket.org/broman/realty_backend/models"
	"bitbucket.org/broman/realty_backend/workflow"
)

func main() {
	dryRun := flag.Bool("dry-run", true, "Report only; every write is rolled back")
	repairBalance := flag.Bool("repair-balance", false, "Overwrite the stored balance with the transaction sum when they drift")
	confirm := flag.String("confirm", "", "Type REPAIR to proceed when dry-run=false and repair-balance=true")
	asJSON := flag.Bool("json", false, "Print the full report as JSON")
	flag.Parse()

	if !*dryRun && *repairBalance && strings.TrimSpace(*confirm) != "REPAIR" {
		fmt.Fprintln(os.Stderr, "set --confirm=REPAIR to proceed")
		os.Exit(1)
	}

	logger := config.NewLogger()
	ctx := context.Background()
	db, err := config.ConnectDatabaseWithRetry(ctx, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "database: %v\n", err)
		os.Exit(1)
	}

	rdb := config.ConnectRedis(ctx)
	defer rdb.Close()

	svc := workflow.NewService(db, logger, models.NewSettingsStore(db, logger, nil),
		workflow.WithLocker(workflow.NewPostingLocker(rdb, logger)),
	)
	report, err := svc.RunLedgerChecks(ctx, workflow.LedgerCheckOptions{
		RepairBalance: *repairBalance,
		DryRun:        *dryRun,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "ledger check failed: %v\n", err)
		os.Exit(1)
	}

	if *asJSON {
		out, _ := json.MarshalIndent(report, "", "  ")
		fmt.Println(string(out))
	} else {
		fmt.Printf("dry_run=%v stored=%s computed=%s drift=%s repaired=%v\n",
			report.DryRun, report.Audit.StoredBalance, report.Audit.ComputedBalance, report.Audit.Drift, report.Audit.Repaired)
		for _, m := range report.Missing {
			fmt.Printf("missing reference_type=%s reference_id=%d transaction_type=%s amount=%s\n",
				m.ReferenceType, m.ReferenceId, m.TransactionType, m.Amount)
		}
		for _, id := range report.DegradedSales {
			fmt.Printf("degraded_breakdown sale_id=%d\n", id)
		}
		fmt.Printf("reports_written=%d\n", report.ReportsWritten)
	}

	if !report.BalanceConsistent || len(report.Missing) > 0 {
		os.Exit(2)
	}
}
