package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"bitbucket.org/mmdatafocus/subcon_backend/config"
	"bitbucket.org/mmdatafocus/subcon_backend/models"
	"bitbucket.org/mmdatafocus/subcon_backend/models/reports"
)

// validate-file runs the store validation engine over two local xlsx ledgers
// and prints the JSON payload. Handy for checking a planner's spreadsheets
// without going through the API.
//
// Example:
//   go run ./cmd/validate-file \
//     --issue=issue.xlsx --received=received.xlsx --route-card=RC-1024
func main() {
	issuePath := flag.String("issue", "", "Required: path to the issue ledger (xlsx)")
	receivedPath := flag.String("received", "", "Required: path to the received ledger (xlsx)")
	routeCard := flag.String("route-card", "", "Optional: filter by route card")
	mismatchOnly := flag.Bool("mismatch-only", false, "Print only the mismatch table")
	exportPath := flag.String("export", "", "Optional: also write the result as an xlsx file")
	flag.Parse()

	if strings.TrimSpace(*issuePath) == "" || strings.TrimSpace(*receivedPath) == "" {
		fmt.Fprintln(os.Stderr, "--issue and --received are required")
		flag.Usage()
		os.Exit(2)
	}

	issueSheet, err := readWorkbook(*issuePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "issue ledger: %v\n", err)
		os.Exit(1)
	}
	receivedSheet, err := readWorkbook(*receivedPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "received ledger: %v\n", err)
		os.Exit(1)
	}

	issueRecords, err := models.ParseIssueSheet(issueSheet)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	receivedRecords, err := models.ParseReceivedSheet(receivedSheet)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	issueAgg := models.AggregateLines(models.IssueLines(issueRecords, false))
	receivedAgg := models.AggregateLines(models.ReceivedLines(receivedRecords, false))
	rows := models.Reconcile(issueAgg, receivedAgg, models.Options{PriceTolerance: config.PriceTolerance()})
	report := reports.BuildStoreValidation(rows, reports.RowFilter{RouteCard: *routeCard})

	if *exportPath != "" {
		f, err := os.Create(*exportPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not create %s: %v\n", *exportPath, err)
			os.Exit(1)
		}
		if err := reports.WriteStoreValidationXlsx(report, f); err != nil {
			f.Close()
			fmt.Fprintf(os.Stderr, "export failed: %v\n", err)
			os.Exit(1)
		}
		if err := f.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "export failed: %v\n", err)
			os.Exit(1)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if *mismatchOnly {
		err = enc.Encode(report.MismatchTable)
	} else {
		err = enc.Encode(report)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func readWorkbook(path string) (models.Sheet, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.Sheet{}, err
	}
	defer f.Close()
	return models.ReadLedgerWorkbook(f)
}
