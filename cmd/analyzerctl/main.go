package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/probelabs/visor/internal/ledger"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "verify":
		verifyCommand(os.Args[2:])
	case "events":
		eventsCommand(os.Args[2:])
	case "stats":
		statsCommand(os.Args[2:])
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("analyzerctl - Analyzer Ledger Command Line Tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  analyzerctl verify [--db FILE]            Validate the hash chain of the latest run")
	fmt.Println("  analyzerctl events [--db FILE] [--limit N] List recent events (default: 10)")
	fmt.Println("  analyzerctl stats  [--db FILE]            Show run statistics")
}

func openLatestRun(fs *flag.FlagSet, args []string) (*ledger.DB, string) {
	dbPath := fs.String("db", "analyzer.db", "path to the ledger database")
	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse flags: %v", err)
	}

	db, err := ledger.OpenDB(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open ledger: %v", err)
	}

	runID, err := db.LatestRunID()
	if err != nil {
		log.Fatalf("Failed to load latest run: %v", err)
	}
	if runID == "" {
		log.Fatalf("Ledger is empty: no runs recorded")
	}
	return db, runID
}

func verifyCommand(args []string) {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	db, runID := openLatestRun(fs, args)
	defer db.Close()

	result, err := ledger.VerifyChain(db, runID)
	if err != nil {
		log.Fatalf("Verification failed: %v", err)
	}

	if result.Valid {
		fmt.Printf("Chain valid: %d events verified (run %s)\n", result.TotalEvents, runID)
		return
	}
	fmt.Printf("Chain INVALID at seq %d: %s\n", result.FailedAtSeq, result.ErrorMessage)
	os.Exit(1)
}

func eventsCommand(args []string) {
	fs := flag.NewFlagSet("events", flag.ExitOnError)
	limit := fs.Int("limit", 10, "maximum number of events to list")
	db, runID := openLatestRun(fs, args)
	defer db.Close()

	events, err := db.RecentEvents(runID, *limit)
	if err != nil {
		log.Fatalf("Failed to load events: %v", err)
	}

	for _, e := range events {
		hash := e.CurrentHash
		if len(hash) > 16 {
			hash = hash[:16]
		}
		fmt.Printf("[%s] seq=%-4d %-14s %-20s id=%-8s hash=%s\n",
			e.Timestamp.Format("15:04:05.000"), e.SeqIndex, e.Outcome, e.Method, e.RequestID, hash)
	}
}

func statsCommand(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	db, runID := openLatestRun(fs, args)
	defer db.Close()

	count, err := db.CountEvents(runID)
	if err != nil {
		log.Fatalf("Failed to count events: %v", err)
	}
	pubKey, err := db.RunPublicKey(runID)
	if err != nil {
		log.Fatalf("Failed to load run public key: %v", err)
	}

	fmt.Printf("Run:        %s\n", runID)
	fmt.Printf("Events:     %d\n", count)
	fmt.Printf("Public key: %s\n", pubKey)
}
