// Package main provides a tool to bulk-import audio files into the library.
//
// This walks a music directory, extracts metadata from each audio file, and
// appends creation events for files not already in the library.
//
// Usage:
//
//	go run ./cmd/import -db ~/reitunes/reitunes.db -music ~/Music
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/rgwood/ReiTunes/internal/domain"
	"github.com/rgwood/ReiTunes/internal/importer"
	"github.com/rgwood/ReiTunes/internal/logger"
	"github.com/rgwood/ReiTunes/internal/service"
	"github.com/rgwood/ReiTunes/internal/store/sqlite"
)

var (
	dbPath    = flag.String("db", os.ExpandEnv("$HOME/reitunes/reitunes.db"), "Path to the library database")
	musicPath = flag.String("music", "", "Music directory to scan (required)")
	machine   = flag.String("machine", "", "Machine name recorded on new events (default: hostname)")
)

func main() {
	flag.Parse()

	if *musicPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: import -music <dir> [-db <path>] [-machine <name>]")
		os.Exit(1)
	}

	machineName := *machine
	if machineName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			log.Fatalf("Failed to determine hostname: %v", err)
		}
		machineName = hostname
	}

	l := logger.New(logger.Config{Writer: os.Stderr})

	fmt.Printf("Opening database at: %s\n", *dbPath)

	st, err := sqlite.Open(*dbPath, l.Logger)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer st.Close()

	ctx := context.Background()

	library := service.NewLibraryService(st, domain.NewIncreasingClock(), machineName, l.Logger)
	if err := library.Load(ctx); err != nil {
		log.Fatalf("Failed to load library: %v", err)
	}

	fmt.Printf("Library has %d items, scanning %s\n", library.ItemCount(), *musicPath)

	imp := importer.New(library, *musicPath, l.Logger)
	result, err := imp.ScanDirectory(ctx, *musicPath)
	if err != nil {
		log.Fatalf("Scan failed: %v", err)
	}

	fmt.Printf("Done: %d imported, %d skipped\n", result.Imported, result.Skipped)
}
