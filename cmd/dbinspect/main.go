// Package main provides a tool to inspect the contents of a library database.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/rgwood/ReiTunes/internal/domain"
	"github.com/rgwood/ReiTunes/internal/logger"
	"github.com/rgwood/ReiTunes/internal/store/sqlite"
)

func main() {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = os.ExpandEnv("$HOME/reitunes/reitunes.db")
	}

	l := logger.NewNop()

	st, err := sqlite.Open(dbPath, l.Logger)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer st.Close()

	ctx := context.Background()

	fmt.Println("=== Database Inspection ===")
	fmt.Println()

	count, err := st.CountEvents(ctx)
	if err != nil {
		log.Fatalf("Failed to count events: %v", err)
	}
	fmt.Printf("Events: %d\n", count)

	envelopes, err := st.LoadAllOrdered(ctx)
	if err != nil {
		log.Fatalf("Failed to load events: %v", err)
	}

	byType := make(map[string]int)
	machines := make(map[string]int)
	for _, env := range envelopes {
		byType[env.Event.EventType()]++
		machines[env.MachineName]++
	}

	library := domain.NewLibrary(l.Logger)
	for _, env := range envelopes {
		library.Apply(env)
	}
	fmt.Printf("Items: %d\n", library.Len())
	fmt.Println()

	fmt.Println("Events by type:")
	for _, name := range sortedKeys(byType) {
		fmt.Printf("  %-28s %d\n", name, byType[name])
	}
	fmt.Println()

	fmt.Println("Events by machine:")
	for _, name := range sortedKeys(machines) {
		fmt.Printf("  %-28s %d\n", name, machines[name])
	}
	fmt.Println()

	recent, err := st.RecentEvents(ctx, 10)
	if err != nil {
		log.Fatalf("Failed to load recent events: %v", err)
	}

	fmt.Println("Most recent events:")
	for _, env := range recent {
		fmt.Printf("  %s  %-28s %s  (%s)\n",
			env.CreatedTimeUTC.Format("2006-01-02 15:04:05"),
			env.Event.EventType(),
			env.AggregateID,
			env.MachineName)
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
