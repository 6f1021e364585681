package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"

	"autodocvision/internal/app"
	"autodocvision/internal/config"
	"autodocvision/internal/logger"
	"autodocvision/internal/service/history"
)

type discardRenderer struct{}

func (discardRenderer) SetHistoryHTML(string) {}

func main() {
	cfg := config.Load()

	file := flag.String("file", "detectionHistory.json", "JSON array of history entries (browser localStorage export)")
	backend := flag.String("backend", cfg.StorageBackend, "Storage backend: sqlite, redis or memory")
	dbPath := flag.String("db", cfg.DatabasePath, "SQLite database path")
	redisAddr := flag.String("redis", cfg.RedisAddr, "Redis address")
	flag.Parse()

	cfg.StorageBackend = *backend
	cfg.DatabasePath = *dbPath
	cfg.RedisAddr = *redisAddr

	fmt.Printf("Importing history from %s into %s storage\n", *file, cfg.StorageBackend)

	data, err := os.ReadFile(*file)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", *file, err)
	}

	entries, err := history.ParseExport(data)
	if err != nil {
		log.Fatalf("Failed to parse %s: %v", *file, err)
	}

	if len(entries) == 0 {
		fmt.Println("No entries found to import")
		return
	}

	ctx := context.Background()
	store, err := app.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	hist := history.NewStore(store, discardRenderer{}, logger.NewNop())
	if err := hist.Load(ctx); err != nil {
		log.Fatalf("Failed to load current history: %v", err)
	}

	added, err := hist.Import(ctx, entries)
	if err != nil {
		log.Fatalf("Failed to import history: %v", err)
	}

	fmt.Printf("✅ Imported %d new entries (%d duplicates)\n", added, len(entries)-added)

	// Show stats
	stored := hist.Entries()
	perClass := make(map[string]int)
	for _, e := range stored {
		perClass[e.Class]++
	}
	classes := make([]string, 0, len(perClass))
	for class := range perClass {
		classes = append(classes, class)
	}
	sort.Strings(classes)

	fmt.Printf("\n📊 History Statistics:\n")
	fmt.Printf("   Total entries: %d (limit %d)\n", len(stored), config.HistoryLimit)
	fmt.Printf("   Per class:\n")
	for _, class := range classes {
		fmt.Printf("      - %s: %d\n", class, perClass[class])
	}
}
