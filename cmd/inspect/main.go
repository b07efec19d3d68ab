// inspect prints the ledger schema and per-table counters for the configured
// database. Useful for checking what the migrator created and for a quick
// health snapshot of a live ledger file.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/hayat-scans/taskledger/internal/config"
	"github.com/hayat-scans/taskledger/internal/database"
	"github.com/joho/godotenv"
)

func main() {
	envFilename := ".env"
	if len(os.Args) > 1 {
		envFilename = os.Args[1]
	}
	if err := godotenv.Load(envFilename); err != nil {
		log.Printf("No %s file loaded, using process environment", envFilename)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	mgr, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer mgr.Close()

	if err := mgr.Migrate(); err != nil {
		log.Fatalf("Failed to migrate: %v", err)
	}

	db := mgr.Read()

	if cfg.DBType == "sqlite" {
		var tables []string
		db.Raw("SELECT name FROM sqlite_master WHERE type='table' ORDER BY name").Scan(&tables)
		for _, table := range tables {
			fmt.Printf("\n=== Table: %s ===\n", table)
			var schema string
			db.Raw("SELECT sql FROM sqlite_master WHERE name = ?", table).Scan(&schema)
			fmt.Println(schema)
		}
	}

	fmt.Println("\n=== Counters ===")
	counters := []struct {
		label string
		query string
	}{
		{"users", "SELECT COUNT(*) FROM users"},
		{"active works", "SELECT COUNT(*) FROM works WHERE active"},
		{"tasks", "SELECT COUNT(*) FROM tasks"},
		{"chapters", "SELECT COUNT(*) FROM chapters"},
		{"logs", "SELECT COUNT(*) FROM logs"},
		{"admins", "SELECT COUNT(*) FROM admins"},
	}
	for _, c := range counters {
		var count int64
		if err := db.Raw(c.query).Scan(&count).Error; err != nil {
			log.Printf("count %s: %v", c.label, err)
			continue
		}
		fmt.Printf("%-12s %d\n", c.label, count)
	}
}
