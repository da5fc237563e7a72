package main

import (
	"context"
	"flag"
	"log"
	"os"

	"exam-quiz/internal/config"
	"exam-quiz/internal/seed"
	"exam-quiz/pkg/database"
)

func main() {
	path := flag.String("file", "", "YAML question bank to import")
	flag.Parse()

	if *path == "" {
		log.Printf("usage: quiz-import -file bank.yaml")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Open(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	bank, err := seed.LoadFile(*path)
	if err != nil {
		log.Fatalf("Failed to read question bank: %v", err)
	}

	if _, err := seed.Import(context.Background(), db, bank); err != nil {
		log.Fatalf("Import failed: %v", err)
	}
}
