package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"shield-backend/internal/config"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to config file")
		all        = flag.Bool("all", false, "List recent transfers of every status, not only recoverable ones")
		limit      = flag.Int("limit", 50, "Maximum rows")
	)
	flag.Parse()

	if err := config.LoadConfig(*configPath); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	dsn := config.AppConfig.Database.DSN
	if dsn == "" {
		log.Fatal("database.dsn is not configured")
	}

	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer sqlDB.Close()

	query := `
		SELECT id, status, COALESCE(stage, ''), recipient, amount_lamports,
		       deposit_signature, withdraw_signature, attempts, COALESCE(last_error, ''), updated_at
		FROM shielded_transfers`
	if !*all {
		query += `
		WHERE deposit_signature <> '' AND withdraw_signature = ''
		  AND status IN ('deposited', 'withdrawing', 'failed')`
	}
	query += `
		ORDER BY updated_at DESC
		LIMIT $1`

	rows, err := sqlDB.Query(query, *limit)
	if err != nil {
		log.Fatalf("Failed to query: %v", err)
	}
	defer rows.Close()

	if *all {
		fmt.Println("📋 Recent transfers:")
	} else {
		fmt.Println("📋 Recoverable transfers (deposit landed, withdrawal missing):")
	}
	fmt.Println(strings.Repeat("=", 60))

	count := 0
	for rows.Next() {
		var (
			id, status, stage, recipient string
			depositSig, withdrawSig      string
			lastError                    string
			amount                       int64
			attempts                     int
			updatedAt                    time.Time
		)
		if err := rows.Scan(&id, &status, &stage, &recipient, &amount, &depositSig, &withdrawSig, &attempts, &lastError, &updatedAt); err != nil {
			log.Printf("Error scanning row: %v", err)
			continue
		}
		count++
		fmt.Printf("%s  %-11s %-8s %.9f SOL -> %s (attempts %d, updated %s)\n",
			id, status, stage, float64(amount)/1e9, recipient, attempts, updatedAt.Format(time.RFC3339))
		if depositSig != "" {
			fmt.Printf("    deposit:  %s\n", depositSig)
		}
		if withdrawSig != "" {
			fmt.Printf("    withdraw: %s\n", withdrawSig)
		}
		if lastError != "" {
			fmt.Printf("    error:    %s\n", lastError)
		}
	}
	if err := rows.Err(); err != nil {
		log.Fatalf("Row iteration failed: %v", err)
	}

	if count == 0 {
		fmt.Println("✅ Nothing found")
		return
	}
	fmt.Printf("\n%d row(s)\n", count)
}
