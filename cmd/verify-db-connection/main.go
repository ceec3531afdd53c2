package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"strings"

	"shield-backend/internal/config"
	"shield-backend/internal/db"
)

// expected widths of the signature and address columns
var columnWidths = map[string]int64{
	"id":                 36,
	"recipient":          44,
	"deposit_signature":  88,
	"withdraw_signature": 88,
}

func main() {
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	fmt.Println("🔍 Verifying database connection and transfer table...")
	fmt.Println(strings.Repeat("=", 60))

	if err := config.LoadConfig(*configPath); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// InitDB also runs the migration
	database, err := db.InitDB(config.AppConfig.Database.DSN)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	sqlDB, err := database.DB()
	if err != nil {
		log.Fatalf("Failed to get database connection: %v", err)
	}
	defer sqlDB.Close()

	var dbName string
	if err := sqlDB.QueryRow("SELECT current_database()").Scan(&dbName); err != nil {
		log.Fatalf("Failed to get database name: %v", err)
	}
	fmt.Printf("📋 Connected to database: %s\n", dbName)

	ok := true
	for column, want := range columnWidths {
		var size sql.NullInt64
		err := sqlDB.QueryRow(`
			SELECT character_maximum_length
			FROM information_schema.columns
			WHERE table_schema = 'public'
			AND table_name = 'shielded_transfers'
			AND column_name = $1
		`, column).Scan(&size)
		if err != nil {
			fmt.Printf("❌ shielded_transfers.%s: %v\n", column, err)
			ok = false
			continue
		}
		if !size.Valid || size.Int64 < want {
			fmt.Printf("❌ shielded_transfers.%s is VARCHAR(%d), need VARCHAR(%d)\n", column, size.Int64, want)
			ok = false
			continue
		}
		fmt.Printf("✅ shielded_transfers.%s VARCHAR(%d)\n", column, size.Int64)
	}

	var total, recoverable int64
	if err := sqlDB.QueryRow(`SELECT COUNT(*) FROM shielded_transfers`).Scan(&total); err != nil {
		log.Fatalf("Failed to count transfers: %v", err)
	}
	if err := sqlDB.QueryRow(`
		SELECT COUNT(*) FROM shielded_transfers
		WHERE deposit_signature <> '' AND withdraw_signature = ''
		AND status IN ('deposited', 'withdrawing', 'failed')
	`).Scan(&recoverable); err != nil {
		log.Fatalf("Failed to count recoverable transfers: %v", err)
	}
	fmt.Printf("📋 %d transfer(s), %d recoverable\n", total, recoverable)

	if !ok {
		log.Fatal("schema check failed")
	}
	fmt.Println("✅ Database verified")
}
