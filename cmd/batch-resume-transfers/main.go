package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"shield-backend/internal/app"
	"shield-backend/internal/config"
	"shield-backend/internal/models"
	"shield-backend/internal/wallet"
)

func main() {
	var (
		requestIDs = flag.String("ids", "", "Comma-separated transfer IDs to resume (default: every recoverable transfer)")
		dryRun     = flag.Bool("dry-run", false, "Only show what would be resumed")
		configPath = flag.String("config", "", "Path to config file")
	)
	flag.Parse()

	if err := config.LoadConfig(*configPath); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg := config.AppConfig
	if cfg.Database.DSN == "" {
		log.Fatal("database.dsn is required: recoverable transfers live in postgres")
	}
	w, err := wallet.LoadKeypairFile(cfg.Wallet.KeypairPath)
	if err != nil {
		log.Fatalf("Failed to load wallet: %v", err)
	}

	ctx := context.Background()
	container, err := app.InitializeContainer(ctx, cfg, w, nil)
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}
	defer container.Cleanup()
	transfers := container.TransferService

	var targets []*models.TransferRecord
	if *requestIDs != "" {
		for _, id := range strings.Split(*requestIDs, ",") {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			record, err := transfers.GetTransfer(ctx, id)
			if err != nil {
				log.Printf("⚠️  Failed to get transfer %s: %v", id, err)
				continue
			}
			if !record.Recoverable() {
				log.Printf("⚠️  Transfer %s is %s, skipping", id, record.Status)
				continue
			}
			targets = append(targets, record)
		}
	} else {
		targets, err = transfers.ListRecoverable(ctx)
		if err != nil {
			log.Fatalf("Failed to list recoverable transfers: %v", err)
		}
	}

	if len(targets) == 0 {
		fmt.Println("✅ No transfers to resume")
		return
	}
	fmt.Printf("📋 %d transfer(s) to resume\n", len(targets))
	for _, r := range targets {
		fmt.Printf("  %s  %.9f SOL -> %s (deposit %s, attempts %d)\n",
			r.ID, float64(r.AmountLamports)/1e9, r.Recipient, r.DepositSignature, r.Attempts)
	}
	if *dryRun {
		fmt.Println("🔍 Dry run, nothing resumed")
		return
	}

	// sequential: each withdrawal spends notes the next one must not reuse
	var succeeded, failed int
	for _, r := range targets {
		resumed, err := transfers.ResumeTransfer(ctx, r.ID)
		if err != nil {
			failed++
			log.Printf("❌ %s: %v", r.ID, err)
			continue
		}
		succeeded++
		fmt.Printf("✅ %s withdrawn: %s\n", resumed.ID, resumed.WithdrawSignature)
	}
	fmt.Printf("\nDone: %d succeeded, %d failed\n", succeeded, failed)
}
