package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/ethereum/go-ethereum/common"

	"shield-backend/internal/config"
	"shield-backend/internal/encryption"
	"shield-backend/internal/note"
	"shield-backend/internal/pda"
	"shield-backend/internal/solana"
	"shield-backend/internal/wallet"
)

func main() {
	var (
		keypairPath = flag.String("keypair", "", "Path to the wallet keypair JSON")
		ciphertext  = flag.String("ciphertext", "", "Hex-encoded encrypted output")
		programID   = flag.String("program", config.Default().Program.ProgramID, "Pool program id for nullifier addresses")
	)
	flag.Parse()
	if *keypairPath == "" || *ciphertext == "" {
		log.Fatal("usage: note-inspect -keypair <file> -ciphertext <hex>")
	}

	w, err := wallet.LoadKeypairFile(*keypairPath)
	if err != nil {
		log.Fatalf("Failed to load wallet: %v", err)
	}
	enc := encryption.NewService(nil)
	if err := enc.DeriveFromSigner(context.Background(), w); err != nil {
		log.Fatalf("Failed to derive keys: %v", err)
	}

	raw := common.FromHex(*ciphertext)
	fmt.Printf("🔍 Ciphertext: %d bytes, version %s\n", len(raw), encryption.GetVersion(raw))

	n, err := enc.DecryptNote(raw)
	if err != nil {
		log.Fatalf("❌ Decrypt failed: %v", err)
	}
	fmt.Printf("  Amount:   %s lamports\n", n.Amount)
	fmt.Printf("  Blinding: %s\n", n.Blinding)
	fmt.Printf("  Index:    %d\n", n.Index)
	fmt.Printf("  Mint:     %s\n", n.MintAddress)

	commitment, err := n.Commitment()
	if err != nil {
		log.Fatalf("❌ Commitment: %v", err)
	}
	nullifier, err := n.Nullifier()
	if err != nil {
		log.Fatalf("❌ Nullifier: %v", err)
	}
	fmt.Printf("  Commitment: %s\n", commitment)
	fmt.Printf("  Nullifier:  %s\n", nullifier)

	pid, err := solana.PublicKeyFromBase58(*programID)
	if err != nil {
		log.Fatalf("❌ Program id: %v", err)
	}
	deriver, err := pda.NewDeriver(pid, 0)
	if err != nil {
		log.Fatalf("❌ Deriver: %v", err)
	}
	nb := note.FieldBytes(nullifier)
	for slot := 0; slot < 2; slot++ {
		addr, err := deriver.NullifierAddress(nb, slot)
		if err != nil {
			log.Fatalf("❌ Nullifier address: %v", err)
		}
		fmt.Printf("  Nullifier account (slot %d): %s\n", slot, addr)
	}
}
