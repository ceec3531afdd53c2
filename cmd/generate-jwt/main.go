package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"shield-backend/internal/config"
	"shield-backend/internal/handlers"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to config file")
		operator   = flag.String("operator", "ops", "Operator name recorded in the token")
		ttl        = flag.Duration("ttl", 0, "Token lifetime (default auth.tokenTtlHours)")
	)
	flag.Parse()

	secret := os.Getenv("JWT_SECRET")
	lifetime := *ttl
	if err := config.LoadConfig(*configPath); err == nil {
		if secret == "" {
			secret = config.AppConfig.Auth.JWTSecret
		}
		if lifetime == 0 {
			lifetime = time.Duration(config.AppConfig.Auth.TokenTTLHours) * time.Hour
		}
	} else if secret == "" {
		log.Fatalf("Failed to load config and JWT_SECRET is unset: %v", err)
	}
	if lifetime == 0 {
		lifetime = 24 * time.Hour
	}

	tokenString, claims, err := handlers.GenerateOperatorToken([]byte(secret), *operator, lifetime)
	if err != nil {
		log.Fatalf("Error generating token: %v", err)
	}

	fmt.Println("============================================================")
	fmt.Println("Operator JWT Token")
	fmt.Println("============================================================")
	fmt.Println()
	fmt.Println(tokenString)
	fmt.Println()
	fmt.Printf("  Operator: %s\n", claims.Operator)
	fmt.Printf("  Expires:  %s\n", claims.ExpiresAt.Time.Format(time.RFC3339))
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Printf("  curl -H 'Authorization: Bearer %s' http://localhost:8090/api/balance\n", tokenString)
}
