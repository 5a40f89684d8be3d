// Package main issues a development bearer token for the API.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"strategy-lab/internal/auth"
)

func main() {
	secret := flag.String("secret", os.Getenv("STRATEGY_LAB_JWT_SECRET"), "Signing secret (defaults to STRATEGY_LAB_JWT_SECRET)")
	subject := flag.String("subject", "", "Token subject, becomes the caller identity")
	name := flag.String("name", "", "Optional display name claim")
	ttl := flag.Duration("ttl", 24*time.Hour, "Token lifetime")
	flag.Parse()

	logger := log.New(os.Stderr, "[token] ", 0)

	if *secret == "" {
		logger.Fatal("--secret or STRATEGY_LAB_JWT_SECRET is required")
	}
	if *subject == "" {
		logger.Fatal("--subject is required")
	}

	now := time.Now()
	token, err := auth.NewVerifier(*secret).Sign(&auth.Claims{
		Name: *name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   *subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(*ttl)),
		},
	})
	if err != nil {
		logger.Fatalf("sign token: %v", err)
	}
	fmt.Println(token)
}
