// Command token prints a signed development JWT for the API and WebSocket
// endpoints.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/richman/backend/internal/api/middleware/auth"
	"github.com/richman/backend/internal/config"
)

func main() {
	_ = godotenv.Load()

	userID := flag.String("user", "demo", "user id placed in the token")
	hours := flag.Int("hours", 0, "token lifetime in hours (0 = jwt.expiration)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	if *hours <= 0 {
		*hours = cfg.JWT.Expiration
	}

	token, err := auth.GenerateJWT(*userID, cfg.JWT.Secret, *hours)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating token: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Token for user %q, valid %dh:\n%s\n", *userID, *hours, token)
}
