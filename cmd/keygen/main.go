package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/arnavshah/roster-api-go/pkg/auth"
)

func main() {
	// Load .env from project root
	_ = godotenv.Load("../.env")
	_ = godotenv.Load(".env")

	if len(os.Args) < 2 {
		fmt.Println("Usage: keygen <userID>")
		os.Exit(1)
	}

	secrets := auth.SecretsFromEnv()
	if len(secrets.MasterKey) == 0 {
		fmt.Println("Error: API_MASTER_SECRET not found in .env")
		os.Exit(1)
	}

	userID := os.Args[1]
	apiKey := secrets.GenerateAPIKey(userID)
	fmt.Printf("Generated Key for %s:\n%s\n", userID, apiKey)
}
