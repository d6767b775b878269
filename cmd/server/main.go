package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/arnavshah/roster-api-go/pkg/auth"
	"github.com/arnavshah/roster-api-go/pkg/database"
	"github.com/arnavshah/roster-api-go/pkg/handlers"
	"github.com/arnavshah/roster-api-go/pkg/oracle"
)

func main() {
	// Load .env if it exists
	// Try root and parent directories for flexibility
	envPaths := []string{".env", "../.env", "../../.env"}
	for _, p := range envPaths {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			break
		}
	}

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	db := database.InitDB()
	if err := auth.EnsureAdminExists(db); err != nil {
		log.Fatalf("could not bootstrap admin user: %v", err)
	}

	var checker oracle.Checker
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		checker = oracle.NewGemini(key, os.Getenv("GEMINI_MODEL"))
	}

	h := handlers.NewHandler(db, auth.SecretsFromEnv(), checker)
	r := handlers.SetupRouter(h)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}

	log.Printf("Server starting on port %s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("could not run server: %v", err)
	}
}
