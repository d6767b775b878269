package handler

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/arnavshah/roster-api-go/pkg/auth"
	"github.com/arnavshah/roster-api-go/pkg/database"
	"github.com/arnavshah/roster-api-go/pkg/handlers"
	"github.com/arnavshah/roster-api-go/pkg/oracle"
)

var engine *gin.Engine

func init() {
	// Load .env if it exists (for local testing with vercel dev)
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")

	db := database.InitDB()
	_ = auth.EnsureAdminExists(db)

	var checker oracle.Checker
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		checker = oracle.NewGemini(key, os.Getenv("GEMINI_MODEL"))
	}

	gin.SetMode(gin.ReleaseMode)
	engine = handlers.SetupRouter(handlers.NewHandler(db, auth.SecretsFromEnv(), checker))
}

// Handler is the entry point for Vercel Go Runtime
func Handler(w http.ResponseWriter, req *http.Request) {
	engine.ServeHTTP(w, req)
}
