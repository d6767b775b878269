package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/arnavshah/roster-api-go/pkg/auth"
	"github.com/arnavshah/roster-api-go/pkg/database"
	"github.com/arnavshah/roster-api-go/pkg/models"
	"github.com/arnavshah/roster-api-go/pkg/oracle"
)

// Handler contains dependencies for the route handlers.
type Handler struct {
	DB      *gorm.DB
	Secrets auth.Secrets
	Oracle  oracle.Checker // nil when no oracle is configured

	locks teamLocks
	cache violationCache
}

// NewHandler wires a handler with its collaborators. Oracle may be nil.
func NewHandler(db *gorm.DB, secrets auth.Secrets, checker oracle.Checker) *Handler {
	return &Handler{
		DB:      db,
		Secrets: secrets,
		Oracle:  checker,
		cache:   violationCache{reports: make(map[uint]CachedReport)},
	}
}

// teamLocks serializes schedule mutations per team. Reads never take a
// lock; writers that lose the race get a conflict response instead of
// queueing.
type teamLocks struct {
	mu    sync.Mutex
	inUse map[uint]bool
}

func (t *teamLocks) acquire(teamID uint) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.inUse == nil {
		t.inUse = make(map[uint]bool)
	}
	if t.inUse[teamID] {
		return false
	}
	t.inUse[teamID] = true
	return true
}

func (t *teamLocks) release(teamID uint) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.inUse, teamID)
}

// CachedReport is a team's last-known validation outcome.
type CachedReport struct {
	Report   models.ValidationReport `json:"report"`
	CachedAt time.Time               `json:"cached_at"`
}

// violationCache memoizes validation reports per team so callers can read
// the last-known result without replaying the rules.
type violationCache struct {
	mu      sync.RWMutex
	reports map[uint]CachedReport
}

func (c *violationCache) put(teamID uint, report models.ValidationReport) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reports[teamID] = CachedReport{Report: report, CachedAt: time.Now()}
}

func (c *violationCache) get(teamID uint) (CachedReport, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.reports[teamID]
	return r, ok
}

func (c *violationCache) invalidate(teamID uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.reports, teamID)
}

// AuthMiddleware verifies the JWT token for admin routes.
func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("Authorization")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		if len(token) > 7 && token[:7] == "Bearer " {
			token = token[7:]
		}

		claims, err := h.Secrets.VerifyToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		c.Set("username", claims.Username)
		c.Next()
	}
}

// APIKeyMiddleware verifies the HMAC-signed API key for scheduler routes.
func (h *Handler) APIKeyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader("Authorization")
		if key == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "API Key required"})
			c.Abort()
			return
		}

		if len(key) > 7 && key[:7] == "Bearer " {
			key = key[7:]
		}

		userID, err := h.Secrets.VerifyAPIKey(key)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid API Key signature"})
			c.Abort()
			return
		}

		// Fetch or create the key record to track usage.
		var apiKey database.APIKey
		h.DB.Where(database.APIKey{Key: key}).FirstOrCreate(&apiKey, database.APIKey{
			Key:       key,
			Name:      userID,
			RateLimit: 10000,
		})
		now := time.Now()
		h.DB.Model(&apiKey).Update("last_used", &now)

		c.Set("apiKey", &apiKey)
		c.Set("userID", userID)
		c.Next()
	}
}

// SetupRouter registers every route on a fresh engine. Both the server
// binary and the serverless entry point use this.
func SetupRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Team Roster API",
			"version": "1.2.0",
		})
	})

	r.POST("/admin/login", h.Login)

	admin := r.Group("/admin")
	admin.Use(h.AuthMiddleware())
	{
		admin.POST("/designations", h.CreateDesignation)
		admin.GET("/designations", h.ListDesignations)
		admin.PUT("/designations/:id", h.UpdateDesignation)
		admin.DELETE("/designations/:id", h.DeleteDesignation)

		admin.POST("/employees", h.CreateEmployee)
		admin.GET("/employees", h.ListEmployees)
		admin.PUT("/employees/:id", h.UpdateEmployee)
		admin.DELETE("/employees/:id", h.DeleteEmployee)

		admin.POST("/teams", h.CreateTeam)
		admin.GET("/teams", h.ListTeams)
		admin.PUT("/teams/:id", h.UpdateTeam)
		admin.DELETE("/teams/:id", h.DeleteTeam)

		admin.POST("/keys", h.GenerateKey)
		admin.GET("/keys", h.ListKeys)
		admin.PUT("/keys/:id", h.UpdateKeyLimit)
		admin.DELETE("/keys/:id", h.RevokeKey)
		admin.GET("/usage/:id", h.GetUsage)
	}

	api := r.Group("/api")
	api.Use(h.APIKeyMiddleware())
	{
		api.POST("/teams/:id/schedule", h.GenerateSchedule)
		api.GET("/teams/:id/schedule", h.GetSchedule)
		api.DELETE("/teams/:id/schedule", h.DeleteSchedule)
		api.POST("/teams/:id/schedule/validate", h.ValidateSchedule)
		api.POST("/teams/:id/schedule/repair", h.RepairSchedule)
		api.GET("/teams/:id/schedule/export", h.ExportSchedule)
		api.GET("/teams/:id/violations", h.GetCachedViolations)
		api.GET("/usage", h.GetMyUsage)
	}

	return r
}
