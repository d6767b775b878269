package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/arnavshah/roster-api-go/pkg/database"
)

// recordUsage upserts the per-key daily usage row. Months and staff are
// zero for everything except schedule generation.
func (h *Handler) recordUsage(c *gin.Context, months, staff int) {
	v, ok := c.Get("apiKey")
	if !ok {
		return
	}
	apiKey, ok := v.(*database.APIKey)
	if !ok {
		return
	}

	today := time.Now().Format("2006-01-02")
	h.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key_id"}, {Name: "date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"request_count":   gorm.Expr("request_count + 1"),
			"months_planned":  gorm.Expr("months_planned + ?", months),
			"staff_scheduled": gorm.Expr("staff_scheduled + ?", staff),
		}),
	}).Create(&database.APIUsage{
		KeyID:          apiKey.ID,
		Date:           today,
		RequestCount:   1,
		MonthsPlanned:  months,
		StaffScheduled: staff,
	})
}

// usageWindow summarizes the last 30 days of usage rows for one key.
func (h *Handler) usageWindow(keyID uint) ([]database.APIUsage, gin.H) {
	since := time.Now().AddDate(0, 0, -30).Format("2006-01-02")

	var rows []database.APIUsage
	h.DB.Where("key_id = ? AND date >= ?", keyID, since).
		Order("date desc").
		Find(&rows)

	totals := gin.H{"requests": 0, "months_planned": 0, "staff_scheduled": 0}
	requests, monthsPlanned, staffScheduled := 0, 0, 0
	for _, row := range rows {
		requests += row.RequestCount
		monthsPlanned += row.MonthsPlanned
		staffScheduled += row.StaffScheduled
	}
	totals["requests"] = requests
	totals["months_planned"] = monthsPlanned
	totals["staff_scheduled"] = staffScheduled

	return rows, totals
}

// GetUsage returns 30-day usage for a key by ID. Admin only.
func (h *Handler) GetUsage(c *gin.Context) {
	id := c.Param("id")

	var apiKey database.APIKey
	if err := h.DB.First(&apiKey, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Key not found"})
		return
	}

	rows, totals := h.usageWindow(apiKey.ID)
	c.JSON(http.StatusOK, gin.H{
		"key_name":    apiKey.Name,
		"key_preview": apiKey.KeyPreview,
		"rate_limit":  apiKey.RateLimit,
		"totals":      totals,
		"daily":       rows,
	})
}

// GetMyUsage returns 30-day usage for the calling key.
func (h *Handler) GetMyUsage(c *gin.Context) {
	v, ok := c.Get("apiKey")
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "API Key required"})
		return
	}
	apiKey := v.(*database.APIKey)

	rows, totals := h.usageWindow(apiKey.ID)
	c.JSON(http.StatusOK, gin.H{
		"key_name":   apiKey.Name,
		"rate_limit": apiKey.RateLimit,
		"totals":     totals,
		"daily":      rows,
	})
}
