package handlers

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/roster-api-go/pkg/database"
	"github.com/arnavshah/roster-api-go/pkg/models"
	"github.com/arnavshah/roster-api-go/pkg/oracle"
	"github.com/arnavshah/roster-api-go/pkg/repairer"
	"github.com/arnavshah/roster-api-go/pkg/roster"
	"github.com/arnavshah/roster-api-go/pkg/scheduler"
	"github.com/arnavshah/roster-api-go/pkg/validator"
)

// oracleTimeout bounds the external validation call so a slow model never
// holds the request open.
const oracleTimeout = 25 * time.Second

// loadTeamConfig fetches a team with its membership and builds the
// scheduler configuration from it.
func (h *Handler) loadTeamConfig(c *gin.Context) (*database.Team, scheduler.Config, bool) {
	id := c.Param("id")
	var team database.Team
	if err := h.DB.Preload("Members.Employee.Designation").First(&team, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Team not found"})
		return nil, scheduler.Config{}, false
	}

	members := make([]roster.Member, 0, len(team.Members))
	for _, tm := range team.Members {
		members = append(members, roster.Member{
			ID:          tm.Employee.ID,
			Name:        tm.Employee.Name,
			Designation: tm.Employee.Designation.Title,
			Level:       tm.Employee.Designation.HierarchyLevel,
		})
	}

	cfg := scheduler.Config{
		TeamName:       team.Name,
		ShiftTemplate:  team.ShiftTemplate,
		PeoplePerShift: team.PeoplePerShift,
		Members:        members,
	}
	return &team, cfg, true
}

// GenerateSchedule creates and persists a schedule for a team. A team can
// only hold one saved schedule at a time; delete it first to regenerate.
func (h *Handler) GenerateSchedule(c *gin.Context) {
	team, cfg, ok := h.loadTeamConfig(c)
	if !ok {
		return
	}

	var req struct {
		Months int    `json:"months" binding:"omitempty,min=1,max=24"`
		Seed   *int64 `json:"seed"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Months == 0 {
		req.Months = 1
	}

	if !h.locks.acquire(team.ID) {
		c.JSON(http.StatusConflict, gin.H{"error": "Another schedule operation is in progress for this team"})
		return
	}
	defer h.locks.release(team.ID)

	var existing database.SavedSchedule
	if err := h.DB.Where("team_id = ?", team.ID).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Team already has a schedule. Delete it before generating a new one."})
		return
	}

	seed := time.Now().UnixNano()
	if req.Seed != nil {
		seed = *req.Seed
	}
	gen := scheduler.NewGenerator(seed)

	schedule, err := gen.Generate(cfg, req.Months)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	data, err := json.Marshal(schedule)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not encode schedule"})
		return
	}

	saved := database.SavedSchedule{
		TeamID:       team.ID,
		ScheduleData: string(data),
		GeneratedOn:  time.Now(),
	}
	if err := h.DB.Create(&saved).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not save schedule"})
		return
	}

	h.cache.invalidate(team.ID)
	h.recordUsage(c, req.Months, len(cfg.Members))

	c.JSON(http.StatusCreated, gin.H{
		"team":               team.Name,
		"months":             req.Months,
		"generated_on":       saved.GeneratedOn,
		"schedule":           schedule,
		"floater_shortfalls": gen.Shortfalls,
	})
}

// GetSchedule returns a team's saved schedule.
func (h *Handler) GetSchedule(c *gin.Context) {
	team, _, ok := h.loadTeamConfig(c)
	if !ok {
		return
	}

	var saved database.SavedSchedule
	if err := h.DB.Where("team_id = ?", team.ID).First(&saved).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No schedule saved for this team"})
		return
	}

	schedule, err := models.ParseSchedule([]byte(saved.ScheduleData))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Stored schedule is corrupt: %v", err)})
		return
	}

	h.recordUsage(c, 0, 0)
	c.JSON(http.StatusOK, gin.H{
		"team":         team.Name,
		"generated_on": saved.GeneratedOn,
		"schedule":     schedule,
	})
}

// DeleteSchedule removes a team's saved schedule.
func (h *Handler) DeleteSchedule(c *gin.Context) {
	team, _, ok := h.loadTeamConfig(c)
	if !ok {
		return
	}

	if !h.locks.acquire(team.ID) {
		c.JSON(http.StatusConflict, gin.H{"error": "Another schedule operation is in progress for this team"})
		return
	}
	defer h.locks.release(team.ID)

	res := h.DB.Where("team_id = ?", team.ID).Delete(&database.SavedSchedule{})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not delete schedule"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No schedule saved for this team"})
		return
	}

	h.cache.invalidate(team.ID)
	h.recordUsage(c, 0, 0)
	c.JSON(http.StatusOK, gin.H{"message": "Schedule deleted"})
}

// ValidateSchedule checks a schedule against the rules. The body may carry
// a schedule document; when it is empty the team's saved schedule is
// validated. Pass ?oracle=true to also consult the external checker.
func (h *Handler) ValidateSchedule(c *gin.Context) {
	team, cfg, ok := h.loadTeamConfig(c)
	if !ok {
		return
	}

	raw, source, ok := h.scheduleInput(c, team)
	if !ok {
		return
	}

	r, err := roster.New(cfg.Members)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report := validator.ValidateRaw(c.Request.Context(), raw, r)

	useOracle, _ := strconv.ParseBool(c.Query("oracle"))
	var oracleReport *oracle.Report
	if useOracle && h.Oracle != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), oracleTimeout)
		defer cancel()
		oracleReport, err = h.Oracle.Check(ctx, raw, oracle.DefaultRulesText)
		if err != nil {
			note := fmt.Sprintf("oracle unavailable: %v", err)
			if report.ValidationNotes == "" {
				report.ValidationNotes = note
			} else {
				report.ValidationNotes += "; " + note
			}
		}
	}

	h.cache.put(team.ID, report)
	h.recordUsage(c, 0, 0)

	resp := gin.H{
		"team":   team.Name,
		"source": source,
		"report": report,
	}
	if oracleReport != nil {
		resp["oracle_report"] = oracleReport
	}
	c.JSON(http.StatusOK, resp)
}

// RepairSchedule attempts to fix core-rule violations in a schedule. The
// body may carry a schedule and a violation list; missing pieces fall back
// to the saved schedule and a fresh validation pass.
func (h *Handler) RepairSchedule(c *gin.Context) {
	team, cfg, ok := h.loadTeamConfig(c)
	if !ok {
		return
	}

	if !h.locks.acquire(team.ID) {
		c.JSON(http.StatusConflict, gin.H{"error": "Another schedule operation is in progress for this team"})
		return
	}
	defer h.locks.release(team.ID)

	var req struct {
		Schedule   json.RawMessage `json:"schedule"`
		Violations []string        `json:"violations"`
		Persist    *bool           `json:"persist"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	raw := []byte(req.Schedule)
	source := "request"
	if len(raw) == 0 {
		var saved database.SavedSchedule
		if err := h.DB.Where("team_id = ?", team.ID).First(&saved).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "No schedule to repair"})
			return
		}
		raw = []byte(saved.ScheduleData)
		source = "saved"
	}

	schedule, err := models.ParseSchedule(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("schedule format error: %v", err)})
		return
	}

	r, err := roster.New(cfg.Members)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	violations := req.Violations
	if violations == nil {
		report := validator.Validate(c.Request.Context(), schedule, r)
		violations = report.Violations
	}

	result := repairer.Repair(c.Request.Context(), schedule, violations, r)

	persist := source == "saved"
	if req.Persist != nil {
		persist = *req.Persist
	}
	if persist && len(result.ChangesMade) > 0 {
		data, err := json.Marshal(result.Schedule)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not encode repaired schedule"})
			return
		}
		h.DB.Model(&database.SavedSchedule{}).
			Where("team_id = ?", team.ID).
			Updates(map[string]interface{}{
				"schedule_data": string(data),
				"generated_on":  time.Now(),
			})
		h.cache.invalidate(team.ID)
	}

	h.recordUsage(c, 0, 0)
	c.JSON(http.StatusOK, gin.H{
		"team":   team.Name,
		"source": source,
		"result": result,
	})
}

// ExportSchedule flattens a saved schedule into rows, as JSON or CSV.
func (h *Handler) ExportSchedule(c *gin.Context) {
	team, _, ok := h.loadTeamConfig(c)
	if !ok {
		return
	}

	var saved database.SavedSchedule
	if err := h.DB.Where("team_id = ?", team.ID).First(&saved).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No schedule saved for this team"})
		return
	}

	schedule, err := models.ParseSchedule([]byte(saved.ScheduleData))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Stored schedule is corrupt: %v", err)})
		return
	}

	rows := flattenSchedule(team.Name, schedule)

	type employeeTotals struct {
		Assigned int `json:"assigned_months"`
		Floater  int `json:"floater_months"`
	}
	totals := make(map[string]*employeeTotals)
	for _, row := range rows {
		t, ok := totals[row.Employee]
		if !ok {
			t = &employeeTotals{}
			totals[row.Employee] = t
		}
		if row.Role == "floater" {
			t.Floater++
		} else {
			t.Assigned++
		}
	}

	h.recordUsage(c, 0, 0)

	if c.Query("format") == "csv" {
		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s-schedule.csv", team.Name))
		w := csv.NewWriter(c.Writer)
		w.Write([]string{"team", "month", "shift", "employee", "designation", "role"})
		for _, row := range rows {
			w.Write([]string{row.Team, row.Month, row.Shift, row.Employee, row.Designation, row.Role})
		}
		w.Flush()
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"team":    team.Name,
		"rows":    rows,
		"summary": totals,
	})
}

// flattenSchedule projects the nested document into one row per employee
// per month, assigned staff before floaters within each shift.
func flattenSchedule(teamName string, schedule models.Schedule) []models.ExportRow {
	var rows []models.ExportRow
	for _, month := range schedule.Months {
		for _, shift := range month.ShiftOrder {
			sa := month.Shifts[shift]
			for _, e := range sa.AssignedStaff {
				rows = append(rows, models.ExportRow{
					Team: teamName, Month: month.Month, Shift: shift,
					Employee: e.Name, Designation: e.Designation, Role: "assigned",
				})
			}
			for _, e := range sa.Floaters {
				rows = append(rows, models.ExportRow{
					Team: teamName, Month: month.Month, Shift: shift,
					Employee: e.Name, Designation: e.Designation, Role: "floater",
				})
			}
		}
	}
	return rows
}

// GetCachedViolations returns the last validation outcome for a team
// without re-running the rules.
func (h *Handler) GetCachedViolations(c *gin.Context) {
	team, _, ok := h.loadTeamConfig(c)
	if !ok {
		return
	}

	cached, found := h.cache.get(team.ID)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "No validation result cached for this team. Run validate first."})
		return
	}

	h.recordUsage(c, 0, 0)
	c.JSON(http.StatusOK, gin.H{
		"team":      team.Name,
		"report":    cached.Report,
		"cached_at": cached.CachedAt,
	})
}

// scheduleInput resolves the schedule document to operate on: the request
// body when it carries one, otherwise the team's saved schedule.
func (h *Handler) scheduleInput(c *gin.Context, team *database.Team) ([]byte, string, bool) {
	var req struct {
		Schedule json.RawMessage `json:"schedule"`
	}
	if err := c.ShouldBindJSON(&req); err == nil && len(req.Schedule) > 0 {
		return []byte(req.Schedule), "request", true
	}

	var saved database.SavedSchedule
	if err := h.DB.Where("team_id = ?", team.ID).First(&saved).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No schedule provided and none saved for this team"})
		return nil, "", false
	}
	return []byte(saved.ScheduleData), "saved", true
}
