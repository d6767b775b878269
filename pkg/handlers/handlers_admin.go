package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/roster-api-go/pkg/auth"
	"github.com/arnavshah/roster-api-go/pkg/database"
	"github.com/arnavshah/roster-api-go/pkg/models"
)

// Login handles admin login.
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user database.MasterUser
	if err := h.DB.Where("username = ?", req.Username).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := h.Secrets.CreateToken(user.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "bearer"})
}

// CreateDesignation adds a designation; titles and hierarchy levels are
// both unique.
func (h *Handler) CreateDesignation(c *gin.Context) {
	var req struct {
		Title                 string `json:"title" binding:"required"`
		HierarchyLevel        int    `json:"hierarchy_level" binding:"required,min=1"`
		MonthlyLeaveAllowance int    `json:"monthly_leave_allowance" binding:"min=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var existing database.Designation
	if err := h.DB.Where("title = ? OR hierarchy_level = ?", req.Title, req.HierarchyLevel).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "A designation with this title or hierarchy level already exists"})
		return
	}

	designation := database.Designation{
		Title:                 req.Title,
		HierarchyLevel:        req.HierarchyLevel,
		MonthlyLeaveAllowance: req.MonthlyLeaveAllowance,
	}
	if err := h.DB.Create(&designation).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create designation"})
		return
	}
	c.JSON(http.StatusCreated, designation)
}

// ListDesignations returns all designations ordered by seniority.
func (h *Handler) ListDesignations(c *gin.Context) {
	var designations []database.Designation
	h.DB.Order("hierarchy_level asc").Find(&designations)
	c.JSON(http.StatusOK, gin.H{"designations": designations})
}

// UpdateDesignation edits a designation's title, level or leave allowance.
func (h *Handler) UpdateDesignation(c *gin.Context) {
	id := c.Param("id")
	var designation database.Designation
	if err := h.DB.First(&designation, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Designation not found"})
		return
	}

	var req struct {
		Title                 string `json:"title" binding:"required"`
		HierarchyLevel        int    `json:"hierarchy_level" binding:"required,min=1"`
		MonthlyLeaveAllowance int    `json:"monthly_leave_allowance" binding:"min=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var clash database.Designation
	if err := h.DB.Where("(title = ? OR hierarchy_level = ?) AND id <> ?", req.Title, req.HierarchyLevel, designation.ID).First(&clash).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Another designation already uses this title or hierarchy level"})
		return
	}

	designation.Title = req.Title
	designation.HierarchyLevel = req.HierarchyLevel
	designation.MonthlyLeaveAllowance = req.MonthlyLeaveAllowance
	if err := h.DB.Save(&designation).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not update designation"})
		return
	}
	c.JSON(http.StatusOK, designation)
}

// DeleteDesignation removes a designation that no employee uses.
func (h *Handler) DeleteDesignation(c *gin.Context) {
	id := c.Param("id")

	var count int64
	h.DB.Model(&database.Employee{}).Where("designation_id = ?", id).Count(&count)
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Designation is still assigned to employees"})
		return
	}

	if err := h.DB.Delete(&database.Designation{}, id).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not delete designation"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Designation deleted"})
}

// CreateEmployee adds an employee with a unique email and an existing
// designation.
func (h *Handler) CreateEmployee(c *gin.Context) {
	var req struct {
		Name            string `json:"name" binding:"required"`
		Email           string `json:"email" binding:"required,email"`
		Gender          string `json:"gender"`
		ShiftPreference string `json:"shift_preference"`
		LeaveDates      string `json:"leave_dates"`
		DesignationID   uint   `json:"designation_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var designation database.Designation
	if err := h.DB.First(&designation, req.DesignationID).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Designation not found"})
		return
	}

	var existing database.Employee
	if err := h.DB.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "An employee with this email already exists"})
		return
	}

	employee := database.Employee{
		Name:            req.Name,
		Email:           req.Email,
		Gender:          req.Gender,
		ShiftPreference: req.ShiftPreference,
		LeaveDates:      req.LeaveDates,
		DesignationID:   req.DesignationID,
	}
	if err := h.DB.Create(&employee).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create employee"})
		return
	}
	h.DB.Preload("Designation").First(&employee, employee.ID)
	c.JSON(http.StatusCreated, employee)
}

// ListEmployees returns all employees with their designations.
func (h *Handler) ListEmployees(c *gin.Context) {
	var employees []database.Employee
	h.DB.Preload("Designation").Find(&employees)
	c.JSON(http.StatusOK, gin.H{"employees": employees})
}

// UpdateEmployee edits an employee.
func (h *Handler) UpdateEmployee(c *gin.Context) {
	id := c.Param("id")
	var employee database.Employee
	if err := h.DB.First(&employee, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Employee not found"})
		return
	}

	var req struct {
		Name            string `json:"name" binding:"required"`
		Email           string `json:"email" binding:"required,email"`
		Gender          string `json:"gender"`
		ShiftPreference string `json:"shift_preference"`
		LeaveDates      string `json:"leave_dates"`
		DesignationID   uint   `json:"designation_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var designation database.Designation
	if err := h.DB.First(&designation, req.DesignationID).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Designation not found"})
		return
	}

	employee.Name = req.Name
	employee.Email = req.Email
	employee.Gender = req.Gender
	employee.ShiftPreference = req.ShiftPreference
	employee.LeaveDates = req.LeaveDates
	employee.DesignationID = req.DesignationID
	if err := h.DB.Save(&employee).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not update employee"})
		return
	}
	c.JSON(http.StatusOK, employee)
}

// DeleteEmployee removes an employee and their team memberships.
func (h *Handler) DeleteEmployee(c *gin.Context) {
	id := c.Param("id")
	h.DB.Where("employee_id = ?", id).Delete(&database.TeamMember{})
	if err := h.DB.Delete(&database.Employee{}, id).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not delete employee"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Employee deleted"})
}

// CreateTeam adds a team with enough members for its shift template.
func (h *Handler) CreateTeam(c *gin.Context) {
	var req struct {
		Name           string `json:"name" binding:"required"`
		ShiftTemplate  string `json:"shift_template" binding:"required,oneof=3-shift 4-shift 5-shift"`
		PeoplePerShift int    `json:"people_per_shift" binding:"required,min=1"`
		MemberIDs      []uint `json:"member_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	shifts, err := models.TemplateShifts(req.ShiftTemplate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	required := len(shifts) * req.PeoplePerShift
	if len(req.MemberIDs) < required {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Not enough members for this template",
			"required_minimum": required,
		})
		return
	}

	var existing database.Team
	if err := h.DB.Where("name = ?", req.Name).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "A team with this name already exists"})
		return
	}

	var employees []database.Employee
	h.DB.Where("id IN ?", req.MemberIDs).Find(&employees)
	if len(employees) != len(req.MemberIDs) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "One or more member IDs do not exist"})
		return
	}

	team := database.Team{
		Name:           req.Name,
		ShiftTemplate:  req.ShiftTemplate,
		PeoplePerShift: req.PeoplePerShift,
	}
	if err := h.DB.Create(&team).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create team"})
		return
	}
	for _, empID := range req.MemberIDs {
		h.DB.Create(&database.TeamMember{TeamID: team.ID, EmployeeID: empID})
	}

	h.DB.Preload("Members.Employee.Designation").First(&team, team.ID)
	c.JSON(http.StatusCreated, team)
}

// ListTeams returns all teams with membership.
func (h *Handler) ListTeams(c *gin.Context) {
	var teams []database.Team
	h.DB.Preload("Members.Employee.Designation").Find(&teams)
	c.JSON(http.StatusOK, gin.H{"teams": teams})
}

// UpdateTeam edits a team's configuration and membership.
func (h *Handler) UpdateTeam(c *gin.Context) {
	id := c.Param("id")
	var team database.Team
	if err := h.DB.First(&team, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Team not found"})
		return
	}

	var req struct {
		Name           string `json:"name" binding:"required"`
		ShiftTemplate  string `json:"shift_template" binding:"required,oneof=3-shift 4-shift 5-shift"`
		PeoplePerShift int    `json:"people_per_shift" binding:"required,min=1"`
		MemberIDs      []uint `json:"member_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	shifts, err := models.TemplateShifts(req.ShiftTemplate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	required := len(shifts) * req.PeoplePerShift
	if len(req.MemberIDs) < required {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Not enough members for this template",
			"required_minimum": required,
		})
		return
	}

	team.Name = req.Name
	team.ShiftTemplate = req.ShiftTemplate
	team.PeoplePerShift = req.PeoplePerShift
	if err := h.DB.Save(&team).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not update team"})
		return
	}

	h.DB.Where("team_id = ?", team.ID).Delete(&database.TeamMember{})
	for _, empID := range req.MemberIDs {
		h.DB.Create(&database.TeamMember{TeamID: team.ID, EmployeeID: empID})
	}

	h.DB.Preload("Members.Employee.Designation").First(&team, team.ID)
	c.JSON(http.StatusOK, team)
}

// DeleteTeam removes a team, its memberships and any saved schedule.
func (h *Handler) DeleteTeam(c *gin.Context) {
	id := c.Param("id")
	var team database.Team
	if err := h.DB.First(&team, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Team not found"})
		return
	}

	h.DB.Where("team_id = ?", team.ID).Delete(&database.TeamMember{})
	h.DB.Where("team_id = ?", team.ID).Delete(&database.SavedSchedule{})
	if err := h.DB.Delete(&team).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not delete team"})
		return
	}
	h.cache.invalidate(team.ID)
	c.JSON(http.StatusOK, gin.H{"message": "Team deleted"})
}

// GenerateKey creates a new API key using the HMAC strategy.
func (h *Handler) GenerateKey(c *gin.Context) {
	var req struct {
		Name      string `json:"name" binding:"required"`
		RateLimit int    `json:"rate_limit"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.RateLimit == 0 {
		req.RateLimit = 10000
	}

	key := h.Secrets.GenerateAPIKey(req.Name)

	preview := "****"
	if len(key) > 8 {
		preview = key[:3] + "..." + key[len(key)-4:]
	}

	apiKey := database.APIKey{
		Key:        key,
		Name:       req.Name,
		KeyPreview: preview,
		RateLimit:  req.RateLimit,
	}
	if err := h.DB.Create(&apiKey).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create key record"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"name": req.Name,
		"key":  key,
	})
}

// ListKeys returns all API keys.
func (h *Handler) ListKeys(c *gin.Context) {
	var keys []database.APIKey
	h.DB.Find(&keys)
	c.JSON(http.StatusOK, gin.H{"keys": keys})
}

// RevokeKey deletes an API key.
func (h *Handler) RevokeKey(c *gin.Context) {
	id := c.Param("id")
	if err := h.DB.Delete(&database.APIKey{}, id).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not delete key"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Key revoked"})
}

// UpdateKeyLimit updates the rate limit for a key.
func (h *Handler) UpdateKeyLimit(c *gin.Context) {
	id := c.Param("id")
	var req struct {
		RateLimit int `json:"rate_limit" form:"rate_limit"`
	}

	// Try JSON first, then Form/Query.
	if err := c.ShouldBindJSON(&req); err != nil {
		if err := c.ShouldBindQuery(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "rate_limit is required"})
			return
		}
	}

	if req.RateLimit == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rate limit"})
		return
	}

	if err := h.DB.Model(&database.APIKey{}).Where("id = ?", id).Update("rate_limit", req.RateLimit).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not update key limit"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Rate limit updated successfully"})
}
