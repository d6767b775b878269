package database

import (
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Designation represents the designations table. HierarchyLevel is the
// absolute company-wide seniority (lower = more senior) and is unique so
// two titles never share a level.
type Designation struct {
	ID                    uint   `gorm:"primaryKey" json:"id"`
	Title                 string `gorm:"unique;not null" json:"title"`
	HierarchyLevel        int    `gorm:"unique;not null" json:"hierarchy_level"`
	MonthlyLeaveAllowance int    `gorm:"default:0" json:"monthly_leave_allowance"`
}

// Employee represents the employees table.
type Employee struct {
	ID              uint        `gorm:"primaryKey" json:"id"`
	Name            string      `gorm:"not null" json:"name"`
	Email           string      `gorm:"unique;not null" json:"email"`
	Gender          string      `json:"gender"`
	ShiftPreference string      `json:"shift_preference"`
	LeaveDates      string      `json:"leave_dates"` // JSON array of YYYY-MM-DD strings
	DesignationID   uint        `gorm:"not null" json:"designation_id"`
	Designation     Designation `json:"designation"`
}

// Team represents the teams table.
type Team struct {
	ID             uint         `gorm:"primaryKey" json:"id"`
	Name           string       `gorm:"unique;not null" json:"name"`
	ShiftTemplate  string       `gorm:"not null" json:"shift_template"`
	PeoplePerShift int          `gorm:"not null" json:"people_per_shift"`
	Members        []TeamMember `json:"members,omitempty"`
}

// TeamMember links employees to teams.
type TeamMember struct {
	ID         uint     `gorm:"primaryKey" json:"id"`
	TeamID     uint     `gorm:"index;not null" json:"team_id"`
	EmployeeID uint     `gorm:"index;not null" json:"employee_id"`
	Employee   Employee `json:"employee"`
}

// SavedSchedule stores one generated schedule document per team.
type SavedSchedule struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	TeamID       uint      `gorm:"unique;not null" json:"team_id"`
	ScheduleData string    `gorm:"type:text;not null" json:"schedule_data"`
	GeneratedOn  time.Time `json:"generated_on"`
}

// MasterUser represents the master_users table for the admin account.
type MasterUser struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"unique;not null" json:"username"`
	PasswordHash string    `gorm:"not null" json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

// APIKey represents the api_keys table.
type APIKey struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Key        string     `gorm:"unique;not null" json:"key"`
	Name       string     `gorm:"not null" json:"name"`
	KeyPreview string     `json:"key_preview"`
	RateLimit  int        `gorm:"default:10000" json:"rate_limit"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsed   *time.Time `json:"last_used"`
}

// APIUsage represents the api_usage table, one row per key per day.
type APIUsage struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	KeyID          uint   `gorm:"uniqueIndex:idx_key_date;not null" json:"key_id"`
	Date           string `gorm:"uniqueIndex:idx_key_date;not null" json:"date"`
	RequestCount   int    `gorm:"default:0" json:"request_count"`
	MonthsPlanned  int    `gorm:"default:0" json:"months_planned"`
	StaffScheduled int    `gorm:"default:0" json:"staff_scheduled"`
}

// InitDB initializes the database connection and migrates the schema.
// DATABASE_URL selects Postgres; otherwise a SQLite file at DATA_PATH is
// used (default roster.db).
func InitDB() *gorm.DB {
	var db *gorm.DB
	var err error

	dsn := os.Getenv("DATABASE_URL")
	if dsn != "" {
		db, err = gorm.Open(postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true,
		}), &gorm.Config{
			PrepareStmt: false,
		})
	} else {
		dbPath := os.Getenv("DATA_PATH")
		if dbPath == "" {
			dbPath = "roster.db"
		}
		db, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	}

	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	db.AutoMigrate(
		&Designation{},
		&Employee{},
		&Team{},
		&TeamMember{},
		&SavedSchedule{},
		&MasterUser{},
		&APIKey{},
		&APIUsage{},
	)

	return db
}
