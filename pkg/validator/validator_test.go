package validator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arnavshah/roster-api-go/pkg/models"
	"github.com/arnavshah/roster-api-go/pkg/roster"
)

// fourRanks is the standard fixture: Asha is rank 1, Bilal and Chen rank 2,
// Dara rank 3.
func fourRanks(t *testing.T) *roster.Roster {
	t.Helper()
	r, err := roster.New([]roster.Member{
		{ID: 1, Name: "Asha", Designation: "Lead", Level: 2},
		{ID: 2, Name: "Bilal", Designation: "Engineer", Level: 4},
		{ID: 3, Name: "Chen", Designation: "Engineer", Level: 4},
		{ID: 4, Name: "Dara", Designation: "Associate", Level: 6},
	})
	require.NoError(t, err)
	return r
}

func refs(names ...string) []models.EmployeeRef {
	out := make([]models.EmployeeRef, 0, len(names))
	for _, n := range names {
		out = append(out, models.EmployeeRef{Name: n, Designation: "Staff"})
	}
	return out
}

// month builds one month over the 3-shift template.
func month(label string, assigned, floaters map[string][]string) models.MonthAssignments {
	order := []string{"Morning", "Afternoon", "Night"}
	shifts := make(map[string]models.ShiftAssignment, len(order))
	for _, s := range order {
		shifts[s] = models.ShiftAssignment{
			AssignedStaff: refs(assigned[s]...),
			Floaters:      refs(floaters[s]...),
		}
	}
	return models.MonthAssignments{Month: label, ShiftOrder: order, Shifts: shifts}
}

func TestValidSchedule(t *testing.T) {
	r := fourRanks(t)
	sched := models.Schedule{Months: []models.MonthAssignments{
		month("January 2025",
			map[string][]string{"Morning": {"Asha"}, "Afternoon": {"Bilal"}, "Night": {"Dara"}},
			map[string][]string{"Morning": {"Chen"}}),
		month("February 2025",
			map[string][]string{"Morning": {"Asha"}, "Afternoon": {"Bilal"}, "Night": {"Chen"}},
			map[string][]string{"Morning": {"Dara"}}),
	}}

	report := Validate(context.Background(), sched, r)
	assert.True(t, report.IsValid)
	assert.Empty(t, report.Violations)
	assert.Contains(t, report.ValidationNotes, "2 months")
}

func TestStabilityViolation(t *testing.T) {
	r := fourRanks(t)
	// Dara is rank 3 and must rotate monthly but holds Night twice.
	sched := models.Schedule{Months: []models.MonthAssignments{
		month("January 2025",
			map[string][]string{"Morning": {"Asha"}, "Afternoon": {"Bilal"}, "Night": {"Dara"}},
			map[string][]string{"Morning": {"Chen"}}),
		month("February 2025",
			map[string][]string{"Morning": {"Asha"}, "Afternoon": {"Chen"}, "Night": {"Dara"}},
			map[string][]string{"Morning": {"Bilal"}}),
	}}

	report := Validate(context.Background(), sched, r)
	require.Len(t, report.Violations, 1)
	assert.Equal(t,
		"Rule 1 (shift stability): Dara stayed on Night from January 2025 to February 2025 (2 consecutive months, limit 1 for rank 3)",
		report.Violations[0])
}

func TestStabilityRunEmitsOneViolation(t *testing.T) {
	r := fourRanks(t)
	// A three-month run is one violation covering the whole run, not one
	// per excess month.
	sched := models.Schedule{Months: []models.MonthAssignments{
		month("January 2025",
			map[string][]string{"Morning": {"Asha"}, "Afternoon": {"Bilal"}, "Night": {"Dara"}},
			map[string][]string{"Morning": {"Chen"}}),
		month("February 2025",
			map[string][]string{"Morning": {"Asha"}, "Afternoon": {"Chen"}, "Night": {"Dara"}},
			map[string][]string{"Morning": {"Bilal"}}),
		month("March 2025",
			map[string][]string{"Morning": {"Asha"}, "Afternoon": {"Bilal"}, "Night": {"Dara"}},
			map[string][]string{"Morning": {"Chen"}}),
	}}

	violations, _ := Analyze(context.Background(), sched, r)

	var stability []Violation
	for _, v := range violations {
		if v.Rule == RuleStability {
			stability = append(stability, v)
		}
	}
	require.Len(t, stability, 1)
	assert.Equal(t, "Dara", stability[0].Employee)
	assert.Equal(t, []string{"January 2025", "February 2025", "March 2025"}, stability[0].Months)
}

func TestSeniorWithinStabilityWindow(t *testing.T) {
	r := fourRanks(t)
	// Asha is rank 1 and may hold Morning for up to 3 months.
	months := []models.MonthAssignments{
		month("January 2025",
			map[string][]string{"Morning": {"Asha"}, "Afternoon": {"Bilal"}, "Night": {"Dara"}},
			map[string][]string{"Morning": {"Chen"}}),
		month("February 2025",
			map[string][]string{"Morning": {"Asha"}, "Afternoon": {"Bilal"}, "Night": {"Chen"}},
			map[string][]string{"Morning": {"Dara"}}),
		month("March 2025",
			map[string][]string{"Morning": {"Asha"}, "Afternoon": {"Dara"}, "Night": {"Chen"}},
			map[string][]string{"Morning": {"Bilal"}}),
	}

	report := Validate(context.Background(), models.Schedule{Months: months}, r)
	for _, v := range report.Violations {
		assert.NotContains(t, v, "Asha")
	}
}

func TestFloaterExemptionViolation(t *testing.T) {
	r := fourRanks(t)
	sched := models.Schedule{Months: []models.MonthAssignments{
		month("January 2025",
			map[string][]string{"Morning": {"Bilal"}, "Afternoon": {"Chen"}, "Night": {"Dara"}},
			map[string][]string{"Morning": {"Asha"}}),
	}}

	report := Validate(context.Background(), sched, r)
	require.Len(t, report.Violations, 1)
	assert.Equal(t,
		"Rule 2 (floater exemption): Asha (rank 1) was assigned floater duty in January 2025",
		report.Violations[0])
}

func TestFloaterRotationViolation(t *testing.T) {
	r := fourRanks(t)
	// Chen floats three months running; only the first adjacent pair is
	// reported for the employee.
	sched := models.Schedule{Months: []models.MonthAssignments{
		month("January 2025",
			map[string][]string{"Morning": {"Asha"}, "Afternoon": {"Bilal"}, "Night": {"Dara"}},
			map[string][]string{"Morning": {"Chen"}}),
		month("February 2025",
			map[string][]string{"Morning": {"Asha"}, "Afternoon": {"Dara"}, "Night": {"Bilal"}},
			map[string][]string{"Morning": {"Chen"}}),
		month("March 2025",
			map[string][]string{"Morning": {"Asha"}, "Afternoon": {"Bilal"}, "Night": {"Dara"}},
			map[string][]string{"Morning": {"Chen"}}),
	}}

	violations, _ := Analyze(context.Background(), sched, r)

	var rotation []Violation
	for _, v := range violations {
		if v.Rule == RuleFloaterRotation {
			rotation = append(rotation, v)
		}
	}
	require.Len(t, rotation, 1)
	assert.Equal(t,
		"Rule 3 (floater rotation): Chen floated in consecutive months January 2025 and February 2025",
		rotation[0].Text)
}

func TestCoverageViolation(t *testing.T) {
	r := fourRanks(t)
	// Expected staffing is inferred from the first non-empty shift; the
	// overstaffed Afternoon and the empty Night both deviate.
	sched := models.Schedule{Months: []models.MonthAssignments{
		month("January 2025",
			map[string][]string{"Morning": {"Asha"}, "Afternoon": {"Bilal", "Chen"}},
			map[string][]string{"Morning": {"Dara"}}),
	}}

	violations, _ := Analyze(context.Background(), sched, r)

	var coverage []string
	for _, v := range violations {
		if v.Rule == RuleCoverage {
			coverage = append(coverage, v.Text)
		}
	}
	assert.Contains(t, coverage, "Rule 4 (coverage): Afternoon in January 2025 has 2 assigned staff, expected 1")
	assert.Contains(t, coverage, "Rule 4 (coverage): Night in January 2025 has 0 assigned staff, expected 1")
}

func TestDiversityViolation(t *testing.T) {
	r := fourRanks(t)
	// Morning is staffed entirely by rank 2.
	sched := models.Schedule{Months: []models.MonthAssignments{
		month("January 2025",
			map[string][]string{"Morning": {"Bilal", "Chen"}, "Afternoon": {"Asha", "Dara"}},
			nil),
	}}

	violations, _ := Analyze(context.Background(), sched, r)

	var diversity []string
	for _, v := range violations {
		if v.Rule == RuleDiversity {
			diversity = append(diversity, v.Text)
		}
	}
	require.Len(t, diversity, 1)
	assert.Equal(t, "Rule 5 (mixed hierarchy): Morning in January 2025 is staffed entirely by rank 2", diversity[0])
}

func TestDiversitySkipsSingleRankTeam(t *testing.T) {
	r, err := roster.New([]roster.Member{
		{ID: 1, Name: "Ana", Level: 4},
		{ID: 2, Name: "Ben", Level: 4},
	})
	require.NoError(t, err)

	sched := models.Schedule{Months: []models.MonthAssignments{
		month("January 2025",
			map[string][]string{"Morning": {"Ana", "Ben"}},
			nil),
	}}

	violations, _ := Analyze(context.Background(), sched, r)
	for _, v := range violations {
		assert.NotEqual(t, RuleDiversity, v.Rule)
	}
}

func TestUnknownEmployeeBecomesFormatViolation(t *testing.T) {
	r := fourRanks(t)
	sched := models.Schedule{Months: []models.MonthAssignments{
		month("January 2025",
			map[string][]string{"Morning": {"Asha"}, "Afternoon": {"Ghost"}, "Night": {"Dara"}},
			map[string][]string{"Morning": {"Chen"}}),
	}}

	report := Validate(context.Background(), sched, r)
	assert.False(t, report.IsValid)
	require.Len(t, report.Violations, 1)
	assert.Equal(t, "schedule format error: employees not on the roster: Ghost", report.Violations[0])
	assert.Contains(t, report.ValidationNotes, "rule checks skipped")
}

func TestValidateRawBadDocument(t *testing.T) {
	r := fourRanks(t)

	report := ValidateRaw(context.Background(), []byte(`{"not a month": {}}`), r)
	assert.False(t, report.IsValid)
	require.Len(t, report.Violations, 1)
	assert.Contains(t, report.Violations[0], "schedule format error")
}

func TestIsCoreViolation(t *testing.T) {
	assert.True(t, IsCoreViolation("Rule 1 (shift stability): x"))
	assert.True(t, IsCoreViolation("Rule 2 (floater exemption): x"))
	assert.True(t, IsCoreViolation("Rule 3 (floater rotation): x"))
	assert.False(t, IsCoreViolation("Rule 4 (coverage): x"))
	assert.False(t, IsCoreViolation("Rule 5 (mixed hierarchy): x"))
	assert.False(t, IsCoreViolation("schedule format error: x"))
}

func TestValidateCancelledContext(t *testing.T) {
	r := fourRanks(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sched := models.Schedule{Months: []models.MonthAssignments{
		month("January 2025",
			map[string][]string{"Morning": {"Asha"}, "Afternoon": {"Bilal"}, "Night": {"Dara"}},
			map[string][]string{"Morning": {"Chen"}}),
	}}

	report := Validate(ctx, sched, r)
	assert.Contains(t, report.ValidationNotes, "validation stopped early")
}
