package scheduler

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/arnavshah/roster-api-go/pkg/roster"
	"github.com/arnavshah/roster-api-go/pkg/validator"
)

// wardTeam is a 12-person team across three hierarchy levels: 2 seniors,
// 4 mid-level, 6 juniors. With the 3-shift template and 3 people per
// shift it produces exactly 3 floaters per month.
func wardTeam() Config {
	members := []roster.Member{
		{ID: 1, Name: "Asha", Designation: "Charge Nurse", Level: 2},
		{ID: 2, Name: "Bilal", Designation: "Charge Nurse", Level: 2},
		{ID: 3, Name: "Chen", Designation: "Staff Nurse", Level: 4},
		{ID: 4, Name: "Dara", Designation: "Staff Nurse", Level: 4},
		{ID: 5, Name: "Emil", Designation: "Staff Nurse", Level: 4},
		{ID: 6, Name: "Farah", Designation: "Staff Nurse", Level: 4},
		{ID: 7, Name: "Gita", Designation: "Junior Nurse", Level: 6},
		{ID: 8, Name: "Hugo", Designation: "Junior Nurse", Level: 6},
		{ID: 9, Name: "Ines", Designation: "Junior Nurse", Level: 6},
		{ID: 10, Name: "Jai", Designation: "Junior Nurse", Level: 6},
		{ID: 11, Name: "Kira", Designation: "Junior Nurse", Level: 6},
		{ID: 12, Name: "Luca", Designation: "Junior Nurse", Level: 6},
	}
	return Config{
		TeamName:       "Ward A",
		ShiftTemplate:  "3-shift",
		PeoplePerShift: 3,
		Members:        members,
	}
}

func TestGenerateMonthSequence(t *testing.T) {
	g := NewGenerator(1)
	g.Start = time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)

	sched, err := g.Generate(wardTeam(), 4)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	want := []string{"March 2025", "April 2025", "May 2025", "June 2025"}
	if len(sched.Months) != len(want) {
		t.Fatalf("got %d months, want %d", len(sched.Months), len(want))
	}
	for i, label := range want {
		if sched.Months[i].Month != label {
			t.Errorf("month %d = %q, want %q", i, sched.Months[i].Month, label)
		}
	}
}

func TestGenerateExactCoverage(t *testing.T) {
	cfg := wardTeam()
	g := NewGenerator(2)
	g.Start = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

	sched, err := g.Generate(cfg, 6)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	for _, month := range sched.Months {
		if len(month.ShiftOrder) != 3 {
			t.Fatalf("%s has %d shifts, want 3", month.Month, len(month.ShiftOrder))
		}
		totalFloaters := 0
		for _, shift := range month.ShiftOrder {
			sa := month.Shifts[shift]
			if len(sa.AssignedStaff) != cfg.PeoplePerShift {
				t.Errorf("%s %s has %d assigned, want %d", month.Month, shift, len(sa.AssignedStaff), cfg.PeoplePerShift)
			}
			totalFloaters += len(sa.Floaters)
		}
		if totalFloaters != 3 {
			t.Errorf("%s has %d floaters, want 3", month.Month, totalFloaters)
		}
	}
}

func TestGenerateNoDuplicateAssignments(t *testing.T) {
	g := NewGenerator(3)
	g.Start = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

	sched, err := g.Generate(wardTeam(), 6)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	for _, month := range sched.Months {
		seen := make(map[string]bool)
		for _, shift := range month.ShiftOrder {
			sa := month.Shifts[shift]
			for _, e := range sa.AssignedStaff {
				if seen[e.Name] {
					t.Errorf("%s: %s appears twice", month.Month, e.Name)
				}
				seen[e.Name] = true
			}
			for _, e := range sa.Floaters {
				if seen[e.Name] {
					t.Errorf("%s: %s appears twice", month.Month, e.Name)
				}
				seen[e.Name] = true
			}
		}
		if len(seen) != 12 {
			t.Errorf("%s covers %d employees, want 12", month.Month, len(seen))
		}
	}
}

func TestSeniorsNeverFloat(t *testing.T) {
	g := NewGenerator(4)
	g.Start = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

	sched, err := g.Generate(wardTeam(), 12)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	for _, month := range sched.Months {
		for _, shift := range month.ShiftOrder {
			for _, f := range month.Shifts[shift].Floaters {
				if f.Name == "Asha" || f.Name == "Bilal" {
					t.Errorf("%s: rank 1 employee %s assigned floater duty", month.Month, f.Name)
				}
			}
		}
	}
}

func TestNoConsecutiveFloaterMonths(t *testing.T) {
	g := NewGenerator(5)
	g.Start = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

	sched, err := g.Generate(wardTeam(), 12)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	// 10 non-exempt members and 3 floater slots means the rotation
	// preference never needs to backfill here.
	if len(g.Shortfalls) != 0 {
		t.Fatalf("unexpected floater shortfalls: %+v", g.Shortfalls)
	}

	prev := make(map[string]bool)
	for _, month := range sched.Months {
		current := make(map[string]bool)
		for _, shift := range month.ShiftOrder {
			for _, f := range month.Shifts[shift].Floaters {
				current[f.Name] = true
				if prev[f.Name] {
					t.Errorf("%s: %s floated in consecutive months", month.Month, f.Name)
				}
			}
		}
		prev = current
	}
}

func TestFloaterShortfallRecorded(t *testing.T) {
	// 4 members, 3-shift, 1 per shift: 1 floater per month from a single
	// non-exempt candidate, so every month after the first is a backfill.
	cfg := Config{
		TeamName:       "Tiny",
		ShiftTemplate:  "3-shift",
		PeoplePerShift: 1,
		Members: []roster.Member{
			{ID: 1, Name: "Ana", Level: 1},
			{ID: 2, Name: "Ben", Level: 1},
			{ID: 3, Name: "Cleo", Level: 1},
			{ID: 4, Name: "Dov", Level: 2},
		},
	}

	g := NewGenerator(6)
	g.Start = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

	sched, err := g.Generate(cfg, 3)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(sched.Months) != 3 {
		t.Fatalf("got %d months, want 3", len(sched.Months))
	}
	if len(g.Shortfalls) != 2 {
		t.Fatalf("got %d shortfalls, want 2: %+v", len(g.Shortfalls), g.Shortfalls)
	}
	if g.Shortfalls[0].Month != "February 2025" || g.Shortfalls[0].Eligible != 0 {
		t.Errorf("unexpected first shortfall: %+v", g.Shortfalls[0])
	}
}

func TestFirstMonthPassesExemptionAndCoverage(t *testing.T) {
	// 12 employees over three ranks, 3-shift with 2 per shift: 6 fixed
	// and 6 floaters each month.
	members := []roster.Member{
		{ID: 1, Name: "Asha", Level: 2}, {ID: 2, Name: "Bea", Level: 2}, {ID: 3, Name: "Caleb", Level: 2},
		{ID: 4, Name: "Dara", Level: 4}, {ID: 5, Name: "Emil", Level: 4}, {ID: 6, Name: "Farah", Level: 4},
		{ID: 7, Name: "Gita", Level: 6}, {ID: 8, Name: "Hugo", Level: 6}, {ID: 9, Name: "Ines", Level: 6},
		{ID: 10, Name: "Jai", Level: 6}, {ID: 11, Name: "Kira", Level: 6}, {ID: 12, Name: "Luca", Level: 6},
	}
	cfg := Config{TeamName: "Ops", ShiftTemplate: "3-shift", PeoplePerShift: 2, Members: members}

	g := NewGenerator(9)
	g.Start = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

	sched, err := g.Generate(cfg, 1)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	r, err := roster.New(members)
	if err != nil {
		t.Fatalf("roster.New: %v", err)
	}

	report := validator.Validate(context.Background(), sched, r)
	for _, v := range report.Violations {
		if strings.HasPrefix(v, "Rule 2") || strings.HasPrefix(v, "Rule 4") {
			t.Errorf("first month violates exemption or coverage: %s", v)
		}
	}
}

func TestGenerateDeterministicForSeed(t *testing.T) {
	run := func() string {
		g := NewGenerator(42)
		g.Start = time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC)
		sched, err := g.Generate(wardTeam(), 6)
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		data, err := json.Marshal(sched)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		return string(data)
	}

	if first, second := run(), run(); first != second {
		t.Error("same seed produced different schedules")
	}
}

func TestGenerateConfigErrors(t *testing.T) {
	g := NewGenerator(7)

	if _, err := g.Generate(wardTeam(), 0); err == nil {
		t.Error("expected error for zero months")
	}

	bad := wardTeam()
	bad.ShiftTemplate = "2-shift"
	if _, err := g.Generate(bad, 3); err == nil {
		t.Error("expected error for unknown template")
	}

	small := wardTeam()
	small.Members = small.Members[:5]
	if _, err := g.Generate(small, 3); err == nil {
		t.Error("expected error for undersized roster")
	}

	empty := wardTeam()
	empty.Members = nil
	if _, err := g.Generate(empty, 3); err == nil {
		t.Error("expected error for empty roster")
	}
}
