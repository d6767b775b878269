package roster

import "testing"

func TestRelativeRanks(t *testing.T) {
	// Levels 3, 5, 9 are company-wide; the team sees them as ranks 1-3.
	members := []Member{
		{ID: 1, Name: "Asha", Designation: "Senior Engineer", Level: 3},
		{ID: 2, Name: "Bilal", Designation: "Engineer", Level: 5},
		{ID: 3, Name: "Chen", Designation: "Engineer", Level: 5},
		{ID: 4, Name: "Dara", Designation: "Associate", Level: 9},
	}

	r, err := New(members)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if got := r.RankCount(); got != 3 {
		t.Errorf("RankCount = %d, want 3", got)
	}
	if got := r.Rank(3); got != 1 {
		t.Errorf("Rank(3) = %d, want 1", got)
	}
	if got := r.Rank(5); got != 2 {
		t.Errorf("Rank(5) = %d, want 2", got)
	}
	if got := r.Rank(9); got != 3 {
		t.Errorf("Rank(9) = %d, want 3", got)
	}
	if got := r.Rank(4); got != 0 {
		t.Errorf("Rank(4) = %d for absent level, want 0", got)
	}
}

func TestMembersSortedBySeniority(t *testing.T) {
	members := []Member{
		{ID: 2, Name: "Zoe", Level: 7},
		{ID: 1, Name: "Ana", Level: 2},
		{ID: 3, Name: "Ben", Level: 7},
	}

	r, err := New(members)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	want := []string{"Ana", "Ben", "Zoe"}
	for i, name := range want {
		if r.Members[i].Name != name {
			t.Errorf("Members[%d] = %s, want %s", i, r.Members[i].Name, name)
		}
	}
}

func TestEmptyRoster(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Error("expected error for empty roster")
	}
}

func TestStabilityMonths(t *testing.T) {
	cases := []struct {
		rank, want int
	}{
		{1, 3},
		{2, 2},
		{3, 1},
		{7, 1},
	}
	for _, c := range cases {
		if got := StabilityMonths(c.rank); got != c.want {
			t.Errorf("StabilityMonths(%d) = %d, want %d", c.rank, got, c.want)
		}
	}
}

func TestFloaterExemption(t *testing.T) {
	members := []Member{
		{ID: 1, Name: "Asha", Level: 3},
		{ID: 2, Name: "Bilal", Level: 5},
	}
	r, err := New(members)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	senior, _ := r.Lookup("Asha")
	junior, _ := r.Lookup("Bilal")

	if !r.FloaterExempt(senior) {
		t.Error("rank 1 member should be floater exempt")
	}
	if r.FloaterExempt(junior) {
		t.Error("rank 2 member should not be floater exempt")
	}
}

func TestSingleLevelTeam(t *testing.T) {
	// Everyone at the same level means everyone is rank 1 and exempt.
	members := []Member{
		{ID: 1, Name: "Ana", Level: 4},
		{ID: 2, Name: "Ben", Level: 4},
	}
	r, err := New(members)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := r.RankCount(); got != 1 {
		t.Errorf("RankCount = %d, want 1", got)
	}
	for _, m := range r.Members {
		if !r.FloaterExempt(m) {
			t.Errorf("%s should be exempt in a single-level team", m.Name)
		}
	}
}
