package scheduler

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/arnavshah/roster-api-go/pkg/models"
	"github.com/arnavshah/roster-api-go/pkg/roster"
)

// How many reshuffled attempts to make before falling back to plain
// round-robin distribution for a month.
const maxAssignAttempts = 8

// Config describes one team to schedule.
type Config struct {
	TeamName       string
	ShiftTemplate  string
	PeoplePerShift int
	Members        []roster.Member
}

// FloaterShortfall records a month where the eligible floater pool was
// smaller than the required floater count, so the fairness preference had
// to be backfilled with last month's floaters.
type FloaterShortfall struct {
	Month    string `json:"month"`
	Needed   int    `json:"needed"`
	Eligible int    `json:"eligible"`
}

// Generator produces monthly shift assignments for a team. Randomness is
// seeded through the constructor so runs are reproducible.
type Generator struct {
	rng *rand.Rand

	// Start is the first simulated month; the zero value means the first
	// day of the current month.
	Start time.Time

	// Shortfalls accumulates fairness backfill events from the last
	// Generate call.
	Shortfalls []FloaterShortfall
}

// NewGenerator creates a generator with a seeded random source.
func NewGenerator(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// employeeState is the per-employee history carried across simulated months.
type employeeState struct {
	monthsSinceFloater  int
	currentShift        string
	monthsOnCurrent     int
	wasFloaterLastMonth bool
}

// Generate runs the monthly allocation loop and returns the schedule
// document. Configuration problems (empty roster, bad template, months < 1,
// too few members for the required coverage) return an error and no
// schedule.
func (g *Generator) Generate(cfg Config, months int) (models.Schedule, error) {
	if months < 1 {
		return models.Schedule{}, fmt.Errorf("months must be at least 1, got %d", months)
	}
	if cfg.PeoplePerShift < 1 {
		return models.Schedule{}, fmt.Errorf("people per shift must be at least 1, got %d", cfg.PeoplePerShift)
	}

	r, err := roster.New(cfg.Members)
	if err != nil {
		return models.Schedule{}, fmt.Errorf("team %q: %w", cfg.TeamName, err)
	}

	shifts, err := models.TemplateShifts(cfg.ShiftTemplate)
	if err != nil {
		return models.Schedule{}, fmt.Errorf("team %q: %w", cfg.TeamName, err)
	}

	required := len(shifts) * cfg.PeoplePerShift
	if len(r.Members) < required {
		return models.Schedule{}, fmt.Errorf(
			"team %q needs at least %d members for %s with %d people per shift, has %d",
			cfg.TeamName, required, cfg.ShiftTemplate, cfg.PeoplePerShift, len(r.Members))
	}

	states := make(map[string]*employeeState, len(r.Members))
	for _, m := range r.Members {
		// Start the floater counter high so everyone is equally due.
		states[m.Name] = &employeeState{monthsSinceFloater: 999}
	}

	start := g.Start
	if start.IsZero() {
		now := time.Now()
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	} else {
		start = time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	}

	g.Shortfalls = nil
	schedule := models.Schedule{Months: make([]models.MonthAssignments, 0, months)}

	for i := 0; i < months; i++ {
		label := start.AddDate(0, i, 0).Format(models.MonthLabelLayout)

		numFloaters := len(r.Members) - required
		floaters := g.pickFloaters(r, states, numFloaters, label)

		isFloater := make(map[string]bool, len(floaters))
		for _, f := range floaters {
			isFloater[f.Name] = true
		}
		for _, m := range r.Members {
			st := states[m.Name]
			st.wasFloaterLastMonth = isFloater[m.Name]
			if isFloater[m.Name] {
				st.monthsSinceFloater = 0
			} else {
				st.monthsSinceFloater++
			}
		}

		// Round-robin the floaters across the shift list.
		floaterMap := make(map[string][]roster.Member, len(shifts))
		for idx, f := range floaters {
			shift := shifts[idx%len(shifts)]
			floaterMap[shift] = append(floaterMap[shift], f)
		}

		pool := make([]roster.Member, 0, required)
		for _, m := range r.Members {
			if !isFloater[m.Name] {
				pool = append(pool, m)
			}
		}

		teams := g.assignFixed(r, states, pool, shifts, cfg.PeoplePerShift)

		for shift, team := range teams {
			for _, m := range team {
				st := states[m.Name]
				if st.currentShift == shift {
					st.monthsOnCurrent++
				} else {
					st.currentShift = shift
					st.monthsOnCurrent = 1
				}
			}
		}

		month := models.MonthAssignments{
			Month:      label,
			ShiftOrder: append([]string(nil), shifts...),
			Shifts:     make(map[string]models.ShiftAssignment, len(shifts)),
		}
		for _, shift := range shifts {
			sa := models.ShiftAssignment{
				AssignedStaff: make([]models.EmployeeRef, 0, cfg.PeoplePerShift),
				Floaters:      make([]models.EmployeeRef, 0, len(floaterMap[shift])),
			}
			for _, m := range teams[shift] {
				sa.AssignedStaff = append(sa.AssignedStaff, models.EmployeeRef{Name: m.Name, Designation: m.Designation})
			}
			for _, f := range floaterMap[shift] {
				sa.Floaters = append(sa.Floaters, models.EmployeeRef{Name: f.Name, Designation: f.Designation})
			}
			month.Shifts[shift] = sa
		}
		schedule.Months = append(schedule.Months, month)
	}

	return schedule, nil
}

// pickFloaters selects this month's floaters: rank 1 is exempt, last
// month's floaters are avoided when enough others exist, and the pool is
// ordered by longest time since floater duty with rank breaking ties.
func (g *Generator) pickFloaters(r *roster.Roster, states map[string]*employeeState, n int, month string) []roster.Member {
	if n <= 0 {
		return nil
	}

	var candidates []roster.Member
	for _, m := range r.Members {
		if !r.FloaterExempt(m) {
			candidates = append(candidates, m)
		}
	}

	eligible := make([]roster.Member, 0, len(candidates))
	for _, m := range candidates {
		if !states[m.Name].wasFloaterLastMonth {
			eligible = append(eligible, m)
		}
	}

	if len(eligible) < n {
		g.Shortfalls = append(g.Shortfalls, FloaterShortfall{Month: month, Needed: n, Eligible: len(eligible)})
		for _, m := range candidates {
			if len(eligible) >= n {
				break
			}
			if states[m.Name].wasFloaterLastMonth {
				eligible = append(eligible, m)
			}
		}
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		si, sj := states[eligible[i].Name].monthsSinceFloater, states[eligible[j].Name].monthsSinceFloater
		if si != sj {
			return si > sj
		}
		return r.RankOf(eligible[i]) < r.RankOf(eligible[j])
	})

	if n > len(eligible) {
		n = len(eligible)
	}
	return eligible[:n]
}

// assignFixed partitions the non-floater pool so each shift gets exactly
// peoplePerShift members, using a scored greedy pass with reshuffled
// retries. If no attempt passes the hierarchy-diversity check it degrades
// to deterministic round-robin rather than failing.
func (g *Generator) assignFixed(r *roster.Roster, states map[string]*employeeState, pool []roster.Member, shifts []string, peoplePerShift int) map[string][]roster.Member {
	for attempt := 0; attempt < maxAssignAttempts; attempt++ {
		shuffled := append([]roster.Member(nil), pool...)
		g.rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		teams := make(map[string][]roster.Member, len(shifts))
		for _, emp := range shuffled {
			best := ""
			bestScore := math.MinInt
			for _, shift := range shifts {
				if len(teams[shift]) >= peoplePerShift {
					continue
				}
				score := g.scoreAssignment(r, states[emp.Name], r.RankOf(emp), shift, teams[shift])
				if score > bestScore {
					best = shift
					bestScore = score
				}
			}
			teams[best] = append(teams[best], emp)
		}

		if g.diversityOK(r, teams) {
			return teams
		}
	}

	// Fallback: round-robin in roster (seniority) order, ignoring
	// stability and diversity. The pool size equals shifts × people per
	// shift, so this still yields exact coverage.
	teams := make(map[string][]roster.Member, len(shifts))
	for i, emp := range pool {
		shift := shifts[i%len(shifts)]
		teams[shift] = append(teams[shift], emp)
	}
	return teams
}

// scoreAssignment rates putting one employee on one shift this month.
func (g *Generator) scoreAssignment(r *roster.Roster, st *employeeState, rank int, shift string, team []roster.Member) int {
	// Favor emptier shifts for balance.
	score := -10 * len(team)

	limit := roster.StabilityMonths(rank)
	if st.currentShift == shift {
		if st.monthsOnCurrent >= limit {
			// Rotation due: juniors every month, seniors past their
			// stability window.
			score -= 1000
		} else {
			// Inside the stability window seniors keep their shift.
			score += 200
		}
	}

	rankPresent := false
	for _, m := range team {
		if r.RankOf(m) == rank {
			rankPresent = true
			break
		}
	}
	if !rankPresent {
		score += 50
	}

	return score
}

// diversityOK rejects assignments where a multi-member shift ended up
// single-rank while the team has more than one rank.
func (g *Generator) diversityOK(r *roster.Roster, teams map[string][]roster.Member) bool {
	if r.RankCount() < 2 {
		return true
	}
	for _, team := range teams {
		if len(team) < 2 {
			continue
		}
		first := r.RankOf(team[0])
		mixed := false
		for _, m := range team[1:] {
			if r.RankOf(m) != first {
				mixed = true
				break
			}
		}
		if !mixed {
			return false
		}
	}
	return true
}
