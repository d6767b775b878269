// Package roster normalizes a team's membership into the seniority-ranked
// structure every scheduling component works from. Ranks are team-relative:
// rank 1 is the most senior hierarchy level actually present in the team,
// regardless of the company-wide numbering.
package roster

import (
	"errors"
	"sort"
)

// FloaterExemptRank is the rank that can never be assigned floater duty.
const FloaterExemptRank = 1

// Member is one employee as the scheduler sees them. Level is the absolute
// company-wide hierarchy level (lower = more senior).
type Member struct {
	ID          uint
	Name        string
	Designation string
	Level       int
}

// Roster is an immutable, rank-annotated view of a team's membership.
type Roster struct {
	// Members sorted by absolute level ascending, ties by name then ID so
	// the ordering is stable for a fixed membership.
	Members []Member

	levels []int
	rank   map[int]int
	byName map[string]Member
}

// New builds a Roster from a team's members. It fails on an empty roster.
func New(members []Member) (*Roster, error) {
	if len(members) == 0 {
		return nil, errors.New("roster is empty")
	}

	sorted := append([]Member(nil), members...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Level != sorted[j].Level {
			return sorted[i].Level < sorted[j].Level
		}
		if sorted[i].Name != sorted[j].Name {
			return sorted[i].Name < sorted[j].Name
		}
		return sorted[i].ID < sorted[j].ID
	})

	seen := make(map[int]bool)
	var levels []int
	for _, m := range sorted {
		if !seen[m.Level] {
			seen[m.Level] = true
			levels = append(levels, m.Level)
		}
	}
	sort.Ints(levels)

	rank := make(map[int]int, len(levels))
	for i, level := range levels {
		rank[level] = i + 1
	}

	byName := make(map[string]Member, len(sorted))
	for _, m := range sorted {
		byName[m.Name] = m
	}

	return &Roster{Members: sorted, levels: levels, rank: rank, byName: byName}, nil
}

// Levels returns the distinct absolute seniority levels present, ascending.
func (r *Roster) Levels() []int {
	return append([]int(nil), r.levels...)
}

// RankCount returns how many distinct ranks the team has.
func (r *Roster) RankCount() int {
	return len(r.levels)
}

// Rank maps an absolute level to its team-relative rank (1-based). Levels
// not present in the team map to 0.
func (r *Roster) Rank(level int) int {
	return r.rank[level]
}

// RankOf returns a member's team-relative rank.
func (r *Roster) RankOf(m Member) int {
	return r.rank[m.Level]
}

// StabilityMonths is the maximum consecutive months a rank may stay on one
// shift: rank 1 keeps a shift for 3 months, rank 2 for 2, everyone junior
// rotates monthly.
func StabilityMonths(rank int) int {
	switch rank {
	case 1:
		return 3
	case 2:
		return 2
	default:
		return 1
	}
}

// FloaterExempt reports whether a member may never float.
func (r *Roster) FloaterExempt(m Member) bool {
	return r.RankOf(m) == FloaterExemptRank
}

// Lookup finds a member by name, the identity employees carry inside a
// schedule document.
func (r *Roster) Lookup(name string) (Member, bool) {
	m, ok := r.byName[name]
	return m, ok
}
