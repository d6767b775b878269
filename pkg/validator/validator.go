// Package validator replays a persisted schedule against the scheduling
// rules and reports violations. It never mutates the schedule and never
// fails hard: malformed input becomes a single format violation.
package validator

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/arnavshah/roster-api-go/pkg/models"
	"github.com/arnavshah/roster-api-go/pkg/roster"
)

// Rule numbers, kept aligned with the original rules text so violation
// strings stay meaningful to operators.
const (
	RuleStability        = 1
	RuleFloaterExemption = 2
	RuleFloaterRotation  = 3
	RuleCoverage         = 4
	RuleDiversity        = 5
)

// Roles an employee can hold in a month.
const (
	RoleAssigned = "assigned"
	RoleFloater  = "floater"
)

// Violation is the structured form of one rule breach. Reports carry its
// Text; the repairer works from the structured fields.
type Violation struct {
	Rule     int
	Employee string
	Shift    string
	Months   []string
	Text     string
}

// CoreRule reports whether a rule is repair-eligible (stability, floater
// exemption, floater rotation). Coverage and diversity are validation-only.
func CoreRule(rule int) bool {
	return rule == RuleStability || rule == RuleFloaterExemption || rule == RuleFloaterRotation
}

// IsCoreViolation matches a violation string against the core rule prefixes.
func IsCoreViolation(s string) bool {
	return strings.HasPrefix(s, "Rule 1") || strings.HasPrefix(s, "Rule 2") || strings.HasPrefix(s, "Rule 3")
}

// slot is one employee's role in one month.
type slot struct {
	role  string
	shift string
}

// timeline holds role/shift per employee per month position.
type timeline struct {
	months  []string
	entries map[string]map[int]slot
	unknown []string
}

func buildTimeline(sched models.Schedule, r *roster.Roster) timeline {
	tl := timeline{
		months:  make([]string, 0, len(sched.Months)),
		entries: make(map[string]map[int]slot),
	}
	seenUnknown := make(map[string]bool)

	for idx, month := range sched.Months {
		tl.months = append(tl.months, month.Month)
		for _, shift := range month.ShiftOrder {
			sa := month.Shifts[shift]
			for _, ref := range sa.AssignedStaff {
				tl.record(r, seenUnknown, ref.Name, idx, slot{role: RoleAssigned, shift: shift})
			}
			for _, ref := range sa.Floaters {
				tl.record(r, seenUnknown, ref.Name, idx, slot{role: RoleFloater, shift: shift})
			}
		}
	}
	sort.Strings(tl.unknown)
	return tl
}

func (tl *timeline) record(r *roster.Roster, seenUnknown map[string]bool, name string, monthIdx int, s slot) {
	if _, ok := r.Lookup(name); !ok {
		if !seenUnknown[name] {
			seenUnknown[name] = true
			tl.unknown = append(tl.unknown, name)
		}
		return
	}
	if tl.entries[name] == nil {
		tl.entries[name] = make(map[int]slot)
	}
	tl.entries[name][monthIdx] = s
}

// Validate runs every rule check and assembles the report. On context
// expiry it returns the violations found so far with an explanatory note.
func Validate(ctx context.Context, sched models.Schedule, r *roster.Roster) models.ValidationReport {
	violations, notes := Analyze(ctx, sched, r)
	texts := make([]string, 0, len(violations))
	for _, v := range violations {
		texts = append(texts, v.Text)
	}
	return models.ValidationReport{
		IsValid:         len(texts) == 0,
		Violations:      texts,
		ValidationNotes: notes,
	}
}

// ValidateRaw parses a persisted document first; a parse failure yields a
// single format violation instead of an error.
func ValidateRaw(ctx context.Context, raw []byte, r *roster.Roster) models.ValidationReport {
	sched, err := models.ParseSchedule(raw)
	if err != nil {
		return models.ValidationReport{
			IsValid:         false,
			Violations:      []string{fmt.Sprintf("schedule format error: %v", err)},
			ValidationNotes: "document could not be parsed; rule checks skipped",
		}
	}
	return Validate(ctx, sched, r)
}

// Analyze is the structured entry point used by both Validate and the
// repairer.
func Analyze(ctx context.Context, sched models.Schedule, r *roster.Roster) ([]Violation, string) {
	tl := buildTimeline(sched, r)

	if len(tl.unknown) > 0 {
		v := Violation{
			Rule: 0,
			Text: fmt.Sprintf("schedule format error: employees not on the roster: %s", strings.Join(tl.unknown, ", ")),
		}
		return []Violation{v}, "schedule references employees outside the team; rule checks skipped"
	}

	var violations []Violation
	checks := []func() []Violation{
		func() []Violation { return checkStability(tl, r) },
		func() []Violation { return checkFloaterExemption(tl, r) },
		func() []Violation { return checkFloaterRotation(tl, r) },
		func() []Violation { return checkCoverage(sched) },
		func() []Violation { return checkDiversity(sched, r) },
	}
	for _, check := range checks {
		if ctx.Err() != nil {
			return violations, fmt.Sprintf("validation stopped early (%v); reporting violations found so far", ctx.Err())
		}
		violations = append(violations, check()...)
	}

	notes := fmt.Sprintf("programmatic validation of %d months across %d employees", len(tl.months), len(r.Members))
	return violations, notes
}

// checkStability finds maximal consecutive assigned runs on one shift and
// emits one violation per run that exceeds the employee's rank limit.
func checkStability(tl timeline, r *roster.Roster) []Violation {
	var out []Violation
	for _, m := range r.Members {
		entries := tl.entries[m.Name]
		rank := r.RankOf(m)
		limit := roster.StabilityMonths(rank)

		runShift := ""
		runStart := -1
		runLen := 0
		flush := func(end int) {
			if runLen > limit {
				out = append(out, Violation{
					Rule:     RuleStability,
					Employee: m.Name,
					Shift:    runShift,
					Months:   append([]string(nil), tl.months[runStart:end+1]...),
					Text: fmt.Sprintf(
						"Rule 1 (shift stability): %s stayed on %s from %s to %s (%d consecutive months, limit %d for rank %d)",
						m.Name, runShift, tl.months[runStart], tl.months[end], runLen, limit, rank),
				})
			}
			runShift, runStart, runLen = "", -1, 0
		}

		for i := range tl.months {
			e, ok := entries[i]
			if !ok || e.role != RoleAssigned {
				flush(i - 1)
				continue
			}
			if e.shift == runShift {
				runLen++
				continue
			}
			flush(i - 1)
			runShift, runStart, runLen = e.shift, i, 1
		}
		flush(len(tl.months) - 1)
	}
	return out
}

// checkFloaterExemption flags every month a rank-1 employee floats.
func checkFloaterExemption(tl timeline, r *roster.Roster) []Violation {
	var out []Violation
	for _, m := range r.Members {
		if r.RankOf(m) != roster.FloaterExemptRank {
			continue
		}
		entries := tl.entries[m.Name]
		for i, month := range tl.months {
			if e, ok := entries[i]; ok && e.role == RoleFloater {
				out = append(out, Violation{
					Rule:     RuleFloaterExemption,
					Employee: m.Name,
					Shift:    e.shift,
					Months:   []string{month},
					Text: fmt.Sprintf(
						"Rule 2 (floater exemption): %s (rank 1) was assigned floater duty in %s",
						m.Name, month),
				})
			}
		}
	}
	return out
}

// checkFloaterRotation reports the first adjacent floater pair found per
// employee; adjacency is by position in the month sequence.
func checkFloaterRotation(tl timeline, r *roster.Roster) []Violation {
	var out []Violation
	for _, m := range r.Members {
		entries := tl.entries[m.Name]
		for i := 0; i+1 < len(tl.months); i++ {
			a, okA := entries[i]
			b, okB := entries[i+1]
			if okA && okB && a.role == RoleFloater && b.role == RoleFloater {
				out = append(out, Violation{
					Rule:     RuleFloaterRotation,
					Employee: m.Name,
					Shift:    b.shift,
					Months:   []string{tl.months[i], tl.months[i+1]},
					Text: fmt.Sprintf(
						"Rule 3 (floater rotation): %s floated in consecutive months %s and %s",
						m.Name, tl.months[i], tl.months[i+1]),
				})
				break
			}
		}
	}
	return out
}

// checkCoverage infers people-per-shift from the first non-empty shift
// observed and flags every shift/month that deviates from it, empty shifts
// included.
func checkCoverage(sched models.Schedule) []Violation {
	expected := 0
	for _, month := range sched.Months {
		for _, shift := range month.ShiftOrder {
			if n := len(month.Shifts[shift].AssignedStaff); n > 0 {
				expected = n
				break
			}
		}
		if expected > 0 {
			break
		}
	}
	if expected == 0 {
		return nil
	}

	var out []Violation
	for _, month := range sched.Months {
		for _, shift := range month.ShiftOrder {
			if n := len(month.Shifts[shift].AssignedStaff); n != expected {
				out = append(out, Violation{
					Rule:   RuleCoverage,
					Shift:  shift,
					Months: []string{month.Month},
					Text: fmt.Sprintf(
						"Rule 4 (coverage): %s in %s has %d assigned staff, expected %d",
						shift, month.Month, n, expected),
				})
			}
		}
	}
	return out
}

// checkDiversity flags multi-member shifts staffed by a single rank when
// the team spans more than one rank.
func checkDiversity(sched models.Schedule, r *roster.Roster) []Violation {
	if r.RankCount() < 2 {
		return nil
	}

	var out []Violation
	for _, month := range sched.Months {
		for _, shift := range month.ShiftOrder {
			staff := month.Shifts[shift].AssignedStaff
			if len(staff) < 2 {
				continue
			}
			ranks := make(map[int]bool)
			for _, ref := range staff {
				if m, ok := r.Lookup(ref.Name); ok {
					ranks[r.RankOf(m)] = true
				}
			}
			if len(ranks) != 1 {
				continue
			}
			soleRank := 0
			for rank := range ranks {
				soleRank = rank
			}
			out = append(out, Violation{
				Rule:   RuleDiversity,
				Shift:  shift,
				Months: []string{month.Month},
				Text: fmt.Sprintf(
					"Rule 5 (mixed hierarchy): %s in %s is staffed entirely by rank %d",
					shift, month.Month, soleRank),
			})
		}
	}
	return out
}
