// Package repairer proposes minimal reassignments to clear core rule
// violations (stability, floater exemption, floater rotation) from a
// persisted schedule, then re-validates to prove the edit set is a net
// improvement. A repair that cannot improve the schedule is a reported
// no-op, never an error.
package repairer

import (
	"context"
	"fmt"

	"github.com/arnavshah/roster-api-go/pkg/models"
	"github.com/arnavshah/roster-api-go/pkg/roster"
	"github.com/arnavshah/roster-api-go/pkg/validator"
)

// Repair attempts to fix the given violations on the schedule. Only core
// violations are targeted; coverage and diversity findings pass through
// untouched. The returned report always carries a usable schedule: the
// repaired one on acceptance, the original otherwise.
func Repair(ctx context.Context, sched models.Schedule, violations []string, r *roster.Roster) models.RepairReport {
	core := make([]string, 0, len(violations))
	for _, v := range violations {
		if validator.IsCoreViolation(v) {
			core = append(core, v)
		}
	}

	if len(core) == 0 {
		return models.RepairReport{
			Schedule:            sched,
			ChangesMade:         []models.Change{},
			ViolationsFixed:     []string{},
			ViolationsRemaining: append([]string{}, violations...),
			Success:             true,
			Message:             "no core violations to repair",
		}
	}

	noop := func(message string) models.RepairReport {
		return models.RepairReport{
			Schedule:            sched,
			ChangesMade:         []models.Change{},
			ViolationsFixed:     []string{},
			ViolationsRemaining: append([]string{}, core...),
			Success:             true,
			Message:             message,
		}
	}

	// Re-derive the structured view and target only the violations the
	// caller actually asked about; stale strings are left for the
	// re-validation pass to classify.
	analyzed, _ := validator.Analyze(ctx, sched, r)
	asked := make(map[string]bool, len(core))
	for _, v := range core {
		asked[v] = true
	}
	var targets []validator.Violation
	for _, v := range analyzed {
		if validator.CoreRule(v.Rule) && asked[v.Text] {
			targets = append(targets, v)
		}
	}
	if len(targets) == 0 {
		return noop("given violations no longer present in the schedule")
	}

	candidate := sched.Clone()
	fixer := &fixer{schedule: &candidate, roster: r}

	for _, target := range targets {
		if ctx.Err() != nil {
			return noop(fmt.Sprintf("repair stopped early (%v); schedule unchanged", ctx.Err()))
		}
		switch target.Rule {
		case validator.RuleStability:
			fixer.fixStability(target)
		case validator.RuleFloaterExemption:
			fixer.fixFloaterSwap(target, target.Months[0])
		case validator.RuleFloaterRotation:
			// Break the pair at its second month.
			fixer.fixFloaterSwap(target, target.Months[len(target.Months)-1])
		}
	}

	if len(fixer.changes) == 0 {
		return noop("no safe reassignments found; schedule unchanged")
	}

	reValidated, _ := validator.Analyze(ctx, candidate, r)
	var newCore []string
	for _, v := range reValidated {
		if validator.CoreRule(v.Rule) {
			newCore = append(newCore, v.Text)
		}
	}

	if len(newCore) > len(core) {
		return noop("proposed repair would increase core violations; schedule unchanged")
	}

	remainingSet := make(map[string]bool, len(newCore))
	for _, v := range newCore {
		remainingSet[v] = true
	}
	fixed := make([]string, 0, len(core))
	for _, v := range core {
		if !remainingSet[v] {
			fixed = append(fixed, v)
		}
	}
	if newCore == nil {
		newCore = []string{}
	}

	return models.RepairReport{
		Schedule:            candidate,
		ChangesMade:         fixer.changes,
		ViolationsFixed:     fixed,
		ViolationsRemaining: newCore,
		Success:             true,
		Message: fmt.Sprintf("resolved %d of %d core violations with %d reassignments",
			len(fixed), len(core), len(fixer.changes)),
	}
}

// fixer mutates a candidate schedule in place and logs each edit.
type fixer struct {
	schedule *models.Schedule
	roster   *roster.Roster
	changes  []models.Change
}

func (f *fixer) monthIndex(label string) int {
	for i, m := range f.schedule.Months {
		if m.Month == label {
			return i
		}
	}
	return -1
}

// assignedShift returns the shift an employee is fixed-assigned to in a
// month, or "" when absent or floating. Out-of-range indexes are absent.
func (f *fixer) assignedShift(idx int, name string) string {
	if idx < 0 || idx >= len(f.schedule.Months) {
		return ""
	}
	month := f.schedule.Months[idx]
	for _, shift := range month.ShiftOrder {
		for _, ref := range month.Shifts[shift].AssignedStaff {
			if ref.Name == name {
				return shift
			}
		}
	}
	return ""
}

func (f *fixer) isFloater(idx int, name string) bool {
	if idx < 0 || idx >= len(f.schedule.Months) {
		return false
	}
	month := f.schedule.Months[idx]
	for _, shift := range month.ShiftOrder {
		for _, ref := range month.Shifts[shift].Floaters {
			if ref.Name == name {
				return true
			}
		}
	}
	return false
}

func removeRef(refs []models.EmployeeRef, name string) ([]models.EmployeeRef, models.EmployeeRef, bool) {
	for i, ref := range refs {
		if ref.Name == name {
			return append(refs[:i:i], refs[i+1:]...), ref, true
		}
	}
	return refs, models.EmployeeRef{}, false
}

// fixStability breaks an over-long assigned run by swapping the employee
// into another shift at each month past the allowed window.
func (f *fixer) fixStability(v validator.Violation) {
	member, ok := f.roster.Lookup(v.Employee)
	if !ok || len(v.Months) == 0 {
		return
	}
	limit := roster.StabilityMonths(f.roster.RankOf(member))

	start := f.monthIndex(v.Months[0])
	end := f.monthIndex(v.Months[len(v.Months)-1])
	if start < 0 || end < 0 {
		return
	}

	for k := start + limit; k <= end; k += limit + 1 {
		f.swapAssigned(k, v.Employee, v.Shift)
	}
}

// swapAssigned exchanges the fixed shifts of the named employee (currently
// on fromShift) and a safe partner on a different shift in month idx.
func (f *fixer) swapAssigned(idx int, name, fromShift string) {
	month := f.schedule.Months[idx]

	for _, toShift := range month.ShiftOrder {
		if toShift == fromShift {
			continue
		}
		// The employee must not be returning to a shift they hold in an
		// adjacent month, or the move just relocates the run.
		if f.assignedShift(idx-1, name) == toShift || f.assignedShift(idx+1, name) == toShift {
			continue
		}
		for _, partner := range month.Shifts[toShift].AssignedStaff {
			if f.assignedShift(idx-1, partner.Name) == fromShift || f.assignedShift(idx+1, partner.Name) == fromShift {
				continue
			}

			fromSA := month.Shifts[fromShift]
			toSA := month.Shifts[toShift]
			var moved, swapped models.EmployeeRef
			var ok bool
			if fromSA.AssignedStaff, moved, ok = removeRef(fromSA.AssignedStaff, name); !ok {
				return
			}
			toSA.AssignedStaff, swapped, _ = removeRef(toSA.AssignedStaff, partner.Name)
			fromSA.AssignedStaff = append(fromSA.AssignedStaff, swapped)
			toSA.AssignedStaff = append(toSA.AssignedStaff, moved)
			month.Shifts[fromShift] = fromSA
			month.Shifts[toShift] = toSA

			f.changes = append(f.changes, models.Change{
				Employee:    name,
				Month:       month.Month,
				Action:      models.ChangeSwap,
				FromShift:   fromShift,
				ToShift:     toShift,
				FromRole:    validator.RoleAssigned,
				ToRole:      validator.RoleAssigned,
				SwappedWith: partner.Name,
			})
			return
		}
	}
}

// fixFloaterSwap trades a floater slot for a fixed slot in the given
// month. It serves both the exemption rule (a rank-1 employee must leave
// floater duty) and the rotation rule (a repeat floater must become fixed
// staff); the incoming floater is always a non-exempt employee who did not
// float in the surrounding months.
func (f *fixer) fixFloaterSwap(v validator.Violation, monthLabel string) {
	idx := f.monthIndex(monthLabel)
	if idx < 0 {
		return
	}
	month := f.schedule.Months[idx]

	// Locate the employee's floater slot.
	floatShift := ""
	for _, shift := range month.ShiftOrder {
		for _, ref := range month.Shifts[shift].Floaters {
			if ref.Name == v.Employee {
				floatShift = shift
				break
			}
		}
		if floatShift != "" {
			break
		}
	}
	if floatShift == "" {
		return
	}

	for _, shift := range month.ShiftOrder {
		for _, partner := range month.Shifts[shift].AssignedStaff {
			pm, ok := f.roster.Lookup(partner.Name)
			if !ok || f.roster.FloaterExempt(pm) {
				continue
			}
			if f.isFloater(idx-1, partner.Name) || f.isFloater(idx+1, partner.Name) {
				continue
			}
			// Keep the mover off a shift they hold next door, so the
			// swap does not seed a fresh stability run.
			if f.assignedShift(idx-1, v.Employee) == shift || f.assignedShift(idx+1, v.Employee) == shift {
				continue
			}

			var mover, swapped models.EmployeeRef
			var ok2 bool
			if shift == floatShift {
				// Role swap inside a single shift record.
				sa := month.Shifts[shift]
				if sa.Floaters, mover, ok2 = removeRef(sa.Floaters, v.Employee); !ok2 {
					return
				}
				sa.AssignedStaff, swapped, _ = removeRef(sa.AssignedStaff, partner.Name)
				sa.AssignedStaff = append(sa.AssignedStaff, mover)
				sa.Floaters = append(sa.Floaters, swapped)
				month.Shifts[shift] = sa
			} else {
				floatSA := month.Shifts[floatShift]
				fixedSA := month.Shifts[shift]
				if floatSA.Floaters, mover, ok2 = removeRef(floatSA.Floaters, v.Employee); !ok2 {
					return
				}
				fixedSA.AssignedStaff, swapped, _ = removeRef(fixedSA.AssignedStaff, partner.Name)
				fixedSA.AssignedStaff = append(fixedSA.AssignedStaff, mover)
				floatSA.Floaters = append(floatSA.Floaters, swapped)
				month.Shifts[floatShift] = floatSA
				month.Shifts[shift] = fixedSA
			}

			f.changes = append(f.changes, models.Change{
				Employee:    v.Employee,
				Month:       month.Month,
				Action:      models.ChangeSwap,
				FromShift:   floatShift,
				ToShift:     shift,
				FromRole:    validator.RoleFloater,
				ToRole:      validator.RoleAssigned,
				SwappedWith: partner.Name,
			})
			return
		}
	}
}
