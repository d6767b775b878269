package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// ShiftCatalog is the full set of recognized shift names in canonical order.
var ShiftCatalog = []string{"Early Morning", "Morning", "Afternoon", "Evening", "Night"}

// ShiftTemplates maps a template name to the subset of the catalog it uses.
var ShiftTemplates = map[string][]string{
	"3-shift": {"Morning", "Afternoon", "Night"},
	"4-shift": {"Morning", "Afternoon", "Evening", "Night"},
	"5-shift": {"Early Morning", "Morning", "Afternoon", "Evening", "Night"},
}

// MonthLabelLayout is the time layout for month keys, e.g. "March 2025".
const MonthLabelLayout = "January 2006"

// TemplateShifts returns the shift list for a template in catalog order.
func TemplateShifts(template string) ([]string, error) {
	shifts, ok := ShiftTemplates[template]
	if !ok || len(shifts) == 0 {
		return nil, fmt.Errorf("unrecognized shift template %q", template)
	}
	ordered := make([]string, 0, len(shifts))
	for _, name := range ShiftCatalog {
		for _, s := range shifts {
			if s == name {
				ordered = append(ordered, name)
			}
		}
	}
	return ordered, nil
}

func catalogIndex(shift string) int {
	for i, name := range ShiftCatalog {
		if name == shift {
			return i
		}
	}
	return -1
}

// EmployeeRef identifies an employee inside a schedule document.
type EmployeeRef struct {
	Name        string `json:"name"`
	Designation string `json:"designation"`
}

// ShiftAssignment is one shift's staffing for one month.
type ShiftAssignment struct {
	AssignedStaff []EmployeeRef `json:"assigned_staff"`
	Floaters      []EmployeeRef `json:"floaters"`
}

// MonthAssignments holds every shift of a single month. ShiftOrder keeps the
// canonical emission order; Shifts is keyed by shift name.
type MonthAssignments struct {
	Month      string
	ShiftOrder []string
	Shifts     map[string]ShiftAssignment
}

// Schedule is the persisted artifact: months in calendar order, each mapping
// shift name to its staffing. It marshals to the wire shape
// {"March 2025": {"Morning": {"assigned_staff": [...], "floaters": [...]}}}.
type Schedule struct {
	Months []MonthAssignments
}

// IsEmpty reports whether the schedule carries no months.
func (s Schedule) IsEmpty() bool {
	return len(s.Months) == 0
}

// Clone returns a deep copy, so repairs never mutate the caller's document.
func (s Schedule) Clone() Schedule {
	out := Schedule{Months: make([]MonthAssignments, len(s.Months))}
	for i, m := range s.Months {
		cm := MonthAssignments{
			Month:      m.Month,
			ShiftOrder: append([]string(nil), m.ShiftOrder...),
			Shifts:     make(map[string]ShiftAssignment, len(m.Shifts)),
		}
		for name, sa := range m.Shifts {
			cm.Shifts[name] = ShiftAssignment{
				AssignedStaff: append([]EmployeeRef(nil), sa.AssignedStaff...),
				Floaters:      append([]EmployeeRef(nil), sa.Floaters...),
			}
		}
		out.Months[i] = cm
	}
	return out
}

// MarshalJSON writes months and shifts as ordered JSON object keys. The
// stdlib encoder sorts map keys, which would scramble the month order, so
// the object is assembled by hand.
func (s Schedule) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range s.Months {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(m.Month)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteByte('{')
		for j, shift := range m.ShiftOrder {
			if j > 0 {
				buf.WriteByte(',')
			}
			sk, err := json.Marshal(shift)
			if err != nil {
				return nil, err
			}
			sa := m.Shifts[shift]
			if sa.AssignedStaff == nil {
				sa.AssignedStaff = []EmployeeRef{}
			}
			if sa.Floaters == nil {
				sa.Floaters = []EmployeeRef{}
			}
			sv, err := json.Marshal(sa)
			if err != nil {
				return nil, err
			}
			buf.Write(sk)
			buf.WriteByte(':')
			buf.Write(sv)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON parses the wire shape back into typed records. JSON objects
// carry no order, so months are re-ordered by their parsed label and shifts
// by catalog position.
func (s *Schedule) UnmarshalJSON(data []byte) error {
	var raw map[string]map[string]ShiftAssignment
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ScheduleFromMap(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ScheduleFromMap builds an ordered Schedule from a decoded document,
// validating month labels and shift names at the ingestion boundary.
func ScheduleFromMap(raw map[string]map[string]ShiftAssignment) (Schedule, error) {
	type monthKey struct {
		label string
		date  time.Time
	}
	keys := make([]monthKey, 0, len(raw))
	for label := range raw {
		date, err := time.Parse(MonthLabelLayout, label)
		if err != nil {
			return Schedule{}, fmt.Errorf("invalid month label %q: %w", label, err)
		}
		keys = append(keys, monthKey{label: label, date: date})
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].date.Before(keys[j].date) })

	out := Schedule{Months: make([]MonthAssignments, 0, len(keys))}
	for _, k := range keys {
		shifts := raw[k.label]
		order := make([]string, 0, len(shifts))
		for name := range shifts {
			if catalogIndex(name) < 0 {
				return Schedule{}, fmt.Errorf("month %q has unknown shift %q", k.label, name)
			}
			order = append(order, name)
		}
		sort.Slice(order, func(i, j int) bool {
			return catalogIndex(order[i]) < catalogIndex(order[j])
		})
		out.Months = append(out.Months, MonthAssignments{
			Month:      k.label,
			ShiftOrder: order,
			Shifts:     shifts,
		})
	}
	return out, nil
}

// ParseSchedule decodes and validates a persisted schedule document.
func ParseSchedule(data []byte) (Schedule, error) {
	var s Schedule
	if err := json.Unmarshal(data, &s); err != nil {
		return Schedule{}, err
	}
	return s, nil
}

// ValidationReport is the programmatic validator's output.
type ValidationReport struct {
	IsValid         bool     `json:"is_valid"`
	Violations      []string `json:"violations"`
	ValidationNotes string   `json:"validation_notes"`
}

// ChangeAction labels a single repair edit.
type ChangeAction string

const (
	ChangeMove ChangeAction = "move"
	ChangeSwap ChangeAction = "swap"
)

// Change records one employee reassignment made by the repairer.
type Change struct {
	Employee    string       `json:"employee"`
	Month       string       `json:"month"`
	Action      ChangeAction `json:"action"`
	FromShift   string       `json:"from_shift"`
	ToShift     string       `json:"to_shift"`
	FromRole    string       `json:"from_role"`
	ToRole      string       `json:"to_role"`
	SwappedWith string       `json:"swapped_with,omitempty"`
}

// RepairReport is the repairer's output.
type RepairReport struct {
	Schedule            Schedule `json:"schedule"`
	ChangesMade         []Change `json:"changes_made"`
	ViolationsFixed     []string `json:"violations_fixed"`
	ViolationsRemaining []string `json:"violations_remaining"`
	Success             bool     `json:"success"`
	Message             string   `json:"message"`
}

// ExportRow is one line of the flat tabular projection of a schedule.
type ExportRow struct {
	Team        string `json:"team"`
	Month       string `json:"month"`
	Shift       string `json:"shift"`
	Employee    string `json:"employee"`
	Designation string `json:"designation"`
	Role        string `json:"role"`
}
