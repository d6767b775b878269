package oracle

// DefaultRulesText is the written form of the scheduling rules sent to the
// oracle alongside a schedule document.
const DefaultRulesText = `SHIFT SCHEDULING RULES FOR VALIDATION:

RULE 1 - TIERED SHIFT STABILITY (Seniority Privilege):
- Rank 1 (most senior): Can stay on same shift for up to 3 consecutive months
- Rank 2 (middle): Can stay on same shift for up to 2 consecutive months
- Rank 3+ (junior): Must rotate shifts every month (no stability)

RULE 2 - FLOATER EXEMPTION:
- Rank 1 employees (highest seniority) CANNOT be assigned as floaters
- Only rank 2 and below employees can be floaters
- Floaters are backup staff who cover for absent team members

RULE 3 - FAIR FLOATER ROTATION:
- No employee can be a floater in consecutive months
- If an employee is a floater in one month, they must be fixed staff the next

RULE 4 - COVERAGE:
- Every shift must have exactly the configured number of assigned staff

RULE 5 - MIXED-HIERARCHY COMPOSITION:
- Each shift team should contain employees from different ranks when possible
- Avoid concentrating all senior or all junior employees on one shift

FLOATER CALCULATION:
- Total floaters = Total team members - (Number of shifts x People per shift)
- If the result is 0 or negative, no floaters are assigned

VALIDATION CHECKS:
1. Verify rank 1 employees are never in floater positions
2. Check that no employee is floater in consecutive months
3. Confirm rank 3+ employees have different shifts in consecutive months
4. Ensure each shift has mixed ranks when team size permits
5. Validate floater count calculation and assignment logic`
