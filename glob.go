package dxa

import "github.com/bmatcuk/doublestar/v4"

// FilterPlans returns the subset of plans whose Path matches at least one
// of the given doublestar glob patterns, preserving plan order. Grounded
// on the teacher's path.go glob method, which matches a rendered path
// against doublestar.MatchUnvalidated; this module's plan list is already
// fully materialised in memory, so a single sequential pass replaces the
// teacher's batched/round-robin worker pool built for an on-demand,
// possibly-unbounded filesystem walk.
func FilterPlans(plans []ExtractPlan, patterns ...string) []ExtractPlan {
	if len(patterns) == 0 {
		return plans
	}

	var out []ExtractPlan
	for _, p := range plans {
		for _, pattern := range patterns {
			if doublestar.MatchUnvalidated(pattern, p.Path) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}
