package grading

// Clamp bounds every item into [0, maxPoints] and recomputes both totals.
// The rubric is authoritative: an item's maxPoints is the rubric's value for
// that id, items whose id is not in the rubric are dropped and only the first
// item per id is kept. Clamp is idempotent.
func Clamp(rubric []RubricItem, r GradeResult) GradeResult {
	byID := make(map[string]RubricItem, len(rubric))
	for _, item := range rubric {
		byID[item.ID] = item
	}

	out := GradeResult{
		TotalPossible:   TotalPossible(rubric),
		Items:           make([]GradeItem, 0, len(r.Items)),
		OverallFeedback: r.OverallFeedback,
	}
	seen := make(map[string]bool, len(r.Items))
	for _, it := range r.Items {
		ref, ok := byID[it.ID]
		if !ok || seen[it.ID] {
			continue
		}
		seen[it.ID] = true

		it.MaxPoints = max(0, ref.MaxPoints)
		it.Points = max(0, min(it.Points, it.MaxPoints))
		if it.Label == "" {
			it.Label = ref.Label
		}
		out.TotalAwarded += it.Points
		out.Items = append(out.Items, it)
	}
	return out
}
