package grading

import (
	"encoding/json"
	"fmt"
	"strings"
)

var systemPrompt = strings.Join([]string{
	"You are a fair and accurate grader, but also reasonably generous. Most of the time, you should award at least 85-95% of the total possible points unless the work clearly does not merit it.",
	"You MUST only use the provided rubric and must not introduce additional criteria.",
	"Do NOT award points for content that is not present in the submission.",
	"If a criterion is not evidenced, award 0 and explain clearly.",
	"Keep comments concise (1-2 sentences) and mention specific phrases or content from the submission. Do not include citations in comments.",
	"You must respond with valid JSON in the exact format specified, with no surrounding prose.",
}, " ")

// BuildRequest assembles the system and user instructions for one grading call.
func BuildRequest(rubric []RubricItem) (Request, error) {
	if err := ValidateRubric(rubric); err != nil {
		return Request{}, err
	}
	rubricJSON, err := json.Marshal(rubric)
	if err != nil {
		return Request{}, fmt.Errorf("encode rubric: %w", err)
	}

	user := strings.Join([]string{
		"Here is the rubric as JSON. Adhere strictly to maxPoints and do not exceed totals.\n" + string(rubricJSON),
		"Grade the attached student submission against the rubric. " +
			"Return STRICTLY the JSON that matches this schema: " + schemaExample +
			fmt.Sprintf(" The total possible points are %s.", formatPoints(TotalPossible(rubric))) +
			" Use short, actionable comments per item. No more than 1-2 sentences per item.",
	}, "\n\n")

	return Request{
		System: systemPrompt,
		User:   user,
		Schema: GradeSchema(),
		Rubric: rubric,
	}, nil
}

func formatPoints(v float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}
