package grading

// RubricItem is one point-valued criterion supplied by whoever requests the grade.
type RubricItem struct {
	ID        string  `json:"id" yaml:"id" validate:"required"`
	Label     string  `json:"label" yaml:"label"`
	MaxPoints float64 `json:"maxPoints" yaml:"maxPoints" validate:"gt=0"`
	Guidance  string  `json:"guidance,omitempty" yaml:"guidance,omitempty"`
}

type GradeItem struct {
	ID        string  `json:"id"`
	Label     string  `json:"label"`
	MaxPoints float64 `json:"maxPoints"`
	Points    float64 `json:"points"`
	Comments  string  `json:"comments"`
}

// GradeResult is what callers receive. Totals are always recomputed from the
// rubric and the clamped items.
type GradeResult struct {
	TotalAwarded    float64     `json:"totalAwarded"`
	TotalPossible   float64     `json:"totalPossible"`
	Items           []GradeItem `json:"items"`
	OverallFeedback string      `json:"overallFeedback"`
}

// Comments maps criterion id to the comment written for it.
func (r *GradeResult) Comments() map[string]string {
	out := make(map[string]string, len(r.Items))
	for _, it := range r.Items {
		out[it.ID] = it.Comments
	}
	return out
}

// Submission is the artifact being graded.
type Submission struct {
	Filename    string
	ContentType string
	Data        []byte
}

func (s Submission) MIMEType() string {
	if s.ContentType == "" {
		return "application/pdf"
	}
	return s.ContentType
}

// FileHandle references a submission stored at the upstream provider for the
// duration of a single grading call.
type FileHandle struct {
	ID       string
	URI      string
	MIMEType string
}

// Request is the provider-neutral grading request produced by BuildRequest.
type Request struct {
	System string
	User   string
	Schema map[string]any
	Rubric []RubricItem
}
