package grading

import (
	"strings"

	"github.com/tidwall/gjson"
	"github.com/xeipuuv/gojsonschema"
)

const (
	emptyResponseMessage     = "No structured output from model"
	malformedResponseMessage = "Invalid JSON response from model"
)

// ExtractJSON finds the JSON object inside a model reply that may be wrapped
// in prose or code fences. The outermost {...} span is tried first, then
// every balanced object from left to right.
func ExtractJSON(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return "", false
	}
	if span := text[start : end+1]; isObject(span) {
		return span, true
	}
	for i := start; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		if j := matchBrace(text, i); j > 0 && isObject(text[i:j+1]) {
			return text[i : j+1], true
		}
	}
	return "", false
}

func isObject(s string) bool {
	return gjson.Valid(s) && gjson.Parse(s).IsObject()
}

// matchBrace returns the index of the brace closing the one at open, or -1.
func matchBrace(s string, open int) int {
	depth := 0
	inString := false
	escaped := false
	for i := open; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// Parse turns a raw provider reply into a clamped GradeResult.
func Parse(rubric []RubricItem, raw string) (*GradeResult, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, &Error{Kind: ErrEmptyResponse, Message: emptyResponseMessage}
	}
	doc, ok := ExtractJSON(raw)
	if !ok {
		return nil, &Error{Kind: ErrMalformedResponse, Message: malformedResponseMessage}
	}

	res, err := gojsonschema.Validate(replySchemaLoader, gojsonschema.NewStringLoader(doc))
	if err != nil {
		return nil, NewError(ErrMalformedResponse, malformedResponseMessage, err)
	}
	if !res.Valid() {
		issues := make([]string, 0, len(res.Errors()))
		for _, desc := range res.Errors() {
			issues = append(issues, desc.String())
		}
		return nil, &Error{
			Kind:    ErrMalformedResponse,
			Message: malformedResponseMessage + ": " + strings.Join(issues, "; "),
		}
	}

	parsed := gjson.Parse(doc)
	result := GradeResult{
		TotalAwarded:    parsed.Get("totalAwarded").Float(),
		TotalPossible:   parsed.Get("totalPossible").Float(),
		OverallFeedback: parsed.Get("overallFeedback").String(),
	}
	parsed.Get("items").ForEach(func(_, it gjson.Result) bool {
		result.Items = append(result.Items, GradeItem{
			ID:        it.Get("id").String(),
			Label:     it.Get("label").String(),
			MaxPoints: it.Get("maxPoints").Float(),
			Points:    it.Get("points").Float(),
			Comments:  it.Get("comments").String(),
		})
		return true
	})

	clamped := Clamp(rubric, result)
	return &clamped, nil
}
