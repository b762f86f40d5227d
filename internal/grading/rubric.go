package grading

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

const invalidRubricMessage = "`rubric` must be valid JSON array of rubric items"

var (
	validate   *validator.Validate
	translator ut.Translator
)

func init() {
	validate = validator.New()

	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// report json names (maxPoints, not MaxPoints)
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

type rubricEnvelope struct {
	Items []RubricItem `json:"rubric" validate:"required,min=1,unique=ID,dive"`
}

// ParseRubric decodes the JSON-encoded rubric form field and validates it.
func ParseRubric(raw string) ([]RubricItem, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ValidationError("`rubric` must be a JSON string")
	}
	var items []RubricItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, NewError(ErrValidation, invalidRubricMessage, err)
	}
	if err := ValidateRubric(items); err != nil {
		return nil, err
	}
	return items, nil
}

// ValidateRubric rejects empty rubrics, non-positive maxPoints, missing ids
// and duplicate ids.
func ValidateRubric(items []RubricItem) error {
	if len(items) == 0 {
		return ValidationError(invalidRubricMessage)
	}
	err := validate.Struct(rubricEnvelope{Items: items})
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return NewError(ErrValidation, invalidRubricMessage, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fe.Translate(translator))
	}
	return ValidationError("invalid rubric: " + strings.Join(msgs, "; "))
}

// TotalPossible sums the rubric maxima, ignoring negative values.
func TotalPossible(rubric []RubricItem) float64 {
	var total float64
	for _, r := range rubric {
		total += max(0, r.MaxPoints)
	}
	return total
}
