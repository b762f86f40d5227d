package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fadilmartias/ai-grader/internal/grading"
	"gopkg.in/yaml.v3"
)

// loadRubricFile reads a rubric from a .json, .yaml or .yml file.
func loadRubricFile(path string) ([]grading.RubricItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rubric: %w", err)
	}

	var items []grading.RubricItem
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("parse rubric %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("parse rubric %s: %w", path, err)
		}
	}

	if err := grading.ValidateRubric(items); err != nil {
		return nil, err
	}
	return items, nil
}
