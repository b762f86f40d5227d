package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fadilmartias/ai-grader/internal/config"
	"github.com/fadilmartias/ai-grader/internal/grading"
	"github.com/fadilmartias/ai-grader/internal/service"
	"github.com/fadilmartias/ai-grader/internal/util"
	"github.com/spf13/cobra"
)

var gradeCmd = &cobra.Command{
	Use:   "grade",
	Short: "Grade a PDF against a rubric and print the result as JSON",
	Example: `  gradectl grade --file essay.pdf --rubric rubric.yaml
  gradectl grade --file essay.pdf --rubric rubric.json --provider gemini --timeout 90s`,
	RunE: func(cmd *cobra.Command, args []string) error {
		filePath, _ := cmd.Flags().GetString("file")
		rubricPath, _ := cmd.Flags().GetString("rubric")
		provider, _ := cmd.Flags().GetString("provider")
		model, _ := cmd.Flags().GetString("model")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		rubric, err := loadRubricFile(rubricPath)
		if err != nil {
			return err
		}

		data, err := os.ReadFile(filePath)
		if err != nil {
			return fmt.Errorf("read submission: %w", err)
		}
		cfg := *config.LoadGradingConfig()
		if _, err := util.InspectPDF(data, cfg.MaxPages); err != nil {
			return err
		}

		if provider != "" {
			cfg.Provider = provider
		}
		if model != "" {
			cfg.Model = model
		}
		if timeout > 0 {
			cfg.MaxDuration = timeout
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		grader, err := service.NewGrader(ctx, &cfg)
		if err != nil {
			return err
		}

		result, err := grader.Grade(ctx, rubric, grading.Submission{
			Filename:    filepath.Base(filePath),
			ContentType: "application/pdf",
			Data:        data,
		})
		if err != nil {
			return fmt.Errorf("grading failed: %w", err)
		}

		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	gradeCmd.Flags().String("file", "", "PDF submission to grade")
	gradeCmd.Flags().String("rubric", "", "rubric file (.json, .yaml or .yml)")
	gradeCmd.Flags().String("provider", "", "grading provider (defaults to GRADING_PROVIDER)")
	gradeCmd.Flags().String("model", "", "provider model (defaults to GRADING_MODEL)")
	gradeCmd.Flags().Duration("timeout", 0, "hard limit for the whole grading call, e.g. 90s")
	_ = gradeCmd.MarkFlagRequired("file")
	_ = gradeCmd.MarkFlagRequired("rubric")

	RootCmd.AddCommand(gradeCmd)
}
