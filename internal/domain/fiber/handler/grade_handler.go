package handler

import (
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/fadilmartias/ai-grader/internal/config"
	"github.com/fadilmartias/ai-grader/internal/grading"
	"github.com/fadilmartias/ai-grader/internal/middleware"
	"github.com/fadilmartias/ai-grader/internal/usecase"
	"github.com/fadilmartias/ai-grader/internal/util"
	"github.com/gofiber/fiber/v2"
)

type GradeHandler struct {
	uc           *usecase.GradingUsecase
	maxFileBytes int64
	maxPages     int
	inspectPDF   func(data []byte, maxPages int) (util.PDFInfo, error)
}

func NewGradeHandler(uc *usecase.GradingUsecase, cfg *config.GradingConfig) *GradeHandler {
	return &GradeHandler{
		uc:           uc,
		maxFileBytes: cfg.MaxFileBytes(),
		maxPages:     cfg.MaxPages,
		inspectPDF:   util.InspectPDF,
	}
}

func (h *GradeHandler) RegisterRoutes(app *fiber.App) {
	app.Post("/api/grade", middleware.RateLimiter(10, 1*time.Minute), h.Grade)
}

// Grade accepts multipart `file` (PDF) and `rubric` (JSON array) and answers
// with the GradeResult itself.
func (h *GradeHandler) Grade(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return util.ErrorResponse(c, util.ErrorResponseFormat{
			Code:    fiber.StatusBadRequest,
			Message: "`file` is required",
		}, err)
	}

	rubric, err := grading.ParseRubric(c.FormValue("rubric"))
	if err != nil {
		return gradingError(c, err)
	}

	if h.maxFileBytes > 0 && file.Size > h.maxFileBytes {
		return util.ErrorResponse(c, util.ErrorResponseFormat{
			Code:    fiber.StatusBadRequest,
			Message: fmt.Sprintf("`file` is too large (max %d MB)", h.maxFileBytes/(1024*1024)),
		})
	}
	contentType := file.Header.Get("Content-Type")
	if !isPDF(file.Filename, contentType) {
		return util.ErrorResponse(c, util.ErrorResponseFormat{
			Code:    fiber.StatusBadRequest,
			Message: "`file` must be a PDF",
		})
	}

	data, err := readFormFile(file)
	if err != nil {
		return util.ErrorResponse(c, util.ErrorResponseFormat{
			Code:    fiber.StatusBadRequest,
			Message: "cannot read `file`",
		}, err)
	}
	if _, err := h.inspectPDF(data, h.maxPages); err != nil {
		return gradingError(c, err)
	}

	result, err := h.uc.Grade(c.UserContext(), rubric, grading.Submission{
		Filename:    file.Filename,
		ContentType: "application/pdf",
		Data:        data,
	})
	if err != nil {
		return gradingError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(result)
}

func gradingError(c *fiber.Ctx, err error) error {
	return util.ErrorResponse(c, util.ErrorResponseFormat{
		Code:    grading.StatusCode(err),
		Message: grading.PublicMessage(err),
	}, err)
}

func isPDF(filename, contentType string) bool {
	if strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return true
	}
	return strings.HasPrefix(strings.ToLower(contentType), "application/pdf")
}

func readFormFile(file *multipart.FileHeader) ([]byte, error) {
	f, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
