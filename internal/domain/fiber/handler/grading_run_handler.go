package handler

import (
	"errors"
	"log"

	"github.com/fadilmartias/ai-grader/internal/dto"
	"github.com/fadilmartias/ai-grader/internal/usecase"
	"github.com/fadilmartias/ai-grader/internal/util"
	"github.com/gofiber/fiber/v2"
)

type GradingRunHandler struct {
	uc *usecase.GradingUsecase
}

func NewGradingRunHandler(uc *usecase.GradingUsecase) *GradingRunHandler {
	return &GradingRunHandler{uc: uc}
}

func (h *GradingRunHandler) RegisterRoutes(app *fiber.App) {
	runs := app.Group("/api/submissions/:id/ai-grade")
	runs.Post("/", h.Trigger)
	runs.Post("/regenerate", h.Regenerate)
	runs.Get("/", h.Status)
	runs.Get("/history", h.History)
}

func (h *GradingRunHandler) Trigger(c *fiber.Ctx) error {
	var req dto.TriggerGradingRequest
	if err := c.BodyParser(&req); err != nil {
		return util.ErrorResponse(c, util.ErrorResponseFormat{
			Code:    fiber.StatusBadRequest,
			Message: "Invalid request body",
		}, err)
	}

	submissionID := c.Params("id")
	log.Printf("Starting AI grading for submission: %s", submissionID)
	run, err := h.uc.TriggerGrading(c.UserContext(), submissionID, req)
	if err != nil {
		return runError(c, err)
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Message: "AI grading completed",
		Data:    dto.NewGradingRunDTO(run),
	})
}

func (h *GradingRunHandler) Regenerate(c *fiber.Ctx) error {
	run, err := h.uc.RegenerateGrading(c.UserContext(), c.Params("id"))
	if err != nil {
		return runError(c, err)
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Message: "AI grading regenerated",
		Data:    dto.NewGradingRunDTO(run),
	})
}

func (h *GradingRunHandler) Status(c *fiber.Ctx) error {
	run, err := h.uc.GradingStatus(c.UserContext(), c.Params("id"))
	if err != nil {
		return runError(c, err)
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Message: "Success get AI grading status",
		Data:    dto.NewGradingRunDTO(run),
	})
}

func (h *GradingRunHandler) History(c *fiber.Ctx) error {
	runs, pagination, err := h.uc.ListRuns(c.UserContext(), c.Params("id"), c.QueryInt("page", 1), c.QueryInt("page_size", 20))
	if err != nil {
		return runError(c, err)
	}
	data := make([]dto.GradingRunDTO, 0, len(runs))
	for i := range runs {
		data = append(data, dto.NewGradingRunDTO(&runs[i]))
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Message:    "Success get AI grading history",
		Data:       data,
		Pagination: pagination,
	})
}

func runError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, usecase.ErrPersistenceDisabled):
		return util.ErrorResponse(c, util.ErrorResponseFormat{
			Code:    fiber.StatusServiceUnavailable,
			Message: err.Error(),
		})
	case errors.Is(err, usecase.ErrRunNotFound):
		return util.ErrorResponse(c, util.ErrorResponseFormat{
			Code:    fiber.StatusNotFound,
			Message: err.Error(),
		})
	}
	return gradingError(c, err)
}
