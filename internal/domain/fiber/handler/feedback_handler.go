package handler

import (
	"github.com/fadilmartias/ai-grader/internal/dto"
	"github.com/fadilmartias/ai-grader/internal/usecase"
	"github.com/fadilmartias/ai-grader/internal/util"
	"github.com/gofiber/fiber/v2"
)

type FeedbackHandler struct {
	uc *usecase.FeedbackUsecase
}

func NewFeedbackHandler(uc *usecase.FeedbackUsecase) *FeedbackHandler {
	return &FeedbackHandler{uc: uc}
}

func (h *FeedbackHandler) RegisterRoutes(app *fiber.App) {
	app.Post("/api/feedback/simplify", h.Simplify)
}

func (h *FeedbackHandler) Simplify(c *fiber.Ctx) error {
	var req dto.SimplifyFeedbackRequest
	if err := c.BodyParser(&req); err != nil {
		return util.ErrorResponse(c, util.ErrorResponseFormat{
			Code:    fiber.StatusBadRequest,
			Message: "Invalid request body",
		}, err)
	}

	resp, err := h.uc.Simplify(c.UserContext(), req.Feedback)
	if err != nil {
		return gradingError(c, err)
	}
	return c.JSON(resp)
}
