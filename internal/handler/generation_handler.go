package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"studyplan/backend/internal/middleware"
	"studyplan/backend/internal/service"
)

type GenerationHandler struct {
	generationService *service.GenerationService
}

type generateRequest struct {
	DocumentText string `json:"documentText"`
	SubjectID    string `json:"subjectId"`
	Count        int    `json:"count"`
}

func NewGenerationHandler(generationService *service.GenerationService) *GenerationHandler {
	return &GenerationHandler{generationService: generationService}
}

func (h *GenerationHandler) GenerateQuestions(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"code": "invalid_json", "message": "invalid request body"},
		})
		return
	}

	userID := middleware.UserID(c)
	questions, apiErr := h.generationService.GenerateQuestions(c.Request.Context(), userID, service.GenerateInput{
		DocumentText: req.DocumentText,
		SubjectID:    req.SubjectID,
		Count:        req.Count,
	})
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"questions": questions})
}

func (h *GenerationHandler) GenerateFlashcards(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"code": "invalid_json", "message": "invalid request body"},
		})
		return
	}

	userID := middleware.UserID(c)
	cards, apiErr := h.generationService.GenerateFlashcards(c.Request.Context(), userID, service.GenerateInput{
		DocumentText: req.DocumentText,
		SubjectID:    req.SubjectID,
		Count:        req.Count,
	})
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"flashcards": cards})
}
