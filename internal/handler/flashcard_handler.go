package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"studyplan/backend/internal/middleware"
	"studyplan/backend/internal/service"
)

type FlashcardHandler struct {
	flashcardService *service.FlashcardService
}

type flashcardRequest struct {
	Subject    string `json:"subject"`
	Front      string `json:"front"`
	Back       string `json:"back"`
	Difficulty string `json:"difficulty"`
}

type gradeCardRequest struct {
	Correct bool `json:"correct"`
}

func NewFlashcardHandler(flashcardService *service.FlashcardService) *FlashcardHandler {
	return &FlashcardHandler{flashcardService: flashcardService}
}

func (req flashcardRequest) toInput() service.FlashcardInput {
	return service.FlashcardInput{
		Subject:    req.Subject,
		Front:      req.Front,
		Back:       req.Back,
		Difficulty: req.Difficulty,
	}
}

func (h *FlashcardHandler) Create(c *gin.Context) {
	var req flashcardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"code": "invalid_json", "message": "invalid request body"},
		})
		return
	}

	userID := middleware.UserID(c)
	card, apiErr := h.flashcardService.Create(c.Request.Context(), userID, req.toInput())
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"flashcard": card})
}

func (h *FlashcardHandler) List(c *gin.Context) {
	userID := middleware.UserID(c)
	cards, apiErr := h.flashcardService.List(c.Request.Context(), userID)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"flashcards": cards})
}

func (h *FlashcardHandler) Update(c *gin.Context) {
	var req flashcardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"code": "invalid_json", "message": "invalid request body"},
		})
		return
	}

	userID := middleware.UserID(c)
	card, apiErr := h.flashcardService.Update(c.Request.Context(), userID, c.Param("id"), req.toInput())
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"flashcard": card})
}

func (h *FlashcardHandler) Delete(c *gin.Context) {
	userID := middleware.UserID(c)
	if apiErr := h.flashcardService.Delete(c.Request.Context(), userID, c.Param("id")); apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *FlashcardHandler) StartReview(c *gin.Context) {
	userID := middleware.UserID(c)
	cards, apiErr := h.flashcardService.StartReview(c.Request.Context(), userID)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"flashcards": cards})
}

func (h *FlashcardHandler) Grade(c *gin.Context) {
	var req gradeCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"code": "invalid_json", "message": "invalid request body"},
		})
		return
	}

	userID := middleware.UserID(c)
	card, apiErr := h.flashcardService.Grade(c.Request.Context(), userID, c.Param("id"), req.Correct)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"flashcard": card})
}

func (h *FlashcardHandler) ResetStats(c *gin.Context) {
	userID := middleware.UserID(c)
	if apiErr := h.flashcardService.ResetStats(c.Request.Context(), userID); apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.Status(http.StatusNoContent)
}
