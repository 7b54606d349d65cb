package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"studyplan/backend/internal/middleware"
	"studyplan/backend/internal/service"
)

type QuestionHandler struct {
	questionService *service.QuestionService
}

type questionRequest struct {
	SubjectID     string   `json:"subjectId"`
	Topic         string   `json:"topic"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correctOption"`
	Explanation   string   `json:"explanation"`
}

type answerQuestionRequest struct {
	OptionIndex int `json:"optionIndex"`
}

func NewQuestionHandler(questionService *service.QuestionService) *QuestionHandler {
	return &QuestionHandler{questionService: questionService}
}

func (req questionRequest) toInput() service.QuestionInput {
	return service.QuestionInput{
		SubjectID:     req.SubjectID,
		Topic:         req.Topic,
		Question:      req.Question,
		Options:       req.Options,
		CorrectOption: req.CorrectOption,
		Explanation:   req.Explanation,
	}
}

func (h *QuestionHandler) Create(c *gin.Context) {
	var req questionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"code": "invalid_json", "message": "invalid request body"},
		})
		return
	}

	userID := middleware.UserID(c)
	question, apiErr := h.questionService.Create(c.Request.Context(), userID, req.toInput())
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"question": question})
}

func (h *QuestionHandler) List(c *gin.Context) {
	userID := middleware.UserID(c)
	questions, apiErr := h.questionService.List(c.Request.Context(), userID)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"questions": questions})
}

func (h *QuestionHandler) Update(c *gin.Context) {
	var req questionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"code": "invalid_json", "message": "invalid request body"},
		})
		return
	}

	userID := middleware.UserID(c)
	question, apiErr := h.questionService.Update(c.Request.Context(), userID, c.Param("id"), req.toInput())
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"question": question})
}

func (h *QuestionHandler) Delete(c *gin.Context) {
	userID := middleware.UserID(c)
	if apiErr := h.questionService.Delete(c.Request.Context(), userID, c.Param("id")); apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *QuestionHandler) Answer(c *gin.Context) {
	var req answerQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"code": "invalid_json", "message": "invalid request body"},
		})
		return
	}

	userID := middleware.UserID(c)
	question, apiErr := h.questionService.Answer(c.Request.Context(), userID, c.Param("id"), req.OptionIndex)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"question": question})
}
