package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"studyplan/backend/internal/middleware"
	"studyplan/backend/internal/service"
)

type ExamHandler struct {
	examService *service.ExamService
}

type startExamRequest struct {
	Title          string   `json:"title"`
	SubjectIDs     []string `json:"subjectIds"`
	OnlyUnanswered bool     `json:"onlyUnanswered"`
	Count          int      `json:"count"`
}

type answerExamRequest struct {
	QuestionIndex int `json:"questionIndex"`
	OptionIndex   int `json:"optionIndex"`
}

type finishExamRequest struct {
	ConfirmUnanswered bool `json:"confirmUnanswered"`
}

func NewExamHandler(examService *service.ExamService) *ExamHandler {
	return &ExamHandler{examService: examService}
}

func (h *ExamHandler) Start(c *gin.Context) {
	var req startExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"code": "invalid_json", "message": "invalid request body"},
		})
		return
	}

	userID := middleware.UserID(c)
	session, apiErr := h.examService.Start(c.Request.Context(), userID, service.StartExamInput{
		Title:          req.Title,
		SubjectIDs:     req.SubjectIDs,
		OnlyUnanswered: req.OnlyUnanswered,
		Count:          req.Count,
	})
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"exam": session})
}

func (h *ExamHandler) Answer(c *gin.Context) {
	var req answerExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"code": "invalid_json", "message": "invalid request body"},
		})
		return
	}

	userID := middleware.UserID(c)
	session, apiErr := h.examService.Answer(c.Request.Context(), userID, c.Param("id"), req.QuestionIndex, req.OptionIndex)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"exam": session})
}

func (h *ExamHandler) Finish(c *gin.Context) {
	var req finishExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"code": "invalid_json", "message": "invalid request body"},
		})
		return
	}

	userID := middleware.UserID(c)
	result, apiErr := h.examService.Finish(c.Request.Context(), userID, c.Param("id"), req.ConfirmUnanswered)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *ExamHandler) Get(c *gin.Context) {
	userID := middleware.UserID(c)
	session, apiErr := h.examService.Get(c.Request.Context(), userID, c.Param("id"))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"exam": session})
}

func (h *ExamHandler) List(c *gin.Context) {
	userID := middleware.UserID(c)

	limit := 50
	rawLimit := c.Query("limit")
	if rawLimit != "" {
		if parsed, err := strconv.Atoi(rawLimit); err == nil {
			limit = parsed
		}
	}

	sessions, apiErr := h.examService.List(c.Request.Context(), userID, limit)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"exams": sessions})
}
