package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "studyplan/backend/internal/errors"
	"studyplan/backend/internal/middleware"
	"studyplan/backend/internal/service"
)

type TimerHandler struct {
	timerService *service.TimerService
}

type startSessionRequest struct {
	BaseVersion int    `json:"baseVersion"`
	SubjectID   string `json:"subjectId"`
	Topic       string `json:"topic"`
	Notes       string `json:"notes"`
}

type tickRequest struct {
	BaseVersion int `json:"baseVersion"`
	Seconds     int `json:"seconds"`
}

type timerVersionRequest struct {
	BaseVersion int `json:"baseVersion"`
}

type changeModeRequest struct {
	BaseVersion      int    `json:"baseVersion"`
	Mode             string `json:"mode"`
	WorkMinutes      int    `json:"workMinutes"`
	BreakMinutes     int    `json:"breakMinutes"`
	LongBreakMinutes int    `json:"longBreakMinutes"`
}

func NewTimerHandler(timerService *service.TimerService) *TimerHandler {
	return &TimerHandler{timerService: timerService}
}

func (h *TimerHandler) GetState(c *gin.Context) {
	userID := middleware.UserID(c)
	state, apiErr := h.timerService.GetState(c.Request.Context(), userID)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (h *TimerHandler) Start(c *gin.Context) {
	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"code": "invalid_json", "message": "invalid request body"},
		})
		return
	}

	userID := middleware.UserID(c)
	state, apiErr := h.timerService.Start(c.Request.Context(), userID, service.StartSessionInput{
		BaseVersion: req.BaseVersion,
		SubjectID:   req.SubjectID,
		Topic:       req.Topic,
		Notes:       req.Notes,
	})
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (h *TimerHandler) Tick(c *gin.Context) {
	var req tickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"code": "invalid_json", "message": "invalid request body"},
		})
		return
	}

	userID := middleware.UserID(c)
	state, apiErr := h.timerService.Tick(c.Request.Context(), userID, req.Seconds, req.BaseVersion)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (h *TimerHandler) Pause(c *gin.Context) {
	h.applyVersioned(c, h.timerService.Pause)
}

func (h *TimerHandler) Resume(c *gin.Context) {
	h.applyVersioned(c, h.timerService.Resume)
}

func (h *TimerHandler) Reset(c *gin.Context) {
	h.applyVersioned(c, h.timerService.Reset)
}

func (h *TimerHandler) ChangeMode(c *gin.Context) {
	var req changeModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"code": "invalid_json", "message": "invalid request body"},
		})
		return
	}

	userID := middleware.UserID(c)
	state, apiErr := h.timerService.ChangeMode(c.Request.Context(), userID, service.ChangeModeInput{
		BaseVersion:      req.BaseVersion,
		Mode:             req.Mode,
		WorkMinutes:      req.WorkMinutes,
		BreakMinutes:     req.BreakMinutes,
		LongBreakMinutes: req.LongBreakMinutes,
	})
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (h *TimerHandler) GetHistory(c *gin.Context) {
	userID := middleware.UserID(c)

	limit := 50
	rawLimit := c.Query("limit")
	if rawLimit != "" {
		if parsed, err := strconv.Atoi(rawLimit); err == nil {
			limit = parsed
		}
	}

	sessions, apiErr := h.timerService.GetHistory(c.Request.Context(), userID, limit)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

func (h *TimerHandler) GetResumable(c *gin.Context) {
	userID := middleware.UserID(c)
	draft, apiErr := h.timerService.GetResumable(c.Request.Context(), userID)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": draft})
}

func (h *TimerHandler) Resurrect(c *gin.Context) {
	userID := middleware.UserID(c)
	state, apiErr := h.timerService.ResumeFromDraft(c.Request.Context(), userID)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (h *TimerHandler) applyVersioned(
	c *gin.Context,
	op func(ctx context.Context, userID string, baseVersion int) (*service.TimerView, *apperrors.APIError),
) {
	var req timerVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"code": "invalid_json", "message": "invalid request body"},
		})
		return
	}

	userID := middleware.UserID(c)
	state, apiErr := op(c.Request.Context(), userID, req.BaseVersion)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}
