package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"studyplan/backend/internal/middleware"
	"studyplan/backend/internal/service"
)

type GroupHandler struct {
	groupService    *service.GroupService
	activityService *service.ActivityService
}

type createGroupRequest struct {
	Name string `json:"name"`
}

type joinGroupRequest struct {
	InviteCode string `json:"inviteCode"`
}

func NewGroupHandler(groupService *service.GroupService, activityService *service.ActivityService) *GroupHandler {
	return &GroupHandler{groupService: groupService, activityService: activityService}
}

func (h *GroupHandler) Create(c *gin.Context) {
	var req createGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"code": "invalid_json", "message": "invalid request body"},
		})
		return
	}

	userID := middleware.UserID(c)
	group, apiErr := h.groupService.Create(c.Request.Context(), userID, req.Name)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"group": group})
}

func (h *GroupHandler) Join(c *gin.Context) {
	var req joinGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"code": "invalid_json", "message": "invalid request body"},
		})
		return
	}

	userID := middleware.UserID(c)
	group, apiErr := h.groupService.Join(c.Request.Context(), userID, req.InviteCode)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"group": group})
}

func (h *GroupHandler) List(c *gin.Context) {
	userID := middleware.UserID(c)
	groups, apiErr := h.groupService.ListMine(c.Request.Context(), userID)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

func (h *GroupHandler) Leaderboard(c *gin.Context) {
	userID := middleware.UserID(c)
	entries, apiErr := h.activityService.Leaderboard(c.Request.Context(), userID, c.Param("id"))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": entries})
}
