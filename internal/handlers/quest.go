package handlers

import (
	"net/http"
	"strconv"

	"github.com/stevengranter/wilderquest-sub001/internal/services"

	"github.com/gin-gonic/gin"
)

type QuestHandler struct {
	questService     *services.QuestService
	lifecycleService *services.LifecycleService
	questShare       *services.QuestShareService
}

func NewQuestHandler(questService *services.QuestService, lifecycleService *services.LifecycleService, questShare *services.QuestShareService) *QuestHandler {
	return &QuestHandler{questService: questService, lifecycleService: lifecycleService, questShare: questShare}
}

func questIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid quest id"})
		return 0, false
	}
	return uint(id), true
}

// CreateQuest godoc
// @Summary      Create a quest
// @Description  Create a quest with an optional initial species list
// @Tags         quests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body services.CreateQuestInput true "Quest data"
// @Success      201 {object} models.Quest
// @Failure      400 {object} ErrorResponse
// @Router       /api/v1/quests [post]
func (h *QuestHandler) CreateQuest(c *gin.Context) {
	userID := c.GetUint("user_id")

	var req services.CreateQuestInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	quest, err := h.questService.CreateQuest(userID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, quest)
}

// ListQuests godoc
// @Summary      List own quests
// @Tags         quests
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} models.Quest
// @Router       /api/v1/quests [get]
func (h *QuestHandler) ListQuests(c *gin.Context) {
	userID := c.GetUint("user_id")

	quests, err := h.questService.ListQuests(userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, quests)
}

// GetQuest godoc
// @Summary      Get a quest with its species mappings
// @Tags         quests
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Quest ID"
// @Success      200 {object} models.Quest
// @Failure      404 {object} ErrorResponse
// @Router       /api/v1/quests/{id} [get]
func (h *QuestHandler) GetQuest(c *gin.Context) {
	questID, ok := questIDParam(c)
	if !ok {
		return
	}

	quest, err := h.questService.GetQuest(questID, c.GetUint("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, quest)
}

// UpdateQuest godoc
// @Summary      Edit a quest
// @Description  Editing an active quest auto-pauses it and notifies subscribers. A supplied species list replaces the old one wholesale.
// @Tags         quests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Quest ID"
// @Param        request body services.UpdateQuestInput true "Fields to update"
// @Success      200 {object} models.Quest
// @Failure      403 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /api/v1/quests/{id} [put]
func (h *QuestHandler) UpdateQuest(c *gin.Context) {
	questID, ok := questIDParam(c)
	if !ok {
		return
	}

	var req services.UpdateQuestInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	quest, err := h.questService.UpdateQuest(questID, c.GetUint("user_id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, quest)
}

type StatusRequest struct {
	Status string `json:"status" binding:"required" example:"active"`
}

// UpdateStatus godoc
// @Summary      Transition quest status
// @Description  pending→active, active⇄paused, any non-ended→ended. No-op transitions are rejected.
// @Tags         quests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Quest ID"
// @Param        request body StatusRequest true "Target status"
// @Success      200 {object} models.Quest
// @Failure      422 {object} ErrorResponse
// @Router       /api/v1/quests/{id}/status [post]
func (h *QuestHandler) UpdateStatus(c *gin.Context) {
	questID, ok := questIDParam(c)
	if !ok {
		return
	}

	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	quest, err := h.lifecycleService.RequestTransition(questID, c.GetUint("user_id"), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, quest)
}

type ObservationRequest struct {
	MappingID uint  `json:"mapping_id" binding:"required" example:"7"`
	Observed  *bool `json:"observed" binding:"required"`
}

// RecordObservation godoc
// @Summary      Toggle an owner's found claim
// @Description  Records progress attributed to the owner's primary share
// @Tags         progress
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Quest ID"
// @Param        request body ObservationRequest true "Toggle"
// @Success      200 {object} MessageResponse
// @Failure      409 {object} ErrorResponse
// @Router       /api/v1/quests/{id}/observations [post]
func (h *QuestHandler) RecordObservation(c *gin.Context) {
	questID, ok := questIDParam(c)
	if !ok {
		return
	}

	var req ObservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	changed, err := h.questShare.RecordOwnerProgress(questID, c.GetUint("user_id"), req.MappingID, *req.Observed)
	if err != nil {
		respondError(c, err)
		return
	}

	msg := "no change"
	if changed {
		msg = "progress recorded"
	}
	c.JSON(http.StatusOK, MessageResponse{Message: msg})
}

// GetProgress godoc
// @Summary      Aggregated progress per mapping
// @Tags         progress
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Quest ID"
// @Success      200 {array} services.AggregatedProgress
// @Router       /api/v1/quests/{id}/progress [get]
func (h *QuestHandler) GetProgress(c *gin.Context) {
	questID, ok := questIDParam(c)
	if !ok {
		return
	}

	progress, err := h.questShare.Aggregated(questID, c.GetUint("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, progress)
}

// GetDetailedProgress godoc
// @Summary      Per-finder progress entries
// @Tags         progress
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Quest ID"
// @Success      200 {array} services.ProgressDetail
// @Router       /api/v1/quests/{id}/progress/detailed [get]
func (h *QuestHandler) GetDetailedProgress(c *gin.Context) {
	questID, ok := questIDParam(c)
	if !ok {
		return
	}

	details, err := h.questShare.Detailed(questID, c.GetUint("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, details)
}

// GetLeaderboard godoc
// @Summary      Leaderboard of distinct taxa found per participant
// @Tags         progress
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Quest ID"
// @Success      200 {array} services.LeaderboardEntry
// @Router       /api/v1/quests/{id}/leaderboard [get]
func (h *QuestHandler) GetLeaderboard(c *gin.Context) {
	questID, ok := questIDParam(c)
	if !ok {
		return
	}

	entries, err := h.questShare.Leaderboard(questID, c.GetUint("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, entries)
}
