package handlers

import (
	"net/http"
	"strconv"

	"github.com/stevengranter/wilderquest-sub001/internal/services"

	"github.com/gin-gonic/gin"
)

type ShareHandler struct {
	shareService *services.ShareService
	questShare   *services.QuestShareService
}

func NewShareHandler(shareService *services.ShareService, questShare *services.QuestShareService) *ShareHandler {
	return &ShareHandler{shareService: shareService, questShare: questShare}
}

// CreateShare godoc
// @Summary      Invite a guest or registered user to a quest
// @Description  A bare invite (no guest name, no invited user) becomes the owner's primary acting-identity share on first use
// @Tags         shares
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Quest ID"
// @Param        request body services.CreateShareInput true "Invitation"
// @Success      201 {object} models.Share
// @Failure      409 {object} ErrorResponse
// @Router       /api/v1/quests/{id}/shares [post]
func (h *ShareHandler) CreateShare(c *gin.Context) {
	questID, ok := questIDParam(c)
	if !ok {
		return
	}

	var req services.CreateShareInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	share, err := h.shareService.CreateShare(questID, c.GetUint("user_id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, share)
}

// ListShares godoc
// @Summary      List a quest's shares
// @Tags         shares
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Quest ID"
// @Success      200 {array} models.Share
// @Router       /api/v1/quests/{id}/shares [get]
func (h *ShareHandler) ListShares(c *gin.Context) {
	questID, ok := questIDParam(c)
	if !ok {
		return
	}

	shares, err := h.shareService.ListShares(questID, c.GetUint("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, shares)
}

// DeleteShare godoc
// @Summary      Revoke a share token
// @Description  Revokes access only; the share's recorded progress keeps counting in aggregates
// @Tags         shares
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Share ID"
// @Success      200 {object} MessageResponse
// @Failure      403 {object} ErrorResponse
// @Router       /api/v1/shares/{id} [delete]
func (h *ShareHandler) DeleteShare(c *gin.Context) {
	shareID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid share id"})
		return
	}

	if err := h.shareService.DeleteShare(uint(shareID), c.GetUint("user_id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "share revoked"})
}

// ResolveShare godoc
// @Summary      Bootstrap a guest session from a share token
// @Tags         share-access
// @Produce      json
// @Param        token path string true "Share token"
// @Success      200 {object} services.ShareContext
// @Failure      404 {object} ErrorResponse
// @Failure      410 {object} ErrorResponse
// @Router       /api/v1/share/{token} [get]
func (h *ShareHandler) ResolveShare(c *gin.Context) {
	ctx, err := h.shareService.ResolveToken(c.Param("token"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ctx)
}

// RecordShareObservation godoc
// @Summary      Toggle a found claim through a share token
// @Tags         share-access
// @Accept       json
// @Produce      json
// @Param        token path string true "Share token"
// @Param        request body ObservationRequest true "Toggle"
// @Success      200 {object} MessageResponse
// @Failure      409 {object} ErrorResponse
// @Router       /api/v1/share/{token}/observations [post]
func (h *ShareHandler) RecordShareObservation(c *gin.Context) {
	var req ObservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	changed, err := h.questShare.RecordShareProgress(c.Param("token"), req.MappingID, *req.Observed)
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

// GetShareProgress godoc
// @Summary      Aggregated progress for a share token's quest
// @Tags         share-access
// @Produce      json
// @Param        token path string true "Share token"
// @Success      200 {array} services.AggregatedProgress
// @Router       /api/v1/share/{token}/progress [get]
func (h *ShareHandler) GetShareProgress(c *gin.Context) {
	progress, err := h.questShare.AggregatedForToken(c.Param("token"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, progress)
}

// GetShareLeaderboard godoc
// @Summary      Leaderboard for a share token's quest
// @Tags         share-access
// @Produce      json
// @Param        token path string true "Share token"
// @Success      200 {array} services.LeaderboardEntry
// @Router       /api/v1/share/{token}/leaderboard [get]
func (h *ShareHandler) GetShareLeaderboard(c *gin.Context) {
	entries, err := h.questShare.LeaderboardForToken(c.Param("token"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, entries)
}
