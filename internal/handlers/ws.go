package handlers

import (
	"log"
	"net/http"

	"github.com/stevengranter/wilderquest-sub001/internal/services"
	"github.com/stevengranter/wilderquest-sub001/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type WSHandler struct {
	hub          *ws.Broadcaster
	authService  *services.AuthService
	shareService *services.ShareService
	questService *services.QuestService
}

func NewWSHandler(hub *ws.Broadcaster, authService *services.AuthService, shareService *services.ShareService, questService *services.QuestService) *WSHandler {
	return &WSHandler{hub: hub, authService: authService, shareService: shareService, questService: questService}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// authorize accepts either a share token or a JWT as a query param,
// since browsers cannot set headers on websocket upgrades.
func (h *WSHandler) authorize(c *gin.Context, questID uint) bool {
	if token := c.Query("token"); token != "" {
		share, err := h.shareService.ResolveActiveShare(token)
		if err != nil || share.QuestID != questID {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid share token for quest"})
			return false
		}
		return true
	}
	if access := c.Query("access_token"); access != "" {
		userID, err := h.authService.ValidateToken(access)
		if err != nil {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid token"})
			return false
		}
		if _, err := h.questService.GetQuest(questID, userID); err != nil {
			respondError(c, err)
			return false
		}
		return true
	}
	c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "token or access_token required"})
	return false
}

// HandleQuestSocket godoc
// @Summary      Live event stream for a quest
// @Description  Delivers QUEST_STATUS_UPDATED, SPECIES_FOUND, SPECIES_UNFOUND and QUEST_EDITING_STARTED events. Clients refetch state on reconnect; missed events are not replayed.
// @Tags         websocket
// @Param        id path int true "Quest ID"
// @Param        token query string false "Share token"
// @Param        access_token query string false "JWT for owners"
// @Router       /ws/quest/{id} [get]
func (h *WSHandler) HandleQuestSocket(c *gin.Context) {
	questID, ok := questIDParam(c)
	if !ok {
		return
	}
	if !h.authorize(c, questID) {
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}

	subscriberID := uuid.NewString()
	events := h.hub.Subscribe(questID, subscriberID)
	defer h.hub.Unsubscribe(questID, subscriberID)
	defer conn.Close()

	// Detect the peer going away, including drops without a close frame.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case event, open := <-events:
			if !open {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				log.Printf("ws: write error on quest %d: %v", questID, err)
				return
			}
		case <-done:
			return
		}
	}
}
