package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/convoflow/convoflow/channel"
)

type chatRequest struct {
	TenantID  string `json:"tenant_id" binding:"required"`
	SessionID string `json:"session_id"`
	Message   string `json:"message" binding:"required"`
}

type chatResponse struct {
	Handled   bool            `json:"handled"`
	SessionID string          `json:"session_id"`
	Replies   []channel.Reply `json:"replies"`
}

// handleChat is the synchronous channel: the inbound message and all
// outbound replies share one request/response cycle. Browser sessions get
// an id on first contact; the expiring session store maps it to the user
// identifier on subsequent turns.
func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "tenant_id and message are required"})
		return
	}

	sessionID := req.SessionID
	userID, ok := s.sessions.Get(sessionID)
	if !ok {
		sessionID = uuid.New().String()
		userID = uuid.New().String()
		s.sessions.Put(sessionID, userID)
	}

	adapter := channel.NewWebchatAdapter()
	handled := s.router.Route(c.Request.Context(), channel.Webchat, userID, req.Message, req.TenantID, adapter)

	c.JSON(http.StatusOK, chatResponse{
		Handled:   handled,
		SessionID: sessionID,
		Replies:   adapter.Replies(),
	})
}
