package server

import (
	"fmt"
	"io"
	"net/http"

	"github.com/Jeffail/gabs/v2"
	"github.com/gin-gonic/gin"

	"github.com/convoflow/convoflow/channel"
)

// handleWhatsAppVerify answers the platform's subscription handshake.
func (s *Server) handleWhatsAppVerify(c *gin.Context) {
	if c.Query("hub.verify_token") != s.verifyToken {
		c.String(http.StatusForbidden, "verification failed")
		return
	}
	c.String(http.StatusOK, c.Query("hub.challenge"))
}

func (s *Server) handleWhatsApp(c *gin.Context) {
	tenantID := c.Param("tenant")

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	userID, text, ok := extractWhatsAppMessage(body)
	if !ok {
		// status updates, read receipts and other non-message events
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	handled := s.router.Route(c.Request.Context(), channel.WhatsApp, userID, text, tenantID, s.whatsapp)
	s.l.InfoContext(c.Request.Context(), "whatsapp message routed",
		"tenant", tenantID,
		"user", userID,
		"handled", handled)

	c.JSON(http.StatusOK, gin.H{"status": "received"})
}

func (s *Server) handleTelegram(c *gin.Context) {
	tenantID := c.Param("tenant")

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	userID, text, ok := extractTelegramMessage(body)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	handled := s.router.Route(c.Request.Context(), channel.Telegram, userID, text, tenantID, s.telegram)
	s.l.InfoContext(c.Request.Context(), "telegram message routed",
		"tenant", tenantID,
		"user", userID,
		"handled", handled)

	c.JSON(http.StatusOK, gin.H{"status": "received"})
}

// extractWhatsAppMessage pulls the sender and content out of a WhatsApp
// Cloud API webhook payload. Button and list replies yield the selected id.
func extractWhatsAppMessage(body []byte) (userID, text string, ok bool) {
	doc, err := gabs.ParseJSON(body)
	if err != nil {
		return "", "", false
	}

	msg, err := doc.JSONPointer("/entry/0/changes/0/value/messages/0")
	if err != nil {
		return "", "", false
	}

	userID, _ = msg.Path("from").Data().(string)
	if userID == "" {
		return "", "", false
	}

	if t, okCast := msg.Path("text.body").Data().(string); okCast {
		return userID, t, true
	}
	if id, okCast := msg.Path("interactive.button_reply.id").Data().(string); okCast {
		return userID, id, true
	}
	if id, okCast := msg.Path("interactive.list_reply.id").Data().(string); okCast {
		return userID, id, true
	}
	return "", "", false
}

// extractTelegramMessage pulls the chat id and content out of a Telegram
// update. Callback queries (inline keyboard presses) yield the callback
// data.
func extractTelegramMessage(body []byte) (userID, text string, ok bool) {
	doc, err := gabs.ParseJSON(body)
	if err != nil {
		return "", "", false
	}

	if t, okCast := doc.Path("message.text").Data().(string); okCast {
		if id := telegramChatID(doc, "message.chat.id"); id != "" {
			return id, t, true
		}
	}
	if data, okCast := doc.Path("callback_query.data").Data().(string); okCast {
		if id := telegramChatID(doc, "callback_query.message.chat.id"); id != "" {
			return id, data, true
		}
	}
	return "", "", false
}

// telegramChatID renders the numeric chat id as the opaque user identifier.
func telegramChatID(doc *gabs.Container, path string) string {
	switch v := doc.Path(path).Data().(type) {
	case float64:
		return fmt.Sprintf("%.0f", v)
	case string:
		return v
	}
	return ""
}
