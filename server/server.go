// Package server is the HTTP edge: webhook endpoints for the push channels
// and the synchronous webchat endpoint. Webhook handlers never fail loudly
// to the platform; whatever happens inside the engine, receipt is
// acknowledged.
package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/convoflow/convoflow/channel"
	"github.com/convoflow/convoflow/engine"
	"github.com/convoflow/convoflow/store"
)

type Server struct {
	l           *slog.Logger
	router      *engine.Router
	sessions    *store.Sessions
	whatsapp    channel.Adapter
	telegram    channel.Adapter
	verifyToken string
}

func New(l *slog.Logger, router *engine.Router, sessions *store.Sessions, whatsapp, telegram channel.Adapter, verifyToken string) *Server {
	return &Server{
		l:           l,
		router:      router,
		sessions:    sessions,
		whatsapp:    whatsapp,
		telegram:    telegram,
		verifyToken: verifyToken,
	}
}

// Register mounts all routes on the gin engine.
func (s *Server) Register(g *gin.Engine) {
	g.GET("/healthz", s.handleHealth)
	g.GET("/webhook/whatsapp/:tenant", s.handleWhatsAppVerify)
	g.POST("/webhook/whatsapp/:tenant", s.handleWhatsApp)
	g.POST("/webhook/telegram/:tenant", s.handleTelegram)
	g.POST("/chat", s.handleChat)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
