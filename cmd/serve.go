package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/convoflow/convoflow/calendar"
	"github.com/convoflow/convoflow/channel"
	"github.com/convoflow/convoflow/config"
	"github.com/convoflow/convoflow/engine"
	"github.com/convoflow/convoflow/flow"
	"github.com/convoflow/convoflow/llm"
	"github.com/convoflow/convoflow/server"
	"github.com/convoflow/convoflow/store"
)

// backend is the storage surface the service needs, satisfied by both
// store.Memory and store.Postgres.
type backend interface {
	engine.ConversationStore
	engine.FlowSource
	engine.RecordStore
	engine.TaskStore
	engine.AppointmentStore
	engine.KnowledgeSource
	SaveFlow(ctx context.Context, f flow.Flow) error
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the flow engine and channel webhooks",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		l := slog.New(slog.NewJSONHandler(os.Stdout, nil))
		ctx := cmd.Context()

		var db backend
		if cfg.DB.DSN != "" {
			pool, err := pgxpool.New(ctx, cfg.DB.DSN)
			if err != nil {
				return fmt.Errorf("error connecting to database: %w", err)
			}
			defer pool.Close()
			pg := store.NewPostgres(pool)
			if err := pg.Init(ctx); err != nil {
				return fmt.Errorf("error initializing database: %w", err)
			}
			db = pg
		} else {
			l.Warn("no database configured, using in-memory store")
			db = store.NewMemory()
		}

		flows, err := flow.LoadDir(cfg.FlowsDir)
		if err != nil {
			return fmt.Errorf("error loading flows from %s: %w", cfg.FlowsDir, err)
		}
		for id, f := range flows {
			if err := db.SaveFlow(ctx, f); err != nil {
				return fmt.Errorf("error saving flow %s: %w", id, err)
			}
		}
		l.Info("flows loaded", "count", len(flows), "dir", cfg.FlowsDir)

		tokens := calendar.StaticTokenSource(&oauth2.Config{
			ClientID:     cfg.Calendar.ClientID,
			ClientSecret: cfg.Calendar.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.Calendar.AuthURL,
				TokenURL: cfg.Calendar.TokenURL,
			},
		}, cfg.Calendar.RefreshToken)

		deps := &engine.Collaborators{
			Conversations: db,
			Flows:         db,
			Records:       db,
			Tasks:         db,
			Appointments:  db,
			Knowledge:     db,
			Completer:     llm.NewClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model),
			Calendar:      calendar.NewClient(cfg.Calendar.BaseURL, tokens),
		}

		eng := engine.New(l, cfg.Engine, deps)
		router := engine.NewRouter(l, eng, deps)

		whatsapp := channel.NewWhatsAppAdapter(cfg.WhatsApp.BaseURL, cfg.WhatsApp.Token, cfg.WhatsApp.PhoneID, l)
		telegram := channel.NewTelegramAdapter(cfg.Telegram.BaseURL, cfg.Telegram.Token, l)
		sessions := store.NewSessions(time.Duration(cfg.SessionTTLMinutes) * time.Minute)

		srv := server.New(l, router, sessions, whatsapp, telegram, cfg.WhatsApp.VerifyToken)

		g := gin.Default()
		srv.Register(g)

		l.Info("starting server", "addr", cfg.HTTP.Addr)
		return g.Run(cfg.HTTP.Addr)
	},
}
