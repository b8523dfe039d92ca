package engine

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/convoflow/convoflow/channel"
	"github.com/convoflow/convoflow/flow"
)

// Router is the entry point for every inbound channel message. It resumes
// the active conversation for the (channel, user) pair, or matches the
// message against the tenant's flow triggers to start a new one.
//
// Processing is serialized per (channel, user) with a keyed mutex; two
// messages for the same user arriving concurrently can otherwise race the
// active-conversation lookup and spawn duplicates.
type Router struct {
	l      *slog.Logger
	engine *Engine
	deps   *Collaborators

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewRouter(l *slog.Logger, engine *Engine, deps *Collaborators) *Router {
	return &Router{
		l:      l,
		engine: engine,
		deps:   deps,
		locks:  make(map[string]*sync.Mutex),
	}
}

// Route handles one inbound message. It returns true when a flow consumed
// the message (resumed or started) and false when nothing matched, so the
// caller can fall back to its default behavior.
func (r *Router) Route(ctx context.Context, channelKind, userID, message, tenantID string, adapter channel.Adapter) bool {
	unlock := r.lock(channelKind, userID)
	defer unlock()

	conv, err := r.deps.Conversations.FindActiveConversation(ctx, channelKind, userID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		r.l.ErrorContext(ctx, "active conversation lookup failed",
			"channel", channelKind,
			"user", userID,
			"error", err)
		return false
	}

	if conv != nil {
		return r.resume(ctx, conv, message, adapter)
	}
	return r.start(ctx, channelKind, userID, message, tenantID, adapter)
}

func (r *Router) resume(ctx context.Context, conv *Conversation, message string, adapter channel.Adapter) bool {
	f, err := r.deps.Flows.GetFlow(ctx, conv.FlowID)
	if err != nil || f == nil {
		r.l.ErrorContext(ctx, "flow missing for active conversation",
			"conversation", conv.ID,
			"flow", conv.FlowID,
			"error", err)
		conv.Finalize(ConversationCompleted)
		if uerr := r.deps.Conversations.UpdateConversation(ctx, conv); uerr != nil {
			r.l.ErrorContext(ctx, "conversation persist failed", "conversation", conv.ID, "error", uerr)
		}
		return true
	}

	r.engine.Resume(ctx, conv, f, adapter, message)
	return true
}

func (r *Router) start(ctx context.Context, channelKind, userID, message, tenantID string, adapter channel.Adapter) bool {
	flows, err := r.deps.Flows.ActiveFlows(ctx, tenantID)
	if err != nil {
		r.l.ErrorContext(ctx, "active flow lookup failed", "tenant", tenantID, "error", err)
		return false
	}

	for i := range flows {
		f := &flows[i]
		if !TriggerMatches(f.Trigger, channelKind, message) {
			continue
		}

		start := f.StartNode()
		if start == nil {
			continue
		}

		now := time.Now()
		conv := &Conversation{
			ID:            uuid.New().String(),
			TenantID:      tenantID,
			FlowID:        f.ID,
			Channel:       channelKind,
			UserID:        userID,
			CurrentNodeID: start.ID,
			Variables:     make(map[string]string),
			State:         ConversationActive,
			Metadata:      map[string]string{"trigger_message": message},
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := r.deps.Conversations.CreateConversation(ctx, conv); err != nil {
			r.l.ErrorContext(ctx, "conversation creation failed",
				"flow", f.ID,
				"user", userID,
				"error", err)
			return false
		}

		r.l.InfoContext(ctx, "starting conversation",
			"conversation", conv.ID,
			"flow", f.ID,
			"channel", channelKind)
		r.engine.Start(ctx, conv, f, adapter, message)
		return true
	}

	return false
}

// TriggerMatches reports whether an inbound message on a channel matches a
// flow trigger. The flow's channel list must include the inbound channel.
func TriggerMatches(t flow.Trigger, channelKind, message string) bool {
	if !containsChannel(t.Channels, channelKind) {
		return false
	}

	msg := strings.TrimSpace(message)
	switch t.Type {
	case flow.TriggerAny:
		return true
	case flow.TriggerExact:
		return strings.EqualFold(msg, strings.TrimSpace(t.Value))
	case flow.TriggerKeyword:
		return t.Value != "" && strings.Contains(strings.ToLower(msg), strings.ToLower(t.Value))
	case flow.TriggerRegex:
		re, err := regexp.Compile("(?i)" + t.Value)
		if err != nil {
			return false
		}
		return re.MatchString(msg)
	}
	return false
}

func containsChannel(channels []string, kind string) bool {
	for _, c := range channels {
		if strings.EqualFold(c, kind) {
			return true
		}
	}
	return false
}

// lock serializes message processing for one (channel, user) pair.
func (r *Router) lock(channelKind, userID string) func() {
	key := channelKind + ":" + userID

	r.mu.Lock()
	m, ok := r.locks[key]
	if !ok {
		m = &sync.Mutex{}
		r.locks[key] = m
	}
	r.mu.Unlock()

	m.Lock()
	return m.Unlock
}
