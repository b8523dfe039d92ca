// Package store provides the persistence implementations behind the
// engine's collaborator interfaces: a Postgres store for production and an
// in-memory store for development and tests, plus an expiring keyed session
// store.
package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/convoflow/convoflow/engine"
	"github.com/convoflow/convoflow/flow"
)

// Memory keeps everything in process memory behind one RWMutex. It backs
// tests and the dev-mode server.
type Memory struct {
	mu            sync.RWMutex
	conversations map[string]engine.Conversation
	messages      map[string][]engine.MessageEntry
	flows         map[string]flow.Flow
	records       []engine.Record
	tasks         []engine.Task
	agents        []engine.Agent
	appointments  []engine.Appointment
	knowledge     []engine.KnowledgeEntry
	knowledgeTen  []string // tenant per knowledge entry, same index
}

func NewMemory() *Memory {
	return &Memory{
		conversations: make(map[string]engine.Conversation),
		messages:      make(map[string][]engine.MessageEntry),
		flows:         make(map[string]flow.Flow),
	}
}

func (s *Memory) CreateConversation(_ context.Context, c *engine.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[c.ID] = *c
	return nil
}

func (s *Memory) UpdateConversation(_ context.Context, c *engine.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[c.ID] = *c
	return nil
}

func (s *Memory) FindActiveConversation(_ context.Context, channel, userID string) (*engine.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.conversations {
		if c.Channel == channel && c.UserID == userID && c.State == engine.ConversationActive {
			out := c
			return &out, nil
		}
	}
	return nil, engine.ErrNotFound
}

func (s *Memory) AppendMessage(_ context.Context, m *engine.MessageEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[m.ConversationID] = append(s.messages[m.ConversationID], *m)
	return nil
}

func (s *Memory) ListMessages(_ context.Context, conversationID string) ([]engine.MessageEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]engine.MessageEntry, len(s.messages[conversationID]))
	copy(out, s.messages[conversationID])
	return out, nil
}

func (s *Memory) SaveFlow(_ context.Context, f flow.Flow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flows[f.ID] = f
	return nil
}

func (s *Memory) GetFlow(_ context.Context, id string) (*flow.Flow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.flows[id]
	if !ok {
		return nil, engine.ErrNotFound
	}
	return &f, nil
}

func (s *Memory) ActiveFlows(_ context.Context, tenantID string) ([]flow.Flow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []flow.Flow
	for _, f := range s.flows {
		if f.TenantID == tenantID && f.Status == flow.StatusActive {
			out = append(out, f)
		}
	}
	// map iteration order is random; keep routing deterministic
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Memory) SaveRecord(_ context.Context, r *engine.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, *r)
	return nil
}

// Records returns a snapshot of saved records, newest last.
func (s *Memory) Records() []engine.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]engine.Record, len(s.records))
	copy(out, s.records)
	return out
}

func (s *Memory) CreateTask(_ context.Context, t *engine.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, *t)
	return nil
}

func (s *Memory) FirstAvailableAgent(_ context.Context, tenantID string) (*engine.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.agents {
		if a.TenantID == tenantID && a.Available {
			out := a
			return &out, nil
		}
	}
	return nil, engine.ErrNotFound
}

func (s *Memory) AddAgent(a engine.Agent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agents = append(s.agents, a)
}

func (s *Memory) Tasks() []engine.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]engine.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

func (s *Memory) SaveAppointment(_ context.Context, a *engine.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appointments = append(s.appointments, *a)
	return nil
}

func (s *Memory) Appointments() []engine.Appointment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]engine.Appointment, len(s.appointments))
	copy(out, s.appointments)
	return out
}

func (s *Memory) AddKnowledge(tenantID string, e engine.KnowledgeEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.knowledge = append(s.knowledge, e)
	s.knowledgeTen = append(s.knowledgeTen, tenantID)
}

func (s *Memory) Search(_ context.Context, tenantID, category, query string, limit int) ([]engine.KnowledgeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(query))
	var out []engine.KnowledgeEntry
	for i, e := range s.knowledge {
		if s.knowledgeTen[i] != tenantID {
			continue
		}
		if category != "" && !strings.EqualFold(e.Category, category) {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(e.Title+" "+e.Content), q) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
