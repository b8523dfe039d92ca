package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/convoflow/convoflow/channel"
	"github.com/convoflow/convoflow/flow"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// sentMessage is one outbound emission captured by the fake adapter.
type sentMessage struct {
	Kind    string // text | image | buttons | list
	To      string
	Text    string
	Buttons []channel.Button
	Items   []channel.ListItem
}

type fakeAdapter struct {
	sent    []sentMessage
	sendErr error
}

func (a *fakeAdapter) Kind() string { return "webchat" }

func (a *fakeAdapter) SendText(_ context.Context, to, text string) error {
	if a.sendErr != nil {
		return a.sendErr
	}
	a.sent = append(a.sent, sentMessage{Kind: "text", To: to, Text: text})
	return nil
}

func (a *fakeAdapter) SendImage(_ context.Context, to, url, caption string) error {
	if a.sendErr != nil {
		return a.sendErr
	}
	a.sent = append(a.sent, sentMessage{Kind: "image", To: to, Text: url})
	return nil
}

func (a *fakeAdapter) SendButtons(_ context.Context, to, text string, buttons []channel.Button) error {
	if a.sendErr != nil {
		return a.sendErr
	}
	a.sent = append(a.sent, sentMessage{Kind: "buttons", To: to, Text: text, Buttons: buttons})
	return nil
}

func (a *fakeAdapter) SendList(_ context.Context, to, text, buttonLabel string, items []channel.ListItem) error {
	if a.sendErr != nil {
		return a.sendErr
	}
	a.sent = append(a.sent, sentMessage{Kind: "list", To: to, Text: text, Items: items})
	return nil
}

func (a *fakeAdapter) texts() []string {
	var out []string
	for _, m := range a.sent {
		out = append(out, m.Text)
	}
	return out
}

// fakeStore implements every store-side collaborator interface with plain
// slices, guarded for the concurrency tests.
type fakeStore struct {
	mu            sync.Mutex
	conversations map[string]*Conversation
	messages      []MessageEntry
	flows         map[string]flow.Flow
	records       []Record
	tasks         []Task
	agents        []Agent
	appointments  []Appointment
	knowledge     []KnowledgeEntry

	createErr error
	findErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		conversations: make(map[string]*Conversation),
		flows:         make(map[string]flow.Flow),
	}
}

func (s *fakeStore) CreateConversation(_ context.Context, c *Conversation) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.conversations[c.ID] = &cp
	return nil
}

func (s *fakeStore) UpdateConversation(_ context.Context, c *Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.conversations[c.ID] = &cp
	return nil
}

func (s *fakeStore) FindActiveConversation(_ context.Context, ch, userID string) (*Conversation, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conversations {
		if c.Channel == ch && c.UserID == userID && c.State == ConversationActive {
			cp := *c
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *fakeStore) AppendMessage(_ context.Context, m *MessageEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, *m)
	return nil
}

func (s *fakeStore) ListMessages(_ context.Context, conversationID string) ([]MessageEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []MessageEntry
	for _, m := range s.messages {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *fakeStore) ActiveFlows(_ context.Context, tenantID string) ([]flow.Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []flow.Flow
	for _, f := range s.flows {
		if f.TenantID == tenantID && f.Status == flow.StatusActive {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *fakeStore) GetFlow(_ context.Context, id string) (*flow.Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.flows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &f, nil
}

func (s *fakeStore) addFlow(f flow.Flow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flows[f.ID] = f
}

func (s *fakeStore) SaveRecord(_ context.Context, r *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, *r)
	return nil
}

func (s *fakeStore) CreateTask(_ context.Context, t *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, *t)
	return nil
}

func (s *fakeStore) FirstAvailableAgent(_ context.Context, tenantID string) (*Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.agents {
		if s.agents[i].TenantID == tenantID && s.agents[i].Available {
			return &s.agents[i], nil
		}
	}
	return nil, ErrNotFound
}

func (s *fakeStore) SaveAppointment(_ context.Context, a *Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appointments = append(s.appointments, *a)
	return nil
}

func (s *fakeStore) Search(_ context.Context, tenantID, category, query string, limit int) ([]KnowledgeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []KnowledgeEntry
	for _, k := range s.knowledge {
		if category != "" && k.Category != category {
			continue
		}
		out = append(out, k)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

type fakeCompleter struct {
	reply string
	err   error
}

func (c *fakeCompleter) Complete(_ context.Context, _, _ string) (string, error) {
	return c.reply, c.err
}

type fakeCalendar struct {
	eventID string
	err     error
	created []Event
}

func (c *fakeCalendar) CreateEvent(_ context.Context, _ string, ev Event) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	c.created = append(c.created, ev)
	return c.eventID, nil
}

func testDeps(s *fakeStore) *Collaborators {
	return &Collaborators{
		Conversations: s,
		Flows:         s,
		Records:       s,
		Tasks:         s,
		Appointments:  s,
		Knowledge:     s,
		Completer:     &fakeCompleter{reply: "stub reply"},
		Calendar:      &fakeCalendar{eventID: "evt-1"},
	}
}

func testConversation(flowID string) *Conversation {
	return &Conversation{
		ID:        "conv-1",
		TenantID:  "tenant-1",
		FlowID:    flowID,
		Channel:   "webchat",
		UserID:    "user-1",
		Variables: make(map[string]string),
		State:     ConversationActive,
	}
}

var errBoom = errors.New("boom")
