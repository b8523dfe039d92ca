package engine

import (
	"context"
	"testing"

	"github.com/convoflow/convoflow/flow"
)

func newTestEngine(s *fakeStore) *Engine {
	return New(testLogger(), NewConfig(), testDeps(s))
}

// Lead-capture shape: greet, ask for an email with validation, close.
func leadFlow() *flow.Flow {
	return &flow.Flow{
		ID:       "lead",
		TenantID: "tenant-1",
		Status:   flow.StatusActive,
		Trigger:  flow.Trigger{Type: flow.TriggerKeyword, Value: "demo", Channels: []string{"webchat"}},
		Nodes: []flow.Node{
			{ID: "start", Type: flow.NodeStart},
			{ID: "welcome", Type: flow.NodeMessage, Config: map[string]any{"text": "Bienvenido!"}},
			{ID: "ask_email", Type: flow.NodeQuestion, Config: map[string]any{
				"prompt":        "Cual es tu email?",
				"answer_type":   "email",
				"variable":      "email",
				"required":      true,
				"error_message": "Ese email no parece valido.",
			}},
			{ID: "bye", Type: flow.NodeEnd},
		},
		Edges: []flow.Edge{
			{From: "start", To: "welcome"},
			{From: "welcome", To: "ask_email"},
			{From: "ask_email", To: "bye"},
		},
	}
}

func TestEngineStartRunsToQuestionAndWaits(t *testing.T) {
	s := newFakeStore()
	e := newTestEngine(s)
	f := leadFlow()
	conv := testConversation(f.ID)
	adapter := &fakeAdapter{}

	e.Start(context.Background(), conv, f, adapter, "demo")

	if conv.State != ConversationActive {
		t.Fatalf("state = %s, want active", conv.State)
	}
	if conv.CurrentNodeID != "ask_email" {
		t.Fatalf("current node = %s, want ask_email", conv.CurrentNodeID)
	}
	want := []string{"Bienvenido!", "Cual es tu email?"}
	got := adapter.texts()
	if len(got) != len(want) {
		t.Fatalf("sent %d messages %v, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("message %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestEngineResumeInvalidAnswerRepromptsWithoutAdvancing(t *testing.T) {
	s := newFakeStore()
	e := newTestEngine(s)
	f := leadFlow()
	conv := testConversation(f.ID)
	conv.CurrentNodeID = "ask_email"
	adapter := &fakeAdapter{}

	e.Resume(context.Background(), conv, f, adapter, "not-an-email")

	if conv.CurrentNodeID != "ask_email" {
		t.Fatalf("invalid answer advanced the node to %s", conv.CurrentNodeID)
	}
	if conv.State != ConversationActive {
		t.Fatalf("state = %s, want active", conv.State)
	}
	if _, ok := conv.Variables["email"]; ok {
		t.Error("invalid answer was stored")
	}
	if got := adapter.texts(); len(got) != 1 || got[0] != "Ese email no parece valido." {
		t.Errorf("expected re-prompt with error message, got %v", got)
	}
}

func TestEngineResumeValidAnswerStoresAndCompletes(t *testing.T) {
	s := newFakeStore()
	e := newTestEngine(s)
	f := leadFlow()
	conv := testConversation(f.ID)
	conv.CurrentNodeID = "ask_email"
	adapter := &fakeAdapter{}

	e.Resume(context.Background(), conv, f, adapter, "ana@example.com")

	if got := conv.Variables["email"]; got != "ana@example.com" {
		t.Errorf("email variable = %q, want ana@example.com", got)
	}
	if conv.State != ConversationCompleted {
		t.Errorf("state = %s, want completed", conv.State)
	}
}

func TestEngineConditionRouting(t *testing.T) {
	f := &flow.Flow{
		ID:       "routing",
		TenantID: "tenant-1",
		Nodes: []flow.Node{
			{ID: "start", Type: flow.NodeStart},
			{ID: "check", Type: flow.NodeCondition, Config: map[string]any{
				"variable": "tipo_reunion",
				"operator": "equals",
				"value":    "presencial",
			}},
			{ID: "office", Type: flow.NodeMessage, Config: map[string]any{"text": "Te esperamos en la oficina."}},
			{ID: "video", Type: flow.NodeMessage, Config: map[string]any{"text": "Te enviamos el enlace."}},
			{ID: "done", Type: flow.NodeEnd},
		},
		Edges: []flow.Edge{
			{From: "start", To: "check"},
			{From: "check", To: "office", Condition: flow.EdgeConditionTrue},
			{From: "check", To: "video", Condition: flow.EdgeConditionFalse},
			{From: "office", To: "done"},
			{From: "video", To: "done"},
		},
	}

	tests := []struct {
		name string
		tipo string
		want string
	}{
		{"presencial goes to office", "presencial", "Te esperamos en la oficina."},
		{"virtual goes to video", "virtual", "Te enviamos el enlace."},
		{"unset goes to false branch", "", "Te enviamos el enlace."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newFakeStore()
			e := newTestEngine(s)
			conv := testConversation(f.ID)
			if tt.tipo != "" {
				conv.SetVariable("tipo_reunion", tt.tipo)
			}
			adapter := &fakeAdapter{}

			e.Start(context.Background(), conv, f, adapter, "hola")

			got := adapter.texts()
			if len(got) != 1 || got[0] != tt.want {
				t.Errorf("sent %v, want [%q]", got, tt.want)
			}
			if conv.State != ConversationCompleted {
				t.Errorf("state = %s, want completed", conv.State)
			}
		})
	}
}

func TestEngineButtonsPauseAndButtonEdgeResume(t *testing.T) {
	f := &flow.Flow{
		ID:       "menu",
		TenantID: "tenant-1",
		Nodes: []flow.Node{
			{ID: "start", Type: flow.NodeStart},
			{ID: "menu", Type: flow.NodeMessage, Config: map[string]any{
				"kind": "buttons",
				"text": "Que necesitas?",
				"buttons": []map[string]any{
					{"id": "opt_sales", "label": "Ventas"},
					{"id": "opt_support", "label": "Soporte"},
					{"id": "opt_other", "label": "Otro"},
				},
			}},
			{ID: "sales", Type: flow.NodeEnd, Config: map[string]any{"message": "Ventas te contacta."}},
			{ID: "support", Type: flow.NodeEnd, Config: map[string]any{"message": "Soporte te contacta."}},
			{ID: "fallback", Type: flow.NodeEnd, Config: map[string]any{"message": "Un agente te contacta."}},
		},
		Edges: []flow.Edge{
			{From: "start", To: "menu"},
			{From: "menu", To: "sales", Condition: flow.EdgeButton, Value: "opt_sales"},
			{From: "menu", To: "support", Condition: flow.EdgeButton, Value: "opt_support"},
			{From: "menu", To: "fallback"},
		},
	}

	s := newFakeStore()
	e := newTestEngine(s)
	conv := testConversation(f.ID)
	adapter := &fakeAdapter{}

	e.Start(context.Background(), conv, f, adapter, "hola")
	if conv.CurrentNodeID != "menu" || conv.State != ConversationActive {
		t.Fatalf("expected pause at menu, got node=%s state=%s", conv.CurrentNodeID, conv.State)
	}
	if len(adapter.sent) != 1 || adapter.sent[0].Kind != "buttons" || len(adapter.sent[0].Buttons) != 3 {
		t.Fatalf("expected one 3-button message, got %+v", adapter.sent)
	}

	t.Run("button reply follows its edge", func(t *testing.T) {
		c := testConversation(f.ID)
		c.CurrentNodeID = "menu"
		a := &fakeAdapter{}
		e.Resume(context.Background(), c, f, a, "opt_support")
		if got := a.texts(); len(got) != 1 || got[0] != "Soporte te contacta." {
			t.Errorf("sent %v, want support closing", got)
		}
	})

	t.Run("free text falls through to default", func(t *testing.T) {
		c := testConversation(f.ID)
		c.CurrentNodeID = "menu"
		a := &fakeAdapter{}
		e.Resume(context.Background(), c, f, a, "no estoy seguro")
		if got := a.texts(); len(got) != 1 || got[0] != "Un agente te contacta." {
			t.Errorf("sent %v, want fallback closing", got)
		}
	})
}

func TestEngineStepLimitForcesCompletion(t *testing.T) {
	// two set_variable nodes pointing at each other never pause
	f := &flow.Flow{
		ID:       "loop",
		TenantID: "tenant-1",
		Nodes: []flow.Node{
			{ID: "start", Type: flow.NodeStart},
			{ID: "a", Type: flow.NodeSetVariable, Config: map[string]any{"variable": "x", "value": "1"}},
			{ID: "b", Type: flow.NodeSetVariable, Config: map[string]any{"variable": "x", "value": "2"}},
		},
		Edges: []flow.Edge{
			{From: "start", To: "a"},
			{From: "a", To: "b"},
			{From: "b", To: "a"},
		},
	}

	s := newFakeStore()
	e := newTestEngine(s)
	conv := testConversation(f.ID)

	e.Start(context.Background(), conv, f, &fakeAdapter{}, "hola")

	if conv.State != ConversationCompleted {
		t.Fatalf("state = %s, want completed", conv.State)
	}
	if got := conv.Metadata["end_reason"]; got != "step_limit" {
		t.Errorf("end_reason = %q, want step_limit", got)
	}
}

func TestEngineScheduleEventMissingVariablesContinues(t *testing.T) {
	f := &flow.Flow{
		ID:       "booking",
		TenantID: "tenant-1",
		Nodes: []flow.Node{
			{ID: "start", Type: flow.NodeStart},
			{ID: "book", Type: flow.NodeScheduleEvent, Config: map[string]any{"title": "Demo"}},
			{ID: "done", Type: flow.NodeEnd, Config: map[string]any{"message": "Listo."}},
		},
		Edges: []flow.Edge{
			{From: "start", To: "book"},
			{From: "book", To: "done"},
		},
	}

	s := newFakeStore()
	e := newTestEngine(s)
	conv := testConversation(f.ID)
	adapter := &fakeAdapter{}

	e.Start(context.Background(), conv, f, adapter, "agenda")

	if got := conv.Variables["event_confirmed"]; got != "false" {
		t.Errorf("event_confirmed = %q, want false", got)
	}
	if conv.Variables["event_error"] == "" {
		t.Error("event_error should describe the failure")
	}
	if conv.State != ConversationCompleted {
		t.Errorf("flow should continue through to the end node, state = %s", conv.State)
	}
	if got := adapter.texts(); len(got) != 1 || got[0] != "Listo." {
		t.Errorf("sent %v, want the end-node message", got)
	}
}

func TestEngineScheduleEventSuccess(t *testing.T) {
	f := &flow.Flow{
		ID:       "booking",
		TenantID: "tenant-1",
		Nodes: []flow.Node{
			{ID: "start", Type: flow.NodeStart},
			{ID: "book", Type: flow.NodeScheduleEvent, Config: map[string]any{
				"title":            "Demo con {{nombre}}",
				"duration_minutes": 30,
			}},
			{ID: "done", Type: flow.NodeEnd},
		},
		Edges: []flow.Edge{
			{From: "start", To: "book"},
			{From: "book", To: "done"},
		},
	}

	s := newFakeStore()
	deps := testDeps(s)
	cal := &fakeCalendar{eventID: "evt-42"}
	deps.Calendar = cal
	e := New(testLogger(), NewConfig(), deps)

	conv := testConversation(f.ID)
	conv.SetVariable("nombre", "Ana")
	conv.SetVariable("event_date", "2026-09-15")
	conv.SetVariable("event_time", "10:30")

	e.Start(context.Background(), conv, f, &fakeAdapter{}, "agenda")

	if got := conv.Variables["event_confirmed"]; got != "true" {
		t.Fatalf("event_confirmed = %q, want true", got)
	}
	if got := conv.Variables["event_id"]; got != "evt-42" {
		t.Errorf("event_id = %q, want evt-42", got)
	}
	if len(cal.created) != 1 {
		t.Fatalf("created %d events, want 1", len(cal.created))
	}
	ev := cal.created[0]
	if ev.Title != "Demo con Ana" {
		t.Errorf("event title = %q", ev.Title)
	}
	if ev.End.Sub(ev.Start).Minutes() != 30 {
		t.Errorf("event duration = %v, want 30m", ev.End.Sub(ev.Start))
	}
	if len(s.appointments) != 1 || s.appointments[0].ExternalEventID != "evt-42" {
		t.Errorf("appointment not persisted: %+v", s.appointments)
	}
}

func TestEngineAwaitFreeTextStoresTrimmedInput(t *testing.T) {
	f := &flow.Flow{
		ID:       "notes",
		TenantID: "tenant-1",
		Nodes: []flow.Node{
			{ID: "start", Type: flow.NodeStart},
			{ID: "wait", Type: flow.NodeAwaitFreeText, Config: map[string]any{
				"prompt":   "Cuentanos mas.",
				"variable": "detalle",
			}},
			{ID: "done", Type: flow.NodeEnd},
		},
		Edges: []flow.Edge{
			{From: "start", To: "wait"},
			{From: "wait", To: "done"},
		},
	}

	s := newFakeStore()
	e := newTestEngine(s)
	conv := testConversation(f.ID)
	adapter := &fakeAdapter{}

	e.Start(context.Background(), conv, f, adapter, "hola")
	if conv.CurrentNodeID != "wait" {
		t.Fatalf("expected pause at wait, got %s", conv.CurrentNodeID)
	}

	e.Resume(context.Background(), conv, f, adapter, "  necesito ayuda con facturas  ")
	if got := conv.Variables["detalle"]; got != "necesito ayuda con facturas" {
		t.Errorf("detalle = %q, want trimmed input", got)
	}
	if conv.State != ConversationCompleted {
		t.Errorf("state = %s, want completed", conv.State)
	}
}

func TestEngineHandoffTransfersConversation(t *testing.T) {
	f := &flow.Flow{
		ID:       "escalate",
		TenantID: "tenant-1",
		Nodes: []flow.Node{
			{ID: "start", Type: flow.NodeStart},
			{ID: "human", Type: flow.NodeHandoff},
		},
		Edges: []flow.Edge{{From: "start", To: "human"}},
	}

	s := newFakeStore()
	e := newTestEngine(s)
	conv := testConversation(f.ID)
	adapter := &fakeAdapter{}

	e.Start(context.Background(), conv, f, adapter, "agente")

	if conv.State != ConversationTransferred {
		t.Fatalf("state = %s, want transferred", conv.State)
	}
	if got := adapter.texts(); len(got) != 1 || got[0] != defaultHandoffMessage {
		t.Errorf("sent %v, want default handoff message", got)
	}
}

func TestEngineResumeMissingNodeFinalizes(t *testing.T) {
	f := leadFlow()
	s := newFakeStore()
	e := newTestEngine(s)
	conv := testConversation(f.ID)
	conv.CurrentNodeID = "deleted_node"

	e.Resume(context.Background(), conv, f, &fakeAdapter{}, "hola")

	if conv.State != ConversationCompleted {
		t.Fatalf("state = %s, want completed", conv.State)
	}
	if got := conv.Metadata["end_reason"]; got != "missing_node" {
		t.Errorf("end_reason = %q, want missing_node", got)
	}
}

func TestEnginePersistRecordWritesInterpolatedFields(t *testing.T) {
	f := &flow.Flow{
		ID:       "capture",
		TenantID: "tenant-1",
		Nodes: []flow.Node{
			{ID: "start", Type: flow.NodeStart},
			{ID: "save", Type: flow.NodePersistRecord, Config: map[string]any{
				"collection": "leads",
				"fields": map[string]any{
					"name":  "{{nombre}}",
					"email": "{{email}}",
				},
			}},
			{ID: "done", Type: flow.NodeEnd},
		},
		Edges: []flow.Edge{
			{From: "start", To: "save"},
			{From: "save", To: "done"},
		},
	}

	s := newFakeStore()
	e := newTestEngine(s)
	conv := testConversation(f.ID)
	conv.SetVariable("nombre", "Ana")
	conv.SetVariable("email", "ana@example.com")

	e.Start(context.Background(), conv, f, &fakeAdapter{}, "hola")

	if len(s.records) != 1 {
		t.Fatalf("saved %d records, want 1", len(s.records))
	}
	r := s.records[0]
	if r.Collection != "leads" || r.TenantID != "tenant-1" {
		t.Errorf("record = %+v", r)
	}
	if r.Fields["name"] != "Ana" || r.Fields["email"] != "ana@example.com" {
		t.Errorf("fields not interpolated: %v", r.Fields)
	}
}

func TestEngineMessageLogRecordsBothDirections(t *testing.T) {
	f := leadFlow()
	s := newFakeStore()
	e := newTestEngine(s)
	conv := testConversation(f.ID)

	e.Start(context.Background(), conv, f, &fakeAdapter{}, "demo")

	entries, err := s.ListMessages(context.Background(), conv.ID)
	if err != nil {
		t.Fatal(err)
	}
	var in, out int
	for _, m := range entries {
		switch m.Direction {
		case DirectionIn:
			in++
		case DirectionOut:
			out++
		}
	}
	if in != 1 {
		t.Errorf("inbound entries = %d, want 1", in)
	}
	if out != 2 {
		t.Errorf("outbound entries = %d, want 2 (welcome + prompt)", out)
	}
}
