package flow

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

const sampleYAML = `
id: booking
tenant_id: t1
name: Booking flow
status: active
trigger:
  type: keyword
  value: reservar
  channels: [whatsapp, webchat]
nodes:
  - id: start
    type: start
  - id: ask_date
    type: question
    config:
      prompt: "When do you want to come?"
      answer_type: date
      variable: event_date
  - id: bye
    type: end
    config:
      message: "See you on {{event_date}}!"
edges:
  - {from: start, to: ask_date}
  - {from: ask_date, to: bye}
variables:
  - {name: event_date, type: date}
`

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "booking.yaml"), []byte(sampleYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	flows, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f, ok := flows["booking"]
	if !ok {
		t.Fatalf("flow booking not loaded, got %v", flows)
	}
	if f.Status != StatusActive {
		t.Errorf("got status %q, want active", f.Status)
	}
	if got := len(f.Nodes); got != 3 {
		t.Errorf("got %d nodes, want 3", got)
	}
	if f.Trigger.Type != TriggerKeyword || f.Trigger.Value != "reservar" {
		t.Errorf("trigger not parsed: %+v", f.Trigger)
	}
	q := f.NodeByID("ask_date")
	if q == nil || q.Config["answer_type"] != "date" {
		t.Errorf("question config not parsed: %+v", q)
	}
}

func TestParseRejectsInvalidFlow(t *testing.T) {
	_, err := Parse([]byte("id: broken\ntenant_id: t1\nnodes:\n  - {id: a, type: message}\n"))
	if err == nil {
		t.Fatal("expected validation error for flow without start node")
	}
}

func TestParseDefaultsToDraft(t *testing.T) {
	f, err := Parse([]byte("id: d\ntenant_id: t1\nnodes:\n  - {id: s, type: start}\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Status != StatusDraft {
		t.Errorf("got status %q, want draft", f.Status)
	}
}

// Stored definitions must survive a JSON round-trip unchanged; the store
// persists flows as JSON documents.
func TestFlowJSONRoundTrip(t *testing.T) {
	f, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Flow
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !reflect.DeepEqual(f, back) {
		t.Errorf("round-trip mismatch:\n got %+v\nwant %+v", back, f)
	}
}
