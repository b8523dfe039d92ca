package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/convoflow/convoflow/flow"
)

type scheduleEventConfig struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	DateVariable    string   `json:"date_variable"` // default event_date
	TimeVariable    string   `json:"time_variable"` // default event_time
	DurationMinutes int      `json:"duration_minutes"`
	Attendees       []string `json:"attendees"`
}

// scheduleEventExecutor books a calendar event from the date/time variables
// collected earlier in the flow, persists an appointment record and sets
// confirmation variables. Any failure sets event_confirmed=false plus an
// error variable instead of aborting the flow.
type scheduleEventExecutor struct{}

func (x *scheduleEventExecutor) Execute(ec *ExecContext, node *flow.Node) (StepResult, error) {
	var cfg scheduleEventConfig
	if err := decodeConfig(node, &cfg); err != nil {
		return StepResult{}, err
	}
	if cfg.DateVariable == "" {
		cfg.DateVariable = "event_date"
	}
	if cfg.TimeVariable == "" {
		cfg.TimeVariable = "event_time"
	}
	if cfg.DurationMinutes <= 0 {
		cfg.DurationMinutes = 60
	}

	date := ec.Var(cfg.DateVariable)
	clock := ec.Var(cfg.TimeVariable)
	if date == "" || clock == "" {
		return x.failed(node, fmt.Sprintf("missing %s or %s variable", cfg.DateVariable, cfg.TimeVariable)), nil
	}

	start, err := parseEventStart(date, clock)
	if err != nil {
		return x.failed(node, err.Error()), nil
	}
	end := start.Add(time.Duration(cfg.DurationMinutes) * time.Minute)

	attendees := make([]string, 0, len(cfg.Attendees))
	for _, a := range cfg.Attendees {
		if v := ec.Interpolated(a); v != "" {
			attendees = append(attendees, v)
		}
	}

	event := Event{
		Title:       ec.Interpolated(cfg.Title),
		Description: ec.Interpolated(cfg.Description),
		Start:       start,
		End:         end,
		Attendees:   attendees,
	}
	eventID, err := ec.Deps.Calendar.CreateEvent(ec, ec.Conversation.TenantID, event)
	if err != nil {
		ec.l.ErrorContext(ec, "calendar event creation failed", "node", node.ID, "error", err)
		return x.failed(node, "calendar event creation failed"), nil
	}

	appointment := &Appointment{
		ID:              uuid.New().String(),
		TenantID:        ec.Conversation.TenantID,
		ConversationID:  ec.Conversation.ID,
		ExternalEventID: eventID,
		Title:           event.Title,
		StartsAt:        start,
		EndsAt:          end,
		CreatedAt:       time.Now(),
	}
	if err := ec.Deps.Appointments.SaveAppointment(ec, appointment); err != nil {
		ec.l.ErrorContext(ec, "appointment persist failed", "node", node.ID, "event_id", eventID, "error", err)
		return x.failed(node, "appointment could not be saved"), nil
	}

	res := continueResult()
	res.VariablePatch = map[string]string{
		"event_confirmed": "true",
		"event_id":        eventID,
	}
	return res, nil
}

func (x *scheduleEventExecutor) failed(node *flow.Node, reason string) StepResult {
	res := continueResult()
	res.VariablePatch = map[string]string{
		"event_confirmed": "false",
		"event_error":     reason,
	}
	return res
}

func parseEventStart(date, clock string) (time.Time, error) {
	var day time.Time
	var err error
	for _, layout := range []string{"2006-01-02", "02/01/2006", "02-01-2006"} {
		if day, err = time.Parse(layout, date); err == nil {
			break
		}
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("unparseable event date %q", date)
	}

	t, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("unparseable event time %q", clock)
	}

	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, time.Local), nil
}
