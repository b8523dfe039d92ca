package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/convoflow/convoflow/engine"
	"github.com/convoflow/convoflow/flow"
)

// Postgres implements every engine store interface on a pgx pool. Flow
// definitions and variable maps are stored as JSONB documents so they
// round-trip losslessly.
type Postgres struct {
	db *pgxpool.Pool
}

func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{db: db}
}

const schema = `
CREATE TABLE IF NOT EXISTS flows (
	id          TEXT PRIMARY KEY,
	tenant_id   TEXT NOT NULL,
	status      TEXT NOT NULL,
	definition  JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS flows_tenant_idx ON flows (tenant_id, status);

CREATE TABLE IF NOT EXISTS conversations (
	id              TEXT PRIMARY KEY,
	tenant_id       TEXT NOT NULL,
	flow_id         TEXT NOT NULL,
	channel         TEXT NOT NULL,
	user_id         TEXT NOT NULL,
	current_node_id TEXT NOT NULL,
	variables       JSONB NOT NULL DEFAULT '{}',
	state           TEXT NOT NULL,
	metadata        JSONB NOT NULL DEFAULT '{}',
	created_at      TIMESTAMPTZ NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS conversations_active_idx ON conversations (channel, user_id) WHERE state = 'active';

CREATE TABLE IF NOT EXISTS messages (
	id              TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL,
	direction       TEXT NOT NULL,
	content         TEXT NOT NULL,
	node_id         TEXT,
	created_at      TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS messages_conversation_idx ON messages (conversation_id, created_at);

CREATE TABLE IF NOT EXISTS records (
	id              TEXT PRIMARY KEY,
	tenant_id       TEXT NOT NULL,
	conversation_id TEXT NOT NULL,
	collection      TEXT NOT NULL,
	fields          JSONB NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
	id              TEXT PRIMARY KEY,
	tenant_id       TEXT NOT NULL,
	conversation_id TEXT NOT NULL,
	assignee_id     TEXT NOT NULL,
	title           TEXT NOT NULL,
	description     TEXT,
	created_at      TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS agents (
	id        TEXT PRIMARY KEY,
	tenant_id TEXT NOT NULL,
	name      TEXT NOT NULL,
	available BOOLEAN NOT NULL DEFAULT true
);

CREATE TABLE IF NOT EXISTS appointments (
	id                TEXT PRIMARY KEY,
	tenant_id         TEXT NOT NULL,
	conversation_id   TEXT NOT NULL,
	external_event_id TEXT NOT NULL,
	title             TEXT,
	starts_at         TIMESTAMPTZ NOT NULL,
	ends_at           TIMESTAMPTZ NOT NULL,
	created_at        TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS knowledge (
	id         TEXT PRIMARY KEY,
	tenant_id  TEXT NOT NULL,
	title      TEXT NOT NULL,
	content    TEXT NOT NULL,
	category   TEXT,
	confidence DOUBLE PRECISION NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS knowledge_tenant_idx ON knowledge (tenant_id, category);
`

// Init creates the schema if it does not exist.
func (s *Postgres) Init(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

func (s *Postgres) CreateConversation(ctx context.Context, c *engine.Conversation) error {
	vars, meta, err := marshalConversationDocs(c)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO conversations (id, tenant_id, flow_id, channel, user_id, current_node_id, variables, state, metadata, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		c.ID, c.TenantID, c.FlowID, c.Channel, c.UserID, c.CurrentNodeID, vars, string(c.State), meta, c.CreatedAt, c.UpdatedAt)
	return err
}

func (s *Postgres) UpdateConversation(ctx context.Context, c *engine.Conversation) error {
	vars, meta, err := marshalConversationDocs(c)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx,
		`UPDATE conversations SET current_node_id = $1, variables = $2, state = $3, metadata = $4, updated_at = $5 WHERE id = $6`,
		c.CurrentNodeID, vars, string(c.State), meta, c.UpdatedAt, c.ID)
	return err
}

func (s *Postgres) FindActiveConversation(ctx context.Context, channel, userID string) (*engine.Conversation, error) {
	var (
		c          engine.Conversation
		vars, meta []byte
		state      string
	)
	err := s.db.QueryRow(ctx,
		`SELECT id, tenant_id, flow_id, channel, user_id, current_node_id, variables, state, metadata, created_at, updated_at
		 FROM conversations WHERE channel = $1 AND user_id = $2 AND state = 'active'
		 ORDER BY created_at DESC LIMIT 1`,
		channel, userID).
		Scan(&c.ID, &c.TenantID, &c.FlowID, &c.Channel, &c.UserID, &c.CurrentNodeID, &vars, &state, &meta, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, engine.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	c.State = engine.ConversationState(state)
	if err := json.Unmarshal(vars, &c.Variables); err != nil {
		return nil, fmt.Errorf("failed to decode variables: %w", err)
	}
	if err := json.Unmarshal(meta, &c.Metadata); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	return &c, nil
}

func (s *Postgres) AppendMessage(ctx context.Context, m *engine.MessageEntry) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO messages (id, conversation_id, direction, content, node_id, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, m.ConversationID, string(m.Direction), m.Content, m.NodeID, m.CreatedAt)
	return err
}

func (s *Postgres) ListMessages(ctx context.Context, conversationID string) ([]engine.MessageEntry, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, conversation_id, direction, content, node_id, created_at FROM messages WHERE conversation_id = $1 ORDER BY created_at`,
		conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.MessageEntry
	for rows.Next() {
		var (
			m         engine.MessageEntry
			direction string
		)
		if err := rows.Scan(&m.ID, &m.ConversationID, &direction, &m.Content, &m.NodeID, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Direction = engine.Direction(direction)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Postgres) SaveFlow(ctx context.Context, f flow.Flow) error {
	definition, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to encode flow definition: %w", err)
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO flows (id, tenant_id, status, definition) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET tenant_id = $2, status = $3, definition = $4`,
		f.ID, f.TenantID, string(f.Status), definition)
	return err
}

func (s *Postgres) GetFlow(ctx context.Context, id string) (*flow.Flow, error) {
	var definition []byte
	err := s.db.QueryRow(ctx, `SELECT definition FROM flows WHERE id = $1`, id).Scan(&definition)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, engine.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var f flow.Flow
	if err := json.Unmarshal(definition, &f); err != nil {
		return nil, fmt.Errorf("failed to decode flow definition: %w", err)
	}
	return &f, nil
}

func (s *Postgres) ActiveFlows(ctx context.Context, tenantID string) ([]flow.Flow, error) {
	rows, err := s.db.Query(ctx,
		`SELECT definition FROM flows WHERE tenant_id = $1 AND status = 'active' ORDER BY id`,
		tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []flow.Flow
	for rows.Next() {
		var definition []byte
		if err := rows.Scan(&definition); err != nil {
			return nil, err
		}
		var f flow.Flow
		if err := json.Unmarshal(definition, &f); err != nil {
			return nil, fmt.Errorf("failed to decode flow definition: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *Postgres) SaveRecord(ctx context.Context, r *engine.Record) error {
	fields, err := json.Marshal(r.Fields)
	if err != nil {
		return fmt.Errorf("failed to encode record fields: %w", err)
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO records (id, tenant_id, conversation_id, collection, fields, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		r.ID, r.TenantID, r.ConversationID, r.Collection, fields, r.CreatedAt)
	return err
}

func (s *Postgres) CreateTask(ctx context.Context, t *engine.Task) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO tasks (id, tenant_id, conversation_id, assignee_id, title, description, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.ID, t.TenantID, t.ConversationID, t.AssigneeID, t.Title, t.Description, t.CreatedAt)
	return err
}

func (s *Postgres) FirstAvailableAgent(ctx context.Context, tenantID string) (*engine.Agent, error) {
	var a engine.Agent
	err := s.db.QueryRow(ctx,
		`SELECT id, tenant_id, name, available FROM agents WHERE tenant_id = $1 AND available ORDER BY id LIMIT 1`,
		tenantID).
		Scan(&a.ID, &a.TenantID, &a.Name, &a.Available)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, engine.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Postgres) SaveAppointment(ctx context.Context, a *engine.Appointment) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO appointments (id, tenant_id, conversation_id, external_event_id, title, starts_at, ends_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.TenantID, a.ConversationID, a.ExternalEventID, a.Title, a.StartsAt, a.EndsAt, a.CreatedAt)
	return err
}

func (s *Postgres) Search(ctx context.Context, tenantID, category, query string, limit int) ([]engine.KnowledgeEntry, error) {
	rows, err := s.db.Query(ctx,
		`SELECT title, content, COALESCE(category, ''), confidence FROM knowledge
		 WHERE tenant_id = $1
		   AND ($2 = '' OR category ILIKE $2)
		   AND ($3 = '' OR title ILIKE '%' || $3 || '%' OR content ILIKE '%' || $3 || '%')
		 ORDER BY confidence DESC LIMIT $4`,
		tenantID, category, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.KnowledgeEntry
	for rows.Next() {
		var e engine.KnowledgeEntry
		if err := rows.Scan(&e.Title, &e.Content, &e.Category, &e.Confidence); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func marshalConversationDocs(c *engine.Conversation) (vars, meta []byte, err error) {
	if vars, err = json.Marshal(c.Variables); err != nil {
		return nil, nil, fmt.Errorf("failed to encode variables: %w", err)
	}
	if c.Metadata == nil {
		meta = []byte("{}")
	} else if meta, err = json.Marshal(c.Metadata); err != nil {
		return nil, nil, fmt.Errorf("failed to encode metadata: %w", err)
	}
	return vars, meta, nil
}
