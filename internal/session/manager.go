package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"github.com/54b3r/coursebot-go/internal/budget"
)

// DefaultMaxHistory is the number of exchanges rendered into the history
// block when Config.MaxHistory is zero.
const DefaultMaxHistory = 2

// Config holds the dependencies required to construct a Manager.
type Config struct {
	// Store persists the history.
	Store Store

	// MaxHistory is the number of most recent exchanges (question + answer)
	// rendered by History. Defaults to DefaultMaxHistory.
	MaxHistory int

	// MaxTokens bounds the rendered history by estimated tokens, dropping
	// whole exchanges oldest first. Zero disables the bound.
	MaxTokens int
}

// Manager creates sessions and renders their history. It is safe for
// concurrent use when its Store is.
type Manager struct {
	store      Store
	maxHistory int
	maxTokens  int
}

// NewManager constructs a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("session: store must not be nil")
	}
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = DefaultMaxHistory
	}
	return &Manager{store: cfg.Store, maxHistory: cfg.MaxHistory, maxTokens: cfg.MaxTokens}, nil
}

// Create registers a new session and returns its id.
func (m *Manager) Create(ctx context.Context) (string, error) {
	id := uuid.NewString()
	if err := m.store.Create(ctx, id); err != nil {
		return "", fmt.Errorf("session: create: %w", err)
	}
	return id, nil
}

// History renders the last MaxHistory exchanges as "User: ...\nAssistant: ..."
// lines. It returns "" for unknown or empty sessions.
func (m *Manager) History(ctx context.Context, sessionID string) (string, error) {
	msgs, err := m.store.Recent(ctx, sessionID, m.maxHistory*2)
	if err != nil {
		return "", fmt.Errorf("session: history: %w", err)
	}
	if len(msgs) == 0 {
		return "", nil
	}

	history := make([]*schema.Message, 0, len(msgs))
	for _, msg := range msgs {
		if msg.Role == RoleAssistant {
			history = append(history, schema.AssistantMessage(msg.Content, nil))
		} else {
			history = append(history, schema.UserMessage(msg.Content))
		}
	}
	history = budget.TrimHistory(history, m.maxTokens)

	lines := make([]string, 0, len(history))
	for _, h := range history {
		label := "User"
		if h.Role == schema.Assistant {
			label = "Assistant"
		}
		lines = append(lines, label+": "+h.Content)
	}
	return strings.Join(lines, "\n"), nil
}

// AddExchange records one question and its answer.
func (m *Manager) AddExchange(ctx context.Context, sessionID, query, answer string) error {
	if err := m.store.Append(ctx, sessionID, RoleUser, query); err != nil {
		return fmt.Errorf("session: add exchange: %w", err)
	}
	if err := m.store.Append(ctx, sessionID, RoleAssistant, answer); err != nil {
		return fmt.Errorf("session: add exchange: %w", err)
	}
	return nil
}

// Clear deletes the session. Unknown ids yield an error wrapping ErrNotFound.
func (m *Manager) Clear(ctx context.Context, sessionID string) error {
	if err := m.store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("session: clear %s: %w", sessionID, err)
	}
	return nil
}

// Close closes the underlying store.
func (m *Manager) Close() error {
	return m.store.Close()
}
