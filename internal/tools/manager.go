package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/54b3r/coursebot-go/internal/llm"
	"github.com/54b3r/coursebot-go/internal/logging"
)

// registry is the tool table shared between a Manager and its scopes.
type registry struct {
	mu     sync.RWMutex
	order  []string
	byName map[string]Tool
}

// Manager dispatches tool calls by name and remembers the sources produced
// by the most recent call that reported any. Scope returns a Manager with its
// own source buffer over the same registry, one per query.
type Manager struct {
	reg *registry

	mu      sync.Mutex
	sources []Source
}

// NewManager returns a Manager with the given tools registered in order.
func NewManager(tools ...Tool) (*Manager, error) {
	m := &Manager{reg: &registry{byName: make(map[string]Tool)}}
	for _, t := range tools {
		if err := m.Register(t); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Register adds a tool. Empty and duplicate names are rejected.
func (m *Manager) Register(t Tool) error {
	if t == nil {
		return fmt.Errorf("tools: tool must not be nil")
	}
	name := t.Name()
	if name == "" {
		return fmt.Errorf("tools: tool name must not be empty")
	}

	m.reg.mu.Lock()
	defer m.reg.mu.Unlock()
	if _, exists := m.reg.byName[name]; exists {
		return fmt.Errorf("tools: tool %q already registered", name)
	}
	m.reg.byName[name] = t
	m.reg.order = append(m.reg.order, name)
	return nil
}

// Definitions returns every tool's schema in registration order.
func (m *Manager) Definitions() []llm.ToolDefinition {
	m.reg.mu.RLock()
	defer m.reg.mu.RUnlock()

	defs := make([]llm.ToolDefinition, 0, len(m.reg.order))
	for _, name := range m.reg.order {
		defs = append(defs, m.reg.byName[name].Definition())
	}
	return defs
}

// Execute runs the named tool. An unknown name is reported in-band so the
// model can recover. A non-empty source list replaces the buffer.
func (m *Manager) Execute(ctx context.Context, name string, input json.RawMessage) (string, error) {
	m.reg.mu.RLock()
	t, ok := m.reg.byName[name]
	m.reg.mu.RUnlock()

	log := logging.FromContext(ctx)
	if !ok {
		log.Warn("unknown tool requested", "tool", name)
		return fmt.Sprintf("Tool '%s' not found", name), nil
	}

	log.Debug("executing tool", "tool", name)
	res, err := t.Execute(ctx, input)
	if err != nil {
		return "", fmt.Errorf("tools: %s failed: %w", name, err)
	}

	if len(res.Sources) > 0 {
		m.mu.Lock()
		m.sources = append([]Source(nil), res.Sources...)
		m.mu.Unlock()
	}
	log.Debug("tool finished", "tool", name, "sources", len(res.Sources), "bytes", len(res.Text))
	return res.Text, nil
}

// LastSources returns a copy of the buffered sources. The result is empty,
// never nil, when nothing is buffered.
func (m *Manager) LastSources() []Source {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Source{}, m.sources...)
}

// ResetSources clears the source buffer.
func (m *Manager) ResetSources() {
	m.mu.Lock()
	m.sources = nil
	m.mu.Unlock()
}

// Scope returns a Manager sharing this registry with an empty source buffer.
func (m *Manager) Scope() *Manager {
	return &Manager{reg: m.reg}
}
