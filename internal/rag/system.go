// Package rag is the top-level orchestrator of the course assistant. A System
// turns a user question into a prompt, pulls session history, runs the
// generator with the course tools, collects the sources the tools reported
// and records the exchange in the session.
package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/54b3r/coursebot-go/internal/generator"
	"github.com/54b3r/coursebot-go/internal/llm"
	"github.com/54b3r/coursebot-go/internal/logging"
	"github.com/54b3r/coursebot-go/internal/tools"
)

// promptPrefix frames every user question for the model.
const promptPrefix = "Answer this question about course materials: "

// Generator produces an answer, optionally calling tools through executor.
type Generator interface {
	GenerateResponse(ctx context.Context, query, history string, defs []llm.ToolDefinition, executor generator.ToolExecutor) (string, error)
}

// ToolManager dispatches tool calls and buffers the sources they report.
type ToolManager interface {
	Definitions() []llm.ToolDefinition
	Execute(ctx context.Context, name string, input json.RawMessage) (string, error)
	LastSources() []tools.Source
	ResetSources()
}

// scoper is implemented by tool managers that can hand out a per-query
// source buffer.
type scoper interface {
	Scope() *tools.Manager
}

// SessionStore tracks per-session conversation history.
type SessionStore interface {
	Create(ctx context.Context) (string, error)
	History(ctx context.Context, sessionID string) (string, error)
	AddExchange(ctx context.Context, sessionID, query, answer string) error
	Clear(ctx context.Context, sessionID string) error
}

// Catalog exposes course listing accessors for analytics.
type Catalog interface {
	CourseTitles(ctx context.Context) ([]string, error)
	CourseCount(ctx context.Context) (int, error)
}

// Analytics summarises the indexed course catalog.
type Analytics struct {
	// TotalCourses is the number of indexed courses.
	TotalCourses int `json:"total_courses"`
	// CourseTitles lists every indexed course title.
	CourseTitles []string `json:"course_titles"`
}

// Config holds the dependencies required to construct a System.
type Config struct {
	// Generator runs the model exchange.
	Generator Generator

	// Tools is the tool registry offered to the model. When it implements
	// Scope, every query gets its own source buffer.
	Tools ToolManager

	// Sessions stores conversation history.
	Sessions SessionStore

	// Catalog backs Analytics. May be nil, in which case Analytics fails.
	Catalog Catalog
}

// System is the query entry point. It is safe for concurrent use when the
// tool manager supports Scope.
type System struct {
	generator Generator
	tools     ToolManager
	sessions  SessionStore
	catalog   Catalog
}

// New constructs a System.
func New(cfg Config) (*System, error) {
	if cfg.Generator == nil {
		return nil, fmt.Errorf("rag: generator must not be nil")
	}
	if cfg.Tools == nil {
		return nil, fmt.Errorf("rag: tool manager must not be nil")
	}
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("rag: session store must not be nil")
	}
	return &System{
		generator: cfg.Generator,
		tools:     cfg.Tools,
		sessions:  cfg.Sessions,
		catalog:   cfg.Catalog,
	}, nil
}

// Query answers text and returns the answer with the sources the tools
// reported. An empty sessionID runs the query without history and records
// nothing.
func (s *System) Query(ctx context.Context, text, sessionID string) (string, []tools.Source, error) {
	log := logging.FromContext(ctx)
	start := time.Now()

	var history string
	if sessionID != "" {
		h, err := s.sessions.History(ctx, sessionID)
		if err != nil {
			return "", nil, fmt.Errorf("rag: load history: %w", err)
		}
		history = h
	}

	mgr := s.tools
	if sc, ok := mgr.(scoper); ok {
		mgr = sc.Scope()
	}

	answer, err := s.generator.GenerateResponse(ctx, promptPrefix+text, history, mgr.Definitions(), mgr)
	if err != nil {
		return "", nil, fmt.Errorf("rag: generate: %w", err)
	}

	sources := mgr.LastSources()
	mgr.ResetSources()

	if sessionID != "" {
		if err := s.sessions.AddExchange(ctx, sessionID, text, answer); err != nil {
			return "", nil, fmt.Errorf("rag: record exchange: %w", err)
		}
	}

	log.Debug("query answered",
		"session", sessionID,
		"sources", len(sources),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return answer, sources, nil
}

// NewSession creates a session and returns its id.
func (s *System) NewSession(ctx context.Context) (string, error) {
	id, err := s.sessions.Create(ctx)
	if err != nil {
		return "", fmt.Errorf("rag: new session: %w", err)
	}
	return id, nil
}

// ClearSession deletes a session's history.
func (s *System) ClearSession(ctx context.Context, sessionID string) error {
	if err := s.sessions.Clear(ctx, sessionID); err != nil {
		return fmt.Errorf("rag: clear session: %w", err)
	}
	return nil
}

// Analytics reports the course count and titles.
func (s *System) Analytics(ctx context.Context) (Analytics, error) {
	if s.catalog == nil {
		return Analytics{}, fmt.Errorf("rag: no course catalog configured")
	}
	n, err := s.catalog.CourseCount(ctx)
	if err != nil {
		return Analytics{}, fmt.Errorf("rag: course count: %w", err)
	}
	titles, err := s.catalog.CourseTitles(ctx)
	if err != nil {
		return Analytics{}, fmt.Errorf("rag: course titles: %w", err)
	}
	return Analytics{TotalCourses: n, CourseTitles: titles}, nil
}
