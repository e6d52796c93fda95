// Package session tracks per-session conversation history. A Manager hands
// out session ids, records each question/answer exchange and renders the
// most recent exchanges as a plain-text history block for the system prompt.
// History is kept in a Store: in memory for the CLI and tests, or in SQLite
// so it survives server restarts.
package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a session id is unknown.
var ErrNotFound = errors.New("session: not found")

// Role identifies the author of a history message.
type Role string

const (
	// RoleUser is a question asked by the user.
	RoleUser Role = "user"
	// RoleAssistant is an answer produced by the assistant.
	RoleAssistant Role = "assistant"
)

// Message is a single turn in a session.
type Message struct {
	// Role is the author of the message.
	Role Role
	// Content is the text of the message.
	Content string
	// CreatedAt is when the message was recorded.
	CreatedAt time.Time
}

// Store persists session history. Implementations must be safe for
// concurrent use.
type Store interface {
	// Create registers an empty session. Creating an existing id is a no-op.
	Create(ctx context.Context, sessionID string) error
	// Append records a message, creating the session if needed.
	Append(ctx context.Context, sessionID string, role Role, content string) error
	// Recent returns the most recent n messages of the session, oldest
	// first. Unknown sessions yield no messages and no error.
	Recent(ctx context.Context, sessionID string, n int) ([]Message, error)
	// Delete removes the session and its history. It returns ErrNotFound
	// for unknown ids.
	Delete(ctx context.Context, sessionID string) error
	// Close releases any resources held by the store.
	Close() error
}
