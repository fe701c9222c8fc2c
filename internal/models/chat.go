// Package models defines the data structures used across coinchat
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Sender identifies who produced a conversation entry.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// ConversationEntry is one message in a session's conversation.
// Entries are immutable once created and only ever appended.
type ConversationEntry struct {
	Sender Sender `json:"sender"`
	Text   string `json:"text"`
}

// Holding is one portfolio position for API responses.
type Holding struct {
	Symbol   string  `json:"symbol"`
	Quantity float64 `json:"quantity"`
}

// Portfolio maps lowercase coin symbols to held quantities while preserving
// insertion order. Adding an existing symbol overwrites the quantity but
// keeps its original position.
type Portfolio struct {
	quantities map[string]float64
	order      []string
}

// NewPortfolio creates an empty portfolio.
func NewPortfolio() *Portfolio {
	return &Portfolio{
		quantities: make(map[string]float64),
	}
}

// Set upserts a holding. The symbol is lowercased; quantities replace any
// prior value rather than accumulating.
func (p *Portfolio) Set(symbol string, quantity float64) {
	key := strings.ToLower(symbol)
	if _, ok := p.quantities[key]; !ok {
		p.order = append(p.order, key)
	}
	p.quantities[key] = quantity
}

// Get returns the held quantity for a symbol.
func (p *Portfolio) Get(symbol string) (float64, bool) {
	qty, ok := p.quantities[strings.ToLower(symbol)]
	return qty, ok
}

// Symbols returns the held symbols in insertion order.
func (p *Portfolio) Symbols() []string {
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

// Holdings returns all positions in insertion order.
func (p *Portfolio) Holdings() []Holding {
	out := make([]Holding, 0, len(p.order))
	for _, sym := range p.order {
		out = append(out, Holding{Symbol: sym, Quantity: p.quantities[sym]})
	}
	return out
}

// Len returns the number of held symbols.
func (p *Portfolio) Len() int {
	return len(p.order)
}

// Session holds the in-memory state of one open conversation. It lives for
// the lifetime of the session only; nothing is persisted.
type Session struct {
	ID           string              `json:"id"`
	Conversation []ConversationEntry `json:"conversation"`
	Portfolio    *Portfolio          `json:"-"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// NewSession creates an empty session with a fresh id.
func NewSession() *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        uuid.New().String(),
		Portfolio: NewPortfolio(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Append adds a conversation entry and bumps the session timestamp.
func (s *Session) Append(sender Sender, text string) {
	s.Conversation = append(s.Conversation, ConversationEntry{Sender: sender, Text: text})
	s.UpdatedAt = time.Now().UTC()
}

// SpeechClip is a synthesized spoken rendition of a bot reply.
type SpeechClip struct {
	Text      string    `json:"text"`
	MIMEType  string    `json:"mime_type"`
	Data      []byte    `json:"data"`
	CreatedAt time.Time `json:"created_at"`
}
