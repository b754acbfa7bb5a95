// Package session persists chat transcripts in PostgreSQL so a customer can
// close the storefront and pick the conversation back up.
package session

import (
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"
)

// ChatSession is one stored conversation.
type ChatSession struct {
	ID            uuid.UUID `json:"id"`
	Title         string    `json:"title"`
	ModelName     string    `json:"modelName"`
	CustomerEmail string    `json:"customerEmail,omitempty"`
	MessageCount  int32     `json:"messageCount"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Message is one stored transcript entry. Content keeps the full part
// structure, so tool-request and tool-response turns survive a reload intact.
type Message struct {
	ID        uuid.UUID  `json:"id"`
	SessionID uuid.UUID  `json:"sessionId"`
	Role      string     `json:"role"`
	Content   []*ai.Part `json:"content"`
	Sequence  int32      `json:"sequence"`
	CreatedAt time.Time  `json:"createdAt"`
}
