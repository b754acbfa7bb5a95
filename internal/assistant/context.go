package assistant

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/s01095235840-oss/pastel-buddy-shop/internal/catalog"
)

// Session is the mutable per-chat-session state the tool executor reads and
// writes: the identified customer email and the products most recently shown
// to the customer (so "1번 주문할게" can resolve to a product id).
//
// Safe for concurrent use.
type Session struct {
	mu            sync.Mutex
	id            uuid.UUID
	email         string
	lastPresented []*catalog.Product
}

// NewSession creates session state for a chat session id.
func NewSession(id uuid.UUID) *Session {
	return &Session{id: id}
}

// ID returns the chat session id.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Identify records the customer email the first time it is learned.
// Later calls with a different email are ignored; a session belongs to one
// customer. Reports whether the email was recorded.
func (s *Session) Identify(email string) bool {
	if email == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.email != "" {
		return false
	}
	s.email = email
	return true
}

// Email returns the identified customer email, or "" when unknown.
func (s *Session) Email() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.email
}

// SetLastPresented overwrites the remembered product listing. Listings
// replace each other wholesale; ordinal references ("2번") always point into
// the latest listing only.
func (s *Session) SetLastPresented(products []*catalog.Product) {
	cp := make([]*catalog.Product, len(products))
	copy(cp, products)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastPresented = cp
}

// LastPresented returns the most recent product listing shown to the
// customer.
func (s *Session) LastPresented() []*catalog.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*catalog.Product, len(s.lastPresented))
	copy(out, s.lastPresented)
	return out
}

// ContextStore hands out session state keyed by chat session id.
// Safe for concurrent use.
type ContextStore struct {
	mu sync.Mutex
	m  map[uuid.UUID]*Session
}

// NewContextStore creates an empty store.
func NewContextStore() *ContextStore {
	return &ContextStore{m: make(map[uuid.UUID]*Session)}
}

// Get returns the session state for the id, creating it on first use.
func (cs *ContextStore) Get(id uuid.UUID) *Session {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	s, ok := cs.m[id]
	if !ok {
		s = NewSession(id)
		cs.m[id] = s
	}
	return s
}

// Drop removes the session state, typically when the chat session is deleted.
func (cs *ContextStore) Drop(id uuid.UUID) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	delete(cs.m, id)
}

type sessionCtxKey struct{}

// NewContext returns a context carrying the session state. The tool handlers
// registered with Genkit resolve their session through this.
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey{}, s)
}

// SessionFromContext returns the session state from the context. A context
// without one gets a throwaway session so tool execution never panics.
func SessionFromContext(ctx context.Context) *Session {
	if s, ok := ctx.Value(sessionCtxKey{}).(*Session); ok {
		return s
	}
	return NewSession(uuid.Nil)
}
