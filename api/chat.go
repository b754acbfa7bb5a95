package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"

	"github.com/s01095235840-oss/pastel-buddy-shop/internal/assistant"
	"github.com/s01095235840-oss/pastel-buddy-shop/internal/catalog"
	"github.com/s01095235840-oss/pastel-buddy-shop/internal/log"
	"github.com/s01095235840-oss/pastel-buddy-shop/internal/session"
)

const (
	// MaxMessageLength bounds one chat message.
	MaxMessageLength = 4000

	// maxTitleLength bounds the transcript title derived from the first
	// message.
	maxTitleLength = 60
)

// Responder answers one user message, defined here so handler tests can
// substitute the assistant.
type Responder interface {
	HandleUserMessage(ctx context.Context, sess *assistant.Session, history []*ai.Message, text string) (*assistant.Reply, error)
}

// Transcripts is the slice of the session store the chat handler uses.
type Transcripts interface {
	Create(ctx context.Context, title string) (*session.ChatSession, error)
	Get(ctx context.Context, id uuid.UUID) (*session.ChatSession, error)
	History(ctx context.Context, id uuid.UUID, limit int32) ([]*ai.Message, error)
	Append(ctx context.Context, id uuid.UUID, messages []*ai.Message) error
	SetCustomerEmail(ctx context.Context, id uuid.UUID, email string) error
	SetModelName(ctx context.Context, id uuid.UUID, model string) error
}

// ChatHandler handles the conversational assistant endpoint.
type ChatHandler struct {
	responder   Responder
	transcripts Transcripts
	contexts    *assistant.ContextStore
	maxHistory  int32
	logger      log.Logger
}

// NewChatHandler creates a chat handler. maxHistory caps how many stored
// messages are replayed into each completion.
func NewChatHandler(responder Responder, transcripts Transcripts, contexts *assistant.ContextStore, maxHistory int32, logger log.Logger) *ChatHandler {
	if logger == nil {
		logger = log.NewNop()
	}
	return &ChatHandler{
		responder:   responder,
		transcripts: transcripts,
		contexts:    contexts,
		maxHistory:  maxHistory,
		logger:      logger,
	}
}

// RegisterRoutes registers chat routes on the given mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/chat", h.chat)
}

// ChatRequest is the request body for one chat turn. An empty session ID
// starts a new conversation.
type ChatRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

// ChatResponse is the assistant's answer plus the products to render as
// cards next to it.
type ChatResponse struct {
	SessionID string             `json:"sessionId"`
	Reply     string             `json:"reply"`
	Products  []*catalog.Product `json:"products,omitempty"`
	Model     string             `json:"model,omitempty"`
}

func (h *ChatHandler) chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	text := strings.TrimSpace(req.Message)
	if text == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "message is required")
		return
	}
	if len(text) > MaxMessageLength {
		writeError(w, http.StatusBadRequest, "invalid_request", "message too long")
		return
	}

	ctx := r.Context()
	sessionID, err := h.resolveSession(ctx, req.SessionID, text)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session_not_found", "unknown session")
			return
		}
		h.logger.Error("session resolution failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to resolve session")
		return
	}

	history, err := h.transcripts.History(ctx, sessionID, h.maxHistory)
	if err != nil {
		h.logger.Error("history load failed", "session_id", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to load history")
		return
	}

	sess := h.contexts.Get(sessionID)
	reply, err := h.responder.HandleUserMessage(ctx, sess, history, text)
	if err != nil {
		h.logger.Error("chat turn failed", "session_id", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to answer")
		return
	}

	h.persistTurn(ctx, sessionID, sess, text, reply)

	writeJSON(w, http.StatusOK, ChatResponse{
		SessionID: sessionID.String(),
		Reply:     reply.Text,
		Products:  reply.Products,
		Model:     reply.Model,
	})
}

// resolveSession parses the given session ID or starts a new conversation
// titled after the first message.
func (h *ChatHandler) resolveSession(ctx context.Context, raw, firstMessage string) (uuid.UUID, error) {
	if raw == "" {
		title := firstMessage
		if runes := []rune(title); len(runes) > maxTitleLength {
			title = string(runes[:maxTitleLength])
		}
		cs, err := h.transcripts.Create(ctx, title)
		if err != nil {
			return uuid.Nil, err
		}
		return cs.ID, nil
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, session.ErrNotFound
	}
	if _, err := h.transcripts.Get(ctx, id); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// persistTurn stores the turn best-effort: the customer already has their
// answer, a persistence hiccup only costs transcript fidelity.
func (h *ChatHandler) persistTurn(ctx context.Context, sessionID uuid.UUID, sess *assistant.Session, text string, reply *assistant.Reply) {
	err := h.transcripts.Append(ctx, sessionID, []*ai.Message{
		ai.NewUserMessage(ai.NewTextPart(text)),
		ai.NewModelMessage(ai.NewTextPart(reply.Text)),
	})
	if err != nil {
		h.logger.Warn("transcript append failed", "session_id", sessionID, "error", err)
	}

	if reply.Model != "" {
		if err := h.transcripts.SetModelName(ctx, sessionID, reply.Model); err != nil {
			h.logger.Warn("model name update failed", "session_id", sessionID, "error", err)
		}
	}
	if email := sess.Email(); email != "" {
		if err := h.transcripts.SetCustomerEmail(ctx, sessionID, email); err != nil {
			h.logger.Warn("customer email update failed", "session_id", sessionID, "error", err)
		}
	}
}
