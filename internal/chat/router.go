// Package chat routes user queries: each query is classified, answered by the
// right branch (in-context, retrieval, or email draft), and recorded in the
// session memory.
package chat

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/seikyu/internal/llm"
	"github.com/hyperjump/seikyu/internal/models"
	"github.com/hyperjump/seikyu/internal/session"
)

// Retriever recalls record texts relevant to a query.
type Retriever interface {
	Query(ctx context.Context, text string, k int) ([]string, error)
}

// Reply is the routed answer to one query.
type Reply struct {
	Text  string            `json:"text"`
	Class models.QueryClass `json:"class"`
}

// Router classifies queries and dispatches them to the matching branch.
type Router struct {
	llm       llm.ChatClient
	retriever Retriever
	topK      int
	logger    *zap.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Router) { r.logger = l }
}

// WithTopK sets how many records the retrieval branch recalls.
func WithTopK(k int) Option {
	return func(r *Router) { r.topK = k }
}

// NewRouter builds a query router over the given chat client and retriever.
func NewRouter(chatClient llm.ChatClient, retriever Retriever, opts ...Option) *Router {
	r := &Router{
		llm:       chatClient,
		retriever: retriever,
		topK:      3,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Respond answers a query within a session. The classification decides the
// branch; whatever the branch, the exchange is appended to the session memory
// so later queries see it.
func (r *Router) Respond(ctx context.Context, sess *session.Session, query string) (*Reply, error) {
	history := sess.Memory.History()

	verdict, err := r.llm.Complete(ctx, llm.ClassificationPrompt(query, history))
	if err != nil {
		return nil, fmt.Errorf("classify query: %w", err)
	}
	class := models.ParseQueryClass(verdict)
	r.logger.Debug("query classified",
		zap.String("session_id", sess.ID), zap.String("class", class.String()))

	var answer string
	switch class {
	case models.ClassRetrievalRequired:
		answer, err = r.answerWithRetrieval(ctx, query, history)
	case models.ClassEmailDraft:
		answer, err = r.llm.Complete(ctx, llm.EmailDraftPrompt(query, history))
	default:
		answer, err = r.llm.Complete(ctx, llm.InContextAnswerPrompt(query, history))
	}
	if err != nil {
		return nil, fmt.Errorf("answer query: %w", err)
	}

	sess.Memory.Append(query, answer)
	return &Reply{Text: answer, Class: class}, nil
}

func (r *Router) answerWithRetrieval(ctx context.Context, query, history string) (string, error) {
	data, err := r.retriever.Query(ctx, query, r.topK)
	if err != nil {
		return "", fmt.Errorf("retrieve records: %w", err)
	}
	return r.llm.Complete(ctx, llm.RetrievalAnswerPrompt(query, data, history))
}
