package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/seanblong/paperrag/internal/ai"
	"github.com/seanblong/paperrag/pkg/models"
)

// DefaultMaxTokens bounds every reply.
const DefaultMaxTokens = 4096

// Session is a multi-turn conversation with a fixed system prompt.
type Session struct {
	Completer    ai.Completer
	System       string
	MaxTokens    int
	Conversation models.Conversation
}

// NewSession starts an empty conversation.
func NewSession(c ai.Completer, system string, maxTokens int) *Session {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Session{Completer: c, System: system, MaxTokens: maxTokens}
}

// Send asks the model to answer text given the conversation so far. The
// exchange is recorded only if the model replies, so the conversation keeps
// alternating between user and assistant.
func (s *Session) Send(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("empty message")
	}
	user := models.Message{Role: models.RoleUser, Content: text}
	history := append(s.Conversation.Messages(), user)

	reply, err := s.Completer.Complete(ctx, s.System, history, s.MaxTokens)
	if err != nil {
		return "", err
	}
	s.Conversation.Append(user, models.Message{Role: models.RoleAssistant, Content: reply})
	return reply, nil
}
