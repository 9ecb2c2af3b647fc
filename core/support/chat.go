package support

import (
	"context"
	"fmt"

	"github.com/pulseed/pulseed/core"
)

// Senders of conversation turns.
const (
	SenderAssistant = "ai"
	SenderStudent   = "student"
)

const (
	// Greeting seeds every conversation.
	Greeting = "Hey, I noticed you're not feeling too well. I'm here to talk to you — would you like to share what's on your mind?"

	// FallbackReply is returned whenever the model call fails; the student
	// never sees an error.
	FallbackReply = "I'm really sorry — something went wrong on my end. But you matter, and it's important to talk to someone you trust right away."

	persona = "You are a kind and empathetic emotional support assistant. " +
		"Respond with warm, caring language. Encourage talking to a trusted adult or counselor if serious. " +
		"Never give medical advice."

	replyMaxTokens = 100

	// nameRequestAfter is the student-turn count after which the
	// conversation offers to end and capture a name.
	nameRequestAfter = 2
)

type (
	// Turn is one message in a support conversation.
	Turn struct {
		Sender string `json:"sender" validate:"required,oneof=ai student"`
		Text   string `json:"text" validate:"required"`
	}

	Service struct {
		completer core.Completer
		model     string
		logger    core.Logger
	}
)

func NewService(completer core.Completer, model string, logger core.Logger) *Service {
	return &Service{completer: completer, model: model, logger: logger}
}

// NewConversation returns the initial turn list: the canned greeting.
func NewConversation() []Turn {
	return []Turn{{Sender: SenderAssistant, Text: Greeting}}
}

// Reply forwards the whole turn history (which must already include the
// student's latest turn) plus the fixed persona to the completion API and
// returns the assistant's next turn. askName flips once the student has
// spoken often enough for the conversation to wind down. Transcripts are
// never persisted; the caller owns the history for the session's lifetime.
func (svc *Service) Reply(ctx context.Context, turns []Turn) (reply string, askName bool) {
	msgs := make([]core.ChatMessage, 0, len(turns)+1)
	msgs = append(msgs, core.ChatMessage{Role: core.RoleSystem, Content: persona})
	for _, t := range turns {
		role := core.RoleUser
		if t.Sender == SenderAssistant {
			role = core.RoleAssistant
		}
		msgs = append(msgs, core.ChatMessage{Role: role, Content: t.Text})
	}

	reply, err := svc.completer.Complete(ctx, core.CompletionRequest{
		Model:     svc.model,
		Messages:  msgs,
		MaxTokens: replyMaxTokens,
	})
	if err != nil || core.CleanString(reply) == "" {
		if err != nil {
			svc.logger.Warn(fmt.Sprintf("support: chat completion failed: %v", err), err)
		}
		reply = FallbackReply
	}

	return reply, StudentTurns(turns) >= nameRequestAfter
}

// StudentTurns counts the student's messages in the history.
func StudentTurns(turns []Turn) int {
	var n int
	for _, t := range turns {
		if t.Sender == SenderStudent {
			n++
		}
	}
	return n
}
