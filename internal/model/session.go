// Package model defines domain types for GreenStudio conversations and eco metrics.
package model

import "time"

// Speaker identifies who authored a message.
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
	SpeakerSystem    Speaker = "system"
)

// DefaultTitle is shown for a session that has not received a user message yet.
const DefaultTitle = "New Eco-Optimization"

// Message is one entry in a conversation. Metrics is set only on generated
// assistant messages.
type Message struct {
	ID        string      `json:"id"`
	Role      Speaker     `json:"role"`
	Text      string      `json:"text"`
	Timestamp time.Time   `json:"timestamp"`
	Metrics   *EcoMetrics `json:"metrics,omitempty"`
}

// ChatSession is one persisted conversation with its running totals.
type ChatSession struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	CreatedAt     time.Time  `json:"createdAt"`
	Messages      []Message  `json:"messages"`
	SessionTotals EcoMetrics `json:"sessionTotals"`
}

// DisplayTitle returns the title, or DefaultTitle while none is set.
func (s ChatSession) DisplayTitle() string {
	if s.Title == "" {
		return DefaultTitle
	}
	return s.Title
}

// HasUserMessage reports whether any user message has been appended.
func (s ChatSession) HasUserMessage() bool {
	for _, m := range s.Messages {
		if m.Role == SpeakerUser {
			return true
		}
	}
	return false
}

// Turn is one prior exchange supplied to the provider for context.
type Turn struct {
	Role Speaker `json:"role"`
	Text string  `json:"text"`
}

// History converts a message list into provider turns. System messages are
// local diagnostics and never sent upstream.
func History(msgs []Message) []Turn {
	turns := make([]Turn, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == SpeakerSystem {
			continue
		}
		turns = append(turns, Turn{Role: m.Role, Text: m.Text})
	}
	return turns
}
