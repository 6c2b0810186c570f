package domain

import "time"

// Conversation is a two-party thread, optionally about a project.
type Conversation struct {
	ID                 string
	ParticipantA       string
	ParticipantB       string
	ProjectID          string
	LastMessageAt      *time.Time
	LastMessagePreview string
	CreatedAt          time.Time
}

// Has reports whether userID takes part in the conversation.
func (c *Conversation) Has(userID string) bool {
	return c.ParticipantA == userID || c.ParticipantB == userID
}

// Other returns the participant that is not userID.
func (c *Conversation) Other(userID string) string {
	if c.ParticipantA == userID {
		return c.ParticipantB
	}
	return c.ParticipantA
}

// OrderedPair returns the two ids sorted so that a pair maps to one row.
func OrderedPair(a, b string) (string, string) {
	if a < b {
		return a, b
	}
	return b, a
}

// ConversationSummary is a conversation as listed for one participant.
type ConversationSummary struct {
	Conversation
	Other  UserSummary
	Unread int
}

// Message is a single chat line.
type Message struct {
	ID             string
	ConversationID string
	SenderID       string
	Body           string
	ReadAt         *time.Time
	CreatedAt      time.Time
}
