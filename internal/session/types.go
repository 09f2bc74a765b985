package session

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/plumekit/plume/internal/llm"
)

// Status represents the current state of a conversation.
type Status string

const (
	StatusActive      Status = "active"      // Conversation is open (may or may not be streaming)
	StatusComplete    Status = "complete"    // Conversation finished normally
	StatusInterrupted Status = "interrupted" // Last turn was cancelled by the user
)

// Conversation is one chat thread stored in the database. The last
// response id is the continuity handle threaded into the next request;
// it lives here, owned by the conversation, never in ambient state.
type Conversation struct {
	ID             string    `json:"id"`
	Title          string    `json:"title,omitempty"` // First user message or user-assigned
	Model          string    `json:"model"`
	LastResponseID string    `json:"last_response_id,omitempty"`
	Status         Status    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Turn is one user-message-to-assistant-response exchange. The frozen
// accumulator snapshot is stored as JSON to preserve reasoning steps,
// tool calls and citations exactly.
type Turn struct {
	ConversationID string         `json:"conversation_id"`
	Seq            int            `json:"seq"`
	UserText       string         `json:"user_text"`
	State          *llm.TurnState `json:"state"`
	DurationMs     int64          `json:"duration_ms,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// StateJSON returns the snapshot serialized for storage.
func (t *Turn) StateJSON() (string, error) {
	if t.State == nil {
		return "", nil
	}
	data, err := json.Marshal(t.State)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// SetStateFromJSON deserializes a stored snapshot.
func (t *Turn) SetStateFromJSON(data string) error {
	if data == "" {
		t.State = nil
		return nil
	}
	t.State = &llm.TurnState{}
	return json.Unmarshal([]byte(data), t.State)
}

// TruncateTitle returns the first line of content, truncated to 100 chars.
func TruncateTitle(content string) string {
	content = strings.TrimSpace(content)
	if idx := strings.Index(content, "\n"); idx != -1 {
		content = content[:idx]
	}
	if len(content) > 100 {
		content = content[:97] + "..."
	}
	return content
}
