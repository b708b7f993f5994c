package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Turn roles.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// DefaultConversationTitle is used when the user sent a report without text.
const DefaultConversationTitle = "Report Analysis"

// titleLength is the number of characters of the message kept as title.
const titleLength = 50

// Turn is one role-tagged message of a stored exchange.
type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Turns is stored as a single JSON column.
type Turns []Turn

// Value implements driver.Valuer.
func (t Turns) Value() (driver.Value, error) {
	if t == nil {
		return "[]", nil
	}
	b, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (t *Turns) Scan(value interface{}) error {
	if value == nil {
		*t = Turns{}
		return nil
	}
	raw, err := jsonBytes(value)
	if err != nil {
		return fmt.Errorf("cannot scan %T into Turns", value)
	}
	return json.Unmarshal(raw, t)
}

// Conversation is one persisted exchange. Every record written by the chat
// service holds exactly one user turn followed by one model turn.
type Conversation struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Title     string    `json:"title" db:"title"`
	Turns     Turns     `json:"messages" db:"turns"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// NewExchange builds the record for a single user/model exchange.
func NewExchange(userID uuid.UUID, message, prompt, reply string, now time.Time) *Conversation {
	return &Conversation{
		ID:     uuid.New(),
		UserID: userID,
		Title:  ConversationTitle(message),
		Turns: Turns{
			{Role: RoleUser, Content: prompt, Timestamp: now},
			{Role: RoleModel, Content: reply, Timestamp: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ConversationTitle derives a title from the first characters of message.
func ConversationTitle(message string) string {
	if message == "" {
		return DefaultConversationTitle
	}
	runes := []rune(message)
	if len(runes) > titleLength {
		return string(runes[:titleLength])
	}
	return message
}

// Now returns the current time in UTC without a monotonic reading, the form
// timestamps are stored in.
func Now() time.Time {
	return time.Now().UTC()
}
