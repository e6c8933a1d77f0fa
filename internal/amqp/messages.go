package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"xpense/internal/core"
)

// ExpenseCreatedMessage announces a stored expense. Consumers load the full
// record from the store by ID.
type ExpenseCreatedMessage struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewExpenseCreatedMessage(e core.Expense) *ExpenseCreatedMessage {
	return &ExpenseCreatedMessage{
		ID:        e.ID,
		UserID:    e.UserID,
		Timestamp: time.Now().UTC(),
	}
}

func (m *ExpenseCreatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseCreatedMessageFromJSON decodes a message body. A body without an
// expense id is rejected.
func ExpenseCreatedMessageFromJSON(data []byte) (*ExpenseCreatedMessage, error) {
	var msg ExpenseCreatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID == uuid.Nil {
		return nil, errors.New("message has no expense id")
	}
	return &msg, nil
}
