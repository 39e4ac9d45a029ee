package amqp

import (
	"encoding/json"
	"time"
)

// Change operations carried by ExpenseChangedMessage.
const (
	OpCreated = "created"
	OpUpdated = "updated"
	OpDeleted = "deleted"
)

// ExpenseChangedMessage announces that one user's expense set changed.
// Consumers reload the user's expenses from the database rather than
// trusting the message body, so it only carries identifiers.
type ExpenseChangedMessage struct {
	UserID    string    `json:"user_id"`
	ExpenseID string    `json:"expense_id"`
	Op        string    `json:"op"`
	Timestamp time.Time `json:"timestamp"`
}

func NewExpenseChangedMessage(userID, expenseID, op string) *ExpenseChangedMessage {
	return &ExpenseChangedMessage{
		UserID:    userID,
		ExpenseID: expenseID,
		Op:        op,
		Timestamp: time.Now(),
	}
}

func (m *ExpenseChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ExpenseChangedMessageFromJSON(data []byte) (*ExpenseChangedMessage, error) {
	var msg ExpenseChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
