package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Message types carried on the sync queue.
const (
	TypeSync   = "expense.sync"
	TypeDelete = "expense.delete"
)

// ExpenseSyncMessage asks the worker to push a locally stored expense to the
// remote API. Only the ID and version travel; the worker reads the row.
type ExpenseSyncMessage struct {
	Type      string    `json:"type"`
	ID        int64     `json:"id"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func NewExpenseSyncMessage(id, version int64) *ExpenseSyncMessage {
	return &ExpenseSyncMessage{
		Type:      TypeSync,
		ID:        id,
		Version:   version,
		Timestamp: time.Now(),
	}
}

func (m *ExpenseSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ExpenseSyncMessageFromJSON(data []byte) (*ExpenseSyncMessage, error) {
	var msg ExpenseSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ExpenseDeleteMessage asks the worker to remove the remote copy of a
// soft-deleted expense. RemoteID is empty when the expense never synced.
type ExpenseDeleteMessage struct {
	Type      string    `json:"type"`
	ID        int64     `json:"id"`
	RemoteID  string    `json:"remote_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewExpenseDeleteMessage(id int64, remoteID string) *ExpenseDeleteMessage {
	return &ExpenseDeleteMessage{
		Type:      TypeDelete,
		ID:        id,
		RemoteID:  remoteID,
		Timestamp: time.Now(),
	}
}

func (m *ExpenseDeleteMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// Decode reads a queue body into one of the message types. A body without a
// type is a sync message.
func Decode(data []byte) (any, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}
	switch head.Type {
	case "", TypeSync:
		return ExpenseSyncMessageFromJSON(data)
	case TypeDelete:
		var msg ExpenseDeleteMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, err
		}
		return &msg, nil
	}
	return nil, fmt.Errorf("unknown message type %q", head.Type)
}
