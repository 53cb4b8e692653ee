package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// Operations carried by StoreChangedMessage.
const (
	OpAdd    = "add"
	OpUpdate = "update"
	OpDelete = "delete"
	OpReset  = "reset"
)

// StoreChangedMessage announces a committed mutation of the transaction
// collection. Consumers read the collection itself from the shared slot.
type StoreChangedMessage struct {
	Revision      uint64    `json:"revision"`
	Operation     string    `json:"operation"`
	TransactionID int64     `json:"id,omitempty"`
	Count         int       `json:"count"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewStoreChangedMessage(revision uint64, op string, id int64, count int) *StoreChangedMessage {
	return &StoreChangedMessage{
		Revision:      revision,
		Operation:     op,
		TransactionID: id,
		Count:         count,
		Timestamp:     time.Now().UTC(),
	}
}

func (m *StoreChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// StoreChangedMessageFromJSON rejects payloads without an operation.
func StoreChangedMessageFromJSON(data []byte) (*StoreChangedMessage, error) {
	var msg StoreChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Operation == "" {
		return nil, errors.New("store changed message without operation")
	}
	return &msg, nil
}
