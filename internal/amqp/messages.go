package amqp

import (
	"time"

	"github.com/goccy/go-json"
)

// EventDatasetChanged is the routing event announcing a new dataset.
const EventDatasetChanged = "dataset.changed"

// DatasetChangedMessage tells consumers to reload transactions and the
// category tree. It carries no data; consumers fetch from their backend.
type DatasetChangedMessage struct {
	Event        string    `json:"event"`
	Source       string    `json:"source"`
	Transactions int       `json:"transactions"`
	Timestamp    time.Time `json:"timestamp"`
}

// NewDatasetChangedMessage creates a message stamped with the current time.
func NewDatasetChangedMessage(source string, transactions int) *DatasetChangedMessage {
	return &DatasetChangedMessage{
		Event:        EventDatasetChanged,
		Source:       source,
		Transactions: transactions,
		Timestamp:    time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *DatasetChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// DatasetChangedMessageFromJSON parses a message. Unknown events are rejected.
func DatasetChangedMessageFromJSON(data []byte) (*DatasetChangedMessage, error) {
	var msg DatasetChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Event != EventDatasetChanged {
		return nil, &UnknownEventError{Event: msg.Event}
	}
	return &msg, nil
}

type UnknownEventError struct {
	Event string
}

func (e *UnknownEventError) Error() string {
	return "unknown event " + `"` + e.Event + `"`
}
