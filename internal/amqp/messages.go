package amqp

import (
	"encoding/json"
	"time"

	"kharcha/internal/core"
)

// Routing keys of the ledger exchange.
const (
	RouteLedgerChanged = "ledger.changed"
	RouteEMIDue        = "emi.due"
)

// Ledger change operations.
const (
	OpCreated = "created"
	OpUpdated = "updated"
	OpDeleted = "deleted"
)

// LedgerChangedMessage announces a write to one ledger entity. Consumers
// fetch the current state themselves.
type LedgerChangedMessage struct {
	Entity    string    `json:"entity"`
	ID        string    `json:"id"`
	Op        string    `json:"op"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerChangedMessage(entity, id, op string) *LedgerChangedMessage {
	return &LedgerChangedMessage{
		Entity:    entity,
		ID:        id,
		Op:        op,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerChangedMessageFromJSON(data []byte) (*LedgerChangedMessage, error) {
	var msg LedgerChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// EMIDueMessage is a payment reminder for one installment.
type EMIDueMessage struct {
	ID      string     `json:"id"`
	Name    string     `json:"name"`
	DueDate core.Date  `json:"due_date"`
	Amount  core.Money `json:"amount"`
}

func NewEMIDueMessage(e core.EMI) *EMIDueMessage {
	return &EMIDueMessage{
		ID:      e.ID,
		Name:    e.Name,
		DueDate: e.NextDueDate,
		Amount:  e.MonthlyAmount,
	}
}

func (m *EMIDueMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func EMIDueMessageFromJSON(data []byte) (*EMIDueMessage, error) {
	var msg EMIDueMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
