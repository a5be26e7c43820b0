// Package events carries domain events from mutation paths to side-effect
// consumers. Publishers collect events while a database transaction is open
// and publish them only after the transaction has committed, so a failed
// commit never produces a stray notification.
package events

import (
	"github.com/asaskevich/EventBus"
)

const (
	TopicTransactionCreated = "transaction.created"
	TopicPaymentReceived    = "payment.received"
	TopicPaymentFailed      = "payment.failed"
	TopicLowStock           = "inventory.low_stock"
	TopicInventoryAdjusted  = "inventory.adjusted"
)

type TransactionCreated struct {
	TransactionID uint
	Number        string
	FinalAmount   int64
	CashierID     uint
}

type PaymentReceived struct {
	TransactionID uint
	Number        string
	FinalAmount   int64
}

type PaymentFailed struct {
	TransactionID uint
	Number        string
	FinalAmount   int64
}

type LowStock struct {
	ProductID uint
	Name      string
	SKU       string
	Stock     int
	MinStock  int
}

type InventoryAdjusted struct {
	ProductID     uint
	Name          string
	PreviousStock int
	NewStock      int
	ActorID       uint
}

// Event pairs a topic with its payload so mutation paths can queue side
// effects and flush them after commit.
type Event struct {
	Topic   string
	Payload interface{}
}

var bus = EventBus.New()

// Subscribe registers a synchronous handler for a topic.
func Subscribe(topic string, fn interface{}) error {
	return bus.Subscribe(topic, fn)
}

// Publish delivers queued events in order.
func Publish(evts ...Event) {
	for _, e := range evts {
		bus.Publish(e.Topic, e.Payload)
	}
}

// Reset replaces the bus with a fresh one. Used by tests to isolate
// subscribers.
func Reset() {
	bus = EventBus.New()
}
