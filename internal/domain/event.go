package domain

import (
	"fmt"
	"strings"
	"time"
)

// Event identifies a business trigger a gateway can carry a message template
// for: one per order state plus new-contact creation.
type Event string

const (
	EventOrderDraft     Event = "order_draft"
	EventOrderSent      Event = "order_sent"
	EventOrderWaiting   Event = "order_waiting"
	EventOrderSale      Event = "order_sale"
	EventOrderDone      Event = "order_done"
	EventOrderCancel    Event = "order_cancel"
	EventPartnerCreated Event = "partner_created"
)

func (e Event) String() string { return string(e) }

func (e Event) IsValid() bool {
	switch e {
	case EventOrderDraft, EventOrderSent, EventOrderWaiting, EventOrderSale,
		EventOrderDone, EventOrderCancel, EventPartnerCreated:
		return true
	}
	return false
}

func ParseEventFromString(s string) (Event, error) {
	e := Event(strings.ToLower(strings.TrimSpace(s)))
	if !e.IsValid() {
		return "", fmt.Errorf("%w: invalid event %q", ErrValidation, s)
	}
	return e, nil
}

// Events lists every supported trigger.
func Events() []Event {
	return []Event{
		EventOrderDraft, EventOrderSent, EventOrderWaiting, EventOrderSale,
		EventOrderDone, EventOrderCancel, EventPartnerCreated,
	}
}

// MessageTemplate is the per-event message body configured on a gateway,
// with a flag controlling whether the event triggers a send at all.
type MessageTemplate struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	GatewayID string `gorm:"type:uuid;not null;uniqueIndex:idx_templates_gateway_event"`
	Event     Event  `gorm:"type:varchar(20);not null;uniqueIndex:idx_templates_gateway_event"`
	Body      string `gorm:"type:text"`
	Enabled   bool   `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (t *MessageTemplate) Validate() error {
	if strings.TrimSpace(t.GatewayID) == "" {
		return fmt.Errorf("%w: gateway id is required", ErrValidation)
	}
	if !t.Event.IsValid() {
		return fmt.Errorf("%w: invalid event %q", ErrValidation, t.Event)
	}
	return nil
}
