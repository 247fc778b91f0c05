package domain

import (
	"fmt"
	"strings"
	"time"
)

// QueueState is the lifecycle state of a queue entry. Transitions only move
// forward: queued -> sending -> sent, or queued/sending -> error.
type QueueState string

const (
	QueueStateQueued  QueueState = "queued"
	QueueStateSending QueueState = "sending"
	QueueStateSent    QueueState = "sent"
	QueueStateError   QueueState = "error"
)

func (s QueueState) String() string { return string(s) }

func (s QueueState) IsValid() bool {
	switch s {
	case QueueStateQueued, QueueStateSending, QueueStateSent, QueueStateError:
		return true
	}
	return false
}

func ParseQueueStateFromString(s string) (QueueState, error) {
	st := QueueState(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid queue state %q", ErrValidation, s)
	}
	return st, nil
}

// CanTransitionTo reports whether the forward-only state machine allows the
// move. Terminal states never transition back to queued.
func (s QueueState) CanTransitionTo(next QueueState) bool {
	switch s {
	case QueueStateQueued:
		return next == QueueStateSending || next == QueueStateError
	case QueueStateSending:
		return next == QueueStateSent || next == QueueStateError
	case QueueStateError:
		// Error entries are retried by later drains.
		return next == QueueStateSending
	}
	return false
}

// QueueEntry is one persisted pending-or-resolved message. Created by the
// dispatcher, mutated only by the drain loop, never deleted automatically.
type QueueEntry struct {
	ID        string     `gorm:"type:uuid;primaryKey"`
	GatewayID string     `gorm:"type:uuid;not null"`
	Mobile    string     `gorm:"type:varchar(32);not null"`
	Text      string     `gorm:"type:text;not null"`
	State     QueueState `gorm:"type:varchar(10);not null"`
	Error     string     `gorm:"type:text"`

	ValidityMinutes int      `gorm:"not null;default:0"`
	Class           Class    `gorm:"type:varchar(1)"`
	Coding          Coding   `gorm:"type:varchar(1)"`
	Priority        Priority `gorm:"type:varchar(1)"`
	DeferredMinutes int      `gorm:"not null;default:0"`
	Tag             string   `gorm:"type:varchar(64)"`
	NoStop          bool     `gorm:"not null;default:true"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (q *QueueEntry) Validate() error {
	if strings.TrimSpace(q.GatewayID) == "" {
		return fmt.Errorf("%w: gateway id is required", ErrValidation)
	}
	if strings.TrimSpace(q.Mobile) == "" {
		return fmt.Errorf("%w: recipient mobile is required", ErrValidation)
	}
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("%w: message text is required", ErrValidation)
	}
	if !q.State.IsValid() {
		return fmt.Errorf("%w: invalid queue state %q", ErrValidation, q.State)
	}
	return nil
}
