package domain

import "time"

// PlaceholderMessageID is the dummy provider id the gateway returns when it
// accepted a request without assigning a trackable message. Entries carrying
// it are never polled for a delivery receipt.
const PlaceholderMessageID = "1"

// History entry descriptions.
const (
	HistorySent  = "SMS Sent"
	HistoryError = "SMS Error"
)

// HistoryEntry is an append-only audit record of one transport attempt.
// Only the acknowledgement fields are ever mutated after creation, and only
// by the delivery-receipt poller.
type HistoryEntry struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	GatewayID string `gorm:"type:uuid;not null"`
	Name      string `gorm:"type:varchar(64);not null"`
	Mobile    string `gorm:"type:varchar(32);not null"`
	Text      string `gorm:"type:text;not null"`

	MessageID    string `gorm:"type:varchar(64)"`
	StatusCode   string `gorm:"type:varchar(32)"`
	StatusMobile string `gorm:"type:varchar(32)"`
	StatusMsg    string `gorm:"type:text"`

	Acknowledgement     string `gorm:"type:varchar(64)"`
	AcknowledgementDate string `gorm:"type:varchar(64)"`
	DLRAttempts         int    `gorm:"not null;default:0"`

	CreatedAt time.Time
}

// AwaitsReceipt reports whether the entry should still be polled for a DLR.
func (h *HistoryEntry) AwaitsReceipt(maxAttempts int) bool {
	if h.Acknowledgement != "" {
		return false
	}
	if h.MessageID == "" || h.MessageID == PlaceholderMessageID {
		return false
	}
	return h.DLRAttempts < maxAttempts
}
