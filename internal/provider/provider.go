package provider

import (
	"context"

	"github.com/MohamedRayeneRomdhane/odoo-SMS-Module/internal/domain"
)

// Provider is the outbound SMS delivery port. One implementation per
// gateway method.
type Provider interface {
	Send(ctx context.Context, msg domain.OutboundMessage, gw domain.Gateway) (*SendResult, error)
}

// SendResult stores the provider's synchronous response for audit and
// persistence.
type SendResult struct {
	MessageID    string
	StatusCode   string
	StatusMobile string
	StatusMsg    string
}

// ReceiptFetcher queries the provider for an asynchronous delivery receipt
// of a previously sent message.
type ReceiptFetcher interface {
	FetchReceipt(ctx context.Context, gw domain.Gateway, messageID string) (*Receipt, error)
}

// Receipt is the provider's delivery acknowledgement for one message.
type Receipt struct {
	MessageID           string
	Acknowledgement     string
	AcknowledgementDate string
}

// Registry resolves the provider implementation for a gateway method.
type Registry struct {
	providers map[domain.Method]Provider
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[domain.Method]Provider)}
}

func (r *Registry) Register(method domain.Method, p Provider) {
	r.providers[method] = p
}

// For returns the provider registered for the method, or nil.
func (r *Registry) For(method domain.Method) Provider {
	if r == nil {
		return nil
	}
	return r.providers[method]
}
