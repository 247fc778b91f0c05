package domain

import (
	"fmt"
	"strings"
)

// OutboundMessage is the unit of work handed to the dispatcher: one recipient,
// one rendered body, optional per-message overrides of the gateway defaults.
type OutboundMessage struct {
	GatewayID string
	Mobile    string
	Text      string

	ValidityMinutes *int
	Class           *Class
	Coding          *Coding
	NoStop          *bool
}

func (m *OutboundMessage) Validate() error {
	if strings.TrimSpace(m.Mobile) == "" {
		return fmt.Errorf("%w: recipient mobile is required", ErrValidation)
	}
	if strings.TrimSpace(m.Text) == "" {
		return fmt.Errorf("%w: message text is required", ErrValidation)
	}
	if m.Class != nil && !m.Class.IsValid() {
		return fmt.Errorf("%w: invalid class %q", ErrValidation, *m.Class)
	}
	if m.Coding != nil && !m.Coding.IsValid() {
		return fmt.Errorf("%w: invalid coding %q", ErrValidation, *m.Coding)
	}
	return nil
}

// SMSParams are the effective wire parameters for one message after merging
// message overrides with the gateway defaults.
type SMSParams struct {
	ValidityMinutes int
	Class           Class
	Coding          Coding
	Priority        Priority
	DeferredMinutes int
	Tag             string
	NoStop          bool
}

// EffectiveParams merges message-level overrides over the gateway defaults.
func (m *OutboundMessage) EffectiveParams(gw *Gateway) SMSParams {
	params := SMSParams{
		ValidityMinutes: gw.ValidityMinutes,
		Class:           gw.Class,
		Coding:          gw.Coding,
		Priority:        gw.Priority,
		DeferredMinutes: gw.DeferredMinutes,
		Tag:             gw.Tag,
		NoStop:          gw.NoStop,
	}
	if m.ValidityMinutes != nil {
		params.ValidityMinutes = *m.ValidityMinutes
	}
	if m.Class != nil {
		params.Class = *m.Class
	}
	if m.Coding != nil {
		params.Coding = *m.Coding
	}
	if m.NoStop != nil {
		params.NoStop = *m.NoStop
	}
	return params
}
