package domain

import (
	"fmt"
	"strings"
	"time"
)

// Method selects the wire protocol used to reach the SMS provider.
type Method string

const (
	MethodHTTP Method = "http"
	MethodSMPP Method = "smpp"
)

func (m Method) String() string { return string(m) }

func (m Method) IsValid() bool {
	switch m {
	case MethodHTTP, MethodSMPP:
		return true
	}
	return false
}

func ParseMethodFromString(s string) (Method, error) {
	m := Method(strings.ToLower(strings.TrimSpace(s)))
	if !m.IsValid() {
		return "", fmt.Errorf("%w: invalid method %q", ErrValidation, s)
	}
	return m, nil
}

// GatewayState tracks the gateway verification lifecycle.
type GatewayState string

const (
	GatewayStateNew       GatewayState = "new"
	GatewayStateWaiting   GatewayState = "waiting"
	GatewayStateConfirmed GatewayState = "confirmed"
)

func (s GatewayState) String() string { return string(s) }

func (s GatewayState) IsValid() bool {
	switch s {
	case GatewayStateNew, GatewayStateWaiting, GatewayStateConfirmed:
		return true
	}
	return false
}

// Class is the SMS class: flash(0), phone display(1), SIM(2), toolkit(3).
type Class string

const (
	ClassFlash   Class = "0"
	ClassPhone   Class = "1"
	ClassSIM     Class = "2"
	ClassToolkit Class = "3"
)

func (c Class) String() string { return string(c) }

func (c Class) IsValid() bool {
	switch c {
	case ClassFlash, ClassPhone, ClassSIM, ClassToolkit:
		return true
	}
	return false
}

// Coding is the SMS coding scheme: 1 for 7 bit, 2 for unicode.
type Coding string

const (
	Coding7Bit    Coding = "1"
	CodingUnicode Coding = "2"
)

func (c Coding) String() string { return string(c) }

func (c Coding) IsValid() bool {
	switch c {
	case Coding7Bit, CodingUnicode:
		return true
	}
	return false
}

// Priority is the provider-side message priority, "0" (lowest) to "3".
type Priority string

const (
	Priority0 Priority = "0"
	Priority1 Priority = "1"
	Priority2 Priority = "2"
	Priority3 Priority = "3"
)

func (p Priority) String() string { return string(p) }

func (p Priority) IsValid() bool {
	switch p {
	case Priority0, Priority1, Priority2, Priority3:
		return true
	}
	return false
}

// MaxMessageChars is the single-segment limit enforced when a gateway has
// CharLimit set.
const MaxMessageChars = 160

// Gateway is one configured SMS provider endpoint with its defaults and
// URL parameter mapping.
type Gateway struct {
	ID     string       `gorm:"type:uuid;primaryKey"`
	Name   string       `gorm:"type:varchar(64);not null"`
	URL    string       `gorm:"type:varchar(512);not null"`
	Method Method       `gorm:"type:varchar(10);not null"`
	State  GatewayState `gorm:"type:varchar(10);not null"`

	// Verification code pending confirmation, set while State is waiting.
	Code string `gorm:"type:varchar(12)"`

	// Default SMS parameters applied when a message carries no override.
	ValidityMinutes int      `gorm:"not null;default:10"`
	Class           Class    `gorm:"type:varchar(1);not null;default:'1'"`
	Coding          Coding   `gorm:"type:varchar(1);not null;default:'1'"`
	Priority        Priority `gorm:"type:varchar(1);not null;default:'0'"`
	DeferredMinutes int      `gorm:"not null;default:0"`
	Tag             string   `gorm:"type:varchar(64)"`
	NoStop          bool     `gorm:"not null;default:true"`
	CharLimit       bool     `gorm:"not null;default:true"`

	// Query parameter names expected by the provider, plus credentials.
	MobileParam   string `gorm:"type:varchar(32);not null;default:'mobile'"`
	MessageParam  string `gorm:"type:varchar(32);not null;default:'sms'"`
	FunctionParam string `gorm:"type:varchar(32);not null;default:'fct'"`
	SenderParam   string `gorm:"type:varchar(64)"`
	APIKey        string `gorm:"type:text"`

	Params    []GatewayParam `gorm:"foreignKey:GatewayID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (g *Gateway) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return fmt.Errorf("%w: gateway name is required", ErrValidation)
	}
	if strings.TrimSpace(g.URL) == "" {
		return fmt.Errorf("%w: gateway url is required", ErrValidation)
	}
	if !g.Method.IsValid() {
		return fmt.Errorf("%w: invalid method %q", ErrValidation, g.Method)
	}
	if !g.Class.IsValid() {
		return fmt.Errorf("%w: invalid class %q", ErrValidation, g.Class)
	}
	if !g.Coding.IsValid() {
		return fmt.Errorf("%w: invalid coding %q", ErrValidation, g.Coding)
	}
	if !g.Priority.IsValid() {
		return fmt.Errorf("%w: invalid priority %q", ErrValidation, g.Priority)
	}
	return nil
}

// Param returns the value of the first gateway parameter of the given type.
func (g *Gateway) Param(t ParamType) (string, bool) {
	for _, p := range g.Params {
		if p.Type == t {
			return p.Value, true
		}
	}
	return "", false
}

// ParamType classifies a gateway credential parameter.
type ParamType string

const (
	ParamUser      ParamType = "user"
	ParamPassword  ParamType = "password"
	ParamSender    ParamType = "sender"
	ParamRecipient ParamType = "to"
	ParamAccount   ParamType = "sms"
	ParamExtra     ParamType = "extra"
)

func (t ParamType) String() string { return string(t) }

func (t ParamType) IsValid() bool {
	switch t {
	case ParamUser, ParamPassword, ParamSender, ParamRecipient, ParamAccount, ParamExtra:
		return true
	}
	return false
}

// GatewayParam is a typed key/value pair owned by one gateway, consumed by
// the SMPP adapter to assemble login credentials.
type GatewayParam struct {
	ID        string    `gorm:"type:uuid;primaryKey"`
	GatewayID string    `gorm:"type:uuid;not null"`
	Name      string    `gorm:"type:varchar(64)"`
	Value     string    `gorm:"type:varchar(255)"`
	Type      ParamType `gorm:"type:varchar(10);not null"`
	CreatedAt time.Time
}

func (p *GatewayParam) Validate() error {
	if !p.Type.IsValid() {
		return fmt.Errorf("%w: invalid parameter type %q", ErrValidation, p.Type)
	}
	return nil
}
