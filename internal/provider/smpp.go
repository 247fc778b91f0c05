package provider

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/MohamedRayeneRomdhane/odoo-SMS-Module/internal/domain"
	"github.com/go-resty/resty/v2"
)

const (
	smppRPCName        = "telephonySmsUserSend"
	defaultSOAPTimeout = 30 * time.Second
)

// SMPPProvider reaches the operator's SMPP platform through its SOAP-RPC
// proxy. Credentials come from the gateway's typed parameter set.
type SMPPProvider struct {
	client *resty.Client
}

func NewSMPPProvider() *SMPPProvider {
	client := resty.New()
	client.SetTimeout(defaultSOAPTimeout)
	client.SetRetryCount(0)

	return &SMPPProvider{client: client}
}

func NewSMPPProviderWithClient(client *resty.Client) (*SMPPProvider, error) {
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}
	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultSOAPTimeout)
	}
	client.SetRetryCount(0)

	return &SMPPProvider{client: client}, nil
}

var _ Provider = (*SMPPProvider)(nil)

type smppCredentials struct {
	login    string
	password string
	sender   string
	account  string
}

func credentialsFromGateway(gw domain.Gateway) (smppCredentials, error) {
	var creds smppCredentials
	var missing []string

	if v, ok := gw.Param(domain.ParamUser); ok {
		creds.login = v
	} else {
		missing = append(missing, domain.ParamUser.String())
	}
	if v, ok := gw.Param(domain.ParamPassword); ok {
		creds.password = v
	} else {
		missing = append(missing, domain.ParamPassword.String())
	}
	if v, ok := gw.Param(domain.ParamSender); ok {
		creds.sender = v
	} else {
		missing = append(missing, domain.ParamSender.String())
	}
	if v, ok := gw.Param(domain.ParamAccount); ok {
		creds.account = v
	} else {
		missing = append(missing, domain.ParamAccount.String())
	}

	if len(missing) > 0 {
		return smppCredentials{}, fmt.Errorf("%w: gateway %s is missing smpp parameters: %s",
			domain.ErrConfiguration, gw.Name, strings.Join(missing, ", "))
	}
	return creds, nil
}

// Send submits one message through the SOAP-RPC endpoint. When the
// effective coding is 7-bit, the body is coerced to the GSM 03.38
// alphabet first and runes the alphabet cannot carry are replaced with
// '?'; other codings pass the body through untouched.
func (p *SMPPProvider) Send(ctx context.Context, msg domain.OutboundMessage, gw domain.Gateway) (*SendResult, error) {
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("provider is not initialized")
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	creds, err := credentialsFromGateway(gw)
	if err != nil {
		return nil, err
	}

	params := msg.EffectiveParams(&gw)
	body := msg.Text
	if params.Coding == domain.Coding7Bit {
		body = SanitizeGSM7(body)
	}

	reqBody := buildSMSUserSendEnvelope(creds, msg.Mobile, body, params)

	response, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "text/xml; charset=utf-8").
		SetHeader("SOAPAction", smppRPCName).
		SetBody(reqBody).
		Post(gw.URL)
	if err != nil {
		return nil, &ProviderError{
			Message:   "soap request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}

	var envelope soapEnvelope
	if err := xml.Unmarshal(response.Body(), &envelope); err != nil {
		if response.StatusCode() >= 400 {
			return nil, &ProviderError{
				Status:    strconv.Itoa(response.StatusCode()),
				Message:   fmt.Sprintf("soap endpoint returned HTTP %d", response.StatusCode()),
				Transient: isTransientHTTPStatus(response.StatusCode()),
				Cause:     err,
			}
		}
		return nil, &ProviderError{
			Message: "malformed soap response",
			Cause:   err,
		}
	}

	if fault := envelope.Body.Fault; fault != nil {
		return nil, &ProviderError{
			Status:  fault.Code,
			Message: fault.String,
		}
	}

	result := strings.TrimSpace(envelope.Body.Response.Return)

	// The RPC returns an opaque result that doubles as the provider
	// message id; reaching this point is the success marker.
	return &SendResult{
		MessageID:  result,
		StatusCode: "200",
		StatusMsg:  "OK",
	}, nil
}

func buildSMSUserSendEnvelope(creds smppCredentials, mobile, body string, params domain.SMSParams) string {
	noStop := 0
	if params.NoStop {
		noStop = 1
	}

	args := []struct {
		name  string
		value string
	}{
		{"login", creds.login},
		{"password", creds.password},
		{"account", creds.account},
		{"sender", creds.sender},
		{"to", mobile},
		{"message", body},
		{"validity", strconv.Itoa(params.ValidityMinutes)},
		{"class", params.Class.String()},
		{"deferred", strconv.Itoa(params.DeferredMinutes)},
		{"priority", params.Priority.String()},
		{"coding", params.Coding.String()},
		{"tag", params.Tag},
		{"nostop", strconv.Itoa(noStop)},
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.WriteString(`<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/">`)
	buf.WriteString(`<soapenv:Body>`)
	buf.WriteString("<" + smppRPCName + ">")
	for _, arg := range args {
		buf.WriteString("<" + arg.name + ">")
		_ = xml.EscapeText(&buf, []byte(arg.value))
		buf.WriteString("</" + arg.name + ">")
	}
	buf.WriteString("</" + smppRPCName + ">")
	buf.WriteString(`</soapenv:Body>`)
	buf.WriteString(`</soapenv:Envelope>`)

	return buf.String()
}

type soapEnvelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		Fault *soapFault `xml:"Fault"`
		// RPC-style response: first child element of the response wrapper.
		Response struct {
			Return string `xml:"return"`
		} `xml:"telephonySmsUserSendResponse"`
	} `xml:"Body"`
}

type soapFault struct {
	Code   string `xml:"faultcode"`
	String string `xml:"faultstring"`
}
