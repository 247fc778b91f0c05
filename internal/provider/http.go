package provider

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MohamedRayeneRomdhane/odoo-SMS-Module/internal/domain"
	"github.com/go-resty/resty/v2"
)

const defaultHTTPTimeout = 30 * time.Second

// StatusParseError is reported when the provider body cannot be parsed as
// the expected XML; the raw parse error is carried in StatusMsg.
const StatusParseError = "parse_error"

// sendResponse mirrors the provider's send response body:
// <response><status>...</status></response>.
type sendResponse struct {
	XMLName xml.Name `xml:"response"`
	Status  struct {
		MessageID    string `xml:"message_id"`
		StatusCode   string `xml:"status_code"`
		StatusMobile string `xml:"status_mobile"`
		StatusMsg    string `xml:"status_msg"`
	} `xml:"status"`
}

// dlrResponse mirrors the provider's delivery-receipt body:
// <acknowledgement><message>...</message></acknowledgement>.
type dlrResponse struct {
	XMLName xml.Name `xml:"acknowledgement"`
	Message struct {
		MessageID           string `xml:"message_id"`
		Acknowledgement     string `xml:"acknowledgement"`
		AcknowledgementDate string `xml:"acknowledgement_date"`
	} `xml:"message"`
}

// HTTPProvider submits messages with a fire-and-forget GET against the
// gateway URL and parses the synchronous XML response. It also serves
// delivery-receipt queries, which use the same endpoint with fct=dlr.
type HTTPProvider struct {
	client *resty.Client
}

func NewHTTPProvider() *HTTPProvider {
	client := resty.New()
	client.SetTimeout(defaultHTTPTimeout)
	client.SetRetryCount(0)

	return &HTTPProvider{client: client}
}

func NewHTTPProviderWithClient(client *resty.Client) (*HTTPProvider, error) {
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}
	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultHTTPTimeout)
	}
	client.SetRetryCount(0)

	return &HTTPProvider{client: client}, nil
}

var _ Provider = (*HTTPProvider)(nil)
var _ ReceiptFetcher = (*HTTPProvider)(nil)

func (p *HTTPProvider) Send(ctx context.Context, msg domain.OutboundMessage, gw domain.Gateway) (*SendResult, error) {
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("provider is not initialized")
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(gw.URL) == "" {
		return nil, fmt.Errorf("%w: gateway url is required", domain.ErrConfiguration)
	}

	params := map[string]string{
		"sender": gw.SenderParam,
		"key":    gw.APIKey,
	}
	params[paramName(gw.MobileParam, "mobile")] = msg.Mobile
	params[paramName(gw.MessageParam, "sms")] = msg.Text
	params[paramName(gw.FunctionParam, "fct")] = "sms"

	response, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(gw.URL)
	if err != nil {
		return nil, &ProviderError{
			Message:   "gateway request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}
	if response.StatusCode() >= 400 {
		return nil, &ProviderError{
			Status:    fmt.Sprintf("%d", response.StatusCode()),
			Message:   fmt.Sprintf("gateway returned HTTP %d", response.StatusCode()),
			Transient: isTransientHTTPStatus(response.StatusCode()),
		}
	}

	var parsed sendResponse
	if err := xml.Unmarshal(response.Body(), &parsed); err != nil {
		// Malformed bodies are recorded, not raised: the request already
		// reached the gateway.
		return &SendResult{
			StatusCode: StatusParseError,
			StatusMsg:  err.Error(),
		}, nil
	}

	return &SendResult{
		MessageID:    strings.TrimSpace(parsed.Status.MessageID),
		StatusCode:   strings.TrimSpace(parsed.Status.StatusCode),
		StatusMobile: strings.TrimSpace(parsed.Status.StatusMobile),
		StatusMsg:    strings.TrimSpace(parsed.Status.StatusMsg),
	}, nil
}

func (p *HTTPProvider) FetchReceipt(ctx context.Context, gw domain.Gateway, messageID string) (*Receipt, error) {
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("provider is not initialized")
	}
	if strings.TrimSpace(messageID) == "" {
		return nil, fmt.Errorf("%w: message id is required", domain.ErrValidation)
	}

	response, err := p.client.R().
		SetContext(ctx).
		SetQueryParam(paramName(gw.FunctionParam, "fct"), "dlr").
		SetQueryParam("key", gw.APIKey).
		SetQueryParam("msg_id", messageID).
		Get(gw.URL)
	if err != nil {
		return nil, &ProviderError{
			Message:   "dlr request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}
	if response.StatusCode() >= 400 {
		return nil, &ProviderError{
			Status:    fmt.Sprintf("%d", response.StatusCode()),
			Message:   fmt.Sprintf("gateway returned HTTP %d", response.StatusCode()),
			Transient: isTransientHTTPStatus(response.StatusCode()),
		}
	}

	var parsed dlrResponse
	if err := xml.Unmarshal(response.Body(), &parsed); err != nil {
		return nil, &ProviderError{
			Message: "malformed dlr response",
			Cause:   err,
		}
	}

	return &Receipt{
		MessageID:           strings.TrimSpace(parsed.Message.MessageID),
		Acknowledgement:     strings.TrimSpace(parsed.Message.Acknowledgement),
		AcknowledgementDate: strings.TrimSpace(parsed.Message.AcknowledgementDate),
	}, nil
}

func paramName(configured, fallback string) string {
	if name := strings.TrimSpace(configured); name != "" {
		return name
	}
	return fallback
}

func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == 429 || (statusCode >= 500 && statusCode <= 599)
}
