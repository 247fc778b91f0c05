package handler

import (
	"fmt"
	"strings"
	"time"

	"github.com/MohamedRayeneRomdhane/odoo-SMS-Module/internal/domain"
	"github.com/MohamedRayeneRomdhane/odoo-SMS-Module/internal/service"
	"github.com/gofiber/fiber/v2"
)

type GatewayHandler struct {
	gateways *service.GatewayService
	verify   *service.VerificationService
}

func NewGatewayHandler(gateways *service.GatewayService, verify *service.VerificationService) (*GatewayHandler, error) {
	if gateways == nil {
		return nil, fmt.Errorf("gateway service is required")
	}
	return &GatewayHandler{gateways: gateways, verify: verify}, nil
}

func RegisterGatewayRoutes(router fiber.Router, gateways *service.GatewayService, verify *service.VerificationService) error {
	h, err := NewGatewayHandler(gateways, verify)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/gateways", h.CreateGateway)
	v1.Get("/gateways", h.ListGateways)
	v1.Get("/gateways/:id", h.GetGateway)
	v1.Put("/gateways/:id", h.UpdateGateway)
	v1.Put("/gateways/:id/params", h.ReplaceParams)
	v1.Get("/gateways/:id/templates", h.ListTemplates)
	v1.Put("/gateways/:id/templates/:event", h.SetTemplate)
	v1.Post("/gateways/:id/verify", h.SendVerificationCode)
	v1.Post("/gateways/:id/confirm", h.ConfirmGateway)

	return nil
}

type gatewayParamRequest struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Type  string `json:"type"`
}

type gatewayRequest struct {
	Name            string                `json:"name"`
	URL             string                `json:"url"`
	Method          string                `json:"method"`
	ValidityMinutes int                   `json:"validityMinutes"`
	Class           string                `json:"class"`
	Coding          string                `json:"coding"`
	Priority        string                `json:"priority"`
	DeferredMinutes int                   `json:"deferredMinutes"`
	Tag             string                `json:"tag"`
	NoStop          *bool                 `json:"nostop"`
	CharLimit       *bool                 `json:"charLimit"`
	MobileParam     string                `json:"mobileParam"`
	MessageParam    string                `json:"messageParam"`
	FunctionParam   string                `json:"functionParam"`
	SenderParam     string                `json:"senderParam"`
	APIKey          string                `json:"apiKey"`
	Params          []gatewayParamRequest `json:"params"`
}

type gatewayParamResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Value string `json:"value"`
	Type  string `json:"type"`
}

type gatewayResponse struct {
	ID              string                 `json:"id"`
	Name            string                 `json:"name"`
	URL             string                 `json:"url"`
	Method          string                 `json:"method"`
	State           string                 `json:"state"`
	ValidityMinutes int                    `json:"validityMinutes"`
	Class           string                 `json:"class"`
	Coding          string                 `json:"coding"`
	Priority        string                 `json:"priority"`
	DeferredMinutes int                    `json:"deferredMinutes"`
	Tag             string                 `json:"tag,omitempty"`
	NoStop          bool                   `json:"nostop"`
	CharLimit       bool                   `json:"charLimit"`
	MobileParam     string                 `json:"mobileParam"`
	MessageParam    string                 `json:"messageParam"`
	FunctionParam   string                 `json:"functionParam"`
	SenderParam     string                 `json:"senderParam,omitempty"`
	Params          []gatewayParamResponse `json:"params,omitempty"`
	CreatedAt       time.Time              `json:"createdAt"`
}

type templateRequest struct {
	Body    string `json:"body"`
	Enabled *bool  `json:"enabled"`
}

type templateResponse struct {
	Event   string `json:"event"`
	Body    string `json:"body"`
	Enabled bool   `json:"enabled"`
}

func (h *GatewayHandler) CreateGateway(c *fiber.Ctx) error {
	var req gatewayRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	gw, err := requestToGateway(req)
	if err != nil {
		return toHTTPError(err)
	}

	created, err := h.gateways.Create(c.Context(), gw)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(toGatewayResponse(created))
}

func (h *GatewayHandler) ListGateways(c *fiber.Ctx) error {
	gateways, err := h.gateways.List(c.Context())
	if err != nil {
		return toHTTPError(err)
	}

	data := make([]gatewayResponse, 0, len(gateways))
	for i := range gateways {
		data = append(data, toGatewayResponse(&gateways[i]))
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"data": data})
}

func (h *GatewayHandler) GetGateway(c *fiber.Ctx) error {
	gw, err := h.gateways.Get(c.Context(), strings.TrimSpace(c.Params("id")))
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toGatewayResponse(gw))
}

func (h *GatewayHandler) UpdateGateway(c *fiber.Ctx) error {
	var req gatewayRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	gw, err := requestToGateway(req)
	if err != nil {
		return toHTTPError(err)
	}
	gw.ID = strings.TrimSpace(c.Params("id"))

	updated, err := h.gateways.Update(c.Context(), gw)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toGatewayResponse(updated))
}

func (h *GatewayHandler) ReplaceParams(c *fiber.Ctx) error {
	var req struct {
		Params []gatewayParamRequest `json:"params"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	params := make([]domain.GatewayParam, 0, len(req.Params))
	for _, p := range req.Params {
		params = append(params, domain.GatewayParam{
			Name:  strings.TrimSpace(p.Name),
			Value: p.Value,
			Type:  domain.ParamType(strings.TrimSpace(p.Type)),
		})
	}

	gatewayID := strings.TrimSpace(c.Params("id"))
	if err := h.gateways.ReplaceParams(c.Context(), gatewayID, params); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"gatewayId": gatewayID})
}

func (h *GatewayHandler) ListTemplates(c *fiber.Ctx) error {
	templates, err := h.gateways.Templates(c.Context(), strings.TrimSpace(c.Params("id")))
	if err != nil {
		return toHTTPError(err)
	}

	data := make([]templateResponse, 0, len(templates))
	for _, tmpl := range templates {
		data = append(data, templateResponse{
			Event:   tmpl.Event.String(),
			Body:    tmpl.Body,
			Enabled: tmpl.Enabled,
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"data": data})
}

func (h *GatewayHandler) SetTemplate(c *fiber.Ctx) error {
	var req templateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	event, err := domain.ParseEventFromString(c.Params("event"))
	if err != nil {
		return toHTTPError(err)
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	tmpl := &domain.MessageTemplate{
		GatewayID: strings.TrimSpace(c.Params("id")),
		Event:     event,
		Body:      req.Body,
		Enabled:   enabled,
	}
	if err := h.gateways.SetTemplate(c.Context(), tmpl); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(templateResponse{
		Event:   tmpl.Event.String(),
		Body:    tmpl.Body,
		Enabled: tmpl.Enabled,
	})
}

func (h *GatewayHandler) SendVerificationCode(c *fiber.Ctx) error {
	if h.verify == nil {
		return fiber.NewError(fiber.StatusNotImplemented, "verification is not configured")
	}

	var req struct {
		Mobile string `json:"mobile"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	gatewayID := strings.TrimSpace(c.Params("id"))
	if err := h.verify.SendCode(c.Context(), requestPrincipal(c), gatewayID, strings.TrimSpace(req.Mobile)); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"gatewayId": gatewayID,
		"state":     domain.GatewayStateWaiting.String(),
	})
}

func (h *GatewayHandler) ConfirmGateway(c *fiber.Ctx) error {
	if h.verify == nil {
		return fiber.NewError(fiber.StatusNotImplemented, "verification is not configured")
	}

	var req struct {
		Code string `json:"code"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	gatewayID := strings.TrimSpace(c.Params("id"))
	if err := h.verify.Confirm(c.Context(), gatewayID, req.Code); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"gatewayId": gatewayID,
		"state":     domain.GatewayStateConfirmed.String(),
	})
}

func requestToGateway(req gatewayRequest) (*domain.Gateway, error) {
	method, err := domain.ParseMethodFromString(req.Method)
	if err != nil {
		return nil, err
	}

	gw := &domain.Gateway{
		Name:            strings.TrimSpace(req.Name),
		URL:             strings.TrimSpace(req.URL),
		Method:          method,
		ValidityMinutes: req.ValidityMinutes,
		Class:           domain.Class(strings.TrimSpace(req.Class)),
		Coding:          domain.Coding(strings.TrimSpace(req.Coding)),
		Priority:        domain.Priority(strings.TrimSpace(req.Priority)),
		DeferredMinutes: req.DeferredMinutes,
		Tag:             strings.TrimSpace(req.Tag),
		NoStop:          true,
		CharLimit:       true,
		MobileParam:     strings.TrimSpace(req.MobileParam),
		MessageParam:    strings.TrimSpace(req.MessageParam),
		FunctionParam:   strings.TrimSpace(req.FunctionParam),
		SenderParam:     strings.TrimSpace(req.SenderParam),
		APIKey:          req.APIKey,
	}
	if req.NoStop != nil {
		gw.NoStop = *req.NoStop
	}
	if req.CharLimit != nil {
		gw.CharLimit = *req.CharLimit
	}

	for _, p := range req.Params {
		gw.Params = append(gw.Params, domain.GatewayParam{
			Name:  strings.TrimSpace(p.Name),
			Value: p.Value,
			Type:  domain.ParamType(strings.TrimSpace(p.Type)),
		})
	}

	return gw, nil
}

func toGatewayResponse(gw *domain.Gateway) gatewayResponse {
	if gw == nil {
		return gatewayResponse{}
	}

	params := make([]gatewayParamResponse, 0, len(gw.Params))
	for _, p := range gw.Params {
		params = append(params, gatewayParamResponse{
			ID:    p.ID,
			Name:  p.Name,
			Value: p.Value,
			Type:  p.Type.String(),
		})
	}

	return gatewayResponse{
		ID:              gw.ID,
		Name:            gw.Name,
		URL:             gw.URL,
		Method:          gw.Method.String(),
		State:           gw.State.String(),
		ValidityMinutes: gw.ValidityMinutes,
		Class:           gw.Class.String(),
		Coding:          gw.Coding.String(),
		Priority:        gw.Priority.String(),
		DeferredMinutes: gw.DeferredMinutes,
		Tag:             gw.Tag,
		NoStop:          gw.NoStop,
		CharLimit:       gw.CharLimit,
		MobileParam:     gw.MobileParam,
		MessageParam:    gw.MessageParam,
		FunctionParam:   gw.FunctionParam,
		SenderParam:     gw.SenderParam,
		Params:          params,
		CreatedAt:       gw.CreatedAt,
	}
}
