package service

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/MohamedRayeneRomdhane/odoo-SMS-Module/internal/domain"
	"github.com/MohamedRayeneRomdhane/odoo-SMS-Module/internal/repository"
	"go.uber.org/zap"
)

// VerificationService handles the gateway verification handshake: a short
// code is sent to a test handset, then confirmed back to prove the gateway
// actually delivers.
type VerificationService struct {
	gateways repository.GatewayRepository
	dispatch *DispatchService
	logger   *zap.Logger
	now      func() time.Time
}

func NewVerificationService(
	gateways repository.GatewayRepository,
	dispatch *DispatchService,
	logger *zap.Logger,
) (*VerificationService, error) {
	if gateways == nil {
		return nil, fmt.Errorf("gateway repository is required")
	}
	if dispatch == nil {
		return nil, fmt.Errorf("dispatch service is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &VerificationService{
		gateways: gateways,
		dispatch: dispatch,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// SendCode generates a verification code, texts it to the given mobile and
// moves the gateway to waiting.
func (s *VerificationService) SendCode(ctx context.Context, principal Principal, gatewayID, mobile string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(mobile) == "" {
		return fmt.Errorf("%w: verification mobile is required", domain.ErrValidation)
	}

	gw, err := s.gateways.GetByID(ctx, gatewayID)
	if err != nil {
		return err
	}

	code := verificationCode(s.now(), mobile)

	msg := &domain.OutboundMessage{
		GatewayID: gw.ID,
		Mobile:    mobile,
		Text:      fmt.Sprintf("Your verification code is: %s", code),
	}
	if _, err := s.dispatch.SendNow(ctx, principal, msg); err != nil {
		return fmt.Errorf("failed to send verification code: %w", err)
	}

	if err := s.gateways.SetState(ctx, gw.ID, domain.GatewayStateWaiting, code); err != nil {
		return fmt.Errorf("failed to store verification code: %w", err)
	}

	s.logger.Info("verification code sent",
		zap.String("gatewayId", gw.ID),
		zap.String("mobile", mobile),
	)
	return nil
}

// Confirm checks the code received back on the handset and moves the
// gateway to confirmed.
func (s *VerificationService) Confirm(ctx context.Context, gatewayID, code string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	gw, err := s.gateways.GetByID(ctx, gatewayID)
	if err != nil {
		return err
	}
	if gw.State != domain.GatewayStateWaiting {
		return fmt.Errorf("%w: gateway %s is not awaiting verification", domain.ErrConflict, gw.Name)
	}
	if gw.Code == "" || gw.Code != strings.TrimSpace(code) {
		return fmt.Errorf("%w: verification code does not match", domain.ErrValidation)
	}

	if err := s.gateways.SetState(ctx, gw.ID, domain.GatewayStateConfirmed, ""); err != nil {
		return fmt.Errorf("failed to confirm gateway: %w", err)
	}

	s.logger.Info("gateway confirmed", zap.String("gatewayId", gw.ID))
	return nil
}

// verificationCode derives a 6 character hex code from the current time and
// the target mobile.
func verificationCode(now time.Time, mobile string) string {
	sum := md5.Sum([]byte(strconv.FormatInt(now.Unix(), 10) + mobile))
	return hex.EncodeToString(sum[:])[:6]
}
