package service

import (
	"context"
	"fmt"
	"time"

	"github.com/MohamedRayeneRomdhane/odoo-SMS-Module/internal/domain"
	"github.com/MohamedRayeneRomdhane/odoo-SMS-Module/internal/observability"
	"github.com/MohamedRayeneRomdhane/odoo-SMS-Module/internal/provider"
	"github.com/MohamedRayeneRomdhane/odoo-SMS-Module/internal/ratelimit"
	"github.com/MohamedRayeneRomdhane/odoo-SMS-Module/internal/repository"
	"go.uber.org/zap"
)

const (
	// DefaultDrainBatchSize bounds how many queue entries one drain tick
	// may touch.
	DefaultDrainBatchSize = 30

	defaultDrainInterval = time.Minute

	// ErrMessageTooLong is the queue error text recorded on char-limit
	// policy violations.
	ErrMessageTooLong = "message exceeds maximum length"
)

// DrainService is the periodic batch loop that attempts to send every
// drainable queue entry.
type DrainService struct {
	queue     repository.QueueRepository
	gateways  repository.GatewayRepository
	history   repository.HistoryRepository
	providers *provider.Registry
	limiter   ratelimit.RateLimiter
	logger    *zap.Logger
	metrics   *observability.Metrics
	interval  time.Duration
	batchSize int
	now       func() time.Time
}

func NewDrainService(
	queue repository.QueueRepository,
	gateways repository.GatewayRepository,
	history repository.HistoryRepository,
	providers *provider.Registry,
	limiter ratelimit.RateLimiter,
	interval time.Duration,
	batchSize int,
	logger *zap.Logger,
) (*DrainService, error) {
	if queue == nil || gateways == nil || history == nil {
		return nil, fmt.Errorf("queue, gateway and history repositories are required")
	}
	if providers == nil {
		return nil, fmt.Errorf("provider registry is required")
	}
	if interval <= 0 {
		interval = defaultDrainInterval
	}
	if batchSize <= 0 {
		batchSize = DefaultDrainBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &DrainService{
		queue:     queue,
		gateways:  gateways,
		history:   history,
		providers: providers,
		limiter:   limiter,
		logger:    logger,
		interval:  interval,
		batchSize: batchSize,
		now:       time.Now,
	}, nil
}

func (s *DrainService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Start runs the drain on a fixed schedule until context cancellation.
func (s *DrainService) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.Drain(ctx, s.batchSize); err != nil && ctx.Err() == nil {
		s.logger.Error("initial queue drain failed", zap.Error(err))
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.Drain(ctx, s.batchSize); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.logger.Error("queue drain failed", zap.Error(err))
			}
		}
	}
}

// Drain claims up to batchSize drainable entries, oldest first, and
// attempts each one. Per-entry failures are captured on the entry and never
// abort the batch; only queue-store failures are returned.
func (s *DrainService) Drain(ctx context.Context, batchSize int) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if batchSize <= 0 {
		batchSize = DefaultDrainBatchSize
	}

	entries, err := s.queue.ClaimBatch(ctx, batchSize)
	if err != nil {
		return fmt.Errorf("failed to claim queue batch: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}

	if s.metrics != nil {
		s.metrics.AddDrainClaimed(len(entries))
	}

	gatewayCache := make(map[string]*domain.Gateway)
	for i := range entries {
		if ctx.Err() != nil {
			return nil
		}
		s.processEntry(ctx, &entries[i], gatewayCache)
	}

	return nil
}

func (s *DrainService) processEntry(ctx context.Context, entry *domain.QueueEntry, gatewayCache map[string]*domain.Gateway) {
	gw, ok := gatewayCache[entry.GatewayID]
	if !ok {
		loaded, err := s.gateways.GetByID(ctx, entry.GatewayID)
		if err != nil {
			s.markError(ctx, entry, fmt.Sprintf("gateway %s unavailable: %v", entry.GatewayID, err))
			return
		}
		gw = loaded
		gatewayCache[entry.GatewayID] = gw
	}

	// Policy violations are rejected before any wire activity and leave
	// no history entry: nothing was attempted.
	if gw.CharLimit && len([]rune(entry.Text)) > domain.MaxMessageChars {
		s.markError(ctx, entry, ErrMessageTooLong)
		if s.metrics != nil {
			s.metrics.IncPolicyRejected(gw.Name)
		}
		return
	}

	adapter := s.providers.For(gw.Method)
	if adapter == nil {
		s.markError(ctx, entry, fmt.Sprintf("no transport registered for method %s", gw.Method))
		return
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx, gw.Name); err != nil {
			if ctx.Err() != nil {
				return
			}
			// Fail open: a limiter outage must not stall the queue.
			s.logger.Warn("rate limiter wait failed",
				zap.String("gateway", gw.Name),
				zap.Error(err),
			)
		}
	}

	msg := messageFromQueueEntry(entry)

	sendStart := s.now()
	result, sendErr := adapter.Send(ctx, msg, *gw)
	if s.metrics != nil {
		s.metrics.ObserveSendDuration(gw.Name, s.now().Sub(sendStart))
	}

	if sendErr != nil {
		s.recordAttempt(ctx, gw, entry, nil, sendErr)
		s.markError(ctx, entry, sendErr.Error())
		if s.metrics != nil {
			s.metrics.IncSendFailed(gw.Name, "transport_error")
		}
		return
	}

	s.recordAttempt(ctx, gw, entry, result, nil)
	if err := s.queue.MarkSent(ctx, entry.ID); err != nil {
		s.logger.Error("failed to mark queue entry sent",
			zap.String("entryId", entry.ID),
			zap.Error(err),
		)
		return
	}
	if s.metrics != nil {
		s.metrics.IncSendSucceeded(gw.Name)
	}
}

func (s *DrainService) markError(ctx context.Context, entry *domain.QueueEntry, message string) {
	if err := s.queue.MarkError(ctx, entry.ID, message); err != nil {
		s.logger.Error("failed to mark queue entry as error",
			zap.String("entryId", entry.ID),
			zap.Error(err),
		)
	}
}

func (s *DrainService) recordAttempt(ctx context.Context, gw *domain.Gateway, entry *domain.QueueEntry, result *provider.SendResult, sendErr error) {
	record := newHistoryEntry(s.now(), gw, entry.Mobile, entry.Text, result, sendErr)
	if err := s.history.Create(ctx, record); err != nil {
		s.logger.Error("failed to record send attempt",
			zap.String("entryId", entry.ID),
			zap.Error(err),
		)
	}
}

func messageFromQueueEntry(entry *domain.QueueEntry) domain.OutboundMessage {
	validity := entry.ValidityMinutes
	class := entry.Class
	coding := entry.Coding
	noStop := entry.NoStop

	return domain.OutboundMessage{
		GatewayID:       entry.GatewayID,
		Mobile:          entry.Mobile,
		Text:            entry.Text,
		ValidityMinutes: &validity,
		Class:           &class,
		Coding:          &coding,
		NoStop:          &noStop,
	}
}
