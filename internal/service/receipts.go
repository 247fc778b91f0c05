package service

import (
	"context"
	"fmt"
	"time"

	"github.com/MohamedRayeneRomdhane/odoo-SMS-Module/internal/domain"
	"github.com/MohamedRayeneRomdhane/odoo-SMS-Module/internal/observability"
	"github.com/MohamedRayeneRomdhane/odoo-SMS-Module/internal/provider"
	"github.com/MohamedRayeneRomdhane/odoo-SMS-Module/internal/repository"
	"go.uber.org/zap"
)

const (
	// DefaultReceiptBatchSize bounds how many history entries one poll tick
	// may query.
	DefaultReceiptBatchSize = 30

	// DefaultMaxReceiptAttempts is how many times an entry is polled before
	// it is abandoned as never-acknowledged.
	DefaultMaxReceiptAttempts = 10

	defaultReceiptInterval = 5 * time.Minute
)

// ReceiptService periodically asks gateways for delivery receipts of sent
// messages whose acknowledgement is still missing.
type ReceiptService struct {
	history     repository.HistoryRepository
	gateways    repository.GatewayRepository
	providers   *provider.Registry
	logger      *zap.Logger
	metrics     *observability.Metrics
	interval    time.Duration
	batchSize   int
	maxAttempts int
}

func NewReceiptService(
	history repository.HistoryRepository,
	gateways repository.GatewayRepository,
	providers *provider.Registry,
	interval time.Duration,
	batchSize int,
	logger *zap.Logger,
) (*ReceiptService, error) {
	if history == nil || gateways == nil {
		return nil, fmt.Errorf("history and gateway repositories are required")
	}
	if providers == nil {
		return nil, fmt.Errorf("provider registry is required")
	}
	if interval <= 0 {
		interval = defaultReceiptInterval
	}
	if batchSize <= 0 {
		batchSize = DefaultReceiptBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ReceiptService{
		history:     history,
		gateways:    gateways,
		providers:   providers,
		logger:      logger,
		interval:    interval,
		batchSize:   batchSize,
		maxAttempts: DefaultMaxReceiptAttempts,
	}, nil
}

func (s *ReceiptService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Start runs the receipt poll on a fixed schedule until context
// cancellation.
func (s *ReceiptService) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.Poll(ctx, s.batchSize); err != nil && ctx.Err() == nil {
		s.logger.Error("initial receipt poll failed", zap.Error(err))
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.Poll(ctx, s.batchSize); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.logger.Error("receipt poll failed", zap.Error(err))
			}
		}
	}
}

// Poll queries the provider for up to batchSize unacknowledged entries.
// Per-entry failures are logged and skipped; only the initial history query
// failure is returned.
func (s *ReceiptService) Poll(ctx context.Context, batchSize int) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if batchSize <= 0 {
		batchSize = DefaultReceiptBatchSize
	}

	entries, err := s.history.ListAwaitingReceipt(ctx, batchSize, s.maxAttempts)
	if err != nil {
		return fmt.Errorf("failed to list entries awaiting receipt: %w", err)
	}

	gatewayCache := make(map[string]*domain.Gateway)
	for i := range entries {
		if ctx.Err() != nil {
			return nil
		}
		s.pollEntry(ctx, &entries[i], gatewayCache)
	}

	return nil
}

func (s *ReceiptService) pollEntry(ctx context.Context, entry *domain.HistoryEntry, gatewayCache map[string]*domain.Gateway) {
	// Count the attempt before any provider I/O so a crashing gateway
	// cannot keep an entry in the poll set forever.
	if err := s.history.IncrementDLRAttempts(ctx, entry.ID); err != nil {
		s.logger.Error("failed to count receipt poll attempt",
			zap.String("historyId", entry.ID),
			zap.Error(err),
		)
		return
	}

	gw, ok := gatewayCache[entry.GatewayID]
	if !ok {
		loaded, err := s.gateways.GetByID(ctx, entry.GatewayID)
		if err != nil {
			s.logger.Warn("gateway unavailable for receipt poll",
				zap.String("historyId", entry.ID),
				zap.String("gatewayId", entry.GatewayID),
				zap.Error(err),
			)
			return
		}
		gw = loaded
		gatewayCache[entry.GatewayID] = gw
	}

	fetcher, ok := s.providers.For(gw.Method).(provider.ReceiptFetcher)
	if !ok {
		return
	}

	receipt, err := fetcher.FetchReceipt(ctx, *gw, entry.MessageID)
	if err != nil {
		s.logger.Warn("receipt fetch failed",
			zap.String("historyId", entry.ID),
			zap.String("messageId", entry.MessageID),
			zap.Error(err),
		)
		return
	}
	if receipt == nil || receipt.Acknowledgement == "" {
		return
	}

	if err := s.history.SetAcknowledgement(ctx, entry.ID, receipt.Acknowledgement, receipt.AcknowledgementDate); err != nil {
		s.logger.Error("failed to store acknowledgement",
			zap.String("historyId", entry.ID),
			zap.Error(err),
		)
		return
	}
	if s.metrics != nil {
		s.metrics.IncReceiptResolved(gw.Name)
	}
}
