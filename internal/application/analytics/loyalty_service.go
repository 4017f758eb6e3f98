package analytics

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/shelfwise/backend/internal/domain/sales"
)

// LoyaltyService recomputes the returning-customer classification over the
// full order table. The heavy lifting is one set-based statement in the
// repository; the service adds orchestration and logging.
type LoyaltyService struct {
	orders sales.OrderRepository
	logger *zap.Logger
}

// NewLoyaltyService creates a new LoyaltyService.
func NewLoyaltyService(orders sales.OrderRepository, logger *zap.Logger) *LoyaltyService {
	return &LoyaltyService{
		orders: orders,
		logger: logger.Named("loyalty"),
	}
}

// Reclassify recomputes the flag for every order and returns the number of
// orders now attributed to returning customers. Safe to run at any time;
// repeated runs converge on the same result.
func (s *LoyaltyService) Reclassify(ctx context.Context) (int64, error) {
	started := time.Now()
	flagged, err := s.orders.ReclassifyReturningCustomers(ctx)
	if err != nil {
		return 0, err
	}

	s.logger.Info("Loyalty reclassification completed",
		zap.Int64("returning_orders", flagged),
		zap.Duration("duration", time.Since(started)),
	)
	return flagged, nil
}
