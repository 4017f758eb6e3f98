// Package analytics hosts the application services for the derived read
// models: the co-purchase correlation snapshot and the loyalty classifier.
package analytics

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shelfwise/backend/internal/domain/analytics"
	"github.com/shelfwise/backend/internal/infrastructure/cache"
)

// CorrelationService owns the correlation snapshot lifecycle: rebuilds after
// sync passes and cached ranked reads.
type CorrelationService struct {
	repo     analytics.CorrelationRepository
	cache    cache.CorrelationCache
	cacheTTL time.Duration
	logger   *zap.Logger

	// rebuildMu serializes rebuilds; TryLock keeps overlapping triggers
	// from queueing redundant passes.
	rebuildMu sync.Mutex

	// rebuildTimeout bounds a detached rebuild.
	rebuildTimeout time.Duration
}

// NewCorrelationService creates a new CorrelationService.
func NewCorrelationService(
	repo analytics.CorrelationRepository,
	corrCache cache.CorrelationCache,
	cacheTTL time.Duration,
	logger *zap.Logger,
) *CorrelationService {
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &CorrelationService{
		repo:           repo,
		cache:          corrCache,
		cacheTTL:       cacheTTL,
		logger:         logger.Named("correlation"),
		rebuildTimeout: 10 * time.Minute,
	}
}

// Rebuild regenerates the snapshot and invalidates the read cache. Returns
// analytics.ErrRebuildInProgress when another rebuild is running.
func (s *CorrelationService) Rebuild(ctx context.Context) (int64, error) {
	if !s.rebuildMu.TryLock() {
		return 0, analytics.ErrRebuildInProgress
	}
	defer s.rebuildMu.Unlock()

	started := time.Now()
	written, err := s.repo.Rebuild(ctx)
	if err != nil {
		return 0, err
	}

	if err := s.cache.Invalidate(ctx); err != nil {
		// Stale cache entries expire via TTL; not worth failing the rebuild.
		s.logger.Warn("Failed to invalidate correlation cache", zap.Error(err))
	}

	s.logger.Info("Correlation model rebuilt",
		zap.Int64("edges", written),
		zap.Duration("duration", time.Since(started)),
	)
	return written, nil
}

// RebuildAsync runs Rebuild detached from the caller. An already-running
// rebuild is not an error: the running pass will see the same data.
func (s *CorrelationService) RebuildAsync() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.rebuildTimeout)
		defer cancel()

		if _, err := s.Rebuild(ctx); err != nil {
			if err == analytics.ErrRebuildInProgress {
				s.logger.Debug("Correlation rebuild already running, skipping")
				return
			}
			s.logger.Error("Correlation rebuild failed", zap.Error(err))
		}
	}()
}

// TopCorrelations returns the ranked edge list, serving from cache when
// possible. The limit is clamped to analytics.DefaultTopLimit, the depth the
// cache holds.
func (s *CorrelationService) TopCorrelations(ctx context.Context, limit int) ([]analytics.CorrelationEdge, error) {
	if limit <= 0 || limit > analytics.DefaultTopLimit {
		limit = analytics.DefaultTopLimit
	}

	cached, hit, err := s.cache.Get(ctx)
	if err != nil {
		s.logger.Warn("Correlation cache read failed", zap.Error(err))
	} else if hit {
		return clampEdges(cached, limit), nil
	}

	edges, err := s.repo.TopByCount(ctx, analytics.DefaultTopLimit)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, edges, s.cacheTTL); err != nil {
		s.logger.Warn("Correlation cache write failed", zap.Error(err))
	}

	return clampEdges(edges, limit), nil
}

func clampEdges(edges []analytics.CorrelationEdge, limit int) []analytics.CorrelationEdge {
	if len(edges) <= limit {
		return edges
	}
	return edges[:limit]
}
