package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/feedback-engine/internal/domain"
	"github.com/spec-kit/feedback-engine/internal/repository"
)

// AnalyticsService updates aggregate recovery metrics after a transition
// commits. It is invoked explicitly and fails independently; a metrics write
// error never corrupts case state.
type AnalyticsService struct {
	metrics repository.RecoveryMetricsRepository
	logger  *zap.Logger
}

// NewAnalyticsService creates the service.
func NewAnalyticsService(metrics repository.RecoveryMetricsRepository, logger *zap.Logger) *AnalyticsService {
	return &AnalyticsService{metrics: metrics, logger: logger}
}

// RecordRecovered folds a recovered case into the aggregates.
func (s *AnalyticsService) RecordRecovered(ctx context.Context, fc *domain.FeedbackCase) {
	if s == nil || s.metrics == nil || fc.RecoveryScore == nil {
		return
	}
	if err := s.metrics.RecordRecovered(ctx, fc.OriginalScore, *fc.RecoveryScore); err != nil {
		s.logger.Error("recovery metrics update failed",
			zap.String("case_id", fc.ID),
			zap.Error(err))
	}
}

// RecordResolved counts a resolved case.
func (s *AnalyticsService) RecordResolved(ctx context.Context, fc *domain.FeedbackCase) {
	if s == nil || s.metrics == nil {
		return
	}
	if err := s.metrics.RecordResolved(ctx); err != nil {
		s.logger.Error("recovery metrics update failed",
			zap.String("case_id", fc.ID),
			zap.Error(err))
	}
}

// Snapshot reads the current aggregates.
func (s *AnalyticsService) Snapshot(ctx context.Context) (repository.RecoveryMetrics, error) {
	return s.metrics.Snapshot(ctx)
}
