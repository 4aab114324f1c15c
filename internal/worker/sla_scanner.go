package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/feedback-engine/internal/config"
	"github.com/spec-kit/feedback-engine/internal/domain"
	"github.com/spec-kit/feedback-engine/internal/observability"
	"github.com/spec-kit/feedback-engine/internal/repository"
	"github.com/spec-kit/feedback-engine/internal/service"
)

// SLAScanner periodically escalates cases that breached their deadline.
type SLAScanner struct {
	cases   repository.FeedbackCaseRepository
	actions *service.CaseService
	metrics *observability.Metrics
	logger  *zap.Logger
	cfg     config.ScannerConfig
	now     func() time.Time
}

// NewSLAScanner constructs the scanner.
func NewSLAScanner(cases repository.FeedbackCaseRepository, actions *service.CaseService, metrics *observability.Metrics, logger *zap.Logger, cfg config.ScannerConfig) *SLAScanner {
	return &SLAScanner{
		cases:   cases,
		actions: actions,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Run ticks until the context is cancelled.
func (s *SLAScanner) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count, err := s.ScanOnce(ctx)
			if err != nil {
				s.logger.Error("sla scan pass failed", zap.Error(err))
				continue
			}
			if count > 0 {
				s.logger.Info("sla scan pass complete", zap.Int("escalated", count))
			}
		}
	}
}

// ScanOnce performs a single pass and returns the number of cases escalated.
// Per-case failures are logged and skipped; the pass honors an overall
// deadline and leaves remaining candidates for the next tick.
func (s *SLAScanner) ScanOnce(ctx context.Context) (int, error) {
	passCtx, cancel := context.WithTimeout(ctx, s.cfg.Deadline())
	defer cancel()

	now := s.now()
	candidates, err := s.cases.ListSLABreached(passCtx, now, s.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	escalated := 0
	for i := range candidates {
		if passCtx.Err() != nil {
			s.logger.Warn("sla scan deadline reached, deferring remaining cases",
				zap.Int("remaining", len(candidates)-i))
			break
		}
		fc := &candidates[i]
		if fc.EscalationLevel >= domain.MaxAutoEscalationLevel {
			s.metrics.Incr(observability.CounterSLAScanMaxLevel)
			s.logger.Warn("case breached at max escalation level, needs manual handling",
				zap.String("case_id", fc.ID))
			continue
		}
		_, err := s.actions.PerformAction(passCtx, domain.ActorScanner, nil, fc.ID, domain.Escalate{
			Reason:    service.SLABreachReason,
			Automatic: true,
		})
		if err != nil {
			// A concurrent pass already moved the case; that is a no-op here.
			if errors.Is(err, domain.ErrConcurrentModification) || errors.Is(err, domain.ErrInvalidTransition) {
				s.logger.Debug("case escalated by concurrent pass",
					zap.String("case_id", fc.ID))
				continue
			}
			s.logger.Error("automatic escalation failed",
				zap.String("case_id", fc.ID),
				zap.Error(err))
			continue
		}
		escalated++
		s.metrics.Incr(observability.CounterSLAScanEscalated)
	}
	return escalated, nil
}
