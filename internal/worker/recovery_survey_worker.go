package worker

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/feedback-engine/internal/config"
	"github.com/spec-kit/feedback-engine/internal/domain"
	"github.com/spec-kit/feedback-engine/internal/events"
	"github.com/spec-kit/feedback-engine/internal/observability"
	"github.com/spec-kit/feedback-engine/internal/repository"
	"github.com/spec-kit/feedback-engine/internal/service"
)

// SurveyTypeNPS keys the recovery re-survey throttle.
const SurveyTypeNPS = "nps"

// RecoverySurveyScheduler dispatches throttled recovery re-surveys for
// resolved and recovered cases. It is the sole writer of
// recoverySurveySentAt.
type RecoverySurveyScheduler struct {
	cases      repository.FeedbackCaseRepository
	throttle   repository.SurveyThrottle
	dispatcher service.SurveyDispatcher
	eventBus   events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	cfg        config.SurveyConfig
	now        func() time.Time
}

// NewRecoverySurveyScheduler constructs the scheduler.
func NewRecoverySurveyScheduler(cases repository.FeedbackCaseRepository, throttle repository.SurveyThrottle, dispatcher service.SurveyDispatcher, eventBus events.Dispatcher, metrics *observability.Metrics, logger *zap.Logger, cfg config.SurveyConfig) *RecoverySurveyScheduler {
	return &RecoverySurveyScheduler{
		cases:      cases,
		throttle:   throttle,
		dispatcher: dispatcher,
		eventBus:   eventBus,
		metrics:    metrics,
		logger:     logger,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Run ticks until the context is cancelled.
func (s *RecoverySurveyScheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count, err := s.ScanOnce(ctx)
			if err != nil {
				s.logger.Error("recovery survey pass failed", zap.Error(err))
				continue
			}
			if count > 0 {
				s.logger.Info("recovery survey pass complete", zap.Int("sent", count))
			}
		}
	}
}

// ScanOnce performs a single pass and returns the number of surveys sent.
// Throttled cases are left untouched and retried on a later pass without
// resetting their schedule.
func (s *RecoverySurveyScheduler) ScanOnce(ctx context.Context) (int, error) {
	passCtx, cancel := context.WithTimeout(ctx, s.cfg.Deadline())
	defer cancel()

	now := s.now()
	due, err := s.cases.ListSurveyDue(passCtx, now, s.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range due {
		if passCtx.Err() != nil {
			s.logger.Warn("recovery survey deadline reached, deferring remaining cases",
				zap.Int("remaining", len(due)-i))
			break
		}
		fc := &due[i]
		dispatched, err := s.processCase(passCtx, fc, now)
		if err != nil {
			if errors.Is(err, domain.ErrSurveyThrottled) {
				s.metrics.Incr(observability.CounterSurveysThrottled)
				continue
			}
			s.logger.Error("recovery survey dispatch failed",
				zap.String("case_id", fc.ID),
				zap.Error(err))
			continue
		}
		if dispatched {
			sent++
			s.metrics.Incr(observability.CounterSurveysSent)
		}
	}
	return sent, nil
}

func (s *RecoverySurveyScheduler) processCase(ctx context.Context, fc *domain.FeedbackCase, now time.Time) (bool, error) {
	allowed, err := s.throttle.Reserve(ctx, fc.CompanyID, fc.ContactID, SurveyTypeNPS)
	if err != nil {
		return false, err
	}
	if !allowed {
		return false, domain.ErrSurveyThrottled
	}

	// The write-once mark is the dispatch guard; a concurrent pass that lost
	// the race becomes a no-op before any delivery happens.
	if err := s.cases.MarkSurveySent(ctx, fc.ID, now); err != nil {
		if errors.Is(err, domain.ErrConcurrentModification) {
			s.logger.Debug("survey already claimed by concurrent pass",
				zap.String("case_id", fc.ID))
			return false, nil
		}
		return false, err
	}

	if err := s.dispatcher.SendSurvey(ctx, fc.CompanyID, fc.ContactID, SurveyTypeNPS); err != nil {
		// The mark committed; delivery is retried out of band rather than
		// rolling the mark back.
		s.logger.Error("survey delivery failed after dispatch mark, manual retry needed",
			zap.String("case_id", fc.ID),
			zap.Error(err))
		return true, nil
	}

	if s.eventBus != nil {
		_ = s.eventBus.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventRecoverySurveySent,
			CaseID:    fc.ID,
			Timestamp: now,
			Payload: events.RecoverySurveySentPayload{
				CompanyID:  fc.CompanyID,
				ContactID:  fc.ContactID,
				SurveyType: SurveyTypeNPS,
			},
		})
	}
	return true, nil
}
