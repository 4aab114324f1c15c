package repository

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const recoveryMetricsKey = "feedback:recovery_metrics"

// RecoveryMetrics holds aggregate recovery outcomes.
type RecoveryMetrics struct {
	CasesRecovered int64
	CasesResolved  int64
	ScoreDeltaSum  float64
}

// RecoveryMetricsRepository accumulates aggregate recovery outcomes.
type RecoveryMetricsRepository interface {
	RecordRecovered(ctx context.Context, originalScore, recoveryScore float64) error
	RecordResolved(ctx context.Context) error
	Snapshot(ctx context.Context) (RecoveryMetrics, error)
}

type recoveryMetricsRepository struct {
	client *redis.Client
}

// NewRecoveryMetricsRepository builds a redis-backed metrics store.
func NewRecoveryMetricsRepository(client *redis.Client) RecoveryMetricsRepository {
	return &recoveryMetricsRepository{client: client}
}

func (r *recoveryMetricsRepository) RecordRecovered(ctx context.Context, originalScore, recoveryScore float64) error {
	pipe := r.client.TxPipeline()
	pipe.HIncrBy(ctx, recoveryMetricsKey, "cases_recovered", 1)
	pipe.HIncrByFloat(ctx, recoveryMetricsKey, "score_delta_sum", recoveryScore-originalScore)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *recoveryMetricsRepository) RecordResolved(ctx context.Context) error {
	return r.client.HIncrBy(ctx, recoveryMetricsKey, "cases_resolved", 1).Err()
}

func (r *recoveryMetricsRepository) Snapshot(ctx context.Context) (RecoveryMetrics, error) {
	values, err := r.client.HGetAll(ctx, recoveryMetricsKey).Result()
	if err != nil {
		return RecoveryMetrics{}, err
	}
	var metrics RecoveryMetrics
	if v, ok := values["cases_recovered"]; ok {
		metrics.CasesRecovered, _ = strconv.ParseInt(v, 10, 64)
	}
	if v, ok := values["cases_resolved"]; ok {
		metrics.CasesResolved, _ = strconv.ParseInt(v, 10, 64)
	}
	if v, ok := values["score_delta_sum"]; ok {
		metrics.ScoreDeltaSum, _ = strconv.ParseFloat(v, 64)
	}
	return metrics, nil
}
