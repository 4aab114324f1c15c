package repository

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// SurveyThrottle enforces minimum spacing between surveys to one contact.
type SurveyThrottle interface {
	// Reserve atomically checks and claims a send slot for the contact.
	// It returns false when a survey went out inside the cooldown window.
	Reserve(ctx context.Context, companyID string, contactID *string, surveyType string) (bool, error)
}

type redisSurveyThrottle struct {
	client   *redis.Client
	cooldown time.Duration
}

// NewSurveyThrottle builds a redis-backed throttle.
func NewSurveyThrottle(client *redis.Client, cooldown time.Duration) SurveyThrottle {
	if cooldown <= 0 {
		cooldown = 30 * 24 * time.Hour
	}
	return &redisSurveyThrottle{client: client, cooldown: cooldown}
}

func (t *redisSurveyThrottle) Reserve(ctx context.Context, companyID string, contactID *string, surveyType string) (bool, error) {
	key := throttleKey(companyID, contactID, surveyType)
	// SET NX claims the window; a pre-existing key means recently surveyed.
	return t.client.SetNX(ctx, key, time.Now().Unix(), t.cooldown).Result()
}

func throttleKey(companyID string, contactID *string, surveyType string) string {
	contact := "-"
	if contactID != nil && *contactID != "" {
		contact = *contactID
	}
	return strings.Join([]string{"survey_throttle", companyID, contact, surveyType}, ":")
}
