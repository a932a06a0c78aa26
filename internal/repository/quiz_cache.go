package repository

import (
	"context"
	"encoding/json"
	"equiz_backend/internal/model"
	"time"

	"github.com/go-redis/redis/v8"
)

const quizQuestionsKeyPrefix = "equiz:quiz:questions:"

// QuizQuestionCache keeps the ordered question set of a quiz in redis so
// attempt starts skip the join. A nil client turns every call into a miss.
type QuizQuestionCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewQuizQuestionCache(client *redis.Client, ttl time.Duration) *QuizQuestionCache {
	return &QuizQuestionCache{Client: client, TTL: ttl}
}

func (c *QuizQuestionCache) Get(ctx context.Context, quizID string) ([]model.QuizQuestion, bool) {
	if c == nil || c.Client == nil {
		return nil, false
	}
	data, err := c.Client.Get(ctx, quizQuestionsKeyPrefix+quizID).Bytes()
	if err != nil {
		return nil, false
	}
	var qqs []model.QuizQuestion
	if err := json.Unmarshal(data, &qqs); err != nil {
		return nil, false
	}
	return qqs, true
}

func (c *QuizQuestionCache) Set(ctx context.Context, quizID string, qqs []model.QuizQuestion) error {
	if c == nil || c.Client == nil {
		return nil
	}
	data, err := json.Marshal(qqs)
	if err != nil {
		return err
	}
	return c.Client.Set(ctx, quizQuestionsKeyPrefix+quizID, data, c.TTL).Err()
}

func (c *QuizQuestionCache) Invalidate(ctx context.Context, quizID string) error {
	if c == nil || c.Client == nil {
		return nil
	}
	return c.Client.Del(ctx, quizQuestionsKeyPrefix+quizID).Err()
}
