package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"assessment-service/internal/apperr"
	"assessment-service/internal/models"
	"assessment-service/internal/progression"

	"github.com/redis/go-redis/v9"
)

// StepQuestions is the sanitized question list for one step. Correct
// answers are excluded at the storage projection, so neither the cache
// nor the response can carry them.
type StepQuestions struct {
	Step      int               `json:"step"`
	Levels    []string          `json:"levels"`
	Questions []models.Question `json:"questions"`
	Total     int               `json:"total"`
}

type QuestionService struct {
	Questions QuestionStore
	cache     *redis.Client
	cacheTTL  time.Duration
}

// NewQuestionService builds the service. A nil cache client disables
// caching and every read goes to storage.
func NewQuestionService(questions QuestionStore, cache *redis.Client, cacheTTL time.Duration) *QuestionService {
	return &QuestionService{Questions: questions, cache: cache, cacheTTL: cacheTTL}
}

// GetQuestionsForStep lists the questions for the two levels a step
// covers, read through the Redis cache when one is configured.
func (s *QuestionService) GetQuestionsForStep(ctx context.Context, step int) (*StepQuestions, error) {
	levels, err := progression.LevelsForStep(step)
	if err != nil {
		return nil, apperr.New(apperr.InvalidArgument, "invalid step")
	}

	cacheKey := fmt.Sprintf("assessment:questions:step:%d", step)
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, cacheKey).Result()
		if err == nil {
			var sq StepQuestions
			if err := json.Unmarshal([]byte(cached), &sq); err == nil {
				return &sq, nil
			}
		} else if err != redis.Nil {
			log.Printf("Question cache read failed: %v", err)
		}
	}

	questions, err := s.Questions.FindByLevels(ctx, levels)
	if err != nil {
		return nil, err
	}

	sq := &StepQuestions{
		Step:      step,
		Levels:    levels,
		Questions: questions,
		Total:     len(questions),
	}

	if s.cache != nil {
		if body, err := json.Marshal(sq); err == nil {
			if err := s.cache.Set(ctx, cacheKey, body, s.cacheTTL).Err(); err != nil {
				log.Printf("Question cache write failed: %v", err)
			}
		}
	}
	return sq, nil
}
