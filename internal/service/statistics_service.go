package service

import (
	"context"
	"equiz_backend/internal/model"
	"equiz_backend/internal/repository"
	"equiz_backend/internal/util"
	"equiz_backend/pkg/tracing"

	"github.com/shopspring/decimal"
)

type StatisticsService struct {
	QuizRepo    *repository.QuizRepository
	AttemptRepo *repository.AttemptRepository
	ClassRepo   *repository.ClassRepository
}

func NewStatisticsService(quizRepo *repository.QuizRepository, attemptRepo *repository.AttemptRepository, classRepo *repository.ClassRepository) *StatisticsService {
	return &StatisticsService{QuizRepo: quizRepo, AttemptRepo: attemptRepo, ClassRepo: classRepo}
}

type QuizStatistics struct {
	TotalAttempts     int     `json:"totalAttempts"`
	AverageScore      float64 `json:"averageScore"`
	ParticipationRate float64 `json:"participationRate"`
	GradedResponses   int     `json:"gradedResponses"`
	CompletionRate    float64 `json:"completionRate"`
}

// Compute derives the rollups of a quiz from its attempts without writing them.
func (s *StatisticsService) Compute(ctx context.Context, quizID string) (*QuizStatistics, error) {
	scores, err := s.AttemptRepo.FinalizedScores(ctx, quizID)
	if err != nil {
		return nil, util.Persistence(err)
	}
	counts, err := s.AttemptRepo.CountByStatus(ctx, quizID)
	if err != nil {
		return nil, util.Persistence(err)
	}
	eligible, err := s.ClassRepo.CountEligibleStudents(ctx, quizID)
	if err != nil {
		return nil, util.Persistence(err)
	}

	var all int64
	for _, n := range counts {
		all += n
	}

	stats := &QuizStatistics{
		TotalAttempts:     len(scores),
		AverageScore:      util.Round(Mean(scores), 1),
		ParticipationRate: util.Round(util.Percent(float64(len(scores)), float64(eligible)), 1),
		GradedResponses:   int(counts[model.AttemptGraded]),
		CompletionRate:    util.Round(util.Percent(float64(len(scores)), float64(all)), 1),
	}
	return stats, nil
}

// Recompute rederives the quiz rollups and stores them. Concurrent runs for the
// same quiz may interleave; the last write wins.
func (s *StatisticsService) Recompute(ctx context.Context, quizID string) (*QuizStatistics, error) {
	ctx, span := tracing.Start(ctx, "StatisticsService.Recompute")
	defer span.End()

	stats, err := s.Compute(ctx, quizID)
	if err != nil {
		return nil, err
	}

	err = s.QuizRepo.UpdateFields(ctx, quizID, map[string]interface{}{
		"total_attempts":     stats.TotalAttempts,
		"average_score":      stats.AverageScore,
		"participation_rate": stats.ParticipationRate,
		"graded_responses":   stats.GradedResponses,
		"completion_rate":    stats.CompletionRate,
	})
	if err != nil {
		return nil, util.Persistence(err)
	}
	return stats, nil
}

// Mean is the arithmetic mean of values, 0 for none.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(decimal.NewFromFloat(v))
	}
	return sum.Div(decimal.NewFromInt(int64(len(values)))).InexactFloat64()
}
