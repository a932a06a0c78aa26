package repository

import (
	"context"
	"equiz_backend/internal/model"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

func (r *AttemptRepository) WithTx(tx *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: tx}
}

func (r *AttemptRepository) Create(ctx context.Context, attempt *model.QuizAttempt) error {
	return r.DB.WithContext(ctx).Omit(clause.Associations).Create(attempt).Error
}

func (r *AttemptRepository) FindByID(ctx context.Context, id string) (*model.QuizAttempt, error) {
	var attempt model.QuizAttempt
	err := r.DB.WithContext(ctx).First(&attempt, "id = ?", id).Error
	return &attempt, err
}

func (r *AttemptRepository) FindByIDForUpdate(ctx context.Context, id string) (*model.QuizAttempt, error) {
	var attempt model.QuizAttempt
	err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&attempt, "id = ?", id).Error
	return &attempt, err
}

// CountByQuizAndUser counts every attempt the user has made, whatever its status.
func (r *AttemptRepository) CountByQuizAndUser(ctx context.Context, quizID string, userID uint) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.QuizAttempt{}).
		Where("quiz_id = ? AND user_id = ?", quizID, userID).
		Count(&count).Error
	return count, err
}

// Finish writes the scored result, but only while the attempt is still in
// progress. It reports false when another request got there first.
func (r *AttemptRepository) Finish(ctx context.Context, attempt *model.QuizAttempt) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&model.QuizAttempt{}).
		Where("id = ? AND status = ?", attempt.ID, model.AttemptInProgress).
		Updates(map[string]interface{}{
			"status":               attempt.Status,
			"score":                attempt.Score,
			"submitted_at":         attempt.SubmittedAt,
			"time_spent":           attempt.TimeSpent,
			"responses":            attempt.Responses,
			"needs_manual_grading": attempt.NeedsManualGrading,
		})
	return res.RowsAffected > 0, res.Error
}

// Expire marks an in-progress attempt as expired. It reports false when the
// attempt had already left the in-progress state.
func (r *AttemptRepository) Expire(ctx context.Context, id string) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&model.QuizAttempt{}).
		Where("id = ? AND status = ?", id, model.AttemptInProgress).
		Update("status", model.AttemptExpired)
	return res.RowsAffected > 0, res.Error
}

func (r *AttemptRepository) UpdateGrade(ctx context.Context, id string, score float64, manual datatypes.JSON, gradedAt time.Time) error {
	return r.DB.WithContext(ctx).Model(&model.QuizAttempt{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":               model.AttemptGraded,
			"score":                score,
			"manual_scores":        manual,
			"graded_at":            gradedAt,
			"needs_manual_grading": false,
		}).Error
}

type AttemptFilter struct {
	StudentID uint
	Status    string
}

func (r *AttemptRepository) ListByQuiz(ctx context.Context, quizID string, f AttemptFilter) ([]model.QuizAttempt, error) {
	query := r.DB.WithContext(ctx).Model(&model.QuizAttempt{}).Where("quiz_id = ?", quizID)
	if f.StudentID != 0 {
		query = query.Where("user_id = ?", f.StudentID)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}

	var attempts []model.QuizAttempt
	err := query.Preload("User").Order("started_at desc").Find(&attempts).Error
	return attempts, err
}

// FinalizedScores returns the score of every submitted or graded attempt of the quiz.
func (r *AttemptRepository) FinalizedScores(ctx context.Context, quizID string) ([]float64, error) {
	var scores []float64
	err := r.DB.WithContext(ctx).Model(&model.QuizAttempt{}).
		Where("quiz_id = ? AND status IN ?", quizID, model.FinalizedAttemptStatuses).
		Pluck("score", &scores).Error
	return scores, err
}

type statusCount struct {
	Status model.AttemptStatus
	Count  int64
}

// CountByStatus groups the quiz's attempts by status.
func (r *AttemptRepository) CountByStatus(ctx context.Context, quizID string) (map[model.AttemptStatus]int64, error) {
	var rows []statusCount
	err := r.DB.WithContext(ctx).Model(&model.QuizAttempt{}).
		Select("status, COUNT(*) AS count").
		Where("quiz_id = ?", quizID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[model.AttemptStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// SweepCursor marks the last attempt a sweep page returned. The zero value
// starts from the beginning.
type SweepCursor struct {
	StartedAt time.Time
	ID        string
}

// ListOverdueCandidates pages through in-progress attempts that may be past
// their deadline at cutoff, ordered by start time and id. Attempts whose quiz
// window is still open and whose quiz has no duration limit are skipped in SQL.
// Callers still check each attempt's exact deadline.
func (r *AttemptRepository) ListOverdueCandidates(ctx context.Context, cutoff time.Time, after SweepCursor, limit int) ([]model.QuizAttempt, error) {
	query := r.DB.WithContext(ctx).
		Preload("Quiz").
		Joins("JOIN quizzes ON quizzes.id = quiz_attempts.quiz_id AND quizzes.deleted_at IS NULL").
		Where("quiz_attempts.status = ? AND quiz_attempts.started_at < ?", model.AttemptInProgress, cutoff).
		Where("quizzes.end_date < ? OR quizzes.duration > 0", cutoff)
	if after.ID != "" {
		query = query.Where(
			"quiz_attempts.started_at > ? OR (quiz_attempts.started_at = ? AND quiz_attempts.id > ?)",
			after.StartedAt, after.StartedAt, after.ID,
		)
	}

	var attempts []model.QuizAttempt
	err := query.
		Order("quiz_attempts.started_at asc").
		Order("quiz_attempts.id asc").
		Limit(limit).
		Find(&attempts).Error
	return attempts, err
}

func (r *AttemptRepository) CountAll(ctx context.Context, statuses ...model.AttemptStatus) (int64, error) {
	var count int64
	query := r.DB.WithContext(ctx).Model(&model.QuizAttempt{})
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	err := query.Count(&count).Error
	return count, err
}

// AverageFinalizedScore averages the score of every submitted or graded attempt.
func (r *AttemptRepository) AverageFinalizedScore(ctx context.Context) (float64, error) {
	var avg float64
	err := r.DB.WithContext(ctx).Model(&model.QuizAttempt{}).
		Select("COALESCE(AVG(score), 0)").
		Where("status IN ?", model.FinalizedAttemptStatuses).
		Scan(&avg).Error
	return avg, err
}
