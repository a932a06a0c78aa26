package repository

import (
	"context"
	"equiz_backend/internal/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type QuizRepository struct {
	DB *gorm.DB
}

func NewQuizRepository(db *gorm.DB) *QuizRepository {
	return &QuizRepository{DB: db}
}

// WithTx binds the repository to an open transaction.
func (r *QuizRepository) WithTx(tx *gorm.DB) *QuizRepository {
	return &QuizRepository{DB: tx}
}

func (r *QuizRepository) Create(ctx context.Context, quiz *model.Quiz) error {
	return r.DB.WithContext(ctx).Omit(clause.Associations).Create(quiz).Error
}

func (r *QuizRepository) FindByID(ctx context.Context, id string) (*model.Quiz, error) {
	var quiz model.Quiz
	err := r.DB.WithContext(ctx).First(&quiz, "id = ?", id).Error
	return &quiz, err
}

// FindByIDForUpdate locks the quiz row until the surrounding transaction ends.
func (r *QuizRepository) FindByIDForUpdate(ctx context.Context, id string) (*model.Quiz, error) {
	var quiz model.Quiz
	err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&quiz, "id = ?", id).Error
	return &quiz, err
}

func (r *QuizRepository) FindWithDetails(ctx context.Context, id string) (*model.Quiz, error) {
	var quiz model.Quiz
	err := r.DB.WithContext(ctx).
		Preload("Course").
		Preload("QuizQuestions", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order asc") }).
		Preload("QuizQuestions.Question").
		Preload("QuizQuestions.Question.Options", orderedOptions).
		Preload("Classes").
		First(&quiz, "id = ?", id).Error
	return &quiz, err
}

// quizSettingColumns are the columns an instructor edit may write. Status and
// the statistics rollups have their own guarded writers.
var quizSettingColumns = []string{
	"title", "description", "evaluation_type", "start_date", "end_date",
	"duration", "max_attempts", "passing_score", "show_results",
	"shuffle_questions", "shuffle_options", "allow_review", "instructions", "updated_at",
}

// UpdateSettings writes the editable settings of quiz. withTotals also writes
// total_questions and total_points after the question list was replaced.
func (r *QuizRepository) UpdateSettings(ctx context.Context, quiz *model.Quiz, withTotals bool) error {
	columns := quizSettingColumns
	if withTotals {
		columns = append(append([]string{}, columns...), "total_questions", "total_points")
	}
	return r.DB.WithContext(ctx).Model(&model.Quiz{}).
		Where("id = ?", quiz.ID).
		Select(columns).
		Updates(quiz).Error
}

func (r *QuizRepository) UpdateFields(ctx context.Context, quizID string, fields map[string]interface{}) error {
	return r.DB.WithContext(ctx).Model(&model.Quiz{}).Where("id = ?", quizID).Updates(fields).Error
}

type QuizFilter struct {
	Status         string
	CourseID       string
	EvaluationType string
}

func (r *QuizRepository) List(ctx context.Context, f QuizFilter) ([]model.Quiz, error) {
	query := r.DB.WithContext(ctx).Model(&model.Quiz{})
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.CourseID != "" {
		query = query.Where("course_id = ?", f.CourseID)
	}
	if f.EvaluationType != "" {
		query = query.Where("evaluation_type = ?", f.EvaluationType)
	}

	var quizzes []model.Quiz
	err := query.Preload("Course").Order("created_at desc").Find(&quizzes).Error
	return quizzes, err
}

func (r *QuizRepository) CountByCourseAndType(ctx context.Context, courseID string, evalType model.EvaluationType) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Unscoped().Model(&model.Quiz{}).
		Where("course_id = ? AND evaluation_type = ?", courseID, evalType).
		Count(&count).Error
	return count, err
}

func (r *QuizRepository) CountByStatus(ctx context.Context, status model.QuizStatus) (int64, error) {
	var count int64
	query := r.DB.WithContext(ctx).Model(&model.Quiz{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Count(&count).Error
	return count, err
}

// ListQuestions returns the quiz's question links with the question and its
// options joined in, ordered by display order.
func (r *QuizRepository) ListQuestions(ctx context.Context, quizID string) ([]model.QuizQuestion, error) {
	var qqs []model.QuizQuestion
	err := r.DB.WithContext(ctx).
		Preload("Question").
		Preload("Question.Options", orderedOptions).
		Where("quiz_id = ?", quizID).
		Order("sort_order asc").
		Find(&qqs).Error
	return qqs, err
}

// ReplaceQuestions drops every question link of the quiz and inserts qqs in their place.
func (r *QuizRepository) ReplaceQuestions(ctx context.Context, quizID string, qqs []model.QuizQuestion) error {
	db := r.DB.WithContext(ctx)
	if err := db.Where("quiz_id = ?", quizID).Delete(&model.QuizQuestion{}).Error; err != nil {
		return err
	}
	if len(qqs) == 0 {
		return nil
	}
	for i := range qqs {
		qqs[i].QuizID = quizID
	}
	return db.Omit(clause.Associations).Create(&qqs).Error
}

func (r *QuizRepository) ReplaceClasses(ctx context.Context, quizID string, classIDs []string) error {
	db := r.DB.WithContext(ctx)
	if err := db.Where("quiz_id = ?", quizID).Delete(&model.QuizClass{}).Error; err != nil {
		return err
	}
	if len(classIDs) == 0 {
		return nil
	}
	rows := make([]model.QuizClass, 0, len(classIDs))
	seen := make(map[string]bool, len(classIDs))
	for _, id := range classIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		rows = append(rows, model.QuizClass{QuizID: quizID, ClassID: id})
	}
	return db.Create(&rows).Error
}

// Delete removes the quiz and everything hanging off it.
func (r *QuizRepository) Delete(ctx context.Context, quizID string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("quiz_id = ?", quizID).Delete(&model.QuizQuestion{}).Error; err != nil {
			return err
		}
		if err := tx.Where("quiz_id = ?", quizID).Delete(&model.QuizClass{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("quiz_id = ?", quizID).Delete(&model.QuizAttempt{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Quiz{}, "id = ?", quizID).Error
	})
}

// ListEndedActive returns active quizzes whose window closed before now.
func (r *QuizRepository) ListEndedActive(ctx context.Context, now time.Time) ([]model.Quiz, error) {
	var quizzes []model.Quiz
	err := r.DB.WithContext(ctx).
		Where("status = ? AND end_date < ?", model.QuizActive, now).
		Find(&quizzes).Error
	return quizzes, err
}

// AdvanceStatus moves a quiz from one status to another only if it is still in from.
func (r *QuizRepository) AdvanceStatus(ctx context.Context, quizID string, from, to model.QuizStatus) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&model.Quiz{}).
		Where("id = ? AND status = ?", quizID, from).
		Update("status", to)
	return res.RowsAffected > 0, res.Error
}
