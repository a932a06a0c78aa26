package repository

import (
	"context"
	"equiz_backend/internal/model"

	"gorm.io/gorm"
)

type QuestionRepository struct {
	DB *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{DB: db}
}

func orderedOptions(db *gorm.DB) *gorm.DB {
	return db.Order("sort_order asc")
}

// Create inserts the question together with its options.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	return r.DB.WithContext(ctx).Create(q).Error
}

func (r *QuestionRepository) FindByID(ctx context.Context, id string) (*model.Question, error) {
	var q model.Question
	err := r.DB.WithContext(ctx).Preload("Options", orderedOptions).First(&q, "id = ?", id).Error
	return &q, err
}

func (r *QuestionRepository) FindByIDs(ctx context.Context, ids []string) ([]model.Question, error) {
	var qs []model.Question
	if len(ids) == 0 {
		return qs, nil
	}
	err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&qs).Error
	return qs, err
}

type QuestionFilter struct {
	CourseCode string
	Difficulty string
	Type       string
	Search     string
}

func (r *QuestionRepository) Search(ctx context.Context, f QuestionFilter, page, limit int) ([]model.Question, int64, error) {
	query := r.DB.WithContext(ctx).Model(&model.Question{}).Where("is_active = ?", true)
	if f.CourseCode != "" {
		query = query.Where("course_code = ?", f.CourseCode)
	}
	if f.Difficulty != "" && f.Difficulty != "all" {
		query = query.Where("difficulty = ?", f.Difficulty)
	}
	if f.Type != "" && f.Type != "all" {
		query = query.Where("question_type = ?", f.Type)
	}
	if f.Search != "" {
		query = query.Where("LOWER(question_text) LIKE LOWER(?)", "%"+f.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var qs []model.Question
	err := query.Preload("Options", orderedOptions).
		Order("created_at desc").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&qs).Error
	return qs, total, err
}
