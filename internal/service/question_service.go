package service

import (
	"context"
	"equiz_backend/internal/model"
	"equiz_backend/internal/repository"
	"equiz_backend/internal/util"
	"errors"
	"strings"

	"gorm.io/gorm"
)

type QuestionService struct {
	Repo *repository.QuestionRepository
}

func NewQuestionService(repo *repository.QuestionRepository) *QuestionService {
	return &QuestionService{Repo: repo}
}

type OptionInput struct {
	OptionText  string `json:"optionText" binding:"required"`
	IsCorrect   bool   `json:"isCorrect"`
	Explanation string `json:"explanation"`
}

type CreateQuestionRequest struct {
	QuestionText    string             `json:"questionText" binding:"required"`
	QuestionType    model.QuestionType `json:"questionType" binding:"required,questiontype"`
	MultipleCorrect bool               `json:"multipleCorrect"`
	CorrectBoolean  *bool              `json:"correctBoolean"`
	CorrectAnswer   string             `json:"correctAnswer"`
	SampleAnswer    string             `json:"sampleAnswer"`
	MaxLength       int                `json:"maxLength" binding:"gte=0"`
	CourseCode      string             `json:"courseCode"`
	Difficulty      string             `json:"difficulty" binding:"omitempty,oneof=easy medium hard"`
	Points          int                `json:"points" binding:"gte=0"`
	Topic           string             `json:"topic"`
	Explanation     string             `json:"explanation"`
	Options         []OptionInput      `json:"options" binding:"dive"`
}

// validateAnswerKey checks that the request carries a usable key for its type.
func validateAnswerKey(req *CreateQuestionRequest) error {
	switch req.QuestionType {
	case model.MultipleChoice:
		if len(req.Options) < 2 {
			return util.Validation("multiple-choice questions need at least two options")
		}
		correct := 0
		for _, o := range req.Options {
			if o.IsCorrect {
				correct++
			}
		}
		if correct == 0 {
			return util.Validation("multiple-choice questions need a correct option")
		}
		if correct > 1 && !req.MultipleCorrect {
			return util.Validation("only one option may be correct unless multipleCorrect is set")
		}
	case model.TrueFalse:
		if req.CorrectBoolean == nil {
			return util.Validation("true-false questions need correctBoolean")
		}
	case model.ShortAnswer:
		if strings.TrimSpace(req.CorrectAnswer) == "" {
			return util.Validation("short-answer questions need correctAnswer")
		}
	}
	return nil
}

func (s *QuestionService) Create(ctx context.Context, creatorID uint, req CreateQuestionRequest) (*model.Question, error) {
	if err := validateAnswerKey(&req); err != nil {
		return nil, err
	}

	q := &model.Question{
		QuestionText:    req.QuestionText,
		QuestionType:    req.QuestionType,
		MultipleCorrect: req.MultipleCorrect && req.QuestionType == model.MultipleChoice,
		CorrectAnswer:   strings.TrimSpace(req.CorrectAnswer),
		SampleAnswer:    req.SampleAnswer,
		MaxLength:       req.MaxLength,
		CourseCode:      strings.ToUpper(req.CourseCode),
		Difficulty:      req.Difficulty,
		Points:          req.Points,
		Topic:           req.Topic,
		Explanation:     req.Explanation,
		CreatedBy:       creatorID,
		IsActive:        true,
	}
	if q.Difficulty == "" {
		q.Difficulty = "medium"
	}
	if q.Points == 0 {
		q.Points = 10
	}
	if req.QuestionType == model.TrueFalse {
		q.CorrectBoolean = req.CorrectBoolean
	}
	if req.QuestionType == model.MultipleChoice {
		for i, o := range req.Options {
			q.Options = append(q.Options, model.Option{
				OptionText:  o.OptionText,
				IsCorrect:   o.IsCorrect,
				Explanation: o.Explanation,
				Order:       i,
			})
		}
	}

	if err := s.Repo.Create(ctx, q); err != nil {
		return nil, util.Persistence(err)
	}
	return q, nil
}

func (s *QuestionService) Get(ctx context.Context, id string) (*model.Question, error) {
	q, err := s.Repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrQuestionNotFound
	} else if err != nil {
		return nil, util.Persistence(err)
	}
	return q, nil
}

func (s *QuestionService) Search(ctx context.Context, f repository.QuestionFilter, page, limit int) (*util.PageResponse, error) {
	qs, total, err := s.Repo.Search(ctx, f, page, limit)
	if err != nil {
		return nil, util.Persistence(err)
	}
	return &util.PageResponse{List: qs, Total: total, Page: page, Limit: limit}, nil
}
