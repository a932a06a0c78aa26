package service

import (
	"context"
	"equiz_backend/internal/model"
	"equiz_backend/internal/repository"
	"equiz_backend/internal/util"
	"equiz_backend/pkg/logger"
	"equiz_backend/pkg/tracing"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type QuizService struct {
	DB           *gorm.DB
	QuizRepo     *repository.QuizRepository
	CourseRepo   *repository.CourseRepository
	ClassRepo    *repository.ClassRepository
	QuestionRepo *repository.QuestionRepository
	AttemptRepo  *repository.AttemptRepository
	Cache        *repository.QuizQuestionCache
	Now          func() time.Time
}

func NewQuizService(
	db *gorm.DB,
	quizRepo *repository.QuizRepository,
	courseRepo *repository.CourseRepository,
	classRepo *repository.ClassRepository,
	questionRepo *repository.QuestionRepository,
	attemptRepo *repository.AttemptRepository,
	cache *repository.QuizQuestionCache,
) *QuizService {
	return &QuizService{
		DB:           db,
		QuizRepo:     quizRepo,
		CourseRepo:   courseRepo,
		ClassRepo:    classRepo,
		QuestionRepo: questionRepo,
		AttemptRepo:  attemptRepo,
		Cache:        cache,
		Now:          time.Now,
	}
}

type QuizQuestionInput struct {
	ID     string `json:"id" binding:"required"`
	Points int    `json:"points" binding:"gte=0"`
}

type CreateQuizRequest struct {
	Title             string               `json:"title" binding:"required"`
	Description       string               `json:"description"`
	CourseID          string               `json:"courseId" binding:"required"`
	EvaluationType    model.EvaluationType `json:"evaluationType" binding:"required,evaltype"`
	StartDate         time.Time            `json:"startDate" binding:"required"`
	EndDate           time.Time            `json:"endDate" binding:"required"`
	Duration          int                  `json:"duration" binding:"gte=0"`
	MaxAttempts       *int                 `json:"maxAttempts"`
	PassingScore      *float64             `json:"passingScore"`
	ShowResults       bool                 `json:"showResults"`
	ShuffleQuestions  bool                 `json:"shuffleQuestions"`
	ShuffleOptions    bool                 `json:"shuffleOptions"`
	AllowReview       bool                 `json:"allowReview"`
	Instructions      string               `json:"instructions"`
	AccessibleClasses []string             `json:"accessibleClasses"`
	Questions         []QuizQuestionInput  `json:"questions" binding:"dive"`
}

func (s *QuizService) Create(ctx context.Context, creatorID uint, req CreateQuizRequest) (*model.Quiz, error) {
	ctx, span := tracing.Start(ctx, "QuizService.Create")
	defer span.End()

	quiz := &model.Quiz{
		Title:            req.Title,
		Description:      req.Description,
		CourseID:         req.CourseID,
		EvaluationType:   req.EvaluationType,
		Status:           model.QuizDraft,
		StartDate:        req.StartDate,
		EndDate:          req.EndDate,
		Duration:         req.Duration,
		MaxAttempts:      1,
		PassingScore:     50,
		ShowResults:      req.ShowResults,
		ShuffleQuestions: req.ShuffleQuestions,
		ShuffleOptions:   req.ShuffleOptions,
		AllowReview:      req.AllowReview,
		Instructions:     req.Instructions,
		CreatedBy:        creatorID,
	}
	if req.MaxAttempts != nil {
		quiz.MaxAttempts = *req.MaxAttempts
	}
	if req.PassingScore != nil {
		quiz.PassingScore = *req.PassingScore
	}
	if err := validatePolicy(quiz); err != nil {
		return nil, err
	}

	course, err := s.CourseRepo.FindByID(ctx, req.CourseID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrCourseNotFound
	} else if err != nil {
		return nil, util.Persistence(err)
	}
	if err := s.checkClasses(ctx, req.AccessibleClasses); err != nil {
		return nil, err
	}
	links, err := s.questionLinks(ctx, req.Questions)
	if err != nil {
		return nil, err
	}
	quiz.TotalQuestions, quiz.TotalPoints = totals(links)

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.QuizRepo.WithTx(tx)

		seq, err := repo.CountByCourseAndType(ctx, course.ID, quiz.EvaluationType)
		if err != nil {
			return err
		}
		quiz.QuizCode = quizCode(quiz.EvaluationType, course.Code, s.Now().Year(), seq+1)

		if err := repo.Create(ctx, quiz); err != nil {
			return err
		}
		if err := repo.ReplaceClasses(ctx, quiz.ID, req.AccessibleClasses); err != nil {
			return err
		}
		return repo.ReplaceQuestions(ctx, quiz.ID, links)
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, util.NewError(util.KindConflict, "quiz code already taken, retry")
	} else if err != nil {
		return nil, util.Persistence(err)
	}

	logger.Log.Info("quiz created", zap.String("quizId", quiz.ID), zap.String("quizCode", quiz.QuizCode))
	return quiz, nil
}

// quizCode builds codes like MID-CS101-2026-3.
func quizCode(evalType model.EvaluationType, courseCode string, year int, seq int64) string {
	prefix := string(evalType)
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}
	return fmt.Sprintf("%s-%s-%d-%d", strings.ToUpper(prefix), courseCode, year, seq)
}

func validatePolicy(q *model.Quiz) error {
	if !q.EndDate.After(q.StartDate) {
		return util.Validation("endDate must be after startDate")
	}
	if q.MaxAttempts < 1 {
		return util.Validation("maxAttempts must be at least 1")
	}
	if q.PassingScore < 0 || q.PassingScore > 100 {
		return util.Validation("passingScore must be between 0 and 100")
	}
	if q.Duration < 0 {
		return util.Validation("duration cannot be negative")
	}
	return nil
}

func (s *QuizService) checkClasses(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	distinct := map[string]bool{}
	for _, id := range ids {
		distinct[id] = true
	}
	n, err := s.ClassRepo.CountExisting(ctx, ids)
	if err != nil {
		return util.Persistence(err)
	}
	if int(n) != len(distinct) {
		return util.ErrClassNotFound
	}
	return nil
}

// questionLinks resolves the requested questions into quiz links, in request order.
func (s *QuizService) questionLinks(ctx context.Context, inputs []QuizQuestionInput) ([]model.QuizQuestion, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(inputs))
	seen := map[string]bool{}
	for _, in := range inputs {
		if seen[in.ID] {
			return nil, util.Validation("question " + in.ID + " is listed twice")
		}
		seen[in.ID] = true
		ids = append(ids, in.ID)
	}

	questions, err := s.QuestionRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, util.Persistence(err)
	}
	byID := make(map[string]*model.Question, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}

	links := make([]model.QuizQuestion, 0, len(inputs))
	for i, in := range inputs {
		q, ok := byID[in.ID]
		if !ok {
			return nil, util.ErrQuestionNotFound
		}
		points := in.Points
		if points == 0 {
			points = q.Points
		}
		links = append(links, model.QuizQuestion{QuestionID: in.ID, Points: points, Order: i})
	}
	return links, nil
}

func totals(links []model.QuizQuestion) (count, points int) {
	for _, l := range links {
		points += l.Points
	}
	return len(links), points
}

type QuizListResult struct {
	Quizzes    []model.Quiz   `json:"quizzes"`
	Statistics QuizGlobalStat `json:"statistics"`
}

type QuizGlobalStat struct {
	TotalQuizzes  int64   `json:"totalQuizzes"`
	TotalAttempts int64   `json:"totalAttempts"`
	ActiveQuizzes int64   `json:"activeQuizzes"`
	AvgScore      float64 `json:"avgScore"`
}

func (s *QuizService) List(ctx context.Context, filter repository.QuizFilter) (*QuizListResult, error) {
	ctx, span := tracing.Start(ctx, "QuizService.List")
	defer span.End()

	quizzes, err := s.QuizRepo.List(ctx, filter)
	if err != nil {
		return nil, util.Persistence(err)
	}

	var stat QuizGlobalStat
	if stat.TotalQuizzes, err = s.QuizRepo.CountByStatus(ctx, ""); err != nil {
		return nil, util.Persistence(err)
	}
	if stat.ActiveQuizzes, err = s.QuizRepo.CountByStatus(ctx, model.QuizActive); err != nil {
		return nil, util.Persistence(err)
	}
	if stat.TotalAttempts, err = s.AttemptRepo.CountAll(ctx); err != nil {
		return nil, util.Persistence(err)
	}
	avg, err := s.AttemptRepo.AverageFinalizedScore(ctx)
	if err != nil {
		return nil, util.Persistence(err)
	}
	stat.AvgScore = util.Round(avg, 1)

	return &QuizListResult{Quizzes: quizzes, Statistics: stat}, nil
}

func (s *QuizService) Get(ctx context.Context, quizID string) (*model.Quiz, error) {
	quiz, err := s.QuizRepo.FindWithDetails(ctx, quizID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrQuizNotFound
	} else if err != nil {
		return nil, util.Persistence(err)
	}
	return quiz, nil
}

// UpdateQuizRequest is a partial update; nil fields are left alone, and
// non-nil lists replace the current ones.
type UpdateQuizRequest struct {
	Title             *string               `json:"title"`
	Description       *string               `json:"description"`
	EvaluationType    *model.EvaluationType `json:"evaluationType" binding:"omitempty,evaltype"`
	Status            *model.QuizStatus     `json:"status" binding:"omitempty,quizstatus"`
	StartDate         *time.Time            `json:"startDate"`
	EndDate           *time.Time            `json:"endDate"`
	Duration          *int                  `json:"duration"`
	MaxAttempts       *int                  `json:"maxAttempts"`
	PassingScore      *float64              `json:"passingScore"`
	ShowResults       *bool                 `json:"showResults"`
	ShuffleQuestions  *bool                 `json:"shuffleQuestions"`
	ShuffleOptions    *bool                 `json:"shuffleOptions"`
	AllowReview       *bool                 `json:"allowReview"`
	Instructions      *string               `json:"instructions"`
	AccessibleClasses *[]string             `json:"accessibleClasses"`
	Questions         *[]QuizQuestionInput  `json:"questions"`
}

func (s *QuizService) Update(ctx context.Context, quizID string, req UpdateQuizRequest) (*model.Quiz, error) {
	ctx, span := tracing.Start(ctx, "QuizService.Update")
	defer span.End()

	var (
		links []model.QuizQuestion
		err   error
	)
	if req.Questions != nil {
		if links, err = s.questionLinks(ctx, *req.Questions); err != nil {
			return nil, err
		}
	}
	if req.AccessibleClasses != nil {
		if err := s.checkClasses(ctx, *req.AccessibleClasses); err != nil {
			return nil, err
		}
	}

	var quiz *model.Quiz
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.QuizRepo.WithTx(tx)

		locked, err := repo.FindByIDForUpdate(ctx, quizID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrQuizNotFound
		} else if err != nil {
			return err
		}
		quiz = locked

		applySettings(quiz, &req)
		if err := validatePolicy(quiz); err != nil {
			return err
		}
		if req.Questions != nil {
			quiz.TotalQuestions, quiz.TotalPoints = totals(links)
		}
		if err := repo.UpdateSettings(ctx, quiz, req.Questions != nil); err != nil {
			return err
		}

		if req.Status != nil && *req.Status != quiz.Status {
			if err := checkTransition(quiz, *req.Status); err != nil {
				return err
			}
			ok, err := repo.AdvanceStatus(ctx, quiz.ID, quiz.Status, *req.Status)
			if err != nil {
				return err
			}
			if !ok {
				return util.ErrInvalidQuizTransition
			}
			quiz.Status = *req.Status
		}

		if req.AccessibleClasses != nil {
			if err := repo.ReplaceClasses(ctx, quiz.ID, *req.AccessibleClasses); err != nil {
				return err
			}
		}
		if req.Questions != nil {
			return repo.ReplaceQuestions(ctx, quiz.ID, links)
		}
		return nil
	})
	if err != nil {
		return nil, util.Persistence(err)
	}

	if req.Questions != nil {
		s.invalidate(ctx, quiz.ID)
	}
	return quiz, nil
}

// applySettings copies the editable fields present in req onto quiz.
func applySettings(quiz *model.Quiz, req *UpdateQuizRequest) {
	if req.Title != nil {
		quiz.Title = *req.Title
	}
	if req.Description != nil {
		quiz.Description = *req.Description
	}
	if req.EvaluationType != nil {
		quiz.EvaluationType = *req.EvaluationType
	}
	if req.StartDate != nil {
		quiz.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		quiz.EndDate = *req.EndDate
	}
	if req.Duration != nil {
		quiz.Duration = *req.Duration
	}
	if req.MaxAttempts != nil {
		quiz.MaxAttempts = *req.MaxAttempts
	}
	if req.PassingScore != nil {
		quiz.PassingScore = *req.PassingScore
	}
	if req.ShowResults != nil {
		quiz.ShowResults = *req.ShowResults
	}
	if req.ShuffleQuestions != nil {
		quiz.ShuffleQuestions = *req.ShuffleQuestions
	}
	if req.ShuffleOptions != nil {
		quiz.ShuffleOptions = *req.ShuffleOptions
	}
	if req.AllowReview != nil {
		quiz.AllowReview = *req.AllowReview
	}
	if req.Instructions != nil {
		quiz.Instructions = *req.Instructions
	}
}

// checkTransition allows only forward moves, and only quizzes with questions may go live.
func checkTransition(quiz *model.Quiz, next model.QuizStatus) error {
	if !quiz.Status.CanTransitionTo(next) {
		return util.ErrInvalidQuizTransition
	}
	if next == model.QuizActive && quiz.TotalQuestions == 0 {
		return util.ErrQuizHasNoQuestions
	}
	return nil
}

func (s *QuizService) Delete(ctx context.Context, quizID string) error {
	ctx, span := tracing.Start(ctx, "QuizService.Delete")
	defer span.End()

	if _, err := s.QuizRepo.FindByID(ctx, quizID); errors.Is(err, gorm.ErrRecordNotFound) {
		return util.ErrQuizNotFound
	} else if err != nil {
		return util.Persistence(err)
	}
	if err := s.QuizRepo.Delete(ctx, quizID); err != nil {
		return util.Persistence(err)
	}
	s.invalidate(ctx, quizID)
	logger.Log.Info("quiz deleted", zap.String("quizId", quizID))
	return nil
}

// Publish moves a draft quiz to active.
func (s *QuizService) Publish(ctx context.Context, quizID string) (*model.Quiz, error) {
	quiz, err := s.QuizRepo.FindByID(ctx, quizID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrQuizNotFound
	} else if err != nil {
		return nil, util.Persistence(err)
	}
	if quiz.Status != model.QuizDraft {
		return nil, util.ErrInvalidQuizTransition
	}
	if err := checkTransition(quiz, model.QuizActive); err != nil {
		return nil, err
	}

	ok, err := s.QuizRepo.AdvanceStatus(ctx, quiz.ID, model.QuizDraft, model.QuizActive)
	if err != nil {
		return nil, util.Persistence(err)
	}
	if !ok {
		return nil, util.ErrInvalidQuizTransition
	}
	quiz.Status = model.QuizActive
	logger.Log.Info("quiz published", zap.String("quizId", quiz.ID))
	return quiz, nil
}

// CompleteEndedQuizzes moves active quizzes whose window has closed to completed.
func (s *QuizService) CompleteEndedQuizzes(ctx context.Context) (int, error) {
	ended, err := s.QuizRepo.ListEndedActive(ctx, s.Now())
	if err != nil {
		return 0, util.Persistence(err)
	}

	completed := 0
	for i := range ended {
		ok, err := s.QuizRepo.AdvanceStatus(ctx, ended[i].ID, model.QuizActive, model.QuizCompleted)
		if err != nil {
			logger.Log.Error("failed to complete quiz", zap.String("quizId", ended[i].ID), zap.Error(err))
			continue
		}
		if ok {
			completed++
		}
	}
	return completed, nil
}

func (s *QuizService) invalidate(ctx context.Context, quizID string) {
	if err := s.Cache.Invalidate(ctx, quizID); err != nil {
		logger.Log.Warn("failed to invalidate quiz question cache", zap.String("quizId", quizID), zap.Error(err))
	}
}
