package service

import (
	"context"
	"encoding/json"
	"equiz_backend/internal/config"
	"equiz_backend/internal/model"
	"equiz_backend/internal/repository"
	"equiz_backend/internal/util"
	"equiz_backend/pkg/logger"
	"equiz_backend/pkg/monitoring"
	"equiz_backend/pkg/tracing"
	"errors"
	"math/rand"
	"time"

	"github.com/jinzhu/copier"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	maxStartRetries = 3
	sweepBatchSize  = 500
)

// Shuffler permutes n elements through swap, with the signature of rand.Shuffle.
type Shuffler func(n int, swap func(i, j int))

type AttemptService struct {
	DB          *gorm.DB
	QuizRepo    *repository.QuizRepository
	AttemptRepo *repository.AttemptRepository
	Cache       *repository.QuizQuestionCache
	Stats       *StatisticsService
	Cfg         config.QuizConfig
	Shuffle     Shuffler
	Now         func() time.Time

	// SweepBatchSize caps each page read by ExpireStaleAttempts.
	SweepBatchSize int
}

func NewAttemptService(
	db *gorm.DB,
	quizRepo *repository.QuizRepository,
	attemptRepo *repository.AttemptRepository,
	cache *repository.QuizQuestionCache,
	stats *StatisticsService,
	cfg config.QuizConfig,
) *AttemptService {
	return &AttemptService{
		DB:          db,
		QuizRepo:    quizRepo,
		AttemptRepo: attemptRepo,
		Cache:       cache,
		Stats:       stats,
		Cfg:         cfg,
		Shuffle:     rand.Shuffle,
		Now:         time.Now,

		SweepBatchSize: sweepBatchSize,
	}
}

type OptionView struct {
	ID         string `json:"id"`
	OptionText string `json:"optionText"`
	Order      int    `json:"order"`
}

// QuestionView is a question as shown during an attempt. It never carries the answer key.
type QuestionView struct {
	ID              string             `json:"id"`
	QuestionText    string             `json:"questionText"`
	QuestionType    model.QuestionType `json:"questionType"`
	MultipleCorrect bool               `json:"multipleCorrect"`
	MaxLength       int                `json:"maxLength,omitempty"`
	Points          int                `json:"points"`
	Options         []OptionView       `json:"options,omitempty"`
}

type QuizView struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Duration     int    `json:"duration"`
	Instructions string `json:"instructions"`
	ShowResults  bool   `json:"showResults"`
	AllowReview  bool   `json:"allowReview"`
}

type StartAttemptResult struct {
	AttemptID     string         `json:"attemptId"`
	AttemptNumber int            `json:"attemptNumber"`
	Quiz          QuizView       `json:"quiz"`
	Questions     []QuestionView `json:"questions"`
	StartedAt     time.Time      `json:"startedAt"`
	Deadline      time.Time      `json:"deadline"`
}

// Start opens a new attempt for userID. The quiz row stays locked while the
// prior attempts are counted, and the unique attempt number index catches any
// race the lock does not.
func (s *AttemptService) Start(ctx context.Context, quizID string, userID uint) (*StartAttemptResult, error) {
	ctx, span := tracing.Start(ctx, "AttemptService.Start")
	defer span.End()

	var (
		result *StartAttemptResult
		err    error
	)
	for try := 1; try <= maxStartRetries; try++ {
		result, err = s.startOnce(ctx, quizID, userID)
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			break
		}
		logger.Log.Debug("attempt number collision, retrying",
			zap.String("quizId", quizID),
			zap.Uint("userId", userID),
			zap.Int("try", try))
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		logger.Log.Warn("attempt start gave up after retries",
			zap.String("quizId", quizID),
			zap.Uint("userId", userID))
		return nil, util.ErrAttemptStartContended
	}
	if err != nil {
		return nil, util.Persistence(err)
	}

	monitoring.AttemptsStarted.Inc()
	logger.Log.Info("attempt started",
		zap.String("attemptId", result.AttemptID),
		zap.String("quizId", quizID),
		zap.Uint("userId", userID),
		zap.Int("attemptNumber", result.AttemptNumber))
	return result, nil
}

func (s *AttemptService) startOnce(ctx context.Context, quizID string, userID uint) (*StartAttemptResult, error) {
	var result *StartAttemptResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		quizRepo := s.QuizRepo.WithTx(tx)
		attemptRepo := s.AttemptRepo.WithTx(tx)

		quiz, err := quizRepo.FindByIDForUpdate(ctx, quizID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrQuizNotFound
		} else if err != nil {
			return err
		}

		now := s.Now()
		if quiz.Status != model.QuizActive {
			return util.ErrQuizNotActive
		}
		if !quiz.InWindow(now) {
			return util.ErrQuizNotAvailable
		}

		prior, err := attemptRepo.CountByQuizAndUser(ctx, quizID, userID)
		if err != nil {
			return err
		}
		if prior >= int64(quiz.MaxAttempts) {
			return util.ErrMaxAttemptsReached
		}

		qqs, err := s.quizQuestions(ctx, quizRepo, quizID)
		if err != nil {
			return err
		}
		views, err := s.buildViews(quiz, qqs)
		if err != nil {
			return err
		}

		order := make([]string, len(views))
		for i, v := range views {
			order[i] = v.ID
		}
		orderJSON, err := json.Marshal(order)
		if err != nil {
			return err
		}

		attempt := &model.QuizAttempt{
			QuizID:        quizID,
			UserID:        userID,
			AttemptNumber: int(prior) + 1,
			Status:        model.AttemptInProgress,
			StartedAt:     now,
			QuestionOrder: datatypes.JSON(orderJSON),
		}
		if err := attemptRepo.Create(ctx, attempt); err != nil {
			return err
		}

		result = &StartAttemptResult{
			AttemptID:     attempt.ID,
			AttemptNumber: attempt.AttemptNumber,
			Questions:     views,
			StartedAt:     attempt.StartedAt,
			Deadline:      attempt.Deadline(quiz),
		}
		return copier.Copy(&result.Quiz, quiz)
	})
	return result, err
}

// quizQuestions serves the question set from the cache when it can, filling it otherwise.
func (s *AttemptService) quizQuestions(ctx context.Context, repo *repository.QuizRepository, quizID string) ([]model.QuizQuestion, error) {
	if qqs, ok := s.Cache.Get(ctx, quizID); ok {
		return qqs, nil
	}
	qqs, err := repo.ListQuestions(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if err := s.Cache.Set(ctx, quizID, qqs); err != nil {
		logger.Log.Warn("failed to cache quiz questions", zap.String("quizId", quizID), zap.Error(err))
	}
	return qqs, nil
}

// buildViews maps the quiz questions to attempt views, shuffling per the
// quiz policy. Only the views are permuted; stored order is untouched.
func (s *AttemptService) buildViews(quiz *model.Quiz, qqs []model.QuizQuestion) ([]QuestionView, error) {
	views := make([]QuestionView, 0, len(qqs))
	for i := range qqs {
		qq := &qqs[i]
		if qq.Question == nil {
			continue
		}
		var v QuestionView
		if err := copier.Copy(&v, qq.Question); err != nil {
			return nil, err
		}
		v.Points = qq.Weight()
		if qq.Question.QuestionType != model.MultipleChoice && qq.Question.QuestionType != model.TrueFalse {
			v.Options = nil
		}
		views = append(views, v)
	}

	if quiz.ShuffleQuestions {
		s.Shuffle(len(views), func(i, j int) { views[i], views[j] = views[j], views[i] })
	}
	if quiz.ShuffleOptions {
		for i := range views {
			if views[i].QuestionType != model.MultipleChoice {
				continue
			}
			opts := views[i].Options
			s.Shuffle(len(opts), func(a, b int) { opts[a], opts[b] = opts[b], opts[a] })
		}
	}
	return views, nil
}

type SubmitAttemptRequest struct {
	Responses map[string]json.RawMessage `json:"responses"`
	TimeSpent int                        `json:"timeSpent" binding:"gte=0"`
}

type SubmitAttemptResult struct {
	AttemptID          string              `json:"attemptId"`
	Status             model.AttemptStatus `json:"status"`
	Score              float64             `json:"score"`
	TotalScore         float64             `json:"totalScore"`
	MaxScore           int                 `json:"maxScore"`
	IsPassing          bool                `json:"isPassing"`
	NeedsManualGrading bool                `json:"needsManualGrading"`
	ShowResults        bool                `json:"showResults"`
	AllowReview        bool                `json:"allowReview"`
}

// Submit scores and closes an in-progress attempt. A submission past the
// deadline plus the configured grace expires the attempt instead.
func (s *AttemptService) Submit(ctx context.Context, attemptID string, userID uint, req SubmitAttemptRequest) (*SubmitAttemptResult, error) {
	ctx, span := tracing.Start(ctx, "AttemptService.Submit")
	defer span.End()

	var (
		result  *SubmitAttemptResult
		quizID  string
		expired bool
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		attemptRepo := s.AttemptRepo.WithTx(tx)

		attempt, err := attemptRepo.FindByIDForUpdate(ctx, attemptID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrAttemptNotFound
		} else if err != nil {
			return err
		}
		if attempt.UserID != userID {
			return util.ErrPermissionDenied
		}
		if attempt.Status != model.AttemptInProgress {
			return util.ErrAttemptAlreadySubmitted
		}

		quiz, err := s.QuizRepo.WithTx(tx).FindByID(ctx, attempt.QuizID)
		if err != nil {
			return err
		}
		quizID = quiz.ID

		now := s.Now()
		if now.After(attempt.Deadline(quiz).Add(s.Cfg.SubmissionGrace())) {
			ok, err := attemptRepo.Expire(ctx, attempt.ID)
			if err != nil {
				return err
			}
			if !ok {
				return util.ErrAttemptAlreadySubmitted
			}
			expired = true
			return nil
		}

		qqs, err := s.QuizRepo.WithTx(tx).ListQuestions(ctx, quiz.ID)
		if err != nil {
			return err
		}
		responses := knownResponses(req.Responses, qqs)
		card := ScoreAttempt(qqs, responses, nil)

		stored, err := json.Marshal(responses)
		if err != nil {
			return err
		}
		percentage := card.Percentage()

		attempt.Status = model.AttemptSubmitted
		attempt.Score = util.Round(percentage, 2)
		attempt.SubmittedAt = &now
		attempt.TimeSpent = req.TimeSpent
		attempt.Responses = datatypes.JSON(stored)
		attempt.NeedsManualGrading = card.NeedsManualGrading

		ok, err := attemptRepo.Finish(ctx, attempt)
		if err != nil {
			return err
		}
		if !ok {
			return util.ErrAttemptAlreadySubmitted
		}

		result = &SubmitAttemptResult{
			AttemptID:          attempt.ID,
			Status:             attempt.Status,
			Score:              attempt.Score,
			TotalScore:         card.TotalScore,
			MaxScore:           card.MaxScore,
			IsPassing:          percentage >= quiz.PassingScore,
			NeedsManualGrading: card.NeedsManualGrading,
			ShowResults:        quiz.ShowResults,
			AllowReview:        quiz.AllowReview,
		}
		return nil
	})
	if err != nil {
		return nil, util.Persistence(err)
	}

	if expired {
		monitoring.AttemptsFinished.WithLabelValues("expired").Inc()
		logger.Log.Info("late submission expired attempt", zap.String("attemptId", attemptID))
		s.recompute(ctx, quizID)
		return nil, util.ErrAttemptExpired
	}

	outcome := "fail"
	if result.IsPassing {
		outcome = "pass"
	}
	monitoring.AttemptsFinished.WithLabelValues(outcome).Inc()
	monitoring.AttemptScore.Observe(result.Score)
	logger.Log.Info("attempt submitted",
		zap.String("attemptId", attemptID),
		zap.Float64("score", result.Score),
		zap.Bool("passing", result.IsPassing))

	s.recompute(ctx, quizID)
	return result, nil
}

// recompute refreshes quiz rollups. Failures are logged and never reach the caller.
func (s *AttemptService) recompute(ctx context.Context, quizID string) {
	if _, err := s.Stats.Recompute(ctx, quizID); err != nil {
		monitoring.StatisticsFailures.Inc()
		logger.Log.Warn("statistics recompute failed", zap.String("quizId", quizID), zap.Error(err))
	}
}

// knownResponses drops answers to questions that are not part of the quiz.
func knownResponses(responses map[string]json.RawMessage, qqs []model.QuizQuestion) map[string]json.RawMessage {
	known := make(map[string]json.RawMessage, len(responses))
	for _, qq := range qqs {
		if raw, ok := responses[qq.QuestionID]; ok {
			known[qq.QuestionID] = raw
		}
	}
	return known
}

// ReviewKey is the answer key revealed when reviewing a finished attempt.
type ReviewKey struct {
	CorrectOptionIDs []string `json:"correctOptionIds,omitempty"`
	CorrectBoolean   *bool    `json:"correctBoolean,omitempty"`
	CorrectAnswer    string   `json:"correctAnswer,omitempty"`
	SampleAnswer     string   `json:"sampleAnswer,omitempty"`
	Explanation      string   `json:"explanation,omitempty"`
}

type ResultQuestion struct {
	QuestionView
	UserResponse json.RawMessage `json:"userResponse,omitempty"`
	IsCorrect    *bool           `json:"isCorrect,omitempty"`
	Earned       *float64        `json:"earned,omitempty"`
	AnswerKey    *ReviewKey      `json:"answerKey,omitempty"`
}

type AttemptResults struct {
	Attempt   *model.QuizAttempt `json:"attempt"`
	Questions []ResultQuestion   `json:"questions"`
}

// GetResults returns a finished attempt with each question and the stored
// response. Answer keys are revealed to staff, and to the owner when the quiz
// allows review.
func (s *AttemptService) GetResults(ctx context.Context, attemptID string, caller *util.Claims) (*AttemptResults, error) {
	ctx, span := tracing.Start(ctx, "AttemptService.GetResults")
	defer span.End()

	attempt, err := s.AttemptRepo.FindByID(ctx, attemptID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrAttemptNotFound
	} else if err != nil {
		return nil, util.Persistence(err)
	}
	if !caller.IsStaff() && attempt.UserID != caller.UserID {
		return nil, util.ErrPermissionDenied
	}
	if attempt.Status == model.AttemptInProgress {
		return nil, util.ErrAttemptNotSubmitted
	}

	quiz, err := s.QuizRepo.FindByID(ctx, attempt.QuizID)
	if err != nil {
		return nil, util.Persistence(err)
	}
	qqs, err := s.QuizRepo.ListQuestions(ctx, attempt.QuizID)
	if err != nil {
		return nil, util.Persistence(err)
	}
	qqs = inAttemptOrder(qqs, attempt.QuestionOrder)

	responses, err := decodeResponses(attempt.Responses)
	if err != nil {
		return nil, util.Persistence(err)
	}
	manual, err := decodeManualScores(attempt.ManualScores)
	if err != nil {
		return nil, util.Persistence(err)
	}
	card := ScoreAttempt(qqs, responses, manual)
	verdicts := make(map[string]QuestionResult, len(card.Results))
	for _, r := range card.Results {
		verdicts[r.QuestionID] = r
	}

	reveal := caller.IsStaff() || quiz.AllowReview
	showVerdict := reveal || quiz.ShowResults

	out := &AttemptResults{Attempt: attempt, Questions: make([]ResultQuestion, 0, len(qqs))}
	for i := range qqs {
		qq := &qqs[i]
		if qq.Question == nil {
			continue
		}
		rq := ResultQuestion{UserResponse: responses[qq.QuestionID]}
		if err := copier.Copy(&rq.QuestionView, qq.Question); err != nil {
			return nil, err
		}
		rq.Points = qq.Weight()

		if showVerdict {
			v := verdicts[qq.QuestionID]
			rq.IsCorrect = v.IsCorrect
			rq.Earned = &v.Earned
		}
		if reveal {
			rq.AnswerKey = &ReviewKey{
				CorrectOptionIDs: qq.Question.CorrectOptionIDs(),
				CorrectBoolean:   qq.Question.CorrectBoolean,
				CorrectAnswer:    qq.Question.CorrectAnswer,
				SampleAnswer:     qq.Question.SampleAnswer,
				Explanation:      qq.Question.Explanation,
			}
		}
		out.Questions = append(out.Questions, rq)
	}
	return out, nil
}

// inAttemptOrder arranges qqs as the attempt saw them. Questions added to the
// quiz after the attempt started go last in stored order.
func inAttemptOrder(qqs []model.QuizQuestion, order datatypes.JSON) []model.QuizQuestion {
	var ids []string
	if len(order) == 0 || json.Unmarshal(order, &ids) != nil {
		return qqs
	}
	byID := make(map[string]model.QuizQuestion, len(qqs))
	for _, qq := range qqs {
		byID[qq.QuestionID] = qq
	}

	sorted := make([]model.QuizQuestion, 0, len(qqs))
	for _, id := range ids {
		if qq, ok := byID[id]; ok {
			sorted = append(sorted, qq)
			delete(byID, id)
		}
	}
	for _, qq := range qqs {
		if _, ok := byID[qq.QuestionID]; ok {
			sorted = append(sorted, qq)
		}
	}
	return sorted
}

func decodeResponses(data datatypes.JSON) (map[string]json.RawMessage, error) {
	responses := map[string]json.RawMessage{}
	if len(data) == 0 {
		return responses, nil
	}
	err := json.Unmarshal(data, &responses)
	return responses, err
}

func decodeManualScores(data datatypes.JSON) (map[string]float64, error) {
	scores := map[string]float64{}
	if len(data) == 0 {
		return scores, nil
	}
	err := json.Unmarshal(data, &scores)
	return scores, err
}

type GradeAttemptRequest struct {
	// question id -> points awarded, essay questions only
	Scores map[string]float64 `json:"scores" binding:"required"`
}

type GradeAttemptResult struct {
	AttemptID  string              `json:"attemptId"`
	Status     model.AttemptStatus `json:"status"`
	Score      float64             `json:"score"`
	TotalScore float64             `json:"totalScore"`
	MaxScore   int                 `json:"maxScore"`
	IsPassing  bool                `json:"isPassing"`
	GradedAt   time.Time           `json:"gradedAt"`
}

// Grade applies manual points to the essay questions of a finished attempt and
// rescores it. Grading an already graded attempt overrides the earlier points.
func (s *AttemptService) Grade(ctx context.Context, attemptID string, req GradeAttemptRequest) (*GradeAttemptResult, error) {
	ctx, span := tracing.Start(ctx, "AttemptService.Grade")
	defer span.End()

	var (
		result *GradeAttemptResult
		quizID string
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		attemptRepo := s.AttemptRepo.WithTx(tx)
		quizRepo := s.QuizRepo.WithTx(tx)

		attempt, err := attemptRepo.FindByIDForUpdate(ctx, attemptID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrAttemptNotFound
		} else if err != nil {
			return err
		}
		if !attempt.Finalized() {
			return util.ErrAttemptNotGradable
		}

		quiz, err := quizRepo.FindByID(ctx, attempt.QuizID)
		if err != nil {
			return err
		}
		quizID = quiz.ID
		qqs, err := quizRepo.ListQuestions(ctx, quiz.ID)
		if err != nil {
			return err
		}

		manual, err := decodeManualScores(attempt.ManualScores)
		if err != nil {
			return err
		}
		if err := mergeManualScores(manual, req.Scores, qqs); err != nil {
			return err
		}
		responses, err := decodeResponses(attempt.Responses)
		if err != nil {
			return err
		}

		card := ScoreAttempt(qqs, responses, manual)
		percentage := card.Percentage()
		score := util.Round(percentage, 2)

		stored, err := json.Marshal(manual)
		if err != nil {
			return err
		}
		now := s.Now()
		if err := attemptRepo.UpdateGrade(ctx, attempt.ID, score, datatypes.JSON(stored), now); err != nil {
			return err
		}

		result = &GradeAttemptResult{
			AttemptID:  attempt.ID,
			Status:     model.AttemptGraded,
			Score:      score,
			TotalScore: card.TotalScore,
			MaxScore:   card.MaxScore,
			IsPassing:  percentage >= quiz.PassingScore,
			GradedAt:   now,
		}
		return nil
	})
	if err != nil {
		return nil, util.Persistence(err)
	}

	logger.Log.Info("attempt graded", zap.String("attemptId", attemptID), zap.Float64("score", result.Score))
	s.recompute(ctx, quizID)
	return result, nil
}

// mergeManualScores validates scores against the quiz and folds them into manual.
func mergeManualScores(manual, scores map[string]float64, qqs []model.QuizQuestion) error {
	byID := make(map[string]*model.QuizQuestion, len(qqs))
	for i := range qqs {
		byID[qqs[i].QuestionID] = &qqs[i]
	}
	for id, pts := range scores {
		qq, ok := byID[id]
		if !ok || qq.Question == nil {
			return util.Validation("question " + id + " is not part of this quiz")
		}
		if qq.Question.QuestionType != model.Essay {
			return util.Validation("question " + id + " is scored automatically")
		}
		if pts < 0 || pts > float64(qq.Weight()) {
			return util.Validation("points for question " + id + " must be between 0 and its weight")
		}
		manual[id] = pts
	}
	return nil
}

type ResponseStatistics struct {
	TotalResponses  int     `json:"totalResponses"`
	AverageScore    float64 `json:"averageScore"`
	GradedResponses int     `json:"gradedResponses"`
	CompletionRate  float64 `json:"completionRate"`
}

type QuizResponses struct {
	Attempts   []model.QuizAttempt `json:"attempts"`
	Statistics ResponseStatistics  `json:"statistics"`
}

// ListResponses returns the attempts of a quiz matching filter, with
// statistics over the returned set.
func (s *AttemptService) ListResponses(ctx context.Context, quizID string, filter repository.AttemptFilter) (*QuizResponses, error) {
	ctx, span := tracing.Start(ctx, "AttemptService.ListResponses")
	defer span.End()

	if _, err := s.QuizRepo.FindByID(ctx, quizID); errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrQuizNotFound
	} else if err != nil {
		return nil, util.Persistence(err)
	}

	attempts, err := s.AttemptRepo.ListByQuiz(ctx, quizID, filter)
	if err != nil {
		return nil, util.Persistence(err)
	}
	return &QuizResponses{Attempts: attempts, Statistics: summarize(attempts)}, nil
}

func summarize(attempts []model.QuizAttempt) ResponseStatistics {
	var (
		scores []float64
		graded int
	)
	for i := range attempts {
		a := &attempts[i]
		if !a.Finalized() {
			continue
		}
		scores = append(scores, a.Score)
		if a.Status == model.AttemptGraded {
			graded++
		}
	}
	return ResponseStatistics{
		TotalResponses:  len(attempts),
		AverageScore:    util.Round(Mean(scores), 1),
		GradedResponses: graded,
		CompletionRate:  util.Round(util.Percent(float64(len(scores)), float64(len(attempts))), 1),
	}
}

// ExpireStaleAttempts closes in-progress attempts whose deadline and grace
// have both passed. It returns how many were expired.
func (s *AttemptService) ExpireStaleAttempts(ctx context.Context) (int, error) {
	ctx, span := tracing.Start(ctx, "AttemptService.ExpireStaleAttempts")
	defer span.End()

	now := s.Now()
	grace := s.Cfg.SubmissionGrace()
	cutoff := now.Add(-grace)
	batch := s.SweepBatchSize
	if batch <= 0 {
		batch = sweepBatchSize
	}

	expired := 0
	touched := map[string]bool{}
	var cursor repository.SweepCursor
	for {
		if err := ctx.Err(); err != nil {
			return expired, err
		}
		page, err := s.AttemptRepo.ListOverdueCandidates(ctx, cutoff, cursor, batch)
		if err != nil {
			return expired, util.Persistence(err)
		}

		for i := range page {
			a := &page[i]
			if a.Quiz == nil || !now.After(a.Deadline(a.Quiz).Add(grace)) {
				continue
			}
			ok, err := s.AttemptRepo.Expire(ctx, a.ID)
			if err != nil {
				logger.Log.Error("failed to expire attempt", zap.String("attemptId", a.ID), zap.Error(err))
				continue
			}
			if ok {
				expired++
				touched[a.QuizID] = true
				monitoring.AttemptsFinished.WithLabelValues("expired").Inc()
			}
		}

		if len(page) < batch {
			break
		}
		last := page[len(page)-1]
		cursor = repository.SweepCursor{StartedAt: last.StartedAt, ID: last.ID}
	}

	for quizID := range touched {
		s.recompute(ctx, quizID)
	}
	if expired > 0 {
		logger.Log.Info("expired stale attempts", zap.Int("count", expired))
	}
	return expired, nil
}
