package service

import (
	"context"
	"equiz_backend/internal/config"
	"equiz_backend/internal/model"
	"equiz_backend/internal/repository"
	"equiz_backend/internal/testutil"
	"equiz_backend/internal/util"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"gorm.io/gorm"
)

type fixture struct {
	db  *gorm.DB
	ctx context.Context
	now time.Time

	users     *repository.UserRepository
	classes   *repository.ClassRepository
	questions *repository.QuestionRepository
	attemptDB *repository.AttemptRepository

	quizzes  *QuizService
	attempts *AttemptService
	stats    *StatisticsService

	instructor *model.User
	student    *model.User
	course     *model.Course
	class      *model.Class
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewDB(t)
	f := &fixture{
		db:  db,
		ctx: context.Background(),
		now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}

	f.users = repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	f.classes = repository.NewClassRepository(db)
	f.questions = repository.NewQuestionRepository(db)
	quizRepo := repository.NewQuizRepository(db)
	f.attemptDB = repository.NewAttemptRepository(db)

	f.stats = NewStatisticsService(quizRepo, f.attemptDB, f.classes)
	f.quizzes = NewQuizService(db, quizRepo, courseRepo, f.classes, f.questions, f.attemptDB, nil)
	f.quizzes.Now = func() time.Time { return f.now }
	f.attempts = NewAttemptService(db, quizRepo, f.attemptDB, nil, f.stats, config.QuizConfig{SubmissionGraceSeconds: 60})
	f.attempts.Now = func() time.Time { return f.now }
	f.attempts.Shuffle = rand.New(rand.NewSource(1)).Shuffle

	f.instructor = f.user(t, "teacher", model.Instructor)
	f.student = f.user(t, "student", model.Student)

	f.course = &model.Course{Code: "CS101", Name: "Intro to Computing"}
	if err := courseRepo.Create(f.ctx, f.course); err != nil {
		t.Fatalf("create course: %v", err)
	}
	f.class = &model.Class{Name: "Section A", CourseID: f.course.ID, InstructorID: f.instructor.ID}
	if err := f.classes.Create(f.ctx, f.class); err != nil {
		t.Fatalf("create class: %v", err)
	}
	if err := f.classes.Enroll(f.ctx, f.class.ID, []uint{f.student.ID}); err != nil {
		t.Fatalf("enroll: %v", err)
	}
	return f
}

func (f *fixture) user(t *testing.T, name string, role model.UserRole) *model.User {
	t.Helper()
	u := &model.User{Name: name, Email: fmt.Sprintf("%s@example.com", name), Password: "x", Role: role}
	if err := f.users.Create(f.ctx, u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func (f *fixture) claims(u *model.User) *util.Claims {
	return &util.Claims{UserID: u.ID, Role: u.Role, Email: u.Email}
}

// choiceQuestion creates a multiple-choice question whose first option is correct.
// With multi set, the second option is correct too.
func (f *fixture) choiceQuestion(t *testing.T, points int, multi bool) *model.Question {
	t.Helper()
	q := &model.Question{
		QuestionText:    "pick",
		QuestionType:    model.MultipleChoice,
		MultipleCorrect: multi,
		Points:          points,
		IsActive:        true,
		Options: []model.Option{
			{OptionText: "A", IsCorrect: true, Order: 0},
			{OptionText: "B", IsCorrect: multi, Order: 1},
			{OptionText: "C", Order: 2},
			{OptionText: "D", Order: 3},
		},
	}
	if err := f.questions.Create(f.ctx, q); err != nil {
		t.Fatalf("create question: %v", err)
	}
	return q
}

func (f *fixture) essayQuestion(t *testing.T, points int) *model.Question {
	t.Helper()
	q := &model.Question{QuestionText: "explain", QuestionType: model.Essay, Points: points, IsActive: true}
	if err := f.questions.Create(f.ctx, q); err != nil {
		t.Fatalf("create question: %v", err)
	}
	return q
}

// draftQuiz creates a quiz open for an hour either side of now over qs.
func (f *fixture) draftQuiz(t *testing.T, qs []*model.Question, tweak func(*CreateQuizRequest)) *model.Quiz {
	t.Helper()
	req := CreateQuizRequest{
		Title:             "Week 1",
		CourseID:          f.course.ID,
		EvaluationType:    model.EvaluationPractice,
		StartDate:         f.now.Add(-time.Hour),
		EndDate:           f.now.Add(time.Hour),
		AccessibleClasses: []string{f.class.ID},
	}
	for _, q := range qs {
		req.Questions = append(req.Questions, QuizQuestionInput{ID: q.ID})
	}
	if tweak != nil {
		tweak(&req)
	}
	quiz, err := f.quizzes.Create(f.ctx, f.instructor.ID, req)
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	return quiz
}

func (f *fixture) activeQuiz(t *testing.T, qs []*model.Question, tweak func(*CreateQuizRequest)) *model.Quiz {
	t.Helper()
	quiz := f.draftQuiz(t, qs, tweak)
	published, err := f.quizzes.Publish(f.ctx, quiz.ID)
	if err != nil {
		t.Fatalf("publish quiz: %v", err)
	}
	return published
}

func (f *fixture) countAttempts(t *testing.T, quizID string) int64 {
	t.Helper()
	var n int64
	if err := f.db.Model(&model.QuizAttempt{}).Where("quiz_id = ?", quizID).Count(&n).Error; err != nil {
		t.Fatalf("count attempts: %v", err)
	}
	return n
}

func (f *fixture) countInProgress(t *testing.T, quizID string) int64 {
	t.Helper()
	var n int64
	err := f.db.Model(&model.QuizAttempt{}).
		Where("quiz_id = ? AND status = ?", quizID, model.AttemptInProgress).
		Count(&n).Error
	if err != nil {
		t.Fatalf("count in-progress attempts: %v", err)
	}
	return n
}

func (f *fixture) reloadQuiz(t *testing.T, quizID string) *model.Quiz {
	t.Helper()
	var q model.Quiz
	if err := f.db.First(&q, "id = ?", quizID).Error; err != nil {
		t.Fatalf("reload quiz: %v", err)
	}
	return &q
}

func intPtr(v int) *int { return &v }
