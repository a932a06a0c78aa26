package service

import (
	"equiz_backend/internal/model"
	"equiz_backend/internal/repository"
	"equiz_backend/internal/util"
	"testing"
	"time"

	"gorm.io/gorm"
)

func TestCreateQuizCodeAndTotals(t *testing.T) {
	f := newFixture(t)
	q1 := f.choiceQuestion(t, 10, false)
	q2 := f.essayQuestion(t, 5)

	quiz := f.draftQuiz(t, []*model.Question{q1, q2}, func(r *CreateQuizRequest) {
		r.EvaluationType = model.EvaluationMidTerm
		r.Questions[0].Points = 3
	})
	if quiz.QuizCode != "MID-CS101-2026-1" {
		t.Fatalf("quiz code = %q, want MID-CS101-2026-1", quiz.QuizCode)
	}
	if quiz.TotalQuestions != 2 || quiz.TotalPoints != 8 {
		t.Fatalf("totals = %d questions %d points, want 2 and 8", quiz.TotalQuestions, quiz.TotalPoints)
	}
	if quiz.Status != model.QuizDraft || quiz.MaxAttempts != 1 || quiz.PassingScore != 50 {
		t.Fatalf("defaults = %s / %d / %v", quiz.Status, quiz.MaxAttempts, quiz.PassingScore)
	}

	second := f.draftQuiz(t, nil, func(r *CreateQuizRequest) {
		r.EvaluationType = model.EvaluationMidTerm
	})
	if second.QuizCode != "MID-CS101-2026-2" {
		t.Fatalf("second quiz code = %q, want MID-CS101-2026-2", second.QuizCode)
	}

	detail, err := f.quizzes.Get(f.ctx, quiz.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(detail.QuizQuestions) != 2 || detail.QuizQuestions[0].QuestionID != q1.ID {
		t.Fatalf("quiz questions = %+v", detail.QuizQuestions)
	}
	if detail.QuizQuestions[1].Points != 5 {
		t.Fatalf("fallback points = %d, want 5", detail.QuizQuestions[1].Points)
	}
	if len(detail.Classes) != 1 || detail.Course == nil || detail.Course.Code != "CS101" {
		t.Fatalf("detail = classes %d course %+v", len(detail.Classes), detail.Course)
	}
}

func TestCreateQuizValidation(t *testing.T) {
	f := newFixture(t)
	q := f.choiceQuestion(t, 5, false)

	tests := []struct {
		name  string
		tweak func(*CreateQuizRequest)
		kind  util.ErrorKind
	}{
		{"end before start", func(r *CreateQuizRequest) { r.EndDate = r.StartDate.Add(-time.Minute) }, util.KindValidation},
		{"zero attempts", func(r *CreateQuizRequest) { r.MaxAttempts = intPtr(0) }, util.KindValidation},
		{"passing over 100", func(r *CreateQuizRequest) { p := 101.0; r.PassingScore = &p }, util.KindValidation},
		{"duplicate question", func(r *CreateQuizRequest) { r.Questions = append(r.Questions, r.Questions[0]) }, util.KindValidation},
		{"unknown question", func(r *CreateQuizRequest) { r.Questions[0].ID = "missing" }, util.KindNotFound},
		{"unknown course", func(r *CreateQuizRequest) { r.CourseID = "missing" }, util.KindNotFound},
		{"unknown class", func(r *CreateQuizRequest) { r.AccessibleClasses = []string{"missing"} }, util.KindNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := CreateQuizRequest{
				Title:             "Bad",
				CourseID:          f.course.ID,
				EvaluationType:    model.EvaluationPractice,
				StartDate:         f.now,
				EndDate:           f.now.Add(time.Hour),
				AccessibleClasses: []string{f.class.ID},
				Questions:         []QuizQuestionInput{{ID: q.ID}},
			}
			tt.tweak(&req)
			_, err := f.quizzes.Create(f.ctx, f.instructor.ID, req)
			if util.KindOf(err) != tt.kind {
				t.Fatalf("err = %v, want kind %s", err, tt.kind)
			}
		})
	}
}

func TestPublishRequiresQuestions(t *testing.T) {
	f := newFixture(t)
	quiz := f.draftQuiz(t, nil, nil)

	_, err := f.quizzes.Publish(f.ctx, quiz.ID)
	if err != util.ErrQuizHasNoQuestions {
		t.Fatalf("err = %v, want ErrQuizHasNoQuestions", err)
	}
	if got := f.reloadQuiz(t, quiz.ID).Status; got != model.QuizDraft {
		t.Fatalf("status = %s, want draft", got)
	}

	if _, err := f.quizzes.Publish(f.ctx, "missing"); util.KindOf(err) != util.KindNotFound {
		t.Fatalf("missing quiz err = %v, want NotFound", err)
	}
}

func TestPublishTwiceFails(t *testing.T) {
	f := newFixture(t)
	quiz := f.activeQuiz(t, []*model.Question{f.choiceQuestion(t, 5, false)}, nil)

	if _, err := f.quizzes.Publish(f.ctx, quiz.ID); err != util.ErrInvalidQuizTransition {
		t.Fatalf("err = %v, want ErrInvalidQuizTransition", err)
	}
}

func TestUpdateStatusOnlyMovesForward(t *testing.T) {
	f := newFixture(t)
	quiz := f.activeQuiz(t, []*model.Question{f.choiceQuestion(t, 5, false)}, nil)

	completed := model.QuizCompleted
	updated, err := f.quizzes.Update(f.ctx, quiz.ID, UpdateQuizRequest{Status: &completed})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != model.QuizCompleted {
		t.Fatalf("status = %s, want completed", updated.Status)
	}

	draft := model.QuizDraft
	_, err = f.quizzes.Update(f.ctx, quiz.ID, UpdateQuizRequest{Status: &draft})
	if util.KindOf(err) != util.KindInvalidState {
		t.Fatalf("backward move err = %v, want InvalidState", err)
	}
	if got := f.reloadQuiz(t, quiz.ID).Status; got != model.QuizCompleted {
		t.Fatalf("stored status = %s, want completed", got)
	}
}

func TestUpdateKeepsConcurrentStatusAndRollups(t *testing.T) {
	f := newFixture(t)
	quiz := f.activeQuiz(t, []*model.Question{f.choiceQuestion(t, 5, false)}, nil)

	// Another writer completes the quiz and refreshes its rollups while the
	// edit is in flight.
	fired := false
	cb := f.db.Callback().Update()
	if err := cb.Before("gorm:update").Register("test:concurrent_writer", func(tx *gorm.DB) {
		if fired || tx.Statement.Table != "quizzes" {
			return
		}
		fired = true
		tx.Session(&gorm.Session{NewDB: true}).
			Exec("UPDATE quizzes SET status = ?, total_attempts = ? WHERE id = ?", model.QuizCompleted, 7, quiz.ID)
	}); err != nil {
		t.Fatalf("register callback: %v", err)
	}
	t.Cleanup(func() { _ = cb.Remove("test:concurrent_writer") })

	title := "Renamed"
	updated, err := f.quizzes.Update(f.ctx, quiz.ID, UpdateQuizRequest{Title: &title})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !fired {
		t.Fatalf("concurrent writer never ran")
	}
	if updated.Title != "Renamed" {
		t.Fatalf("title = %q", updated.Title)
	}

	stored := f.reloadQuiz(t, quiz.ID)
	if stored.Title != "Renamed" {
		t.Fatalf("stored title = %q", stored.Title)
	}
	if stored.Status != model.QuizCompleted || stored.TotalAttempts != 7 {
		t.Fatalf("stored status %s attempts %d, want completed / 7", stored.Status, stored.TotalAttempts)
	}
}

func TestUpdateStatusRaceLost(t *testing.T) {
	f := newFixture(t)
	quiz := f.activeQuiz(t, []*model.Question{f.choiceQuestion(t, 5, false)}, nil)

	// The quiz is completed between the locked read and the status write.
	fired := false
	cb := f.db.Callback().Update()
	if err := cb.Before("gorm:update").Register("test:status_race", func(tx *gorm.DB) {
		if fired || tx.Statement.Table != "quizzes" {
			return
		}
		fired = true
		tx.Session(&gorm.Session{NewDB: true}).
			Exec("UPDATE quizzes SET status = ? WHERE id = ?", model.QuizCompleted, quiz.ID)
	}); err != nil {
		t.Fatalf("register callback: %v", err)
	}
	t.Cleanup(func() { _ = cb.Remove("test:status_race") })

	completed := model.QuizCompleted
	title := "Late edit"
	_, err := f.quizzes.Update(f.ctx, quiz.ID, UpdateQuizRequest{Title: &title, Status: &completed})
	if err != util.ErrInvalidQuizTransition {
		t.Fatalf("err = %v, want ErrInvalidQuizTransition", err)
	}
	if got := f.reloadQuiz(t, quiz.ID).Title; got == "Late edit" {
		t.Fatalf("failed update was not rolled back")
	}
}

func TestUpdateReplacesQuestions(t *testing.T) {
	f := newFixture(t)
	q1 := f.choiceQuestion(t, 5, false)
	q2 := f.choiceQuestion(t, 7, false)
	quiz := f.draftQuiz(t, []*model.Question{q1}, nil)

	title := "Week 2"
	qs := []QuizQuestionInput{{ID: q2.ID}}
	updated, err := f.quizzes.Update(f.ctx, quiz.ID, UpdateQuizRequest{Title: &title, Questions: &qs})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "Week 2" || updated.TotalQuestions != 1 || updated.TotalPoints != 7 {
		t.Fatalf("updated = %s / %d / %d", updated.Title, updated.TotalQuestions, updated.TotalPoints)
	}

	detail, err := f.quizzes.Get(f.ctx, quiz.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(detail.QuizQuestions) != 1 || detail.QuizQuestions[0].QuestionID != q2.ID {
		t.Fatalf("quiz questions = %+v", detail.QuizQuestions)
	}
}

func TestDeleteCascades(t *testing.T) {
	f := newFixture(t)
	quiz := f.activeQuiz(t, []*model.Question{f.choiceQuestion(t, 5, false)}, nil)
	if _, err := f.attempts.Start(f.ctx, quiz.ID, f.student.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := f.quizzes.Delete(f.ctx, quiz.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := f.countAttempts(t, quiz.ID); got != 0 {
		t.Fatalf("attempts left = %d, want 0", got)
	}
	var links int64
	f.db.Model(&model.QuizQuestion{}).Where("quiz_id = ?", quiz.ID).Count(&links)
	if links != 0 {
		t.Fatalf("question links left = %d, want 0", links)
	}
	if _, err := f.quizzes.Get(f.ctx, quiz.ID); util.KindOf(err) != util.KindNotFound {
		t.Fatalf("get after delete err = %v, want NotFound", err)
	}
	if err := f.quizzes.Delete(f.ctx, quiz.ID); util.KindOf(err) != util.KindNotFound {
		t.Fatalf("second delete err = %v, want NotFound", err)
	}
}

func TestCompleteEndedQuizzes(t *testing.T) {
	f := newFixture(t)
	ended := f.activeQuiz(t, []*model.Question{f.choiceQuestion(t, 5, false)}, nil)
	open := f.activeQuiz(t, []*model.Question{f.choiceQuestion(t, 5, false)}, func(r *CreateQuizRequest) {
		r.EndDate = f.now.Add(24 * time.Hour)
	})

	f.now = f.now.Add(2 * time.Hour)
	n, err := f.quizzes.CompleteEndedQuizzes(f.ctx)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if n != 1 {
		t.Fatalf("completed = %d, want 1", n)
	}
	if got := f.reloadQuiz(t, ended.ID).Status; got != model.QuizCompleted {
		t.Fatalf("ended quiz status = %s", got)
	}
	if got := f.reloadQuiz(t, open.ID).Status; got != model.QuizActive {
		t.Fatalf("open quiz status = %s", got)
	}
}

func TestListQuizzesWithGlobalStats(t *testing.T) {
	f := newFixture(t)
	active := f.activeQuiz(t, []*model.Question{f.choiceQuestion(t, 5, false)}, nil)
	f.draftQuiz(t, nil, nil)
	f.insertAttempt(t, active.ID, f.student.ID, model.AttemptSubmitted, 40)

	out, err := f.quizzes.List(f.ctx, repository.QuizFilter{Status: string(model.QuizActive)})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(out.Quizzes) != 1 || out.Quizzes[0].ID != active.ID {
		t.Fatalf("quizzes = %+v", out.Quizzes)
	}
	want := QuizGlobalStat{TotalQuizzes: 2, TotalAttempts: 1, ActiveQuizzes: 1, AvgScore: 40}
	if out.Statistics != want {
		t.Fatalf("statistics = %+v, want %+v", out.Statistics, want)
	}
}

func TestQuizCode(t *testing.T) {
	if got := quizCode(model.EvaluationFinal, "MATH2", 2025, 12); got != "FIN-MATH2-2025-12" {
		t.Fatalf("quizCode = %q", got)
	}
	if got := quizCode(model.EvaluationAssignment, "CS101", 2026, 1); got != "ASS-CS101-2026-1" {
		t.Fatalf("quizCode = %q", got)
	}
}
