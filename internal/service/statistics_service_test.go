package service

import (
	"equiz_backend/internal/model"
	"fmt"
	"testing"
)

func (f *fixture) insertAttempt(t *testing.T, quizID string, userID uint, status model.AttemptStatus, score float64) {
	t.Helper()
	a := &model.QuizAttempt{
		QuizID:        quizID,
		UserID:        userID,
		AttemptNumber: 1,
		Status:        status,
		Score:         score,
		StartedAt:     f.now,
	}
	if err := f.attemptDB.Create(f.ctx, a); err != nil {
		t.Fatalf("insert attempt: %v", err)
	}
}

func TestRecomputeRollups(t *testing.T) {
	f := newFixture(t)
	quiz := f.activeQuiz(t, []*model.Question{f.choiceQuestion(t, 5, false)}, nil)

	students := []*model.User{f.student}
	for i := 0; i < 3; i++ {
		students = append(students, f.user(t, fmt.Sprintf("s%d", i), model.Student))
	}
	ids := make([]uint, 0, len(students))
	for _, s := range students {
		ids = append(ids, s.ID)
	}
	if err := f.classes.Enroll(f.ctx, f.class.ID, ids); err != nil {
		t.Fatalf("enroll: %v", err)
	}

	f.insertAttempt(t, quiz.ID, students[0].ID, model.AttemptSubmitted, 60)
	f.insertAttempt(t, quiz.ID, students[1].ID, model.AttemptGraded, 80)
	f.insertAttempt(t, quiz.ID, students[2].ID, model.AttemptSubmitted, 100)
	f.insertAttempt(t, quiz.ID, students[3].ID, model.AttemptInProgress, 0)

	stats, err := f.stats.Recompute(f.ctx, quiz.ID)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	want := QuizStatistics{
		TotalAttempts:     3,
		AverageScore:      80,
		ParticipationRate: 75,
		GradedResponses:   1,
		CompletionRate:    75,
	}
	if *stats != want {
		t.Fatalf("stats = %+v, want %+v", *stats, want)
	}

	stored := f.reloadQuiz(t, quiz.ID)
	if stored.TotalAttempts != 3 || stored.AverageScore != 80 || stored.ParticipationRate != 75 ||
		stored.CompletionRate != 75 || stored.GradedResponses != 1 {
		t.Fatalf("stored rollups = %+v", stored)
	}
}

func TestComputeRoundsAverage(t *testing.T) {
	f := newFixture(t)
	quiz := f.activeQuiz(t, []*model.Question{f.choiceQuestion(t, 5, false)}, nil)
	other := f.user(t, "other", model.Student)
	third := f.user(t, "third", model.Student)

	f.insertAttempt(t, quiz.ID, f.student.ID, model.AttemptSubmitted, 100)
	f.insertAttempt(t, quiz.ID, other.ID, model.AttemptSubmitted, 50)
	f.insertAttempt(t, quiz.ID, third.ID, model.AttemptSubmitted, 50)

	stats, err := f.stats.Compute(f.ctx, quiz.ID)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if stats.AverageScore != 66.7 {
		t.Fatalf("average = %v, want 66.7", stats.AverageScore)
	}
}

func TestComputeWithoutEligibleStudents(t *testing.T) {
	f := newFixture(t)
	quiz := f.activeQuiz(t, []*model.Question{f.choiceQuestion(t, 5, false)}, func(r *CreateQuizRequest) {
		r.AccessibleClasses = nil
	})
	f.insertAttempt(t, quiz.ID, f.student.ID, model.AttemptSubmitted, 70)

	stats, err := f.stats.Compute(f.ctx, quiz.ID)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if stats.ParticipationRate != 0 || stats.AverageScore != 70 || stats.CompletionRate != 100 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestComputeWithoutAttempts(t *testing.T) {
	f := newFixture(t)
	quiz := f.activeQuiz(t, []*model.Question{f.choiceQuestion(t, 5, false)}, nil)

	stats, err := f.stats.Compute(f.ctx, quiz.ID)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if *stats != (QuizStatistics{}) {
		t.Fatalf("stats = %+v, want zero", *stats)
	}
}
