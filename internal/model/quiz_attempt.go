package model

import (
	"time"

	"gorm.io/datatypes"
)

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in-progress"
	AttemptSubmitted  AttemptStatus = "submitted"
	AttemptGraded     AttemptStatus = "graded"
	AttemptExpired    AttemptStatus = "expired"
)

// FinalizedAttemptStatuses are the states that count toward quiz statistics.
var FinalizedAttemptStatuses = []AttemptStatus{AttemptSubmitted, AttemptGraded}

// swagger:model QuizAttempt
type QuizAttempt struct {
	UUIDBase
	QuizID        string        `gorm:"type:varchar(36);not null;index:idx_attempt_quiz_user;uniqueIndex:idx_attempt_number" json:"quizId"`
	UserID        uint          `gorm:"not null;index:idx_attempt_quiz_user;uniqueIndex:idx_attempt_number" json:"userId"`
	AttemptNumber int           `gorm:"not null;uniqueIndex:idx_attempt_number" json:"attemptNumber"`
	Status        AttemptStatus `gorm:"size:20;index;default:'in-progress'" json:"status"`
	Score         float64       `gorm:"default:0" json:"score"`
	StartedAt     time.Time     `json:"startedAt"`
	SubmittedAt   *time.Time    `gorm:"index" json:"submittedAt,omitempty"`
	GradedAt      *time.Time    `json:"gradedAt,omitempty"`
	TimeSpent     int           `gorm:"default:0" json:"timeSpent"` // seconds

	// question id -> raw answer as submitted
	Responses datatypes.JSON `json:"responses,omitempty"`
	// question ids in the order this attempt was shown
	QuestionOrder datatypes.JSON `json:"questionOrder,omitempty"`
	// question id -> points awarded by a grader
	ManualScores       datatypes.JSON `json:"manualScores,omitempty"`
	NeedsManualGrading bool           `gorm:"default:false" json:"needsManualGrading"`

	Quiz *Quiz `gorm:"foreignKey:QuizID" json:"quiz,omitempty"`
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}

// Finalized reports whether the attempt counts toward statistics.
func (a *QuizAttempt) Finalized() bool {
	return a.Status == AttemptSubmitted || a.Status == AttemptGraded
}

// Deadline is the latest moment a submission is on time. A zero duration
// means only the quiz window bounds the attempt.
func (a *QuizAttempt) Deadline(q *Quiz) time.Time {
	deadline := q.EndDate
	if q.Duration > 0 {
		byDuration := a.StartedAt.Add(time.Duration(q.Duration) * time.Minute)
		if byDuration.Before(deadline) {
			deadline = byDuration
		}
	}
	return deadline
}
