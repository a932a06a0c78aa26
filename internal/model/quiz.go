package model

import "time"

type EvaluationType string

const (
	EvaluationPractice   EvaluationType = "practice"
	EvaluationMidTerm    EvaluationType = "mid-term"
	EvaluationFinal      EvaluationType = "final"
	EvaluationAssignment EvaluationType = "assignment"
	EvaluationDraft      EvaluationType = "draft"
)

func (e EvaluationType) Valid() bool {
	switch e {
	case EvaluationPractice, EvaluationMidTerm, EvaluationFinal, EvaluationAssignment, EvaluationDraft:
		return true
	}
	return false
}

type QuizStatus string

const (
	QuizDraft     QuizStatus = "draft"
	QuizActive    QuizStatus = "active"
	QuizScheduled QuizStatus = "scheduled"
	QuizCompleted QuizStatus = "completed"
	QuizArchived  QuizStatus = "archived"
)

var quizStatusRank = map[QuizStatus]int{
	QuizDraft:     0,
	QuizActive:    1,
	QuizScheduled: 2,
	QuizCompleted: 3,
	QuizArchived:  4,
}

func (s QuizStatus) Valid() bool {
	_, ok := quizStatusRank[s]
	return ok
}

// CanTransitionTo reports whether next lies strictly later in the quiz lifecycle.
// Intermediate states may be skipped; nothing moves backward.
func (s QuizStatus) CanTransitionTo(next QuizStatus) bool {
	from, ok := quizStatusRank[s]
	if !ok {
		return false
	}
	to, ok := quizStatusRank[next]
	if !ok {
		return false
	}
	return to > from
}

// swagger:model Quiz
type Quiz struct {
	UUIDBase
	QuizCode         string         `gorm:"size:64;uniqueIndex;not null" json:"quizCode"`
	Title            string         `gorm:"size:255;not null" json:"title"`
	Description      string         `gorm:"type:text" json:"description"`
	CourseID         string         `gorm:"index;type:varchar(36);not null" json:"courseId"`
	EvaluationType   EvaluationType `gorm:"size:20;default:'practice'" json:"evaluationType"`
	Status           QuizStatus     `gorm:"size:20;index;default:'draft'" json:"status"`
	StartDate        time.Time      `gorm:"index:idx_quiz_window;not null" json:"startDate"`
	EndDate          time.Time      `gorm:"index:idx_quiz_window;not null" json:"endDate"`
	Duration         int            `gorm:"not null;default:0" json:"duration"` // minutes
	MaxAttempts      int            `gorm:"default:1" json:"maxAttempts"`
	PassingScore     float64        `gorm:"default:50" json:"passingScore"`
	ShowResults      bool           `gorm:"default:false" json:"showResults"`
	ShuffleQuestions bool           `gorm:"default:false" json:"shuffleQuestions"`
	ShuffleOptions   bool           `gorm:"default:false" json:"shuffleOptions"`
	AllowReview      bool           `gorm:"default:false" json:"allowReview"`
	Instructions     string         `gorm:"type:text" json:"instructions"`
	CreatedBy        uint           `gorm:"index" json:"createdBy"`

	// rollups, rederived by the statistics recompute
	TotalPoints       int     `gorm:"default:0" json:"totalPoints"`
	TotalQuestions    int     `gorm:"default:0" json:"totalQuestions"`
	TotalAttempts     int     `gorm:"default:0" json:"totalAttempts"`
	ParticipationRate float64 `gorm:"default:0" json:"participationRate"`
	AverageScore      float64 `gorm:"default:0" json:"averageScore"`
	CompletionRate    float64 `gorm:"default:0" json:"completionRate"`
	GradedResponses   int     `gorm:"default:0" json:"gradedResponses"`

	Course        *Course        `gorm:"foreignKey:CourseID" json:"course,omitempty"`
	QuizQuestions []QuizQuestion `gorm:"foreignKey:QuizID" json:"quizQuestions,omitempty"`
	Classes       []QuizClass    `gorm:"foreignKey:QuizID" json:"accessibleClasses,omitempty"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// InWindow reports whether t falls within [StartDate, EndDate].
func (q *Quiz) InWindow(t time.Time) bool {
	return !t.Before(q.StartDate) && !t.After(q.EndDate)
}

type QuizQuestion struct {
	JoinBase
	QuizID     string `gorm:"type:varchar(36);uniqueIndex:idx_quiz_question;not null" json:"quizId"`
	QuestionID string `gorm:"type:varchar(36);uniqueIndex:idx_quiz_question;not null" json:"questionId"`
	Points     int    `gorm:"not null;default:0" json:"points"`
	Order      int    `gorm:"column:sort_order;not null;default:0" json:"order"`

	Question *Question `gorm:"foreignKey:QuestionID" json:"question,omitempty"`
}

func (QuizQuestion) TableName() string {
	return "quiz_questions"
}

// Weight is the per-quiz point value, falling back to the question default.
func (qq *QuizQuestion) Weight() int {
	if qq.Points > 0 {
		return qq.Points
	}
	if qq.Question != nil {
		return qq.Question.Points
	}
	return 0
}

type QuizClass struct {
	JoinBase
	QuizID  string `gorm:"type:varchar(36);uniqueIndex:idx_quiz_class;not null" json:"quizId"`
	ClassID string `gorm:"type:varchar(36);uniqueIndex:idx_quiz_class;not null" json:"classId"`
}

func (QuizClass) TableName() string {
	return "quiz_classes"
}
