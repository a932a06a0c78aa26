package model

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple-choice"
	TrueFalse      QuestionType = "true-false"
	ShortAnswer    QuestionType = "short-answer"
	Essay          QuestionType = "essay"
)

func (t QuestionType) Valid() bool {
	switch t {
	case MultipleChoice, TrueFalse, ShortAnswer, Essay:
		return true
	}
	return false
}

// swagger:model Question
type Question struct {
	UUIDBase
	QuestionText    string       `gorm:"type:text;not null" json:"questionText"`
	QuestionType    QuestionType `gorm:"size:20;index;not null;default:'multiple-choice'" json:"questionType"`
	MultipleCorrect bool         `gorm:"default:false" json:"multipleCorrect"`
	CorrectBoolean  *bool        `json:"correctBoolean,omitempty"`
	CorrectAnswer   string       `gorm:"type:text" json:"correctAnswer,omitempty"`
	SampleAnswer    string       `gorm:"type:text" json:"sampleAnswer,omitempty"`
	MaxLength       int          `json:"maxLength,omitempty"`
	CourseCode      string       `gorm:"size:32;index" json:"courseCode"`
	Difficulty      string       `gorm:"size:10;default:'medium'" json:"difficulty"`
	Points          int          `gorm:"not null;default:10" json:"points"`
	Topic           string       `gorm:"size:255" json:"topic,omitempty"`
	Explanation     string       `gorm:"type:text" json:"explanation,omitempty"`
	CreatedBy       uint         `gorm:"index" json:"createdBy"`
	IsActive        bool         `gorm:"default:true" json:"isActive"`

	Options []Option `gorm:"foreignKey:QuestionID" json:"options,omitempty"`
}

func (Question) TableName() string {
	return "questions"
}

// CorrectOptionIDs lists the options flagged correct, in stored order.
func (q *Question) CorrectOptionIDs() []string {
	ids := make([]string, 0, 1)
	for _, o := range q.Options {
		if o.IsCorrect {
			ids = append(ids, o.ID)
		}
	}
	return ids
}

// swagger:model Option
type Option struct {
	UUIDBase
	QuestionID  string `gorm:"index;type:varchar(36);not null" json:"questionId"`
	OptionText  string `gorm:"type:text;not null" json:"optionText"`
	IsCorrect   bool   `gorm:"default:false" json:"isCorrect"`
	Explanation string `gorm:"type:text" json:"explanation,omitempty"`
	Order       int    `gorm:"column:sort_order;default:0" json:"order"`
}

func (Option) TableName() string {
	return "options"
}
