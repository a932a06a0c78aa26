package service

import (
	"encoding/json"
	"equiz_backend/internal/model"
	"equiz_backend/internal/util"
	"strings"
)

// Answer is one student response, already decoded for its question type.
type Answer interface {
	isAnswer()
}

type MultipleChoiceAnswer struct {
	OptionIDs []string
}

type TrueFalseAnswer struct {
	Value bool
}

type ShortAnswerAnswer struct {
	Text string
}

type EssayAnswer struct {
	Text string
}

func (MultipleChoiceAnswer) isAnswer() {}
func (TrueFalseAnswer) isAnswer()      {}
func (ShortAnswerAnswer) isAnswer()    {}
func (EssayAnswer) isAnswer()          {}

// ParseAnswer decodes a raw response for a question of type t. A response that
// does not fit the type yields nil, which scores as unanswered.
func ParseAnswer(t model.QuestionType, raw json.RawMessage) Answer {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	switch t {
	case model.MultipleChoice:
		var one string
		if err := json.Unmarshal(raw, &one); err == nil {
			return MultipleChoiceAnswer{OptionIDs: []string{one}}
		}
		var many []string
		if err := json.Unmarshal(raw, &many); err == nil {
			return MultipleChoiceAnswer{OptionIDs: many}
		}
	case model.TrueFalse:
		var b bool
		if err := json.Unmarshal(raw, &b); err == nil {
			return TrueFalseAnswer{Value: b}
		}
	case model.ShortAnswer:
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return ShortAnswerAnswer{Text: s}
		}
	case model.Essay:
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return EssayAnswer{Text: s}
		}
	}
	return nil
}

// AnswerKey is the authoritative correct response for one question.
type AnswerKey struct {
	Type            model.QuestionType
	MultipleCorrect bool
	CorrectOptions  []string
	CorrectBoolean  *bool
	CorrectText     string
}

func KeyFor(q *model.Question) AnswerKey {
	return AnswerKey{
		Type:            q.QuestionType,
		MultipleCorrect: q.MultipleCorrect,
		CorrectOptions:  q.CorrectOptionIDs(),
		CorrectBoolean:  q.CorrectBoolean,
		CorrectText:     q.CorrectAnswer,
	}
}

// Grade decides whether ans satisfies key. Essays return nil: they are left to
// a human grader and earn nothing automatically.
func Grade(key AnswerKey, ans Answer) *bool {
	if key.Type == model.Essay {
		return nil
	}

	var correct bool
	switch a := ans.(type) {
	case MultipleChoiceAnswer:
		if key.Type == model.MultipleChoice {
			correct = gradeChoice(key, a.OptionIDs)
		}
	case TrueFalseAnswer:
		if key.Type == model.TrueFalse && key.CorrectBoolean != nil {
			correct = a.Value == *key.CorrectBoolean
		}
	case ShortAnswerAnswer:
		if key.Type == model.ShortAnswer {
			correct = strings.EqualFold(strings.TrimSpace(a.Text), strings.TrimSpace(key.CorrectText))
		}
	}
	return &correct
}

func gradeChoice(key AnswerKey, picked []string) bool {
	if len(key.CorrectOptions) == 0 {
		return false
	}
	if !key.MultipleCorrect {
		return len(picked) == 1 && picked[0] == key.CorrectOptions[0]
	}

	want := make(map[string]bool, len(key.CorrectOptions))
	for _, id := range key.CorrectOptions {
		want[id] = true
	}
	got := make(map[string]bool, len(picked))
	for _, id := range picked {
		if !want[id] {
			return false
		}
		got[id] = true
	}
	return len(got) == len(want)
}

// QuestionResult is the verdict for one question of an attempt.
type QuestionResult struct {
	QuestionID string  `json:"questionId"`
	IsCorrect  *bool   `json:"isCorrect"`
	Points     int     `json:"points"`
	Earned     float64 `json:"earned"`
}

type Scorecard struct {
	Results            []QuestionResult
	TotalScore         float64
	MaxScore           int
	NeedsManualGrading bool
}

// Percentage is TotalScore over MaxScore on a 0-100 scale, 0 when nothing is scorable.
func (c *Scorecard) Percentage() float64 {
	return util.Percent(c.TotalScore, float64(c.MaxScore))
}

// ScoreAttempt grades every question of the quiz against responses. Essay
// points come from manual when a grader has scored them.
func ScoreAttempt(qqs []model.QuizQuestion, responses map[string]json.RawMessage, manual map[string]float64) *Scorecard {
	card := &Scorecard{Results: make([]QuestionResult, 0, len(qqs))}
	for i := range qqs {
		qq := &qqs[i]
		if qq.Question == nil {
			continue
		}
		weight := qq.Weight()
		card.MaxScore += weight

		r := QuestionResult{QuestionID: qq.QuestionID, Points: weight}
		r.IsCorrect = Grade(KeyFor(qq.Question), ParseAnswer(qq.Question.QuestionType, responses[qq.QuestionID]))
		switch {
		case r.IsCorrect == nil:
			if pts, ok := manual[qq.QuestionID]; ok {
				r.Earned = pts
			} else {
				card.NeedsManualGrading = true
			}
		case *r.IsCorrect:
			r.Earned = float64(weight)
		}
		card.TotalScore += r.Earned
		card.Results = append(card.Results, r)
	}
	return card
}
