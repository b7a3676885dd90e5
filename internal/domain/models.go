package domain

import (
	"fmt"
	"strings"
)

// Phase is the stage a live session is in.
type Phase string

const (
	PhaseLobby       Phase = "lobby"
	PhaseQuestion    Phase = "question"
	PhaseResults     Phase = "results"
	PhaseLeaderboard Phase = "leaderboard"
	PhaseEnded       Phase = "ended"
)

// ChoiceCount is the number of choices every question carries.
const ChoiceCount = 4

// Question models a timed multiple-choice question with exactly one correct choice.
type Question struct {
	ID           string   `json:"id" yaml:"id"`
	Text         string   `json:"text" yaml:"text"`
	Choices      []string `json:"choices" yaml:"choices"`
	CorrectIndex int      `json:"correctIndex" yaml:"correctIndex"`
	TimerSec     int      `json:"timerSec" yaml:"timerSec"`
}

// PublicQuestion is what clients see while a question is open.
type PublicQuestion struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Choices  []string `json:"choices"`
	TimerSec int      `json:"timerSec"`
}

// Public strips the correct answer.
func (q Question) Public() PublicQuestion {
	choices := make([]string, len(q.Choices))
	copy(choices, q.Choices)
	return PublicQuestion{
		ID:       q.ID,
		Text:     q.Text,
		Choices:  choices,
		TimerSec: q.TimerSec,
	}
}

// Validate checks the invariants the session engine relies on.
func (q Question) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("%w: empty text", ErrInvalidQuiz)
	}
	if len(q.Choices) != ChoiceCount {
		return fmt.Errorf("%w: want %d choices, got %d", ErrInvalidQuiz, ChoiceCount, len(q.Choices))
	}
	for i, c := range q.Choices {
		if strings.TrimSpace(c) == "" {
			return fmt.Errorf("%w: choice %d is empty", ErrInvalidQuiz, i)
		}
	}
	if q.CorrectIndex < 0 || q.CorrectIndex >= ChoiceCount {
		return fmt.Errorf("%w: correct index %d out of range", ErrInvalidQuiz, q.CorrectIndex)
	}
	if q.TimerSec <= 0 {
		return fmt.Errorf("%w: timer must be positive", ErrInvalidQuiz)
	}
	return nil
}

// Quiz is a titled, ordered collection of questions.
type Quiz struct {
	ID        string     `json:"id" yaml:"id"`
	Title     string     `json:"title" yaml:"title"`
	Questions []Question `json:"questions" yaml:"questions"`
}

// Validate reports the first invalid question, by 1-based position.
func (q Quiz) Validate() error {
	if len(q.Questions) == 0 {
		return fmt.Errorf("%w: no questions", ErrInvalidQuiz)
	}
	for i, question := range q.Questions {
		if err := question.Validate(); err != nil {
			return fmt.Errorf("question %d: %w", i+1, err)
		}
	}
	return nil
}

// Ranking is one row of the final leaderboard.
type Ranking struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// SessionSummary is a read-only view of a live session.
type SessionSummary struct {
	Code          string   `json:"code"`
	Title         string   `json:"title"`
	Phase         Phase    `json:"phase"`
	Players       []string `json:"players"`
	QuestionIndex int      `json:"questionIndex"`
	Total         int      `json:"total"`
}
