package memory

import (
	"context"
	"fmt"
	"os"

	"live-quiz-service/internal/domain"

	"gopkg.in/yaml.v3"
)

// StaticQuizLoader serves quizzes from an in-memory map (library file, tests, demos).
type StaticQuizLoader struct {
	quizzes map[string]domain.Quiz
}

func NewStaticQuizLoader(quizzes map[string]domain.Quiz) *StaticQuizLoader {
	return &StaticQuizLoader{quizzes: quizzes}
}

func (l *StaticQuizLoader) LoadQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := l.quizzes[quizID]; ok {
		return quiz, nil
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}

// ReadLibraryFile reads a YAML document holding a list of quizzes. Every quiz
// must have an id and pass validation.
func ReadLibraryFile(path string) ([]domain.Quiz, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read quiz library: %w", err)
	}
	var doc struct {
		Quizzes []domain.Quiz `yaml:"quizzes"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse quiz library: %w", err)
	}

	for _, quiz := range doc.Quizzes {
		if quiz.ID == "" {
			return nil, fmt.Errorf("quiz library: %w: missing id", domain.ErrInvalidQuiz)
		}
		if err := quiz.Validate(); err != nil {
			return nil, fmt.Errorf("quiz library %q: %w", quiz.ID, err)
		}
	}
	return doc.Quizzes, nil
}

// LoadLibraryFile is ReadLibraryFile indexed by quiz id.
func LoadLibraryFile(path string) (*StaticQuizLoader, error) {
	list, err := ReadLibraryFile(path)
	if err != nil {
		return nil, err
	}
	quizzes := make(map[string]domain.Quiz, len(list))
	for _, quiz := range list {
		quizzes[quiz.ID] = quiz
	}
	return NewStaticQuizLoader(quizzes), nil
}
