package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"live-quiz-service/internal/domain"

	"github.com/rs/zerolog"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

// fakeConn records every payload it accepts until closed.
type fakeConn struct {
	mu     sync.Mutex
	closed bool
	msgs   [][]byte
}

func (c *fakeConn) Send(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.msgs = append(c.msgs, data)
	return true
}

func (c *fakeConn) close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *fakeConn) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.msgs))
	for _, raw := range c.msgs {
		var env struct {
			Type string `json:"type"`
		}
		_ = json.Unmarshal(raw, &env)
		out = append(out, env.Type)
	}
	return out
}

func (c *fakeConn) count(msgType string) int {
	n := 0
	for _, typ := range c.types() {
		if typ == msgType {
			n++
		}
	}
	return n
}

// last decodes the most recent message of msgType into v.
func (c *fakeConn) last(t *testing.T, msgType string, v any) {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.msgs) - 1; i >= 0; i-- {
		var env struct {
			Type string `json:"type"`
		}
		_ = json.Unmarshal(c.msgs[i], &env)
		if env.Type == msgType {
			if err := json.Unmarshal(c.msgs[i], v); err != nil {
				t.Fatalf("decode %s: %v", msgType, err)
			}
			return
		}
	}
	t.Fatalf("no %s message received", msgType)
}

func (c *fakeConn) raw(msgType string) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, raw := range c.msgs {
		var env struct {
			Type string `json:"type"`
		}
		_ = json.Unmarshal(raw, &env)
		if env.Type == msgType {
			return raw
		}
	}
	return nil
}

// memorySessions is a minimal SessionRepository for registry tests.
type memorySessions struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func newMemorySessions() *memorySessions {
	return &memorySessions{sessions: make(map[string]*Session)}
}

func (m *memorySessions) Reserve(_ context.Context, code, _ string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, taken := m.sessions[code]
	return !taken
}

func (m *memorySessions) Release(context.Context, string, string) {}

func (m *memorySessions) Insert(s *Session) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.Code()]; ok {
		return false
	}
	m.sessions[s.Code()] = s
	return true
}

func (m *memorySessions) Get(code string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[code]
	return s, ok
}

func (m *memorySessions) Delete(code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, code)
}

func (m *memorySessions) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func testQuiz(budgets ...int) domain.Quiz {
	quiz := domain.Quiz{Title: "Test quiz"}
	for i, budget := range budgets {
		quiz.Questions = append(quiz.Questions, domain.Question{
			ID:           fmt.Sprintf("q%d", i+1),
			Text:         fmt.Sprintf("Question %d", i+1),
			Choices:      []string{"A", "B", "C", "D"},
			CorrectIndex: 0,
			TimerSec:     budget,
		})
	}
	return quiz
}

// newTestSession builds a session whose countdown never fires on its own;
// tests drive it with fireTick.
func newTestSession(host Conn, budgets ...int) *Session {
	return newSession("s-1", "ABC123", testQuiz(budgets...), host, time.Hour, sequentialIDs())
}

func (s *Session) fireTick() {
	s.mu.Lock()
	c := s.timer
	s.mu.Unlock()
	s.onTick(c)
}

func (s *Session) answerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.answers)
}

func (s *Session) score(participantID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scores[participantID]
}

func (s *Session) currentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}
