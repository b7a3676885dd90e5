package app

import (
	"sort"
	"sync"
	"time"

	"live-quiz-service/internal/domain"

	"github.com/rs/zerolog/log"
)

// DefaultTickInterval is the countdown unit.
const DefaultTickInterval = time.Second

type participant struct {
	id   string
	name string
	conn Conn
}

// Session is one live quiz. Every mutation happens under mu: host actions,
// answer intake and countdown callbacks are applied one at a time.
type Session struct {
	id        string
	code      string
	title     string
	createdAt time.Time
	interval  time.Duration
	newID     func() string

	mu           sync.Mutex
	phase        domain.Phase
	questions    []domain.Question
	current      int
	host         Conn
	participants []*participant // join order
	byID         map[string]*participant
	scores       map[string]int
	answers      map[string]int // current question only
	remaining    int
	timer        *Countdown
}

func newSession(id, code string, quiz domain.Quiz, host Conn, interval time.Duration, newID func() string) *Session {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Session{
		id:        id,
		code:      code,
		title:     quiz.Title,
		createdAt: time.Now(),
		interval:  interval,
		newID:     newID,
		phase:     domain.PhaseLobby,
		questions: quiz.Questions,
		current:   -1,
		host:      host,
		byID:      make(map[string]*participant),
		scores:    make(map[string]int),
		answers:   make(map[string]int),
	}
}

// ID returns the session identity.
func (s *Session) ID() string { return s.id }

// Code returns the join code.
func (s *Session) Code() string { return s.code }

// Phase returns the current phase.
func (s *Session) Phase() domain.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Summary returns a snapshot safe to hand to other goroutines.
func (s *Session) Summary() domain.SessionSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.SessionSummary{
		Code:          s.code,
		Title:         s.title,
		Phase:         s.phase,
		Players:       s.namesLocked(),
		QuestionIndex: s.current,
		Total:         len(s.questions),
	}
}

func (s *Session) syncHost() {
	SendTo(s.host, domain.SyncMessage{
		Type:  domain.MsgSync,
		Phase: domain.PhaseLobby,
		Data:  domain.SyncData{QuizCode: s.code},
	})
}

// addParticipant admits a player while the session is in the lobby and
// returns the fresh participant id.
func (s *Session) addParticipant(name string, conn Conn) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != domain.PhaseLobby {
		return "", domain.ErrJoinClosed
	}
	p := &participant{id: s.newID(), name: name, conn: conn}
	s.participants = append(s.participants, p)
	s.byID[p.id] = p
	s.scores[p.id] = 0

	s.broadcastLocked(domain.JoinedMessage{
		Type:     domain.MsgJoined,
		PlayerID: p.id,
		Players:  s.namesLocked(),
	})
	return p.id, nil
}

func (s *Session) start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != domain.PhaseLobby {
		return domain.ErrAlreadyStarted
	}
	if len(s.participants) == 0 {
		return domain.ErrNoParticipants
	}
	log.Info().Str("code", s.code).Int("players", len(s.participants)).Msg("session started")
	s.advanceLocked()
	return nil
}

func (s *Session) advance() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != domain.PhaseQuestion && s.phase != domain.PhaseResults {
		return domain.ErrNotAdvanceable
	}
	s.advanceLocked()
	return nil
}

func (s *Session) advanceLocked() {
	s.stopTimerLocked()
	s.current++

	if s.current >= len(s.questions) {
		s.showLeaderboardLocked()
		return
	}

	q := s.questions[s.current]
	s.answers = make(map[string]int)
	s.phase = domain.PhaseQuestion
	s.remaining = q.TimerSec

	s.broadcastLocked(domain.QuestionMessage{
		Type:     domain.MsgQuestion,
		Question: q.Public(),
		Index:    s.current,
		Total:    len(s.questions),
	})
	s.timer = startCountdown(s.interval, q.TimerSec, s)
}

// submitAnswer records a participant's choice for the open question. Answers
// outside the question phase, repeated answers and answers addressed to a
// question that is no longer current are ignored.
func (s *Session) submitAnswer(participantID, questionID string, choice int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != domain.PhaseQuestion {
		return
	}
	if _, ok := s.byID[participantID]; !ok {
		return
	}
	if _, answered := s.answers[participantID]; answered {
		return
	}
	q := s.questions[s.current]
	if questionID != "" && questionID != q.ID {
		return
	}

	s.answers[participantID] = choice
	if choice == q.CorrectIndex {
		s.scores[participantID] += Points(s.remaining, q.TimerSec)
	}

	if len(s.answers) == len(s.participants) {
		s.closeQuestionLocked()
	}
}

func (s *Session) onTick(c *Countdown) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c != s.timer || s.phase != domain.PhaseQuestion {
		return
	}
	s.remaining--
	s.broadcastLocked(domain.TickMessage{Type: domain.MsgTick, Remaining: s.remaining})
	if s.remaining <= 0 {
		s.closeQuestionLocked()
	}
}

func (s *Session) onExpire(c *Countdown) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c != s.timer {
		return
	}
	s.closeQuestionLocked()
}

// closeQuestionLocked moves Question to Results. The phase check makes it a
// no-op for whichever trigger arrives second.
func (s *Session) closeQuestionLocked() {
	if s.phase != domain.PhaseQuestion {
		return
	}
	s.stopTimerLocked()
	s.phase = domain.PhaseResults

	q := s.questions[s.current]
	distribution := make([]int, len(q.Choices))
	for _, choice := range s.answers {
		if choice >= 0 && choice < len(distribution) {
			distribution[choice]++
		}
	}

	scores := make(map[string]int, len(s.participants))
	for _, p := range s.participants {
		scores[p.name] = s.scores[p.id]
	}

	s.broadcastLocked(domain.ResultsMessage{
		Type:         domain.MsgResults,
		CorrectIndex: q.CorrectIndex,
		Distribution: distribution,
		Scores:       scores,
	})
}

func (s *Session) showLeaderboardLocked() {
	s.phase = domain.PhaseLeaderboard
	s.broadcastLocked(domain.LeaderboardMessage{
		Type:     domain.MsgLeaderboard,
		Rankings: s.rankingsLocked(),
	})
}

func (s *Session) rankingsLocked() []domain.Ranking {
	rankings := make([]domain.Ranking, 0, len(s.participants))
	for _, p := range s.participants {
		rankings = append(rankings, domain.Ranking{Name: p.name, Score: s.scores[p.id]})
	}
	sort.SliceStable(rankings, func(i, j int) bool {
		return rankings[i].Score > rankings[j].Score
	})
	return rankings
}

// end stops the session for good. Calling it twice has no further effect.
func (s *Session) end() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == domain.PhaseEnded {
		return
	}
	s.stopTimerLocked()
	s.phase = domain.PhaseEnded
	s.broadcastLocked(domain.EndedMessage{Type: domain.MsgEnded})
}

func (s *Session) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Session) namesLocked() []string {
	names := make([]string, 0, len(s.participants))
	for _, p := range s.participants {
		names = append(names, p.name)
	}
	return names
}

func (s *Session) broadcastLocked(msg any) {
	conns := make([]Conn, 0, len(s.participants)+1)
	if s.host != nil {
		conns = append(conns, s.host)
	}
	for _, p := range s.participants {
		conns = append(conns, p.conn)
	}
	Broadcast(conns, msg)
}
