package app

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"live-quiz-service/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	maxCodeAttempts = 10
	releaseTimeout  = 2 * time.Second
)

// SessionRepository abstracts how live sessions are indexed by join code (in-memory, Redis, etc).
// Insert, Get and Delete only touch local state and are called under the
// registry lock. Reserve and Release may do network I/O and are never called
// with the registry lock held.
type SessionRepository interface {
	// Reserve claims code for sessionID beyond this process. It reports false
	// when the code is already taken.
	Reserve(ctx context.Context, code, sessionID string) bool
	// Release drops a reservation made by Reserve for the same sessionID.
	Release(ctx context.Context, code, sessionID string)
	// Insert stores the session under its code and reports false when the
	// code is already taken.
	Insert(session *Session) bool
	Get(code string) (*Session, bool)
	Delete(code string)
}

// QuizRepository loads stored quizzes (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// Options tunes the sessions a Registry creates.
type Options struct {
	TickInterval time.Duration
	NewCode      func() (string, error)
	NewID        func() string
}

type link struct {
	session       *Session
	participantID string
	host          bool
}

// Registry routes connections to sessions. It owns the connection links;
// removing a session always removes every link that pointed at it.
type Registry struct {
	sessions SessionRepository
	quizzes  QuizRepository
	opts     Options

	mu        sync.Mutex
	links     map[Conn]link
	bySession map[*Session]map[Conn]struct{}
}

// NewRegistry builds a registry. quizzes may be nil when no quiz library is configured.
func NewRegistry(sessions SessionRepository, quizzes QuizRepository, opts Options) *Registry {
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.NewCode == nil {
		opts.NewCode = GenerateCode
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Registry{
		sessions:  sessions,
		quizzes:   quizzes,
		opts:      opts,
		links:     make(map[Conn]link),
		bySession: make(map[*Session]map[Conn]struct{}),
	}
}

// Session looks up a live session by join code.
func (r *Registry) Session(code string) (*Session, bool) {
	return r.sessions.Get(strings.ToUpper(code))
}

// Handle decodes one inbound payload and applies it. Failures are reported to
// conn only.
func (r *Registry) Handle(ctx context.Context, conn Conn, raw []byte) {
	var msg domain.InboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		log.Debug().Err(err).Msg("decode inbound message")
		SendTo(conn, domain.NewError(domain.ErrMalformedMessage))
		return
	}
	if err := r.dispatch(ctx, conn, msg); err != nil {
		SendTo(conn, domain.NewError(err))
	}
}

func (r *Registry) dispatch(ctx context.Context, conn Conn, msg domain.InboundMessage) error {
	switch msg.Type {
	case domain.MsgJoin:
		_, err := r.Join(conn, msg.QuizCode, msg.Name)
		return err
	case domain.MsgAnswer:
		if msg.ChoiceIndex == nil {
			return domain.ErrMalformedMessage
		}
		return r.Answer(conn, msg.QuestionID, *msg.ChoiceIndex)
	case domain.MsgHostCreate:
		quiz := domain.Quiz{ID: msg.QuizID, Title: msg.Title, Questions: msg.Questions}
		_, err := r.Create(ctx, conn, quiz)
		return err
	case domain.MsgHostStart:
		session, err := r.hostSession(conn)
		if err != nil {
			return err
		}
		return session.start()
	case domain.MsgHostNext:
		session, err := r.hostSession(conn)
		if err != nil {
			return err
		}
		return session.advance()
	case domain.MsgHostEnd:
		return r.End(conn)
	default:
		return domain.ErrUnknownMessage
	}
}

// Create opens a new session hosted by conn. When quiz carries no questions
// but an id, the questions are loaded from the quiz library.
func (r *Registry) Create(ctx context.Context, host Conn, quiz domain.Quiz) (*Session, error) {
	quiz, err := r.resolveQuiz(ctx, quiz)
	if err != nil {
		return nil, err
	}
	if _, mapped := r.lookup(host); mapped {
		return nil, domain.ErrAlreadyInSession
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := r.opts.NewCode()
		if err != nil {
			return nil, err
		}
		id := r.opts.NewID()
		if !r.sessions.Reserve(ctx, code, id) {
			continue
		}

		session, err := r.insert(host, newSession(id, code, quiz, host, r.opts.TickInterval, r.opts.NewID))
		if err != nil || session == nil {
			r.sessions.Release(ctx, code, id)
			if err != nil {
				return nil, err
			}
			continue
		}
		log.Info().Str("code", session.code).Str("title", quiz.Title).Int("questions", len(quiz.Questions)).Msg("session created")
		return session, nil
	}
	return nil, domain.ErrCodeExhausted
}

// insert links a reserved candidate under the registry lock. A nil session
// with a nil error means the code collided locally.
func (r *Registry) insert(host Conn, candidate *Session) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, mapped := r.links[host]; mapped {
		return nil, domain.ErrAlreadyInSession
	}
	if !r.sessions.Insert(candidate) {
		return nil, nil
	}
	r.linkLocked(host, link{session: candidate, host: true})
	candidate.syncHost()
	return candidate, nil
}

func (r *Registry) resolveQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	if len(quiz.Questions) == 0 && quiz.ID != "" {
		if r.quizzes == nil {
			return domain.Quiz{}, domain.ErrQuizNotFound
		}
		stored, err := r.quizzes.GetQuiz(ctx, quiz.ID)
		if err != nil {
			if errors.Is(err, domain.ErrQuizNotFound) {
				return domain.Quiz{}, domain.ErrQuizNotFound
			}
			log.Warn().Err(err).Str("quiz", quiz.ID).Msg("load quiz")
			return domain.Quiz{}, domain.ErrQuizNotFound
		}
		if quiz.Title != "" {
			stored.Title = quiz.Title
		}
		quiz = stored
	}
	if err := quiz.Validate(); err != nil {
		return domain.Quiz{}, err
	}

	questions := make([]domain.Question, len(quiz.Questions))
	copy(questions, quiz.Questions)
	for i := range questions {
		if questions[i].ID == "" {
			questions[i].ID = r.opts.NewID()
		}
	}
	quiz.Questions = questions
	return quiz, nil
}

// Join adds conn as a participant of the session with the given code.
func (r *Registry) Join(conn Conn, code, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", domain.ErrInvalidName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, mapped := r.links[conn]; mapped {
		return "", domain.ErrAlreadyInSession
	}
	session, ok := r.sessions.Get(strings.ToUpper(strings.TrimSpace(code)))
	if !ok {
		return "", domain.ErrSessionNotFound
	}
	id, err := session.addParticipant(name, conn)
	if err != nil {
		return "", err
	}
	r.linkLocked(conn, link{session: session, participantID: id})
	return id, nil
}

// Answer records conn's choice for its session's open question.
func (r *Registry) Answer(conn Conn, questionID string, choice int) error {
	l, ok := r.lookup(conn)
	if !ok {
		return domain.ErrNotInSession
	}
	if l.host {
		return domain.ErrHostCannotAnswer
	}
	if choice < 0 || choice >= domain.ChoiceCount {
		return domain.ErrInvalidChoice
	}
	l.session.submitAnswer(l.participantID, questionID, choice)
	return nil
}

// End terminates the session hosted by conn and drops it from the registry.
func (r *Registry) End(conn Conn) error {
	r.mu.Lock()
	l, ok := r.links[conn]
	if !ok {
		r.mu.Unlock()
		return domain.ErrNotInSession
	}
	if !l.host {
		r.mu.Unlock()
		return domain.ErrNotHost
	}
	r.removeLocked(l.session)
	r.mu.Unlock()

	r.release(l.session)
	return nil
}

// Disconnect forgets conn. Losing the host tears the whole session down;
// losing a participant only drops that link.
func (r *Registry) Disconnect(conn Conn) {
	r.mu.Lock()
	l, ok := r.links[conn]
	if !ok {
		r.mu.Unlock()
		return
	}
	if !l.host {
		r.unlinkLocked(conn, l.session)
		r.mu.Unlock()
		return
	}
	log.Info().Str("code", l.session.code).Msg("host disconnected")
	r.removeLocked(l.session)
	r.mu.Unlock()

	r.release(l.session)
}

func (r *Registry) hostSession(conn Conn) (*Session, error) {
	l, ok := r.lookup(conn)
	if !ok {
		return nil, domain.ErrNotInSession
	}
	if !l.host {
		return nil, domain.ErrNotHost
	}
	return l.session, nil
}

func (r *Registry) lookup(conn Conn) (link, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.links[conn]
	return l, ok
}

func (r *Registry) linkLocked(conn Conn, l link) {
	r.links[conn] = l
	conns, ok := r.bySession[l.session]
	if !ok {
		conns = make(map[Conn]struct{})
		r.bySession[l.session] = conns
	}
	conns[conn] = struct{}{}
}

func (r *Registry) unlinkLocked(conn Conn, session *Session) {
	delete(r.links, conn)
	if conns, ok := r.bySession[session]; ok {
		delete(conns, conn)
	}
}

func (r *Registry) removeLocked(session *Session) {
	r.sessions.Delete(session.code)
	for conn := range r.bySession[session] {
		delete(r.links, conn)
	}
	delete(r.bySession, session)
	session.end()
	log.Info().Str("code", session.code).Msg("session removed")
}

func (r *Registry) release(session *Session) {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()
	r.sessions.Release(ctx, session.code, session.id)
}
