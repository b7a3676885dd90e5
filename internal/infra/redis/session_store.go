package redis

import (
	"context"
	"sync"
	"time"

	"live-quiz-service/internal/app"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const opTimeout = 2 * time.Second

// Both scripts act only when the key still holds this instance's session id.
var (
	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)
	refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Sessions themselves stay in the local map; Redis holds one reservation key
// per live join code so instances sharing Redis never hand out the same code.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Session),
	}
}

// Reserve claims code in Redis with SET NX. When Redis cannot be reached the
// code is accepted on local uniqueness alone.
func (s *SessionStore) Reserve(ctx context.Context, code, sessionID string) bool {
	if _, taken := s.Get(code); taken {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	reserved, err := s.client.SetNX(ctx, s.key(code), sessionID, s.ttl).Result()
	if err != nil {
		log.Warn().Err(err).Str("code", code).Msg("reserve join code")
		return true
	}
	return reserved
}

func (s *SessionStore) Release(ctx context.Context, code, sessionID string) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if err := releaseScript.Run(ctx, s.client, []string{s.key(code)}, sessionID).Err(); err != nil {
		log.Warn().Err(err).Str("code", code).Msg("release join code")
	}
}

func (s *SessionStore) Insert(session *app.Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.sessions[session.Code()]; taken {
		return false
	}
	s.sessions[session.Code()] = session
	return true
}

func (s *SessionStore) Get(code string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[code]
	return session, ok
}

func (s *SessionStore) Delete(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, code)
}

// KeepAlive extends the reservation of every live session at a third of the
// TTL until ctx is done, so long-running sessions keep their codes.
func (s *SessionStore) KeepAlive(ctx context.Context) error {
	if s.ttl <= 0 {
		return nil
	}
	ticker := time.NewTicker(s.ttl / 3)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.refresh(ctx)
		}
	}
}

func (s *SessionStore) refresh(ctx context.Context) {
	s.mu.RLock()
	live := make(map[string]string, len(s.sessions))
	for code, session := range s.sessions {
		live[code] = session.ID()
	}
	s.mu.RUnlock()

	for code, id := range live {
		opCtx, cancel := context.WithTimeout(ctx, opTimeout)
		err := refreshScript.Run(opCtx, s.client, []string{s.key(code)}, id, s.ttl.Milliseconds()).Err()
		cancel()
		if err != nil {
			log.Warn().Err(err).Str("code", code).Msg("refresh join code")
		}
	}
}

func (s *SessionStore) key(code string) string {
	return "quiz:session:" + code
}
