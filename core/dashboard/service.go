package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/nutridash/core"
	"github.com/trezcool/nutridash/core/timeframe"
)

// Service is the registry of the open dashboard sessions.
type Service struct {
	repo     Repository
	resolver *timeframe.Resolver
	logger   core.Logger
	conf     *core.Config
	nowFunc  func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewService(repo Repository, resolver *timeframe.Resolver, logger core.Logger, conf *core.Config) *Service {
	return &Service{
		repo:     repo,
		resolver: resolver,
		logger:   logger,
		conf:     conf,
		nowFunc:  time.Now,
		sessions: make(map[string]*Session),
	}
}

func (svc *Service) newSession(districtID string) *Session {
	return &Session{
		ID:           uuid.NewString(),
		DistrictID:   core.CleanString(districtID),
		repo:         svc.repo,
		resolver:     svc.resolver,
		logger:       svc.logger,
		fetchTimeout: svc.conf.Dashboard.FetchTimeout,
		loc:          svc.conf.Calendar.Location(),
		nowFunc:      svc.nowFunc,
		alive:        true,
		lastUsed:     svc.nowFunc(),
	}
}

// Open registers a new session and runs its first refresh cycle.
// The session is returned even when that cycle fails: its state then carries the error.
func (svc *Service) Open(ctx context.Context, ns NewSession) (*Session, error) {
	svc.Sweep()

	sess := svc.newSession(ns.DistrictID)
	svc.mu.Lock()
	svc.sessions[sess.ID] = sess
	svc.mu.Unlock()

	return sess, sess.SetSelection(ctx, ns.Selection)
}

func (svc *Service) Get(id string) (*Session, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	sess, ok := svc.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (svc *Service) Close(id string) error {
	svc.mu.Lock()
	sess, ok := svc.sessions[id]
	delete(svc.sessions, id)
	svc.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	sess.Close()
	return nil
}

// CloseAll tears every session down.
func (svc *Service) CloseAll() {
	svc.mu.Lock()
	sessions := svc.sessions
	svc.sessions = make(map[string]*Session)
	svc.mu.Unlock()

	for _, sess := range sessions {
		sess.Close()
	}
}

// Sweep closes the sessions idle for longer than the session TTL and returns how many.
func (svc *Service) Sweep() int {
	ttl := svc.conf.Dashboard.SessionTTL
	if ttl <= 0 {
		return 0
	}
	deadline := svc.nowFunc().Add(-ttl)

	svc.mu.Lock()
	var expired []*Session
	for id, sess := range svc.sessions {
		if sess.idleSince().Before(deadline) {
			expired = append(expired, sess)
			delete(svc.sessions, id)
		}
	}
	svc.mu.Unlock()

	for _, sess := range expired {
		sess.Close()
	}
	if len(expired) > 0 {
		svc.logger.Debug("expired dashboard sessions", map[string]interface{}{"count": len(expired)})
	}
	return len(expired)
}
