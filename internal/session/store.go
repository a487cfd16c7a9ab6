// Package session owns the process-wide authentication state.
//
// A Store is created empty, restored once from credential storage at startup,
// and mutated only by Login and Logout. Reads always observe the latest write.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"docqa/internal/credential"
	"docqa/internal/model"
	"docqa/internal/pkg/jwtutil"
	"docqa/internal/pkg/logger"
)

const module = "session"

var (
	ErrEmptyToken    = errors.New("token is empty")
	ErrEmptyUsername = errors.New("username is empty")
)

type Store struct {
	backend credential.Store
	log     logger.ILogger
	now     func() time.Time

	mu       sync.RWMutex
	token    string
	identity *model.Identity
	restored bool
}

func NewStore(backend credential.Store, log logger.ILogger) *Store {
	if log == nil {
		log = logger.Nop()
	}
	return &Store{
		backend: backend,
		log:     log,
		now:     time.Now,
	}
}

// Restore loads persisted credentials. It runs at most once per Store, never
// touches the network and never fails: missing, unreadable, malformed or
// expired credentials all leave the session unauthenticated.
func (s *Store) Restore(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.restored {
		return
	}
	s.restored = true

	token, err := s.backend.Get(ctx, credential.KeyToken)
	if err != nil {
		s.logReadFailure(credential.KeyToken, err)
		return
	}
	rawUser, err := s.backend.Get(ctx, credential.KeyUser)
	if err != nil {
		s.logReadFailure(credential.KeyUser, err)
		return
	}

	var identity model.Identity
	if err := json.Unmarshal([]byte(rawUser), &identity); err != nil || strings.TrimSpace(identity.Username) == "" {
		s.log.Warn(module, "ignoring malformed persisted user", nil)
		return
	}
	if strings.TrimSpace(token) == "" {
		return
	}
	if jwtutil.ExpiredAt(token, s.now()) {
		s.log.Info(module, "persisted token expired", map[string]interface{}{"username": identity.Username})
		return
	}

	s.token = token
	s.identity = &identity
	s.log.Info(module, "session restored", map[string]interface{}{"username": identity.Username})
}

func (s *Store) logReadFailure(key string, err error) {
	if errors.Is(err, credential.ErrNotFound) {
		return
	}
	s.log.Warn(module, "read persisted credential failed", map[string]interface{}{"key": key, "error": err.Error()})
}

// Login replaces the in-memory session and persists it. The in-memory session
// is authenticated even if persisting fails; the error is still returned.
func (s *Store) Login(ctx context.Context, token, username string) error {
	token = strings.TrimSpace(token)
	username = strings.TrimSpace(username)
	if token == "" {
		return ErrEmptyToken
	}
	if username == "" {
		return ErrEmptyUsername
	}

	identity := model.Identity{Username: username}
	rawUser, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("encode identity failed: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.identity = &identity
	s.restored = true

	if err := s.backend.Set(ctx, credential.KeyToken, token); err != nil {
		return fmt.Errorf("persist token failed: %w", err)
	}
	if err := s.backend.Set(ctx, credential.KeyUser, string(rawUser)); err != nil {
		return fmt.Errorf("persist user failed: %w", err)
	}
	s.log.Info(module, "logged in", map[string]interface{}{"username": username})
	return nil
}

// Logout clears memory and storage. Calling it on a cleared session leaves
// the same cleared state.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	wasAuthenticated := s.token != ""
	s.token = ""
	s.identity = nil
	s.restored = true

	if err := s.backend.Delete(ctx, credential.KeyToken, credential.KeyUser); err != nil {
		return fmt.Errorf("clear persisted credentials failed: %w", err)
	}
	if wasAuthenticated {
		s.log.Info(module, "logged out", nil)
	}
	return nil
}

func (s *Store) Snapshot() model.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := model.Session{Token: s.token}
	if s.identity != nil {
		id := *s.identity
		out.Identity = &id
	}
	return out
}

func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Store) Authenticated() bool {
	return s.Token() != ""
}
