package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"docqa/internal/gateway"
	"docqa/internal/pkg/logger"
	"docqa/internal/session"
)

const authModule = "auth"

// ErrAuthFailure means the service rejected the credentials.
var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrAuthFailure     = errors.New("authentication failed")
	ErrUnauthenticated = errors.New("not logged in")
)

type AuthGateway interface {
	Login(ctx context.Context, username, password string) (*gateway.TokenResponse, error)
	Register(ctx context.Context, username, password string) (*gateway.TokenResponse, error)
}

type AuthService struct {
	gw      AuthGateway
	session *session.Store
	log     logger.ILogger
}

type LoginInput struct {
	Username string
	Password string
}

type RegisterInput struct {
	Username string
	Password string
}

func NewAuthService(gw AuthGateway, store *session.Store, log logger.ILogger) *AuthService {
	if log == nil {
		log = logger.Nop()
	}
	return &AuthService{gw: gw, session: store, log: log}
}

// Login exchanges credentials for a token and records the session.
func (s *AuthService) Login(ctx context.Context, input LoginInput) error {
	username := strings.TrimSpace(input.Username)
	if username == "" || input.Password == "" {
		return ErrInvalidInput
	}

	resp, err := s.gw.Login(ctx, username, input.Password)
	if err != nil {
		return s.classify("login", username, err)
	}
	return s.start(ctx, resp.AccessToken, username)
}

// Register creates the account and signs in with the token it returns.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) error {
	username := strings.TrimSpace(input.Username)
	if username == "" || input.Password == "" {
		return ErrInvalidInput
	}

	resp, err := s.gw.Register(ctx, username, input.Password)
	if err != nil {
		return s.classify("register", username, err)
	}
	return s.start(ctx, resp.AccessToken, username)
}

func (s *AuthService) Logout(ctx context.Context) error {
	return s.session.Logout(ctx)
}

func (s *AuthService) start(ctx context.Context, token, username string) error {
	if err := s.session.Login(ctx, token, username); err != nil {
		return fmt.Errorf("start session failed: %w", err)
	}
	return nil
}

// classify marks credential rejections as ErrAuthFailure and leaves other
// gateway failures as they are.
func (s *AuthService) classify(op, username string, err error) error {
	switch gateway.StatusOf(err) {
	case http.StatusBadRequest, http.StatusUnauthorized:
		s.log.Warn(authModule, op+" rejected", map[string]interface{}{"username": username})
		return fmt.Errorf("%w: %w", ErrAuthFailure, err)
	default:
		s.log.Error(authModule, op+" failed", map[string]interface{}{"username": username, "error": err})
		return err
	}
}
