package users

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"tunedeck/internal/auth"
	"tunedeck/internal/models"
	"tunedeck/internal/store"
)

const minPasswordLength = 6

var (
	// ErrEmailTaken signals the email is already registered.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials indicates a login failure.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUnauthorized indicates an invalid or missing session.
	ErrUnauthorized = errors.New("not authenticated")
	// ErrWeakPassword rejects passwords below the minimum length.
	ErrWeakPassword = fmt.Errorf("password must be at least %d characters", minPasswordLength)
	// ErrInvalidEmail rejects malformed addresses.
	ErrInvalidEmail = errors.New("invalid email address")
)

// Store describes the persistence operations required by the user service.
type Store interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	UserByEmail(ctx context.Context, email string) (models.User, error)
	UserByID(ctx context.Context, id int64) (models.User, error)
}

// Session is an issued access token together with its owner.
type Session struct {
	Token string
	User  models.PublicUser
}

// Service exposes account workflows.
type Service interface {
	Signup(ctx context.Context, email, password, name string) (Session, error)
	Login(ctx context.Context, email, password string) (Session, error)
	Authenticate(ctx context.Context, token string) (models.PublicUser, error)
}

type service struct {
	store  Store
	tokens *auth.TokenManager
}

// New wires a Service backed by the provided Store.
func New(store Store, tokens *auth.TokenManager) Service {
	return &service{store: store, tokens: tokens}
}

func (s *service) Signup(ctx context.Context, email, password, name string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil || !strings.Contains(email, "@") {
		return Session{}, ErrInvalidEmail
	}

	// A taken email wins over a weak password. CreateUser still catches the race.
	switch _, err := s.store.UserByEmail(ctx, email); {
	case err == nil:
		return Session{}, ErrEmailTaken
	case !errors.Is(err, store.ErrUserNotFound):
		return Session{}, fmt.Errorf("lookup user: %w", err)
	}

	if len(password) < minPasswordLength {
		return Session{}, ErrWeakPassword
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return Session{}, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = email[:strings.Index(email, "@")]
	}

	user, err := s.store.CreateUser(ctx, models.User{Email: email, PasswordHash: hash, Name: name, Role: "user"})
	if err != nil {
		if errors.Is(err, store.ErrUserExists) {
			return Session{}, ErrEmailTaken
		}
		return Session{}, fmt.Errorf("create user: %w", err)
	}

	return s.issue(user)
}

func (s *service) Login(ctx context.Context, email, password string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}

	user, err := s.store.UserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			auth.BurnComparison(password)
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, fmt.Errorf("lookup user: %w", err)
	}

	if !auth.VerifyPassword(password, user.PasswordHash) {
		return Session{}, ErrInvalidCredentials
	}

	return s.issue(user)
}

func (s *service) Authenticate(ctx context.Context, token string) (models.PublicUser, error) {
	if err := ctx.Err(); err != nil {
		return models.PublicUser{}, err
	}
	if token == "" {
		return models.PublicUser{}, ErrUnauthorized
	}

	userID, err := s.tokens.Verify(token)
	if err != nil {
		return models.PublicUser{}, ErrUnauthorized
	}

	user, err := s.store.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return models.PublicUser{}, ErrUnauthorized
		}
		return models.PublicUser{}, fmt.Errorf("lookup user: %w", err)
	}
	return user.Public(), nil
}

func (s *service) issue(user models.User) (Session, error) {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, User: user.Public()}, nil
}
