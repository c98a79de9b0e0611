package services

import (
	"time"

	"chat-hub/auth"
	"chat-hub/domain"
	"chat-hub/domain/event"
	"chat-hub/errors"
	"chat-hub/repositories"
)

// UserProfile is the outward-facing view of an account. The password
// hash never leaves the service layer.
type UserProfile struct {
	ID          string
	UserName    string
	DisplayName string
	CreatedAt   time.Time
	LastLoginAt time.Time
}

// Session is what a successful register or login hands back to the
// transport: the profile plus a signed bearer token.
type Session struct {
	User  UserProfile
	Token string
}

type IAuthService interface {
	Register(userName, password, displayName string) (*Session, []event.DomainEvent, error)
	Login(userName, password string) (*Session, []event.DomainEvent, error)
	SetDisplayName(userID, displayName string) (*UserProfile, []event.DomainEvent, error)
	GetProfile(userID string) (*UserProfile, error)
}

type AuthService struct {
	users  repositories.IUserRepository
	tokens *auth.TokenIssuer
}

func NewAuthService(users repositories.IUserRepository, tokens *auth.TokenIssuer) IAuthService {
	return &AuthService{users: users, tokens: tokens}
}

func (s *AuthService) Register(userName, password, displayName string) (*Session, []event.DomainEvent, error) {
	// Cheap structural checks run before any hashing work.
	req := auth.RegisterRequest{UserName: userName, Password: password, DisplayName: displayName}
	if err := auth.ValidateRegister(req); err != nil {
		return nil, nil, err
	}

	user, err := domain.NewUser(userName, password, displayName)
	if err != nil {
		return nil, nil, err
	}

	if err := s.users.Add(user); err != nil {
		return nil, nil, err
	}

	token, err := s.tokens.Generate(user.ID, user.UserName)
	if err != nil {
		return nil, nil, errors.ErrTokenGeneration
	}

	profile := toProfile(user)
	return &Session{User: profile, Token: token}, user.FlushEvents(), nil
}

func (s *AuthService) Login(userName, password string) (*Session, []event.DomainEvent, error) {
	if err := auth.ValidateLogin(auth.LoginRequest{UserName: userName, Password: password}); err != nil {
		return nil, nil, errors.ErrInvalidCredentials
	}

	// One generic error for unknown user and wrong password, so the
	// endpoint cannot be used to enumerate accounts.
	user, err := s.users.GetByUserName(userName)
	if err != nil {
		return nil, nil, errors.ErrInvalidCredentials
	}
	if !user.VerifyPassword(password) {
		return nil, nil, errors.ErrInvalidCredentials
	}

	user.Login()
	if err := s.users.Update(user); err != nil {
		return nil, nil, err
	}

	token, err := s.tokens.Generate(user.ID, user.UserName)
	if err != nil {
		return nil, nil, errors.ErrTokenGeneration
	}

	profile := toProfile(user)
	return &Session{User: profile, Token: token}, user.FlushEvents(), nil
}

func (s *AuthService) SetDisplayName(userID, displayName string) (*UserProfile, []event.DomainEvent, error) {
	user, err := s.users.GetByID(userID)
	if err != nil {
		return nil, nil, err
	}
	if err := user.ChangeDisplayName(displayName); err != nil {
		return nil, nil, err
	}
	if err := s.users.Update(user); err != nil {
		return nil, nil, err
	}
	profile := toProfile(user)
	return &profile, user.FlushEvents(), nil
}

func (s *AuthService) GetProfile(userID string) (*UserProfile, error) {
	user, err := s.users.GetByID(userID)
	if err != nil {
		return nil, err
	}
	profile := toProfile(user)
	return &profile, nil
}

func toProfile(u *domain.User) UserProfile {
	return UserProfile{
		ID:          u.ID,
		UserName:    u.UserName,
		DisplayName: u.DisplayName,
		CreatedAt:   u.CreatedAt,
		LastLoginAt: u.LastLoginAt,
	}
}
