package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/open-apime/zapdash/internal/storage"
	"github.com/open-apime/zapdash/internal/storage/model"
)

const minPasswordLength = 6

var (
	ErrInvalidCredentials = errors.New("e-mail ou senha inválidos")
	ErrEmailTaken         = errors.New("e-mail já cadastrado")
	ErrInvalidToken       = errors.New("token inválido")
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Claims são as claims do token de sessão do painel. O jti identifica a
// sessão.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Session é o usuário autenticado extraído do token.
type Session struct {
	UserID    string
	Email     string
	Role      model.Role
	SessionID string
}

type Service struct {
	users    storage.UserRepository
	profiles storage.ProfileRepository
	secret   []byte
	ttl      time.Duration
	log      *zap.Logger
	now      func() time.Time
}

func NewService(users storage.UserRepository, profiles storage.ProfileRepository, secret string, ttl time.Duration, log *zap.Logger) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{
		users:    users,
		profiles: profiles,
		secret:   []byte(secret),
		ttl:      ttl,
		log:      log.Named("auth"),
		now:      time.Now,
	}
}

func (s *Service) TTL() time.Duration {
	return s.ttl
}

func (s *Service) Register(ctx context.Context, email, password, confirm string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return model.User{}, &ValidationError{Field: "email", Message: "informe o e-mail."}
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return model.User{}, &ValidationError{Field: "email", Message: "e-mail inválido."}
	}
	if len(password) < minPasswordLength {
		return model.User{}, &ValidationError{Field: "password", Message: fmt.Sprintf("a senha deve ter ao menos %d caracteres.", minPasswordLength)}
	}
	if password != confirm {
		return model.User{}, &ValidationError{Field: "confirm", Message: "as senhas não coincidem."}
	}

	return s.createUser(ctx, email, password, model.RoleUser)
}

func (s *Service) createUser(ctx context.Context, email, password string, role model.Role) (model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return model.User{}, fmt.Errorf("auth: gerar hash: %w", err)
	}

	user, err := s.users.Create(ctx, model.User{Email: email, PasswordHash: string(hash)})
	if err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return model.User{}, ErrEmailTaken
		}
		return model.User{}, err
	}
	if _, err := s.profiles.Create(ctx, model.Profile{ID: user.ID, Role: role}); err != nil {
		return model.User{}, err
	}

	s.log.Info("usuário cadastrado", zap.String("user", user.ID), zap.String("role", string(role)))
	return user, nil
}

// Login confere a senha e emite o token de sessão.
func (s *Service) Login(ctx context.Context, email, password string) (string, Session, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", Session{}, ErrInvalidCredentials
		}
		return "", Session{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", Session{}, ErrInvalidCredentials
	}

	profile, err := s.profiles.Get(ctx, user.ID)
	if err != nil {
		return "", Session{}, err
	}

	session := Session{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      profile.Role,
		SessionID: uuid.New().String(),
	}
	token, err := s.sign(session)
	if err != nil {
		return "", Session{}, err
	}

	s.log.Info("login realizado", zap.String("user", user.ID), zap.String("session", session.SessionID))
	return token, session, nil
}

func (s *Service) sign(session Session) (string, error) {
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.UserID,
			ID:        session.SessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Email: session.Email,
		Role:  string(session.Role),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: assinar token: %w", err)
	}
	return signed, nil
}

func (s *Service) ParseToken(tokenString string) (Session, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("método de assinatura inesperado: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return Session{}, ErrInvalidToken
	}
	return Session{
		UserID:    claims.Subject,
		Email:     claims.Email,
		Role:      model.Role(claims.Role),
		SessionID: claims.ID,
	}, nil
}

// EnsureAdmin cria o administrador inicial ou promove o usuário existente.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil
	}

	user, err := s.users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		if _, err := s.createUser(ctx, email, password, model.RoleAdmin); err != nil {
			return fmt.Errorf("auth: criar admin inicial: %w", err)
		}
		s.log.Info("admin inicial criado", zap.String("email", email))
		return nil
	case err != nil:
		return err
	}

	profile, err := s.profiles.Get(ctx, user.ID)
	if errors.Is(err, storage.ErrNotFound) {
		_, err = s.profiles.Create(ctx, model.Profile{ID: user.ID, Role: model.RoleAdmin})
		return err
	}
	if err != nil {
		return err
	}
	if profile.Role == model.RoleAdmin {
		return nil
	}
	if err := s.profiles.UpdateRole(ctx, user.ID, model.RoleAdmin); err != nil {
		return err
	}
	s.log.Info("usuário promovido a admin", zap.String("email", email))
	return nil
}
