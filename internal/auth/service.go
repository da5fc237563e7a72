// internal/auth/service.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"exam-quiz/internal/models"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidInput       = errors.New("invalid input")
)

const (
	minPasswordLength = 8
	maxUsernameLength = 64
)

// SessionStore keeps the server side of issued tokens. GetSession returns
// nil, nil when the session does not exist or has expired.
type SessionStore interface {
	SaveSession(ctx context.Context, session *models.Session, ttl time.Duration) error
	GetSession(ctx context.Context, id string) (*models.Session, error)
	DeleteSession(ctx context.Context, id string) error
}

type Service struct {
	repo       *Repository
	sessions   SessionStore
	jwtSecret  []byte
	sessionTTL time.Duration
	now        func() time.Time
}

func NewService(repo *Repository, sessions SessionStore, jwtSecret string, sessionTTL time.Duration) *Service {
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	return &Service{
		repo:       repo,
		sessions:   sessions,
		jwtSecret:  []byte(jwtSecret),
		sessionTTL: sessionTTL,
		now:        time.Now,
	}
}

// Register creates a local account. The username is the account's subject id.
func (s *Service) Register(ctx context.Context, username, name, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	name = strings.TrimSpace(name)
	if username == "" || len(username) > maxUsernameLength {
		return nil, fmt.Errorf("%w: username must be 1-%d characters", ErrInvalidInput, maxUsernameLength)
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}
	if name == "" {
		name = username
	}

	if _, err := s.repo.GetUserByProviderSubject(ctx, models.ProviderLocal, username); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Provider:     models.ProviderLocal,
		SubjectID:    username,
		Name:         name,
		Role:         models.RoleUser,
		PasswordHash: string(hashedPassword),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		log.Printf("Error creating user %s: %v", username, err)
		return nil, err
	}
	log.Printf("Registered local user %d (%s)", user.ID, username)
	return user, nil
}

// Login checks a local password and opens a new session.
func (s *Service) Login(ctx context.Context, username, password string) (string, *models.User, error) {
	user, err := s.repo.GetUserByProviderSubject(ctx, models.ProviderLocal, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	user, err = s.SignIn(ctx, user.Provider, user.SubjectID, "")
	if err != nil {
		return "", nil, err
	}

	token, _, err := s.IssueSession(ctx, user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// SignIn maps an authenticated identity to its user row, creating the row on
// first login and refreshing the name and last login time afterwards.
func (s *Service) SignIn(ctx context.Context, provider, subject, name string) (*models.User, error) {
	if provider == "" || subject == "" {
		return nil, ErrUnauthorized
	}
	now := s.now().UTC()

	user, err := s.repo.GetUserByProviderSubject(ctx, provider, subject)
	if errors.Is(err, ErrUserNotFound) {
		if name == "" {
			name = subject
		}
		user = &models.User{
			Provider:    provider,
			SubjectID:   subject,
			Name:        name,
			Role:        models.RoleUser,
			LastLoginAt: &now,
		}
		if err := s.repo.CreateUser(ctx, user); err != nil {
			return nil, err
		}
		log.Printf("Created user %d for %s/%s", user.ID, provider, subject)
		return user, nil
	}
	if err != nil {
		return nil, err
	}

	if err := s.repo.TouchLogin(ctx, user, name, now); err != nil {
		return nil, err
	}
	if name != "" {
		user.Name = name
	}
	user.LastLoginAt = &now
	return user, nil
}

// IssueSession signs a token for user and records its session.
func (s *Service) IssueSession(ctx context.Context, user *models.User) (string, *models.Session, error) {
	expiresAt := s.now().Add(s.sessionTTL)
	session := &models.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		SubjectID: user.SubjectID,
		Role:      user.Role,
		ExpiresAt: expiresAt.UTC(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"sub":     user.SubjectID,
		"role":    user.Role,
		"jti":     session.ID,
		"exp":     expiresAt.Unix(),
	})
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", nil, err
	}

	if err := s.sessions.SaveSession(ctx, session, s.sessionTTL); err != nil {
		log.Printf("Error saving session for user %d: %v", user.ID, err)
		return "", nil, err
	}
	return tokenString, session, nil
}

// ParseSession validates the token signature and expiry and requires its
// session to still be present in the store.
func (s *Service) ParseSession(ctx context.Context, tokenString string) (*models.Session, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrUnauthorized
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrUnauthorized
	}
	userID, ok := claims["user_id"].(float64)
	if !ok || userID <= 0 {
		return nil, ErrUnauthorized
	}
	jti, ok := claims["jti"].(string)
	if !ok || jti == "" {
		return nil, ErrUnauthorized
	}

	session, err := s.sessions.GetSession(ctx, jti)
	if err != nil {
		log.Printf("Error loading session %s: %v", jti, err)
		return nil, err
	}
	if session == nil || session.UserID != uint(userID) {
		return nil, ErrUnauthorized
	}
	return session, nil
}

// Authenticate resolves a raw token to the caller's user id.
func (s *Service) Authenticate(ctx context.Context, tokenString string) (uint, error) {
	session, err := s.ParseSession(ctx, tokenString)
	if err != nil {
		return 0, err
	}
	return session.UserID, nil
}

func (s *Service) Logout(ctx context.Context, sessionID string) error {
	return s.sessions.DeleteSession(ctx, sessionID)
}

func (s *Service) GetProfile(ctx context.Context, userID uint) (*models.UserProfile, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile := user.ToProfile()
	return &profile, nil
}
