package auth

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"comanda/internal/models"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const issuer = "comanda"

// Login kinds, as sent by the client
const (
	KindWaiter = "waiter"
	KindAdmin  = "admin"
)

// Principal is the identity resolved from a session token. Role always comes
// from the database, never from anything the client sent.
type Principal struct {
	UserID    uint            `json:"id"`
	Name      string          `json:"name"`
	Role      models.UserRole `json:"role"`
	SessionID uint            `json:"-"`
}

// HasRole reports whether p holds any of roles
func (p Principal) HasRole(roles ...models.UserRole) bool {
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

// LoginResult is returned by a successful login
type LoginResult struct {
	Token     string             `json:"token"`
	User      models.UserSummary `json:"user"`
	ExpiresAt time.Time          `json:"expiresAt"`
}

// LoginRecorder receives login outcomes
type LoginRecorder interface {
	RecordLogin(kind string, success bool)
}

// Service issues and resolves sessions
type Service struct {
	db       *gorm.DB
	secret   []byte
	ttl      time.Duration
	recorder LoginRecorder
	logger   *logrus.Entry
	now      func() time.Time
}

// NewService creates an auth service. recorder may be nil.
func NewService(db *gorm.DB, secret string, ttl time.Duration, logger *logrus.Logger, recorder LoginRecorder) *Service {
	return &Service{
		db:       db,
		secret:   []byte(secret),
		ttl:      ttl,
		recorder: recorder,
		logger:   logger.WithField("component", "auth"),
		now:      time.Now,
	}
}

// LoginWaiter starts a session for an active waiter, matched by exact name
func (s *Service) LoginWaiter(ctx context.Context, name string) (*LoginResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", models.ErrValidation)
	}

	var user models.User
	err := s.db.Where("name = ? AND role = ? AND status = ?", name, models.RoleWaiter, models.UserActive).
		First(&user).Error
	if err != nil {
		s.record(KindWaiter, false)
		if gorm.IsRecordNotFoundError(err) {
			s.logger.WithField("name", name).Warn("waiter login rejected")
			return nil, fmt.Errorf("%w: waiter not found or inactive", models.ErrAuth)
		}
		return nil, fmt.Errorf("failed to look up waiter: %w", err)
	}

	return s.startSession(&user, KindWaiter)
}

// dummyHash keeps the cost of a login with an unknown email close to one with
// a known email.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("comanda"), bcrypt.DefaultCost)

// LoginAdmin starts a session for an active admin after checking the password
func (s *Service) LoginAdmin(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", models.ErrValidation)
	}

	var user models.User
	err := s.db.Where("email = ? AND role = ?", email, models.RoleAdmin).First(&user).Error
	if err != nil && !gorm.IsRecordNotFoundError(err) {
		return nil, fmt.Errorf("failed to look up admin: %w", err)
	}

	hash := []byte(user.Password)
	if err != nil || len(hash) == 0 {
		hash = dummyHash
	}
	matched := bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil

	if err != nil || !matched || !user.IsActive() {
		s.record(KindAdmin, false)
		s.logger.WithField("email", email).Warn("admin login rejected")
		return nil, fmt.Errorf("%w: invalid credentials", models.ErrAuth)
	}

	return s.startSession(&user, KindAdmin)
}

func (s *Service) startSession(user *models.User, kind string) (*LoginResult, error) {
	now := s.now()
	expires := now.Add(s.ttl)

	token, err := s.sign(user.ID, now, expires)
	if err != nil {
		return nil, err
	}

	session := models.UserSession{
		UserID:    user.ID,
		Token:     token,
		IsActive:  true,
		ExpiresAt: expires,
	}
	if err := s.db.Create(&session).Error; err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.record(kind, true)
	s.logger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"role":    user.Role,
	}).Info("user logged in")

	return &LoginResult{Token: token, User: user.Summary(), ExpiresAt: expires}, nil
}

func (s *Service) sign(userID uint, issuedAt, expires time.Time) (string, error) {
	claims := jwt.StandardClaims{
		Id:        uuid.NewString(),
		Subject:   strconv.FormatUint(uint64(userID), 10),
		Issuer:    issuer,
		IssuedAt:  issuedAt.Unix(),
		ExpiresAt: expires.Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return token, nil
}

// Authenticate resolves a token to its principal. The token must carry a valid
// signature, match an active unexpired session, and belong to an active user.
func (s *Service) Authenticate(ctx context.Context, token string) (*Principal, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: missing session token", models.ErrAuth)
	}

	claims := &jwt.StandardClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid || claims.Issuer != issuer {
		return nil, fmt.Errorf("%w: invalid session token", models.ErrAuth)
	}

	var session models.UserSession
	err = s.db.Where("token = ? AND is_active = ?", token, true).First(&session).Error
	if err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, fmt.Errorf("%w: session is not active", models.ErrAuth)
		}
		return nil, fmt.Errorf("failed to look up session: %w", err)
	}
	if !session.ExpiresAt.After(s.now()) {
		return nil, fmt.Errorf("%w: session expired", models.ErrAuth)
	}
	if claims.Subject != strconv.FormatUint(uint64(session.UserID), 10) {
		return nil, fmt.Errorf("%w: invalid session token", models.ErrAuth)
	}

	var user models.User
	if err := s.db.First(&user, session.UserID).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, fmt.Errorf("%w: user no longer exists", models.ErrAuth)
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if !user.IsActive() {
		return nil, fmt.Errorf("%w: user is not active", models.ErrAuth)
	}

	return &Principal{UserID: user.ID, Name: user.Name, Role: user.Role, SessionID: session.ID}, nil
}

// Logout deactivates the session holding token. Unknown or already closed
// sessions are not an error.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	err := s.db.Model(&models.UserSession{}).
		Where("token = ? AND is_active = ?", token, true).
		Updates(map[string]interface{}{"is_active": false, "logout_time": s.now()}).Error
	if err != nil {
		return fmt.Errorf("failed to close session: %w", err)
	}
	return nil
}

func (s *Service) record(kind string, success bool) {
	if s.recorder != nil {
		s.recorder.RecordLogin(kind, success)
	}
}

// HashPassword hashes an admin password with bcrypt
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// AdminAccount builds the admin user to seed from configured credentials
func AdminAccount(name, email, password string) (*models.User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	return &models.User{
		Name:     name,
		Email:    &email,
		Password: hash,
		Role:     models.RoleAdmin,
		Status:   models.UserActive,
	}, nil
}
