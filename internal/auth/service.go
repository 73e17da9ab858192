package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/picshare/picshare/internal/config"
	"golang.org/x/crypto/bcrypt"
)

var emailPattern = regexp.MustCompile(`^[\w.+-]+@[\w.-]+\.[a-zA-Z]{2,}$`)

// codeStore abstracts the persistence layer.
type codeStore interface {
	UpsertUser(ctx context.Context, email string) (User, error)
	StoreLoginCode(ctx context.Context, code LoginCode) error
	GetLoginCode(ctx context.Context, email string) (LoginCode, error)
	DeleteLoginCode(ctx context.Context, email string) error
}

// CodeSender delivers a verification code out of band.
type CodeSender interface {
	SendCode(email, code string) error
}

// Service implements email-code sign-in and token validation.
type Service struct {
	store    codeStore
	sender   CodeSender
	cfg      config.AuthConfig
	nowFunc  func() time.Time
	idIssuer string
	parser   *jwt.Parser
}

// NewService creates a Service with dependencies.
func NewService(store codeStore, sender CodeSender, cfg config.AuthConfig) *Service {
	return &Service{
		store:    store,
		sender:   sender,
		cfg:      cfg,
		nowFunc:  time.Now,
		idIssuer: "picshare",
		parser:   jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name})),
	}
}

// UserClaims describes the validated identity extracted from an access token.
type UserClaims struct {
	UserID    uuid.UUID
	Email     string
	ExpiresAt time.Time
}

// RequestCode generates a sign-in code, stores its hash and mails it.
func (s *Service) RequestCode(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if !emailPattern.MatchString(email) {
		return ErrInvalidEmail
	}

	code, err := randomDigits(6)
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash code: %w", err)
	}

	record := LoginCode{
		Email:     email,
		CodeHash:  string(hash),
		ExpiresAt: s.nowFunc().Add(s.cfg.CodeTTL),
	}
	if err := s.store.StoreLoginCode(ctx, record); err != nil {
		return err
	}

	if err := s.sender.SendCode(email, code); err != nil {
		return fmt.Errorf("%w: %v", ErrMailDelivery, err)
	}
	return nil
}

// VerifyCode checks the submitted code, creates the user on first sign-in and
// issues an access token.
func (s *Service) VerifyCode(ctx context.Context, email, code string) (AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !emailPattern.MatchString(email) {
		return AuthResult{}, ErrInvalidEmail
	}

	record, err := s.store.GetLoginCode(ctx, email)
	if err != nil {
		return AuthResult{}, err
	}

	if s.nowFunc().After(record.ExpiresAt) {
		_ = s.store.DeleteLoginCode(ctx, email)
		return AuthResult{}, ErrCodeExpired
	}

	if err := bcrypt.CompareHashAndPassword([]byte(record.CodeHash), []byte(code)); err != nil {
		return AuthResult{}, ErrInvalidCode
	}

	if err := s.store.DeleteLoginCode(ctx, email); err != nil {
		return AuthResult{}, err
	}

	user, err := s.store.UpsertUser(ctx, email)
	if err != nil {
		return AuthResult{}, err
	}

	token, expiresAt, err := s.generateAccessToken(user)
	if err != nil {
		return AuthResult{}, fmt.Errorf("generate access token: %w", err)
	}

	return AuthResult{User: user, AccessToken: token, ExpiresAt: expiresAt}, nil
}

// ValidateAccessToken verifies the token signature and extracts user claims.
func (s *Service) ValidateAccessToken(tokenString string) (UserClaims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return UserClaims{}, ErrUnauthorized
	}

	parsed, err := s.parser.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.TokenSecret), nil
	})
	if err != nil || !parsed.Valid {
		return UserClaims{}, ErrUnauthorized
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return UserClaims{}, ErrUnauthorized
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return UserClaims{}, ErrUnauthorized
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return UserClaims{}, ErrUnauthorized
	}

	email, _ := claims["email"].(string)

	expFloat, okExp := claims["exp"].(float64)
	if !okExp {
		return UserClaims{}, ErrUnauthorized
	}
	exp := time.Unix(int64(expFloat), 0)
	if exp.Before(s.nowFunc()) {
		return UserClaims{}, ErrUnauthorized
	}

	return UserClaims{UserID: userID, Email: email, ExpiresAt: exp}, nil
}

func (s *Service) generateAccessToken(user User) (string, time.Time, error) {
	now := s.nowFunc()
	expiresAt := now.Add(s.cfg.TokenTTL)
	claims := jwt.MapClaims{
		"sub":   user.ID.String(),
		"iss":   s.idIssuer,
		"aud":   "picshare-api",
		"iat":   now.Unix(),
		"exp":   expiresAt.Unix(),
		"email": user.Email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.TokenSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func randomDigits(length int) (string, error) {
	var sb strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		sb.WriteByte(byte('0' + n.Int64()))
	}
	return sb.String(), nil
}

// IsAuthError reports whether the error is a client-side auth failure.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrInvalidEmail) ||
		errors.Is(err, ErrInvalidCode) ||
		errors.Is(err, ErrCodeExpired) ||
		errors.Is(err, ErrUnauthorized)
}
