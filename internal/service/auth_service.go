package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/clock"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/models"
	"github.com/vogiaan1904/ticketbottle-inventory/pkg/logger"
)

type AuthConfig struct {
	Secret string
	Issuer string
}

type identityClaims struct {
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
	jwt.RegisteredClaims
}

type authService struct {
	conf  AuthConfig
	clock clock.Clock
	l     logger.Logger
}

func NewAuthService(conf AuthConfig, c clock.Clock, l logger.Logger) AuthService {
	return &authService{
		conf:  conf,
		clock: c,
		l:     l,
	}
}

func (s *authService) Authenticate(ctx context.Context, token string) (models.Identity, error) {
	if token == "" {
		return models.Identity{}, ErrUnauthenticated
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock.Now),
	}
	if s.conf.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.conf.Issuer))
	}

	var claims identityClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return []byte(s.conf.Secret), nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return models.Identity{}, ErrTokenExpired
		}
		s.l.Debugf(ctx, "service.authService.Authenticate: %v", err)
		return models.Identity{}, ErrInvalidToken
	}

	if claims.Subject == "" {
		return models.Identity{}, ErrInvalidToken
	}

	role := claims.Role
	switch role {
	case models.RoleUser, models.RoleOrganizer, models.RoleAdmin:
	case "":
		role = models.RoleUser
	default:
		return models.Identity{}, ErrInvalidToken
	}

	return models.Identity{
		UserID: claims.Subject,
		Name:   claims.Name,
		Email:  claims.Email,
		Role:   role,
	}, nil
}

func (s *authService) IssueToken(ctx context.Context, id models.Identity, ttl time.Duration) (string, error) {
	now := s.clock.Now()
	claims := identityClaims{
		Name:  id.Name,
		Email: id.Email,
		Role:  id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			Issuer:    s.conf.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenStr, err := token.SignedString([]byte(s.conf.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenStr, nil
}
