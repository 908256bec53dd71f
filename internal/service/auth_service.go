package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/boddenberg/sales-flow-bfa-go/internal/domain"
)

var authTracer = otel.Tracer("service/auth")

const tokenIssuer = "sales-flow-bfa"

// AuthService authenticates the operator allowed to change pipeline data and
// issues short-lived access tokens.
type AuthService struct {
	operatorUser string
	passwordHash []byte
	jwtSecret    []byte
	accessTTL    time.Duration
	logger       *zap.Logger
	clock        Clock
}

// NewAuthService creates the auth service. An empty password hash disables
// login.
func NewAuthService(operatorUser, passwordHash, jwtSecret string, accessTTL time.Duration, logger *zap.Logger, clock Clock) *AuthService {
	return &AuthService{
		operatorUser: operatorUser,
		passwordHash: []byte(passwordHash),
		jwtSecret:    []byte(jwtSecret),
		accessTTL:    accessTTL,
		logger:       logger,
		clock:        clock.orDefault(),
	}
}

// ============================================================
// Login: POST /v1/auth/login
// ============================================================

func (s *AuthService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	_, span := authTracer.Start(ctx, "AuthService.Login")
	defer span.End()

	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return nil, &domain.ErrValidation{Field: "username", Message: "Informe usuário e senha"}
	}
	if len(s.passwordHash) == 0 {
		return nil, &domain.ErrUnauthorized{Message: "Login de operador desabilitado"}
	}

	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(s.operatorUser)) == 1
	passErr := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(req.Password))
	if !userOK || passErr != nil {
		s.logger.Warn("login: invalid credentials", zap.String("username", req.Username))
		return nil, &domain.ErrUnauthorized{Message: "Usuário ou senha inválidos"}
	}

	token, err := s.signAccessToken(req.Username)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	s.logger.Info("operator logged in", zap.String("username", req.Username))
	return &domain.LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.accessTTL.Seconds()),
	}, nil
}

// ============================================================
// ValidateAccessToken: used by the JWT middleware
// ============================================================

// JWTClaims represents the custom claims in access tokens.
type JWTClaims struct {
	Sub  string `json:"sub"`
	Type string `json:"type"`
	jwt.RegisteredClaims
}

func (s *AuthService) ValidateAccessToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.clock), jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "Token inválido ou expirado"}
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, &domain.ErrUnauthorized{Message: "Token inválido"}
	}

	if claims.Type != "access" {
		return nil, &domain.ErrUnauthorized{Message: "Tipo de token inválido"}
	}

	return claims, nil
}

func (s *AuthService) signAccessToken(subject string) (string, error) {
	now := s.clock()
	claims := JWTClaims{
		Sub:  subject,
		Type: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			Issuer:    tokenIssuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}
