package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/boddenberg/sales-flow-bfa-go/internal/domain"
	"github.com/boddenberg/sales-flow-bfa-go/internal/service"
)

const testSecret = "test-secret"

func newAuthService(t *testing.T, clock *fixedClock) *service.AuthService {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3nha"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	return service.NewAuthService("operador", string(hash), testSecret, 15*time.Minute, zap.NewNop(), clock.Now)
}

func TestLogin_IssuesValidToken(t *testing.T) {
	clock := &fixedClock{now: time.Now()}
	svc := newAuthService(t, clock)

	resp, err := svc.Login(context.Background(), &domain.LoginRequest{Username: "operador", Password: "s3nha"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.TokenType != "Bearer" || resp.ExpiresIn != 900 {
		t.Errorf("unexpected response %+v", resp)
	}

	claims, err := svc.ValidateAccessToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("token should validate: %v", err)
	}
	if claims.Sub != "operador" || claims.Type != "access" {
		t.Errorf("unexpected claims %+v", claims)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc := newAuthService(t, &fixedClock{now: time.Now()})

	for _, req := range []domain.LoginRequest{
		{Username: "operador", Password: "errada"},
		{Username: "outro", Password: "s3nha"},
	} {
		_, err := svc.Login(context.Background(), &req)
		var ua *domain.ErrUnauthorized
		if !errors.As(err, &ua) {
			t.Errorf("expected ErrUnauthorized for %s, got %v", req.Username, err)
		}
	}
}

func TestLogin_DisabledWithoutHash(t *testing.T) {
	svc := service.NewAuthService("operador", "", testSecret, time.Minute, zap.NewNop(), nil)

	_, err := svc.Login(context.Background(), &domain.LoginRequest{Username: "operador", Password: "x"})
	var ua *domain.ErrUnauthorized
	if !errors.As(err, &ua) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestValidateAccessToken_Expired(t *testing.T) {
	clock := &fixedClock{now: time.Now()}
	svc := newAuthService(t, clock)

	resp, err := svc.Login(context.Background(), &domain.LoginRequest{Username: "operador", Password: "s3nha"})
	if err != nil {
		t.Fatal(err)
	}

	clock.set(clock.Now().Add(16 * time.Minute))
	if _, err := svc.ValidateAccessToken(resp.AccessToken); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestValidateAccessToken_WrongSecret(t *testing.T) {
	clock := &fixedClock{now: time.Now()}
	issuer := newAuthService(t, clock)
	other := service.NewAuthService("operador", "", "another-secret", time.Minute, zap.NewNop(), clock.Now)

	resp, err := issuer.Login(context.Background(), &domain.LoginRequest{Username: "operador", Password: "s3nha"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := other.ValidateAccessToken(resp.AccessToken); err == nil {
		t.Fatal("expected token signed with another secret to be rejected")
	}
}
