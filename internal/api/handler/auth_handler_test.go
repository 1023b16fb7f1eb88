package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/bookbound/library/internal/core/domain"
	"github.com/bookbound/library/internal/core/ports"
)

type stubAuthService struct {
	registerFn func(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error)
	loginFn    func(ctx context.Context, email, password string) (*ports.AuthResult, error)
}

func (s *stubAuthService) Register(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	return s.registerFn(ctx, in)
}

func (s *stubAuthService) Login(ctx context.Context, email, password string) (*ports.AuthResult, error) {
	return s.loginFn(ctx, email, password)
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func jsonContext(e *echo.Echo, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestAuthHandler_Register_Success(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
			if in.Email != "alice@example.com" || in.FirstName != "Alice" || in.Password != "password1" {
				t.Fatalf("unexpected input: %+v", in)
			}
			return &ports.AuthResult{
				AccessToken: "token123",
				User:        &domain.User{ID: 1, Email: in.Email, FirstName: in.FirstName, LastName: in.LastName, Role: domain.RoleUser, PasswordHash: "secret-hash"},
			}, nil
		},
	}
	handler := NewAuthHandler(stub)

	c, rec := jsonContext(e, http.MethodPost, "/auth/register",
		`{"email":"alice@example.com","first_name":"Alice","last_name":"Liddell","password":"password1"}`)

	if err := handler.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["access_token"] != "token123" || resp["token_type"] != "Bearer" {
		t.Fatalf("unexpected token fields: %+v", resp)
	}
	user, ok := resp["user"].(map[string]any)
	if !ok {
		t.Fatalf("expected user in response")
	}
	if user["email"] != "alice@example.com" || user["role"] != "USER" {
		t.Fatalf("unexpected user payload: %+v", user)
	}
	if strings.Contains(rec.Body.String(), "secret-hash") {
		t.Fatalf("password hash leaked: %s", rec.Body.String())
	}
}

func TestAuthHandler_Register_ServiceErrorsPassThrough(t *testing.T) {
	for _, want := range []error{domain.ErrEmailTaken, domain.ErrNoFreeCard} {
		e := newTestEcho()
		handler := NewAuthHandler(&stubAuthService{
			registerFn: func(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
				return nil, want
			},
		})

		c, _ := jsonContext(e, http.MethodPost, "/auth/register",
			`{"email":"bob@example.com","first_name":"Bob","last_name":"B","password":"password1"}`)

		if err := handler.Register(c); !errors.Is(err, want) {
			t.Fatalf("expected %v, got %v", want, err)
		}
	}
}

func TestAuthHandler_Register_InvalidPayload(t *testing.T) {
	tests := map[string]string{
		"not json":       "not-json",
		"missing fields": `{"email":"bob@example.com"}`,
		"bad email":      `{"email":"bob","first_name":"Bob","last_name":"B","password":"password1"}`,
		"short password": `{"email":"bob@example.com","first_name":"Bob","last_name":"B","password":"short"}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			e := newTestEcho()
			handler := NewAuthHandler(&stubAuthService{
				registerFn: func(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
					t.Fatalf("should not be called")
					return nil, nil
				},
			})

			c, _ := jsonContext(e, http.MethodPost, "/auth/register", body)

			if err := handler.Register(c); !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("expected invalid input, got %v", err)
			}
		})
	}
}

func TestAuthHandler_Register_ValidationMessageUsesJSONNames(t *testing.T) {
	e := newTestEcho()
	handler := NewAuthHandler(&stubAuthService{})

	c, _ := jsonContext(e, http.MethodPost, "/auth/register", `{"email":"bob@example.com","password":"password1"}`)

	err := handler.Register(c)
	if err == nil || !strings.Contains(err.Error(), "first_name is required") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAuthHandler_Login_Success(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, email, password string) (*ports.AuthResult, error) {
			if email != "alice@example.com" || password != "secret" {
				t.Fatalf("unexpected args: %s %s", email, password)
			}
			return &ports.AuthResult{AccessToken: "token123", User: &domain.User{ID: 1, Email: email, Role: domain.RoleAdmin}}, nil
		},
	}
	handler := NewAuthHandler(stub)

	c, rec := jsonContext(e, http.MethodPost, "/auth/login", `{"email":"alice@example.com","password":"secret"}`)

	if err := handler.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["access_token"] != "token123" {
		t.Fatalf("expected token, got %v", resp["access_token"])
	}
	user, ok := resp["user"].(map[string]any)
	if !ok || user["email"] != "alice@example.com" || user["role"] != "ADMIN" {
		t.Fatalf("unexpected user payload: %+v", user)
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	e := newTestEcho()
	handler := NewAuthHandler(&stubAuthService{
		loginFn: func(ctx context.Context, email, password string) (*ports.AuthResult, error) {
			return nil, domain.ErrInvalidCredentials
		},
	})

	c, _ := jsonContext(e, http.MethodPost, "/auth/login", `{"email":"alice@example.com","password":"bad"}`)

	if err := handler.Login(c); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
}

func TestAuthHandler_Login_InvalidPayload(t *testing.T) {
	e := newTestEcho()
	handler := NewAuthHandler(&stubAuthService{
		loginFn: func(ctx context.Context, email, password string) (*ports.AuthResult, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	})

	c, _ := jsonContext(e, http.MethodPost, "/auth/login", "{")

	if err := handler.Login(c); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
