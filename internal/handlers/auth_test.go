package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/cliptide/backend/internal/auth"
	"github.com/cliptide/backend/internal/models"
)

func newTestManager() *auth.Manager {
	return auth.NewManager(time.Minute, time.Hour, auth.NewInMemorySessionStore())
}

func TestAuthHandlerSignUp(t *testing.T) {
	store := newInMemoryUserStore()
	handler := AuthHandler{Users: store, Sessions: newTestManager()}

	body, err := json.Marshal(signUpRequest{Email: "test@example.com", Password: "supersafe"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/signup", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.SignUp(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d got %d", http.StatusCreated, rec.Code)
	}

	var resp authResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if resp.Tokens.AccessToken == "" || resp.Tokens.RefreshToken == "" {
		t.Fatalf("expected tokens to be issued, got %+v", resp.Tokens)
	}

	stored, err := store.FindByEmail(context.Background(), "test@example.com")
	if err != nil {
		t.Fatalf("expected user to be stored: %v", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("supersafe")) != nil {
		t.Fatal("stored password is not hashed")
	}
}

func TestAuthHandlerSignUpValidation(t *testing.T) {
	cases := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"badJSON", "{", http.StatusBadRequest},
		{"missingFields", `{"email":"","password":""}`, http.StatusBadRequest},
		{"invalidEmail", `{"email":"not-an-email","password":"supersafe"}`, http.StatusBadRequest},
		{"shortPassword", `{"email":"a@example.com","password":"short"}`, http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := AuthHandler{Users: newInMemoryUserStore(), Sessions: newTestManager()}
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/signup", bytes.NewBufferString(tc.body))
			rec := httptest.NewRecorder()

			handler.SignUp(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("expected status %d got %d", tc.wantStatus, rec.Code)
			}
		})
	}
}

func TestAuthHandlerLogin(t *testing.T) {
	store := newInMemoryUserStore()
	handler := AuthHandler{Users: store, Sessions: newTestManager()}

	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	store.users["user-1"] = models.User{ID: "user-1", Email: "login@example.com", Password: string(hashed)}

	body, err := json.Marshal(loginRequest{Email: "login@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}

	var resp authResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if resp.Tokens.AccessToken == "" || resp.Tokens.RefreshToken == "" {
		t.Fatalf("expected tokens to be issued, got %+v", resp.Tokens)
	}
}

func TestAuthHandlerLoginBadPassword(t *testing.T) {
	store := newInMemoryUserStore()
	handler := AuthHandler{Users: store, Sessions: newTestManager()}

	hashed, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	store.users["user-1"] = models.User{ID: "user-1", Email: "login@example.com", Password: string(hashed)}

	body := []byte(`{"email":"login@example.com","password":"wrong"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Login(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestAuthHandlerRefresh(t *testing.T) {
	manager := newTestManager()
	tokens, err := manager.Issue(context.Background(), "user-123")
	if err != nil {
		t.Fatalf("issue tokens: %v", err)
	}

	handler := AuthHandler{Sessions: manager}

	body, err := json.Marshal(refreshRequest{RefreshToken: tokens.RefreshToken})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Refresh(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}

	var resp authResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if resp.Tokens.RefreshToken == tokens.RefreshToken {
		t.Fatal("expected a new refresh token to be issued")
	}
}
