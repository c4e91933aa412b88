package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/ripplefeed/backend/internal/models"
)

const testJWTSecret = "test-secret"

func seedLocalUser(t *testing.T, repo *fakeUserRepo, username, email, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	user := &models.User{Username: username, Email: email, Password: string(hash)}
	if err := repo.CreateUser(user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func TestSignupIssuesToken(t *testing.T) {
	userRepo := newFakeUserRepo()
	handler := NewAuthHandler(userRepo, nil, testJWTSecret)
	e := newTestEcho()

	body := `{"username":"bob","email":"bob@example.com","password":"hunter2hunter2"}`
	c, rec := newTestContext(e, http.MethodPost, "/api/v1/auth/signup", body, 0)
	if err := handler.Signup(c); err != nil {
		t.Fatalf("signup: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}

	var resp struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("no token in response")
	}
	if resp.User.Username != "bob" {
		t.Fatalf("user = %+v", resp.User)
	}

	stored, err := userRepo.GetUserByEmail("bob@example.com")
	if err != nil {
		t.Fatalf("stored user: %v", err)
	}
	if stored.Password == "hunter2hunter2" {
		t.Fatal("password stored in plaintext")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("hunter2hunter2")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
}

func TestSignupRejectsDuplicates(t *testing.T) {
	userRepo := newFakeUserRepo()
	seedLocalUser(t, userRepo, "bob", "bob@example.com", "hunter2hunter2")
	handler := NewAuthHandler(userRepo, nil, testJWTSecret)
	e := newTestEcho()

	body := `{"username":"bob2","email":"bob@example.com","password":"hunter2hunter2"}`
	c, _ := newTestContext(e, http.MethodPost, "/api/v1/auth/signup", body, 0)
	err := handler.Signup(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusConflict {
		t.Fatalf("duplicate email err = %v, want 409", err)
	}

	body = `{"username":"bob","email":"other@example.com","password":"hunter2hunter2"}`
	c, _ = newTestContext(e, http.MethodPost, "/api/v1/auth/signup", body, 0)
	err = handler.Signup(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusConflict {
		t.Fatalf("duplicate username err = %v, want 409", err)
	}
}

func TestSignupValidation(t *testing.T) {
	handler := NewAuthHandler(newFakeUserRepo(), nil, testJWTSecret)
	e := newTestEcho()

	// Password below the minimum length.
	body := `{"username":"bob","email":"bob@example.com","password":"short"}`
	c, _ := newTestContext(e, http.MethodPost, "/api/v1/auth/signup", body, 0)
	err := handler.Signup(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("short password err = %v, want 400", err)
	}
}

func TestSignIn(t *testing.T) {
	userRepo := newFakeUserRepo()
	seedLocalUser(t, userRepo, "bob", "bob@example.com", "hunter2hunter2")
	handler := NewAuthHandler(userRepo, nil, testJWTSecret)
	e := newTestEcho()

	c, rec := newTestContext(e, http.MethodPost, "/api/v1/auth/signin", `{"email":"bob@example.com","password":"hunter2hunter2"}`, 0)
	if err := handler.SignIn(c); err != nil {
		t.Fatalf("signin: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	c, _ = newTestContext(e, http.MethodPost, "/api/v1/auth/signin", `{"email":"bob@example.com","password":"wrong-password"}`, 0)
	err := handler.SignIn(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password err = %v, want 401", err)
	}

	c, _ = newTestContext(e, http.MethodPost, "/api/v1/auth/signin", `{"email":"nobody@example.com","password":"hunter2hunter2"}`, 0)
	err = handler.SignIn(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("unknown email err = %v, want 401", err)
	}
}

func TestFirebaseLoginUnconfigured(t *testing.T) {
	handler := NewAuthHandler(newFakeUserRepo(), nil, testJWTSecret)
	e := newTestEcho()

	c, _ := newTestContext(e, http.MethodPost, "/api/v1/auth/firebase", `{"idToken":"whatever"}`, 0)
	err := handler.FirebaseLogin(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusServiceUnavailable {
		t.Fatalf("err = %v, want 503", err)
	}
}
