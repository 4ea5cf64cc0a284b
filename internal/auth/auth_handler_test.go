package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func postJSON(t *testing.T, handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	return resp
}

func TestAuthHandler_Register(t *testing.T) {
	f := newServiceFixture(t)
	h := NewAuthHandler(f.service)

	rec := postJSON(t, h.Register, `{"username":"alice","email":"alice@example.com","password":"hunter42"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body %s", rec.Code, rec.Body)
	}
	resp := decodeResponse(t, rec)
	if !resp.Success {
		t.Error("response not marked success")
	}
}

func TestAuthHandler_RegisterInvalidBody(t *testing.T) {
	f := newServiceFixture(t)
	h := NewAuthHandler(f.service)

	rec := postJSON(t, h.Register, `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestAuthHandler_RegisterValidationDetails(t *testing.T) {
	f := newServiceFixture(t)
	h := NewAuthHandler(f.service)

	rec := postJSON(t, h.Register, `{"username":"a","email":"bad","password":"nope"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	resp := decodeResponse(t, rec)
	if resp.Error == nil || resp.Error.Code != CodeValidationError {
		t.Fatalf("error = %+v, want code %s", resp.Error, CodeValidationError)
	}
	for _, field := range []string{"username", "email", "password"} {
		if len(resp.Error.Details[field]) == 0 {
			t.Errorf("missing validation details for %q", field)
		}
	}
}

func TestAuthHandler_RegisterDuplicate(t *testing.T) {
	f := newServiceFixture(t)
	f.register(t, "alice", "alice@example.com", "hunter42")
	h := NewAuthHandler(f.service)

	rec := postJSON(t, h.Register, `{"username":"alice","email":"new@example.com","password":"hunter42"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if resp.Error == nil || resp.Error.Code != CodeDuplicateUser {
		t.Errorf("error = %+v, want code %s", resp.Error, CodeDuplicateUser)
	}
}

func TestAuthHandler_LoginSuccess(t *testing.T) {
	f := newServiceFixture(t)
	f.register(t, "alice", "alice@example.com", "hunter42")
	h := NewAuthHandler(f.service)

	rec := postJSON(t, h.Login, `{"username":"alice","password":"hunter42"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body)
	}

	var resp struct {
		Data struct {
			SessionToken string `json:"session_token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Data.SessionToken == "" {
		t.Error("no session token in response")
	}
	if strings.Contains(rec.Body.String(), "hunter42") {
		t.Error("response leaks the password")
	}
}

func TestAuthHandler_LoginBadCredentials(t *testing.T) {
	f := newServiceFixture(t)
	f.register(t, "alice", "alice@example.com", "hunter42")
	h := NewAuthHandler(f.service)

	rec := postJSON(t, h.Login, `{"username":"alice","password":"wrong9pass"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if resp.Error == nil || resp.Error.Code != CodeInvalidCredentials {
		t.Errorf("error = %+v, want code %s", resp.Error, CodeInvalidCredentials)
	}
}

func TestAuthHandler_LoginLocked(t *testing.T) {
	f := newServiceFixture(t)
	f.register(t, "alice", "alice@example.com", "hunter42")
	h := NewAuthHandler(f.service)

	for i := 0; i < 5; i++ {
		postJSON(t, h.Login, `{"username":"alice","password":"wrong9pass"}`)
	}

	rec := postJSON(t, h.Login, `{"username":"alice","password":"hunter42"}`)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "3600" {
		t.Errorf("Retry-After = %q, want 3600", rec.Header().Get("Retry-After"))
	}
	resp := decodeResponse(t, rec)
	if resp.Error == nil || resp.Error.Code != CodeAccountLocked {
		t.Errorf("error = %+v, want code %s", resp.Error, CodeAccountLocked)
	}
	if len(resp.Error.Details["retry_after"]) == 0 {
		t.Error("missing retry_after detail")
	}
}

func TestAuthHandler_LoginMissingFields(t *testing.T) {
	f := newServiceFixture(t)
	h := NewAuthHandler(f.service)

	rec := postJSON(t, h.Login, `{"username":"alice"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestAuthHandler_LogoutWithBearerToken(t *testing.T) {
	f := newServiceFixture(t)
	f.register(t, "alice", "alice@example.com", "hunter42")
	token, _, err := f.service.Login(context.Background(), "alice", "hunter42", "")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	h := NewAuthHandler(f.service)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if f.sessions.sessions[token].IsActive {
		t.Error("session still active after logout")
	}

	// Logging out again is still a success
	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.Logout(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("repeat logout status = %d, want 200", rec.Code)
	}
}

func TestAuthHandler_LogoutWithBodyToken(t *testing.T) {
	f := newServiceFixture(t)
	f.register(t, "alice", "alice@example.com", "hunter42")
	token, _, err := f.service.Login(context.Background(), "alice", "hunter42", "")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	h := NewAuthHandler(f.service)

	rec := postJSON(t, h.Logout, `{"session_token":"`+token+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if f.sessions.sessions[token].IsActive {
		t.Error("session still active after logout")
	}
}

func TestAuthHandler_ResponseTimestamps(t *testing.T) {
	f := newServiceFixture(t)
	h := NewAuthHandler(f.service)

	before := time.Now().UTC().Add(-time.Second)
	rec := postJSON(t, h.Register, `{"username":"alice","email":"alice@example.com","password":"hunter42"}`)
	resp := decodeResponse(t, rec)

	if resp.Timestamp.Before(before) {
		t.Errorf("timestamp %v predates the request", resp.Timestamp)
	}
}
