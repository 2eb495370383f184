package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const testSecret = "test-secret-at-least-16-chars!!"

func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	ts, err := NewTokenService(testSecret, false)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

// =========================================================================
// CONSTRUCTION
// =========================================================================

func TestNewTokenService_SecretLength(t *testing.T) {
	if _, err := NewTokenService("short", false); err == nil {
		t.Fatal("NewTokenService() should reject secrets shorter than 16 chars")
	}
	if _, err := NewTokenService("this-is-16-chars", false); err != nil {
		t.Fatalf("NewTokenService() unexpected error: %v", err)
	}
}

// =========================================================================
// GENERATE / VALIDATE
// =========================================================================

func TestValidate_RoundTrip(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Generate("user-123")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Errorf("Generate() token doesn't look like a JWT: %q", token)
	}

	got, err := ts.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if got != "user-123" {
		t.Errorf("Validate() = %q, want %q", got, "user-123")
	}
}

func TestValidate_Rejects(t *testing.T) {
	ts := newTestTokenService(t)
	other, _ := NewTokenService("a-completely-different-secret", false)

	expired, _ := ts.GenerateWithDuration("user-1", -time.Minute)
	foreign, _ := other.Generate("user-1")
	valid, _ := ts.Generate("user-1")
	tampered := valid[:len(valid)-4] + "AAAA"
	noSubject, _ := ts.Generate("")

	tests := []struct {
		name  string
		token string
	}{
		{"expired", expired},
		{"wrong secret", foreign},
		{"tampered signature", tampered},
		{"empty", ""},
		{"garbage", "not.a.jwt"},
		{"no subject", noSubject},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ts.Validate(tt.token); err == nil {
				t.Error("Validate() should have failed")
			}
		})
	}
}

// =========================================================================
// COOKIES
// =========================================================================

func TestSetSession_WritesHttpOnlyCookie(t *testing.T) {
	ts := newTestTokenService(t)
	rec := httptest.NewRecorder()

	if err := ts.SetSession(rec, "user-42"); err != nil {
		t.Fatalf("SetSession() error = %v", err)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("got %d cookies, want 1", len(cookies))
	}
	c := cookies[0]
	if c.Name != CookieName {
		t.Errorf("cookie name = %q, want %q", c.Name, CookieName)
	}
	if !c.HttpOnly {
		t.Error("session cookie must be HttpOnly")
	}
	if c.SameSite != http.SameSiteLaxMode {
		t.Errorf("SameSite = %v, want Lax", c.SameSite)
	}
	if c.MaxAge != 7*24*60*60 {
		t.Errorf("MaxAge = %d, want seven days", c.MaxAge)
	}
	if id, err := ts.Validate(c.Value); err != nil || id != "user-42" {
		t.Errorf("cookie value validates to (%q, %v)", id, err)
	}
}

func TestClearSession_ExpiresCookie(t *testing.T) {
	ts := newTestTokenService(t)
	rec := httptest.NewRecorder()
	ts.ClearSession(rec)

	c := rec.Result().Cookies()[0]
	if c.Name != CookieName || c.MaxAge >= 0 {
		t.Errorf("ClearSession() cookie = %+v, want expired %s", c, CookieName)
	}
}

// =========================================================================
// MIDDLEWARE
// =========================================================================

func whoami() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := UserIDFromContext(r.Context())
		if !ok {
			id = "anonymous"
		}
		_, _ = w.Write([]byte(id))
	})
}

func TestMiddleware(t *testing.T) {
	ts := newTestTokenService(t)
	token, _ := ts.Generate("user-7")

	tests := []struct {
		name       string
		mw         func(http.Handler) http.Handler
		cookie     string
		wantStatus int
		wantBody   string
	}{
		{"require with cookie", RequireAuth(ts), token, http.StatusOK, "user-7"},
		{"require without cookie", RequireAuth(ts), "", http.StatusUnauthorized, `"error":"unauthorized"`},
		{"require with bad cookie", RequireAuth(ts), "garbage", http.StatusUnauthorized, `"error":"unauthorized"`},
		{"optional with cookie", OptionalAuth(ts), token, http.StatusOK, "user-7"},
		{"optional without cookie", OptionalAuth(ts), "", http.StatusOK, "anonymous"},
		{"optional with bad cookie", OptionalAuth(ts), "garbage", http.StatusOK, "anonymous"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: CookieName, Value: tt.cookie})
			}
			rec := httptest.NewRecorder()
			tt.mw(whoami()).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body = %q, want it to contain %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}
