package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

type stubClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStubClock() *stubClock {
	return &stubClock{now: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)}
}

func (c *stubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stubClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestManager(clock Clock) *Manager {
	return NewManager(NewMemorySessionStore(clock), "test-secret", false, clock)
}

func login(t *testing.T, m *Manager, email string, remember bool) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/login", nil)
	if err := m.Login(rec, r, email, remember); err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookie {
			return c
		}
	}
	t.Fatal("Login() set no session cookie")
	return nil
}

func requestWith(c *http.Cookie) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if c != nil {
		r.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
	return r
}

// survivesRestart reports whether a browser keeps c after being closed.
func survivesRestart(c *http.Cookie) bool {
	return c.MaxAge > 0 || !c.Expires.IsZero()
}

func TestSafeNext(t *testing.T) {
	tests := []struct {
		next string
		want string
	}{
		{next: "/profile", want: "/profile"},
		{next: "/posts/new?x=1", want: "/posts/new?x=1"},
		{next: "", want: "/"},
		{next: "http://evil.example/", want: "/"},
		{next: "https://evil.example/profile", want: "/"},
		{next: "//evil.example/", want: "/"},
		{next: "/\\evil.example", want: "/"},
		{next: "profile", want: "/"},
		{next: "javascript:alert(1)", want: "/"},
		{next: "/\t/evil.example/", want: "/"},
		{next: "/\n/evil", want: "/"},
		{next: "/\r\n/evil", want: "/"},
		{next: "/\x7f/evil", want: "/"},
		{next: "/%2F/evil.example", want: "/"},
		{next: "/profile\\evil", want: "/"},
		{next: "/search?q=a%2Fb", want: "/search?q=a%2Fb"},
	}
	for _, tt := range tests {
		if got := SafeNext(tt.next); got != tt.want {
			t.Errorf("SafeNext(%q) = %q, want %q", tt.next, got, tt.want)
		}
	}
}

func TestManager_LoginIdentity(t *testing.T) {
	m := newTestManager(newStubClock())
	c := login(t, m, "a@x.com", false)

	email, ok := m.Identity(requestWith(c))
	if !ok || email != "a@x.com" {
		t.Fatalf("Identity() = %q, %v, want a@x.com, true", email, ok)
	}
	if !c.HttpOnly || c.Path != "/" {
		t.Errorf("cookie = %+v, want HttpOnly with Path=/", c)
	}

	if _, ok := m.Identity(requestWith(nil)); ok {
		t.Error("Identity() without cookie reported a user")
	}
}

func TestManager_RememberMe(t *testing.T) {
	tests := []struct {
		name           string
		remember       bool
		wantPersistent bool
		validAfter     time.Duration
		expiredAfter   time.Duration
	}{
		{name: "browser session", remember: false, wantPersistent: false, validAfter: 23 * time.Hour, expiredAfter: 25 * time.Hour},
		{name: "remembered", remember: true, wantPersistent: true, validAfter: 29 * 24 * time.Hour, expiredAfter: 31 * 24 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newStubClock()
			m := newTestManager(clock)
			c := login(t, m, "a@x.com", tt.remember)

			if got := survivesRestart(c); got != tt.wantPersistent {
				t.Fatalf("cookie survives browser restart = %v, want %v (MaxAge=%d Expires=%v)", got, tt.wantPersistent, c.MaxAge, c.Expires)
			}
			if tt.remember && c.MaxAge != int(RememberTTL/time.Second) {
				t.Errorf("MaxAge = %d, want %d", c.MaxAge, int(RememberTTL/time.Second))
			}

			clock.Advance(tt.validAfter)
			if _, ok := m.Identity(requestWith(c)); !ok {
				t.Errorf("Identity() after %v = false, want true", tt.validAfter)
			}
			clock.Advance(tt.expiredAfter - tt.validAfter)
			if _, ok := m.Identity(requestWith(c)); ok {
				t.Errorf("Identity() after %v = true, want false", tt.expiredAfter)
			}
		})
	}
}

func TestManager_RejectsForgedCookies(t *testing.T) {
	clock := newStubClock()
	m := newTestManager(clock)
	c := login(t, m, "a@x.com", false)

	other := NewManager(NewMemorySessionStore(clock), "other-secret", false, clock)
	forged := login(t, other, "a@x.com", false)

	parts := strings.Split(c.Value, ".")
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	for name, value := range map[string]string{
		"wrong secret":   forged.Value,
		"bad signature":  tampered,
		"garbage":        "not-a-token",
		"plain identity": "a@x.com",
	} {
		r := requestWith(&http.Cookie{Name: SessionCookie, Value: value})
		if email, ok := m.Identity(r); ok {
			t.Errorf("%s: Identity() = %q, want rejection", name, email)
		}
	}
}

func TestManager_Logout(t *testing.T) {
	m := newTestManager(newStubClock())
	c := login(t, m, "a@x.com", true)

	rec := httptest.NewRecorder()
	if err := m.Logout(rec, requestWith(c)); err != nil {
		t.Fatalf("Logout() error: %v", err)
	}

	var cleared bool
	for _, rc := range rec.Result().Cookies() {
		if rc.Name == SessionCookie && rc.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("Logout() did not expire the session cookie")
	}

	// A copy of the old cookie must no longer authenticate.
	if _, ok := m.Identity(requestWith(c)); ok {
		t.Error("Identity() with revoked cookie = true, want false")
	}
}

func TestManager_Middleware(t *testing.T) {
	m := newTestManager(newStubClock())
	c := login(t, m, "a@x.com", false)

	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = IdentityFrom(r.Context())
	}))

	h.ServeHTTP(httptest.NewRecorder(), requestWith(c))
	if seen != "a@x.com" {
		t.Errorf("identity in context = %q, want a@x.com", seen)
	}

	seen = "unset"
	h.ServeHTTP(httptest.NewRecorder(), requestWith(nil))
	if seen != "" {
		t.Errorf("anonymous identity in context = %q, want empty", seen)
	}
}

func TestIdentityFrom_Empty(t *testing.T) {
	if _, ok := IdentityFrom(context.Background()); ok {
		t.Error("IdentityFrom(empty ctx) ok = true")
	}
	if _, ok := IdentityFrom(WithIdentity(context.Background(), "")); ok {
		t.Error("IdentityFrom(empty identity) ok = true")
	}
}
