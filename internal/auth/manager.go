package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	SessionCookie = "session"
	SessionTTL    = 24 * time.Hour
	RememberTTL   = 30 * 24 * time.Hour
)

var errInvalidSession = errors.New("invalid session")

type sessionClaims struct {
	jwt.RegisteredClaims
}

// Manager issues, reads and revokes the signed session cookie. The cookie is
// an HS256 token whose subject is the user's email and whose id is a session
// registered in the SessionStore.
type Manager struct {
	sessions SessionStore
	secret   []byte
	clock    Clock
	secure   bool
}

func NewManager(sessions SessionStore, secret string, secure bool, clock Clock) *Manager {
	if clock == nil {
		clock = RealClock{}
	}
	return &Manager{sessions: sessions, secret: []byte(secret), clock: clock, secure: secure}
}

// Login starts a session for email. Without remember the cookie has no
// expiry and is dropped when the browser closes.
func (m *Manager) Login(w http.ResponseWriter, r *http.Request, email string, remember bool) error {
	ttl := SessionTTL
	if remember {
		ttl = RememberTTL
	}
	sid, err := m.sessions.Create(r.Context(), email, ttl)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	now := m.clock.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			ID:        sid,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return fmt.Errorf("sign session: %w", err)
	}

	cookie := &http.Cookie{
		Name:     SessionCookie,
		Value:    signed,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if remember {
		cookie.MaxAge = int(RememberTTL / time.Second)
		cookie.Expires = now.Add(RememberTTL)
	}
	http.SetCookie(w, cookie)
	return nil
}

// Logout revokes the current session, if any, and expires the cookie.
func (m *Manager) Logout(w http.ResponseWriter, r *http.Request) error {
	var err error
	if claims, perr := m.parse(r); perr == nil {
		err = m.sessions.Delete(r.Context(), claims.ID)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		MaxAge:   -1,
	})
	return err
}

// Identity returns the email of the logged-in user, if the request carries a
// valid, unrevoked session cookie.
func (m *Manager) Identity(r *http.Request) (string, bool) {
	claims, err := m.parse(r)
	if err != nil {
		return "", false
	}
	email, err := m.sessions.Get(r.Context(), claims.ID)
	if err != nil || email == "" || email != claims.Subject {
		return "", false
	}
	return email, true
}

func (m *Manager) parse(r *http.Request) (*sessionClaims, error) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil || cookie.Value == "" {
		return nil, errInvalidSession
	}
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(cookie.Value, claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid || claims.Subject == "" || claims.ID == "" {
		return nil, errInvalidSession
	}
	return claims, nil
}

// Middleware resolves the session cookie once per request and stores the
// identity in the request context.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if email, ok := m.Identity(r); ok {
			r = r.WithContext(WithIdentity(r.Context(), email))
		}
		next.ServeHTTP(w, r)
	})
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying the logged-in email.
func WithIdentity(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, identityKey{}, email)
}

// IdentityFrom returns the logged-in email stored by Middleware.
func IdentityFrom(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(identityKey{}).(string)
	return email, ok && email != ""
}

// SafeNext returns next when it is a path on this site, and "/" otherwise.
// Browsers drop tabs and newlines before resolving a Location, so "/\t/host"
// would land on "//host"; any control character or backslash is refused.
func SafeNext(next string) string {
	if next == "" || next[0] != '/' {
		return "/"
	}
	for i := 0; i < len(next); i++ {
		if c := next[i]; c < 0x20 || c == 0x7f || c == '\\' {
			return "/"
		}
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" || u.User != nil {
		return "/"
	}
	if !strings.HasPrefix(u.Path, "/") || strings.HasPrefix(u.Path, "//") {
		return "/"
	}
	return next
}
