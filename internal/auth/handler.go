package auth

import (
	"context"
	"errors"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/ayush/snapshare/internal/forms"
	"github.com/ayush/snapshare/internal/logger"
	"github.com/ayush/snapshare/internal/models"
	"github.com/ayush/snapshare/internal/store"
	"github.com/ayush/snapshare/internal/web"
)

// UserStore defines the interface for credential persistence.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Insert(ctx context.Context, email, passwordHash string) error
}

// Handler holds the register, login and logout pages.
type Handler struct {
	users    UserStore
	sessions *Manager
	view     *web.Renderer
	log      *logger.Logger
	cost     int
}

func NewHandler(users UserStore, sessions *Manager, view *web.Renderer, log *logger.Logger) *Handler {
	return &Handler{
		users:    users,
		sessions: sessions,
		view:     view,
		log:      log.Named("auth"),
		cost:     bcrypt.DefaultCost,
	}
}

// WithHashCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func (h *Handler) WithHashCost(cost int) *Handler {
	h.cost = cost
	return h
}

func (h *Handler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	h.view.Render(w, r, http.StatusOK, "register.html", web.Page{Title: "Register"})
}

// Register creates a new user.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	form := forms.ParseRegister(r)
	if err := forms.Validate(form); err != nil {
		h.renderInvalid(w, r, "register.html", "Register", form, err, "")
		return
	}

	_, err := h.users.FindByEmail(r.Context(), form.Email)
	switch {
	case err == nil:
		h.duplicate(w, r)
		return
	case !errors.Is(err, store.ErrNotFound):
		h.view.ServerError(w, r, err)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(form.Password), h.cost)
	if err != nil {
		h.view.ServerError(w, r, err)
		return
	}
	if err := h.users.Insert(r.Context(), form.Email, string(hashed)); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			h.duplicate(w, r)
			return
		}
		h.view.ServerError(w, r, err)
		return
	}

	h.log.Info("user registered", "email", form.Email)
	web.AddFlash(w, r, web.FlashSuccess, "Registration successful! You can log in now.")
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *Handler) duplicate(w http.ResponseWriter, r *http.Request) {
	web.AddFlash(w, r, web.FlashWarning, "User already exists! Please log in.")
	http.Redirect(w, r, "/register", http.StatusSeeOther)
}

func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.view.Render(w, r, http.StatusOK, "login.html", web.Page{
		Title: "Log in",
		Next:  r.URL.Query().Get("next"),
	})
}

// Login authenticates a user and creates a session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	next := r.URL.Query().Get("next")
	form := forms.ParseLogin(r)
	if err := forms.Validate(form); err != nil {
		form.Password = ""
		h.renderInvalid(w, r, "login.html", "Log in", form, err, next)
		return
	}

	user, err := h.users.FindByEmail(r.Context(), form.Email)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		h.view.ServerError(w, r, err)
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(form.Password)) != nil {
		h.log.Debug("login rejected", "email", form.Email, "known_user", user != nil)
		web.AddFlash(w, r, web.FlashWarning, "Invalid email or password. Please try again.")
		form.Password = ""
		h.view.Render(w, r, http.StatusOK, "login.html", web.Page{Title: "Log in", Form: form, Next: next})
		return
	}

	if err := h.sessions.Login(w, r, user.Email, form.RememberMe); err != nil {
		h.view.ServerError(w, r, err)
		return
	}
	web.AddFlash(w, r, web.FlashSuccess, "Login successful!")
	http.Redirect(w, r, SafeNext(next), http.StatusSeeOther)
}

// Logout destroys the current session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Logout(w, r); err != nil {
		h.log.Warn("session revoke failed", "error", err)
	}
	web.AddFlash(w, r, web.FlashInfo, "You have been logged out.")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) renderInvalid(w http.ResponseWriter, r *http.Request, page, title string, form any, err error, next string) {
	var fieldErrs forms.Errors
	if !errors.As(err, &fieldErrs) {
		h.view.ServerError(w, r, err)
		return
	}
	h.view.Render(w, r, http.StatusOK, page, web.Page{Title: title, Form: form, Errors: fieldErrs, Next: next})
}
