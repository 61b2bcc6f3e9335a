// Package web renders the server-side HTML pages, flash messages and the
// 404/500 error pages.
package web

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/ayush/snapshare/internal/forms"
	"github.com/ayush/snapshare/internal/logger"
	"github.com/ayush/snapshare/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{
	"index.html",
	"profile.html",
	"login.html",
	"register.html",
	"post_form.html",
	"404.html",
	"500.html",
}

// Page is the data every template receives.
type Page struct {
	Title    string
	Identity string
	Flashes  []Flash

	Form   any
	Errors forms.Errors

	Posts []models.Post
	Post  *models.Post
	Next  string
}

// postView is the data of the shared "post" card template.
type postView struct {
	Post     models.Post
	Identity string
}

// IdentityFunc reports the logged-in email stored in a request context.
type IdentityFunc func(ctx context.Context) (string, bool)

// Renderer executes the embedded page templates.
type Renderer struct {
	log      *logger.Logger
	identity IdentityFunc
	pages    map[string]*template.Template
}

func NewRenderer(log *logger.Logger, identity IdentityFunc) (*Renderer, error) {
	sub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, err
	}
	funcs := template.FuncMap{
		"imageURL": func(id *string) string {
			if id == nil || *id == "" {
				return ""
			}
			return "/images/" + *id
		},
		"hex": func(p models.Post) string { return p.ID.Hex() },
		"postView": func(p models.Post, identity string) postView {
			return postView{Post: p, Identity: identity}
		},
	}

	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.New("layout.html").Funcs(funcs).ParseFS(sub, "layout.html", name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		pages[name] = tmpl
	}
	return &Renderer{log: log.With("component", "web"), identity: identity, pages: pages}, nil
}

// Render writes page name with status. Output is buffered so that a template
// failure still produces a clean 500.
func (v *Renderer) Render(w http.ResponseWriter, r *http.Request, status int, name string, page Page) {
	tmpl, ok := v.pages[name]
	if !ok {
		v.log.Error("unknown template", "name", name)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if v.identity != nil {
		page.Identity, _ = v.identity(r.Context())
	}
	page.Flashes = TakeFlashes(w, r)

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", page); err != nil {
		v.log.Error("render template", "name", name, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// NotFound renders the 404 page.
func (v *Renderer) NotFound(w http.ResponseWriter, r *http.Request) {
	v.Render(w, r, http.StatusNotFound, "404.html", Page{Title: "Page not found"})
}

// ServerError logs err and renders the 500 page.
func (v *Renderer) ServerError(w http.ResponseWriter, r *http.Request, err error) {
	v.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	v.Render(w, r, http.StatusInternalServerError, "500.html", Page{Title: "Server error"})
}

// Recoverer turns a panicking handler into the 500 page.
func (v *Renderer) Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				v.ServerError(w, r, fmt.Errorf("panic: %v", rec))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
