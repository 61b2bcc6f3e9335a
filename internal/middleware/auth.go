package middleware

import (
	"net/http"
	"net/url"

	"github.com/ayush/snapshare/internal/auth"
	"github.com/ayush/snapshare/internal/web"
)

// RequireLogin sends anonymous visitors to the login page, remembering the
// page they asked for in the next parameter. It relies on auth.Manager.Middleware
// having resolved the identity earlier in the chain.
func RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.IdentityFrom(r.Context()); !ok {
			web.AddFlash(w, r, web.FlashInfo, "Please log in to access this page.")
			target := "/login"
			if back := returnPath(r); back != "" {
				target += "?next=" + url.QueryEscape(back)
			}
			http.Redirect(w, r, target, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// returnPath is the page to come back to after logging in. Form posts such as
// like and delete only accept POST, so for those it is the same-site page the
// form was submitted from, or "" when that is unknown.
func returnPath(r *http.Request) string {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		return r.URL.RequestURI()
	}
	ref, err := url.Parse(r.Referer())
	if err != nil || ref.Host != r.Host || ref.Path == "" {
		return ""
	}
	return auth.SafeNext(ref.RequestURI())
}
