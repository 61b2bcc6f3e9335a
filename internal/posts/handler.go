package posts

import (
	"context"
	"errors"
	"iter"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ayush/snapshare/internal/auth"
	"github.com/ayush/snapshare/internal/forms"
	"github.com/ayush/snapshare/internal/logger"
	"github.com/ayush/snapshare/internal/models"
	"github.com/ayush/snapshare/internal/store"
	"github.com/ayush/snapshare/internal/web"
)

// FallbackContentType is served for blobs stored without a detected type.
const FallbackContentType = "image/jpeg"

// PostStore defines the interface for post persistence.
type PostStore interface {
	Insert(ctx context.Context, authorEmail, caption string, imageID *string) (string, error)
	FindByID(ctx context.Context, id string) (*models.Post, error)
	FindAll(ctx context.Context, pageSize int) iter.Seq2[models.Post, error]
	FindByAuthor(ctx context.Context, email string, pageSize int) iter.Seq2[models.Post, error]
	UpdateFields(ctx context.Context, id string, upd models.PostUpdate) error
	Delete(ctx context.Context, id string) error
	ToggleLike(ctx context.Context, id, email string) (bool, error)
}

// BlobStore defines the interface for image storage.
type BlobStore interface {
	Put(ctx context.Context, data []byte, filename, contentType string) (string, error)
	Get(ctx context.Context, id string) (*models.Blob, error)
}

// Handler holds the feed, profile, post and image handlers.
type Handler struct {
	posts PostStore
	blobs BlobStore
	view  *web.Renderer
	log   *logger.Logger
}

func NewHandler(posts PostStore, blobs BlobStore, view *web.Renderer, log *logger.Logger) *Handler {
	return &Handler{posts: posts, blobs: blobs, view: view, log: log.Named("posts")}
}

// CanModify reports whether identity may edit or delete post.
func CanModify(identity string, post *models.Post) bool {
	return identity != "" && post != nil && post.AuthorEmail == identity
}

// identity returns the logged-in email. Routes using it sit behind RequireLogin.
func identity(r *http.Request) string {
	email, _ := auth.IdentityFrom(r.Context())
	return email
}

// Feed lists every post, newest first.
func (h *Handler) Feed(w http.ResponseWriter, r *http.Request) {
	list, err := drain(h.posts.FindAll(r.Context(), store.DefaultPageSize))
	if err != nil {
		h.view.ServerError(w, r, err)
		return
	}
	h.view.Render(w, r, http.StatusOK, "index.html", web.Page{Title: "Feed", Posts: list})
}

// Profile lists the current user's posts, newest first.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	list, err := drain(h.posts.FindByAuthor(r.Context(), identity(r), store.DefaultPageSize))
	if err != nil {
		h.view.ServerError(w, r, err)
		return
	}
	h.view.Render(w, r, http.StatusOK, "profile.html", web.Page{Title: "Profile", Posts: list})
}

func (h *Handler) NewPage(w http.ResponseWriter, r *http.Request) {
	h.view.Render(w, r, http.StatusOK, "post_form.html", web.Page{Title: "New post"})
}

// Create stores the optional image and inserts a post owned by the current user.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	form, upload, ok := h.parse(w, r, "New post", nil)
	if !ok {
		return
	}

	var imageID *string
	if upload != nil {
		id, err := h.blobs.Put(r.Context(), upload.Data, upload.Filename, upload.ContentType)
		if err != nil {
			h.view.ServerError(w, r, err)
			return
		}
		imageID = &id
	}

	id, err := h.posts.Insert(r.Context(), identity(r), form.Caption, imageID)
	if err != nil {
		h.view.ServerError(w, r, err)
		return
	}
	h.log.Info("post created", "post_id", id, "author", identity(r))
	web.AddFlash(w, r, web.FlashSuccess, "Post created!")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) EditPage(w http.ResponseWriter, r *http.Request) {
	post, ok := h.owned(w, r)
	if !ok {
		return
	}
	h.view.Render(w, r, http.StatusOK, "post_form.html", web.Page{
		Title: "Edit post",
		Post:  post,
		Form:  forms.PostForm{Caption: post.Caption},
	})
}

// Edit replaces the caption, and the image only when a new file was uploaded.
func (h *Handler) Edit(w http.ResponseWriter, r *http.Request) {
	post, ok := h.owned(w, r)
	if !ok {
		return
	}
	form, upload, ok := h.parse(w, r, "Edit post", post)
	if !ok {
		return
	}

	upd := models.PostUpdate{Caption: &form.Caption}
	if upload != nil {
		id, err := h.blobs.Put(r.Context(), upload.Data, upload.Filename, upload.ContentType)
		if err != nil {
			h.view.ServerError(w, r, err)
			return
		}
		upd.ImageID = &id
	}

	if err := h.posts.UpdateFields(r.Context(), post.ID.Hex(), upd); err != nil {
		h.fail(w, r, err)
		return
	}
	web.AddFlash(w, r, web.FlashSuccess, "Post updated!")
	http.Redirect(w, r, "/profile", http.StatusSeeOther)
}

// Delete removes a post owned by the current user. Its image blob is kept.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	post, ok := h.owned(w, r)
	if !ok {
		return
	}
	if err := h.posts.Delete(r.Context(), post.ID.Hex()); err != nil {
		h.view.ServerError(w, r, err)
		return
	}
	h.log.Info("post deleted", "post_id", post.ID.Hex(), "author", post.AuthorEmail)
	web.AddFlash(w, r, web.FlashInfo, "Post deleted.")
	http.Redirect(w, r, "/profile", http.StatusSeeOther)
}

// Like toggles the current user's like on a post.
func (h *Handler) Like(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	liked, err := h.posts.ToggleLike(r.Context(), id, identity(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.log.Debug("like toggled", "post_id", id, "identity", identity(r), "liked", liked)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Image serves an uploaded image.
func (h *Handler) Image(w http.ResponseWriter, r *http.Request) {
	blob, err := h.blobs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ct := blob.ContentType
	if ct == "" {
		ct = FallbackContentType
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Cache-Control", "public, max-age=86400, immutable")
	w.Write(blob.Data)
}

// owned loads the post named in the URL and checks the current user owns it.
func (h *Handler) owned(w http.ResponseWriter, r *http.Request) (*models.Post, bool) {
	post, err := h.posts.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	if !CanModify(identity(r), post) {
		h.log.Warn("modify denied", "post_id", post.ID.Hex(), "identity", identity(r))
		web.AddFlash(w, r, web.FlashWarning, "You can only modify your own posts.")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return nil, false
	}
	return post, true
}

// parse reads and validates a post form, re-rendering it on invalid input.
func (h *Handler) parse(w http.ResponseWriter, r *http.Request, title string, post *models.Post) (forms.PostForm, *forms.Upload, bool) {
	form, upload, err := forms.ParsePost(w, r)
	if errors.Is(err, forms.ErrTooLarge) {
		h.log.Warn("upload rejected", "reason", "too large", "identity", identity(r))
		h.view.Render(w, r, http.StatusRequestEntityTooLarge, "post_form.html", web.Page{
			Title:  title,
			Post:   post,
			Form:   form,
			Errors: forms.Errors{"image": forms.TooLargeMessage},
		})
		return form, nil, false
	}
	if err != nil {
		web.AddFlash(w, r, web.FlashWarning, "The upload could not be read.")
		h.view.Render(w, r, http.StatusBadRequest, "post_form.html", web.Page{Title: title, Post: post, Form: form})
		return form, nil, false
	}
	if err := forms.Validate(form); err != nil {
		var fieldErrs forms.Errors
		if !errors.As(err, &fieldErrs) {
			h.view.ServerError(w, r, err)
			return form, nil, false
		}
		h.view.Render(w, r, http.StatusOK, "post_form.html", web.Page{Title: title, Post: post, Form: form, Errors: fieldErrs})
		return form, nil, false
	}
	return form, upload, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, store.ErrNotFound) {
		h.view.NotFound(w, r)
		return
	}
	h.view.ServerError(w, r, err)
}

func drain(seq iter.Seq2[models.Post, error]) ([]models.Post, error) {
	var out []models.Post
	for p, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
