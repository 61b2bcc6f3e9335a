package store

import (
	"bytes"
	"context"
	"fmt"
	"iter"
	"slices"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ayush/snapshare/internal/models"
)

// MemoryUserStore is an in-process credential store. Safe for concurrent use.
type MemoryUserStore struct {
	mu    sync.Mutex
	users map[string]models.User
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[string]models.User)}
}

func (s *MemoryUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[email]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	return &u, nil
}

func (s *MemoryUserStore) Insert(_ context.Context, email, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[email]; ok {
		return fmt.Errorf("user %s: %w", email, ErrAlreadyExists)
	}
	s.users[email] = models.User{Email: email, PasswordHash: passwordHash}
	return nil
}

// Count returns the number of stored users.
func (s *MemoryUserStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

// MemoryPostStore is an in-process post store with the same ordering and
// paging behaviour as MongoPostStore.
type MemoryPostStore struct {
	mu    sync.Mutex
	posts map[primitive.ObjectID]models.Post
}

func NewMemoryPostStore() *MemoryPostStore {
	return &MemoryPostStore{posts: make(map[primitive.ObjectID]models.Post)}
}

func (s *MemoryPostStore) Insert(_ context.Context, authorEmail, caption string, imageID *string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := models.Post{
		ID:          primitive.NewObjectID(),
		ImageID:     cloneString(imageID),
		Caption:     caption,
		AuthorEmail: authorEmail,
		Likes:       []string{},
		CreatedAt:   time.Now().UTC(),
	}
	s.posts[p.ID] = p
	return p.ID.Hex(), nil
}

func (s *MemoryPostStore) FindByID(_ context.Context, id string) (*models.Post, error) {
	oid, err := parsePostID(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[oid]
	if !ok {
		return nil, fmt.Errorf("post %s: %w", id, ErrNotFound)
	}
	return clonePost(p), nil
}

func (s *MemoryPostStore) FindAll(ctx context.Context, pageSize int) iter.Seq2[models.Post, error] {
	return s.pages(ctx, func(models.Post) bool { return true }, pageSize)
}

func (s *MemoryPostStore) FindByAuthor(ctx context.Context, email string, pageSize int) iter.Seq2[models.Post, error] {
	return s.pages(ctx, func(p models.Post) bool { return p.AuthorEmail == email }, pageSize)
}

func (s *MemoryPostStore) pages(ctx context.Context, match func(models.Post) bool, pageSize int) iter.Seq2[models.Post, error] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return func(yield func(models.Post, error) bool) {
		var after primitive.ObjectID
		for {
			if err := ctx.Err(); err != nil {
				yield(models.Post{}, err)
				return
			}
			page := s.page(match, after, pageSize)
			for _, p := range page {
				if !yield(p, nil) {
					return
				}
			}
			if len(page) < pageSize {
				return
			}
			after = page[len(page)-1].ID
		}
	}
}

func (s *MemoryPostStore) page(match func(models.Post) bool, after primitive.ObjectID, limit int) []models.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Post
	for _, p := range s.posts {
		if !match(p) {
			continue
		}
		if !after.IsZero() && bytes.Compare(p.ID[:], after[:]) >= 0 {
			continue
		}
		out = append(out, *clonePost(p))
	}
	slices.SortFunc(out, func(a, b models.Post) int {
		return bytes.Compare(b.ID[:], a.ID[:])
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *MemoryPostStore) UpdateFields(_ context.Context, id string, upd models.PostUpdate) error {
	oid, err := parsePostID(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[oid]
	if !ok {
		return fmt.Errorf("post %s: %w", id, ErrNotFound)
	}
	if upd.Caption != nil {
		p.Caption = *upd.Caption
	}
	if upd.ImageID != nil {
		p.ImageID = cloneString(upd.ImageID)
	}
	s.posts[oid] = p
	return nil
}

func (s *MemoryPostStore) Delete(_ context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.posts, oid)
	return nil
}

func (s *MemoryPostStore) ToggleLike(_ context.Context, id, email string) (bool, error) {
	oid, err := parsePostID(id)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[oid]
	if !ok {
		return false, fmt.Errorf("post %s: %w", id, ErrNotFound)
	}
	if i := slices.Index(p.Likes, email); i >= 0 {
		p.Likes = slices.Delete(slices.Clone(p.Likes), i, i+1)
		s.posts[oid] = p
		return false, nil
	}
	p.Likes = append(slices.Clone(p.Likes), email)
	s.posts[oid] = p
	return true, nil
}

// MemoryBlobStore is an in-process blob store.
type MemoryBlobStore struct {
	mu    sync.Mutex
	blobs map[string]models.Blob
}

func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{blobs: make(map[string]models.Blob)}
}

func (s *MemoryBlobStore) Put(_ context.Context, data []byte, filename, contentType string) (string, error) {
	if filename == "" {
		return "", ErrNoUpload
	}
	id := primitive.NewObjectID().Hex()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[id] = models.Blob{
		ID:          id,
		Filename:    filename,
		ContentType: contentType,
		Data:        bytes.Clone(data),
	}
	return id, nil
}

func (s *MemoryBlobStore) Get(_ context.Context, id string) (*models.Blob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blobs[id]
	if !ok {
		return nil, fmt.Errorf("blob %q: %w", id, ErrNotFound)
	}
	b.Data = bytes.Clone(b.Data)
	return &b, nil
}

// Count returns the number of stored blobs.
func (s *MemoryBlobStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blobs)
}

func clonePost(p models.Post) *models.Post {
	p.Likes = slices.Clone(p.Likes)
	if p.Likes == nil {
		p.Likes = []string{}
	}
	p.ImageID = cloneString(p.ImageID)
	return &p
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
