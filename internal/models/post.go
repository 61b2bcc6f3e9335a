package models

import (
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Post is a single image post stored in the posts collection.
type Post struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	ImageID     *string            `bson:"image_id"`
	Caption     string             `bson:"caption"`
	AuthorEmail string             `bson:"author_email"`
	Likes       []string           `bson:"likes"`
	CreatedAt   time.Time          `bson:"created_at"`
}

// LikedBy reports whether email is in the like set.
func (p Post) LikedBy(email string) bool {
	return slices.Contains(p.Likes, email)
}

// PostUpdate carries the fields an edit may replace. Nil fields are left alone.
type PostUpdate struct {
	Caption *string
	ImageID *string
}

// Blob is an uploaded image as read back from the blob store.
type Blob struct {
	ID          string
	Filename    string
	ContentType string
	Data        []byte
}
