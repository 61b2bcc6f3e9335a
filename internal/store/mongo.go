package store

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/snapshare/internal/models"
)

// MongoPostStore handles post CRUD in MongoDB.
type MongoPostStore struct {
	col *mongo.Collection
}

func NewMongoPostStore(db *mongo.Database) *MongoPostStore {
	return &MongoPostStore{col: db.Collection("posts")}
}

// EnsureIndexes creates the author index used by the profile listing.
func (s *MongoPostStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "author_email", Value: 1}, {Key: "_id", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("posts index: %w", err)
	}
	return nil
}

func (s *MongoPostStore) Insert(ctx context.Context, authorEmail, caption string, imageID *string) (string, error) {
	post := models.Post{
		ImageID:     imageID,
		Caption:     caption,
		AuthorEmail: authorEmail,
		Likes:       []string{},
		CreatedAt:   time.Now().UTC(),
	}
	res, err := s.col.InsertOne(ctx, post)
	if err != nil {
		return "", fmt.Errorf("mongo insert post: %w", err)
	}
	return res.InsertedID.(primitive.ObjectID).Hex(), nil
}

func (s *MongoPostStore) FindByID(ctx context.Context, id string) (*models.Post, error) {
	oid, err := parsePostID(id)
	if err != nil {
		return nil, err
	}
	var post models.Post
	if err := s.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&post); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("post %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("mongo find post: %w", err)
	}
	return &post, nil
}

// FindAll yields every post, newest first, fetching pageSize posts per round trip.
func (s *MongoPostStore) FindAll(ctx context.Context, pageSize int) iter.Seq2[models.Post, error] {
	return s.pages(ctx, bson.M{}, pageSize)
}

// FindByAuthor yields the posts written by email, newest first.
func (s *MongoPostStore) FindByAuthor(ctx context.Context, email string, pageSize int) iter.Seq2[models.Post, error] {
	return s.pages(ctx, bson.M{"author_email": email}, pageSize)
}

// pages walks the collection in descending _id order using the last seen id
// as the cursor for the next page. Each range over the result starts again
// from the newest post.
func (s *MongoPostStore) pages(ctx context.Context, filter bson.M, pageSize int) iter.Seq2[models.Post, error] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return func(yield func(models.Post, error) bool) {
		var after primitive.ObjectID
		for {
			query := bson.M{}
			for k, v := range filter {
				query[k] = v
			}
			if !after.IsZero() {
				query["_id"] = bson.M{"$lt": after}
			}
			opts := options.Find().
				SetSort(bson.D{{Key: "_id", Value: -1}}).
				SetLimit(int64(pageSize))

			cur, err := s.col.Find(ctx, query, opts)
			if err != nil {
				yield(models.Post{}, fmt.Errorf("mongo find posts: %w", err))
				return
			}
			var page []models.Post
			if err := cur.All(ctx, &page); err != nil {
				yield(models.Post{}, fmt.Errorf("mongo decode posts: %w", err))
				return
			}
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

// UpdateFields sets only the non-nil fields of upd.
func (s *MongoPostStore) UpdateFields(ctx context.Context, id string, upd models.PostUpdate) error {
	oid, err := parsePostID(id)
	if err != nil {
		return err
	}
	set := bson.M{}
	if upd.Caption != nil {
		set["caption"] = *upd.Caption
	}
	if upd.ImageID != nil {
		set["image_id"] = *upd.ImageID
	}
	if len(set) == 0 {
		_, err := s.FindByID(ctx, id)
		return err
	}
	res, err := s.col.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("mongo update post: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("post %s: %w", id, ErrNotFound)
	}
	return nil
}

// Delete removes the post. Deleting an unknown id is not an error.
func (s *MongoPostStore) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil
	}
	if _, err := s.col.DeleteOne(ctx, bson.M{"_id": oid}); err != nil {
		return fmt.Errorf("mongo delete post: %w", err)
	}
	return nil
}

// ToggleLike adds email to the like set or removes it if present, in one
// server-side pipeline update. It reports whether email likes the post afterwards.
func (s *MongoPostStore) ToggleLike(ctx context.Context, id, email string) (bool, error) {
	oid, err := parsePostID(id)
	if err != nil {
		return false, err
	}

	who := bson.D{{Key: "$literal", Value: email}}
	likes := bson.D{{Key: "$ifNull", Value: bson.A{"$likes", bson.A{}}}}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{{Key: "likes", Value: bson.D{{Key: "$cond", Value: bson.A{
			bson.D{{Key: "$in", Value: bson.A{who, likes}}},
			bson.D{{Key: "$setDifference", Value: bson.A{likes, bson.A{who}}}},
			bson.D{{Key: "$concatArrays", Value: bson.A{likes, bson.A{who}}}},
		}}}}}}},
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"likes": 1})

	var out struct {
		Likes []string `bson:"likes"`
	}
	if err := s.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&out); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, fmt.Errorf("post %s: %w", id, ErrNotFound)
		}
		return false, fmt.Errorf("mongo toggle like: %w", err)
	}
	for _, l := range out.Likes {
		if l == email {
			return true, nil
		}
	}
	return false, nil
}

func parsePostID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("post %q: %w", id, ErrNotFound)
	}
	return oid, nil
}

// MongoUserStore keeps credentials in the users collection.
type MongoUserStore struct {
	col *mongo.Collection
}

func NewMongoUserStore(db *mongo.Database) *MongoUserStore {
	return &MongoUserStore{col: db.Collection("users")}
}

// EnsureIndexes declares email unique so concurrent registrations cannot both insert.
func (s *MongoUserStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("users index: %w", err)
	}
	return nil
}

func (s *MongoUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.col.FindOne(ctx, bson.M{"email": email}).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
		}
		return nil, fmt.Errorf("mongo find user: %w", err)
	}
	return &u, nil
}

func (s *MongoUserStore) Insert(ctx context.Context, email, passwordHash string) error {
	_, err := s.col.InsertOne(ctx, models.User{Email: email, PasswordHash: passwordHash})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("user %s: %w", email, ErrAlreadyExists)
		}
		return fmt.Errorf("mongo insert user: %w", err)
	}
	return nil
}
