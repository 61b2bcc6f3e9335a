package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/snapshare/internal/models"
)

// GridFSStore keeps uploaded images in a GridFS bucket next to the documents.
type GridFSStore struct {
	db   *mongo.Database
	name string
}

func NewGridFSStore(db *mongo.Database, bucket string) *GridFSStore {
	return &GridFSStore{db: db, name: bucket}
}

type blobMetadata struct {
	ContentType string `bson:"content_type"`
}

// bucket opens a handle bound to ctx's deadline. GridFS handles carry their
// deadlines as state, so each call gets its own.
func (s *GridFSStore) bucket(ctx context.Context) (*gridfs.Bucket, error) {
	b, err := gridfs.NewBucket(s.db, options.GridFSBucket().SetName(s.name))
	if err != nil {
		return nil, fmt.Errorf("gridfs bucket: %w", err)
	}
	if dl, ok := ctx.Deadline(); ok {
		if err := b.SetReadDeadline(dl); err != nil {
			return nil, err
		}
		if err := b.SetWriteDeadline(dl); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Put stores data under a new id. An empty filename means no file was chosen.
func (s *GridFSStore) Put(ctx context.Context, data []byte, filename, contentType string) (string, error) {
	if filename == "" {
		return "", ErrNoUpload
	}
	b, err := s.bucket(ctx)
	if err != nil {
		return "", err
	}
	opts := options.GridFSUpload().SetMetadata(blobMetadata{ContentType: contentType})
	oid, err := b.UploadFromStream(filename, bytes.NewReader(data), opts)
	if err != nil {
		return "", fmt.Errorf("gridfs upload: %w", err)
	}
	return oid.Hex(), nil
}

func (s *GridFSStore) Get(ctx context.Context, id string) (*models.Blob, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("blob %q: %w", id, ErrNotFound)
	}
	b, err := s.bucket(ctx)
	if err != nil {
		return nil, err
	}
	stream, err := b.OpenDownloadStream(oid)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, fmt.Errorf("blob %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("gridfs open: %w", err)
	}
	defer stream.Close()

	data, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("gridfs read: %w", err)
	}

	blob := &models.Blob{ID: id, Data: data}
	if f := stream.GetFile(); f != nil {
		blob.Filename = f.Name
		var meta blobMetadata
		if len(f.Metadata) > 0 && bson.Unmarshal(f.Metadata, &meta) == nil {
			blob.ContentType = meta.ContentType
		}
	}
	return blob, nil
}
