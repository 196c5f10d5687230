package photos

import (
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
)

// Repository stores listing photos in GridFS. Stored filenames are
// salted with a UUID so uploads can never collide or be guessed.
type Repository struct {
	db *mongo.Database
}

func NewRepository(db *mongo.Database) *Repository {
	return &Repository{db: db}
}

// Upload streams one photo into GridFS and returns its file id.
func (r *Repository) Upload(file multipart.File, originalName string) (string, error) {
	bucket, err := gridfs.NewBucket(r.db)
	if err != nil {
		return "", err
	}

	filename := fmt.Sprintf("%s%s", uuid.NewString(), filepath.Ext(originalName))
	stream, err := bucket.OpenUploadStream(filename)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	if _, err := io.Copy(stream, file); err != nil {
		return "", err
	}

	return stream.FileID.(primitive.ObjectID).Hex(), nil
}

// Download reads a photo back by its file id.
func (r *Repository) Download(photoID string) ([]byte, error) {
	bucket, err := gridfs.NewBucket(r.db)
	if err != nil {
		return nil, err
	}

	objID, err := primitive.ObjectIDFromHex(photoID)
	if err != nil {
		return nil, err
	}

	stream, err := bucket.OpenDownloadStream(objID)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	return io.ReadAll(stream)
}

// Delete removes a photo from GridFS.
func (r *Repository) Delete(photoID string) error {
	bucket, err := gridfs.NewBucket(r.db)
	if err != nil {
		return err
	}

	objID, err := primitive.ObjectIDFromHex(photoID)
	if err != nil {
		return err
	}
	return bucket.Delete(objID)
}
