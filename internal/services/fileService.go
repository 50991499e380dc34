package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fileportal/server/internal/models"
	"github.com/fileportal/server/internal/urlcache"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// ItemDeleter is the slice of the drive client file deletion needs.
type ItemDeleter interface {
	DeleteItem(ctx context.Context, token, itemID string) error
}

// FileService owns FileRecord persistence and the read paths that join
// records with signed download URLs.
type FileService struct {
	col    *mongo.Collection
	urls   *urlcache.Cache
	drive  ItemDeleter
	tokens urlcache.TokenSource
	logger *zap.Logger
}

func NewFileService(col *mongo.Collection, urls *urlcache.Cache, drive ItemDeleter, tokens urlcache.TokenSource, logger *zap.Logger) *FileService {
	return &FileService{col: col, urls: urls, drive: drive, tokens: tokens, logger: logger}
}

// Insert persists a new file record.
func (s *FileService) Insert(ctx context.Context, file *models.File) error {
	if file.ID.IsZero() {
		file.ID = primitive.NewObjectID()
	}
	now := time.Now()
	file.CreatedAt = now
	file.UpdatedAt = now
	if _, err := s.col.InsertOne(ctx, file); err != nil {
		return fmt.Errorf("failed to save file metadata: %w", err)
	}
	return nil
}

// ListByOwner returns all files the user owns or has been shared, each with
// current signed URLs resolved through the cache.
func (s *FileService) ListByOwner(ctx context.Context, userID string) ([]models.FileWithURLs, error) {
	filter := bson.M{"$or": []bson.M{
		{"owner_id": userID},
		{"shared_with": userID},
	}}
	cursor, err := s.col.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve files: %w", err)
	}
	defer cursor.Close(ctx)

	var files []models.File
	if err := cursor.All(ctx, &files); err != nil {
		return nil, fmt.Errorf("error decoding file metadata: %w", err)
	}

	out := make([]models.FileWithURLs, 0, len(files))
	for _, f := range files {
		entry := models.FileWithURLs{File: f}
		pair, err := s.urls.GetURLs(ctx, f.RemoteObjectID, f.RemoteThumbnailID)
		if err != nil {
			// A listing should not fail because one object's URL could not
			// be minted right now.
			s.logger.Warn("could not resolve download URL",
				zap.String("file_id", f.ID.Hex()), zap.Error(err))
		} else {
			entry.PublicDownloadURL = pair.FileURL
			entry.PublicThumbnailDownloadURL = pair.ThumbnailURL
		}
		out = append(out, entry)
	}
	return out, nil
}

// GetByID returns one file with resolved URLs, enforcing owner/shared access.
func (s *FileService) GetByID(ctx context.Context, fileID, userID string) (models.FileWithURLs, error) {
	objID, err := primitive.ObjectIDFromHex(fileID)
	if err != nil {
		return models.FileWithURLs{}, fmt.Errorf("invalid file ID: %w", err)
	}

	var file models.File
	if err := s.col.FindOne(ctx, bson.M{"_id": objID}).Decode(&file); err != nil {
		return models.FileWithURLs{}, fmt.Errorf("file not found: %w", err)
	}
	if !canAccess(file, userID) {
		return models.FileWithURLs{}, errors.New("unauthorized access")
	}

	entry := models.FileWithURLs{File: file}
	pair, err := s.urls.GetURLs(ctx, file.RemoteObjectID, file.RemoteThumbnailID)
	if err != nil {
		return models.FileWithURLs{}, err
	}
	entry.PublicDownloadURL = pair.FileURL
	entry.PublicThumbnailDownloadURL = pair.ThumbnailURL
	return entry, nil
}

// Share grants another user read access to a file.
func (s *FileService) Share(ctx context.Context, fileID, ownerID, targetUserID string) error {
	objID, err := primitive.ObjectIDFromHex(fileID)
	if err != nil {
		return fmt.Errorf("invalid file ID: %w", err)
	}

	res, err := s.col.UpdateOne(ctx,
		bson.M{"_id": objID, "owner_id": ownerID},
		bson.M{
			"$addToSet": bson.M{"shared_with": targetUserID},
			"$set":      bson.M{"updated_at": time.Now()},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to share file: %w", err)
	}
	if res.MatchedCount == 0 {
		return errors.New("file not found or access denied")
	}
	return nil
}

// Delete removes the record and, best effort, the remote objects. Cache
// entries for the affected objects are invalidated before returning.
func (s *FileService) Delete(ctx context.Context, fileID, ownerID string) error {
	objID, err := primitive.ObjectIDFromHex(fileID)
	if err != nil {
		return fmt.Errorf("invalid file ID: %w", err)
	}

	var file models.File
	if err := s.col.FindOne(ctx, bson.M{"_id": objID, "owner_id": ownerID}).Decode(&file); err != nil {
		return fmt.Errorf("file not found or access denied: %w", err)
	}

	if _, err := s.col.DeleteOne(ctx, bson.M{"_id": objID}); err != nil {
		return fmt.Errorf("failed to delete file record: %w", err)
	}

	// Remote deletion is best effort; an orphaned drive object is preferable
	// to a record pointing at nothing.
	if cred, err := s.tokens.GetToken(ctx, false); err != nil {
		s.logger.Warn("skipping remote delete, no token", zap.Error(err))
	} else {
		for _, itemID := range []string{file.RemoteObjectID, file.RemoteThumbnailID} {
			if itemID == "" {
				continue
			}
			if err := s.drive.DeleteItem(ctx, cred.AccessToken, itemID); err != nil {
				s.logger.Warn("remote delete failed",
					zap.String("item_id", itemID), zap.Error(err))
			}
		}
	}

	s.urls.Invalidate(file.RemoteObjectID)
	return nil
}

func canAccess(file models.File, userID string) bool {
	if file.OwnerID == userID {
		return true
	}
	for _, id := range file.SharedWith {
		if id == userID {
			return true
		}
	}
	return false
}
