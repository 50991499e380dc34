package services

import (
	"context"
	"errors"
	"os"

	"github.com/fileportal/server/internal/graph"
	"github.com/fileportal/server/internal/models"
	"github.com/fileportal/server/internal/uploader"
	"github.com/fileportal/server/internal/urlcache"
	"go.uber.org/zap"
)

// LocalFile is a request payload spooled to a temp buffer on disk by the HTTP
// boundary. The orchestrator owns the buffer from hand-off on and removes it
// whatever the outcome.
type LocalFile struct {
	Path     string
	Name     string
	MimeType string
	Size     int64
}

// Notifier delivers asynchronous upload events to the requester.
type Notifier interface {
	SendProgress(uploadID string, percent int)
	SendComplete(uploadID string, payload interface{})
	SendError(uploadID string, message string)
}

// UploadEngine transfers one payload into the remote store.
type UploadEngine interface {
	Upload(ctx context.Context, folder string, file uploader.Payload, token string, onProgress func(int)) (*graph.RemoteObject, error)
}

// RecordStore persists completed upload metadata.
type RecordStore interface {
	Insert(ctx context.Context, file *models.File) error
}

// URLResolver mints signed download URLs for stored objects.
type URLResolver interface {
	GetURLs(ctx context.Context, objectID, thumbnailID string) (urlcache.URLPair, error)
}

// Upload states, for logging and failure messages.
const (
	stateReceived           = "received"
	stateTokenAcquired      = "token_acquired"
	stateMainFileUploading  = "main_file_uploading"
	stateThumbnailUploading = "thumbnail_uploading"
	stateMetadataPersisting = "metadata_persisting"
	stateURLsResolved       = "urls_resolved"
)

// UploadRequest is everything the boundary hands over for one upload.
type UploadRequest struct {
	UploadID    string
	MainFile    LocalFile
	Thumbnail   *LocalFile
	OwnerID     string
	FileTypes   []string
	Categories  []string
	Name        string
	Description string
}

// UploadService orchestrates one upload end to end: token, chunked transfer
// with progress forwarding, optional thumbnail, metadata persistence, URL
// resolution, terminal notification. The caller's HTTP request has long been
// answered by the time any of this runs.
type UploadService struct {
	engine   UploadEngine
	tokens   urlcache.TokenSource
	urls     URLResolver
	records  RecordStore
	notifier Notifier
	folder   string
	logger   *zap.Logger
}

func NewUploadService(engine UploadEngine, tokens urlcache.TokenSource, urls URLResolver, records RecordStore, notifier Notifier, folder string, logger *zap.Logger) *UploadService {
	return &UploadService{
		engine:   engine,
		tokens:   tokens,
		urls:     urls,
		records:  records,
		notifier: notifier,
		folder:   folder,
		logger:   logger,
	}
}

// ProcessUpload runs the whole pipeline for one upload. The outcome is
// delivered through the notifier, never returned; delivery failures do not
// affect persistence. Temp buffers are removed on every path.
func (s *UploadService) ProcessUpload(ctx context.Context, req UploadRequest) {
	state := stateReceived
	log := s.logger.With(zap.String("upload_id", req.UploadID))

	defer s.cleanup(log, req.MainFile, req.Thumbnail)

	fail := func(err error) {
		log.Error("upload failed", zap.String("state", state), zap.Error(err))
		s.notifier.SendError(req.UploadID, err.Error())
	}

	if req.MainFile.Size == 0 {
		fail(errors.New("empty file rejected"))
		return
	}

	cred, err := s.tokens.GetToken(ctx, false)
	if err != nil {
		fail(err)
		return
	}
	state = stateTokenAcquired

	mainPayload, err := loadPayload(req.MainFile)
	if err != nil {
		fail(err)
		return
	}

	state = stateMainFileUploading
	mainObj, err := s.engine.Upload(ctx, s.folder, mainPayload, cred.AccessToken, func(percent int) {
		s.notifier.SendProgress(req.UploadID, percent)
	})
	if err != nil {
		fail(err)
		return
	}

	var thumbObj *graph.RemoteObject
	if req.Thumbnail != nil {
		state = stateThumbnailUploading
		thumbPayload, err := loadPayload(*req.Thumbnail)
		if err != nil {
			fail(err)
			return
		}
		// No progress reporting for thumbnails.
		thumbObj, err = s.engine.Upload(ctx, s.folder, thumbPayload, cred.AccessToken, nil)
		if err != nil {
			fail(err)
			return
		}
	}

	state = stateMetadataPersisting
	name := req.Name
	if name == "" {
		name = req.MainFile.Name
	}
	record := models.File{
		Name:           name,
		OriginalName:   req.MainFile.Name,
		Description:    req.Description,
		FileTypes:      req.FileTypes,
		CategoryIDs:    req.Categories,
		RemoteObjectID: mainObj.ID,
		MimeType:       req.MainFile.MimeType,
		Size:           req.MainFile.Size,
		OwnerID:        req.OwnerID,
		SharedWith:     []string{},
	}
	if thumbObj != nil {
		record.RemoteThumbnailID = thumbObj.ID
	}
	if err := s.records.Insert(ctx, &record); err != nil {
		fail(err)
		return
	}

	pair, err := s.urls.GetURLs(ctx, record.RemoteObjectID, record.RemoteThumbnailID)
	if err != nil {
		// The record exists; the client can list it later even though we
		// cannot hand out URLs right now.
		fail(err)
		return
	}
	state = stateURLsResolved

	s.notifier.SendComplete(req.UploadID, models.FileWithURLs{
		File:                       record,
		PublicDownloadURL:          pair.FileURL,
		PublicThumbnailDownloadURL: pair.ThumbnailURL,
	})
	log.Info("upload completed",
		zap.String("object_id", record.RemoteObjectID),
		zap.Int64("size", record.Size))
}

// cleanup removes the temp buffers. Failures are logged, never escalated;
// they must not mask the upload outcome.
func (s *UploadService) cleanup(log *zap.Logger, main LocalFile, thumb *LocalFile) {
	paths := []string{main.Path}
	if thumb != nil {
		paths = append(paths, thumb.Path)
	}
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			log.Warn("temp buffer cleanup failed", zap.String("path", p), zap.Error(err))
		}
	}
}

func loadPayload(f LocalFile) (uploader.Payload, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return uploader.Payload{}, errors.New("failed to read temp buffer: " + err.Error())
	}
	return uploader.Payload{
		Bytes:    data,
		Name:     f.Name,
		MimeType: f.MimeType,
		Size:     f.Size,
	}, nil
}
