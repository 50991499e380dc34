package uploader

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/fileportal/server/internal/graph"
	"go.uber.org/zap"
)

// ChunkSize is the fixed chunk length for large uploads. Payloads strictly
// below it take the single-PUT path; everything else goes through an upload
// session in contiguous ChunkSize pieces (last one may be shorter).
const ChunkSize = 4 << 20

// Payload is one in-memory file handed to the engine.
type Payload struct {
	Bytes    []byte
	Name     string
	MimeType string
	Size     int64
}

// UploadFailedError is a rejected PUT at any step of an upload, carrying the
// remote store's error payload. The engine never retries; retry policy
// belongs to the caller.
type UploadFailedError struct {
	Status        int
	RemoteMessage string
}

func (e *UploadFailedError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("upload failed (status %d): %s", e.Status, e.RemoteMessage)
	}
	return "upload failed: " + e.RemoteMessage
}

// DriveAPI is the slice of the drive client the engine needs.
type DriveAPI interface {
	SimplePut(ctx context.Context, token, folder, name, mimeType string, data []byte) (*graph.RemoteObject, error)
	CreateUploadSession(ctx context.Context, token, folder, name string) (string, error)
	PutChunk(ctx context.Context, uploadURL string, chunk []byte, start, end, total int64) (*graph.RemoteObject, error)
}

// Engine drives a whole file into the remote store, reporting fractional
// progress after each acknowledged chunk. Chunks are sent strictly in
// increasing offset order, one at a time; the store requires sequential
// contiguous ranges.
type Engine struct {
	drive    DriveAPI
	throttle time.Duration
	logger   *zap.Logger
}

func NewEngine(drive DriveAPI, throttle time.Duration, logger *zap.Logger) *Engine {
	return &Engine{drive: drive, throttle: throttle, logger: logger}
}

// Upload stores file under folder/name and returns the terminal item
// descriptor. onProgress, when non-nil, receives whole percentages: 0 and 100
// for the small-file path, a value after every chunk otherwise.
func (e *Engine) Upload(ctx context.Context, folder string, file Payload, token string, onProgress func(int)) (*graph.RemoteObject, error) {
	report := func(p int) {
		if onProgress != nil {
			onProgress(p)
		}
	}

	if file.Size < ChunkSize {
		report(0)
		obj, err := e.drive.SimplePut(ctx, token, folder, file.Name, file.MimeType, file.Bytes)
		if err != nil {
			return nil, asUploadFailed(err)
		}
		report(100)
		return obj, nil
	}

	uploadURL, err := e.drive.CreateUploadSession(ctx, token, folder, file.Name)
	if err != nil {
		return nil, asUploadFailed(err)
	}

	total := file.Size
	var final *graph.RemoteObject
	for start := int64(0); start < total; start += ChunkSize {
		end := start + ChunkSize
		if end > total {
			end = total
		}

		obj, err := e.drive.PutChunk(ctx, uploadURL, file.Bytes[start:end], start, end-1, total)
		if err != nil {
			return nil, asUploadFailed(err)
		}
		final = obj

		report(int(math.Round(float64(end) / float64(total) * 100)))

		if e.throttle > 0 && end < total {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(e.throttle):
			}
		}
	}

	if final == nil {
		return nil, &UploadFailedError{RemoteMessage: "upload session completed without an item descriptor"}
	}
	e.logger.Debug("chunked upload finished",
		zap.String("name", file.Name),
		zap.Int64("size", total),
		zap.String("item_id", final.ID))
	return final, nil
}

func asUploadFailed(err error) error {
	var apiErr *graph.APIError
	if errors.As(err, &apiErr) {
		return &UploadFailedError{Status: apiErr.Status, RemoteMessage: apiErr.Message}
	}
	return &UploadFailedError{RemoteMessage: err.Error()}
}
