package handlers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fileportal/server/internal/services"
	"github.com/fileportal/server/internal/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	uploadService *services.UploadService
	fileService   *services.FileService
	uploadPool    *utils.WorkerPool
	fileLogger    *zap.Logger
)

// InitFileHandler wires the upload pipeline into the HTTP boundary.
func InitFileHandler(uploads *services.UploadService, files *services.FileService, pool *utils.WorkerPool, logger *zap.Logger) {
	uploadService = uploads
	fileService = files
	uploadPool = pool
	fileLogger = logger
}

// UploadFileHandler accepts a multipart upload, spools it to temp buffers and
// hands it to the orchestrator. It answers immediately with the upload id;
// progress and the outcome stream over the notification socket registered
// under that id.
func UploadFileHandler(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "failed to retrieve file"})
	}
	if fileHeader.Size == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "empty file rejected"})
	}

	uploadID := uuid.NewString()

	mainPath := tempPath(uploadID, fileHeader.Filename)
	if err := c.SaveFile(fileHeader, mainPath); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to buffer file"})
	}

	req := services.UploadRequest{
		UploadID: uploadID,
		MainFile: services.LocalFile{
			Path:     mainPath,
			Name:     fileHeader.Filename,
			MimeType: fileHeader.Header.Get("Content-Type"),
			Size:     fileHeader.Size,
		},
		OwnerID:     userID,
		FileTypes:   splitList(c.FormValue("file_types")),
		Categories:  splitList(c.FormValue("categories")),
		Name:        c.FormValue("name"),
		Description: c.FormValue("description"),
	}

	if thumbHeader, err := c.FormFile("thumbnail"); err == nil && thumbHeader.Size > 0 {
		thumbPath := tempPath(uploadID, "thumb_"+thumbHeader.Filename)
		if err := c.SaveFile(thumbHeader, thumbPath); err != nil {
			os.Remove(mainPath)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to buffer thumbnail"})
		}
		req.Thumbnail = &services.LocalFile{
			Path:     thumbPath,
			Name:     thumbHeader.Filename,
			MimeType: thumbHeader.Header.Get("Content-Type"),
			Size:     thumbHeader.Size,
		}
	}

	uploadPool.AddTask(func() {
		uploadService.ProcessUpload(context.Background(), req)
	})

	fileLogger.Info("upload accepted",
		zap.String("upload_id", uploadID),
		zap.String("owner_id", userID),
		zap.Int64("size", fileHeader.Size))

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message":   "Upload accepted",
		"upload_id": uploadID,
	})
}

// ListUserFilesHandler returns the caller's files with signed URLs.
func ListUserFilesHandler(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	files, err := fileService.ListByOwner(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"files": files})
}

// GetFileMetadataHandler returns one file with signed URLs.
func GetFileMetadataHandler(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	file, err := fileService.GetByID(c.Context(), c.Params("id"), userID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(file)
}

// ShareFileHandler grants another user access to a file.
func ShareFileHandler(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var request struct {
		UserID string `json:"user_id"`
	}
	if err := c.BodyParser(&request); err != nil || request.UserID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := fileService.Share(c.Context(), c.Params("id"), userID, request.UserID); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"message": "File shared successfully"})
}

// DeleteFileHandler deletes a file record and its remote objects.
func DeleteFileHandler(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	if err := fileService.Delete(c.Context(), c.Params("id"), userID); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"message": "File deleted successfully"})
}

func tempPath(uploadID, filename string) string {
	return filepath.Join(os.TempDir(), fmt.Sprintf("fileportal_%s_%s", uploadID, filepath.Base(filename)))
}

func splitList(raw string) []string {
	if raw == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
