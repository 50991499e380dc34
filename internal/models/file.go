package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// File is the persisted record for one uploaded file. It only references
// objects in the remote drive; any local temp buffer is gone by the time a
// record exists.
type File struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name              string             `bson:"name" json:"name"`
	OriginalName      string             `bson:"original_name" json:"original_name"`
	Description       string             `bson:"description,omitempty" json:"description,omitempty"`
	FileTypes         []string           `bson:"file_types" json:"file_types"`
	CategoryIDs       []string           `bson:"category_ids" json:"category_ids"`
	RemoteObjectID    string             `bson:"remote_object_id" json:"remote_object_id"`
	RemoteThumbnailID string             `bson:"remote_thumbnail_id,omitempty" json:"remote_thumbnail_id,omitempty"`
	MimeType          string             `bson:"mime_type" json:"mime_type"`
	Size              int64              `bson:"size" json:"size"`
	OwnerID           string             `bson:"owner_id" json:"owner_id"`
	SharedWith        []string           `bson:"shared_with" json:"shared_with"`
	CreatedAt         time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time          `bson:"updated_at" json:"updated_at"`
}

// FileWithURLs is a File joined with its current signed download links, as
// returned by listing endpoints and the upload completion event.
type FileWithURLs struct {
	File                       `bson:",inline"`
	PublicDownloadURL          string `json:"public_download_url,omitempty"`
	PublicThumbnailDownloadURL string `json:"public_thumbnail_download_url,omitempty"`
}
