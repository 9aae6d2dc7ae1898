package dto

import "github.com/noah-isme/gema-classroom-api/internal/models"

// UploadResponse describes the stored evidence returned to the client.
type UploadResponse struct {
	ID        uint   `json:"id"`
	URL       string `json:"url"`
	MediaKind string `json:"media_kind"`
	SizeBytes int64  `json:"size_bytes"`
	MimeType  string `json:"mime_type"`
	Checksum  string `json:"checksum"`
	FileName  string `json:"file_name"`
}

// NewUploadResponse converts an upload record.
func NewUploadResponse(record models.UploadRecord) UploadResponse {
	return UploadResponse{
		ID:        record.ID,
		URL:       record.URL,
		MediaKind: record.MediaKind,
		SizeBytes: record.SizeBytes,
		MimeType:  record.MimeType,
		Checksum:  record.Checksum,
		FileName:  record.FileName,
	}
}
