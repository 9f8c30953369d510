package models

import "time"

// FileInfo represents metadata about a stored file blob.
type FileInfo struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	MimeType   string    `json:"mimeType"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// Descriptor returns the handle a widget slot holds for this blob.
func (f *FileInfo) Descriptor() *FileDescriptor {
	return &FileDescriptor{
		ID:       f.ID,
		Name:     f.Name,
		Size:     f.Size,
		MimeType: f.MimeType,
	}
}
