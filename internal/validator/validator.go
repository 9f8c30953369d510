// Package validator holds the file acceptance predicates used before a file
// may be bound to an upload slot.
package validator

import "github.com/file-loader/backend/internal/models"

// MaxFileSize is the per-file size limit (25 MiB).
const MaxFileSize int64 = 25 * 1024 * 1024

// DefaultAcceptedTypes applies until a category has been chosen.
var DefaultAcceptedTypes = []string{
	"image/png",
	"image/jpeg",
	"image/gif",
	"image/bmp",
	"application/pdf",
}

// IsAcceptedType reports whether the file's MIME type is in acceptedTypes.
// Matching is exact: no wildcards, no prefixes, no parameter stripping.
func IsAcceptedType(file *models.FileDescriptor, acceptedTypes []string) bool {
	if file == nil {
		return false
	}
	for _, t := range acceptedTypes {
		if file.MimeType == t {
			return true
		}
	}
	return false
}

// IsAcceptedSize reports whether the file fits within maxBytes.
func IsAcceptedSize(file *models.FileDescriptor, maxBytes int64) bool {
	if file == nil {
		return false
	}
	return file.Size <= maxBytes
}

// Accepts combines both predicates against the global size limit.
func Accepts(file *models.FileDescriptor, acceptedTypes []string) bool {
	return IsAcceptedType(file, acceptedTypes) && IsAcceptedSize(file, MaxFileSize)
}
