package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"quicktalk/internal/pkg/randx"
)

const (
	// MaxUploadSizeMB bounds message payload uploads.
	MaxUploadSizeMB = 20

	// MaxAvatarSizeMB bounds profile picture uploads.
	MaxAvatarSizeMB = 5

	// PresignedURLDuration is how long an upload URL stays valid.
	PresignedURLDuration = 5 * time.Minute
)

var (
	ErrFileTypeNotAllowed = errors.New("file type not allowed")
	ErrFileTooLarge       = errors.New("file too large")
)

// SizeError is ErrFileTooLarge with the limit that was exceeded.
type SizeError struct {
	LimitMB int
}

func (e *SizeError) Error() string { return fmt.Sprintf("file too large (limit %d MB)", e.LimitMB) }

func (e *SizeError) Unwrap() error { return ErrFileTooLarge }

// Kind selects the allow-list and key prefix of an upload.
type Kind string

const (
	KindAvatar Kind = "avatars"
	KindImage  Kind = "image"
	KindAudio  Kind = "audio"
	KindFile   Kind = "file"
)

var imageTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
}

var audioTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".wav":  "audio/wav",
	".webm": "audio/webm",
}

var documentTypes = map[string]string{
	".pdf":  "application/pdf",
	".txt":  "text/plain",
	".zip":  "application/zip",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// allowedTypes returns the extension to MIME table for kind.
func allowedTypes(kind Kind) []map[string]string {
	switch kind {
	case KindAvatar, KindImage:
		return []map[string]string{imageTypes}
	case KindAudio:
		return []map[string]string{audioTypes}
	case KindFile:
		return []map[string]string{documentTypes, imageTypes, audioTypes}
	}
	return nil
}

// UploadRequest describes a file the client wants to upload.
type UploadRequest struct {
	Kind     Kind
	OwnerID  string
	FileName string
	MimeType string
	Size     int64
}

// Validate checks the request against the allow-list and size limit of its kind.
func (u UploadRequest) Validate() error {
	limitMB := MaxUploadSizeMB
	if u.Kind == KindAvatar {
		limitMB = MaxAvatarSizeMB
	}
	if u.Size <= 0 || u.Size > int64(limitMB)<<20 {
		return &SizeError{LimitMB: limitMB}
	}

	mime := strings.ToLower(strings.TrimSpace(u.MimeType))
	ext := strings.ToLower(filepath.Ext(u.FileName))
	if len(ext) < 2 {
		return ErrFileTypeNotAllowed
	}

	for _, table := range allowedTypes(u.Kind) {
		if expected, ok := table[ext]; ok && expected == mime {
			return nil
		}
	}
	return ErrFileTypeNotAllowed
}

// Key returns a fresh object key such as "image/<owner>/<uuid>.png".
func (u UploadRequest) Key() string {
	return fmt.Sprintf("%s/%s/%s%s", u.Kind, u.OwnerID, randx.NewID(), strings.ToLower(filepath.Ext(u.FileName)))
}
