package handler

import (
	"net/http"

	"quicktalk/internal/app/message"
	"quicktalk/internal/app/storage"
	"quicktalk/internal/pkg/auth/jwt"
	"quicktalk/internal/pkg/errs"
	"quicktalk/internal/pkg/req"
	"quicktalk/internal/pkg/resp"
)

type PresignUploadInput struct {
	FileName    string `json:"fileName"`
	MimeType    string `json:"mimeType"`
	FileSize    int64  `json:"fileSize"`
	MessageType string `json:"messageType,omitempty"`
}

// HandlePresignMessageFileURL returns an upload URL for the payload of an audio, image or
// file message. The returned fileUrl becomes the message content.
func HandlePresignMessageFileURL(deps *AppDeps) http.HandlerFunc {
	return handlePresign(deps, func(in PresignUploadInput) (storage.Kind, bool) {
		switch message.Type(in.MessageType) {
		case message.TypeImage:
			return storage.KindImage, true
		case message.TypeAudio:
			return storage.KindAudio, true
		case message.TypeFile:
			return storage.KindFile, true
		}
		return "", false
	})
}

func handlePresign(deps *AppDeps, kindOf func(PresignUploadInput) (storage.Kind, bool)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.StorageService == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageDisabled))
			return
		}

		var input PresignUploadInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		kind, ok := kindOf(input)
		if !ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidMessageType))
			return
		}

		upload := storage.UploadRequest{
			Kind:     kind,
			OwnerID:  jwt.IdentityFromContext(r),
			FileName: input.FileName,
			MimeType: input.MimeType,
			Size:     input.FileSize,
		}
		if err := upload.Validate(); err != nil {
			resp.RespondDomainError(w, r, err)
			return
		}

		key := upload.Key()
		url, err := deps.StorageService.PresignUpload(r.Context(), key, input.MimeType, input.FileSize, storage.PresignedURLDuration)
		if err != nil {
			resp.RespondDomainError(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"presignedUrl": url,
			"fileKey":      key,
			"fileUrl":      deps.StorageService.ObjectURL(key),
			"fileName":     input.FileName,
			"mimeType":     input.MimeType,
			"fileSize":     input.FileSize,
			"expiresIn":    int(storage.PresignedURLDuration.Seconds()),
		})
	}
}
