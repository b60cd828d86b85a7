package errs

import (
	"errors"
	"fmt"
	"strings"

	"quicktalk/internal/app/message"
	"quicktalk/internal/app/presence"
	"quicktalk/internal/app/storage"
	"quicktalk/internal/app/user"
	"quicktalk/internal/pkg/logx"
)

// CustomError is the error type returned to clients. It carries a business code,
// a user-facing message and the HTTP status used on REST responses.
type CustomError struct {
	Code    int
	Message string
	Status  int
}

// Error implements the error interface.
func (e CustomError) Error() string {
	return fmt.Sprintf("Error Code %d (HTTP %d): %s", e.Code, e.Status, e.Message)
}

// NewError builds a *CustomError for code. details are printf arguments applied to the
// message template when it has placeholders. Unknown codes collapse to ErrUnknown.
func NewError(code int, details ...any) *CustomError {
	template, ok := errorMap[code]
	if !ok {
		logx.Error(errors.New("unknown error code"), "NewError called with a code missing from errorMap", "requested_code", code)
		template = errorMap[ErrUnknown]
	}

	customErr := template

	if len(details) > 0 {
		if strings.Contains(customErr.Message, "%") {
			customErr.Message = fmt.Sprintf(customErr.Message, details...)
		} else if cause, ok := details[0].(error); ok {
			logx.Error(cause, "Error details attached to code", "code", code)
		}
	}

	return &customErr
}

// FromDomain translates errors returned by the domain packages into client errors.
// Anything unrecognised becomes ErrUnknown and is logged with its cause.
func FromDomain(err error) *CustomError {
	if err == nil {
		return nil
	}

	var customErr *CustomError
	if errors.As(err, &customErr) {
		return customErr
	}

	switch {
	case errors.Is(err, message.ErrInvalidType):
		return NewError(ErrInvalidMessageType)
	case errors.Is(err, message.ErrContentTooLong):
		var tooLong *message.LengthError
		if errors.As(err, &tooLong) {
			return NewError(ErrMessageContentTooLong, tooLong.Limit)
		}
		return NewError(ErrMessageContentTooLong, message.MaxTextLength)
	case errors.Is(err, message.ErrInvalidPayloadURL):
		return NewError(ErrMessagePayloadInvalid)
	case errors.Is(err, message.ErrContentEmpty):
		return NewError(ErrMessageContentEmpty)
	case errors.Is(err, message.ErrReceiverNotFound):
		return NewError(ErrReceiverNotFound)
	case errors.Is(err, message.ErrInvalidParticipant):
		return NewError(ErrInvalidParams)
	case errors.Is(err, message.ErrStorageUnavailable), errors.Is(err, user.ErrStorageUnavailable):
		return NewError(ErrStorageUnavailable, err)
	case errors.Is(err, user.ErrNotFound):
		return NewError(ErrUserNotFound)
	case errors.Is(err, user.ErrEmailTaken):
		return NewError(ErrUserAlreadyExists)
	case errors.Is(err, user.ErrInvalidEmail):
		return NewError(ErrInvalidEmail)
	case errors.Is(err, user.ErrInvalidGender):
		return NewError(ErrInvalidGender)
	case errors.Is(err, user.ErrInvalidFullName):
		return NewError(ErrInvalidFullName)
	case errors.Is(err, presence.ErrNotAuthenticated), errors.Is(err, presence.ErrConnClosed):
		return NewError(ErrNotAuthenticated)
	case errors.Is(err, presence.ErrIdentityMismatch):
		return NewError(ErrIdentityMismatch)
	case errors.Is(err, presence.ErrInvalidRoom):
		return NewError(ErrRoomInvalid)
	case errors.Is(err, storage.ErrFileTypeNotAllowed):
		return NewError(ErrFileTypeNotAllowed)
	case errors.Is(err, storage.ErrFileTooLarge):
		var tooLarge *storage.SizeError
		if errors.As(err, &tooLarge) {
			return NewError(ErrFileSizeTooLarge, tooLarge.LimitMB)
		}
		return NewError(ErrFileSizeTooLarge, storage.MaxUploadSizeMB)
	case errors.Is(err, storage.ErrUploadFailed):
		return NewError(ErrFileStorageFailed, err)
	}

	return NewError(ErrUnknown, err)
}
