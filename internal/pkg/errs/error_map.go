package errs

import "net/http"

// errorMap holds the client-facing message and HTTP status of every error code.
var errorMap = map[int]CustomError{
	ErrInvalidParams:         {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrUnsupportedMediaType:  {Code: ErrUnsupportedMediaType, Message: "Unsupported request format.", Status: http.StatusUnsupportedMediaType},
	ErrInvalidJSONFormat:     {Code: ErrInvalidJSONFormat, Message: "Malformed JSON body.", Status: http.StatusBadRequest},
	ErrExtraContentInBody:    {Code: ErrExtraContentInBody, Message: "Request contains unexpected data.", Status: http.StatusBadRequest},
	ErrRequestEntityTooLarge: {Code: ErrRequestEntityTooLarge, Message: "Request size is too large.", Status: http.StatusRequestEntityTooLarge},
	ErrRateLimitExceeded:     {Code: ErrRateLimitExceeded, Message: "Too many messages sent from this address, please try again later.", Status: http.StatusTooManyRequests},
	ErrFileTypeNotAllowed:    {Code: ErrFileTypeNotAllowed, Message: "This file type is not allowed.", Status: http.StatusBadRequest},
	ErrFileSizeTooLarge:      {Code: ErrFileSizeTooLarge, Message: "File must be between 1 byte and %d MB.", Status: http.StatusBadRequest},

	ErrInvalidMessageType:    {Code: ErrInvalidMessageType, Message: "Invalid messageType.", Status: http.StatusBadRequest},
	ErrMessageContentTooLong: {Code: ErrMessageContentTooLong, Message: "Message content must be between 1 and %d characters.", Status: http.StatusBadRequest},
	ErrMessageContentEmpty:   {Code: ErrMessageContentEmpty, Message: "Message content is required.", Status: http.StatusBadRequest},
	ErrMessagePayloadInvalid: {Code: ErrMessagePayloadInvalid, Message: "Message content must be an http, https or data URL.", Status: http.StatusBadRequest},
	ErrReceiverNotFound:      {Code: ErrReceiverNotFound, Message: "Receiver not found.", Status: http.StatusNotFound},
	ErrNotAuthenticated:      {Code: ErrNotAuthenticated, Message: "Authenticate the connection first.", Status: http.StatusUnauthorized},
	ErrIdentityMismatch:      {Code: ErrIdentityMismatch, Message: "Connection is already authenticated as another user.", Status: http.StatusConflict},
	ErrRoomInvalid:           {Code: ErrRoomInvalid, Message: "Invalid room.", Status: http.StatusBadRequest},

	ErrPowChallengeRequired: {Code: ErrPowChallengeRequired, Message: "Verification required. Please try again.", Status: http.StatusForbidden},
	ErrPowChallengeInvalid:  {Code: ErrPowChallengeInvalid, Message: "Verification failed. Please try again.", Status: http.StatusForbidden},
	ErrUnauthorized:         {Code: ErrUnauthorized, Message: "Please sign in to continue.", Status: http.StatusUnauthorized},
	ErrInvalidEmail:         {Code: ErrInvalidEmail, Message: "Please provide a valid email address.", Status: http.StatusBadRequest},
	ErrInvalidPassword:      {Code: ErrInvalidPassword, Message: "Password must be at least 6 characters and contain a letter and a number.", Status: http.StatusBadRequest},
	ErrInvalidFullName:      {Code: ErrInvalidFullName, Message: "Name must be between 2 and 50 characters.", Status: http.StatusBadRequest},
	ErrUserAlreadyExists:    {Code: ErrUserAlreadyExists, Message: "User already exists.", Status: http.StatusBadRequest},
	ErrUserNotFound:         {Code: ErrUserNotFound, Message: "User not found.", Status: http.StatusNotFound},
	ErrInvalidCredentials:   {Code: ErrInvalidCredentials, Message: "Invalid credentials.", Status: http.StatusBadRequest},
	ErrInvalidGender:        {Code: ErrInvalidGender, Message: "Invalid gender.", Status: http.StatusBadRequest},

	ErrUnknown:             {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrStorageUnavailable:  {Code: ErrStorageUnavailable, Message: "Storage is temporarily unavailable.", Status: http.StatusServiceUnavailable},
	ErrFileStorageFailed:   {Code: ErrFileStorageFailed, Message: "File upload failed. Please try again.", Status: http.StatusBadGateway},
	ErrFileStorageDisabled: {Code: ErrFileStorageDisabled, Message: "File uploads are not enabled on this server.", Status: http.StatusNotImplemented},
}
