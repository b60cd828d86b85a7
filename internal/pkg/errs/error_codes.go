/*
Package errs provides the application error type and the business error codes shared by the
HTTP and websocket surfaces.
*/
package errs

// 1xxx: request shape and boundary errors (Validation, RateLimited)
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body is not valid JSON.
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates trailing data after the JSON document.
	ErrExtraContentInBody = 1004

	// ErrRequestEntityTooLarge indicates that the request body exceeded the server limit.
	ErrRequestEntityTooLarge = 1006

	// ErrRateLimitExceeded indicates that the caller's address exhausted its send window.
	ErrRateLimitExceeded = 1007

	// ErrFileTypeNotAllowed indicates an upload whose MIME type or extension is not accepted.
	ErrFileTypeNotAllowed = 1008

	// ErrFileSizeTooLarge indicates an upload above the size limit for its kind.
	ErrFileSizeTooLarge = 1009
)

// 2xxx: messaging errors
const (
	// ErrInvalidMessageType indicates a messageType outside text/audio/image/file.
	ErrInvalidMessageType = 2201

	// ErrMessageContentTooLong indicates content above the character limit of its type.
	ErrMessageContentTooLong = 2202

	// ErrMessageContentEmpty indicates empty or whitespace-only content.
	ErrMessageContentEmpty = 2203

	// ErrMessagePayloadInvalid indicates an audio, image or file message whose content is not
	// an http, https or data URL.
	ErrMessagePayloadInvalid = 2204

	// ErrReceiverNotFound indicates that the addressed receiver does not exist.
	ErrReceiverNotFound = 2301

	// ErrNotAuthenticated indicates a realtime action attempted before authenticate.
	ErrNotAuthenticated = 2401

	// ErrIdentityMismatch indicates an attempt to re-authenticate a connection as someone else.
	ErrIdentityMismatch = 2402

	// ErrRoomInvalid indicates an empty or disallowed room id.
	ErrRoomInvalid = 2403
)

// 3xxx: user, session and security errors
const (
	// ErrPowChallengeRequired indicates the client must complete a proof-of-work challenge first.
	ErrPowChallengeRequired = 3001

	// ErrPowChallengeInvalid indicates that the proof-of-work answer is wrong or expired.
	ErrPowChallengeInvalid = 3002

	// ErrUnauthorized indicates a missing or invalid credential.
	ErrUnauthorized = 3005

	// ErrInvalidEmail indicates a malformed email address.
	ErrInvalidEmail = 3006

	// ErrInvalidPassword indicates a password that does not satisfy the policy.
	ErrInvalidPassword = 3007

	// ErrInvalidFullName indicates a display name outside the allowed length.
	ErrInvalidFullName = 3008

	// ErrUserAlreadyExists indicates that the email is already registered.
	ErrUserAlreadyExists = 3009

	// ErrUserNotFound indicates that the referenced account does not exist.
	ErrUserNotFound = 3010

	// ErrInvalidCredentials indicates an email/password mismatch on login.
	ErrInvalidCredentials = 3011

	// ErrInvalidGender indicates a gender outside male/female/other/unset.
	ErrInvalidGender = 3012
)

// 5xxx: internal system errors
const (
	// ErrUnknown represents an unclassified internal error.
	ErrUnknown = 5000

	// ErrStorageUnavailable indicates the durable store could not be reached.
	ErrStorageUnavailable = 5001

	// ErrFileStorageFailed indicates the blob store rejected or failed a request.
	ErrFileStorageFailed = 5002

	// ErrFileStorageDisabled indicates that no blob store is configured.
	ErrFileStorageDisabled = 5003
)
