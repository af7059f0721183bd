package apperrors

import (
	"errors"
)

var (
	// Transport level failures of the remote API
	ErrNetworkFailure  = errors.New("network failure")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrRenewalRejected = errors.New("token renewal rejected")
	ErrUnknown         = errors.New("unknown error")

	// Form level failures, surfaced to the user and never retried
	ErrValidationFailure  = errors.New("validation failed")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserAlreadyExists  = errors.New("username or email already taken")

	ErrNoRefreshToken     = errors.New("refresh token not found")
	ErrRequestNotReplayed = errors.New("request was not replayed")

	ErrCredentialNotFound = errors.New("credential not found")
	ErrStorageUnavailable = errors.New("credential storage unavailable")

	ErrNotificationNotFound = errors.New("notification not found")
	ErrDocumentNotFound     = errors.New("document not found")
)
