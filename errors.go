package auth

import (
	"errors"
	"net/http"
	"strings"
)

// ErrorKind classifies auth failures.
type ErrorKind string

const (
	KindMalformedCredential ErrorKind = "malformed_credential"
	KindExpiredCredential   ErrorKind = "expired_credential"
	KindInvalidSignature    ErrorKind = "invalid_signature"
	KindProviderDenied      ErrorKind = "provider_denied"
	KindNetworkFailure      ErrorKind = "network_failure"
	KindBlockedAccount      ErrorKind = "blocked_account"
	KindUnauthenticated     ErrorKind = "unauthenticated"
	KindForbidden           ErrorKind = "forbidden"
	KindValidation          ErrorKind = "validation"
	KindNotFound            ErrorKind = "not_found"
	KindInternal            ErrorKind = "internal"
)

// Error is a categorized auth error. Sentinel values are compared by kind and
// text code so wrapped copies still match with errors.Is.
type Error struct {
	Kind     ErrorKind
	TextCode string
	Code     int
	Message  string
	Metadata map[string]any
	cause    error
}

// NewError returns a categorized error for sub packages to declare their
// own sentinels with.
func NewError(kind ErrorKind, code int, textCode, message string) *Error {
	return &Error{Kind: kind, Code: code, TextCode: textCode, Message: message}
}

func newError(kind ErrorKind, code int, textCode, message string) *Error {
	return NewError(kind, code, textCode, message)
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches errors of the same kind and text code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.TextCode == t.TextCode
}

// Wrap returns a copy of e carrying cause.
func (e *Error) Wrap(cause error) *Error {
	c := *e
	c.cause = cause
	return &c
}

// WithMetadata returns a copy of e with extra metadata.
func (e *Error) WithMetadata(meta map[string]any) *Error {
	c := *e
	c.Metadata = make(map[string]any, len(e.Metadata)+len(meta))
	for k, v := range e.Metadata {
		c.Metadata[k] = v
	}
	for k, v := range meta {
		c.Metadata[k] = v
	}
	return &c
}

var (
	// ErrMalformedCredential is returned for tokens that cannot be parsed
	ErrMalformedCredential = newError(KindMalformedCredential, http.StatusUnauthorized, "CREDENTIAL_MALFORMED", "credential is malformed")
	// ErrExpiredCredential is returned for tokens past their expiry
	ErrExpiredCredential = newError(KindExpiredCredential, http.StatusUnauthorized, "CREDENTIAL_EXPIRED", "credential is expired")
	// ErrInvalidSignature is returned when the token signature does not verify
	ErrInvalidSignature = newError(KindInvalidSignature, http.StatusUnauthorized, "CREDENTIAL_SIGNATURE_INVALID", "credential signature is invalid")
	// ErrProviderDenied is returned when an OAuth provider refuses authorization
	ErrProviderDenied = newError(KindProviderDenied, http.StatusUnauthorized, "PROVIDER_DENIED", "authentication failed")
	// ErrNetworkFailure is returned when a remote call could not complete
	ErrNetworkFailure = newError(KindNetworkFailure, http.StatusBadGateway, "NETWORK_FAILURE", "network failure")
	// ErrBlockedAccount is returned for accounts an admin has blocked
	ErrBlockedAccount = newError(KindBlockedAccount, http.StatusForbidden, "ACCOUNT_BLOCKED", "Account blocked")

	// ErrUnauthenticated is the uniform rejection for missing or invalid credentials
	ErrUnauthenticated = newError(KindUnauthenticated, http.StatusUnauthorized, "UNAUTHENTICATED", "Unauthorized")
	// ErrRoleSelectionRequired is returned when a surface needs a role and none is set
	ErrRoleSelectionRequired = newError(KindForbidden, http.StatusForbidden, "ROLE_SELECTION_REQUIRED", "role selection required")
	// ErrRoleAlreadySelected is returned when selecting a role twice
	ErrRoleAlreadySelected = newError(KindForbidden, http.StatusForbidden, "ROLE_ALREADY_SELECTED", "role already selected")
	// ErrForbidden is returned when the role does not grant access
	ErrForbidden = newError(KindForbidden, http.StatusForbidden, "FORBIDDEN", "access denied")
	// ErrCredentialRevoked is returned for credentials invalidated at logout
	ErrCredentialRevoked = newError(KindUnauthenticated, http.StatusUnauthorized, "CREDENTIAL_REVOKED", "credential revoked")

	// ErrIdentityNotFound is the error we return for non found identities
	ErrIdentityNotFound = newError(KindNotFound, http.StatusNotFound, "IDENTITY_NOT_FOUND", "identity not found")
	// ErrMismatchedHashAndPassword is returned for bad credentials
	ErrMismatchedHashAndPassword = newError(KindUnauthenticated, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid email or password")
	// ErrNoEmptyString is returned when hashing an empty password
	ErrNoEmptyString = newError(KindValidation, http.StatusBadRequest, "EMPTY_PASSWORD", "password must not be empty")
	// ErrEmailTaken is returned when registering an email twice
	ErrEmailTaken = newError(KindValidation, http.StatusConflict, "EMAIL_TAKEN", "email already registered")
	// ErrValidation is returned for invalid payloads
	ErrValidation = newError(KindValidation, http.StatusBadRequest, "VALIDATION_FAILED", "validation failed")
	// ErrInternal wraps unexpected failures
	ErrInternal = newError(KindInternal, http.StatusInternalServerError, "INTERNAL", "An unexpected server error occurred")
)

// KindOf returns the kind of err, or KindInternal for foreign errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsCredentialError reports whether err is one of the three verifier failures.
func IsCredentialError(err error) bool {
	switch KindOf(err) {
	case KindMalformedCredential, KindExpiredCredential, KindInvalidSignature:
		return true
	default:
		return false
	}
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	return errors.Is(err, ErrExpiredCredential)
}

// IsMalformedError will check for malformed tokens
func IsMalformedError(err error) bool {
	return errors.Is(err, ErrMalformedCredential)
}

// IsBlockedMessage reports whether a server message signals a blocked account.
// Matching is a case-insensitive substring check on "blocked".
func IsBlockedMessage(message string) bool {
	return strings.Contains(strings.ToLower(message), "blocked")
}

// HTTPStatus returns the status code to answer with for err.
func HTTPStatus(err error) int {
	var e *Error
	if errors.As(err, &e) && e.Code > 0 {
		return e.Code
	}
	return http.StatusInternalServerError
}
