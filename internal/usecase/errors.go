package usecase

import "errors"

// Error codes surfaced by the mutation gateway.
const (
	CodeInvalidRecord = "INVALID_RECORD"
	CodeNotFound      = "NOT_FOUND"
	CodeTimeout       = "TIMEOUT"
	CodeValidation    = "VALIDATION_ERROR"
	CodeRemoteError   = "REMOTE_ERROR"
	CodeDatabaseError = "DATABASE_ERROR"
	CodeMissingStamp  = "MISSING_TIMESTAMP"
)

type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

type TechnicalError struct {
	Code    string
	Message string
}

func (e *TechnicalError) Error() string {
	return e.Message
}

func IsTechnicalError(err error) bool {
	var te *TechnicalError
	return errors.As(err, &te)
}

// ErrorCode extracts the code from either error kind, "" otherwise.
func ErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	var te *TechnicalError
	if errors.As(err, &te) {
		return te.Code
	}
	return ""
}

func IsNotFound(err error) bool {
	return ErrorCode(err) == CodeNotFound
}

func IsTimeout(err error) bool {
	return ErrorCode(err) == CodeTimeout
}
