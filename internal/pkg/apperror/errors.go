package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized  ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden     ErrorCode = "FORBIDDEN"
	ErrCodeBadRequest    ErrorCode = "BAD_REQUEST"
	ErrCodeConflict      ErrorCode = "CONFLICT"
	ErrCodeInternal      ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation    ErrorCode = "VALIDATION_ERROR"
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"

	// Коды конвейера проекции событий.
	ErrCodeEntityNotFound    ErrorCode = "ENTITY_NOT_FOUND"
	ErrCodeInvalidTransition ErrorCode = "INVALID_TRANSITION"
	ErrCodeDuplicateVote     ErrorCode = "DUPLICATE_VOTE"
	ErrCodeDuplicateClaim    ErrorCode = "DUPLICATE_CLAIM"
	ErrCodeUnroutableEvent   ErrorCode = "UNROUTABLE_EVENT"
	ErrCodeSchemaViolation   ErrorCode = "SCHEMA_VIOLATION"
	ErrCodeDisputeClosed     ErrorCode = "DISPUTE_CLOSED"
	ErrCodeAgentNotFound     ErrorCode = "AGENT_NOT_FOUND"
	ErrCodeStoreError        ErrorCode = "STORE_ERROR"
	ErrCodeRetryExhausted    ErrorCode = "RETRY_EXHAUSTED"
)

// Kind разделяет ошибки на временные (повтор доставки имеет смысл) и постоянные.
type Kind int

const (
	KindPermanent Kind = iota
	KindTransient
)

func (k Kind) String() string {
	if k == KindTransient {
		return "transient"
	}
	return "permanent"
}

type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Kind       Kind
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

// Transient помечает ошибку как временную.
func (e *AppError) Transient() *AppError {
	cp := *e
	cp.Kind = KindTransient
	return &cp
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound, ErrCodeEntityNotFound, ErrCodeAgentNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeBadRequest, ErrCodeValidation, ErrCodeSchemaViolation, ErrCodeUnroutableEvent:
		return http.StatusBadRequest
	case ErrCodeConflict, ErrCodeInvalidTransition, ErrCodeDuplicateVote, ErrCodeDuplicateClaim, ErrCodeDisputeClosed:
		return http.StatusConflict
	case ErrCodeStoreError:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func IsNotFound(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeNotFound
}

func IsForbidden(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeForbidden
}

func IsValidation(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeValidation
}

// IsTransient сообщает, стоит ли повторять доставку события.
// Ошибки, не являющиеся AppError, считаются постоянными.
func IsTransient(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Kind == KindTransient
}

// CodeOf возвращает код первой AppError в цепочке или ErrCodeInternal.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

func HasCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// EntityNotFound - родительская сущность ещё не спроецирована. Временная ошибка.
func EntityNotFound(entity, ref string) *AppError {
	return &AppError{
		Code:       ErrCodeEntityNotFound,
		Message:    fmt.Sprintf("%s %s не найден", entity, ref),
		HTTPStatus: http.StatusNotFound,
		Kind:       KindTransient,
	}
}

func InvalidTransition(current, requested, ref string) *AppError {
	return New(ErrCodeInvalidTransition,
		fmt.Sprintf("недопустимый переход %s -> %s для %s", current, requested, ref))
}

func DuplicateVote(disputeRef, voter string) *AppError {
	return New(ErrCodeDuplicateVote,
		fmt.Sprintf("голос %s по спору %s уже учтён", voter, disputeRef))
}

func DuplicateClaim(taskRef, agent, claimID string) *AppError {
	return New(ErrCodeDuplicateClaim,
		fmt.Sprintf("у агента %s уже есть активная заявка %s на задачу %s", agent, claimID, taskRef))
}

func Unroutable(tag string) *AppError {
	return New(ErrCodeUnroutableEvent, fmt.Sprintf("нет обработчика для события %q", tag))
}

func SchemaViolation(message string, cause error) *AppError {
	return Wrap(cause, ErrCodeSchemaViolation, message)
}

var (
	ErrTaskNotFound       = New(ErrCodeNotFound, "задача не найдена")
	ErrSubmissionNotFound = New(ErrCodeNotFound, "решение не найдено")
	ErrSubmissionExists   = New(ErrCodeConflict, "решение агента по задаче уже существует")
	ErrClaimNotFound      = New(ErrCodeNotFound, "заявка не найдена")
	ErrDisputeNotFound    = New(ErrCodeNotFound, "спор не найден")
	ErrVoteNotFound       = New(ErrCodeNotFound, "голос не найден")
	ErrVerdictNotFound    = New(ErrCodeNotFound, "вердикт не найден")
	ErrEventNotFound      = New(ErrCodeNotFound, "событие не найдено")
	ErrBlobNotFound       = New(ErrCodeNotFound, "объект хранилища не найден")
	ErrAgentNotFound      = New(ErrCodeAgentNotFound, "профиль агента не найден")
	ErrUnauthorized       = New(ErrCodeUnauthorized, "требуется авторизация")
	ErrForbidden          = New(ErrCodeForbidden, "недостаточно прав")
)
