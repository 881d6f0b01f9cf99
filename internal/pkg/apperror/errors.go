package apperror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
)

type ErrorCode string

const (
	ErrCodeNotFound          ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized      ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden         ErrorCode = "FORBIDDEN"
	ErrCodeBadRequest        ErrorCode = "BAD_REQUEST"
	ErrCodeConflict          ErrorCode = "CONFLICT"
	ErrCodeInternal          ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation        ErrorCode = "VALIDATION_ERROR"
	ErrCodeIllegalState      ErrorCode = "ILLEGAL_STATE"
	ErrCodeAlreadyStarted    ErrorCode = "ALREADY_STARTED"
	ErrCodeInsufficientFunds ErrorCode = "INSUFFICIENT_FUNDS"
)

type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
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

// InsufficientFundsError сообщает, сколько нужно для списания и сколько есть на балансе.
type InsufficientFundsError struct {
	*AppError
	Required  decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientFundsError) Unwrap() error {
	return e.AppError
}

// InsufficientFunds создаёт ошибку нехватки средств.
func InsufficientFunds(required, available decimal.Decimal) *InsufficientFundsError {
	return &InsufficientFundsError{
		AppError: New(ErrCodeInsufficientFunds,
			fmt.Sprintf("недостаточно средств: требуется %s, доступно %s", required.StringFixed(2), available.StringFixed(2))),
		Required:  required,
		Available: available,
	}
}

func Validation(message string) *AppError {
	return New(ErrCodeValidation, message)
}

func NotFound(message string) *AppError {
	return New(ErrCodeNotFound, message)
}

func IllegalState(message string) *AppError {
	return New(ErrCodeIllegalState, message)
}

func Conflict(message string) *AppError {
	return New(ErrCodeConflict, message)
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeBadRequest, ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeConflict, ErrCodeIllegalState, ErrCodeAlreadyStarted:
		return http.StatusConflict
	case ErrCodeInsufficientFunds:
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

// CodeOf возвращает код ошибки приложения или пустую строку.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

func IsNotFound(err error) bool {
	return CodeOf(err) == ErrCodeNotFound
}

func IsValidation(err error) bool {
	return CodeOf(err) == ErrCodeValidation
}

func IsIllegalState(err error) bool {
	return CodeOf(err) == ErrCodeIllegalState
}

func IsConflict(err error) bool {
	return CodeOf(err) == ErrCodeConflict
}

func IsAlreadyStarted(err error) bool {
	return CodeOf(err) == ErrCodeAlreadyStarted
}

func IsInsufficientFunds(err error) bool {
	var fundsErr *InsufficientFundsError
	return errors.As(err, &fundsErr)
}

var (
	ErrOrderNotFound     = New(ErrCodeNotFound, "заказ не найден")
	ErrResponseNotFound  = New(ErrCodeNotFound, "отклик не найден")
	ErrAlreadyStarted    = New(ErrCodeAlreadyStarted, "работа по заказу уже начата")
	ErrConcurrentUpdate  = New(ErrCodeConflict, "данные изменились, повторите запрос")
	ErrDuplicateResponse = New(ErrCodeConflict, "вы уже откликнулись на этот заказ")
)
