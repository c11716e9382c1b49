package errors

import (
	"errors"
	"net/http"
)

// Domain errors
var (
	ErrNotFound      = errors.New("resource not found")
	ErrAlreadyExists = errors.New("resource already exists")
	ErrInvalidInput  = errors.New("invalid input")
	ErrBadRequest    = errors.New("bad request")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")

	// Commission
	ErrInvalidCommissionValue = errors.New("invalid commission value")
	ErrNoApplicableRule       = errors.New("no applicable commission rule")

	// Ledger
	ErrWalletNotFound         = errors.New("wallet not found")
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrHoldAlreadyReleased    = errors.New("hold already released")
	ErrHoldNotReleasable      = errors.New("hold is not releasable")
	ErrBelowMinimumWithdrawal = errors.New("amount below minimum withdrawal limit")
	ErrBankDetailsMissing     = errors.New("bank details missing")

	// Settlement
	ErrInvalidTransition = errors.New("invalid settlement transition")
	ErrSettlementClosed  = errors.New("settlement closed")
	ErrConcurrentUpdate  = errors.New("record was modified concurrently")

	// Trust score
	ErrProfileNotFound = errors.New("profile not found")
)

// Stable machine-readable error codes returned to API clients.
const (
	CodeNotFound               = "NOT_FOUND"
	CodeConflict               = "CONFLICT"
	CodeBadRequest             = "BAD_REQUEST"
	CodeInvalidInput           = "INVALID_INPUT"
	CodeUnauthorized           = "UNAUTHORIZED"
	CodeForbidden              = "FORBIDDEN"
	CodeInternalError          = "INTERNAL_ERROR"
	CodeInvalidCommissionValue = "INVALID_COMMISSION_VALUE"
	CodeNoApplicableRule       = "NO_APPLICABLE_RULE"
	CodeWalletNotFound         = "WALLET_NOT_FOUND"
	CodeInsufficientBalance    = "INSUFFICIENT_BALANCE"
	CodeHoldAlreadyReleased    = "HOLD_ALREADY_RELEASED"
	CodeHoldNotReleasable      = "HOLD_NOT_RELEASABLE"
	CodeBelowMinimumWithdrawal = "BELOW_MINIMUM_WITHDRAWAL"
	CodeBankDetailsMissing     = "BANK_DETAILS_MISSING"
	CodeInvalidTransition      = "INVALID_TRANSITION"
	CodeSettlementClosed       = "SETTLEMENT_CLOSED"
	CodeProfileNotFound        = "PROFILE_NOT_FOUND"
	CodeConcurrentUpdate       = "CONCURRENT_UPDATE"
)

// AppError represents application error with HTTP status
type AppError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new app error
func NewAppError(status int, code, message string, err error) *AppError {
	return &AppError{
		Status:  status,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common error constructors
func NotFound(message string) *AppError {
	return NewAppError(http.StatusNotFound, CodeNotFound, message, ErrNotFound)
}

func BadRequest(message string) *AppError {
	return NewAppError(http.StatusBadRequest, CodeInvalidInput, message, ErrInvalidInput)
}

func Conflict(message string) *AppError {
	return NewAppError(http.StatusConflict, CodeConflict, message, ErrAlreadyExists)
}

func Unprocessable(message string) *AppError {
	return NewAppError(http.StatusUnprocessableEntity, CodeInvalidInput, message, ErrInvalidInput)
}

func Unauthorized(message string) *AppError {
	return NewAppError(http.StatusUnauthorized, CodeUnauthorized, message, ErrUnauthorized)
}

func Forbidden(message string) *AppError {
	return NewAppError(http.StatusForbidden, CodeForbidden, message, ErrForbidden)
}

func InternalError(err error) *AppError {
	return NewAppError(http.StatusInternalServerError, CodeInternalError, "internal server error", err)
}

func InternalServerError(message string) *AppError {
	return NewAppError(http.StatusInternalServerError, CodeInternalError, message, nil)
}

// NewError creates a new error with a custom message wrapping an existing error
func NewError(message string, err error) error {
	return &AppError{
		Status:  http.StatusBadRequest,
		Code:    CodeBadRequest,
		Message: message,
		Err:     err,
	}
}

type sentinelMapping struct {
	target error
	status int
	code   string
}

// First match wins, so specific sentinels come before the generic ones.
var sentinelMappings = []sentinelMapping{
	{ErrInvalidCommissionValue, http.StatusBadRequest, CodeInvalidCommissionValue},
	{ErrNoApplicableRule, http.StatusNotFound, CodeNoApplicableRule},
	{ErrWalletNotFound, http.StatusNotFound, CodeWalletNotFound},
	{ErrInsufficientBalance, http.StatusUnprocessableEntity, CodeInsufficientBalance},
	{ErrHoldAlreadyReleased, http.StatusConflict, CodeHoldAlreadyReleased},
	{ErrHoldNotReleasable, http.StatusConflict, CodeHoldNotReleasable},
	{ErrBelowMinimumWithdrawal, http.StatusUnprocessableEntity, CodeBelowMinimumWithdrawal},
	{ErrBankDetailsMissing, http.StatusUnprocessableEntity, CodeBankDetailsMissing},
	{ErrSettlementClosed, http.StatusConflict, CodeSettlementClosed},
	{ErrInvalidTransition, http.StatusConflict, CodeInvalidTransition},
	{ErrConcurrentUpdate, http.StatusConflict, CodeConcurrentUpdate},
	{ErrProfileNotFound, http.StatusNotFound, CodeProfileNotFound},
	{ErrNotFound, http.StatusNotFound, CodeNotFound},
	{ErrAlreadyExists, http.StatusConflict, CodeConflict},
	{ErrInvalidInput, http.StatusBadRequest, CodeInvalidInput},
	{ErrBadRequest, http.StatusBadRequest, CodeBadRequest},
	{ErrUnauthorized, http.StatusUnauthorized, CodeUnauthorized},
	{ErrForbidden, http.StatusForbidden, CodeForbidden},
}

// FromDomain converts err into an AppError. AppErrors pass through untouched,
// known sentinels get their status and code, anything else is an internal error.
func FromDomain(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	for _, m := range sentinelMappings {
		if errors.Is(err, m.target) {
			return NewAppError(m.status, m.code, err.Error(), err)
		}
	}
	return InternalError(err)
}
