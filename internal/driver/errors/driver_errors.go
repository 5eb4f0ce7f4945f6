package drivererrors

import (
	"net/http"

	"go-fleet/internal/shared/apperror"
)

var (
	ErrDriverNotFound = apperror.New(
		apperror.CodeNotFound,
		"driver not found",
		http.StatusNotFound,
	)
	ErrDriverAlreadyExists = apperror.New(
		apperror.CodeConflict,
		"driver with the same external code already exists",
		http.StatusConflict,
	)
	ErrInvalidEmploymentType = apperror.New(
		apperror.CodeInvalidInput,
		"invalid employment type",
		http.StatusBadRequest,
	)
	ErrInvalidAllowance = apperror.New(
		apperror.CodeInvalidInput,
		"annual allowance must not be negative",
		http.StatusBadRequest,
	)
	ErrInsufficientBalance = apperror.New(
		apperror.CodeInsufficientBalance,
		"insufficient leave balance",
		http.StatusUnprocessableEntity,
	)
)
