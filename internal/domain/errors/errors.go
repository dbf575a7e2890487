package errors

import "errors"

var (
	ErrAlreadyExists    = errors.New("already exists")
	ErrNotFound         = errors.New("not found")
	ErrInvalidRequest   = errors.New("invalid request")
	ErrInvalidToken     = errors.New("invalid token")
	ErrProductNotFound  = errors.New("product not found")
	ErrAmountMismatch   = errors.New("amount mismatch")
	ErrExpired          = errors.New("download expired")
	ErrLimitExceeded    = errors.New("download limit exceeded")
	ErrForbidden        = errors.New("forbidden")
	ErrOrderNotApproved = errors.New("order not approved")
	ErrNotReconciled    = errors.New("payment not reconciled yet")
	ErrPaymentGateway   = errors.New("payment gateway unavailable")
)
