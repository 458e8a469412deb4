package model

import "errors"

var (
	ErrValidation        = errors.New("validation failed")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrCouponInactive    = errors.New("coupon is not active")
	ErrCouponExpired     = errors.New("coupon is expired")
	ErrCouponExhausted   = errors.New("coupon usage limit reached")
	ErrCouponMinOrder    = errors.New("order amount is below coupon minimum")
)
